package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"arena/internal/display"
	"arena/internal/match"
	"arena/internal/storage"
)

func newFaceoffCmd(a *app) *cobra.Command {
	var (
		white, black, referee string
		fen, storagePath      string
		moveTime, timeout     time.Duration
		maxPlies              int
		quiet                 bool
	)

	cmd := &cobra.Command{
		Use:   "faceoff",
		Short: "Play one match between two engine profiles",
		Example: `  arena faceoff --white stockfish.toml --black lc0.toml --time 500ms
  arena faceoff -w a.toml -b b.toml --referee stockfish.toml --max-plies 200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mc := a.cfg.Match
			cfg := match.Config{
				White:      white,
				Black:      black,
				Referee:    referee,
				MoveTime:   mc.MoveTime,
				Timeout:    mc.Timeout,
				HardFactor: mc.HardFactor,
				MaxPlies:   mc.MaxPlies,
				FEN:        fen,
			}
			if cmd.Flags().Changed("time") {
				cfg.MoveTime = moveTime
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Timeout = timeout
			}
			if cmd.Flags().Changed("max-plies") {
				cfg.MaxPlies = maxPlies
			}
			if storagePath == "" {
				storagePath = a.cfg.Storage.Path
			}
			return a.faceoff(cmd.Context(), cfg, storagePath, quiet)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&white, "white", "w", "", "engine profile playing white")
	f.StringVarP(&black, "black", "b", "", "engine profile playing black")
	f.StringVar(&referee, "referee", "", "engine profile that keeps the board and adjudicates")
	f.DurationVarP(&moveTime, "time", "t", 0, "time per move after which the engine is told to stop")
	f.DurationVar(&timeout, "timeout", 0, "time per move after which the engine forfeits")
	f.IntVar(&maxPlies, "max-plies", 0, "draw the match after this many plies (0 for no limit)")
	f.StringVar(&fen, "fen", "", "start from this position instead of the standard one")
	f.StringVar(&storagePath, "storage-path", "", "record the match in this sqlite database")
	f.BoolVarP(&quiet, "quiet", "q", false, "print only the result")
	_ = cmd.MarkFlagRequired("white")
	_ = cmd.MarkFlagRequired("black")

	return cmd
}

func (a *app) faceoff(ctx context.Context, cfg match.Config, storagePath string, quiet bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := display.NewPrinter(a.out, quiet)
	runner := &match.Runner{
		Settings: a.settings(),
		OnStart:  printer.Header,
		OnMove:   printer.Move,
		Log:      a.log,
	}

	if storagePath != "" {
		store, err := storage.NewStore(storagePath, a.log)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.InitDB(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		runner.Store = store
	}

	res, err := runner.Run(ctx, cfg)
	if err != nil {
		return err
	}
	printer.Result(res.Game)
	return nil
}
