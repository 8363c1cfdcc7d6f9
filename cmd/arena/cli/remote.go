package cli

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"arena/internal/board"
	"arena/internal/client"
	"arena/internal/core"
	"arena/internal/display"
	"arena/internal/match"
)

func newRemoteCmd(a *app) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Run and inspect matches on an arena server",
	}
	cmd.PersistentFlags().StringVar(&server, "server", "", "server URL (default from server.host and server.port)")

	connect := func() *client.Client {
		if server == "" {
			server = "http://" + net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
		}
		c := client.New(server)
		c.Log = a.log.With("component", "client")
		return c
	}

	cmd.AddCommand(
		newRemoteSubmitCmd(a, connect),
		&cobra.Command{
			Use:   "list",
			Short: "List the server's matches",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				matches, err := connect().ListMatches(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSTATUS\tWHITE\tBLACK\tRESULT\tPLIES")
				for _, m := range matches {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
						shortID(m.MatchID), m.Status, m.White, m.Black, m.Result, len(m.Moves))
				}
				return w.Flush()
			},
		},
		newRemoteShowCmd(a, connect),
		&cobra.Command{
			Use:   "health",
			Short: "Check the server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				h, err := connect().Health(cmd.Context())
				if err != nil {
					return err
				}
				return display.PrettyPrintJSON(a.out, h)
			},
		},
	)
	return cmd
}

func newRemoteSubmitCmd(a *app, connect func() *client.Client) *cobra.Command {
	var (
		req    core.CreateMatchRequest
		follow bool
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue a match on the server",
		Long: `Queue a match between two profiles from the server's profiles directory.
Profiles are named without the .toml extension.`,
		Example: `  arena remote submit -w stockfish -b lc0 --time 200 --follow`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			c := connect()

			m, err := c.CreateMatch(ctx, &req)
			if err != nil {
				return err
			}
			if !follow {
				fmt.Fprintf(a.out, "Match %s %s\n", m.MatchID, m.Status)
				return nil
			}

			p := display.NewPrinter(a.out, quiet)
			headed := false
			printed := 0
			final, err := c.Follow(ctx, m.MatchID, func(m *core.MatchResponse) {
				if m.Status == "queued" {
					return
				}
				if !headed {
					p.Header(m.White, m.Black)
					headed = true
				}
				for ; printed < len(m.Moves); printed++ {
					p.Move(remoteMove(m, printed))
				}
			})
			if err != nil {
				return err
			}
			p.Summary(final)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.White, "white", "w", "", "profile playing white")
	f.StringVarP(&req.Black, "black", "b", "", "profile playing black")
	f.StringVar(&req.Referee, "referee", "", "profile that keeps the board and adjudicates")
	f.IntVarP(&req.MoveTime, "time", "t", 0, "milliseconds per move before stop is sent")
	f.IntVar(&req.Timeout, "timeout", 0, "milliseconds per move before the side forfeits")
	f.IntVar(&req.MaxPlies, "max-plies", 0, "draw the match after this many plies")
	f.StringVar(&req.FEN, "fen", "", "starting position")
	f.BoolVarP(&follow, "follow", "f", false, "print moves as they are played")
	f.BoolVarP(&quiet, "quiet", "q", false, "with --follow, print only the result")
	_ = cmd.MarkFlagRequired("white")
	_ = cmd.MarkFlagRequired("black")

	return cmd
}

func newRemoteShowCmd(a *app, connect func() *client.Client) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <match-id>",
		Short: "Show one match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := connect().GetMatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return display.PrettyPrintJSON(a.out, m)
			}
			if !client.Done(m) {
				fmt.Fprintf(a.out, "Match %s %s: %s vs %s, %d plies\n", m.MatchID, m.Status, m.White, m.Black, len(m.Moves))
				return nil
			}
			display.NewPrinter(a.out, false).Summary(m)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw response")
	return cmd
}

// remoteMove rebuilds the i-th ply of m for printing. The server reports
// moves only, so elapsed time is unknown.
func remoteMove(m *core.MatchResponse, i int) match.Move {
	first := core.ColorWhite
	if b, err := board.ParseFEN(m.InitialFEN); err == nil {
		first = b.Turn()
	}
	color := first
	if i%2 == 1 {
		color = core.OppositeColor(first)
	}
	name := m.White
	if color == core.ColorBlack {
		name = m.Black
	}
	return match.Move{
		MatchID: m.MatchID,
		Ply:     i + 1,
		Color:   color,
		Player:  name,
		Move:    m.Moves[i],
	}
}
