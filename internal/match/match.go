// Package match runs automated games between two engines.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"arena/internal/board"
	"arena/internal/core"
	"arena/internal/engine"
	"arena/internal/game"
	"arena/internal/logging"
	"arena/internal/player"
	"arena/internal/storage"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("fen", func(fl validator.FieldLevel) bool {
		return board.ValidFEN(fl.Field().String())
	})
	return v
}

// Config describes one match.
type Config struct {
	// White and Black are engine profile paths
	White string `validate:"required"`
	Black string `validate:"required"`
	// Referee is an optional engine profile used to keep the board
	Referee string
	// MoveTime is the soft budget per move, after which stop is sent
	MoveTime time.Duration `validate:"gt=0"`
	// Timeout is the hard deadline per move. When not above MoveTime,
	// HardFactor scales MoveTime instead.
	Timeout    time.Duration `validate:"gte=0"`
	HardFactor float64       `validate:"gte=0"`
	// MaxPlies ends the match in a draw; zero means no limit
	MaxPlies int    `validate:"gte=0"`
	FEN      string `validate:"omitempty,fen"`
}

// Validate reports whether c describes a playable match. Profiles are not
// opened.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid match config: %w", err)
	}
	return nil
}

func (c Config) hardFactor() float64 {
	if c.Timeout > c.MoveTime {
		return float64(c.Timeout) / float64(c.MoveTime)
	}
	if c.HardFactor > 0 {
		return c.HardFactor
	}
	return engine.DefaultHardFactor
}

// Recorder persists matches as they are played.
type Recorder interface {
	RecordMatch(storage.MatchRecord) error
	RecordMove(storage.MoveRecord) error
	FinishMatch(matchID, state, reason string, at time.Time) error
}

// Move is reported after every ply.
type Move struct {
	MatchID string
	Ply     int
	Color   core.Color
	Player  string
	Move    string
	Ponder  string
	FEN     string
	Elapsed time.Duration
}

// Result is a finished match.
type Result struct {
	ID   string
	Game *game.Game
}

// Runner plays matches. The zero value is usable.
type Runner struct {
	Settings player.Settings
	// Store is optional
	Store Recorder
	// OnStart is called with the engines' names once both are ready
	OnStart func(white, black string)
	// OnMove is called after every ply when set
	OnMove func(Move)
	Log    *slog.Logger
}

type session struct {
	id      string
	cfg     Config
	players map[core.Color]*player.EnginePlayer
	referee Referee
	game    *game.Game
	log     *slog.Logger
	runner  *Runner
}

// Run plays the match described by cfg to its end. Engine anomalies decide
// the game rather than fail it; errors are returned only when the match
// cannot be set up. Every engine is quit before Run returns.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	return r.RunWithID(ctx, uuid.New().String(), cfg)
}

// RunWithID is Run with a caller chosen match id.
func (r *Runner) RunWithID(ctx context.Context, id string, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := r.Log
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("component", "match", "match", id)

	settings := r.Settings
	if settings.Logger == nil {
		settings.Logger = log
	}
	settings = settings.WithDefaults()

	white, black, ref, err := loadPlayers(cfg, settings)
	if err != nil {
		return nil, err
	}
	defer white.Close()
	defer black.Close()

	s := &session{
		id:  id,
		cfg: cfg,
		players: map[core.Color]*player.EnginePlayer{
			core.ColorWhite: white,
			core.ColorBlack: black,
		},
		game:   game.New(cfg.FEN, white.Name(), black.Name()),
		log:    log,
		runner: r,
	}
	if ref != nil {
		defer ref.Close()
		s.referee = NewEngineReferee(ref.Process(), settings.ReadyTimeout)
	}

	var g errgroup.Group
	g.Go(white.NewGame)
	g.Go(black.NewGame)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if r.OnStart != nil {
		r.OnStart(white.Name(), black.Name())
	}
	s.record()
	s.play(ctx)
	s.finish()

	return &Result{ID: id, Game: s.game}, nil
}

// loadPlayers starts every engine of the match concurrently. On failure the
// engines that did start are quit.
func loadPlayers(cfg Config, settings player.Settings) (white, black, ref *player.EnginePlayer, err error) {
	var g errgroup.Group
	g.Go(func() (err error) {
		white, err = player.LoadFile(cfg.White, settings)
		return err
	})
	g.Go(func() (err error) {
		black, err = player.LoadFile(cfg.Black, settings)
		return err
	})
	if cfg.Referee != "" {
		g.Go(func() (err error) {
			ref, err = player.LoadFile(cfg.Referee, settings)
			return err
		})
	}

	if err = g.Wait(); err != nil {
		for _, p := range []*player.EnginePlayer{white, black, ref} {
			if p != nil {
				p.Close()
			}
		}
		return nil, nil, nil, err
	}
	return white, black, ref, nil
}

func (s *session) play(ctx context.Context) {
	soft := s.cfg.MoveTime
	factor := s.cfg.hardFactor()

	for {
		if err := ctx.Err(); err != nil {
			s.game.Finish(core.StateAborted, "interrupted")
			return
		}
		if s.cfg.MaxPlies > 0 && s.game.Plies() >= s.cfg.MaxPlies {
			s.game.Finish(core.StateDraw, fmt.Sprintf("move limit of %d plies reached", s.cfg.MaxPlies))
			return
		}

		side := s.game.NextTurn()
		p := s.players[side]
		pos := engine.Position{FEN: s.cfg.FEN, Moves: s.game.Moves()}

		start := time.Now()
		bm, err := p.BestMove(pos, soft, factor)
		elapsed := time.Since(start)
		if err != nil {
			s.log.Error("Best move query failed", "side", side, "error", err)
			s.game.Finish(core.StateAborted, err.Error())
			return
		}

		if bm == nil {
			s.forfeit(side, "no move in time")
			return
		}

		if bm.Move == "(none)" || bm.Move == "0000" {
			s.noMove(side)
			return
		}

		if !board.ValidMove(bm.Move) {
			s.forfeit(side, fmt.Sprintf("malformed move %q", bm.Move))
			return
		}

		fen := ""
		if s.referee != nil {
			fen, err = s.referee.Apply(s.currentFEN(), bm.Move)
			if errors.Is(err, ErrIllegalMove) {
				s.forfeit(side, fmt.Sprintf("illegal move %s", bm.Move))
				return
			}
			if err != nil {
				// The board can no longer be tracked from here on.
				s.log.Warn("Referee could not apply move, continuing without it", "move", bm.Move, "error", err)
				s.referee = nil
			}
		}

		snap := s.game.Play(bm.Move, bm.Ponder, fen, elapsed)
		s.recordMove(side, p.Name(), snap)
	}
}

// currentFEN is the latest position the referee produced.
func (s *session) currentFEN() string {
	snaps := s.game.Snapshots()
	for i := len(snaps) - 1; i >= 0; i-- {
		if snaps[i].FEN != "" {
			return snaps[i].FEN
		}
	}
	return board.StartingFEN
}

func (s *session) forfeit(side core.Color, why string) {
	s.log.Info("Side forfeits", "side", side, "reason", why)
	s.game.Finish(core.WinFor(core.OppositeColor(side)), fmt.Sprintf("%s forfeits: %s", side, why))
}

// noMove handles a side reporting it has no legal move.
func (s *session) noMove(side core.Color) {
	if s.referee != nil {
		state, reason, err := s.referee.Outcome(s.currentFEN())
		if err == nil {
			s.game.Finish(state, reason)
			return
		}
		s.log.Warn("Referee could not adjudicate", "error", err)
	}
	s.game.Finish(core.WinFor(core.OppositeColor(side)), fmt.Sprintf("%s has no move", side))
}

func (s *session) record() {
	if s.runner.Store == nil {
		return
	}
	timeout := s.cfg.Timeout
	if timeout <= s.cfg.MoveTime {
		timeout = time.Duration(float64(s.cfg.MoveTime) * s.cfg.hardFactor())
	}
	err := s.runner.Store.RecordMatch(storage.MatchRecord{
		MatchID:      s.id,
		InitialFEN:   s.game.InitialFEN(),
		WhiteName:    s.game.Player(core.ColorWhite),
		WhiteProfile: s.cfg.White,
		BlackName:    s.game.Player(core.ColorBlack),
		BlackProfile: s.cfg.Black,
		MoveTimeMs:   s.cfg.MoveTime.Milliseconds(),
		TimeoutMs:    timeout.Milliseconds(),
		State:        core.StateOngoing.Code(),
		StartTimeUTC: s.game.Started(),
	})
	if err != nil {
		s.log.Warn("Failed to record match", "error", err)
	}
}

func (s *session) recordMove(side core.Color, name string, snap game.Snapshot) {
	ply := s.game.Plies()
	if s.runner.OnMove != nil {
		s.runner.OnMove(Move{
			MatchID: s.id,
			Ply:     ply,
			Color:   side,
			Player:  name,
			Move:    snap.PreviousMove,
			Ponder:  snap.Ponder,
			FEN:     snap.FEN,
			Elapsed: snap.Elapsed,
		})
	}
	if s.runner.Store == nil {
		return
	}
	err := s.runner.Store.RecordMove(storage.MoveRecord{
		MatchID:      s.id,
		Ply:          ply,
		MoveUCI:      snap.PreviousMove,
		Ponder:       snap.Ponder,
		FENAfterMove: snap.FEN,
		PlayerColor:  string(side),
		ElapsedMs:    snap.Elapsed.Milliseconds(),
		MoveTimeUTC:  time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("Failed to record move", "ply", ply, "error", err)
	}
}

func (s *session) finish() {
	g := s.game
	s.log.Info("Match finished", "state", g.State(), "reason", g.Reason(), "plies", g.Plies())
	if s.runner.Store == nil {
		return
	}
	if err := s.runner.Store.FinishMatch(s.id, g.State().Code(), g.Reason(), g.Finished()); err != nil {
		s.log.Warn("Failed to record result", "error", err)
	}
}
