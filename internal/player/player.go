// Package player turns engine profiles into running, configured engines.
package player

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"arena/internal/engine"
	"arena/internal/logging"
	"arena/internal/profile"
)

// Settings bounds the start-up exchanges with an engine.
type Settings struct {
	Drain        time.Duration
	ReadyTimeout time.Duration
	Logger       *slog.Logger
}

// WithDefaults fills the zero fields of s.
func (s Settings) WithDefaults() Settings {
	if s.Drain <= 0 {
		s.Drain = engine.DefaultDrain
	}
	if s.ReadyTimeout <= 0 {
		s.ReadyTimeout = 5 * time.Second
	}
	if s.Logger == nil {
		s.Logger = logging.Nop()
	}
	return s
}

// EnginePlayer is an engine process configured from its profile.
type EnginePlayer struct {
	ID      string
	Profile *profile.EngineProfile
	Details *engine.Details
	// Applied counts the profile options the engine accepted
	Applied int

	proc     *engine.Process
	settings Settings
	log      *slog.Logger
}

// Load starts the engine described by p, identifies it, applies the
// profile's option overrides and waits until it is ready.
func Load(p *profile.EngineProfile, s Settings) (*EnginePlayer, error) {
	s = s.WithDefaults()
	id := uuid.New().String()
	log := s.Logger.With("player", id, "profile", p.Engine.Name)

	proc, err := engine.Open(p.Engine.Path(), p.Engine.Args(),
		engine.WithStderrLog(p.Engine.Log),
		engine.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	details, err := proc.Handshake(s.Drain)
	if err != nil {
		proc.Quit()
		return nil, fmt.Errorf("handshake with %s: %w", p.Engine.Name, err)
	}

	want := p.Engine.Identity()
	if details.Identity != want {
		log.Warn("Engine identity differs from profile, options not applied",
			"reported_name", details.Identity.Name, "reported_author", details.Identity.Author)
	}
	applied := details.LoadProfile(want, p.Options)
	if applied < len(p.Options) && details.Identity == want {
		log.Warn("Some profile options were skipped", "applied", applied, "configured", len(p.Options))
	}

	if err := proc.Ready(s.ReadyTimeout, details.SetOptionQueue()...); err != nil {
		proc.Quit()
		return nil, fmt.Errorf("configure %s: %w", p.Engine.Name, err)
	}

	log.Info("Engine loaded", "applied", applied)
	return &EnginePlayer{
		ID:       id,
		Profile:  p,
		Details:  details,
		Applied:  applied,
		proc:     proc,
		settings: s,
		log:      log,
	}, nil
}

// LoadFile is Load for the engine profile at path.
func LoadFile(path string, s Settings) (*EnginePlayer, error) {
	p, err := profile.LoadEngine(path)
	if err != nil {
		return nil, err
	}
	return Load(p, s)
}

// Name is the name the engine reported, falling back to the profile's.
func (e *EnginePlayer) Name() string {
	if e.Details.Identity.Name != "" {
		return e.Details.Identity.Name
	}
	return e.Profile.Engine.Name
}

// NewGame tells the engine a new game starts and waits for readyok.
func (e *EnginePlayer) NewGame() error {
	if err := e.proc.Ready(e.settings.ReadyTimeout, engine.NewGame{}); err != nil {
		return fmt.Errorf("new game for %s: %w", e.Name(), err)
	}
	return nil
}

// BestMove asks for a move in pos. A nil move means the engine did not
// answer within soft times hardFactor.
func (e *EnginePlayer) BestMove(pos engine.Position, soft time.Duration, hardFactor float64) (*engine.BestMove, error) {
	return e.proc.QueryBestMove(engine.SearchRequest{
		Position:   pos,
		Soft:       soft,
		HardFactor: hardFactor,
	})
}

// Process exposes the underlying engine.
func (e *EnginePlayer) Process() *engine.Process {
	return e.proc
}

func (e *EnginePlayer) Close() error {
	return e.proc.Close()
}

// Discover starts the engine at path only long enough to learn its identity
// and options.
func Discover(path string, args []string, s Settings) (*engine.Details, error) {
	s = s.WithDefaults()

	proc, err := engine.Open(path, args, engine.WithLogger(s.Logger))
	if err != nil {
		return nil, err
	}
	defer proc.Quit()

	details, err := proc.Handshake(s.Drain)
	if err != nil {
		return nil, fmt.Errorf("handshake with %s: %w", path, err)
	}
	return details, nil
}
