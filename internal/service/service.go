// Package service keeps the matches started through the HTTP API and runs
// them on a worker pool.
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"arena/internal/board"
	"arena/internal/core"
	"arena/internal/logging"
	"arena/internal/match"
	"arena/internal/player"
	"arena/internal/storage"
)

var ErrMatchNotFound = errors.New("match not found")

// Status is where a match is in its lifetime.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
)

// Entry is a read-only copy of a match's progress.
type Entry struct {
	ID         string
	Status     Status
	Config     match.Config
	White      string
	Black      string
	InitialFEN string
	Moves      []match.Move
	State      core.State
	Reason     string
	Err        error
	Started    time.Time
	Finished   time.Time
}

// Plies is the number of moves played so far.
func (e Entry) Plies() int {
	return len(e.Moves)
}

// Options configures a Service.
type Options struct {
	Workers  int
	Settings player.Settings
	// Store is optional
	Store *storage.Store
	Log   *slog.Logger
}

// Service owns every match submitted through it.
type Service struct {
	mu      sync.RWMutex
	matches map[string]*Entry
	order   []string

	store    *storage.Store
	settings player.Settings
	queue    *MatchQueue
	waiter   *WaitRegistry
	log      *slog.Logger
}

// New starts the service's worker pool.
func New(opts Options) *Service {
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	s := &Service{
		matches:  make(map[string]*Entry),
		store:    opts.Store,
		settings: opts.Settings,
		waiter:   NewWaitRegistry(),
		log:      log.With("component", "service"),
	}
	s.queue = NewMatchQueue(opts.Workers, s.runMatch, s.log)
	return s
}

// CreateMatch validates cfg and queues the match.
func (s *Service) CreateMatch(cfg match.Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	id := s.generateID()
	s.matches[id] = &Entry{
		ID:         id,
		Status:     StatusQueued,
		Config:     cfg,
		White:      cfg.White,
		Black:      cfg.Black,
		InitialFEN: cmp.Or(cfg.FEN, board.StartingFEN),
	}
	s.order = append(s.order, id)
	s.mu.Unlock()

	if err := s.queue.Submit(MatchTask{ID: id, Config: cfg}); err != nil {
		s.mu.Lock()
		delete(s.matches, id)
		s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
		s.mu.Unlock()
		return "", err
	}

	s.log.Info("Match queued", "match", id, "white", cfg.White, "black", cfg.Black)
	return id, nil
}

// generateID returns an id not yet in use. Callers hold s.mu.
func (s *Service) generateID() string {
	for {
		id := uuid.New().String()
		if _, exists := s.matches[id]; !exists {
			return id
		}
	}
}

func (s *Service) runMatch(ctx context.Context, task MatchTask) {
	s.update(task.ID, func(e *Entry) {
		e.Status = StatusRunning
		e.Started = time.Now().UTC()
	})

	runner := &match.Runner{
		Settings: s.settings,
		OnStart: func(white, black string) {
			s.update(task.ID, func(e *Entry) {
				e.White = white
				e.Black = black
			})
		},
		OnMove: func(m match.Move) { s.recordMove(task.ID, m) },
		Log:    s.log,
	}
	if s.store != nil {
		runner.Store = s.store
	}

	res, err := runner.RunWithID(ctx, task.ID, task.Config)
	s.update(task.ID, func(e *Entry) {
		e.Finished = time.Now().UTC()
		if err != nil {
			e.Status = StatusFailed
			e.State = core.StateAborted
			e.Err = err
			return
		}
		e.Status = StatusFinished
		e.White = res.Game.Player(core.ColorWhite)
		e.Black = res.Game.Player(core.ColorBlack)
		e.State = res.Game.State()
		e.Reason = res.Game.Reason()
	})
	if err != nil {
		s.log.Warn("Match failed", "match", task.ID, "error", err)
	}
	s.waiter.Release(task.ID)
}

func (s *Service) recordMove(id string, m match.Move) {
	var plies int
	s.update(id, func(e *Entry) {
		e.Moves = append(e.Moves, m)
		plies = len(e.Moves)
	})
	s.waiter.Notify(id, plies)
}

func (s *Service) update(id string, fn func(*Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.matches[id]; ok {
		fn(e)
	}
}

// GetMatch returns a copy of the match's current progress.
func (s *Service) GetMatch(id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.matches[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return e.snapshot(), nil
}

func (e *Entry) snapshot() Entry {
	out := *e
	out.Moves = slices.Clone(e.Moves)
	return out
}

// ListMatches returns every match, oldest first.
func (s *Service) ListMatches() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.matches[id].snapshot())
	}
	return out
}

// WaitForMove blocks until the match has a ply count other than plies, it
// ends, or ctx is done.
func (s *Service) WaitForMove(ctx context.Context, id string, plies int) (Entry, error) {
	e, err := s.GetMatch(id)
	if err != nil {
		return Entry{}, err
	}
	if e.Plies() != plies || e.Status == StatusFinished || e.Status == StatusFailed {
		return e, nil
	}

	notify := s.waiter.Register(ctx, id, plies)

	// The match may have moved between the read and the registration.
	if e, err = s.GetMatch(id); err != nil || e.Plies() != plies || e.Status == StatusFinished || e.Status == StatusFailed {
		return e, err
	}

	select {
	case <-notify:
	case <-ctx.Done():
	}
	return s.GetMatch(id)
}

// StorageHealth reports "disabled", "ok" or "degraded".
func (s *Service) StorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// Close aborts running matches, stops the workers and closes the store.
func (s *Service) Close(timeout time.Duration) error {
	var errs []error
	if err := s.queue.Shutdown(timeout); err != nil {
		errs = append(errs, err)
	}
	if err := s.waiter.Shutdown(timeout); err != nil {
		errs = append(errs, err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
