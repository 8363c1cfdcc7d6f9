package match_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/internal/core"
	"arena/internal/enginetest"
	"arena/internal/match"
	"arena/internal/storage"
)

func writeProfile(t *testing.T, m enginetest.Mock) string {
	t.Helper()
	content := fmt.Sprintf("[engine]\nname = %q\nauthor = \"D. Adams\"\ncommand = [%q]\n", "Deep Thought", m.Path(t))
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func baseConfig(t *testing.T, white, black enginetest.Mock) match.Config {
	return match.Config{
		White:    writeProfile(t, white),
		Black:    writeProfile(t, black),
		MoveTime: 300 * time.Millisecond,
	}
}

func TestRunMoveLimit(t *testing.T) {
	cfg := baseConfig(t,
		enginetest.Mock{Delay: 10 * time.Millisecond, Moves: []string{"e2e4", "d2d4"}},
		enginetest.Mock{Delay: 10 * time.Millisecond, Moves: []string{"e7e5", "d7d5"}},
	)
	cfg.MaxPlies = 4

	var mu sync.Mutex
	var events []match.Move
	var players []string
	r := &match.Runner{
		OnStart: func(white, black string) { players = []string{white, black} },
		OnMove: func(m match.Move) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, m)
		},
	}

	res, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)

	g := res.Game
	assert.Equal(t, core.StateDraw, g.State())
	assert.Contains(t, g.Reason(), "move limit")
	assert.Equal(t, []string{"e2e4", "e7e5", "d2d4", "d7d5"}, g.Moves())

	assert.Equal(t, []string{"Deep Thought", "Deep Thought"}, players)
	require.Len(t, events, 4)
	assert.Equal(t, core.ColorWhite, events[0].Color)
	assert.Equal(t, core.ColorBlack, events[1].Color)
	assert.Equal(t, 4, events[3].Ply)
	assert.Equal(t, "e7e5", events[0].Ponder)
}

func TestRunForfeitsSilentEngine(t *testing.T) {
	cfg := baseConfig(t, enginetest.Mock{Mode: "silent"}, enginetest.Mock{})
	cfg.MoveTime = 100 * time.Millisecond

	res, err := (&match.Runner{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, core.StateBlackWins, res.Game.State())
	assert.Contains(t, res.Game.Reason(), "no move in time")
	assert.Zero(t, res.Game.Plies())
}

func TestRunTimeoutExtendsHardDeadline(t *testing.T) {
	cfg := baseConfig(t,
		enginetest.Mock{Mode: "slow", Delay: 350 * time.Millisecond},
		enginetest.Mock{},
	)
	cfg.MoveTime = 100 * time.Millisecond
	cfg.Timeout = time.Second
	cfg.MaxPlies = 1

	res, err := (&match.Runner{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, core.StateDraw, res.Game.State(), "a late move inside the timeout still counts")
	assert.Equal(t, 1, res.Game.Plies())
}

func TestRunNoMoveWithoutReferee(t *testing.T) {
	cfg := baseConfig(t, enginetest.Mock{}, enginetest.Mock{Mode: "no-move"})

	res, err := (&match.Runner{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, core.StateWhiteWins, res.Game.State())
	assert.Equal(t, 1, res.Game.Plies())
}

func TestRunReferee(t *testing.T) {
	tests := []struct {
		name       string
		referee    enginetest.Mock
		black      enginetest.Mock
		wantState  core.State
		wantReason string
		wantPlies  int
	}{
		{
			name:       "checkmate",
			referee:    enginetest.Mock{Checkers: "d8"},
			black:      enginetest.Mock{Mode: "no-move"},
			wantState:  core.StateWhiteWins,
			wantReason: "checkmate",
			wantPlies:  1,
		},
		{
			name:       "stalemate",
			referee:    enginetest.Mock{},
			black:      enginetest.Mock{Mode: "no-move"},
			wantState:  core.StateDraw,
			wantReason: "stalemate",
			wantPlies:  1,
		},
		{
			name:       "illegal move",
			referee:    enginetest.Mock{Illegal: "e2e4"},
			black:      enginetest.Mock{},
			wantState:  core.StateBlackWins,
			wantReason: "illegal move e2e4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(t, enginetest.Mock{Delay: 10 * time.Millisecond}, tt.black)
			cfg.Referee = writeProfile(t, tt.referee)
			cfg.MaxPlies = 6

			res, err := (&match.Runner{}).Run(context.Background(), cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, res.Game.State())
			assert.Contains(t, res.Game.Reason(), tt.wantReason)
			assert.Equal(t, tt.wantPlies, res.Game.Plies())
		})
	}
}

func TestRunRefereeTracksBoard(t *testing.T) {
	cfg := baseConfig(t, enginetest.Mock{Delay: 10 * time.Millisecond}, enginetest.Mock{Delay: 10 * time.Millisecond})
	cfg.Referee = writeProfile(t, enginetest.Mock{})
	cfg.MaxPlies = 2

	res, err := (&match.Runner{}).Run(context.Background(), cfg)
	require.NoError(t, err)

	snaps := res.Game.Snapshots()
	require.Len(t, snaps, 3)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 1 1", snaps[1].FEN)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 2 2", snaps[2].FEN)
}

func TestRunRecordsMatch(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "arena.db"), nil)
	require.NoError(t, err)
	require.NoError(t, store.InitDB())
	t.Cleanup(func() { store.Close() })

	cfg := baseConfig(t, enginetest.Mock{Delay: 10 * time.Millisecond}, enginetest.Mock{Delay: 10 * time.Millisecond})
	cfg.MaxPlies = 2

	res, err := (&match.Runner{Store: store}).Run(context.Background(), cfg)
	require.NoError(t, err)
	require.True(t, store.Flush(2*time.Second))

	matches, err := store.QueryMatches(res.ID, "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, core.StateDraw.Code(), matches[0].State)
	assert.Equal(t, "Deep Thought", matches[0].WhiteName)
	assert.Equal(t, int64(300), matches[0].MoveTimeMs)
	assert.Equal(t, int64(600), matches[0].TimeoutMs)
	assert.True(t, matches[0].EndTimeUTC.Valid)

	moves, err := store.QueryMoves(res.ID)
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, "w", moves[0].PlayerColor)
	assert.Equal(t, "b", moves[1].PlayerColor)
}

func TestRunCancelled(t *testing.T) {
	cfg := baseConfig(t, enginetest.Mock{}, enginetest.Mock{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := (&match.Runner{}).Run(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, core.StateAborted, res.Game.State())
	assert.Zero(t, res.Game.Plies())
}

func TestRunInvalidConfig(t *testing.T) {
	r := &match.Runner{}

	_, err := r.Run(context.Background(), match.Config{Black: "b.toml", MoveTime: time.Second})
	assert.Error(t, err, "white is required")

	_, err = r.Run(context.Background(), match.Config{White: "w.toml", Black: "b.toml"})
	assert.Error(t, err, "move time is required")

	_, err = r.Run(context.Background(), match.Config{
		White: "w.toml", Black: "b.toml", MoveTime: time.Second, FEN: "not a position",
	})
	assert.Error(t, err)
}

func TestRunMissingProfile(t *testing.T) {
	cfg := baseConfig(t, enginetest.Mock{}, enginetest.Mock{})
	cfg.Black = filepath.Join(t.TempDir(), "missing.toml")

	_, err := (&match.Runner{}).Run(context.Background(), cfg)
	assert.Error(t, err)
}
