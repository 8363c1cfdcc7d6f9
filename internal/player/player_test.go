package player_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/internal/engine"
	"arena/internal/enginetest"
	"arena/internal/player"
	"arena/internal/profile"
)

func mockProfile(t *testing.T, m enginetest.Mock, options map[string]any) *profile.EngineProfile {
	t.Helper()
	return &profile.EngineProfile{
		Engine: profile.EngineMetadata{
			Name:    "Deep Thought",
			Author:  "D. Adams",
			Command: []string{m.Path(t)},
		},
		Options: options,
	}
}

func TestLoadAppliesOptions(t *testing.T) {
	transcript := filepath.Join(t.TempDir(), "transcript")
	p := mockProfile(t, enginetest.Mock{Transcript: transcript}, map[string]any{
		"Hash":    int64(32),
		"Ponder":  true,
		"Missing": "x",
	})

	e, err := player.Load(p, player.Settings{ReadyTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 2, e.Applied)
	assert.Equal(t, "Deep Thought", e.Name())
	assert.NotEmpty(t, e.ID)

	require.NoError(t, e.NewGame())
	require.NoError(t, e.Close())

	assert.Equal(t, []string{
		"uci",
		"setoption name Hash value 32",
		"setoption name Ponder value true",
		"isready",
		"ucinewgame",
		"isready",
		"quit",
	}, enginetest.Transcript(t, transcript))
}

func TestLoadIdentityMismatch(t *testing.T) {
	p := mockProfile(t, enginetest.Mock{Author: "Slartibartfast"}, map[string]any{"Hash": int64(32)})

	e, err := player.Load(p, player.Settings{})
	require.NoError(t, err)
	defer e.Close()

	assert.Zero(t, e.Applied)
	assert.Empty(t, e.Details.SetOptionQueue())
}

func TestLoadMissingExecutable(t *testing.T) {
	p := &profile.EngineProfile{Engine: profile.EngineMetadata{
		Name:    "ghost",
		Command: []string{filepath.Join(t.TempDir(), "ghost")},
	}}

	_, err := player.Load(p, player.Settings{})
	var spawnErr *engine.SpawnError
	assert.True(t, errors.As(err, &spawnErr))
}

func TestLoadEngineNeverReady(t *testing.T) {
	p := mockProfile(t, enginetest.Mock{Mode: "closed"}, nil)

	_, err := player.Load(p, player.Settings{ReadyTimeout: 200 * time.Millisecond})
	assert.ErrorIs(t, err, engine.ErrNotReady)
}

func TestBestMove(t *testing.T) {
	p := mockProfile(t, enginetest.Mock{Moves: []string{"g1f3"}}, nil)

	e, err := player.Load(p, player.Settings{})
	require.NoError(t, err)
	defer e.Close()

	bm, err := e.BestMove(engine.Position{}, 500*time.Millisecond, 2)
	require.NoError(t, err)
	require.NotNil(t, bm)
	assert.Equal(t, "g1f3", bm.Move)
}

func TestDiscover(t *testing.T) {
	d, err := player.Discover(enginetest.Mock{Name: "Hactar"}.Path(t), nil, player.Settings{})
	require.NoError(t, err)
	assert.Equal(t, "Hactar", d.Identity.Name)
	assert.Equal(t, 5, d.Options.Len())
}
