package engine_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/internal/engine"
	"arena/internal/enginetest"
)

func TestHandshake(t *testing.T) {
	p := openMock(t, enginetest.Mock{})

	start := time.Now()
	d, err := p.Handshake(time.Second)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond, "uciok ends the handshake")

	assert.Equal(t, engine.Identity{Name: "Deep Thought", Author: "D. Adams"}, d.Identity)
	assert.Equal(t, []string{"Hash", "Ponder", "Style", "Debug Log File", "Clear Hash"}, d.Options.Names())

	hash, ok := d.Options.Get("Hash")
	require.True(t, ok)
	assert.Equal(t, &engine.SpinOption{Min: 1, Max: 33554432, Default: 16}, hash)
}

func TestHandshakeWithoutUCIOK(t *testing.T) {
	p := openMock(t, enginetest.Mock{Mode: "no-uciok", Name: "Marvin"})

	start := time.Now()
	d, err := p.Handshake(200 * time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)

	assert.Equal(t, "Marvin", d.Identity.Name)
	assert.Equal(t, 5, d.Options.Len(), "declarations before the drain deadline are kept")
}

func TestHandshakeEngineGone(t *testing.T) {
	p := openMock(t, enginetest.Mock{Mode: "closed"})

	d, err := p.Handshake(time.Second)
	require.NoError(t, err)
	assert.Equal(t, engine.Identity{}, d.Identity)
	assert.Zero(t, d.Options.Len())
}

func TestReadyAppliesOptions(t *testing.T) {
	transcript := filepath.Join(t.TempDir(), "transcript")
	p := openMock(t, enginetest.Mock{Transcript: transcript})

	d, err := p.Handshake(time.Second)
	require.NoError(t, err)

	applied := d.LoadProfile(d.Identity, map[string]any{
		"Hash":           int64(128),
		"Style":          "Risky",
		"Debug Log File": "",
	})
	require.Equal(t, 3, applied)

	require.NoError(t, p.Ready(time.Second, d.SetOptionQueue()...))

	p.Quit()
	assert.Equal(t, []string{
		"uci",
		"setoption name Hash value 128",
		"setoption name Style value Risky",
		"setoption name Debug Log File value <empty>",
		"isready",
		"quit",
	}, enginetest.Transcript(t, transcript))
}

func TestReadyEngineGone(t *testing.T) {
	p := openMock(t, enginetest.Mock{Mode: "closed"})
	assert.ErrorIs(t, p.Ready(time.Second, engine.NewGame{}), engine.ErrNotReady)
}
