package engine_test

import (
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/internal/engine"
	"arena/internal/enginetest"
)

func TestQueue(t *testing.T) {
	q := engine.NewQueue(engine.UCI{}, engine.Position{Moves: []string{"e2e4"}})
	assert.True(t, q.PushUnique(engine.Stop{}))
	assert.False(t, q.PushUnique(engine.Stop{}))
	assert.False(t, q.PushUnique(engine.Position{Moves: []string{"e2e4"}}), "equal positions are duplicates")
	assert.True(t, q.PushUnique(engine.Position{Moves: []string{"d2d4"}}))
	q.Push(engine.Quit{})
	require.Equal(t, 5, q.Len())

	var lines []string
	for {
		cmd, ok := q.Pop()
		if !ok {
			break
		}
		lines = append(lines, cmd.String())
	}
	assert.Equal(t, []string{
		"uci",
		"position startpos moves e2e4",
		"stop",
		"position startpos moves d2d4",
		"quit",
	}, lines)

	_, ok := q.Front()
	assert.False(t, ok)
}

func TestInterleaveUntilReady(t *testing.T) {
	transcript := filepath.Join(t.TempDir(), "transcript")
	p := openMock(t, enginetest.Mock{Transcript: transcript})
	tx, rx := p.Split()

	q := engine.NewQueue(engine.UCI{}, engine.IsReady{})
	var acc []engine.Response
	start := time.Now()
	ok := engine.InterleaveUntil(tx, rx, q, &acc, engine.Has[engine.ReadyOK](), 5*time.Second)
	require.True(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second, "predicate must end the wait early")
	assert.Zero(t, q.Len())

	assert.Equal(t, engine.IDName{Name: "Deep Thought"}, acc[0])
	assert.Equal(t, engine.ReadyOK{}, acc[len(acc)-1])

	uciok := slices.Index(acc, engine.Response(engine.UCIOK{}))
	require.NotEqual(t, -1, uciok)
	assert.Less(t, uciok, len(acc)-1)

	assert.True(t, slices.ContainsFunc(acc, func(r engine.Response) bool {
		_, ok := r.(engine.Unrecognized)
		return ok
	}), "malformed lines are kept as unrecognized")

	p.Quit()
	assert.Equal(t, []string{"uci", "isready", "quit"}, enginetest.Transcript(t, transcript))
}

func TestInterleaveBudgetExpiry(t *testing.T) {
	p := openMock(t, enginetest.Mock{Mode: "silent"})
	tx, rx := p.Split()

	q := engine.NewQueue(engine.Position{}, engine.Go{Infinite: true})
	var acc []engine.Response
	start := time.Now()
	engine.Interleave(tx, rx, q, &acc, 100*time.Millisecond)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Zero(t, q.Len(), "sent commands are not rolled back")
	assert.Empty(t, acc)
}

func TestInterleaveReturnsOnExit(t *testing.T) {
	p := openMock(t, enginetest.Mock{Mode: "closed"})
	tx, rx := p.Split()

	var acc []engine.Response
	start := time.Now()
	ok := engine.InterleaveUntil(tx, rx, engine.NewQueue(engine.UCI{}), &acc, engine.Has[engine.UCIOK](), 5*time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFind(t *testing.T) {
	acc := []engine.Response{
		engine.Info{Raw: "info depth 1"},
		engine.BestMove{Move: "e2e4"},
		engine.BestMove{Move: "d2d4"},
	}

	bm, ok := engine.Find[engine.BestMove](acc)
	require.True(t, ok)
	assert.Equal(t, "e2e4", bm.Move)

	_, ok = engine.Find[engine.ReadyOK](acc)
	assert.False(t, ok)
	assert.True(t, engine.Has[engine.Info]()(acc))
	assert.False(t, engine.Has[engine.UCIOK]()(acc))
}
