package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/internal/engine"
)

func declaredOptions(t *testing.T) *engine.Options {
	t.Helper()
	d := engine.ExtractDetails([]engine.Response{
		engine.Parse("option name Hash type spin default 16 min 1 max 1024"),
		engine.Parse("option name Ponder type check default false"),
		engine.Parse("option name Style type combo default Normal var Solid var Normal var Risky"),
		engine.Parse("option name Debug Log File type string default <empty>"),
		engine.Parse("option name Clear Hash type button"),
		engine.Parse("option name Threads type spin default 1 min 1 max 512"),
	})
	return d.Options
}

func TestRenderEngine(t *testing.T) {
	opts := declaredOptions(t)
	require.NoError(t, opts.Set("Threads", int64(4)))
	require.NoError(t, opts.Set("Style", "Risky"))

	meta := EngineMetadata{
		Name:    "Deep Thought",
		Author:  "D. Adams",
		Command: []string{"/usr/bin/deep-thought", "--uci"},
	}
	out, err := RenderEngine(meta, opts)
	require.NoError(t, err)

	assert.Contains(t, out, "[engine]\n")
	assert.Contains(t, out, "\n[options]\n")
	assert.Contains(t, out, "# Hash = 16 # between 1 and 1024, default 16\n")
	assert.Contains(t, out, "# Ponder = false # true or false, default false\n")
	assert.Contains(t, out, `Style = 'Risky' # default 'Normal', can be one of 'Solid', 'Normal', 'Risky'`)
	assert.Contains(t, out, `# 'Debug Log File' = ''`)
	assert.Contains(t, out, "Threads = 4 # between 1 and 512, default 1\n")
	assert.NotContains(t, out, "Clear Hash")

	assert.Less(t, strings.Index(out, "Hash"), strings.Index(out, "Threads"), "declaration order is kept")

	// The rendered file loads back with only the explicit values set.
	path := filepath.Join(t.TempDir(), "deep-thought.toml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))
	p, err := LoadEngine(path)
	require.NoError(t, err)

	assert.Equal(t, meta, p.Engine)
	if diff := cmp.Diff(map[string]any{"Threads": int64(4), "Style": "Risky"}, p.Options); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderStringValue(t *testing.T) {
	opts := engine.NewOptions()
	opts.Put("Book", &engine.StringOption{Default: "book.bin"})
	require.NoError(t, opts.Set("Book", `C:\books\"main".bin`))

	out, err := RenderEngine(EngineMetadata{Name: "x", Command: []string{"x"}}, opts)
	require.NoError(t, err)
	assert.Contains(t, out, "Book = 'C:\\books\\\"main\".bin'\n# ^^^^ default 'book.bin'\n")

	path := filepath.Join(t.TempDir(), "x.toml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))
	p, err := LoadEngine(path)
	require.NoError(t, err)
	assert.Equal(t, `C:\books\"main".bin`, p.Options["Book"])
}

func TestRenderEngineRequiresCommand(t *testing.T) {
	_, err := RenderEngine(EngineMetadata{Name: "x"}, engine.NewOptions())
	assert.Error(t, err)
}

func TestLoadEngineValidation(t *testing.T) {
	tests := map[string]string{
		"missing name":    "[engine]\ncommand = [\"sf\"]\n",
		"missing command": "[engine]\nname = \"sf\"\n",
		"empty command":   "[engine]\nname = \"sf\"\ncommand = [\"\"]\n",
		"malformed":       "[engine\nname = ",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := LoadEngine(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadDetectsKind(t *testing.T) {
	dir := t.TempDir()

	enginePath := filepath.Join(dir, "sf.toml")
	require.NoError(t, os.WriteFile(enginePath, []byte(`
[engine]
name = "Stockfish 17"
author = "the Stockfish developers"
command = ["stockfish"]
log = true
`), 0o644))

	playerPath := filepath.Join(dir, "arthur.toml")
	require.NoError(t, os.WriteFile(playerPath, []byte(`
[human]
name = "Arthur Dent"
title = ""
elo = 1200
`), 0o644))

	p, err := Load(enginePath)
	require.NoError(t, err)
	require.NotNil(t, p.Engine)
	assert.Nil(t, p.Player)
	assert.True(t, p.Engine.Engine.Log)
	assert.Equal(t, "stockfish", p.Engine.Engine.Path())
	assert.Empty(t, p.Engine.Engine.Args())
	assert.NotNil(t, p.Engine.Options)

	p, err = Load(playerPath)
	require.NoError(t, err)
	require.NotNil(t, p.Player)
	assert.Equal(t, PlayerMetadata{Name: "Arthur Dent", Elo: 1200}, p.Player.Human)

	neither := filepath.Join(dir, "other.toml")
	require.NoError(t, os.WriteFile(neither, []byte("x = 1\n"), 0o644))
	_, err = Load(neither)
	assert.Error(t, err)
}

func TestRenderPlayer(t *testing.T) {
	out, err := RenderPlayer(PlayerProfile{Human: PlayerMetadata{Name: "Ford Prefect", Title: "IM", Elo: 2405}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ford.toml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))
	p, err := LoadPlayer(path)
	require.NoError(t, err)
	assert.Equal(t, "IM", p.Human.Title)
	assert.Equal(t, 2405, p.Human.Elo)

	_, err = RenderPlayer(PlayerProfile{Human: PlayerMetadata{Name: "Zaphod", Title: "President"}})
	assert.Error(t, err)
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "GM", NormalizeTitle(" gm "))
	assert.Equal(t, "CM", NormalizeTitle("CM"))
	assert.Equal(t, "", NormalizeTitle("WGM"))
	assert.Equal(t, "", NormalizeTitle(""))
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, "deep-thought-ii.toml", FileName("Deep Thought II"))

	path, err := Create(dir, "Deep Thought II", "[human]\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "deep-thought-ii.toml"), path)

	_, err = Create(dir, "deep thought ii", "overwritten")
	require.ErrorIs(t, err, ErrProfileExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[human]\n", string(data), "existing profiles are never overwritten")
}

func TestRenderRoundTripsAwkwardText(t *testing.T) {
	opts := engine.NewOptions()
	opts.Put("Bob's Book", &engine.StringOption{Default: "it's\nhere"})
	opts.Put("Style", &engine.ComboOption{Default: "a'b", Vars: []string{"a'b", "c"}})
	require.NoError(t, opts.Set("Bob's Book", "line one\nline 'two'"))
	require.NoError(t, opts.Set("Style", "c"))

	out, err := RenderEngine(EngineMetadata{Name: "x", Command: []string{"x"}}, opts)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "x.toml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))
	p, err := LoadEngine(path)
	require.NoError(t, err, out)
	assert.Equal(t, map[string]any{"Bob's Book": "line one\nline 'two'", "Style": "c"}, p.Options)
}
