package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/internal/enginetest"
	"arena/internal/profile"
)

// run executes the command line in an isolated directory and returns its
// output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	require.NoError(t, a.close())
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	return dir
}

func TestNewPlayer(t *testing.T) {
	dir := isolate(t)

	out, err := run(t, "new", "player", "--name", "Ada Lovelace", "--title", "gm", "--elo", "2500", "--dir", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "ada-lovelace.toml")

	p, err := profile.LoadPlayer(filepath.Join(dir, "ada-lovelace.toml"))
	require.NoError(t, err)
	assert.Equal(t, profile.PlayerMetadata{Name: "Ada Lovelace", Title: "GM", Elo: 2500}, p.Human)

	_, err = run(t, "new", "player", "--name", "Ada Lovelace", "--dir", dir)
	assert.ErrorIs(t, err, profile.ErrProfileExists)
}

func TestNewBot(t *testing.T) {
	dir := isolate(t)
	mock := enginetest.Mock{}.Path(t)

	out, err := run(t, "new", "bot", mock, "--dir", dir, "--wait", "1s")
	require.NoError(t, err, out)
	assert.Contains(t, out, "with 5 options")

	p, err := profile.LoadEngine(filepath.Join(dir, "deep-thought.toml"))
	require.NoError(t, err)
	assert.Equal(t, "Deep Thought", p.Engine.Name)
	assert.Equal(t, "D. Adams", p.Engine.Author)
	assert.Equal(t, []string{mock}, p.Engine.Command)
	assert.Empty(t, p.Options, "options are written commented out")
}

func writeProfile(t *testing.T, dir, name string) string {
	t.Helper()
	mock := enginetest.Mock{}.Path(t)
	path := filepath.Join(dir, name+".toml")
	content := fmt.Sprintf("[engine]\nname = \"Deep Thought\"\nauthor = \"D. Adams\"\ncommand = [%q]\n", mock)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFaceoffAndQuery(t *testing.T) {
	dir := isolate(t)
	white := writeProfile(t, dir, "white")
	black := writeProfile(t, dir, "black")
	db := filepath.Join(dir, "arena.db")

	out, err := run(t, "faceoff", "-w", white, "-b", black, "--time", "300ms", "--max-plies", "2", "--storage-path", db)
	require.NoError(t, err, out)
	assert.Contains(t, out, "1/2-1/2")
	assert.Contains(t, out, "e2e4")

	out, err = run(t, "db", "query", "--path", db, "--moves")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Found 1 match(es)")
	assert.Contains(t, out, "Deep Thought")
	assert.Contains(t, out, "Ply")

	out, err = run(t, "db", "query", "--path", db, "--player", "Marvin")
	require.NoError(t, err)
	assert.Contains(t, out, "No matches found")
}

func TestFaceoffQuiet(t *testing.T) {
	dir := isolate(t)
	white := writeProfile(t, dir, "white")
	black := writeProfile(t, dir, "black")

	out, err := run(t, "faceoff", "-w", white, "-b", black, "-t", "300ms", "--max-plies", "1", "-q")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1/2-1/2")
	assert.NotContains(t, out, "vs", "quiet output has no header")
}

func TestFaceoffRequiresProfiles(t *testing.T) {
	isolate(t)
	_, err := run(t, "faceoff", "-w", "white.toml")
	assert.Error(t, err)
}

func TestDBCommands(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "arena.db")

	_, err := run(t, "db", "init")
	assert.ErrorContains(t, err, "database path required")

	out, err := run(t, "db", "init", "--path", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Database initialized")
	assert.FileExists(t, db)

	_, err = run(t, "db", "rm", "7d444840-9dc0-11d1-b245-5ffdce74fad2", "--path", db)
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, "db", "delete", "--path", db)
	require.NoError(t, err)
	assert.NoFileExists(t, db)
}

func TestConfigFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("ARENA_LOG_LEVEL", "loud")

	_, err := run(t, "db", "init", "--path", "x.db")
	assert.ErrorContains(t, err, "invalid config")
}

func TestPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.pid")

	release, err := pidFile(path, true)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d\n", os.Getpid()), string(data))

	_, err = pidFile(path, true)
	assert.Error(t, err, "a live pid blocks a second locked server")

	release()
	assert.NoFileExists(t, path)
}

func TestPIDFileStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.pid")
	require.NoError(t, os.WriteFile(path, []byte("not a pid\n"), 0o644))

	_, err := pidFile(path, true)
	assert.ErrorContains(t, err, "corrupted PID file")
}

func TestLogFileClosedAfterFailure(t *testing.T) {
	dir := isolate(t)
	logPath := filepath.Join(dir, "logs", "arena.log")

	root, a := newRootCmd()
	root.SetArgs([]string{"--log-file", logPath, "faceoff", "-w", "missing.toml", "-b", "missing.toml"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	require.Error(t, root.Execute())

	f, ok := a.logCloser.(*os.File)
	require.True(t, ok, "setup opened the log file")
	require.NoError(t, a.close())
	assert.Nil(t, a.logCloser)
	assert.ErrorIs(t, f.Close(), os.ErrClosed)
	assert.FileExists(t, logPath)
}
