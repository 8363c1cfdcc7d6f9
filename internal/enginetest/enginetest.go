// Package enginetest builds a scriptable mock UCI engine for tests of the
// packages that drive engine processes.
package enginetest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

var (
	buildOnce  sync.Once
	binaryPath string
	errBuild   error
)

func build() {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		errBuild = fmt.Errorf("cannot locate enginetest sources")
		return
	}
	src := filepath.Join(filepath.Dir(file), "testdata", "mock-uci", "main.go")

	dir, err := os.MkdirTemp("", "mock-uci-*")
	if err != nil {
		errBuild = fmt.Errorf("tmpdir: %w", err)
		return
	}
	binaryPath = filepath.Join(dir, "mock-uci")
	cmd := exec.Command("go", "build", "-o", binaryPath, src)
	if out, err := cmd.CombinedOutput(); err != nil {
		errBuild = fmt.Errorf("build mock: %w: %s", err, out)
		os.RemoveAll(dir)
	}
}

// Mock describes how the mock engine behaves.
type Mock struct {
	Mode   string
	Name   string
	Author string
	Delay  time.Duration
	Moves  []string
	// Illegal is the move the board printout refuses to play
	Illegal string
	// Checkers is reported by the board printout
	Checkers string
	// Transcript, when set, receives every command the engine reads.
	Transcript string
}

func (m Mock) env() map[string]string {
	env := map[string]string{}
	if m.Mode != "" {
		env["MOCK_UCI_MODE"] = m.Mode
	}
	if m.Name != "" {
		env["MOCK_UCI_NAME"] = m.Name
	}
	if m.Author != "" {
		env["MOCK_UCI_AUTHOR"] = m.Author
	}
	if m.Delay > 0 {
		env["MOCK_UCI_DELAY"] = fmt.Sprint(m.Delay.Milliseconds())
	}
	if len(m.Moves) > 0 {
		env["MOCK_UCI_MOVES"] = strings.Join(m.Moves, " ")
	}
	if m.Illegal != "" {
		env["MOCK_UCI_ILLEGAL"] = m.Illegal
	}
	if m.Checkers != "" {
		env["MOCK_UCI_CHECKERS"] = m.Checkers
	}
	if m.Transcript != "" {
		env["MOCK_UCI_TRANSCRIPT"] = m.Transcript
	}
	return env
}

// Path returns an executable that runs the mock engine configured as m.
func (m Mock) Path(t testing.TB) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("mock engine wrapper requires a POSIX shell")
	}
	buildOnce.Do(build)
	if errBuild != nil {
		t.Fatalf("mock engine build failed: %v", errBuild)
	}

	env := m.env()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "export %s='%s'\n", k, env[k])
	}
	fmt.Fprintf(&sb, "exec %s \"$@\"\n", binaryPath)

	wrapper := filepath.Join(t.TempDir(), "mock-uci")
	if err := os.WriteFile(wrapper, []byte(sb.String()), 0o755); err != nil {
		t.Fatalf("write wrapper: %v", err)
	}
	return wrapper
}

// Transcript returns the commands recorded at path, one per line.
func Transcript(t testing.TB, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}
