package engine

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// quitGrace bounds both the quit write and the wait for a voluntary exit
	quitGrace = 100 * time.Millisecond

	maxLineSize   = 1024 * 1024
	outputBacklog = 256
)

// Process owns a spawned engine and both of its pipes.
type Process struct {
	cmd     *exec.Cmd
	path    string
	log     *slog.Logger
	stdin   io.WriteCloser
	logFile *os.File

	sender   *Sender
	receiver *Receiver

	stop   chan struct{} // closed by Quit, releases the pipe goroutines
	exited chan struct{} // closed when stdout is exhausted

	busy     atomic.Bool
	desync   atomic.Bool
	quitOnce sync.Once
}

// Sender is the write half of a process. Commands handed to it are
// written and flushed one at a time, in order.
type Sender struct {
	mailbox chan Command
	stop    <-chan struct{}
	log     *slog.Logger
}

// Receiver is the read half of a process, yielding raw output lines.
type Receiver struct {
	lines  <-chan string
	exited <-chan struct{}
	log    *slog.Logger
}

type openConfig struct {
	stderrLog bool
	logger    *slog.Logger
}

// OpenOption configures Open.
type OpenOption func(*openConfig)

// WithStderrLog redirects the engine's stderr to <cwd>/<executable>.log
// instead of discarding it.
func WithStderrLog(enabled bool) OpenOption {
	return func(c *openConfig) { c.stderrLog = enabled }
}

func WithLogger(log *slog.Logger) OpenOption {
	return func(c *openConfig) { c.logger = log }
}

// Open spawns the engine at path with piped stdin and stdout.
func Open(path string, args []string, opts ...OpenOption) (*Process, error) {
	cfg := openConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	cmd := exec.Command(path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &PipeError{Pipe: "stdin", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &PipeError{Pipe: "stdout", Err: err}
	}

	var logFile *os.File
	if cfg.stderrLog {
		logFile, err = createStderrLog(path)
		if err != nil {
			return nil, &PipeError{Pipe: "stderr log", Err: err}
		}
		cmd.Stderr = logFile
	}

	if err = cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, &SpawnError{Path: path, Err: err}
	}

	log := cfg.logger.With("component", "engine", "engine", filepath.Base(path), "pid", cmd.Process.Pid)

	lines := make(chan string, outputBacklog)
	p := &Process{
		cmd:     cmd,
		path:    path,
		log:     log,
		stdin:   stdin,
		logFile: logFile,
		stop:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	p.sender = &Sender{mailbox: make(chan Command), stop: p.stop, log: log}
	p.receiver = &Receiver{lines: lines, exited: p.exited, log: log}

	go p.writeLoop(stdin)
	go p.readLoop(stdout, lines)

	log.Info("Engine started", "path", path, "args", args)
	return p, nil
}

func createStderrLog(path string) (*os.File, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(cwd, filepath.Base(path)+".log"))
}

// Split returns the write and read halves. They are created once per
// process; callers must not drive them from two goroutines at a time.
func (p *Process) Split() (*Sender, *Receiver) {
	return p.sender, p.receiver
}

func (p *Process) Path() string {
	return p.path
}

func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Exited is closed once the engine's output stream has ended.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// writeLoop serializes commands onto stdin. After a write failure it keeps
// draining the mailbox so senders never block on a dead engine.
func (p *Process) writeLoop(w io.Writer) {
	bw := bufio.NewWriter(w)
	broken := false
	for {
		select {
		case cmd := <-p.sender.mailbox:
			if broken {
				continue
			}
			if err := Encode(bw, cmd); err != nil {
				p.log.Debug("Engine input closed", "command", cmd.String(), "error", err)
				broken = true
			}
		case <-p.stop:
			return
		}
	}
}

func (p *Process) readLoop(r io.Reader, out chan<- string) {
	defer close(p.exited)
	defer close(out)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		select {
		case out <- sc.Text():
		case <-p.stop:
			return
		}
	}
	if err := sc.Err(); err != nil {
		p.log.Debug("Engine output read failed", "error", err)
	}
}

// Send hands cmd to the writer, giving up after timeout. It reports
// whether the command was accepted.
func (s *Sender) Send(cmd Command, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.mailbox <- cmd:
		s.log.Debug("send", "line", cmd.String())
		return true
	case <-s.stop:
		return false
	case <-timer.C:
		return false
	}
}

// Receive waits up to timeout for the next message. ok is false on timeout
// or when the engine's output has ended.
func (r *Receiver) Receive(timeout time.Duration) (resp Response, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line, open := <-r.lines:
		if !open {
			return nil, false
		}
		return r.decode(line), true
	case <-timer.C:
		return nil, false
	}
}

// Done is closed once the engine's output stream has ended.
func (r *Receiver) Done() <-chan struct{} {
	return r.exited
}

// Drain decodes and returns already buffered output without waiting.
func (r *Receiver) Drain() []Response {
	var out []Response
	for {
		select {
		case line, open := <-r.lines:
			if !open {
				return out
			}
			out = append(out, r.decode(line))
		default:
			return out
		}
	}
}

func (r *Receiver) decode(line string) Response {
	resp := Parse(line)
	if _, unknown := resp.(Unrecognized); unknown {
		r.log.Debug("recv unrecognized", "line", line)
	} else {
		r.log.Debug("recv", "line", line)
	}
	return resp
}

// Quit shuts the engine down: a quit command with a short grace period,
// then stdin close, kill and reap. It is safe to call repeatedly and on an
// engine that already exited.
func (p *Process) Quit() {
	p.quitOnce.Do(func() {
		if p.sender.Send(Quit{}, quitGrace) {
			select {
			case <-p.exited:
			case <-time.After(quitGrace):
			}
		}

		close(p.stop)
		_ = p.stdin.Close() // Best-effort: pipe may already be closed.

		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.log.Warn("Engine kill failed", "error", err)
		}
		// Exit status is uninteresting after a kill; Wait only reaps.
		_ = p.cmd.Wait()

		if p.logFile != nil {
			p.logFile.Close()
		}
		p.log.Info("Engine stopped")
	})
}

// Close implements io.Closer. It never fails.
func (p *Process) Close() error {
	p.Quit()
	return nil
}
