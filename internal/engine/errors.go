package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when an exchange is started while another one is
	// still outstanding on the same process.
	ErrBusy = errors.New("engine busy: another exchange is in progress")

	// ErrNotReady is returned when an engine does not acknowledge isready
	// within its budget.
	ErrNotReady = errors.New("engine did not report readyok")

	// ErrNoBoard is returned when an engine does not print the board on
	// request.
	ErrNoBoard = errors.New("engine did not describe the board")
)

// SpawnError indicates the engine executable could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start engine %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// PipeError indicates a pipe endpoint (or the stderr log file) was not
// available after spawning.
type PipeError struct {
	Pipe string
	Err  error
}

func (e *PipeError) Error() string {
	return fmt.Sprintf("engine %s unavailable: %v", e.Pipe, e.Err)
}

func (e *PipeError) Unwrap() error {
	return e.Err
}
