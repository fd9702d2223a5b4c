package crosspack

import (
	"errors"
	"fmt"
)

var ErrInterrupted = errors.New("interrupted")

// ToolchainError is returned when the compiler exits with a non-zero status.
type ToolchainError struct {
	Target   Target
	ExitCode int
	Err      error
}

func (e *ToolchainError) Error() string {
	return fmt.Sprintf("compiler failed for %s with exit code %d", e.Target, e.ExitCode)
}

func (e *ToolchainError) Unwrap() error {
	return e.Err
}

// FilesystemError wraps a failed directory, file or archive operation.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

func fsError(op string, path string, err error) error {
	return &FilesystemError{Op: op, Path: path, Err: err}
}
