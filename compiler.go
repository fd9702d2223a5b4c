package crosspack

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/n0rad/go-erlog/data"
	"github.com/n0rad/go-erlog/errs"
	"github.com/n0rad/go-erlog/logs"
	"golang.org/x/sys/execabs"
)

// Invocation describes one compiler run producing the executable of a target.
type Invocation struct {
	Target    Target
	SourceDir string
	Package   string
	Output    string
	LdFlags   []string
	Tags      []string
}

// Env is added to the compiler environment only, the process environment is
// left untouched.
func (i Invocation) Env() []string {
	return []string{
		"CGO_ENABLED=0",
		"GOOS=" + i.Target.OS,
		"GOARCH=" + i.Target.Arch,
	}
}

func (i Invocation) Args() []string {
	args := []string{"build", "-o", i.Output, "-trimpath"}
	if len(i.LdFlags) > 0 {
		args = append(args, "-ldflags", strings.Join(i.LdFlags, " "))
	}
	if len(i.Tags) > 0 {
		args = append(args, "-tags", strings.Join(i.Tags, ","))
	}
	pkg := i.Package
	if pkg == "" {
		pkg = "./"
	}
	return append(args, pkg)
}

type Compiler interface {
	Compile(ctx context.Context, inv Invocation) error
}

// GoCompiler runs `go build` as a subprocess and waits for it.
// There is no timeout, a hung compiler blocks until ctx is cancelled.
type GoCompiler struct {
	Command string
	Stdout  io.Writer
	Stderr  io.Writer
}

func (c GoCompiler) Compile(ctx context.Context, inv Invocation) error {
	dir := filepath.Dir(inv.Output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fsError("mkdir", dir, err)
	}

	command := c.Command
	if command == "" {
		command = "go"
	}
	args := inv.Args()
	commandDebug := command + " " + strings.Join(args, " ")
	if logs.IsDebugEnabled() {
		logs.WithField("command", commandDebug).WithField("target", inv.Target.String()).Debug("Running compiler")
	}

	cmd := execabs.CommandContext(ctx, command, args...)
	cmd.Dir = inv.SourceDir
	cmd.Env = append(os.Environ(), inv.Env()...)
	cmd.Stdout = c.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = c.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return errs.WithEF(err, data.WithField("command", commandDebug), "Failed to start compiler")
	}
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ErrInterrupted
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ToolchainError{Target: inv.Target, ExitCode: exitErr.ExitCode(), Err: err}
		}
		return errs.WithEF(err, data.WithField("command", commandDebug), "Compiler did not complete")
	}
	return nil
}
