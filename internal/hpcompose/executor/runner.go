// Package executor runs external commands: launchers, batch submit
// commands and applications on the login node.
package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/ehsaniara/hpcompose/pkg/errors"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Command is one process to run. Args[0] is the program.
type Command struct {
	Args   []string
	Dir    string
	Env    []string // appended to the current environment
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs.
func (c Command) String() string {
	return fmt.Sprintf("%q", c.Args)
}

// CommandRunner starts commands and resolves executables.
//
//counterfeiter:generate . CommandRunner
type CommandRunner interface {
	// Run runs cmd to completion. Canceling ctx terminates the process
	// group the command runs in.
	Run(ctx context.Context, cmd Command) error
	// Output runs cmd and returns what it wrote to stdout.
	Output(ctx context.Context, cmd Command) ([]byte, error)
	LookPath(file string) (string, error)
}

// gracePeriod is how long a canceled process group has between SIGTERM and
// SIGKILL.
const gracePeriod = 10 * time.Second

// ExecRunner is the CommandRunner backed by os/exec.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	c, err := r.command(ctx, cmd)
	if err != nil {
		return err
	}
	return c.Run()
}

func (r *ExecRunner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	c, err := r.command(ctx, cmd)
	if err != nil {
		return nil, err
	}
	c.Stdout = nil
	return c.Output()
}

func (r *ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (r *ExecRunner) command(ctx context.Context, cmd Command) (*exec.Cmd, error) {
	if len(cmd.Args) == 0 {
		return nil, errors.New("empty command")
	}

	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr

	// launchers fork ranks; signal the whole group
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = gracePeriod
	return c, nil
}

// ExitCode returns the exit status carried by err, or -1.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
