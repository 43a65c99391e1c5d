package workflow

import (
	"io"
	"os"
	"time"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/batch"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/executor"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/launcher"
	"github.com/ehsaniara/hpcompose/pkg/logger"
)

// Composer creates, submits and runs workflows.
type Composer struct {
	logger *logger.Logger
	runner executor.CommandRunner

	// nil means detect from the machine
	launcher *launcher.Profile
	// nil means the machine's scheduler; local forces running in place
	scheduler *batch.Scheduler
	local     bool

	sourceEndpointFile string
	recursiveSymlinks  string
	retries            uint
	retryDelay         time.Duration
	submitCommand      string

	now    func() time.Time
	stdout io.Writer
	stderr io.Writer
}

// Option configures a Composer.
type Option func(*Composer)

// WithRunner replaces the os/exec runner.
func WithRunner(r executor.CommandRunner) Option {
	return func(c *Composer) { c.runner = r }
}

func WithLauncher(p launcher.Profile) Option {
	return func(c *Composer) { c.launcher = &p }
}

func WithScheduler(s batch.Scheduler) Option {
	return func(c *Composer) { c.scheduler = &s; c.local = false }
}

// WithoutScheduler runs workflows in place even on batch machines.
func WithoutScheduler() Option {
	return func(c *Composer) { c.scheduler = nil; c.local = true }
}

func WithSourceEndpointFile(path string) Option {
	return func(c *Composer) { c.sourceEndpointFile = path }
}

func WithRecursiveSymlinks(mode string) Option {
	return func(c *Composer) {
		if mode != "" {
			c.recursiveSymlinks = mode
		}
	}
}

// WithSubmitRetry sets how often a failed submission is attempted and the
// pause between attempts.
func WithSubmitRetry(attempts uint, delay time.Duration) Option {
	return func(c *Composer) {
		if attempts > 0 {
			c.retries = attempts
		}
		c.retryDelay = delay
	}
}

// WithSubmitCommand sets the program workflow.sh calls back into.
func WithSubmitCommand(path string) Option {
	return func(c *Composer) { c.submitCommand = path }
}

func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

// WithOutput sets where applications without a log file write.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(c *Composer) { c.stdout, c.stderr = stdout, stderr }
}

func NewComposer(opts ...Option) *Composer {
	c := &Composer{
		logger:            logger.WithField("component", "workflow-composer"),
		runner:            executor.NewExecRunner(),
		recursiveSymlinks: "ignore",
		retries:           3,
		retryDelay:        2 * time.Second,
		submitCommand:     "hpcompose",
		now:               time.Now,
		stdout:            os.Stdout,
		stderr:            os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
