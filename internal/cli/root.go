// Package cli implements the hpcompose command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/batch"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/launcher"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/workflow"
	"github.com/ehsaniara/hpcompose/pkg/config"
	"github.com/ehsaniara/hpcompose/pkg/errors"
	"github.com/ehsaniara/hpcompose/pkg/logger"

	"github.com/spf13/cobra"
)

// schedulerNone in the scheduler config runs workflows in place.
const schedulerNone = "none"

type options struct {
	configPath string
	logLevel   string
	jsonOutput bool

	cfg *config.Config
	// extra composer options, set by tests
	composerOpts []workflow.Option
}

// NewRootCmd builds the hpcompose command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{})
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hpcompose",
		Short: "Compose MPI applications into batch workflows",
		Long: `hpcompose places the applications of a workflow onto compute nodes,
derives the launcher arguments for each of them, and creates a run
directory that can be submitted to the machine's batch scheduler.

Quick Examples:
  hpcompose plan workflow.yaml            # Show node mapping and launch commands
  hpcompose create workflow.yaml          # Create the run directory
  hpcompose submit ./runs/campaign        # Submit a created run
  hpcompose submit --local ./runs/campaign # Run it on the current allocation
  hpcompose machines                      # List known machines`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Path to configuration file (searches common locations if not specified)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides the configuration)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false,
		"Output in JSON format")

	rootCmd.AddCommand(newPlanCmd(opts))
	rootCmd.AddCommand(newCreateCmd(opts))
	rootCmd.AddCommand(newSubmitCmd(opts))
	rootCmd.AddCommand(newMachinesCmd(opts))
	rootCmd.AddCommand(newVersionCmd(opts))
	return rootCmd
}

// Execute runs the command line and prints failures with their user
// message.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		if msg := errors.GetUserMessage(err); msg != "" && errors.GetCategory(err) != errors.CategoryUnknown {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", msg)
		}
	}
	return err
}

func (o *options) load(stderr io.Writer) error {
	cfg, path, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return errors.NewConfigError("logging", "level", err)
	}
	logger.Configure(logger.Config{Level: level, Format: cfg.Logging.Format, Output: stderr})
	logger.Debug("configuration loaded", "path", path)

	o.cfg = cfg
	return nil
}

// composer builds a workflow composer from the loaded configuration.
func (o *options) composer() (*workflow.Composer, error) {
	cfg := o.cfg
	composerOpts := []workflow.Option{
		workflow.WithSourceEndpointFile(cfg.Backup.SourceEndpointFile),
		workflow.WithRecursiveSymlinks(cfg.Backup.RecursiveSymlinks),
		workflow.WithSubmitRetry(cfg.Submit.Retries, cfg.Submit.RetryDelay),
	}
	if exe, err := os.Executable(); err == nil {
		composerOpts = append(composerOpts, workflow.WithSubmitCommand(exe))
	}

	if cfg.Launcher.Name != "" {
		profile, err := launcher.Lookup(cfg.Launcher.Name)
		if err != nil {
			return nil, errors.NewConfigError("launcher", "name", err)
		}
		composerOpts = append(composerOpts, workflow.WithLauncher(profile))
	}

	switch name := strings.ToLower(cfg.Scheduler.Name); name {
	case "":
	case schedulerNone:
		composerOpts = append(composerOpts, workflow.WithoutScheduler())
	default:
		s, err := batch.Lookup(name)
		if err != nil {
			return nil, errors.NewConfigError("scheduler", "name", err)
		}
		composerOpts = append(composerOpts, workflow.WithScheduler(s))
	}

	return workflow.NewComposer(append(composerOpts, o.composerOpts...)...), nil
}
