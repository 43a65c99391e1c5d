package workflow

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/backup"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/batch"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/executor"
	"github.com/ehsaniara/hpcompose/pkg/errors"

	"github.com/avast/retry-go"
	"github.com/google/renameio"
	"github.com/kballard/go-shellquote"
)

// Submit hands a created run to its batch scheduler and returns the job ID.
// Runs without a scheduler are run in place and return an empty ID.
func (c *Composer) Submit(ctx context.Context, rec *Record) (string, error) {
	log := c.logger.WithMode("submit").WithFields("workflow", rec.Name, "runID", rec.RunID)

	done := rec.Path(DoneFile)
	if err := os.Remove(done); err != nil && !os.IsNotExist(err) {
		return "", errors.NewFilesystemError(done, "remove", err)
	}
	if err := c.writeBackup(rec); err != nil {
		return "", err
	}

	s, ok, err := c.schedulerFor(rec)
	if err != nil {
		return "", err
	}
	if !ok {
		log.Info("no batch scheduler, running in place")
		return "", c.RunLocal(ctx, rec)
	}

	script, err := c.writeSubmitScript(rec, s)
	if err != nil {
		return "", err
	}
	args, err := s.SubmitCommand(rec.Job, script)
	if err != nil {
		return "", err
	}
	cmd := executor.Command{Args: args, Dir: rec.Directory}

	var (
		jobID     string
		submitted bool
	)
	err = retry.Do(
		func() error {
			out, err := c.runner.Output(ctx, cmd)
			if err != nil {
				return errors.WrapSchedulerError(s.Name, "submit", fmt.Errorf("%w: %v", errors.ErrSubmitFailed, err))
			}
			submitted = true
			jobID, err = s.ParseJobID(string(out))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.retries),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		// a submitted job whose ID cannot be read must not be submitted twice
		retry.RetryIf(func(err error) bool { return !submitted && errors.ShouldRetry(err) }),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("submission failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", err
	}

	rec.JobID = jobID
	if err := rec.Save(); err != nil {
		return jobID, err
	}
	log.Info("workflow submitted", "scheduler", s.Name, "jobID", jobID, "command", cmd.String())
	return jobID, nil
}

// schedulerFor picks the scheduler for rec; ok is false for in-place runs.
func (c *Composer) schedulerFor(rec *Record) (batch.Scheduler, bool, error) {
	switch {
	case c.local:
		return batch.Scheduler{}, false, nil
	case c.scheduler != nil:
		return *c.scheduler, true, nil
	case rec.Scheduler == "":
		return batch.Scheduler{}, false, nil
	}
	if s, ok, err := batch.ForMachine(rec.Machine); err == nil && ok && s.Name == rec.Scheduler {
		return s, true, nil
	}
	s, err := batch.Lookup(rec.Scheduler)
	if err != nil {
		return batch.Scheduler{}, false, err
	}
	return s, true, nil
}

// writeSubmitScript writes workflow.sh: the job's directives followed by a
// call back into hpcompose that runs the workflow on the allocation.
func (c *Composer) writeSubmitScript(rec *Record, s batch.Scheduler) (string, error) {
	header, err := s.Header(rec.Job)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	for _, line := range header {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "exec %s\n", shellquote.Join(c.submitCommand, "submit", "--local", rec.Directory))

	path := rec.Path(SubmitScript)
	if err := renameio.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		return "", errors.NewFilesystemError(path, "write", err)
	}
	return path, nil
}

// writeBackup writes backup.json when the run has backup destinations.
func (c *Composer) writeBackup(rec *Record) error {
	if len(rec.Backup) == 0 {
		return nil
	}
	source, err := backup.SourceEndpoint(c.sourceEndpointFile)
	if err != nil {
		return err
	}
	m := backup.NewManifest(rec.Path(DoneFile), source)
	m.RecursiveSymlinks = c.recursiveSymlinks
	for name, d := range rec.Backup {
		m.Set(name, d)
	}
	if err := m.Write(rec.Path(backup.FileName)); err != nil {
		return err
	}
	c.logger.Info("backup manifest written", "workflow", rec.Name, "destinations", strings.Join(m.Names(), ","))
	return nil
}
