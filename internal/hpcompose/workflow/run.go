package workflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/executor"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/validation"
	"github.com/ehsaniara/hpcompose/pkg/errors"

	"golang.org/x/sync/errgroup"
)

// RunLocal runs every application of rec on the current allocation. An
// application starts once all its dependencies finished; the first failure
// cancels everything still running. workflow.done is written on success.
// The record's dependency graph is checked again first, since workflow.json
// may have been edited after Create.
func (c *Composer) RunLocal(ctx context.Context, rec *Record) error {
	log := c.logger.WithMode("run").WithFields("workflow", rec.Name, "runID", rec.RunID)

	apps := make([]*app.Application, 0, len(rec.Applications))
	for _, ar := range rec.Applications {
		if ar == nil || ar.Application == nil {
			return errors.WrapWorkflowError(rec.Name, "run", fmt.Errorf("%w: empty application record", errors.ErrInvalidApplication))
		}
		apps = append(apps, ar.Application)
	}
	if err := validation.NewWorkflowValidator().ValidateWorkflow(apps); err != nil {
		return errors.WrapWorkflowError(rec.Name, "run", err)
	}

	finished := make(map[string]chan struct{}, len(rec.Applications))
	for _, ar := range rec.Applications {
		finished[ar.Name] = make(chan struct{})
	}
	stdout := &lockedWriter{w: c.stdout}
	stderr := &lockedWriter{w: c.stderr}

	g, ctx := errgroup.WithContext(ctx)
	for _, ar := range rec.Applications {
		ar := ar
		g.Go(func() error {
			for _, dep := range ar.DependsOn {
				ch, ok := finished[dep]
				if !ok {
					return errors.NewValidationError(ar.Name, fmt.Errorf("%w: %s", errors.ErrUnknownDependency, dep))
				}
				select {
				case <-ch:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			start := time.Now()
			log.Info("starting application", "application", ar.Name, "command", executor.Command{Args: ar.Command}.String())
			if err := c.runApplication(ctx, ar, stdout, stderr); err != nil {
				log.Error("application failed", "application", ar.Name, "exitCode", executor.ExitCode(err), "error", err)
				return errors.WrapWorkflowError(rec.Name, "run", fmt.Errorf("%w: %s: %v", errors.ErrApplicationFailed, ar.Name, err))
			}
			log.Info("application finished", "application", ar.Name, "duration", time.Since(start).Round(time.Millisecond).String())
			close(finished[ar.Name])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	done := rec.Path(DoneFile)
	if err := os.WriteFile(done, nil, 0o644); err != nil {
		return errors.NewFilesystemError(done, "write", err)
	}
	log.Info("workflow finished", "directory", rec.Directory)
	return nil
}

func (c *Composer) runApplication(ctx context.Context, ar *AppRecord, stdout, stderr io.Writer) error {
	cmd := executor.Command{
		Args: applicationArgs(ar),
		Dir:  ar.Directory,
		Env:  environment(ar.Environment),
	}
	if ar.LogFile != "" {
		path := ar.LogFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(ar.Directory, path)
		}
		f, err := os.Create(path)
		if err != nil {
			return errors.NewFilesystemError(path, "create", err)
		}
		defer f.Close()
		cmd.Stdout, cmd.Stderr = f, f
	} else {
		cmd.Stdout, cmd.Stderr = stdout, stderr
	}
	return c.runner.Run(ctx, cmd)
}

// applicationArgs runs the generated script when there is one, the bare
// command line otherwise.
func applicationArgs(ar *AppRecord) []string {
	if ar.Script != "" {
		return []string{"/bin/sh", filepath.Join(ar.Directory, ar.Script)}
	}
	return ar.Command
}

func environment(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	vars := make([]string, 0, len(env))
	for k, v := range env {
		vars = append(vars, k+"="+v)
	}
	sort.Strings(vars)
	return vars
}

// lockedWriter serializes writes from concurrently running applications.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
