package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/batch"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/launcher"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/placement"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/validation"
	"github.com/ehsaniara/hpcompose/pkg/errors"

	"github.com/google/renameio"
	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
)

// Plan validates the workflow and places its applications without touching
// the filesystem. The returned record has no directory and no run ID.
func (c *Composer) Plan(w *Workflow) (*Record, error) {
	if err := w.normalize(); err != nil {
		return nil, errors.WrapWorkflowError(w.Name, "plan", err)
	}
	log := c.logger.WithFields("workflow", w.Name, "machine", w.Machine.Name)

	if err := validation.NewWorkflowValidator().ValidateWorkflow(w.Applications); err != nil {
		return nil, err
	}
	node, err := w.Machine.Node()
	if err != nil {
		return nil, errors.WrapWorkflowError(w.Name, "plan", err)
	}
	if err := validation.ValidateAll(w.Applications, node); err != nil {
		return nil, err
	}
	plan, err := placement.NewPlanner().Plan(w.Applications, node)
	if err != nil {
		return nil, err
	}
	log.Debug("placement done", "nodes", len(plan.Nodes), "requiredNodes", plan.RequiredNodes())

	rec := &Record{
		Name:      w.Name,
		CreatedAt: c.now(),
		Machine:   w.Machine,
		SetupFile: w.SetupFile,
		Subdirs:   w.Subdirs,
		MPMD:      w.MPMD,
		Plan:      plan,
		Backup:    w.Backup,
	}

	profile, launch := c.resolveLauncher(w)
	if launch {
		rec.Launcher = profile.Name
	}
	for _, a := range w.Applications {
		var tokens []string
		if launch {
			asg, _ := plan.Assignment(a.Name)
			if tokens, err = launcher.Derive(a, asg, profile); err != nil {
				return nil, err
			}
		}
		rec.Applications = append(rec.Applications, &AppRecord{
			Application: a.Clone(),
			Command:     launcher.CommandLine(a, tokens),
		})
	}

	job := c.resolveJob(w, plan)
	rec.Job = job
	if s, ok := c.resolveScheduler(w); ok {
		rec.Scheduler = s.Name
		// surface missing directives before anything is written
		if _, err := s.Arguments(job); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (c *Composer) resolveLauncher(w *Workflow) (launcher.Profile, bool) {
	if c.launcher != nil {
		return *c.launcher, true
	}
	profile, err := launcher.Detect(w.Machine, c.runner.LookPath)
	if err != nil {
		c.logger.Warn("no launcher available, applications start directly", "machine", w.Machine.Name, "error", err)
		return launcher.Profile{}, false
	}
	return profile, true
}

// resolveScheduler returns the scheduler a run is submitted to; ok is false
// when it runs in place.
func (c *Composer) resolveScheduler(w *Workflow) (batch.Scheduler, bool) {
	if c.local {
		return batch.Scheduler{}, false
	}
	if c.scheduler != nil {
		return *c.scheduler, true
	}
	s, ok, err := batch.ForMachine(w.Machine)
	if err != nil {
		c.logger.Warn("unknown scheduler, running in place", "machine", w.Machine.Name, "error", err)
		return batch.Scheduler{}, false
	}
	return s, ok
}

func (c *Composer) resolveJob(w *Workflow, plan *placement.Plan) batch.Job {
	job := w.Job
	job.Workflow = w.Name
	job.DependsOn = append([]string(nil), w.Job.DependsOn...)

	constraint, rest := takeConstraint(w.Job.Directives)
	job.Directives = rest
	switch {
	case constraint != "":
		job.Constraint = constraint
	case job.Constraint == "":
		job.Constraint = w.Machine.Constraint
	}

	required := plan.RequiredNodes()
	switch {
	case job.Nodes == 0:
		job.Nodes = required
	case job.Nodes < required:
		c.logger.Warn("job requests fewer nodes than the plan needs", "workflow", w.Name, "nodes", job.Nodes, "required", required)
	}
	return job
}

// Create plans the workflow and materializes its run directory. The
// directory must not exist yet.
func (c *Composer) Create(w *Workflow) (*Record, error) {
	rec, err := c.Plan(w)
	if err != nil {
		return nil, err
	}
	log := c.logger.WithMode("create").WithField("workflow", w.Name)

	dir, err := w.Directory(rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if _, err := os.Lstat(dir); err == nil {
		return nil, errors.WrapWorkflowError(w.Name, "create", fmt.Errorf("%w: %s", errors.ErrDirectoryExists, dir))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewFilesystemError(dir, "mkdir", err)
	}
	rec.Directory = dir
	rec.Job.Directory = dir
	rec.RunID = uuid.NewString()

	if err := copyInputs(w.Inputs, dir); err != nil {
		return nil, err
	}
	if rec.SetupFile, err = copySetupFile(w.SetupFile, dir); err != nil {
		return nil, err
	}

	for _, ar := range rec.Applications {
		ar.Directory = w.appDirectory(dir, ar.Application)
		if err := os.MkdirAll(ar.Directory, 0o755); err != nil {
			return nil, errors.NewFilesystemError(ar.Directory, "mkdir", err)
		}
		if err := copyInputs(ar.Inputs, ar.Directory); err != nil {
			return nil, err
		}
		if ar.SetupFile, err = copySetupFile(ar.SetupFile, ar.Directory); err != nil {
			return nil, err
		}
		if err := writeScript(rec, ar); err != nil {
			return nil, err
		}
		if ar.IsLoginNode() {
			if err := writeNodeInfo(rec, ar); err != nil {
				return nil, err
			}
		}
		log.Debug("application materialized", "application", ar.Name, "directory", ar.Directory, "command", strings.Join(ar.Command, " "))
	}

	if err := rec.Save(); err != nil {
		return nil, err
	}
	log.Info("workflow created", "directory", dir, "runID", rec.RunID, "applications", len(rec.Applications))
	return rec, nil
}

// copySetupFile copies path into dir and returns the name it is sourced by.
func copySetupFile(path, dir string) (string, error) {
	if path == "" {
		return "", nil
	}
	base := filepath.Base(path)
	if err := copyFile(path, filepath.Join(dir, base)); err != nil {
		return "", err
	}
	return base, nil
}

// writeScript writes <name>.sh, which sources the setup files and execs the
// application's command line.
func writeScript(rec *Record, ar *AppRecord) error {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	if rec.SetupFile != "" {
		fmt.Fprintf(&b, ". %s\n", shellquote.Join(rec.Path(rec.SetupFile)))
	}
	if ar.SetupFile != "" {
		fmt.Fprintf(&b, ". %s\n", shellquote.Join(filepath.Join(ar.Directory, ar.SetupFile)))
	}
	fmt.Fprintf(&b, "exec %s\n", shellquote.Join(ar.Command...))

	ar.Script = ar.Name + ".sh"
	path := filepath.Join(ar.Directory, ar.Script)
	if err := renameio.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		return errors.NewFilesystemError(path, "write", err)
	}
	return nil
}

// writeNodeInfo tells a login-node application how many compute nodes it
// drives and their shape.
func writeNodeInfo(rec *Record, ar *AppRecord) error {
	data, err := json.Marshal(nodeInfo{UseNodes: ar.UseNodes, CPUs: rec.Machine.Cores, GPUs: rec.Machine.GPUs})
	if err != nil {
		return err
	}
	path := filepath.Join(ar.Directory, NodeInfoFile)
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return errors.NewFilesystemError(path, "write", err)
	}
	return nil
}

// copyInputs places every input under dir/OutPath.
func copyInputs(inputs []app.Input, dir string) error {
	for _, in := range inputs {
		src, err := filepath.Abs(in.Path)
		if err != nil {
			return errors.NewFilesystemError(in.Path, "abs", err)
		}
		destDir := filepath.Join(dir, in.OutPath)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return errors.NewFilesystemError(destDir, "mkdir", err)
		}
		dest := filepath.Join(destDir, in.DestName(filepath.Base(src)))

		if in.Link {
			if _, err := os.Stat(src); err != nil {
				return errors.NewFilesystemError(src, "stat", err)
			}
			if err := os.Symlink(src, dest); err != nil {
				return errors.NewFilesystemError(dest, "symlink", err)
			}
			continue
		}
		if err := copyPath(src, dest); err != nil {
			return err
		}
	}
	return nil
}
