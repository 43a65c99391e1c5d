// Package workflow composes applications into a run: it validates and
// places them, materializes the run directory, and submits it to a batch
// scheduler or runs it in place.
package workflow

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/backup"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/batch"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/pkg/errors"
	"github.com/ehsaniara/hpcompose/pkg/logger"
)

// Files written into a run directory.
const (
	RecordFile   = "workflow.json"
	DoneFile     = "workflow.done"
	SubmitScript = "workflow.sh"
	NodeInfoFile = ".hpcompose.nodeinfo.json"
)

// TimeIndexLayout suffixes run directories when TimeIndex is set.
const TimeIndexLayout = "2006-01-02.15.04.05"

// Workflow is a set of applications run together on one machine.
type Workflow struct {
	Name            string
	ParentDirectory string
	Machine         topology.Machine
	// SetupFile is sourced before every application.
	SetupFile string
	TimeIndex bool
	// Subdirs gives every application its own directory.
	Subdirs bool
	MPMD    bool

	Applications []*app.Application
	// Inputs are copied into the run directory.
	Inputs []app.Input
	Job    batch.Job
	// Backup maps destination names to what is sent there after the run.
	Backup map[string]backup.Destination
}

// New returns an empty workflow with one directory per application.
func New(name, parentDirectory string, machine topology.Machine) *Workflow {
	return &Workflow{
		Name:            name,
		ParentDirectory: parentDirectory,
		Machine:         machine,
		Subdirs:         true,
		Backup:          map[string]backup.Destination{},
	}
}

// Add appends applications, rejecting names already present.
func (w *Workflow) Add(apps ...*app.Application) error {
	seen := make(map[string]bool, len(w.Applications)+len(apps))
	for _, a := range w.Applications {
		seen[a.Name] = true
	}
	for _, a := range apps {
		if seen[a.Name] {
			return errors.NewValidationError(a.Name, errors.ErrDuplicateApplication)
		}
		seen[a.Name] = true
	}
	w.Applications = append(w.Applications, apps...)
	return nil
}

// SetMPMD switches MPMD mode. MPMD applications share the run directory.
func (w *Workflow) SetMPMD(on bool) {
	w.MPMD = on
	if on && w.Subdirs {
		w.Subdirs = false
		logger.WithField("component", "workflow").Info("subdirs disabled, MPMD applications share one directory", "workflow", w.Name)
	}
}

// WantsGPU reports whether any application binds GPUs.
func (w *Workflow) WantsGPU() bool {
	for _, a := range w.Applications {
		if a.WantsGPU() {
			return true
		}
	}
	return false
}

// Application returns the named application.
func (w *Workflow) Application(name string) (*app.Application, bool) {
	for _, a := range w.Applications {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// normalize fills in Name and ParentDirectory from each other.
func (w *Workflow) normalize() error {
	switch {
	case w.Name == "" && w.ParentDirectory == "":
		return fmt.Errorf("%w: workflow needs a name or a parent directory", errors.ErrInvalidConfig)
	case w.ParentDirectory == "":
		w.ParentDirectory = "."
	case w.Name == "":
		w.Name = filepath.Base(filepath.Clean(w.ParentDirectory))
	}
	if w.MPMD {
		w.Subdirs = false
	}
	return nil
}

// Directory is the absolute run directory for a run started at now.
func (w *Workflow) Directory(now time.Time) (string, error) {
	dir := filepath.Join(w.ParentDirectory, w.Name)
	if w.TimeIndex {
		dir = dir + "." + now.Format(TimeIndexLayout)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.NewFilesystemError(dir, "abs", err)
	}
	return abs, nil
}

func (w *Workflow) appDirectory(dir string, a *app.Application) string {
	if w.Subdirs {
		return filepath.Join(dir, a.Name)
	}
	return dir
}
