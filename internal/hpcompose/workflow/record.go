package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/backup"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/batch"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/placement"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/pkg/errors"

	"github.com/google/renameio"
)

// AppRecord is an application as materialized in the run directory.
type AppRecord struct {
	*app.Application
	Directory string `json:"directory"`
	// Command is the full command line: launcher tokens, executable,
	// arguments.
	Command []string `json:"command"`
	// Script wraps Command when the application has a setup file.
	Script string `json:"script,omitempty"`
}

// Record is everything needed to submit or run a created workflow. It is
// stored as workflow.json in the run directory.
type Record struct {
	RunID     string           `json:"run_id"`
	Name      string           `json:"name"`
	Directory string           `json:"directory"`
	CreatedAt time.Time        `json:"created_at"`
	Machine   topology.Machine `json:"machine"`
	Launcher  string           `json:"launcher,omitempty"`
	// Scheduler is empty for runs started in place.
	Scheduler string `json:"scheduler,omitempty"`
	SetupFile string `json:"setup_file,omitempty"`
	Subdirs   bool   `json:"subdirs"`
	MPMD      bool   `json:"mpmd,omitempty"`

	Applications []*AppRecord                  `json:"applications"`
	Plan         *placement.Plan               `json:"plan"`
	Job          batch.Job                     `json:"job"`
	Backup       map[string]backup.Destination `json:"backup,omitempty"`
	JobID        string                        `json:"job_id,omitempty"`
}

// Path returns name inside the run directory.
func (r *Record) Path(name string) string {
	return filepath.Join(r.Directory, name)
}

// Application returns the named application record.
func (r *Record) Application(name string) (*AppRecord, bool) {
	for _, a := range r.Applications {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Save writes the record atomically.
func (r *Record) Save() error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workflow record: %w", err)
	}
	path := r.Path(RecordFile)
	if err := renameio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.NewFilesystemError(path, "write", err)
	}
	return nil
}

// LoadRecord reads the record of the run in dir.
func LoadRecord(dir string) (*Record, error) {
	path := filepath.Join(dir, RecordFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrRecordNotFound, path)
		}
		return nil, errors.NewFilesystemError(path, "read", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("workflow record %s: %w", path, err)
	}
	return &r, nil
}

type nodeInfo struct {
	UseNodes int `json:"UseNodes"`
	CPUs     int `json:"cpus"`
	GPUs     int `json:"gpus"`
}
