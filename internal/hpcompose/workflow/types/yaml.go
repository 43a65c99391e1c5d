// Package types defines the workflow description file and turns it into a
// workflow.Workflow.
package types

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/backup"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/batch"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/workflow"
	"github.com/ehsaniara/hpcompose/pkg/config"
	"github.com/ehsaniara/hpcompose/pkg/errors"

	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"
)

// WorkflowYAML is the workflow description file.
// Example YAML:
//
//	name: campaign
//	machine: perlmutter
//	scheduler:
//	  charge: m1234
//	  walltime: "1:30:00"
//	applications:
//	  - name: sim
//	    executable: ./sim
//	    ranks: 8
//	    ranks_per_node: 4
//	    gpus_per_rank: 1
//	  - name: post
//	    executable: ./post.py
//	    depends_on: [sim]
type WorkflowYAML struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	// ParentDirectory is where the run directory is created
	ParentDirectory string `yaml:"parent_directory,omitempty"`
	// Machine names a built-in machine; empty detects it from the hostname
	Machine string `yaml:"machine,omitempty"`
	// Node overrides the machine's node shape
	Node      *NodeSpec `yaml:"node,omitempty"`
	SetupFile string    `yaml:"setup_file,omitempty"`
	TimeIndex *bool     `yaml:"time_index,omitempty"`
	Subdirs   *bool     `yaml:"subdirs,omitempty"`
	MPMD      bool      `yaml:"mpmd,omitempty"`

	Scheduler    SchedulerSpec         `yaml:"scheduler,omitempty"`
	Inputs       []InputSpec           `yaml:"inputs,omitempty"`
	Applications []ApplicationSpec     `yaml:"applications"`
	Backup       map[string]BackupSpec `yaml:"backup,omitempty"`
}

// NodeSpec is the shape of one compute node.
type NodeSpec struct {
	Cores int `yaml:"cores"`
	GPUs  int `yaml:"gpus"`
}

// SchedulerSpec holds the batch directives of the run.
type SchedulerSpec struct {
	Charge      string `yaml:"charge,omitempty"`
	QOS         string `yaml:"qos,omitempty"`
	// Walltime is "H:MM:SS", "H:MM", minutes or a Go duration
	Walltime    string   `yaml:"walltime,omitempty"`
	Nodes       int      `yaml:"nodes,omitempty"`
	Constraint  string   `yaml:"constraint,omitempty"`
	Partition   string   `yaml:"partition,omitempty"`
	Queue       string   `yaml:"queue,omitempty"`
	Reservation string   `yaml:"reservation,omitempty"`
	JobName     string   `yaml:"job_name,omitempty"`
	Output      string   `yaml:"output,omitempty"`
	Error       string   `yaml:"error,omitempty"`
	Directives  []string `yaml:"directives,omitempty"`
	DependsOn   []string `yaml:"depends_on,omitempty"`
}

// ApplicationSpec is one entry of the applications list. Order is kept:
// it is the placement order.
type ApplicationSpec struct {
	Name       string `yaml:"name"`
	Executable string `yaml:"executable"`
	// LoginNode runs the application once on the login node
	LoginNode bool `yaml:"login_node,omitempty"`
	UseNodes  int  `yaml:"use_nodes,omitempty"`

	Ranks        *int   `yaml:"ranks,omitempty"`
	RanksPerNode int    `yaml:"ranks_per_node,omitempty"`
	CoresPerRank int    `yaml:"cores_per_rank,omitempty"`
	Nodes        int    `yaml:"nodes,omitempty"`
	GPUsPerRank  *Ratio `yaml:"gpus_per_rank,omitempty"`
	RanksPerGPU  *Ratio `yaml:"ranks_per_gpu,omitempty"`
	ShareKey     string `yaml:"share_key,omitempty"`

	DependsOn    []string          `yaml:"depends_on,omitempty"`
	Arguments    []string          `yaml:"arguments,omitempty"`
	LauncherArgs Words             `yaml:"launcher_args,omitempty"`
	Environment  map[string]string `yaml:"environment,omitempty"`
	Inputs       []InputSpec       `yaml:"inputs,omitempty"`
	SetupFile    string            `yaml:"setup_file,omitempty"`
	LogFile      string            `yaml:"log_file,omitempty"`
}

// Ratio is a GPU ratio written as an integer or as "a:b".
type Ratio string

func (r *Ratio) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: gpu ratio must be an integer or \"a:b\"", value.Line)
	}
	*r = Ratio(value.Value)
	return nil
}

// Words is a list of arguments written either as a list or as one
// shell-quoted string.
type Words []string

func (w *Words) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		words, err := shellquote.Split(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		*w = words
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*w = list
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list", value.Line)
	}
}

// InputSpec is a path, or a mapping with path, outpath, rename and link.
type InputSpec struct {
	Path    string `yaml:"path"`
	OutPath string `yaml:"outpath,omitempty"`
	Rename  string `yaml:"rename,omitempty"`
	Link    bool   `yaml:"link,omitempty"`
}

func (in *InputSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*in = InputSpec{Path: value.Value}
		return nil
	}
	type plain InputSpec
	return value.Decode((*plain)(in))
}

func (in InputSpec) input() (app.Input, error) {
	if in.Path == "" {
		return app.Input{}, fmt.Errorf("%w: input without a path", errors.ErrInvalidConfig)
	}
	return app.Input{Path: in.Path, OutPath: in.OutPath, Rename: in.Rename, Link: in.Link}, nil
}

// BackupSpec is one backup destination.
type BackupSpec struct {
	ID    string         `yaml:"id"`
	Paths []backup.Entry `yaml:"paths"`
}

// Load reads and parses a workflow description file.
func Load(path string) (*WorkflowYAML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFilesystemError(path, "read", err)
	}
	w, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// Parse parses a workflow description. Unknown keys are rejected.
func Parse(data []byte) (*WorkflowYAML, error) {
	var w WorkflowYAML
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return nil, errors.NewConfigError("workflow", "", err)
	}
	if len(w.Applications) == 0 {
		return nil, errors.NewConfigError("workflow", "applications", fmt.Errorf("no applications"))
	}
	return &w, nil
}

// ToWorkflow builds the workflow, taking unset values from cfg. A nil cfg
// uses config.DefaultConfig.
func (wy *WorkflowYAML) ToWorkflow(cfg *config.Config) (*workflow.Workflow, error) {
	if cfg == nil {
		defaults := config.DefaultConfig
		cfg = &defaults
	}

	apps := make([]*app.Application, 0, len(wy.Applications))
	for _, spec := range wy.Applications {
		a, err := spec.application()
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}

	machine, err := wy.machine(cfg, apps)
	if err != nil {
		return nil, err
	}

	parent := wy.ParentDirectory
	if parent == "" {
		parent = cfg.Workflow.ParentDirectory
	}
	w := workflow.New(wy.Name, parent, machine)
	w.SetupFile = wy.SetupFile
	w.TimeIndex = cfg.Workflow.TimeIndex
	if wy.TimeIndex != nil {
		w.TimeIndex = *wy.TimeIndex
	}
	w.Subdirs = cfg.Workflow.Subdirs
	if wy.Subdirs != nil {
		w.Subdirs = *wy.Subdirs
	}
	w.SetMPMD(wy.MPMD)

	if err := w.Add(apps...); err != nil {
		return nil, err
	}
	for _, spec := range wy.Inputs {
		in, err := spec.input()
		if err != nil {
			return nil, err
		}
		w.Inputs = append(w.Inputs, in)
	}

	if w.Job, err = wy.Scheduler.job(); err != nil {
		return nil, err
	}

	for name, spec := range wy.Backup {
		d := backup.Destination{ID: spec.ID}
		for _, p := range spec.Paths {
			entry, err := backup.SendData(p.InPath, p.OutPath, p.Rename)
			if err != nil {
				return nil, errors.NewConfigError("backup", name, err)
			}
			d.Add(entry)
		}
		w.Backup[name] = d
	}
	return w, nil
}

func (wy *WorkflowYAML) machine(cfg *config.Config, apps []*app.Application) (topology.Machine, error) {
	name := wy.Machine
	if name == "" {
		name = cfg.Machine.Name
	}
	if name == "" {
		host, _ := os.Hostname()
		name = topology.DetectMachine(host)
	}

	wantsGPU := false
	for _, a := range apps {
		wantsGPU = wantsGPU || a.WantsGPU()
	}
	m, err := workflow.ResolveMachine(name, wy.Scheduler.Directives, wantsGPU)
	if err != nil {
		return topology.Machine{}, err
	}

	if wy.Node != nil {
		return m.WithShape(wy.Node.Cores, wy.Node.GPUs), nil
	}
	return m.WithShape(cfg.Machine.Cores, cfg.Machine.GPUs), nil
}

func (s SchedulerSpec) job() (batch.Job, error) {
	walltime, err := batch.ParseWalltime(s.Walltime)
	if err != nil {
		return batch.Job{}, errors.NewConfigError("scheduler", "walltime", err)
	}
	return batch.Job{
		Charge:      s.Charge,
		QOS:         s.QOS,
		Walltime:    walltime,
		Nodes:       s.Nodes,
		Constraint:  s.Constraint,
		Partition:   s.Partition,
		Queue:       s.Queue,
		Reservation: s.Reservation,
		JobName:     s.JobName,
		Output:      s.Output,
		Error:       s.Error,
		Directives:  s.Directives,
		DependsOn:   s.DependsOn,
	}, nil
}

func (spec ApplicationSpec) application() (*app.Application, error) {
	if spec.Name == "" {
		return nil, errors.NewConfigError("applications", "name", fmt.Errorf("application without a name"))
	}
	opts := []app.Option{
		app.WithDependsOn(spec.DependsOn...),
		app.WithArguments(spec.Arguments...),
		app.WithLauncherArguments(spec.LauncherArgs...),
		app.WithSetupFile(spec.SetupFile),
		app.WithLogFile(spec.LogFile),
	}
	for k, v := range spec.Environment {
		opts = append(opts, app.WithEnv(k, v))
	}
	for _, in := range spec.Inputs {
		input, err := in.input()
		if err != nil {
			return nil, errors.NewValidationError(spec.Name, err)
		}
		opts = append(opts, app.WithInputs(input))
	}

	// ranks: 0 must reach validation, so only an absent key means 1
	if spec.Ranks != nil {
		opts = append(opts, app.WithRanks(*spec.Ranks))
	}
	if spec.LoginNode {
		return app.NewLoginNode(spec.Name, spec.Executable, spec.UseNodes, opts...)
	}

	opts = append(opts,
		app.WithRanksPerNode(spec.RanksPerNode),
		app.WithCoresPerRank(spec.CoresPerRank),
		app.WithNodes(spec.Nodes),
		app.WithShareKey(spec.ShareKey),
	)
	if spec.GPUsPerRank != nil {
		r, err := app.ParseGPUsPerRank(string(*spec.GPUsPerRank))
		if err != nil {
			return nil, errors.NewValidationError(spec.Name, err)
		}
		opts = append(opts, app.WithGPUsPerRank(r))
	}
	if spec.RanksPerGPU != nil {
		r, err := app.ParseRanksPerGPU(string(*spec.RanksPerGPU))
		if err != nil {
			return nil, errors.NewValidationError(spec.Name, err)
		}
		opts = append(opts, app.WithRanksPerGPU(r))
	}
	return app.New(spec.Name, spec.Executable, opts...)
}
