// Package app holds the resource request of a single application: how many
// ranks it runs, how they spread over nodes and cores, how they bind to
// GPUs, and what it needs around it (inputs, environment, dependencies).
package app

import (
	"fmt"
	"strings"

	"github.com/ehsaniara/hpcompose/pkg/errors"
)

// Kind separates applications that take part in rank accounting from
// those that run on the shared login node.
type Kind string

const (
	KindStandard  Kind = "standard"
	KindLoginNode Kind = "login-node"
)

// Application is the resource ask for one executable. Zero means unset for
// RanksPerNode, CoresPerRank and Nodes.
type Application struct {
	Name       string `json:"name"`
	Executable string `json:"executable"`
	Kind       Kind   `json:"kind"`

	Ranks        int       `json:"ranks"`
	RanksPerNode int       `json:"ranks_per_node,omitempty"`
	CoresPerRank int       `json:"cores_per_rank,omitempty"`
	Nodes        int       `json:"nodes,omitempty"`
	GPUsPerRank  *GPURatio `json:"gpus_per_rank,omitempty"`
	RanksPerGPU  *GPURatio `json:"ranks_per_gpu,omitempty"`
	ShareKey     string    `json:"share_key,omitempty"`

	// UseNodes counts whole nodes a login-node application drives itself.
	UseNodes int `json:"use_nodes,omitempty"`

	DependsOn         []string          `json:"depends_on,omitempty"`
	Arguments         []string          `json:"arguments,omitempty"`
	LauncherArguments []string          `json:"launcher_arguments,omitempty"`
	Environment       map[string]string `json:"environment,omitempty"`
	Inputs            []Input           `json:"inputs,omitempty"`
	SetupFile         string            `json:"setup_file,omitempty"`
	LogFile           string            `json:"log_file,omitempty"`
}

// Option configures an Application at construction.
type Option func(*Application)

func WithRanks(n int) Option { return func(a *Application) { a.Ranks = n } }

func WithRanksPerNode(n int) Option { return func(a *Application) { a.RanksPerNode = n } }

func WithCoresPerRank(n int) Option { return func(a *Application) { a.CoresPerRank = n } }

// WithNodes passes an explicit node count to the launcher.
func WithNodes(n int) Option { return func(a *Application) { a.Nodes = n } }

func WithGPUsPerRank(r GPURatio) Option {
	return func(a *Application) { a.GPUsPerRank = &r }
}

func WithRanksPerGPU(r GPURatio) Option {
	return func(a *Application) { a.RanksPerGPU = &r }
}

// WithShareKey co-locates the application with others using the same key.
func WithShareKey(key string) Option { return func(a *Application) { a.ShareKey = key } }

func WithDependsOn(names ...string) Option {
	return func(a *Application) { a.DependsOn = append(a.DependsOn, names...) }
}

func WithArguments(args ...string) Option {
	return func(a *Application) { a.Arguments = append(a.Arguments, args...) }
}

func WithLauncherArguments(args ...string) Option {
	return func(a *Application) { a.LauncherArguments = append(a.LauncherArguments, args...) }
}

func WithEnv(key, value string) Option {
	return func(a *Application) { a.Environment[key] = value }
}

func WithInputs(inputs ...Input) Option {
	return func(a *Application) { a.Inputs = append(a.Inputs, inputs...) }
}

func WithSetupFile(path string) Option { return func(a *Application) { a.SetupFile = path } }

func WithLogFile(path string) Option { return func(a *Application) { a.LogFile = path } }

func newApplication(name, executable string, kind Kind, opts []Option) *Application {
	a := &Application{
		Name:              name,
		Executable:        executable,
		Kind:              kind,
		Ranks:             1,
		DependsOn:         []string{},
		Arguments:         []string{},
		LauncherArguments: []string{},
		Environment:       map[string]string{},
		Inputs:            []Input{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// New builds a standard application. Ranks defaults to 1. Out-of-range
// values are rejected here; the sanity rules that depend on several fields
// together belong to validation.Validate.
func New(name, executable string, opts ...Option) (*Application, error) {
	a := newApplication(name, executable, KindStandard, opts)
	if err := a.checkFields(); err != nil {
		return nil, err
	}
	return a, nil
}

// NewLoginNode builds an application that runs once on the shared login
// node and drives useNodes compute nodes itself.
func NewLoginNode(name, executable string, useNodes int, opts ...Option) (*Application, error) {
	a := newApplication(name, executable, KindLoginNode, opts)
	a.UseNodes = useNodes
	if err := a.checkFields(); err != nil {
		return nil, err
	}
	if useNodes < 0 {
		return nil, a.invalid("use nodes must not be negative, got %d", useNodes)
	}
	if a.Ranks > 1 || a.RanksPerNode > 1 || a.CoresPerRank > 1 {
		return nil, a.invalid("login-node applications run a single rank on a single core")
	}
	if a.GPUsPerRank != nil || a.RanksPerGPU != nil || a.ShareKey != "" {
		return nil, a.invalid("login-node applications cannot request gpus or a share key")
	}
	a.Ranks, a.RanksPerNode, a.CoresPerRank = 1, 1, 1
	return a, nil
}

func (a *Application) invalid(format string, args ...interface{}) error {
	return errors.NewValidationError(a.Name, fmt.Errorf("%w: %s", errors.ErrInvalidApplication, fmt.Sprintf(format, args...)))
}

func (a *Application) checkFields() error {
	if a.Name == "" {
		return errors.NewValidationError("<unnamed>", fmt.Errorf("%w: name must not be empty", errors.ErrInvalidApplication))
	}
	if strings.ContainsAny(a.Name, ":/ \t") {
		return a.invalid("name %q must not contain ':', '/' or whitespace", a.Name)
	}
	if a.Executable == "" {
		return a.invalid("executable must not be empty")
	}
	counts := []struct {
		field string
		value int
	}{
		{"ranks", a.Ranks},
		{"ranks per node", a.RanksPerNode},
		{"cores per rank", a.CoresPerRank},
		{"nodes", a.Nodes},
	}
	for _, c := range counts {
		if c.value < 0 {
			return a.invalid("%s must not be negative, got %d", c.field, c.value)
		}
	}
	for _, r := range []*GPURatio{a.GPUsPerRank, a.RanksPerGPU} {
		if r == nil {
			continue
		}
		if err := r.validate(); err != nil {
			return a.invalid("%v", err)
		}
	}
	return nil
}

func (a *Application) IsLoginNode() bool {
	return a.Kind == KindLoginNode
}

// WantsGPU reports whether any GPU binding was requested.
func (a *Application) WantsGPU() bool {
	return a.GPUsPerRank != nil || a.RanksPerGPU != nil
}

// GPUGroups resolves the GPU request into (gpus, ranks) per binding group:
// that many GPUs are shared by that many ranks. ok is false without a GPU
// request. With both ratios set the result follows GPUsPerRank; validation
// rejects that case first.
func (a *Application) GPUGroups() (gpus, ranks int, ok bool) {
	switch {
	case a.GPUsPerRank != nil:
		return a.GPUsPerRank.GPUs, a.GPUsPerRank.Ranks, true
	case a.RanksPerGPU != nil:
		return a.RanksPerGPU.GPUs, a.RanksPerGPU.Ranks, true
	default:
		return 0, 0, false
	}
}

// Clone returns a deep copy of a.
func (a *Application) Clone() *Application {
	c := *a
	if a.GPUsPerRank != nil {
		r := *a.GPUsPerRank
		c.GPUsPerRank = &r
	}
	if a.RanksPerGPU != nil {
		r := *a.RanksPerGPU
		c.RanksPerGPU = &r
	}
	c.DependsOn = append([]string{}, a.DependsOn...)
	c.Arguments = append([]string{}, a.Arguments...)
	c.LauncherArguments = append([]string{}, a.LauncherArguments...)
	c.Inputs = append([]Input{}, a.Inputs...)
	c.Environment = make(map[string]string, len(a.Environment))
	for k, v := range a.Environment {
		c.Environment[k] = v
	}
	return &c
}
