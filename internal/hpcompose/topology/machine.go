package topology

import (
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/ehsaniara/hpcompose/pkg/errors"
)

// Machine is a node shape plus the launcher and scheduler a site uses.
type Machine struct {
	Name       string `json:"name" yaml:"name"`
	Cores      int    `json:"cores" yaml:"cores"`
	GPUs       int    `json:"gpus" yaml:"gpus"`
	Launcher   string `json:"launcher,omitempty" yaml:"launcher,omitempty"`
	Scheduler  string `json:"scheduler,omitempty" yaml:"scheduler,omitempty"`
	Constraint string `json:"constraint,omitempty" yaml:"constraint,omitempty"`
}

const (
	MachineLocal         = "local"
	MachinePerlmutter    = "perlmutter"
	MachinePerlmutterCPU = "perlmutter_cpu"
	MachinePerlmutterGPU = "perlmutter_gpu"
	MachineFrontier      = "frontier"
	MachineSummit        = "summit"
	MachineAndes         = "andes"
)

var machines = map[string]Machine{
	MachinePerlmutterCPU: {Name: MachinePerlmutterCPU, Cores: 128, GPUs: 0, Launcher: "srun", Scheduler: "slurm", Constraint: "cpu"},
	MachinePerlmutterGPU: {Name: MachinePerlmutterGPU, Cores: 64, GPUs: 4, Launcher: "srun", Scheduler: "slurm", Constraint: "gpu"},
	MachineFrontier:      {Name: MachineFrontier, Cores: 56, GPUs: 8, Launcher: "srun", Scheduler: "slurm"},
	MachineAndes:         {Name: MachineAndes, Cores: 32, GPUs: 0, Launcher: "srun", Scheduler: "slurm"},
	MachineSummit:        {Name: MachineSummit, Cores: 42, GPUs: 6, Launcher: "jsrun", Scheduler: "lsf"},
}

// Local describes the machine hpcompose runs on. GPUs are not detected.
func Local() Machine {
	return Machine{Name: MachineLocal, Cores: runtime.NumCPU(), GPUs: 0}
}

// LookupMachine returns a built-in machine. "perlmutter" is ambiguous
// and must go through ResolvePerlmutter first.
func LookupMachine(name string) (Machine, error) {
	name = strings.ToLower(name)
	if name == MachineLocal {
		return Local(), nil
	}
	m, ok := machines[name]
	if !ok {
		return Machine{}, fmt.Errorf("%w: %s", errors.ErrUnknownMachine, name)
	}
	return m, nil
}

// Machines lists the built-in machines sorted by name, local included.
func Machines() []Machine {
	list := []Machine{Local()}
	for _, m := range machines {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Node returns an empty node of the machine's shape.
func (m Machine) Node() (*Node, error) {
	return New(m.Cores, m.GPUs)
}

// WithShape overrides cores and gpus where they are set (> 0 cores,
// >= 0 gpus when cores is set).
func (m Machine) WithShape(cores, gpus int) Machine {
	if cores > 0 {
		m.Cores = cores
		m.GPUs = gpus
	}
	return m
}

// DetectMachine maps a hostname to a machine name, falling back to local.
func DetectMachine(hostname string) string {
	hostname = strings.ToLower(hostname)
	for _, name := range []string{MachinePerlmutter, MachineFrontier, MachineAndes, MachineSummit} {
		if strings.Contains(hostname, name) {
			return name
		}
	}
	return MachineLocal
}

var constraintPattern = regexp.MustCompile(`--constraint(?:=|\s*)(gpu|cpu)`)

// ResolvePerlmutter picks the perlmutter partition from an explicit
// --constraint directive, else gpu when any application wants GPUs and cpu
// otherwise. addConstraint is true when the caller must add the
// --constraint directive itself.
func ResolvePerlmutter(directives []string, wantsGPU bool) (m Machine, addConstraint bool) {
	if match := constraintPattern.FindStringSubmatch(strings.Join(directives, " ")); match != nil {
		return machines[MachinePerlmutter+"_"+match[1]], false
	}
	if wantsGPU {
		return machines[MachinePerlmutterGPU], true
	}
	return machines[MachinePerlmutterCPU], true
}
