// Package launcher turns a placed application into the command line of a
// parallel launcher such as srun, mpiexec or jsrun.
package launcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/pkg/errors"
)

// Field is a resource field of an application that a launcher may take a
// flag for.
type Field string

const (
	FieldNodes        Field = "Nodes"
	FieldRanks        Field = "Ranks"
	FieldRanksPerNode Field = "RanksPerNode"
	FieldCoresPerRank Field = "CoresPerRank"
	FieldGPUsPerRank  Field = "GPUsPerRank"
	FieldRanksPerGPU  Field = "RanksPerGPU"
)

// Units is what a launcher counts in.
type Units int

const (
	// UnitsRanks launchers take rank based fields directly.
	UnitsRanks Units = iota
	// UnitsResourceSets launchers need ranks translated into resource sets.
	UnitsResourceSets
)

// Flag maps a field to its command line flag.
type Flag struct {
	Field Field
	Name  string
}

// Profile describes one launcher. Flags are emitted in table order.
type Profile struct {
	Name    string
	Command string
	Always  []string
	Flags   []Flag
	Units   Units
}

const (
	ProfileSrun    = "srun"
	ProfileMpiexec = "mpiexec"
	ProfileJsrun   = "jsrun"
)

var profiles = map[string]Profile{
	ProfileSrun: {
		Name:    ProfileSrun,
		Command: "srun",
		Flags: []Flag{
			{FieldNodes, "--nodes"},
			{FieldRanks, "--ntasks"},
			{FieldRanksPerNode, "--ntasks-per-node"},
			{FieldCoresPerRank, "--cpus-per-task"},
			{FieldGPUsPerRank, "--gpus-per-task"},
			{FieldRanksPerGPU, "--ntasks-per-gpu"},
		},
	},
	// MPICH hydra process manager
	ProfileMpiexec: {
		Name:    ProfileMpiexec,
		Command: "mpiexec",
		Flags: []Flag{
			{FieldRanks, "-n"},
			{FieldRanksPerNode, "-ppn"},
			{FieldGPUsPerRank, "-gpus-per-proc"},
		},
	},
	ProfileJsrun: {
		Name:    ProfileJsrun,
		Command: "jsrun",
		Units:   UnitsResourceSets,
	},
}

// jsrun flags used by the resource set translation.
const (
	jsrunResourceSets = "--nrs"
	jsrunTasksPerRS   = "--tasks_per_rs"
	jsrunGPUsPerRS    = "--gpu_per_rs"
	jsrunCPUsPerRS    = "--cpu_per_rs"
	jsrunBind         = "--bind"
	jsrunRSPerHost    = "--rs_per_host"
)

// Lookup returns the named built-in profile.
func Lookup(name string) (Profile, error) {
	p, ok := profiles[strings.ToLower(name)]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", errors.ErrUnknownLauncher, name)
	}
	return p.clone(), nil
}

// Names lists the built-in profiles.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flag returns the flag name for f, if the profile has one.
func (p Profile) Flag(f Field) (string, bool) {
	for _, flag := range p.Flags {
		if flag.Field == f {
			return flag.Name, true
		}
	}
	return "", false
}

func (p Profile) clone() Profile {
	p.Always = append([]string(nil), p.Always...)
	p.Flags = append([]Flag(nil), p.Flags...)
	return p
}

// LookPathFunc finds an executable in PATH, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// Detect picks the launcher for machine. A machine naming its launcher
// wins; otherwise srun is preferred over mpiexec.hydra when found in PATH.
func Detect(machine topology.Machine, lookPath LookPathFunc) (Profile, error) {
	if machine.Launcher != "" {
		return Lookup(machine.Launcher)
	}
	if lookPath != nil {
		if _, err := lookPath("srun"); err == nil {
			return Lookup(ProfileSrun)
		}
		if _, err := lookPath("mpiexec.hydra"); err == nil {
			return Lookup(ProfileMpiexec)
		}
	}
	return Profile{}, fmt.Errorf("%w: none found for machine %s", errors.ErrUnknownLauncher, machine.Name)
}
