package launcher

import (
	"fmt"
	"strconv"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/placement"
	"github.com/ehsaniara/hpcompose/pkg/errors"
	"github.com/ehsaniara/hpcompose/pkg/logger"
)

// Derive returns the launcher tokens for a placed application: the
// profile's command, its fixed arguments, one flag/value pair per field set
// on the request, then the request's launcher arguments verbatim. For the
// flag-table profiles (srun, mpiexec) fields left unset on the request never
// produce a flag, and the launcher's own defaults apply.
//
// jsrun is the exception. It has no per-rank flags, so every resource set
// must be sized explicitly: cores per rank and ranks per node left unset on
// the request are taken from asg. The same request can therefore yield
// --cpu_per_rs under jsrun and no --cpus-per-task under srun.
//
// Applications on the login node are not launched through MPI and get no
// tokens.
func Derive(a *app.Application, asg *placement.Assignment, profile Profile) ([]string, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil application", errors.ErrInvalidApplication)
	}
	if a.IsLoginNode() || (asg != nil && asg.Login) {
		return nil, nil
	}

	tokens := append([]string{profile.Command}, profile.Always...)

	var (
		flags []string
		err   error
	)
	switch profile.Units {
	case UnitsResourceSets:
		flags, err = resourceSetFlags(a, asg)
	default:
		flags, err = tableFlags(a, profile)
	}
	if err != nil {
		return nil, errors.WrapLauncherError(profile.Name, "derive", fmt.Errorf("application %s: %w", a.Name, err))
	}

	tokens = append(tokens, flags...)
	tokens = append(tokens, a.LauncherArguments...)
	return tokens, nil
}

// CommandLine appends the executable and its arguments to launcher tokens.
func CommandLine(a *app.Application, tokens []string) []string {
	line := make([]string, 0, len(tokens)+1+len(a.Arguments))
	line = append(line, tokens...)
	line = append(line, a.Executable)
	return append(line, a.Arguments...)
}

func tableFlags(a *app.Application, profile Profile) ([]string, error) {
	var flags []string
	for _, f := range profile.Flags {
		value, set, err := fieldValue(a, f.Field)
		if err != nil {
			return nil, err
		}
		if set {
			flags = append(flags, f.Name, value)
		}
	}

	if a.RanksPerGPU != nil {
		if _, ok := profile.Flag(FieldRanksPerGPU); !ok {
			logger.WithField("component", "launcher").Warn("launcher has no ranks per gpu flag, gpu binding left to the launcher",
				"launcher", profile.Name, "application", a.Name)
		}
	}
	return flags, nil
}

// fieldValue renders field f of a. set is false when the request leaves f
// unset.
func fieldValue(a *app.Application, f Field) (value string, set bool, err error) {
	switch f {
	case FieldNodes:
		return count(a.Nodes)
	case FieldRanks:
		return count(a.Ranks)
	case FieldRanksPerNode:
		return count(a.RanksPerNode)
	case FieldCoresPerRank:
		return count(a.CoresPerRank)
	case FieldGPUsPerRank:
		if a.GPUsPerRank == nil {
			return "", false, nil
		}
		if a.GPUsPerRank.Ranks != 1 {
			return "", false, fmt.Errorf("%w: gpus per rank %s is not a whole number of gpus per rank",
				errors.ErrLauncherTranslation, a.GPUsPerRank)
		}
		return strconv.Itoa(a.GPUsPerRank.GPUs), true, nil
	case FieldRanksPerGPU:
		if a.RanksPerGPU == nil {
			return "", false, nil
		}
		if a.RanksPerGPU.GPUs != 1 {
			return "", false, fmt.Errorf("%w: ranks per gpu %s spans more than one gpu",
				errors.ErrLauncherTranslation, a.RanksPerGPU)
		}
		return strconv.Itoa(a.RanksPerGPU.Ranks), true, nil
	default:
		return "", false, fmt.Errorf("%w: unknown field %s", errors.ErrLauncherTranslation, f)
	}
}

func count(n int) (string, bool, error) {
	if n <= 0 {
		return "", false, nil
	}
	return strconv.Itoa(n), true, nil
}

// resourceSetFlags translates the rank based request into jsrun resource
// sets. A resource set holds the ranks that share one GPU group; without
// GPUs every rank is its own resource set. Cores per rank and ranks per
// node come from the assignment when the request leaves them to the
// planner.
func resourceSetFlags(a *app.Application, asg *placement.Assignment) ([]string, error) {
	log := logger.WithField("component", "launcher").WithField("application", a.Name)

	coresPerRank, ranksPerNode := a.CoresPerRank, a.RanksPerNode
	if asg != nil {
		if coresPerRank == 0 {
			coresPerRank = asg.CoresPerRank
		}
		if ranksPerNode == 0 {
			ranksPerNode = asg.RanksPerNode
		}
	}

	nrs, ranksPerRS, gpusPerRS := a.Ranks, 1, 0
	if gpus, ranks, ok := a.GPUGroups(); ok {
		if a.Ranks%ranks != 0 {
			return nil, fmt.Errorf("%w: ranks=%d not divisible by %d ranks per gpu group",
				errors.ErrLauncherTranslation, a.Ranks, ranks)
		}
		nrs, ranksPerRS, gpusPerRS = a.Ranks/ranks, ranks, gpus
	}

	flags := []string{
		jsrunResourceSets, strconv.Itoa(nrs),
		jsrunTasksPerRS, strconv.Itoa(ranksPerRS),
	}
	if gpusPerRS > 0 {
		flags = append(flags, jsrunGPUsPerRS, strconv.Itoa(gpusPerRS))
	}

	if coresPerRank > 0 {
		flags = append(flags,
			jsrunCPUsPerRS, strconv.Itoa(coresPerRank*ranksPerRS),
			jsrunBind, fmt.Sprintf("packed:%d", coresPerRank),
		)
	} else {
		log.Warn("cannot determine cpus per resource set")
	}

	switch {
	case ranksPerNode > 0:
		if ranksPerNode%ranksPerRS != 0 {
			return nil, fmt.Errorf("%w: ranks per node=%d not divisible by ranks per resource set=%d",
				errors.ErrLauncherTranslation, ranksPerNode, ranksPerRS)
		}
		flags = append(flags, jsrunRSPerHost, strconv.Itoa(ranksPerNode/ranksPerRS))
	case a.Nodes > 0:
		if nrs%a.Nodes != 0 {
			return nil, fmt.Errorf("%w: resource sets=%d not divisible by nodes=%d",
				errors.ErrLauncherTranslation, nrs, a.Nodes)
		}
		flags = append(flags, jsrunRSPerHost, strconv.Itoa(nrs/a.Nodes))
	case a.Ranks == 1:
		flags = append(flags, jsrunRSPerHost, "1")
	default:
		log.Warn("cannot determine resource sets per host")
	}
	return flags, nil
}
