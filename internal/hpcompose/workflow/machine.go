package workflow

import (
	"strings"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/pkg/logger"
)

// ResolveMachine looks up a machine by name. "perlmutter" picks its cpu or
// gpu partition from a --constraint directive, else from wantsGPU.
func ResolveMachine(name string, directives []string, wantsGPU bool) (topology.Machine, error) {
	if strings.EqualFold(name, topology.MachinePerlmutter) {
		m, guessed := topology.ResolvePerlmutter(directives, wantsGPU)
		if guessed && !wantsGPU {
			logger.WithField("component", "workflow").Warn("no perlmutter partition requested, using cpu since no application requests gpus")
		}
		return m, nil
	}
	return topology.LookupMachine(name)
}

const constraintDirective = "--constraint"

// takeConstraint moves a raw --constraint directive out of directives so
// it is emitted once, as the job's constraint.
func takeConstraint(directives []string) (constraint string, rest []string) {
	for _, d := range directives {
		d = strings.TrimSpace(d)
		if !strings.HasPrefix(d, constraintDirective) {
			rest = append(rest, d)
			continue
		}
		value := strings.TrimPrefix(d, constraintDirective)
		constraint = strings.TrimSpace(strings.TrimPrefix(value, "="))
	}
	return constraint, rest
}
