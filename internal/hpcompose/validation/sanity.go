// Package validation runs the pre-flight checks on applications and
// workflows before anything is placed or launched.
package validation

import (
	"fmt"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/pkg/errors"
	"github.com/ehsaniara/hpcompose/pkg/logger"
)

// Validate rejects application requests that cannot describe a real
// process layout. Checks run in a fixed order and the first failure wins:
//
//  1. Ranks >= 1
//  2. a single rank without RanksPerNode gets RanksPerNode = 1
//  3. a single rank cannot have RanksPerNode > 1
//  4. more than one rank needs RanksPerNode
//  5. a share key needs CoresPerRank
//  6. GPUsPerRank and RanksPerGPU are mutually exclusive
//  7. RanksPerNode must be a whole number of GPU groups
//
// Step 2 is the only change made to a.
func Validate(a *app.Application, node *topology.Node) error {
	if node == nil {
		return errors.NewValidationError(a.Name, fmt.Errorf("%w: no node template", errors.ErrInvalidTopology))
	}
	log := logger.WithField("component", "sanity-validator").WithField("application", a.Name)

	if a.Ranks < 1 {
		return errors.NewValidationError(a.Name, fmt.Errorf("%w: got %d", errors.ErrInvalidRanks, a.Ranks))
	}

	if a.Ranks == 1 && a.RanksPerNode == 0 {
		a.RanksPerNode = 1
		log.Info("ranks per node not set for single-rank application, using 1")
	}

	if a.Ranks == 1 && a.RanksPerNode > 1 {
		return errors.NewValidationError(a.Name, fmt.Errorf("%w: ranks=1, ranks per node=%d", errors.ErrInconsistentRanksPerNode, a.RanksPerNode))
	}

	if a.Ranks > 1 && a.RanksPerNode == 0 {
		return errors.NewValidationError(a.Name, fmt.Errorf("%w: ranks=%d", errors.ErrMissingRanksPerNode, a.Ranks))
	}

	if a.ShareKey != "" && a.CoresPerRank == 0 {
		return errors.NewValidationError(a.Name, fmt.Errorf("%w: share key %q", errors.ErrMissingCoresPerRankForSharing, a.ShareKey))
	}

	if a.GPUsPerRank != nil && a.RanksPerGPU != nil {
		return errors.NewValidationError(a.Name, errors.ErrAmbiguousGPUSpec)
	}

	if _, ranks, ok := a.GPUGroups(); ok && a.RanksPerNode%ranks != 0 {
		return errors.NewValidationError(a.Name, fmt.Errorf("%w: ranks per node=%d, ranks per group=%d", errors.ErrUnevenGPUGroups, a.RanksPerNode, ranks))
	}

	log.Debug("application passed sanity checks", "ranks", a.Ranks, "ranksPerNode", a.RanksPerNode, "coresPerRank", a.CoresPerRank)
	return nil
}

// ValidateAll validates every application in order and stops at the first
// failure; a workflow with one bad application is not placed at all.
func ValidateAll(apps []*app.Application, node *topology.Node) error {
	for _, a := range apps {
		if err := Validate(a, node); err != nil {
			return err
		}
	}
	return nil
}
