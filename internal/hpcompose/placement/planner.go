// Package placement maps applications onto compute nodes: which node each
// application runs on, which CPU slots each of its ranks holds and which
// ranks share each GPU.
//
// The planner is a deterministic direct-mapping allocator, not an
// optimizer. Applications without a share key always get a node of their
// own; applications with the same share key are packed onto one node in
// input order; login-node applications share a single login node.
package placement

import (
	"fmt"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/pkg/errors"
	"github.com/ehsaniara/hpcompose/pkg/logger"

	"k8s.io/utils/cpuset"
)

// Planner builds placement plans. It holds no state between calls.
type Planner struct {
	logger *logger.Logger
}

func NewPlanner() *Planner {
	return &Planner{
		logger: logger.WithField("component", "placement-planner"),
	}
}

// resolved is the per-application state carried from the node pass to the
// slot pass. Applications are never modified.
type resolved struct {
	app          *app.Application
	node         int
	ranksPerNode int
	coresPerRank int
}

// Plan places apps, in order, on copies of template. Either every
// application is placed or an error is returned and no plan exists.
// Applications are expected to have passed validation.Validate.
func (p *Planner) Plan(apps []*app.Application, template *topology.Node) (*Plan, error) {
	if template == nil {
		return nil, fmt.Errorf("%w: no node template", errors.ErrInvalidTopology)
	}

	plan := newPlan()
	list, err := p.assignNodes(plan, apps, template)
	if err != nil {
		return nil, err
	}

	for _, r := range list {
		asg, err := p.fillSlots(plan.Nodes[r.node], r)
		if err != nil {
			return nil, err
		}
		asg.Login = r.node == plan.LoginIndex
		plan.assignments.Set(r.app.Name, asg)
	}

	if p.logger.IsDebugEnabled() {
		for _, line := range plan.Describe() {
			p.logger.Debug(line)
		}
	}
	p.logger.Debug("placement complete", "applications", plan.Len(), "nodes", len(plan.Nodes))
	return plan, nil
}

// assignNodes decides the node of every application and resolves
// RanksPerNode and CoresPerRank.
func (p *Planner) assignNodes(plan *Plan, apps []*app.Application, template *topology.Node) ([]resolved, error) {
	shareIndex := make(map[string]int)
	seen := make(map[string]bool, len(apps))
	list := make([]resolved, 0, len(apps))

	allocate := func() int {
		plan.Nodes = append(plan.Nodes, template.Clone())
		return len(plan.Nodes) - 1
	}

	for _, a := range apps {
		if seen[a.Name] {
			return nil, errors.NewValidationError(a.Name, errors.ErrDuplicateApplication)
		}
		seen[a.Name] = true

		r := resolved{app: a, ranksPerNode: a.RanksPerNode, coresPerRank: a.CoresPerRank}
		if r.ranksPerNode == 0 {
			if a.Ranks != 1 {
				return nil, errors.NewValidationError(a.Name, errors.ErrMissingRanksPerNode)
			}
			r.ranksPerNode = 1
		}

		switch {
		case a.ShareKey != "":
			idx, ok := shareIndex[a.ShareKey]
			if !ok {
				idx = allocate()
				shareIndex[a.ShareKey] = idx
			}
			r.node = idx
		case a.IsLoginNode():
			if plan.LoginIndex < 0 {
				plan.LoginIndex = allocate()
			}
			r.node = plan.LoginIndex
			r.coresPerRank = 1
			plan.UseNodes += a.UseNodes
		default:
			r.node = allocate()
		}

		if r.coresPerRank == 0 {
			r.coresPerRank = template.Cores() / r.ranksPerNode
			if r.coresPerRank == 0 {
				return nil, errors.NewCapacityError(a.Name, r.node, fmt.Errorf("%w: %d ranks per node on %d cores",
					errors.ErrRequestExceedsNodeCapacity, r.ranksPerNode, template.Cores()))
			}
		}

		if r.ranksPerNode*r.coresPerRank > template.Cores() {
			return nil, errors.NewCapacityError(a.Name, r.node, fmt.Errorf("%w: ranks per node=%d, cores per rank=%d, node has %d cores",
				errors.ErrRequestExceedsNodeCapacity, r.ranksPerNode, r.coresPerRank, template.Cores()))
		}

		list = append(list, r)
	}
	return list, nil
}

// fillSlots labels the CPU and GPU slots of r on node, starting at the
// first free slot of each kind.
func (p *Planner) fillSlots(node *topology.Node, r resolved) (*Assignment, error) {
	name := r.app.Name
	capacity := func(err error) error {
		return errors.NewCapacityError(name, r.node, err)
	}

	cpuStart := node.FirstFreeCPU()
	cpus := make([]int, 0, r.ranksPerNode*r.coresPerRank)
	for i := 0; i < r.ranksPerNode; i++ {
		for j := 0; j < r.coresPerRank; j++ {
			idx := cpuStart + i*r.coresPerRank + j
			if err := node.AssignCPU(idx, topology.Label(name, i)); err != nil {
				return nil, capacity(err)
			}
			cpus = append(cpus, idx)
		}
	}

	asg := &Assignment{
		Application:  name,
		NodeIndex:    r.node,
		NodeCount:    nodeCount(r),
		RanksPerNode: r.ranksPerNode,
		CoresPerRank: r.coresPerRank,
		CPUs:         cpuset.New(cpus...),
	}

	gpus, ranks, ok := r.app.GPUGroups()
	if !ok {
		return asg, nil
	}
	if gpus < 1 || ranks < 1 {
		panic(fmt.Sprintf("placement: gpu group %d:%d for %s", gpus, ranks, name))
	}

	groups := r.ranksPerNode / ranks
	gpuStart := node.FirstFreeGPU()
	for i := 0; i < groups; i++ {
		labels := make([]string, ranks)
		for k := 0; k < ranks; k++ {
			labels[k] = topology.Label(name, k+i*ranks)
		}
		for j := 0; j < gpus; j++ {
			idx := gpuStart + j + i*gpus
			if err := node.AssignGPU(idx, labels); err != nil {
				return nil, capacity(err)
			}
			asg.GPUs = append(asg.GPUs, GPUBinding{Slot: idx, Ranks: append([]string(nil), labels...)})
		}
	}
	return asg, nil
}

// nodeCount is how many physical nodes the per-node layout of r repeats on.
func nodeCount(r resolved) int {
	n := (r.app.Ranks + r.ranksPerNode - 1) / r.ranksPerNode
	if r.app.Nodes > n {
		n = r.app.Nodes
	}
	if n < 1 {
		n = 1
	}
	return n
}
