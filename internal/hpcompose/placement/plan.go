package placement

import (
	"encoding/json"
	"fmt"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"

	"github.com/elliotchance/orderedmap/v2"
	"k8s.io/utils/cpuset"
)

// GPUBinding is one GPU slot and the ranks bound to it.
type GPUBinding struct {
	Slot  int      `json:"slot"`
	Ranks []string `json:"ranks"`
}

// Assignment is where one application landed. NodeIndex points into
// Plan.Nodes; the node layout repeats on NodeCount physical nodes.
type Assignment struct {
	Application  string
	NodeIndex    int
	NodeCount    int
	Login        bool
	RanksPerNode int
	CoresPerRank int
	CPUs         cpuset.CPUSet
	GPUs         []GPUBinding
}

type assignmentJSON struct {
	Application  string       `json:"application"`
	NodeIndex    int          `json:"node_index"`
	NodeCount    int          `json:"node_count"`
	Login        bool         `json:"login,omitempty"`
	RanksPerNode int          `json:"ranks_per_node"`
	CoresPerRank int          `json:"cores_per_rank"`
	CPUs         string       `json:"cpus"`
	GPUs         []GPUBinding `json:"gpus,omitempty"`
}

func (a *Assignment) MarshalJSON() ([]byte, error) {
	return json.Marshal(assignmentJSON{
		Application:  a.Application,
		NodeIndex:    a.NodeIndex,
		NodeCount:    a.NodeCount,
		Login:        a.Login,
		RanksPerNode: a.RanksPerNode,
		CoresPerRank: a.CoresPerRank,
		CPUs:         a.CPUs.String(),
		GPUs:         a.GPUs,
	})
}

func (a *Assignment) UnmarshalJSON(data []byte) error {
	var doc assignmentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	cpus, err := cpuset.Parse(doc.CPUs)
	if err != nil {
		return fmt.Errorf("assignment %s: cpus %q: %w", doc.Application, doc.CPUs, err)
	}
	*a = Assignment{
		Application:  doc.Application,
		NodeIndex:    doc.NodeIndex,
		NodeCount:    doc.NodeCount,
		Login:        doc.Login,
		RanksPerNode: doc.RanksPerNode,
		CoresPerRank: doc.CoresPerRank,
		CPUs:         cpus,
		GPUs:         doc.GPUs,
	}
	return nil
}

// Plan is the result of placing a workflow's applications. It is read-only
// once returned by Planner.Plan.
type Plan struct {
	Nodes []*topology.Node
	// LoginIndex is the index of the shared login node, -1 without one.
	LoginIndex int
	// UseNodes sums the whole nodes login-node applications drive.
	UseNodes int

	assignments *orderedmap.OrderedMap[string, *Assignment]
}

func newPlan() *Plan {
	return &Plan{
		LoginIndex:  -1,
		assignments: orderedmap.NewOrderedMap[string, *Assignment](),
	}
}

// Assignment returns the placement of the named application.
func (p *Plan) Assignment(name string) (*Assignment, bool) {
	return p.assignments.Get(name)
}

// Assignments returns every assignment in the order applications were given.
func (p *Plan) Assignments() []*Assignment {
	list := make([]*Assignment, 0, p.assignments.Len())
	for el := p.assignments.Front(); el != nil; el = el.Next() {
		list = append(list, el.Value)
	}
	return list
}

func (p *Plan) Len() int {
	return p.assignments.Len()
}

// RequiredNodes is the node count to ask the scheduler for. Each planned
// node stands for as many physical nodes as its widest application spans.
// The login node is replaced by the nodes its applications drive when they
// drive more than one.
func (p *Plan) RequiredNodes() int {
	span := make([]int, len(p.Nodes))
	for _, a := range p.Assignments() {
		if a.NodeCount > span[a.NodeIndex] {
			span[a.NodeIndex] = a.NodeCount
		}
	}
	total := 0
	for _, n := range span {
		total += n
	}
	if p.LoginIndex >= 0 && p.UseNodes > 1 {
		total = total - 1 + p.UseNodes
	}
	return total
}

// Describe renders one line per node and resource kind for debug output.
func (p *Plan) Describe() []string {
	var lines []string
	for i, n := range p.Nodes {
		if i == p.LoginIndex {
			lines = append(lines, fmt.Sprintf("Login node (no MPI): %s", n.Describe()))
			continue
		}
		lines = append(lines,
			fmt.Sprintf("Compute node %d cpus --> %s", i, n.Describe()),
			fmt.Sprintf("Compute node %d gpus --> %s", i, n.DescribeGPUs()),
		)
	}
	return lines
}

type planJSON struct {
	Nodes       []*topology.Node `json:"nodes"`
	LoginIndex  int              `json:"login_index"`
	UseNodes    int              `json:"use_nodes,omitempty"`
	Assignments []*Assignment    `json:"assignments"`
}

func (p *Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(planJSON{
		Nodes:       p.Nodes,
		LoginIndex:  p.LoginIndex,
		UseNodes:    p.UseNodes,
		Assignments: p.Assignments(),
	})
}

func (p *Plan) UnmarshalJSON(data []byte) error {
	var doc planJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	restored := newPlan()
	restored.Nodes = doc.Nodes
	restored.LoginIndex = doc.LoginIndex
	restored.UseNodes = doc.UseNodes
	for _, a := range doc.Assignments {
		if a.NodeIndex < 0 || a.NodeIndex >= len(doc.Nodes) {
			return fmt.Errorf("assignment %s: node index %d out of range", a.Application, a.NodeIndex)
		}
		restored.assignments.Set(a.Application, a)
	}
	*p = *restored
	return nil
}
