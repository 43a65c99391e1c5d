// Package topology describes the resource inventory of a compute node and
// the machines hpcompose knows how to place work on.
package topology

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ehsaniara/hpcompose/pkg/errors"

	"k8s.io/utils/cpuset"
)

// FreeLabel is how Describe renders an unoccupied CPU slot.
const FreeLabel = "free"

// Node is one compute node: an ordered list of CPU-core slots and an
// ordered list of GPU slots. The number of slots is fixed by New; only
// slot contents change while a plan is built.
type Node struct {
	cpu []string   // "" = free, otherwise "<app>:<rank>"
	gpu [][]string // nil = free, otherwise the ranks sharing the GPU
}

// New returns an empty node with the given shape.
func New(cores, gpus int) (*Node, error) {
	if cores < 1 {
		return nil, fmt.Errorf("%w: cores must be at least 1, got %d", errors.ErrInvalidTopology, cores)
	}
	if gpus < 0 {
		return nil, fmt.Errorf("%w: gpus must not be negative, got %d", errors.ErrInvalidTopology, gpus)
	}
	return &Node{
		cpu: make([]string, cores),
		gpu: make([][]string, gpus),
	}, nil
}

// Label formats the occupant label of a rank.
func Label(app string, rank int) string {
	return app + ":" + strconv.Itoa(rank)
}

// Clone returns a deep copy sharing no slices with n.
func (n *Node) Clone() *Node {
	c := &Node{
		cpu: make([]string, len(n.cpu)),
		gpu: make([][]string, len(n.gpu)),
	}
	copy(c.cpu, n.cpu)
	for i, g := range n.gpu {
		if g != nil {
			c.gpu[i] = append([]string(nil), g...)
		}
	}
	return c
}

func (n *Node) Cores() int { return len(n.cpu) }

func (n *Node) GPUs() int { return len(n.gpu) }

// CPU returns the occupant of CPU slot i, "" when free.
func (n *Node) CPU(i int) string {
	if i < 0 || i >= len(n.cpu) {
		return ""
	}
	return n.cpu[i]
}

// GPU returns a copy of the occupants of GPU slot i, nil when free.
func (n *Node) GPU(i int) []string {
	if i < 0 || i >= len(n.gpu) || n.gpu[i] == nil {
		return nil
	}
	return append([]string(nil), n.gpu[i]...)
}

func (n *Node) AssignCPU(i int, label string) error {
	if i < 0 || i >= len(n.cpu) {
		return fmt.Errorf("%w: cpu %d of %d", errors.ErrSlotIndexOutOfRange, i, len(n.cpu))
	}
	n.cpu[i] = label
	return nil
}

func (n *Node) AssignGPU(i int, labels []string) error {
	if i < 0 || i >= len(n.gpu) {
		return fmt.Errorf("%w: gpu %d of %d", errors.ErrSlotIndexOutOfRange, i, len(n.gpu))
	}
	n.gpu[i] = append([]string{}, labels...)
	return nil
}

// FirstFreeCPU returns the index of the first free CPU slot, or Cores()
// when the node is full.
func (n *Node) FirstFreeCPU() int {
	for i, c := range n.cpu {
		if c == "" {
			return i
		}
	}
	return len(n.cpu)
}

// FirstFreeGPU returns the index of the first free GPU slot, or GPUs()
// when every GPU is taken.
func (n *Node) FirstFreeGPU() int {
	for i, g := range n.gpu {
		if g == nil {
			return i
		}
	}
	return len(n.gpu)
}

// FreeCPUs counts unoccupied CPU slots.
func (n *Node) FreeCPUs() int {
	free := 0
	for _, c := range n.cpu {
		if c == "" {
			free++
		}
	}
	return free
}

// CPUsOf returns the CPU slots held by ranks of app.
func (n *Node) CPUsOf(app string) cpuset.CPUSet {
	prefix := app + ":"
	var ids []int
	for i, c := range n.cpu {
		if strings.HasPrefix(c, prefix) {
			ids = append(ids, i)
		}
	}
	return cpuset.New(ids...)
}

// Describe compresses runs of identical CPU labels into ranges, e.g.
// "0-3: A:0, 4-7: A:1, 8-15: free".
func (n *Node) Describe() string {
	var parts []string
	start := 0
	for i := 1; i <= len(n.cpu); i++ {
		if i < len(n.cpu) && n.cpu[i] == n.cpu[start] {
			continue
		}
		label := n.cpu[start]
		if label == "" {
			label = FreeLabel
		}
		if i-1 == start {
			parts = append(parts, fmt.Sprintf("%d: %s", start, label))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d: %s", start, i-1, label))
		}
		start = i
	}
	return strings.Join(parts, ", ")
}

// DescribeGPUs lists every GPU with its occupants, e.g. "0: [A:0 A:1], 1: free".
func (n *Node) DescribeGPUs() string {
	if len(n.gpu) == 0 {
		return "none"
	}
	parts := make([]string, len(n.gpu))
	for i, g := range n.gpu {
		if g == nil {
			parts[i] = fmt.Sprintf("%d: %s", i, FreeLabel)
			continue
		}
		parts[i] = fmt.Sprintf("%d: [%s]", i, strings.Join(g, " "))
	}
	return strings.Join(parts, ", ")
}

type nodeJSON struct {
	CPU []string   `json:"cpu"`
	GPU [][]string `json:"gpu"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{CPU: n.cpu, GPU: n.gpu})
}

// UnmarshalJSON restores a node written by MarshalJSON; the slot counts
// come from the document.
func (n *Node) UnmarshalJSON(data []byte) error {
	var doc nodeJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.CPU) < 1 {
		return fmt.Errorf("%w: node without cpu slots", errors.ErrInvalidTopology)
	}
	n.cpu = doc.CPU
	n.gpu = doc.GPU
	if n.gpu == nil {
		n.gpu = [][]string{}
	}
	return nil
}
