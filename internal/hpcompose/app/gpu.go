package app

import (
	"fmt"
	"strconv"
	"strings"
)

// GPURatio says GPUs GPUs are shared by Ranks ranks.
type GPURatio struct {
	GPUs  int `json:"gpus"`
	Ranks int `json:"ranks"`
}

// GPUsPerRank is the integer form of a gpus-per-rank request: g GPUs for
// every rank.
func GPUsPerRank(g int) GPURatio {
	return GPURatio{GPUs: g, Ranks: 1}
}

// RanksPerGPU is the integer form of a ranks-per-gpu request: r ranks on
// every GPU.
func RanksPerGPU(r int) GPURatio {
	return GPURatio{GPUs: 1, Ranks: r}
}

// ParseGPUsPerRank accepts "g" or "g:r".
func ParseGPUsPerRank(s string) (GPURatio, error) {
	first, second, err := parsePair(s)
	if err != nil {
		return GPURatio{}, fmt.Errorf("gpus per rank %q: %w", s, err)
	}
	if second == 0 {
		return GPUsPerRank(first), nil
	}
	return GPURatio{GPUs: first, Ranks: second}, nil
}

// ParseRanksPerGPU accepts "r" or "r:g". The field order is the reverse of
// ParseGPUsPerRank.
func ParseRanksPerGPU(s string) (GPURatio, error) {
	first, second, err := parsePair(s)
	if err != nil {
		return GPURatio{}, fmt.Errorf("ranks per gpu %q: %w", s, err)
	}
	if second == 0 {
		return RanksPerGPU(first), nil
	}
	return GPURatio{GPUs: second, Ranks: first}, nil
}

// parsePair returns second == 0 for the single-number form.
func parsePair(s string) (first, second int, err error) {
	head, tail, found := strings.Cut(strings.TrimSpace(s), ":")
	if first, err = strconv.Atoi(head); err != nil {
		return 0, 0, fmt.Errorf("not an integer")
	}
	if !found {
		if first < 1 {
			return 0, 0, fmt.Errorf("must be at least 1")
		}
		return first, 0, nil
	}
	if second, err = strconv.Atoi(tail); err != nil {
		return 0, 0, fmt.Errorf("not an integer pair")
	}
	if first < 1 || second < 1 {
		return 0, 0, fmt.Errorf("both numbers must be at least 1")
	}
	return first, second, nil
}

func (r GPURatio) validate() error {
	if r.GPUs < 1 || r.Ranks < 1 {
		return fmt.Errorf("gpu ratio %d:%d must be positive", r.GPUs, r.Ranks)
	}
	return nil
}

// String renders the ratio as "gpus:ranks".
func (r GPURatio) String() string {
	return fmt.Sprintf("%d:%d", r.GPUs, r.Ranks)
}
