package workflow

import (
	"testing"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMachine(t *testing.T) {
	tests := []struct {
		name       string
		machine    string
		directives []string
		wantsGPU   bool
		want       string
		wantErr    error
	}{
		{"perlmutter gpu from applications", "perlmutter", nil, true, topology.MachinePerlmutterGPU, nil},
		{"perlmutter cpu guessed", "Perlmutter", nil, false, topology.MachinePerlmutterCPU, nil},
		{"perlmutter directive", "perlmutter", []string{"--constraint gpu"}, false, topology.MachinePerlmutterGPU, nil},
		{"named partition", "perlmutter_cpu", nil, true, topology.MachinePerlmutterCPU, nil},
		{"summit", "summit", nil, true, topology.MachineSummit, nil},
		{"unknown", "eniac", nil, false, "", errors.ErrUnknownMachine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ResolveMachine(tt.machine, tt.directives, tt.wantsGPU)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Name)
		})
	}
}

func TestTakeConstraint(t *testing.T) {
	tests := []struct {
		name       string
		directives []string
		want       string
		rest       []string
	}{
		{"none", []string{"--mail-type=END"}, "", []string{"--mail-type=END"}},
		{"equals", []string{"--constraint=gpu&hbm80g", "--exclusive"}, "gpu&hbm80g", []string{"--exclusive"}},
		{"space", []string{" --constraint cpu"}, "cpu", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rest := takeConstraint(tt.directives)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rest, rest)
		})
	}
}
