package launcher

import (
	"os/exec"
	"testing"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	p, err := Lookup("SRUN")
	require.NoError(t, err)
	assert.Equal(t, "srun", p.Command)

	flag, ok := p.Flag(FieldCoresPerRank)
	assert.True(t, ok)
	assert.Equal(t, "--cpus-per-task", flag)

	_, err = Lookup("aprun")
	assert.ErrorIs(t, err, errors.ErrUnknownLauncher)
}

func TestLookup_ReturnsCopy(t *testing.T) {
	p := mustProfile(t, ProfileSrun)
	p.Flags[0].Name = "--changed"

	again := mustProfile(t, ProfileSrun)
	assert.Equal(t, "--nodes", again.Flags[0].Name)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"jsrun", "mpiexec", "srun"}, Names())
}

func TestDetect(t *testing.T) {
	found := func(names ...string) LookPathFunc {
		return func(file string) (string, error) {
			for _, n := range names {
				if n == file {
					return "/usr/bin/" + file, nil
				}
			}
			return "", exec.ErrNotFound
		}
	}
	summit, err := topology.LookupMachine(topology.MachineSummit)
	require.NoError(t, err)
	local := topology.Machine{Name: topology.MachineLocal, Cores: 8}

	tests := []struct {
		name    string
		machine topology.Machine
		look    LookPathFunc
		want    string
		wantErr bool
	}{
		{"machine launcher wins", summit, found("srun"), ProfileJsrun, false},
		{"srun in path", local, found("srun", "mpiexec.hydra"), ProfileSrun, false},
		{"hydra in path", local, found("mpiexec.hydra"), ProfileMpiexec, false},
		{"nothing found", local, found(), "", true},
		{"no lookup", local, nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Detect(tt.machine, tt.look)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrUnknownLauncher)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}
