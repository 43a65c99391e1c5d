package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/executor/executorfakes"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/workflow"
	"github.com/ehsaniara/hpcompose/pkg/errors"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWorkflow = `
name: campaign
machine: local
node: {cores: 8, gpus: 0}
applications:
  - name: sim
    executable: /bin/sim
    ranks: 4
    ranks_per_node: 4
    cores_per_rank: 2
  - name: post
    executable: /bin/post
    depends_on: [sim]
`

type fixture struct {
	dir      string
	config   string
	workflow string
	runner   *executorfakes.FakeCommandRunner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:      dir,
		config:   filepath.Join(dir, "hpcompose.yml"),
		workflow: filepath.Join(dir, "workflow.yaml"),
		runner:   &executorfakes.FakeCommandRunner{},
	}
	cfg := "logging:\n  level: warn\n" +
		"launcher:\n  name: srun\n" +
		"scheduler:\n  name: none\n" +
		"workflow:\n  parent_directory: " + filepath.Join(dir, "runs") + "\n  subdirs: true\n"
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(f.workflow, []byte(testWorkflow), 0o644))
	return f
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &options{composerOpts: []workflow.Option{workflow.WithRunner(f.runner)}}
	cmd := newRootCmd(opts)

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", f.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "hpcompose", cmd.Use)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"plan", "create", "submit", "machines", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
	for _, flag := range []string{"config", "log-level", "json"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   map[string]string
	}{
		{"submit", map[string]string{"local": "false"}},
		{"plan", map[string]string{}},
		{"create", map[string]string{}},
	}
	root := NewRootCmd()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd, _, err := root.Find([]string{tt.command})
			require.NoError(t, err)

			got := map[string]string{}
			cmd.LocalNonPersistentFlags().VisitAll(func(flag *pflag.Flag) {
				if flag.Name == "help" {
					return
				}
				got[flag.Name] = flag.DefValue
			})
			assert.Equal(t, tt.flags, got)
		})
	}
}

func TestMachinesCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "machines")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, topology.MachinePerlmutterGPU)
	assert.Contains(t, out, "jsrun")

	out, err = f.run(t, "machines", "--json")
	require.NoError(t, err)
	var machines []topology.Machine
	require.NoError(t, json.Unmarshal([]byte(out), &machines))
	assert.Len(t, machines, len(topology.Machines()))
}

func TestVersionCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "hpcompose version "))

	out, err = f.run(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "hpcompose", info["component"])
}

func TestPlanCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "plan", f.workflow)
	require.NoError(t, err)
	assert.Contains(t, out, "Workflow campaign on local (8 cores, 0 gpus per node)")
	assert.Contains(t, out, "Nodes required: 2")
	assert.Contains(t, out, "Compute node 0 cpus --> ")
	assert.Contains(t, out, "sim: srun ")
	assert.Contains(t, out, "post: srun ")
	assert.NoDirExists(t, filepath.Join(f.dir, "runs"))

	out, err = f.run(t, "plan", "--json", f.workflow)
	require.NoError(t, err)
	var rec workflow.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "campaign", rec.Name)
	require.NotNil(t, rec.Plan)
	assert.Equal(t, 2, rec.Plan.Len())
}

func TestCreateAndSubmitLocal(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "create", f.workflow)
	require.NoError(t, err)
	dir := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(f.dir, "runs", "campaign"), dir)
	assert.FileExists(t, filepath.Join(dir, workflow.RecordFile))
	assert.FileExists(t, filepath.Join(dir, "sim", "sim.sh"))

	_, err = f.run(t, "create", f.workflow)
	assert.ErrorIs(t, err, errors.ErrDirectoryExists)

	_, err = f.run(t, "submit", "--local", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, f.runner.RunCallCount())
	assert.FileExists(t, filepath.Join(dir, workflow.DoneFile))
}

func TestSubmitCommand_NotARun(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "submit", f.dir)
	assert.ErrorIs(t, err, errors.ErrRecordNotFound)
}

func TestCommandErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		args []string
	}{
		{"plan without file", []string{"plan"}},
		{"plan missing file", []string{"plan", filepath.Join(f.dir, "missing.yaml")}},
		{"bad log level", []string{"--log-level", "loud", "machines"}},
		{"machines with argument", []string{"machines", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}
