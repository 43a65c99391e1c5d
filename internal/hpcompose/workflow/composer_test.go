package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/backup"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/batch"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/executor"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/executor/executorfakes"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/launcher"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testbox = topology.Machine{Name: "testbox", Cores: 8}

func mustApp(t *testing.T, name string, opts ...app.Option) *app.Application {
	t.Helper()
	a, err := app.New(name, "/bin/"+name, opts...)
	require.NoError(t, err)
	return a
}

func srun(t *testing.T) launcher.Profile {
	t.Helper()
	p, err := launcher.Lookup(launcher.ProfileSrun)
	require.NoError(t, err)
	return p
}

func slurm(t *testing.T) batch.Scheduler {
	t.Helper()
	s, err := batch.Lookup(batch.SchedulerSlurm)
	require.NoError(t, err)
	return s
}

func newComposer(t *testing.T, runner *executorfakes.FakeCommandRunner, opts ...Option) *Composer {
	t.Helper()
	base := []Option{WithRunner(runner), WithLauncher(srun(t)), WithSubmitRetry(3, 0)}
	return NewComposer(append(base, opts...)...)
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWorkflow_Add(t *testing.T) {
	w := New("campaign", t.TempDir(), testbox)
	require.NoError(t, w.Add(mustApp(t, "sim", app.WithRanks(1))))

	err := w.Add(mustApp(t, "sim", app.WithRanks(1)))
	assert.ErrorIs(t, err, errors.ErrDuplicateApplication)
	assert.Len(t, w.Applications, 1)
}

func TestWorkflow_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		wfName     string
		parent     string
		wantName   string
		wantParent string
		wantErr    bool
	}{
		{"both set", "run", "/scratch", "run", "/scratch", false},
		{"name only", "run", "", "run", ".", false},
		{"parent only", "", "/scratch/campaign/", "campaign", "/scratch/campaign/", false},
		{"neither", "", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(tt.wfName, tt.parent, testbox)
			err := w.normalize()
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, w.Name)
			assert.Equal(t, tt.wantParent, w.ParentDirectory)
		})
	}
}

func TestWorkflow_SetMPMD(t *testing.T) {
	w := New("run", t.TempDir(), testbox)
	w.SetMPMD(true)
	assert.True(t, w.MPMD)
	assert.False(t, w.Subdirs)
}

func TestWorkflow_DirectoryTimeIndex(t *testing.T) {
	parent := t.TempDir()
	w := New("run", parent, testbox)
	now := time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)

	dir, err := w.Directory(now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "run"), dir)

	w.TimeIndex = true
	dir, err = w.Directory(now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "run.2026-03-01.14.05.09"), dir)
}

func TestCreate_MaterializesRunDirectory(t *testing.T) {
	src := t.TempDir()
	mesh := writeFile(t, filepath.Join(src, "mesh.dat"), "mesh")
	writeFile(t, filepath.Join(src, "tables", "eos.txt"), "eos")
	setup := writeFile(t, filepath.Join(src, "env.sh"), "export OMP_NUM_THREADS=2\n")
	appSetup := writeFile(t, filepath.Join(src, "sim-env.sh"), "module load sim\n")

	w := New("campaign", t.TempDir(), testbox)
	w.SetupFile = setup
	w.Inputs = []app.Input{{Path: filepath.Join(src, "tables")}}
	require.NoError(t, w.Add(
		mustApp(t, "sim", app.WithRanks(4), app.WithRanksPerNode(4), app.WithCoresPerRank(2),
			app.WithArguments("--steps", "10"),
			app.WithSetupFile(appSetup),
			app.WithInputs(
				app.Input{Path: mesh, OutPath: "data", Rename: "grid.dat"},
				app.Input{Path: mesh, Link: true},
			)),
		mustApp(t, "post", app.WithRanks(1), app.WithDependsOn("sim")),
	))

	rec, err := newComposer(t, &executorfakes.FakeCommandRunner{}, WithoutScheduler()).Create(w)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.RunID)
	assert.Equal(t, "srun", rec.Launcher)
	assert.Empty(t, rec.Scheduler)
	assert.Equal(t, "env.sh", rec.SetupFile)
	assert.FileExists(t, rec.Path("env.sh"))
	assert.FileExists(t, rec.Path(filepath.Join("tables", "eos.txt")))

	sim, ok := rec.Application("sim")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(rec.Directory, "sim"), sim.Directory)
	assert.Equal(t, "sim-env.sh", sim.SetupFile)
	assert.Equal(t, []string{"/bin/sim", "--steps", "10"}, sim.Command[len(sim.Command)-3:])
	assert.Equal(t, "srun", sim.Command[0])

	data, err := os.ReadFile(filepath.Join(sim.Directory, "data", "grid.dat"))
	require.NoError(t, err)
	assert.Equal(t, "mesh", string(data))

	target, err := os.Readlink(filepath.Join(sim.Directory, "mesh.dat"))
	require.NoError(t, err)
	assert.Equal(t, mesh, target)

	script, err := os.ReadFile(filepath.Join(sim.Directory, "sim.sh"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(script)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "#!/bin/sh", lines[0])
	assert.Equal(t, ". "+rec.Path("env.sh"), lines[1])
	assert.Equal(t, ". "+filepath.Join(sim.Directory, "sim-env.sh"), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "exec srun "))
	assert.True(t, strings.HasSuffix(lines[3], "/bin/sim --steps 10"))

	// the caller's application keeps its original setup path
	orig, _ := w.Application("sim")
	assert.Equal(t, appSetup, orig.SetupFile)

	loaded, err := LoadRecord(rec.Directory)
	require.NoError(t, err)
	assert.Equal(t, rec.RunID, loaded.RunID)
	require.Len(t, loaded.Applications, 2)
	assert.Equal(t, "post", loaded.Applications[1].Name)
	assert.Equal(t, []string{"sim"}, loaded.Applications[1].DependsOn)
	asg, ok := loaded.Plan.Assignment("sim")
	require.True(t, ok)
	assert.Equal(t, 2, asg.CoresPerRank)
}

func TestCreate_DirectoryExists(t *testing.T) {
	parent := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(parent, "run"), 0o755))

	w := New("run", parent, testbox)
	require.NoError(t, w.Add(mustApp(t, "sim", app.WithRanks(1))))

	_, err := newComposer(t, &executorfakes.FakeCommandRunner{}, WithoutScheduler()).Create(w)
	assert.ErrorIs(t, err, errors.ErrDirectoryExists)
}

func TestCreate_InvalidWorkflowWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		apps func(t *testing.T) []*app.Application
		want error
	}{
		{
			name: "missing ranks per node",
			apps: func(t *testing.T) []*app.Application {
				return []*app.Application{mustApp(t, "sim", app.WithRanks(4))}
			},
			want: errors.ErrMissingRanksPerNode,
		},
		{
			name: "unknown dependency",
			apps: func(t *testing.T) []*app.Application {
				return []*app.Application{mustApp(t, "sim", app.WithRanks(1), app.WithDependsOn("mesh"))}
			},
			want: errors.ErrUnknownDependency,
		},
		{
			name: "too large for the node",
			apps: func(t *testing.T) []*app.Application {
				return []*app.Application{mustApp(t, "sim", app.WithRanks(16), app.WithRanksPerNode(16))}
			},
			want: errors.ErrRequestExceedsNodeCapacity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := t.TempDir()
			w := New("run", parent, testbox)
			require.NoError(t, w.Add(tt.apps(t)...))

			_, err := newComposer(t, &executorfakes.FakeCommandRunner{}, WithoutScheduler()).Create(w)
			assert.ErrorIs(t, err, tt.want)
			assert.NoDirExists(t, filepath.Join(parent, "run"))
		})
	}
}

func TestCreate_MPMDSharesDirectory(t *testing.T) {
	w := New("coupled", t.TempDir(), testbox)
	w.SetMPMD(true)
	require.NoError(t, w.Add(
		mustApp(t, "ocean", app.WithRanks(2), app.WithRanksPerNode(2), app.WithCoresPerRank(2), app.WithShareKey("n")),
		mustApp(t, "atmos", app.WithRanks(2), app.WithRanksPerNode(2), app.WithCoresPerRank(2), app.WithShareKey("n")),
	))

	rec, err := newComposer(t, &executorfakes.FakeCommandRunner{}, WithoutScheduler()).Create(w)
	require.NoError(t, err)
	for _, ar := range rec.Applications {
		assert.Equal(t, rec.Directory, ar.Directory)
		assert.FileExists(t, filepath.Join(rec.Directory, ar.Name+".sh"))
	}
	assert.Equal(t, 1, rec.Plan.RequiredNodes())
}

func TestCreate_LoginNodeApplication(t *testing.T) {
	driver, err := app.NewLoginNode("driver", "/bin/driver", 3)
	require.NoError(t, err)

	w := New("ensemble", t.TempDir(), testbox)
	require.NoError(t, w.Add(driver))

	rec, err := newComposer(t, &executorfakes.FakeCommandRunner{}, WithoutScheduler()).Create(w)
	require.NoError(t, err)

	ar, _ := rec.Application("driver")
	assert.Equal(t, []string{"/bin/driver"}, ar.Command)

	data, err := os.ReadFile(filepath.Join(ar.Directory, NodeInfoFile))
	require.NoError(t, err)
	var info map[string]int
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, map[string]int{"UseNodes": 3, "cpus": 8, "gpus": 0}, info)
	assert.Equal(t, 3, rec.Job.Nodes)
}

func TestCreate_NoLauncherStartsDirectly(t *testing.T) {
	runner := &executorfakes.FakeCommandRunner{}
	runner.LookPathReturns("", fmt.Errorf("not found"))

	w := New("run", t.TempDir(), testbox)
	require.NoError(t, w.Add(mustApp(t, "sim", app.WithRanks(1), app.WithArguments("-v"))))

	rec, err := NewComposer(WithRunner(runner), WithoutScheduler()).Create(w)
	require.NoError(t, err)
	assert.Empty(t, rec.Launcher)
	assert.Equal(t, []string{"/bin/sim", "-v"}, rec.Applications[0].Command)
	assert.Equal(t, 2, runner.LookPathCallCount())
}

func TestPlan_JobDefaults(t *testing.T) {
	machine, err := ResolveMachine(topology.MachinePerlmutter, nil, true)
	require.NoError(t, err)

	w := New("run", t.TempDir(), machine)
	w.Job.Charge = "m1234"
	w.Job.Walltime = 90 * time.Minute
	require.NoError(t, w.Add(
		mustApp(t, "train", app.WithRanks(8), app.WithRanksPerNode(4), app.WithGPUsPerRank(app.GPUsPerRank(1))),
	))

	rec, err := newComposer(t, &executorfakes.FakeCommandRunner{}).Plan(w)
	require.NoError(t, err)
	assert.Equal(t, batch.SchedulerSlurm, rec.Scheduler)
	assert.Equal(t, 2, rec.Job.Nodes)
	assert.Equal(t, "gpu", rec.Job.Constraint)
	assert.Equal(t, "run", rec.Job.Workflow)
	assert.NoDirExists(t, filepath.Join(w.ParentDirectory, "run"))
}

func TestPlan_ConstraintDirectiveWins(t *testing.T) {
	directives := []string{"--constraint=cpu"}
	machine, err := ResolveMachine(topology.MachinePerlmutter, directives, false)
	require.NoError(t, err)
	assert.Equal(t, topology.MachinePerlmutterCPU, machine.Name)

	w := New("run", t.TempDir(), machine)
	w.Job = batch.Job{Charge: "m1234", Walltime: time.Hour, Directives: directives}
	require.NoError(t, w.Add(mustApp(t, "sim", app.WithRanks(1))))

	rec, err := newComposer(t, &executorfakes.FakeCommandRunner{}).Plan(w)
	require.NoError(t, err)
	assert.Equal(t, "cpu", rec.Job.Constraint)
	assert.Empty(t, rec.Job.Directives)
}

func TestPlan_MissingRequiredDirective(t *testing.T) {
	machine, err := topology.LookupMachine(topology.MachineFrontier)
	require.NoError(t, err)

	w := New("run", t.TempDir(), machine)
	require.NoError(t, w.Add(mustApp(t, "sim", app.WithRanks(1))))

	_, err = newComposer(t, &executorfakes.FakeCommandRunner{}).Plan(w)
	assert.ErrorIs(t, err, errors.ErrMissingDirective)
	assert.Contains(t, err.Error(), "Charge")
}

func createRun(t *testing.T, c *Composer, apps ...*app.Application) *Record {
	t.Helper()
	w := New("run", t.TempDir(), testbox)
	require.NoError(t, w.Add(apps...))
	rec, err := c.Create(w)
	require.NoError(t, err)
	return rec
}

func TestSubmit_Slurm(t *testing.T) {
	runner := &executorfakes.FakeCommandRunner{}
	runner.OutputReturns([]byte("4242;perlmutter\n"), nil)
	c := newComposer(t, runner, WithScheduler(slurm(t)), WithSubmitCommand("/opt/hpcompose/bin/hpcompose"))

	rec := createRun(t, c, mustApp(t, "sim", app.WithRanks(1)))
	require.NoError(t, os.WriteFile(rec.Path(DoneFile), nil, 0o644))

	id, err := c.Submit(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "4242", id)
	assert.NoFileExists(t, rec.Path(DoneFile))

	require.Equal(t, 1, runner.OutputCallCount())
	_, cmd := runner.OutputArgsForCall(0)
	assert.Equal(t, "sbatch", cmd.Args[0])
	assert.Equal(t, "--parsable", cmd.Args[1])
	assert.Contains(t, cmd.Args, "--nodes")
	assert.Equal(t, rec.Path(SubmitScript), cmd.Args[len(cmd.Args)-1])
	assert.Equal(t, rec.Directory, cmd.Dir)

	script, err := os.ReadFile(rec.Path(SubmitScript))
	require.NoError(t, err)
	assert.Contains(t, string(script), "#SBATCH --nodes 1\n")
	assert.Contains(t, string(script), "#SBATCH --job-name run\n")
	assert.Contains(t, string(script), "exec /opt/hpcompose/bin/hpcompose submit --local "+rec.Directory+"\n")

	loaded, err := LoadRecord(rec.Directory)
	require.NoError(t, err)
	assert.Equal(t, "4242", loaded.JobID)
	assert.Zero(t, runner.RunCallCount())
}

func TestSubmit_RetriesTransientFailures(t *testing.T) {
	runner := &executorfakes.FakeCommandRunner{}
	runner.OutputReturnsOnCall(0, nil, fmt.Errorf("sbatch: error: Socket timed out"))
	runner.OutputReturnsOnCall(1, []byte("77\n"), nil)
	c := newComposer(t, runner, WithScheduler(slurm(t)))

	rec := createRun(t, c, mustApp(t, "sim", app.WithRanks(1)))
	id, err := c.Submit(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "77", id)
	assert.Equal(t, 2, runner.OutputCallCount())
}

func TestSubmit_GivesUpAfterRetries(t *testing.T) {
	runner := &executorfakes.FakeCommandRunner{}
	runner.OutputReturns(nil, fmt.Errorf("sbatch: error: Batch job submission failed"))
	c := newComposer(t, runner, WithScheduler(slurm(t)), WithSubmitRetry(2, 0))

	rec := createRun(t, c, mustApp(t, "sim", app.WithRanks(1)))
	_, err := c.Submit(context.Background(), rec)
	assert.ErrorIs(t, err, errors.ErrSubmitFailed)
	assert.True(t, errors.IsSchedulerError(err))
	assert.Equal(t, 2, runner.OutputCallCount())
}

func TestSubmit_UnreadableJobIDIsNotResubmitted(t *testing.T) {
	runner := &executorfakes.FakeCommandRunner{}
	runner.OutputReturns([]byte("\n"), nil)
	c := newComposer(t, runner, WithScheduler(slurm(t)))

	rec := createRun(t, c, mustApp(t, "sim", app.WithRanks(1)))
	_, err := c.Submit(context.Background(), rec)
	assert.ErrorIs(t, err, errors.ErrSubmitFailed)
	assert.Equal(t, 1, runner.OutputCallCount())
}

func TestSubmit_WritesBackupManifest(t *testing.T) {
	endpointFile := writeFile(t, filepath.Join(t.TempDir(), "endpoint"), "src-endpoint\n")
	runner := &executorfakes.FakeCommandRunner{}
	c := newComposer(t, runner, WithoutScheduler(), WithSourceEndpointFile(endpointFile), WithRecursiveSymlinks("keep"))

	w := New("run", t.TempDir(), testbox)
	require.NoError(t, w.Add(mustApp(t, "sim", app.WithRanks(1))))
	entry, err := backup.SendData("sim/out.h5", "/archive/run", "")
	require.NoError(t, err)
	w.Backup["archive"] = backup.Destination{ID: "dest-endpoint", Paths: []backup.Entry{entry}}

	rec, err := c.Create(w)
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), rec)
	require.NoError(t, err)

	m, err := backup.Read(rec.Path(backup.FileName))
	require.NoError(t, err)
	assert.Equal(t, "src-endpoint", m.Source)
	assert.Equal(t, "keep", m.RecursiveSymlinks)
	assert.Equal(t, rec.Path(DoneFile), m.ReadyFile)
	assert.Equal(t, "dest-endpoint", m.Endpoints["archive"].ID)
}

func TestSubmit_MissingSourceEndpoint(t *testing.T) {
	c := newComposer(t, &executorfakes.FakeCommandRunner{}, WithoutScheduler(),
		WithSourceEndpointFile(filepath.Join(t.TempDir(), "missing")))

	w := New("run", t.TempDir(), testbox)
	require.NoError(t, w.Add(mustApp(t, "sim", app.WithRanks(1))))
	w.Backup["archive"] = backup.Destination{ID: "dest"}

	rec, err := c.Create(w)
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), rec)
	assert.True(t, errors.IsConfigError(err))
}

func TestRunLocal_DependencyOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	runner := &executorfakes.FakeCommandRunner{}
	runner.RunCalls(func(_ context.Context, cmd executor.Command) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, filepath.Base(cmd.Args[1]))
		return nil
	})
	c := newComposer(t, runner, WithoutScheduler())

	rec := createRun(t, c,
		mustApp(t, "post", app.WithRanks(1), app.WithDependsOn("sim")),
		mustApp(t, "sim", app.WithRanks(1), app.WithDependsOn("mesh")),
		mustApp(t, "mesh", app.WithRanks(1), app.WithEnv("B", "2"), app.WithEnv("A", "1")),
	)

	require.NoError(t, c.RunLocal(context.Background(), rec))
	assert.Equal(t, []string{"mesh.sh", "sim.sh", "post.sh"}, order)
	assert.FileExists(t, rec.Path(DoneFile))

	for i := 0; i < runner.RunCallCount(); i++ {
		_, cmd := runner.RunArgsForCall(i)
		assert.Equal(t, "/bin/sh", cmd.Args[0])
		if filepath.Base(cmd.Args[1]) == "mesh.sh" {
			assert.Equal(t, []string{"A=1", "B=2"}, cmd.Env)
			assert.Equal(t, filepath.Join(rec.Directory, "mesh"), cmd.Dir)
		}
	}
}

func TestRunLocal_FailureStopsDependents(t *testing.T) {
	runner := &executorfakes.FakeCommandRunner{}
	runner.RunCalls(func(_ context.Context, cmd executor.Command) error {
		if filepath.Base(cmd.Args[1]) == "sim.sh" {
			return fmt.Errorf("exit status 3")
		}
		return nil
	})
	c := newComposer(t, runner, WithoutScheduler())

	rec := createRun(t, c,
		mustApp(t, "sim", app.WithRanks(1)),
		mustApp(t, "post", app.WithRanks(1), app.WithDependsOn("sim")),
	)

	err := c.RunLocal(context.Background(), rec)
	assert.ErrorIs(t, err, errors.ErrApplicationFailed)
	assert.Contains(t, err.Error(), "sim")
	assert.Equal(t, 1, runner.RunCallCount())
	assert.NoFileExists(t, rec.Path(DoneFile))
}

func TestRunLocal_CyclicRecord(t *testing.T) {
	runner := &executorfakes.FakeCommandRunner{}
	c := newComposer(t, runner, WithoutScheduler())

	rec := createRun(t, c,
		mustApp(t, "sim", app.WithRanks(1)),
		mustApp(t, "post", app.WithRanks(1), app.WithDependsOn("sim")),
	)
	sim, ok := rec.Application("sim")
	require.True(t, ok)
	sim.DependsOn = []string{"post"}
	require.NoError(t, rec.Save())

	loaded, err := LoadRecord(rec.Directory)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = c.RunLocal(ctx, loaded)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCyclicDependency)
	assert.True(t, errors.IsWorkflowError(err))
	assert.NoError(t, ctx.Err())
	assert.Equal(t, 0, runner.RunCallCount())
	assert.NoFileExists(t, loaded.Path(DoneFile))
}

func TestRunLocal_LogFile(t *testing.T) {
	runner := &executorfakes.FakeCommandRunner{}
	runner.RunCalls(func(_ context.Context, cmd executor.Command) error {
		_, err := fmt.Fprintf(cmd.Stdout, "hello from %s\n", filepath.Base(cmd.Args[1]))
		return err
	})
	var stdout bytes.Buffer
	c := newComposer(t, runner, WithoutScheduler(), WithOutput(&stdout, &stdout))

	rec := createRun(t, c,
		mustApp(t, "sim", app.WithRanks(1), app.WithLogFile("sim.log")),
		mustApp(t, "post", app.WithRanks(1)),
	)
	require.NoError(t, c.RunLocal(context.Background(), rec))

	data, err := os.ReadFile(filepath.Join(rec.Directory, "sim", "sim.log"))
	require.NoError(t, err)
	assert.Equal(t, "hello from sim.sh\n", string(data))
	assert.Equal(t, "hello from post.sh\n", stdout.String())
}

func TestSubmit_LocalRunsInPlace(t *testing.T) {
	runner := &executorfakes.FakeCommandRunner{}
	c := newComposer(t, runner, WithoutScheduler())

	rec := createRun(t, c, mustApp(t, "sim", app.WithRanks(1)))
	id, err := c.Submit(context.Background(), rec)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, 1, runner.RunCallCount())
	assert.Zero(t, runner.OutputCallCount())
	assert.FileExists(t, rec.Path(DoneFile))
}

func TestLoadRecord_NotFound(t *testing.T) {
	_, err := LoadRecord(t.TempDir())
	assert.ErrorIs(t, err, errors.ErrRecordNotFound)
}
