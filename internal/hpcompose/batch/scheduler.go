// Package batch builds batch scheduler submissions (sbatch, bsub) for a
// workflow run directory.
package batch

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"
	"github.com/ehsaniara/hpcompose/pkg/errors"
)

// Field is a Job directive a scheduler may take a flag for.
type Field string

const (
	FieldCharge      Field = "Charge"
	FieldQOS         Field = "QOS"
	FieldWalltime    Field = "Walltime"
	FieldNodes       Field = "Nodes"
	FieldConstraint  Field = "Constraint"
	FieldPartition   Field = "Partition"
	FieldQueue       Field = "Queue"
	FieldReservation Field = "Reservation"
	FieldJobName     Field = "JobName"
	FieldOutput      Field = "Output"
	FieldError       Field = "Error"
)

// Flag maps a Job field to a submission flag.
type Flag struct {
	Field Field
	Name  string
}

// Scheduler describes a batch system. Flags are emitted in table order.
type Scheduler struct {
	Name      string
	Command   string
	Directive string
	Always    []string
	Flags     []Flag
	// Required fields must be set on every job.
	Required []Field

	walltime      func(job Job) string
	defaultOutput func(job Job) string
	dependency    func(ids []string) []string
	jobID         func(stdout string) (string, error)
}

const (
	SchedulerSlurm = "slurm"
	SchedulerLSF   = "lsf"
)

var lsfJobID = regexp.MustCompile(`Job <(\d+)>`)

var schedulers = map[string]Scheduler{
	SchedulerSlurm: {
		Name:      SchedulerSlurm,
		Command:   "sbatch",
		Directive: "#SBATCH",
		Always:    []string{"--parsable"},
		Flags: []Flag{
			{FieldCharge, "--account"},
			{FieldQOS, "--qos"},
			{FieldWalltime, "--time"},
			{FieldNodes, "--nodes"},
			{FieldConstraint, "--constraint"},
			{FieldPartition, "--partition"},
			{FieldJobName, "--job-name"},
			{FieldOutput, "--output"},
			{FieldError, "--error"},
			{FieldReservation, "--reservation"},
		},
		walltime: func(job Job) string { return hms(job.Walltime) },
		defaultOutput: func(job Job) string {
			return filepath.Join(job.Directory, "%x-%j.out")
		},
		dependency: func(ids []string) []string {
			return []string{"--dependency", "afterok:" + strings.Join(ids, ":")}
		},
		jobID: func(stdout string) (string, error) {
			// --parsable prints "jobid" or "jobid;cluster"
			id, _, _ := strings.Cut(strings.TrimSpace(stdout), ";")
			if id == "" {
				return "", fmt.Errorf("%w: empty sbatch output", errors.ErrSubmitFailed)
			}
			return id, nil
		},
	},
	SchedulerLSF: {
		Name:      SchedulerLSF,
		Command:   "bsub",
		Directive: "#BSUB",
		Flags: []Flag{
			{FieldCharge, "-P"},
			{FieldWalltime, "-W"},
			{FieldNodes, "-nnodes"},
			{FieldJobName, "-J"},
			{FieldOutput, "-o"},
			{FieldError, "-e"},
			{FieldQueue, "-q"},
			{FieldReservation, "-U"},
		},
		walltime: func(job Job) string { return hm(job.Walltime) },
		defaultOutput: func(job Job) string {
			return filepath.Join(job.Directory, jobName(job)+"-%J.out")
		},
		dependency: func(ids []string) []string {
			conds := make([]string, len(ids))
			for i, id := range ids {
				conds[i] = "done(" + id + ")"
			}
			return []string{"-w", strings.Join(conds, " && ")}
		},
		jobID: func(stdout string) (string, error) {
			match := lsfJobID.FindStringSubmatch(stdout)
			if match == nil {
				return "", fmt.Errorf("%w: no job id in bsub output %q", errors.ErrSubmitFailed, strings.TrimSpace(stdout))
			}
			return match[1], nil
		},
	},
}

// machineRequired lists the directives a site insists on.
var machineRequired = map[string][]Field{
	topology.MachinePerlmutterCPU: {FieldCharge, FieldWalltime, FieldNodes, FieldConstraint},
	topology.MachinePerlmutterGPU: {FieldCharge, FieldWalltime, FieldNodes, FieldConstraint},
	topology.MachineFrontier:      {FieldCharge, FieldWalltime, FieldNodes},
	topology.MachineAndes:         {FieldCharge, FieldWalltime, FieldNodes},
	topology.MachineSummit:        {FieldCharge, FieldWalltime, FieldNodes},
}

// Lookup returns the named built-in scheduler.
func Lookup(name string) (Scheduler, error) {
	s, ok := schedulers[strings.ToLower(name)]
	if !ok {
		return Scheduler{}, fmt.Errorf("%w: %s", errors.ErrUnknownScheduler, name)
	}
	return s.clone(), nil
}

// Names lists the built-in schedulers.
func Names() []string {
	names := make([]string, 0, len(schedulers))
	for name := range schedulers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForMachine returns the scheduler of m with the site's required
// directives. ok is false for machines without a batch system.
func ForMachine(m topology.Machine) (s Scheduler, ok bool, err error) {
	if m.Scheduler == "" {
		return Scheduler{}, false, nil
	}
	s, err = Lookup(m.Scheduler)
	if err != nil {
		return Scheduler{}, false, err
	}
	s.Required = append(s.Required, machineRequired[m.Name]...)
	return s, true, nil
}

func (s Scheduler) clone() Scheduler {
	s.Always = append([]string(nil), s.Always...)
	s.Flags = append([]Flag(nil), s.Flags...)
	s.Required = append([]Field(nil), s.Required...)
	return s
}

func jobName(job Job) string {
	if job.JobName != "" {
		return job.JobName
	}
	return job.Workflow
}

// Resolve checks the required directives and fills in the job name and
// output defaults.
func (s Scheduler) Resolve(job Job) (Job, error) {
	var missing []string
	for _, f := range s.Required {
		if _, set := s.value(job, f); !set {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return Job{}, errors.WrapSchedulerError(s.Name, "arguments",
			fmt.Errorf("%w: workflow %s must set %s", errors.ErrMissingDirective, job.Workflow, strings.Join(missing, ", ")))
	}

	job.JobName = jobName(job)
	if job.Output == "" && s.defaultOutput != nil {
		job.Output = s.defaultOutput(job)
	}
	job.Directives = append([]string(nil), job.Directives...)
	job.DependsOn = append([]string(nil), job.DependsOn...)
	return job, nil
}

// Arguments returns the submission flags for job, without the command and
// the script.
func (s Scheduler) Arguments(job Job) ([]string, error) {
	groups, err := s.groups(job)
	if err != nil {
		return nil, err
	}
	args := append([]string(nil), s.Always...)
	for _, g := range groups {
		args = append(args, g...)
	}
	return args, nil
}

// SubmitCommand returns the full submission command for script.
func (s Scheduler) SubmitCommand(job Job, script string) ([]string, error) {
	args, err := s.Arguments(job)
	if err != nil {
		return nil, err
	}
	cmd := append([]string{s.Command}, args...)
	return append(cmd, script), nil
}

// Header renders the job's directives as script comment lines so the script
// can also be submitted by hand.
func (s Scheduler) Header(job Job) ([]string, error) {
	groups, err := s.groups(job)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		lines = append(lines, s.Directive+" "+strings.Join(g, " "))
	}
	return lines, nil
}

// groups returns one flag with its value per entry, then the dependency
// and the raw directives.
func (s Scheduler) groups(job Job) ([][]string, error) {
	job, err := s.Resolve(job)
	if err != nil {
		return nil, err
	}

	var groups [][]string
	for _, f := range s.Flags {
		if value, set := s.value(job, f.Field); set {
			groups = append(groups, []string{f.Name, value})
		}
	}
	if dep := s.Dependency(job.DependsOn); len(dep) > 0 {
		groups = append(groups, dep)
	}
	for _, d := range job.Directives {
		groups = append(groups, []string{d})
	}
	return groups, nil
}

// Dependency returns the flags making a job wait for ids.
func (s Scheduler) Dependency(ids []string) []string {
	if len(ids) == 0 || s.dependency == nil {
		return nil
	}
	return s.dependency(ids)
}

// ParseJobID extracts the job ID from the submit command's output.
func (s Scheduler) ParseJobID(stdout string) (string, error) {
	if s.jobID == nil {
		return strings.TrimSpace(stdout), nil
	}
	return s.jobID(stdout)
}

func (s Scheduler) value(job Job, f Field) (string, bool) {
	str := func(v string) (string, bool) { return v, v != "" }
	switch f {
	case FieldCharge:
		return str(job.Charge)
	case FieldQOS:
		return str(job.QOS)
	case FieldWalltime:
		if job.Walltime <= 0 {
			return "", false
		}
		return s.walltime(job), true
	case FieldNodes:
		if job.Nodes <= 0 {
			return "", false
		}
		return strconv.Itoa(job.Nodes), true
	case FieldConstraint:
		return str(job.Constraint)
	case FieldPartition:
		return str(job.Partition)
	case FieldQueue:
		return str(job.Queue)
	case FieldReservation:
		return str(job.Reservation)
	case FieldJobName:
		return str(job.JobName)
	case FieldOutput:
		return str(job.Output)
	case FieldError:
		return str(job.Error)
	default:
		return "", false
	}
}
