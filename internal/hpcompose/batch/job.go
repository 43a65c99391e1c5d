package batch

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Job holds the directives of one batch submission. Zero values are unset.
type Job struct {
	// Workflow is the workflow name; it names the job when JobName is empty.
	Workflow string `json:"workflow"`
	// Directory is the run directory; default output files go there.
	Directory string `json:"directory"`

	Charge      string        `json:"charge,omitempty"`
	QOS         string        `json:"qos,omitempty"`
	Walltime    time.Duration `json:"walltime,omitempty"`
	Nodes       int           `json:"nodes,omitempty"`
	Constraint  string        `json:"constraint,omitempty"`
	Partition   string        `json:"partition,omitempty"`
	Queue       string        `json:"queue,omitempty"`
	Reservation string        `json:"reservation,omitempty"`
	JobName     string        `json:"job_name,omitempty"`
	Output      string        `json:"output,omitempty"`
	Error       string        `json:"error,omitempty"`

	// Directives are passed to the scheduler verbatim after the rest.
	Directives []string `json:"directives,omitempty"`
	// DependsOn lists job IDs that must finish successfully first.
	DependsOn []string `json:"depends_on,omitempty"`
}

// ParseWalltime accepts "H:MM:SS", "H:MM", a plain number of minutes, or a
// Go duration such as "1h30m".
func ParseWalltime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if minutes, err := strconv.Atoi(s); err == nil {
		if minutes < 0 {
			return 0, fmt.Errorf("walltime %q: negative", s)
		}
		return time.Duration(minutes) * time.Minute, nil
	}
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0, fmt.Errorf("walltime %q: want H:MM:SS or H:MM", s)
		}
		units := []time.Duration{time.Hour, time.Minute, time.Second}
		var d time.Duration
		for i, part := range parts {
			n, err := strconv.Atoi(part)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("walltime %q: bad field %q", s, part)
			}
			d += time.Duration(n) * units[i]
		}
		return d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("walltime %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("walltime %q: negative", s)
	}
	return d, nil
}

// hms renders d as HH:MM:SS, rounding up to the next second.
func hms(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

// hm renders d as HH:MM, rounding up to the next minute.
func hm(d time.Duration) string {
	mins := int64((d + time.Minute - 1) / time.Minute)
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
