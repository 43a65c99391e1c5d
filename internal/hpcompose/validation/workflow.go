package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/app"
	"github.com/ehsaniara/hpcompose/pkg/errors"
	"github.com/ehsaniara/hpcompose/pkg/logger"

	"github.com/hashicorp/go-multierror"
)

var envNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WorkflowValidator checks the relations between applications of one
// workflow: names, dependencies and environments.
type WorkflowValidator struct {
	logger *logger.Logger
}

func NewWorkflowValidator() *WorkflowValidator {
	return &WorkflowValidator{
		logger: logger.WithField("component", "workflow-validator"),
	}
}

// ValidateWorkflow returns the first problem found.
func (wv *WorkflowValidator) ValidateWorkflow(apps []*app.Application) error {
	wv.logger.Debug("starting workflow validation", "applications", len(apps))

	// 1. Names are unique
	if err := wv.validateUniqueNames(apps); err != nil {
		wv.logger.Error("application name validation failed", "error", err)
		return err
	}

	// 2. Dependencies name existing applications
	if err := wv.validateDependencies(apps); err != nil {
		wv.logger.Error("dependency validation failed", "error", err)
		return err
	}

	// 3. No dependency cycles
	if err := wv.validateNonCircularDependencies(apps); err != nil {
		wv.logger.Error("circular dependency validation failed", "error", err)
		return err
	}

	// 4. Environment variable names
	if err := wv.validateEnvironmentVariables(apps); err != nil {
		wv.logger.Error("environment variable validation failed", "error", err)
		return err
	}

	wv.logger.Debug("workflow validation completed successfully")
	return nil
}

func (wv *WorkflowValidator) validateUniqueNames(apps []*app.Application) error {
	seen := make(map[string]bool, len(apps))
	for _, a := range apps {
		if seen[a.Name] {
			return errors.NewValidationError(a.Name, errors.ErrDuplicateApplication)
		}
		seen[a.Name] = true
	}
	return nil
}

func (wv *WorkflowValidator) validateDependencies(apps []*app.Application) error {
	known := make(map[string]bool, len(apps))
	for _, a := range apps {
		known[a.Name] = true
	}
	for _, a := range apps {
		for _, dep := range a.DependsOn {
			if !known[dep] {
				return errors.NewValidationError(a.Name, fmt.Errorf("%w: %q", errors.ErrUnknownDependency, dep))
			}
		}
	}
	return nil
}

// validateNonCircularDependencies walks the dependency graph depth first,
// colouring nodes white (unvisited), gray (on the stack) and black (done).
func (wv *WorkflowValidator) validateNonCircularDependencies(apps []*app.Application) error {
	graph := make(map[string][]string, len(apps))
	for _, a := range apps {
		graph[a.Name] = a.DependsOn
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(apps))
	var path []string

	var visit func(string) error
	visit = func(name string) error {
		switch color[name] {
		case gray:
			start := 0
			for i, p := range path {
				if p == name {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), name)
			return errors.NewValidationError(name, fmt.Errorf("%w: %s", errors.ErrCyclicDependency, strings.Join(cycle, " -> ")))
		case black:
			return nil
		}

		color[name] = gray
		path = append(path, name)
		for _, dep := range graph[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		return nil
	}

	for _, a := range apps {
		if color[a.Name] == white {
			if err := visit(a.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (wv *WorkflowValidator) validateEnvironmentVariables(apps []*app.Application) error {
	for _, a := range apps {
		keys := make([]string, 0, len(a.Environment))
		for k := range a.Environment {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !envNamePattern.MatchString(k) {
				wv.logger.Warn("invalid environment variable name", "application", a.Name, "name", k)
				return errors.NewValidationError(a.Name, fmt.Errorf("%w: %q", errors.ErrInvalidEnvironment, k))
			}
		}
	}
	return nil
}

// ValidationSummary reports every check instead of stopping at the first.
type ValidationSummary struct {
	Valid                     bool
	NamesUnique               bool
	DependenciesValid         bool
	CircularDependencies      bool
	EnvironmentVariablesValid bool
	Errors                    []string
	// Err aggregates every failure; nil when Valid.
	Err error
}

// ValidateWorkflowWithSummary runs all checks and collects their failures.
func (wv *WorkflowValidator) ValidateWorkflowWithSummary(apps []*app.Application) *ValidationSummary {
	summary := &ValidationSummary{
		Valid:                     true,
		NamesUnique:               true,
		DependenciesValid:         true,
		CircularDependencies:      true,
		EnvironmentVariablesValid: true,
		Errors:                    []string{},
	}

	var result *multierror.Error
	record := func(flag *bool, label string, err error) {
		if err == nil {
			return
		}
		*flag = false
		summary.Valid = false
		summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", label, err))
		result = multierror.Append(result, err)
	}

	record(&summary.NamesUnique, "Application names", wv.validateUniqueNames(apps))
	record(&summary.DependenciesValid, "Dependencies", wv.validateDependencies(apps))
	// cycles through unknown names are not meaningful
	if summary.DependenciesValid {
		record(&summary.CircularDependencies, "Circular dependencies", wv.validateNonCircularDependencies(apps))
	}
	record(&summary.EnvironmentVariablesValid, "Environment variables", wv.validateEnvironmentVariables(apps))

	summary.Err = result.ErrorOrNil()
	return summary
}
