// Package errors provides the error kinds shared by the hpcompose packages.
// Validation and capacity failures carry the offending application so callers
// can report it; every typed error unwraps to one of the sentinels below.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Sentinel errors for common error conditions
var (
	// Application sanity errors
	ErrInvalidRanks                  = errors.New("ranks must be at least 1")
	ErrInconsistentRanksPerNode      = errors.New("ranks per node exceeds ranks")
	ErrMissingRanksPerNode           = errors.New("ranks per node must be set when ranks > 1")
	ErrMissingCoresPerRankForSharing = errors.New("cores per rank must be set for node sharing")
	ErrAmbiguousGPUSpec              = errors.New("only one of gpus per rank and ranks per gpu may be set")
	ErrUnevenGPUGroups               = errors.New("ranks per node is not a multiple of the ranks sharing a gpu group")
	ErrInvalidApplication            = errors.New("invalid application")

	// Placement errors
	ErrRequestExceedsNodeCapacity = errors.New("request exceeds node capacity")
	ErrSlotIndexOutOfRange        = errors.New("slot index out of range")
	ErrInvalidTopology            = errors.New("invalid node topology")

	// Workflow composition errors
	ErrDuplicateApplication = errors.New("duplicate application name")
	ErrUnknownDependency    = errors.New("dependency references unknown application")
	ErrCyclicDependency     = errors.New("circular dependency detected")
	ErrInvalidEnvironment   = errors.New("invalid environment variable name")
	ErrDirectoryExists      = errors.New("workflow directory already exists")
	ErrRecordNotFound       = errors.New("workflow record not found")

	// Machine, launcher and scheduler errors
	ErrUnknownMachine      = errors.New("unknown machine")
	ErrUnknownLauncher     = errors.New("unknown launcher")
	ErrUnknownScheduler    = errors.New("unknown scheduler")
	ErrMissingDirective    = errors.New("missing required scheduler directive")
	ErrLauncherTranslation = errors.New("launcher cannot express request")
	ErrSubmitFailed        = errors.New("scheduler submission failed")
	ErrApplicationFailed   = errors.New("application exited with failure")

	// System-related errors
	ErrPermissionDenied = errors.New("permission denied")
	ErrTimeout          = errors.New("operation timed out")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrFilesystemFailed = errors.New("filesystem operation failed")
)

// ValidationError reports an application rejected before placement.
type ValidationError struct {
	Application string
	Err         error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("application %s: %v", e.Application, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// CapacityError reports an application that does not fit on its node.
type CapacityError struct {
	Application string
	Node        int
	Err         error
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("application %s on node %d: %v", e.Application, e.Node, e.Err)
}

func (e *CapacityError) Unwrap() error {
	return e.Err
}

// LauncherError reports a launcher profile failing to express a request
type LauncherError struct {
	Launcher  string
	Operation string
	Err       error
}

func (e *LauncherError) Error() string {
	return fmt.Sprintf("launcher %s: operation %s: %v", e.Launcher, e.Operation, e.Err)
}

func (e *LauncherError) Unwrap() error {
	return e.Err
}

// SchedulerError represents an error from building or running a batch submission
type SchedulerError struct {
	Scheduler string
	Operation string
	Err       error
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("scheduler %s: operation %s: %v", e.Scheduler, e.Operation, e.Err)
}

func (e *SchedulerError) Unwrap() error {
	return e.Err
}

// WorkflowError represents an error related to a workflow as a whole
type WorkflowError struct {
	Workflow  string
	Operation string
	Err       error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("workflow %s: operation %s: %v", e.Workflow, e.Operation, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// FilesystemError represents an error related to filesystem operations
type FilesystemError struct {
	Path      string
	Operation string
	Err       error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem %s: operation %s: %v", e.Path, e.Operation, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// ConfigError represents an error related to configuration
type ConfigError struct {
	Component string
	Field     string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config %s.%s: %v", e.Component, e.Field, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Component, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Error wrapping constructors
func NewValidationError(application string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Application: application, Err: err}
}

func NewCapacityError(application string, node int, err error) error {
	if err == nil {
		return nil
	}
	return &CapacityError{Application: application, Node: node, Err: err}
}

func WrapLauncherError(launcher, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &LauncherError{Launcher: launcher, Operation: operation, Err: err}
}

func WrapSchedulerError(scheduler, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &SchedulerError{Scheduler: scheduler, Operation: operation, Err: err}
}

func WrapWorkflowError(workflow, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &WorkflowError{Workflow: workflow, Operation: operation, Err: err}
}

func WrapFilesystemError(path, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &FilesystemError{Path: path, Operation: operation, Err: err}
}

func WrapConfigError(component, field string, err error) error {
	if err == nil {
		return nil
	}
	return &ConfigError{Component: component, Field: field, Err: err}
}

func NewFilesystemError(path, operation string, err error) error {
	return WrapFilesystemError(path, operation, fmt.Errorf("%w: %v", ErrFilesystemFailed, err))
}

func NewConfigError(component, field string, err error) error {
	return WrapConfigError(component, field, fmt.Errorf("%w: %v", ErrInvalidConfig, err))
}

// Error classification functions
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsCapacityError(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}

func IsLauncherError(err error) bool {
	var le *LauncherError
	return errors.As(err, &le)
}

func IsSchedulerError(err error) bool {
	var se *SchedulerError
	return errors.As(err, &se)
}

func IsWorkflowError(err error) bool {
	var we *WorkflowError
	return errors.As(err, &we)
}

func IsFilesystemError(err error) bool {
	var fe *FilesystemError
	return errors.As(err, &fe)
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func IsDependencyError(err error) bool {
	return errors.Is(err, ErrUnknownDependency) ||
		errors.Is(err, ErrCyclicDependency) ||
		errors.Is(err, ErrDuplicateApplication)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrUnknownMachine) ||
		errors.Is(err, ErrUnknownLauncher) ||
		errors.Is(err, ErrUnknownScheduler) ||
		errors.Is(err, ErrRecordNotFound)
}

func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

func IsPermissionError(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// GetApplication returns the application a validation or capacity error names.
func GetApplication(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Application, true
	}
	var ce *CapacityError
	if errors.As(err, &ce) {
		return ce.Application, true
	}
	return "", false
}

func GetNode(err error) (int, bool) {
	var ce *CapacityError
	if errors.As(err, &ce) {
		return ce.Node, true
	}
	return 0, false
}

func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// JoinErrors combines multiple errors into one. Nil entries are dropped;
// a single survivor is returned unwrapped.
func JoinErrors(errs ...error) error {
	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result == nil {
		return nil
	}
	if len(result.Errors) == 1 {
		return result.Errors[0]
	}
	result.ErrorFormat = semicolonFormat
	return result
}

func semicolonFormat(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Is, As and New mirror the standard library so callers can import this
// package in place of it.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }
