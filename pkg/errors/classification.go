package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory groups errors by the kind of problem they represent.
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryResource      ErrorCategory = "resource"
	CategoryDependency    ErrorCategory = "dependency"
	CategoryLauncher      ErrorCategory = "launcher"
	CategoryScheduler     ErrorCategory = "scheduler"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryFilesystem    ErrorCategory = "filesystem"
	CategoryPermission    ErrorCategory = "permission"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryUnknown       ErrorCategory = "unknown"
)

// ErrorSeverity tells how serious an error is
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "critical"
	SeverityHigh     ErrorSeverity = "high"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityLow      ErrorSeverity = "low"
	SeverityInfo     ErrorSeverity = "info"
)

// ClassifiedError is an error with category, severity and a message fit
// for the command line.
type ClassifiedError struct {
	Err       error
	Category  ErrorCategory
	Severity  ErrorSeverity
	Retryable bool
	UserMsg   string
}

func (e *ClassifiedError) Error() string {
	return e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// ClassifyError classifies an error based on its type and content
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case IsValidationError(err):
		return &ClassifiedError{
			Err:      err,
			Category: CategoryValidation,
			Severity: SeverityMedium,
			UserMsg:  "Application request is invalid. Please check ranks, ranks per node and GPU settings.",
		}

	case IsCapacityError(err):
		return &ClassifiedError{
			Err:      err,
			Category: CategoryResource,
			Severity: SeverityMedium,
			UserMsg:  "Applications do not fit on the node. Reduce ranks per node or cores per rank, or stop sharing the node.",
		}

	case IsDependencyError(err):
		return &ClassifiedError{
			Err:      err,
			Category: CategoryDependency,
			Severity: SeverityMedium,
			UserMsg:  "Workflow dependencies are inconsistent. Please check application names and depends_on.",
		}

	case IsLauncherError(err):
		return &ClassifiedError{
			Err:      err,
			Category: CategoryLauncher,
			Severity: SeverityMedium,
			UserMsg:  "The selected launcher cannot express this request. Adjust the request or pick another launcher.",
		}

	case IsSchedulerError(err):
		retryable := errors.Is(err, ErrSubmitFailed)
		return &ClassifiedError{
			Err:       err,
			Category:  CategoryScheduler,
			Severity:  SeverityHigh,
			Retryable: retryable,
			UserMsg:   "Batch submission failed. Please check the scheduler directives.",
		}

	case IsConfigError(err):
		return &ClassifiedError{
			Err:      err,
			Category: CategoryConfiguration,
			Severity: SeverityHigh,
			UserMsg:  "Configuration error. Please check your configuration settings.",
		}

	case IsFilesystemError(err), errors.Is(err, ErrDirectoryExists):
		return &ClassifiedError{
			Err:      err,
			Category: CategoryFilesystem,
			Severity: SeverityMedium,
			UserMsg:  "Filesystem operation failed. Please check file permissions and paths.",
		}

	case IsNotFoundError(err):
		return &ClassifiedError{
			Err:      err,
			Category: CategoryNotFound,
			Severity: SeverityLow,
			UserMsg:  "Requested machine, launcher or scheduler is not known.",
		}

	case IsPermissionError(err):
		return &ClassifiedError{
			Err:      err,
			Category: CategoryPermission,
			Severity: SeverityHigh,
			UserMsg:  "Permission denied. Please check your access rights.",
		}

	case errors.Is(err, context.Canceled):
		return &ClassifiedError{
			Err:      err,
			Category: CategoryTimeout,
			Severity: SeverityLow,
			UserMsg:  "Operation was canceled.",
		}

	case IsTimeoutError(err):
		return &ClassifiedError{
			Err:       err,
			Category:  CategoryTimeout,
			Severity:  SeverityMedium,
			Retryable: true,
			UserMsg:   "Operation timed out. Please try again.",
		}

	default:
		return &ClassifiedError{
			Err:      err,
			Category: CategoryUnknown,
			Severity: SeverityMedium,
			UserMsg:  "An unexpected error occurred.",
		}
	}
}

// ShouldRetry determines if an operation should be retried based on the error
func ShouldRetry(err error) bool {
	classified := ClassifyError(err)
	if classified == nil {
		return false
	}
	return classified.Retryable
}

func GetSeverity(err error) ErrorSeverity {
	classified := ClassifyError(err)
	if classified == nil {
		return SeverityLow
	}
	return classified.Severity
}

func GetCategory(err error) ErrorCategory {
	classified := ClassifyError(err)
	if classified == nil {
		return CategoryUnknown
	}
	return classified.Category
}

// GetUserMessage returns the message shown on the command line
func GetUserMessage(err error) string {
	classified := ClassifyError(err)
	if classified == nil {
		return "An error occurred."
	}
	return classified.UserMsg
}

// NewRetryableError marks err as worth another attempt.
func NewRetryableError(category ErrorCategory, err error, userMsg string) *ClassifiedError {
	return &ClassifiedError{
		Err:       err,
		Category:  category,
		Severity:  SeverityMedium,
		Retryable: true,
		UserMsg:   userMsg,
	}
}

// FormatErrorForLogging formats an error for structured logging
func FormatErrorForLogging(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	classified := ClassifyError(err)
	result := map[string]interface{}{
		"error":     err.Error(),
		"category":  string(classified.Category),
		"severity":  string(classified.Severity),
		"retryable": classified.Retryable,
	}

	if app, ok := GetApplication(err); ok {
		result["application"] = app
	}
	if node, ok := GetNode(err); ok {
		result["node"] = node
	}

	return result
}

// LogError logs an error with its classification as key/value pairs
func LogError(logger interface{ Error(string, ...interface{}) }, err error, msg string) {
	if err == nil {
		return
	}

	logData := FormatErrorForLogging(err)
	args := make([]interface{}, 0, len(logData)*2)
	for k, v := range logData {
		args = append(args, k, v)
	}

	logger.Error(msg, args...)
}

// WrapWithUserMessage wraps an error with a user-friendly message while preserving the original error
func WrapWithUserMessage(err error, userMsg string) error {
	if err == nil {
		return nil
	}

	classified := ClassifyError(err)
	classified.UserMsg = userMsg
	return fmt.Errorf("%s: %w", userMsg, classified)
}
