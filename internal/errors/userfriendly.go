package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/tturner/flowmod/internal/modifier"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "Check flow variables, hex vectors and links in the playlist",
		Try:     fmt.Sprintf("flowmod validate-config --config %s", configPath),
		Err:     err,
	}
}

// WrapBuildError wraps modifier construction errors with user-friendly context
func WrapBuildError(err error, flowName string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Cannot build field modifiers for flow %q", flowName),
		Reason:  extractBuildReason(err),
		Hint:    "Numeric variables need start/step/mask vectors of 1, 2, 4, 6, 8 or 16 bytes",
		Try:     "flowmod inspect --config <playlist> to review chains",
		Err:     err,
	}
}

// WrapOutputError wraps output file errors with user-friendly context
func WrapOutputError(err error, path string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Failed to write output %s", path),
		Reason:  extractOutputReason(err),
		Hint:    "Check that the output directory exists and is writable",
		Err:     err,
	}
}

func extractBuildReason(err error) string {
	switch {
	case stderrors.Is(err, modifier.ErrUnsupportedWidth):
		return "Field width is not supported"
	case stderrors.Is(err, modifier.ErrLengthMismatch):
		return "Start, step and mask vectors have different lengths"
	case stderrors.Is(err, modifier.ErrDuplicateVariable):
		return "Two variables use the same index"
	case stderrors.Is(err, modifier.ErrUnknownVariable):
		return "A link names a variable that does not exist"
	case stderrors.Is(err, modifier.ErrParentTaken), stderrors.Is(err, modifier.ErrChildTaken):
		return "A variable is linked more than once"
	case stderrors.Is(err, modifier.ErrCycle):
		return "Links form a loop"
	}
	return "Invalid variable configuration"
}

func extractOutputReason(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "permission denied") {
		return "Permission denied"
	}
	if strings.Contains(errStr, "no such file or directory") {
		return "Output directory does not exist"
	}
	if strings.Contains(errStr, "no space left") {
		return "Disk is full"
	}

	return "Output write failed"
}
