// Package result defines the outcome type returned by every command handler
// and carried over the control socket.
//
// A [Result] is either a success or a failure, with an optional message and,
// for failures, a numeric code. Multi-step workflows build their message with
// a [Steps] accumulator so that each step, real or simulated, contributes one
// line in the order it ran.
package result

import (
	"fmt"
	"strings"
)

const (

	// Code of every successful result.
	CodeSuccess = 0

	// Code used for failures that do not carry a specific code.
	CodeFailure = -1

	// Tag prefixed to every line describing a simulated action.
	DryRunTag = "(Dry-run)"

	// Terminal line appended to successful results in simulate-only mode.
	DryRunMarker = DryRunTag + " no changes were made"
)

// Outcome of a command.
type Result struct {
	OK      bool   // Whether the command succeeded.
	Message string // Human-readable message. May be empty.
	Code    int    // Zero on success, non-zero on failure.
}

// Returns a successful result with the given message.
func Success(msg string) Result {
	return Result{OK: true, Message: msg, Code: CodeSuccess}
}

// Returns a successful result with a formatted message.
func Successf(format string, args ...any) Result {
	return Success(fmt.Sprintf(format, args...))
}

// Returns a failed result with the default failure code.
func Failure(msg string) Result {
	return Result{OK: false, Message: msg, Code: CodeFailure}
}

// Returns a failed result with a formatted message.
func Failuref(format string, args ...any) Result {
	return Failure(fmt.Sprintf(format, args...))
}

// Returns a failed result with an explicit code. A zero code is replaced by
// [CodeFailure] so that a failure can never look like a success.
func FailureCode(code int, msg string) Result {
	if code == CodeSuccess {
		code = CodeFailure
	}
	return Result{OK: false, Message: msg, Code: code}
}

// Returns a failed result carrying the error text.
func FromError(err error) Result {
	return Failure(err.Error())
}

// Whether the result is a success.
func (r Result) IsSuccess() bool {
	return r.OK
}

// Whether the result is a failure.
func (r Result) IsFailure() bool {
	return !r.OK
}

func (r Result) String() string {
	head := "Failure"
	if r.OK {
		head = "Success"
	}
	if r.Message == "" {
		return head
	}
	return head + ":\n" + r.Message
}

// Appends the simulation marker to a successful result unless it already
// ends with it. Failures are returned unchanged.
func WithDryRunMarker(r Result) Result {
	if !r.OK || strings.HasSuffix(r.Message, DryRunMarker) {
		return r
	}
	if r.Message == "" {
		r.Message = DryRunMarker
	} else {
		r.Message += "\n" + DryRunMarker
	}
	return r
}
