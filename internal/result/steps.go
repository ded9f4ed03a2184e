package result

import (
	"fmt"
	"strings"
)

// Accumulates the messages of a multi-step workflow.
//
// Lines are kept in the order the steps ran. The accumulator never decides
// whether a step runs; it only records what happened or, in simulate-only
// mode, what would have happened.
type Steps struct {
	dryRun bool
	lines  []string
}

// Creates an empty accumulator.
func NewSteps(dryRun bool) *Steps {
	return &Steps{dryRun: dryRun}
}

// Whether the workflow runs in simulate-only mode.
func (s *Steps) DryRun() bool {
	return s.dryRun
}

// Records a line.
func (s *Steps) Add(format string, args ...any) {
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
}

// Records a line describing an action that was simulated.
func (s *Steps) Simulated(format string, args ...any) {
	s.lines = append(s.lines, DryRunTag+" "+fmt.Sprintf(format, args...))
}

// Reports a failed precondition.
//
// In a real run err is returned unchanged. In simulate-only mode it is
// recorded as a note and nil is returned, so the workflow goes on to
// describe every later step.
func (s *Steps) Check(err error) error {
	if err == nil {
		return nil
	}
	if s.dryRun {
		s.Simulated("%s; a real run would fail", err)
		return nil
	}
	return err
}

// Number of recorded lines.
func (s *Steps) Len() int {
	return len(s.lines)
}

// Recorded lines joined by newlines.
func (s *Steps) String() string {
	return strings.Join(s.lines, "\n")
}

// Returns a success carrying every recorded line followed by a final one.
// An empty format adds no final line.
func (s *Steps) Success(format string, args ...any) Result {
	if format != "" {
		s.Add(format, args...)
	}
	return Success(s.String())
}
