package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRunTerminated indicates a mutation was attempted on a LoopRun that
// has already committed its result.
var ErrRunTerminated = errors.New("loop run already terminated")

// InvalidPolicyError reports every violation found while constructing a
// QualityPolicy. It is raised synchronously at construction time, never
// mid-run, so callers discover configuration errors immediately.
type InvalidPolicyError struct {
	// Issues lists the individual violations in human-readable form.
	Issues []string
}

// Error implements the error interface for InvalidPolicyError.
func (e *InvalidPolicyError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("invalid quality policy: %s", e.Issues[0])
	}
	return fmt.Sprintf("invalid quality policy: %d issues: %s",
		len(e.Issues), strings.Join(e.Issues, "; "))
}

// GenerationError is the fatal failure of the generation collaborator.
// Without a first artifact no correction is possible, so the run
// terminates immediately with no iteration recorded.
type GenerationError struct {
	// Err is the underlying collaborator error.
	Err error
}

// Error implements the error interface for GenerationError.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("artifact generation failed: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *GenerationError) Unwrap() error { return e.Err }

// ValidationError is the fatal failure of the validation collaborator's
// infrastructure. A validator returning low scores is an artifact
// quality problem and never an error; a validator that cannot produce
// metrics at all signals a malfunction and aborts the run.
type ValidationError struct {
	// Index is the iteration whose validation failed.
	Index int

	// Err is the underlying collaborator error.
	Err error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed at iteration %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ValidationError) Unwrap() error { return e.Err }
