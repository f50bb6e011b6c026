package avrogen

import (
	"errors"
	"fmt"
)

// CompileError reports a document that could not be compiled or parsed:
// bad syntax, an unresolvable import or an undefined type reference.
type CompileError struct {
	Path       string
	Diagnostic string
	Cause      error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile %s: %s", e.Path, e.Diagnostic)
}

func (e *CompileError) Unwrap() error { return e.Cause }

func newCompileError(path string, cause error) *CompileError {
	return &CompileError{Path: path, Diagnostic: cause.Error(), Cause: cause}
}

// TypeConflictError reports a full name registered twice with different
// definitions.
type TypeConflictError struct {
	Name           string
	ExistingSource string
	Source         string
	// Diff is a line diff from the existing canonical form to the new one.
	Diff string
}

func (e *TypeConflictError) Error() string {
	return fmt.Sprintf("type %s defined in %s conflicts with the definition in %s", e.Name, e.Source, e.ExistingSource)
}

// IOError reports a filesystem failure.
type IOError struct {
	Path  string
	Op    string // read, write, mkdir, walk, classify
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

// StageError records the pipeline stage (and group, when group-scoped) in
// which an error happened.
type StageError struct {
	Stage string
	Group string
	Err   error
}

func (e *StageError) Error() string {
	if e.Group != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Stage, e.Group, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// AsCompileError extracts a *CompileError using errors.As internally.
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// AsTypeConflict extracts a *TypeConflictError using errors.As internally.
func AsTypeConflict(err error) (*TypeConflictError, bool) {
	var te *TypeConflictError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// AsIOError extracts an *IOError using errors.As internally.
func AsIOError(err error) (*IOError, bool) {
	var ie *IOError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// AsStageError extracts a *StageError using errors.As internally.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
