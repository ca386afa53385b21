// Package types defines the data model shared by the parser, the
// judger, the section aggregator and the report writer.
package types

import "errors"

// Error classes. Errors returned by the grader wrap one of these so
// callers can classify them with errors.Is.
var (
	// ErrParse marks malformed specification or roster input, fatal for the run
	ErrParse = errors.New("parse error")
	// ErrLoad marks a source file that could not be loaded
	ErrLoad = errors.New("load failure")
	// ErrIdentity marks a failing identity entry point
	ErrIdentity = errors.New("identity failure")
	// ErrRuntime marks a failing call into loaded code
	ErrRuntime = errors.New("runtime error")
	// ErrTimeout marks a call exceeding its time limit
	ErrTimeout = errors.New("time limit exceeded")
	// ErrMissingFunction marks a function not defined by the loaded code
	ErrMissingFunction = errors.New("missing function")
	// ErrUncomparable marks values the comparator cannot judge
	ErrUncomparable = errors.New("uncomparable values")
)
