package types

import "time"

// CaseStatus defines the outcome of a single argument set
type CaseStatus int

// Defines case outcomes
const (
	// not initialized status (as error)
	CaseInvalid CaseStatus = iota

	CasePass
	CaseFail
	CaseRuntimeError // panic, error return or time limit exceeded
	CaseUncomparable // comparator could not judge, counts as failed
)

var caseStatusToString = []string{
	"Invalid",
	"Pass",
	"Fail",
	"Runtime Error",
	"Uncomparable",
}

func (s CaseStatus) String() string {
	si := int(s)
	if si < 0 || si >= len(caseStatusToString) {
		return caseStatusToString[0] // invalid
	}
	return caseStatusToString[si]
}

// MarshalText encodes the status as its name
func (s CaseStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CaseResult contains result for single argument set
type CaseResult struct {
	Status CaseStatus
	Args   ArgumentSet

	// values produced by the reference and the submission,
	// only meaningful when both calls returned
	Expected any
	Actual   any

	// failure detail for runtime error / uncomparable / fail
	Detail string

	// wall time of the submission call
	Time time.Duration
}

// FunctionResult contains result for a single function of a submission
type FunctionResult struct {
	Name   string
	Points float64
	Cases  []CaseResult

	// Missing is set when the submission does not define the function
	// (or could not be loaded at all), Detail explains why
	Missing bool
	Detail  string
}

// Passed reports whether every case passed. A function without cases
// passes when it is present.
func (r *FunctionResult) Passed() bool {
	if r.Missing {
		return false
	}
	for _, c := range r.Cases {
		if c.Status != CasePass {
			return false
		}
	}
	return true
}

// Score is all-or-nothing: the full points only if all cases passed
func (r *FunctionResult) Score() float64 {
	if r.Passed() {
		return r.Points
	}
	return 0
}

// Count returns number of cases with the given status
func (r *FunctionResult) Count(s CaseStatus) int {
	var n int
	for _, c := range r.Cases {
		if c.Status == s {
			n++
		}
	}
	return n
}
