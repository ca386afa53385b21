// Package report renders grading results: a feedback block appended to a
// copy of every submission, a score sheet per section and an optional
// machine readable summary.
package report

import (
	"github.com/criyle/go-grader/section"
	"github.com/criyle/go-grader/types"
)

// Feedback is the ordered feedback of one submission
type Feedback struct {
	Blocks []Block
	Total  float64
	Points float64 // points of all graded functions
}

// Block is one section of the feedback, an *IdentityNote or a *FunctionBlock
type Block interface {
	block()
}

// IdentityNote explains why the submission could not be matched to a student
type IdentityNote struct {
	Identity types.Identity
}

// FunctionBlock lists the cases of one graded function
type FunctionBlock struct {
	Result types.FunctionResult
}

func (*IdentityNote) block()  {}
func (*FunctionBlock) block() {}

// Build creates the feedback of sub. Identity problems come first,
// followed by the graded functions in order.
func Build(sub *section.Submission) Feedback {
	var fb Feedback
	if sub.Identity.State != types.IdentityResolved {
		fb.Blocks = append(fb.Blocks, &IdentityNote{Identity: sub.Identity})
	}
	for _, r := range sub.Results {
		fb.Blocks = append(fb.Blocks, &FunctionBlock{Result: r})
		fb.Total += r.Score()
		fb.Points += r.Points
	}
	return fb
}
