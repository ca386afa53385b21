// Package section loads the submissions of a class section, grades them
// and aggregates their scores.
package section

import (
	"context"

	"github.com/criyle/go-grader/file"
	"github.com/criyle/go-grader/judger"
	"github.com/criyle/go-grader/runner"
	"github.com/criyle/go-grader/types"
	"go.uber.org/zap"
)

// Submission is one student file of a section
type Submission struct {
	Source   file.File
	Path     string
	Identity types.Identity

	// Results has one entry per graded function, in grading order
	Results []types.FunctionResult

	module *runner.Module
}

// Module returns the loaded code, nil if the file failed to load
func (s *Submission) Module() *runner.Module {
	return s.module
}

// Result returns the result for the function name, if graded
func (s *Submission) Result(name string) (*types.FunctionResult, bool) {
	for i := range s.Results {
		if s.Results[i].Name == name {
			return &s.Results[i], true
		}
	}
	return nil, false
}

// TotalScore sums the scores of all graded functions
func (s *Submission) TotalScore() float64 {
	var total float64
	for i := range s.Results {
		total += s.Results[i].Score()
	}
	return total
}

// Section is the roster and submissions of one directory
type Section struct {
	Dir         string
	RosterPath  string
	Roster      *Roster
	Submissions []*Submission

	logger *zap.Logger
}

// Grade judges every submission against every spec. Pairs that were
// already graded are skipped, so calling Grade again is a no-op.
//
// The workers of a submission and of the reference are stopped once the
// submission is graded, so every submission starts from freshly loaded
// code.
func (s *Section) Grade(ctx context.Context, j *judger.Judger, ref *runner.Module, specs []types.FunctionSpec) error {
	for _, sub := range s.Submissions {
		err := s.grade(ctx, j, sub, ref, specs)
		if sub.module != nil {
			sub.module.Close()
		}
		ref.Close()
		if err != nil {
			return err
		}
		s.log().Debug("graded submission",
			zap.String("file", sub.Path),
			zap.String("id", sub.Identity.ID),
			zap.Float64("score", sub.TotalScore()))
	}
	return nil
}

func (s *Section) grade(ctx context.Context, j *judger.Judger, sub *Submission, ref *runner.Module, specs []types.FunctionSpec) error {
	for i := range specs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := sub.Result(specs[i].Name); ok {
			continue
		}
		sub.Results = append(sub.Results, j.Judge(ctx, sub.module, &specs[i], ref))
	}
	return nil
}

// TotalScore returns the total score of sub
func (s *Section) TotalScore(sub *Submission) float64 {
	return sub.TotalScore()
}

// Lookup returns the first resolved submission of the student id. It
// returns false if the student has no such submission, which is
// different from a score of zero.
func (s *Section) Lookup(id string) (*Submission, bool) {
	for _, sub := range s.Submissions {
		if sub.Identity.State == types.IdentityResolved && sub.Identity.ID == id {
			return sub, true
		}
	}
	return nil, false
}

// PointsPossible sums the points of specs
func (s *Section) PointsPossible(specs []types.FunctionSpec) float64 {
	return types.TotalPoints(specs)
}

func (s *Section) log() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}
