// Package judger runs the graded functions of a submission against the
// reference implementation and scores the results.
package judger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/criyle/go-grader/pkg/diff"
	"github.com/criyle/go-grader/runner"
	"github.com/criyle/go-grader/types"
	"go.uber.org/zap"
)

// Observer is notified of every judged case
type Observer interface {
	Case(spec *types.FunctionSpec, c *types.CaseResult)
}

// Judger judges one function of one submission at a time
type Judger struct {
	Comparator diff.Comparator // nil uses diff.Default
	Observer   Observer        // optional
	Logger     *zap.Logger     // optional
}

const (
	detailNotLoaded       = "file could not be loaded"
	detailMissingFunction = "missing function"
	detailReferenceFailed = "reference implementation failed"
)

// Judge runs spec against the submission sub, comparing every case to
// the result of ref. A nil sub means the submission could not be loaded.
// The result always contains one CaseResult per argument set.
func (j *Judger) Judge(ctx context.Context, sub *runner.Module, spec *types.FunctionSpec, ref *runner.Module) types.FunctionResult {
	result := types.FunctionResult{
		Name:   spec.Name,
		Points: spec.Points,
	}
	if sub == nil {
		result.Missing = true
		result.Detail = detailNotLoaded
		result.Cases = j.fill(spec, detailNotLoaded)
		return result
	}

	fn, err := sub.Resolve(spec.Name)
	if err != nil {
		result.Missing = true
		result.Detail = detailMissingFunction
		if !errors.Is(err, types.ErrMissingFunction) {
			result.Detail = err.Error()
		}
		result.Cases = j.fill(spec, detailMissingFunction)
		return result
	}
	if len(spec.ArgumentSets) == 0 {
		// never run: scored on presence only
		return result
	}

	refFn, refErr := ref.Resolve(spec.Name)
	if refErr != nil {
		j.logger().Error("reference does not define function", zap.String("function", spec.Name), zap.Error(refErr))
	}

	result.Cases = make([]types.CaseResult, 0, len(spec.ArgumentSets))
	for _, args := range spec.ArgumentSets {
		var c types.CaseResult
		if refErr != nil {
			c = types.CaseResult{
				Status: types.CaseUncomparable,
				Args:   args,
				Detail: fmt.Sprintf("%s: %v", detailReferenceFailed, refErr),
			}
		} else {
			c = j.judgeCase(ctx, fn, refFn, args)
		}
		result.Cases = append(result.Cases, c)
		if j.Observer != nil {
			j.Observer.Case(spec, &result.Cases[len(result.Cases)-1])
		}
	}
	j.logger().Debug("judged function",
		zap.String("submission", sub.Name()),
		zap.String("function", spec.Name),
		zap.Int("passed", result.Count(types.CasePass)),
		zap.Int("cases", len(result.Cases)))
	return result
}

func (j *Judger) judgeCase(ctx context.Context, fn, refFn *runner.Callable, args types.ArgumentSet) types.CaseResult {
	c := types.CaseResult{Args: args}

	expected, err := refFn.Call(ctx, args)
	if err != nil {
		j.logger().Warn("reference call failed",
			zap.String("function", refFn.Name()),
			zap.Any("args", args),
			zap.Error(err))
		c.Status = types.CaseUncomparable
		c.Detail = fmt.Sprintf("%s: %v", detailReferenceFailed, err)
		return c
	}
	c.Expected = expected

	start := time.Now()
	actual, err := fn.Call(ctx, args)
	c.Time = time.Since(start)
	if err != nil {
		c.Status = types.CaseRuntimeError
		c.Detail = err.Error()
		return c
	}
	c.Actual = actual

	switch err := j.comparator().Compare(expected, actual); {
	case err == nil:
		c.Status = types.CasePass
	case errors.Is(err, types.ErrUncomparable):
		c.Status = types.CaseUncomparable
		c.Detail = err.Error()
	default:
		c.Status = types.CaseFail
		c.Detail = err.Error()
	}
	return c
}

// fill marks every case of spec as a runtime error
func (j *Judger) fill(spec *types.FunctionSpec, detail string) []types.CaseResult {
	cases := make([]types.CaseResult, len(spec.ArgumentSets))
	for i, args := range spec.ArgumentSets {
		cases[i] = types.CaseResult{
			Status: types.CaseRuntimeError,
			Args:   args,
			Detail: detail,
		}
		if j.Observer != nil {
			j.Observer.Case(spec, &cases[i])
		}
	}
	return cases
}

func (j *Judger) comparator() diff.Comparator {
	if j.Comparator == nil {
		return diff.Default
	}
	return j.Comparator
}

func (j *Judger) logger() *zap.Logger {
	if j.Logger == nil {
		return zap.NewNop()
	}
	return j.Logger
}
