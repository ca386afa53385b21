// Package runner loads Go source files into isolated interpreters and
// calls the functions they define with a time limit.
//
// Every loaded file gets its own yaegi interpreter in its own worker
// process, so globals of one submission are never visible to another and
// a call that runs over the time limit is killed with its process. A crash
// of interpreted code, for example a stack overflow, only ends the worker.
// Interpreted code only sees the standard library packages allowed by the
// Policy; its stdout and stderr are captured and never reach the grader's
// own streams.
//
// Worker processes are the running binary started again, so programs that
// load code have to call ServeWorker first thing in main.
package runner

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/criyle/go-grader/file"
	"github.com/criyle/go-grader/types"
	"go.uber.org/zap"
)

// Config defines the parameters of the runner
type Config struct {
	TimeLimit time.Duration // wall clock limit for a load or a single call
	Policy    *Policy       // nil uses DefaultPolicy
	Logger    *zap.Logger
}

// DefaultTimeLimit is used when Config.TimeLimit is not set
const DefaultTimeLimit = 2 * time.Second

// startupGrace is added to the time limit of a load to cover the start of
// the worker process
const startupGrace = time.Second

// Runner loads source files into fresh worker processes
type Runner struct {
	timeLimit time.Duration
	policy    *Policy
	allowed   map[string]bool
	logger    *zap.Logger

	killed atomic.Int64
}

// New creates a runner
func New(conf Config) *Runner {
	p := conf.Policy
	if p == nil {
		p = DefaultPolicy()
	}
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeLimit := conf.TimeLimit
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	allowed := make(map[string]bool, len(p.Allow))
	for _, a := range p.Allow {
		allowed[a] = true
	}
	return &Runner{
		timeLimit: timeLimit,
		policy:    p,
		allowed:   allowed,
		logger:    logger,
	}
}

// TimeLimit returns the per call time limit
func (r *Runner) TimeLimit() time.Duration {
	return r.timeLimit
}

// Killed returns the number of worker processes killed because a load or
// a call exceeded the time limit
func (r *Runner) Killed() int64 {
	return r.killed.Load()
}

// Load reads and checks f and evaluates it in a fresh worker. All failures
// wrap types.ErrLoad.
//
// The returned module keeps its worker until Close. A closed or crashed
// module starts a new worker and evaluates the file again on its next use.
func (r *Runner) Load(ctx context.Context, f file.File) (*Module, error) {
	src, err := f.Content()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", types.ErrLoad, f.Name(), err)
	}
	pkg, err := r.checkImports(f.Name(), src)
	if err != nil {
		return nil, err
	}

	m := &Module{
		name:   f.Name(),
		pkg:    pkg,
		source: src,
		runner: r,
		output: newLimitedBuffer(r.policy.OutputLimit),
	}
	if err := m.start(ctx, true); err != nil {
		return nil, err
	}
	return m, nil
}

// checkImports parses the package clause and imports of src and rejects
// imports outside of the policy. It returns the package name.
func (r *Runner) checkImports(name string, src []byte) (string, error) {
	fset := token.NewFileSet()
	af, err := parser.ParseFile(fset, name, src, parser.ImportsOnly)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrLoad, err)
	}
	for _, im := range af.Imports {
		p, err := strconv.Unquote(im.Path.Value)
		if err != nil {
			return "", fmt.Errorf("%w: %s: invalid import %s", types.ErrLoad, fset.Position(im.Pos()), im.Path.Value)
		}
		if !r.allowed[p] {
			return "", fmt.Errorf("%w: %s: import %q is not allowed", types.ErrLoad, fset.Position(im.Pos()), p)
		}
	}
	return af.Name.Name, nil
}
