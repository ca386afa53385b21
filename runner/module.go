package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/criyle/go-grader/pkg/diff"
	"github.com/criyle/go-grader/types"
	"go.uber.org/zap"
)

// Module is a loaded source file with its own worker process
type Module struct {
	name   string
	pkg    string
	source []byte
	runner *Runner
	output *limitedBuffer

	mu     sync.Mutex
	worker *worker // nil until the next use after Close, a kill or a crash
}

// Name returns the name of the loaded file
func (m *Module) Name() string {
	return m.name
}

// Output returns what the loaded code printed so far. Output of a
// restarted worker's load is not repeated.
func (m *Module) Output() string {
	return m.output.String()
}

// Close stops the worker. The module stays usable, its next use starts
// a new one.
func (m *Module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.worker == nil {
		return nil
	}
	err := m.worker.close()
	m.worker = nil
	return err
}

// start spawns a worker and evaluates the source in it
func (m *Module) start(ctx context.Context, first bool) error {
	w, err := m.runner.spawn()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrLoad, m.name, err)
	}
	p := m.runner.policy
	limit := m.runner.timeLimit + startupGrace
	resp, err := w.roundTrip(ctx, &request{
		Op:          opLoad,
		Name:        m.name,
		Package:     m.pkg,
		Source:      m.source,
		Allow:       p.Allow,
		OutputLimit: p.OutputLimit,
	}, limit)
	switch {
	case errors.Is(err, errTimeLimit):
		m.killed("load exceeded time limit", limit)
		return fmt.Errorf("%w: %w: %s did not finish loading within %v", types.ErrLoad, types.ErrTimeout, m.name, m.runner.timeLimit)
	case err != nil:
		return fmt.Errorf("%w: %s: %v", types.ErrLoad, m.name, err)
	}
	if first {
		m.output.append(resp.Output, resp.Truncated)
	}
	if resp.Class != classNone {
		w.close()
		return resp.err()
	}
	m.worker = w
	return nil
}

// do sends req to the worker, starting one first if needed. A worker that
// exceeded limit, crashed or was canceled is dropped.
func (m *Module) do(ctx context.Context, req *request, limit time.Duration) (*response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.worker == nil {
		if err := m.start(ctx, false); err != nil {
			return nil, fmt.Errorf("%w: restart: %v", types.ErrRuntime, err)
		}
	}
	resp, err := m.worker.roundTrip(ctx, req, limit)
	if err != nil {
		m.worker = nil
		return nil, err
	}
	m.output.append(resp.Output, resp.Truncated)
	return resp, nil
}

func (m *Module) killed(msg string, limit time.Duration) {
	n := m.runner.killed.Add(1)
	m.runner.logger.Warn(msg,
		zap.String("file", m.name),
		zap.Duration("limit", limit),
		zap.Int64("killed", n))
}

// Resolve finds the top level function name. It returns an error wrapping
// types.ErrMissingFunction if there is no such function.
func (m *Module) Resolve(name string) (*Callable, error) {
	resp, err := m.do(context.Background(), &request{Op: opResolve, Func: name}, m.runner.timeLimit)
	if err != nil {
		if errors.Is(err, errTimeLimit) {
			m.killed("resolve exceeded time limit", m.runner.timeLimit)
		}
		return nil, fmt.Errorf("%w: %s: %v", types.ErrMissingFunction, name, err)
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return &Callable{name: name, module: m}, nil
}

// Callable is a function of a loaded module
type Callable struct {
	name   string
	module *Module
}

// Name returns the function name
func (c *Callable) Name() string {
	return c.name
}

// Call converts args to the parameter types and calls the function under
// the runner's time limit. A trailing error result is returned as error;
// the remaining results are normalized (see diff.Normalize) and returned
// as nil (none), the value (one), or a []any (several). A result that can
// not be normalized is returned as a diff.Opaque.
//
// Errors wrap types.ErrRuntime; timeouts additionally wrap types.ErrTimeout.
// The worker is killed when the call runs over the time limit and a new
// one serves the next call.
func (c *Callable) Call(ctx context.Context, args types.ArgumentSet) (any, error) {
	a, err := diff.Normalize([]any(args))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrRuntime, c.name, err)
	}
	limit := c.module.runner.timeLimit
	resp, err := c.module.do(ctx, &request{Op: opCall, Func: c.name, Args: a.([]any)}, limit)
	switch {
	case errors.Is(err, errTimeLimit):
		c.module.killed("call exceeded time limit", limit)
		return nil, fmt.Errorf("%w: %w: %s did not return within %v", types.ErrRuntime, types.ErrTimeout, c.name, limit)
	case errors.Is(err, types.ErrRuntime):
		return nil, err
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %v", types.ErrRuntime, c.name, err)
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return copyValue(resp.Value), nil
}

// err converts a failure reported by the worker
func (r *response) err() error {
	switch r.Class {
	case classLoad:
		return fmt.Errorf("%w: %s", types.ErrLoad, r.Err)
	case classMissing:
		return fmt.Errorf("%w: %s", types.ErrMissingFunction, r.Err)
	case classRuntime:
		return fmt.Errorf("%w: %s", types.ErrRuntime, r.Err)
	}
	return nil
}
