package runner

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"reflect"
	"strings"

	"github.com/criyle/go-grader/pkg/diff"
	"github.com/criyle/go-grader/types"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// session is the interpreter of a worker
type session struct {
	name   string
	pkg    string
	interp *interp.Interpreter
	output *limitedBuffer
	funcs  map[string]reflect.Value
}

// symbols returns the exports of the allowed standard library packages.
// stdlib.Symbols is keyed by "import/path/pkgname".
func symbols(allow []string) interp.Exports {
	allowed := make(map[string]bool, len(allow))
	for _, a := range allow {
		allowed[a] = true
	}
	rt := make(interp.Exports)
	for k, v := range stdlib.Symbols {
		if i := strings.LastIndexByte(k, '/'); i > 0 && allowed[k[:i]] {
			rt[k] = v
		}
	}
	return rt
}

// load evaluates the source of req. Top level declarations, init
// functions and main run here.
func load(req *request) (*session, error) {
	out := newLimitedBuffer(req.OutputLimit)
	i := interp.New(interp.Options{
		Stdin:  bytes.NewReader(nil),
		Stdout: out,
		Stderr: out,
	})
	if err := i.Use(symbols(req.Allow)); err != nil {
		return nil, fmt.Errorf("%s: %v", req.Name, err)
	}
	if err := protect(func() error {
		_, err := i.Eval(string(req.Source))
		return err
	}); err != nil {
		return nil, fmt.Errorf("%s: %v", req.Name, err)
	}
	return &session{
		name:   req.Name,
		pkg:    req.Package,
		interp: i,
		output: out,
		funcs:  make(map[string]reflect.Value),
	}, nil
}

// resolve finds the top level function name
func (s *session) resolve(name string) (reflect.Value, error) {
	if fn, ok := s.funcs[name]; ok {
		return fn, nil
	}
	if !token.IsIdentifier(name) {
		return reflect.Value{}, fmt.Errorf("%q is not a valid function name", name)
	}
	// exported names resolve through the package, unexported ones only
	// in the package scope
	var v reflect.Value
	err := protect(func() (err error) {
		if v, err = s.interp.Eval(s.pkg + "." + name); err != nil {
			v, err = s.interp.Eval(name)
		}
		return err
	})
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%s does not define %s", s.name, name)
	}
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return reflect.Value{}, fmt.Errorf("%s in %s is not a function", name, s.name)
	}
	s.funcs[name] = v
	return v, nil
}

// call converts args to the parameter types, calls the function and
// normalizes its results
func (s *session) call(name string, args []any) response {
	fn, err := s.resolve(name)
	if err != nil {
		return failure(classMissing, err)
	}
	in, err := convertArgs(fn.Type(), types.ArgumentSet(copyValue(args).([]any)))
	if err != nil {
		return failure(classRuntime, fmt.Errorf("%s: %v", name, err))
	}

	var v any
	if err := protect(func() (err error) {
		v, err = collect(fn.Call(in))
		return err
	}); err != nil {
		return failure(classRuntime, err)
	}
	return response{Value: exported(v)}
}

// protect turns a panic of f into an error
func protect(f func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return f()
}

var errReturned = errors.New("returned error")

// collect returns a trailing error result as error; the remaining results
// are returned as nil (none), the value (one), or a []any (several).
func collect(out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type().Implements(errorType) {
		last := valueOf(out[n-1])
		out = out[:n-1]
		if e, ok := last.(error); ok && e != nil {
			return nil, fmt.Errorf("%w: %v", errReturned, e)
		}
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return valueOf(out[0]), nil
	}
	rt := make([]any, len(out))
	for i, o := range out {
		rt[i] = valueOf(o)
	}
	return rt, nil
}

func valueOf(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}

// exported converts v to something that can cross the process boundary
func exported(v any) any {
	n, err := diff.Normalize(v)
	if err != nil {
		return diff.Opaque{Type: fmt.Sprintf("%T", v), Reason: err.Error()}
	}
	return n
}
