package runner

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/criyle/go-grader/pkg/diff"
)

// WorkerEnv marks a process started by a Runner as a worker
const WorkerEnv = "GO_GRADER_WORKER"

// maxWorkerStack turns runaway recursion into a fatal stack overflow of
// the worker long before it exhausts the memory limit
const maxWorkerStack = 256 << 20

type opcode int

const (
	opLoad opcode = iota + 1
	opResolve
	opCall
)

// request is sent by the grader, one at a time
type request struct {
	Op opcode

	// load
	Name        string
	Package     string
	Source      []byte
	Allow       []string
	OutputLimit int

	// resolve and call
	Func string
	Args []any
}

type errClass int

const (
	classNone errClass = iota
	classLoad
	classMissing
	classRuntime
)

// response answers a single request
type response struct {
	Class errClass
	Err   string

	// Value is normalized by diff.Normalize or a diff.Opaque
	Value any

	// output printed while serving the request
	Output    []byte
	Truncated bool
}

func init() {
	gob.Register([]any{})
	gob.Register(map[string]any{})
	gob.Register(diff.Opaque{})
}

// ServeWorker serves requests on stdin and stdout and exits when the
// current process was started as a worker by a Runner. Otherwise it
// returns immediately. Programs (and test binaries) that load code must
// call it before anything else.
func ServeWorker() {
	if os.Getenv(WorkerEnv) != "1" {
		return
	}
	conn := os.Stdout
	// interpreted code must never write into the response stream
	os.Stdout = os.Stderr
	debug.SetMaxStack(maxWorkerStack)

	if err := serve(os.Stdin, conn); err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// serve handles requests until r is closed
func serve(r io.Reader, w io.Writer) error {
	dec := gob.NewDecoder(r)
	enc := gob.NewEncoder(w)

	var s *session
	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			return err
		}

		var resp response
		switch {
		case req.Op == opLoad && s == nil:
			var err error
			if s, err = load(&req); err != nil {
				resp = failure(classLoad, err)
			}

		case s == nil:
			resp = failure(classLoad, errors.New("nothing loaded"))

		case req.Op == opResolve:
			if _, err := s.resolve(req.Func); err != nil {
				resp = failure(classMissing, err)
			}

		case req.Op == opCall:
			resp = s.call(req.Func, req.Args)

		default:
			resp = failure(classRuntime, fmt.Errorf("unexpected request %d", req.Op))
		}
		if s != nil {
			resp.Output, resp.Truncated = s.output.take()
		}
		if err := enc.Encode(&resp); err != nil {
			return err
		}
	}
}

func failure(c errClass, err error) response {
	return response{Class: c, Err: err.Error()}
}
