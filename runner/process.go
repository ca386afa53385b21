package runner

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// stderrLimit is the part of a worker's stderr kept to explain a crash
	stderrLimit = 8 << 10

	// closeGrace is how long a closing worker may take to exit
	closeGrace = time.Second
)

var errTimeLimit = errors.New("time limit exceeded")

// crashError reports a worker that ended while serving a request
type crashError struct {
	detail string
}

func (e *crashError) Error() string {
	return "worker crashed: " + e.detail
}

// worker is a running worker process seen from the grader
type worker struct {
	cmd    *exec.Cmd
	req    *os.File // write end of the worker's stdin
	resp   *os.File // read end of the worker's stdout
	enc    *gob.Encoder
	dec    *gob.Decoder
	stderr *limitedBuffer

	waitOnce sync.Once
	waitErr  error
}

// spawn starts the running binary again as a worker with the limits of
// the policy applied
func (r *Runner) spawn() (*worker, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	reqR, reqW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	respR, respW, err := os.Pipe()
	if err != nil {
		reqR.Close()
		reqW.Close()
		return nil, fmt.Errorf("worker: %w", err)
	}

	stderr := newLimitedBuffer(stderrLimit)
	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), WorkerEnv+"=1")
	cmd.Stdin = reqR
	cmd.Stdout = respW
	cmd.Stderr = stderr
	err = cmd.Start()
	// the worker holds its own copies
	reqR.Close()
	respW.Close()
	if err != nil {
		reqW.Close()
		respR.Close()
		return nil, fmt.Errorf("worker: %w", err)
	}
	if err := limitProcess(cmd.Process.Pid, r.policy); err != nil {
		r.logger.Warn("failed to limit worker", zap.Int("pid", cmd.Process.Pid), zap.Error(err))
	}
	return &worker{
		cmd:    cmd,
		req:    reqW,
		resp:   respR,
		enc:    gob.NewEncoder(reqW),
		dec:    gob.NewDecoder(respR),
		stderr: stderr,
	}, nil
}

// roundTrip sends req and waits up to limit for the response. When the
// limit is exceeded or ctx is done the worker is killed. Errors other than
// a decoded failure mean the worker is gone.
func (w *worker) roundTrip(ctx context.Context, req *request, limit time.Duration) (*response, error) {
	if err := w.enc.Encode(req); err != nil {
		return nil, w.crashed()
	}

	var resp response
	done := make(chan error, 1)
	go func() {
		done <- w.dec.Decode(&resp)
	}()

	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return nil, w.crashed()
		}
		return &resp, nil

	case <-timer.C:
		w.kill()
		<-done
		return nil, errTimeLimit

	case <-ctx.Done():
		w.kill()
		<-done
		return nil, ctx.Err()
	}
}

// crashed waits for a worker that stopped answering and explains why
func (w *worker) crashed() error {
	err := w.wait()
	detail := crashDetail(w.stderr.String())
	if detail == "" {
		if err != nil {
			detail = err.Error()
		} else {
			detail = "exited"
		}
	}
	return &crashError{detail: detail}
}

// crashDetail picks the line of a Go crash report that names the cause
func crashDetail(stderr string) string {
	var first string
	s := bufio.NewScanner(strings.NewReader(stderr))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "fatal error:") || strings.HasPrefix(line, "panic:") {
			return line
		}
		if first == "" {
			first = line
		}
	}
	return first
}

func (w *worker) kill() {
	w.cmd.Process.Kill()
	w.wait()
}

// close asks the worker to exit by closing its stdin and kills it if it
// does not
func (w *worker) close() error {
	w.req.Close()
	exited := make(chan error, 1)
	go func() {
		exited <- w.wait()
	}()
	select {
	case err := <-exited:
		return err
	case <-time.After(closeGrace):
		w.cmd.Process.Kill()
		return <-exited
	}
}

func (w *worker) wait() error {
	w.waitOnce.Do(func() {
		w.waitErr = w.cmd.Wait()
		w.req.Close()
		w.resp.Close()
	})
	return w.waitErr
}
