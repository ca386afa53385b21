//go:build !linux

package runner

// limitProcess is a no-op, workers are only bounded by the time limit
func limitProcess(pid int, p *Policy) error {
	return nil
}
