package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/criyle/go-sandbox/pkg/rlimit"
	"golang.org/x/sys/unix"
)

// workerFileSize bounds files a worker could create despite the policy
const workerFileSize = 1 << 20

// limitProcess applies the resource limits of p to the running worker pid
func limitProcess(pid int, p *Policy) error {
	rLimits := rlimit.RLimits{
		FileSize:    workerFileSize,
		Data:        p.MemoryLimit,
		DisableCore: true,
	}
	if p.CPULimit > 0 {
		rLimits.CPU = uint64(p.CPULimit.Truncate(time.Second)/time.Second) + 1
	}

	var errs []error
	for _, r := range rLimits.PrepareRLimit() {
		lim := unix.Rlimit{Cur: r.Rlim.Cur, Max: r.Rlim.Max}
		if err := unix.Prlimit(pid, r.Res, &lim, nil); err != nil {
			errs = append(errs, fmt.Errorf("prlimit %d: %w", r.Res, err))
		}
	}
	return errors.Join(errs...)
}
