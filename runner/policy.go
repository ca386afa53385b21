package runner

import (
	"os"
	"time"

	"github.com/elastic/go-ucfg/yaml"
)

// Policy restricts what interpreted code can reach
type Policy struct {
	// Allow lists the standard library import paths that loaded code may use
	Allow []string `config:"allow"`
	// OutputLimit is the number of bytes of stdout and stderr kept per module
	OutputLimit int `config:"outputLimit" validate:"min=0"`
	// CPULimit is the processor time a worker may use over its lifetime,
	// zero disables the limit
	CPULimit time.Duration `config:"cpuLimit"`
	// MemoryLimit is the data segment size of a worker in bytes, zero
	// disables the limit
	MemoryLimit uint64 `config:"memoryLimit"`
}

// Defaults of DefaultPolicy
const (
	DefaultOutputLimit = 64 << 10
	DefaultCPULimit    = 60 * time.Second
	DefaultMemoryLimit = 1 << 30
)

// DefaultPolicy allows pure computation packages only. Nothing that
// touches the file system, the network or processes is included.
func DefaultPolicy() *Policy {
	return &Policy{
		Allow: []string{
			"bytes",
			"container/heap",
			"container/list",
			"encoding/base64",
			"encoding/json",
			"errors",
			"fmt",
			"maps",
			"math",
			"math/bits",
			"path",
			"regexp",
			"slices",
			"sort",
			"strconv",
			"strings",
			"time",
			"unicode",
			"unicode/utf8",
		},
		OutputLimit: DefaultOutputLimit,
		CPULimit:    DefaultCPULimit,
		MemoryLimit: DefaultMemoryLimit,
	}
}

// ReadPolicy reads a policy from a yaml file. Keys missing from the file
// keep their default value. It returns nil, nil if the file does not exist.
func ReadPolicy(name string) (*Policy, error) {
	conf, err := yaml.NewConfigWithFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var policy Policy
	if err := conf.Unpack(&policy); err != nil {
		return nil, err
	}
	def := DefaultPolicy()
	if !conf.HasField("allow") {
		policy.Allow = def.Allow
	}
	if !conf.HasField("outputLimit") {
		policy.OutputLimit = def.OutputLimit
	}
	if !conf.HasField("cpuLimit") {
		policy.CPULimit = def.CPULimit
	}
	if !conf.HasField("memoryLimit") {
		policy.MemoryLimit = def.MemoryLimit
	}
	return &policy, nil
}
