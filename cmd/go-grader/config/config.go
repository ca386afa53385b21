package config

import (
	"os"
	"runtime"
	"time"

	"github.com/koding/multiconfig"
)

// Config defines grader configuration
type Config struct {
	// inputs
	Spec     string `flagUsage:"specifies the function specification file" default:"spec.csv"`
	Solution string `flagUsage:"specifies the reference solution source file" default:"solution.go"`
	Sections string `flagUsage:"space separated section directories, each with one roster .csv and the submissions"`

	// outputs
	Output      string `flagUsage:"specifies the output directory" default:"graded"`
	Assignment  string `flagUsage:"assignment name of the score column (default to spec file name)"`
	Summary     string `flagUsage:"write a yaml summary of all results to this file"`
	MetricsFile string `flagUsage:"write prometheus metrics in text format to this file"`

	// runner
	TimeLimit    time.Duration `flagUsage:"wall clock limit for loading a file or a single call" default:"2s"`
	SandboxConf  string        `flagUsage:"specifies the sandbox policy of loaded code" default:"sandbox.yaml"`
	IdentityFunc string        `flagUsage:"function returning the student ids of a submission" default:"GetHawkIDs"`
	Parallelism  int           `flagUsage:"control the # of concurrent report writes (default equal to number of cpu)"`

	// logger config
	Release     bool `flagUsage:"release level of logs"`
	Silent      bool `flagUsage:"do not print logs"`
	EnableDebug bool `flagUsage:"print debug logs"`

	// show version and exit
	Version bool `flagUsage:"show version and exit"`
}

// Load loads config from flag & environment variables
func (c *Config) Load() error {
	cl := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{
			Prefix:    "GRADER",
			CamelCase: true,
		},
		&multiconfig.FlagLoader{
			CamelCase: true,
			EnvPrefix: "GRADER",
		},
	)
	if os.Getpid() == 1 {
		c.Release = true
	}
	if err := cl.Load(c); err != nil {
		return err
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.NumCPU()
	}
	return nil
}
