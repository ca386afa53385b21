// Command go-grader grades student submissions of one assignment against
// a reference solution and writes annotated copies and score sheets.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/criyle/go-grader/cmd/go-grader/config"
	"github.com/criyle/go-grader/cmd/go-grader/version"
	"github.com/criyle/go-grader/file"
	"github.com/criyle/go-grader/judger"
	"github.com/criyle/go-grader/problem"
	"github.com/criyle/go-grader/report"
	"github.com/criyle/go-grader/runner"
	"github.com/criyle/go-grader/section"
	"github.com/criyle/go-grader/types"
	"github.com/google/shlex"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var logger *zap.Logger

func main() {
	runner.ServeWorker()

	loadDotEnv()
	conf := loadConf()
	if conf.Version {
		fmt.Println(version.Version)
		return
	}
	initLogger(conf)
	defer logger.Sync()

	runID := uuid.NewString()
	logger = logger.With(zap.String("run", runID))
	if ce := logger.Check(zap.InfoLevel, "Config loaded"); ce != nil {
		ce.Write(zap.String("config", fmt.Sprintf("%+v", conf)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, runID); err != nil {
		logger.Fatal("Grading failed", zap.Error(err))
	}
	logger.Info("Grading finished")
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalln("load .env failed ", err)
	}
}

func loadConf() *config.Config {
	var conf config.Config
	if err := conf.Load(); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalln("load config failed ", err)
	}
	return &conf
}

func initLogger(conf *config.Config) {
	if conf.Silent {
		logger = zap.NewNop()
		return
	}

	var err error
	if conf.Release {
		logger, err = zap.NewProduction()
	} else {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if !conf.EnableDebug {
			config.Level.SetLevel(zap.InfoLevel)
		}
		logger, err = config.Build()
	}
	if err != nil {
		log.Fatalln("init logger failed ", err)
	}
}

func run(ctx context.Context, conf *config.Config, runID string) error {
	dirs, err := shlex.Split(conf.Sections)
	if err != nil {
		return fmt.Errorf("sections: %w", err)
	}
	if len(dirs) == 0 {
		return errors.New("no section directory given")
	}

	specs, err := problem.ParseFile(conf.Spec)
	if err != nil {
		return err
	}
	assignment := conf.Assignment
	if assignment == "" {
		assignment = strings.TrimSuffix(filepath.Base(conf.Spec), filepath.Ext(conf.Spec))
	}
	logger.Info("Specification loaded",
		zap.String("spec", conf.Spec),
		zap.Int("functions", len(specs)),
		zap.Float64("points", types.TotalPoints(specs)))

	r, err := newRunner(conf)
	if err != nil {
		return err
	}
	ref, err := loadReference(ctx, r, conf.Solution, specs)
	if err != nil {
		return err
	}
	defer ref.Close()

	// grade everything before any report is written
	j := &judger.Judger{Observer: metricsObserver{}, Logger: logger}
	sections := make([]*section.Section, 0, len(dirs))
	for _, dir := range dirs {
		s, err := section.Load(ctx, dir, section.Options{
			Runner:       r,
			IdentityFunc: conf.IdentityFunc,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		if err := s.Grade(ctx, j, ref, specs); err != nil {
			return err
		}
		sections = append(sections, s)
	}
	killedWorkers.Set(float64(r.Killed()))
	if n := r.Killed(); n > 0 {
		logger.Warn("Workers killed after time limit", zap.Int64("count", n))
	}

	var eg errgroup.Group
	for _, s := range sections {
		s := s
		possible, possibleValue := pointsPossible(s, assignment, specs)
		sectionObserve(filepath.Base(s.Dir), s, possibleValue)
		eg.Go(func() error {
			_, err := report.WriteSection(ctx, conf.Output, s, report.SectionOptions{
				Assignment:     assignment,
				PointsPossible: possible,
				Parallelism:    conf.Parallelism,
				Logger:         logger,
			})
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if conf.Summary != "" {
		var b bytes.Buffer
		if err := report.WriteSummary(&b, runID, sections); err != nil {
			return err
		}
		if err := os.WriteFile(conf.Summary, b.Bytes(), 0644); err != nil {
			return err
		}
		logger.Info("Summary written", zap.String("file", conf.Summary))
	}
	if conf.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(conf.MetricsFile, prometheus.DefaultGatherer); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	return nil
}

func newRunner(conf *config.Config) (*runner.Runner, error) {
	policy, err := runner.ReadPolicy(conf.SandboxConf)
	if err != nil {
		return nil, fmt.Errorf("sandbox policy %s: %w", conf.SandboxConf, err)
	}
	if policy != nil {
		logger.Info("Sandbox policy loaded", zap.String("file", conf.SandboxConf), zap.Strings("allow", policy.Allow))
	}
	return runner.New(runner.Config{
		TimeLimit: conf.TimeLimit,
		Policy:    policy,
		Logger:    logger,
	}), nil
}

// loadReference loads the solution, which has to define every function
func loadReference(ctx context.Context, r *runner.Runner, path string, specs []types.FunctionSpec) (*runner.Module, error) {
	ref, err := r.Load(ctx, file.NewLocalFile(path))
	if err != nil {
		return nil, fmt.Errorf("reference solution: %w", err)
	}
	defer ref.Close()
	var errs []error
	for _, s := range specs {
		if _, err := ref.Resolve(s.Name); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("reference solution: %w", errors.Join(errs...))
	}
	return ref, nil
}

// pointsPossible prefers the value of the roster, falling back to the sum
// of the specified points
func pointsPossible(s *section.Section, assignment string, specs []types.FunctionSpec) (string, float64) {
	if p, ok := s.Roster.PointsPossible(assignment); ok {
		v, err := strconv.ParseFloat(p, 64)
		if err == nil {
			return p, v
		}
		logger.Warn("Points possible of roster is not a number", zap.String("roster", s.RosterPath), zap.String("value", p))
	}
	total := s.PointsPossible(specs)
	return strconv.FormatFloat(total, 'f', -1, 64), total
}
