package section

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/criyle/go-grader/file"
	"github.com/criyle/go-grader/runner"
	"github.com/criyle/go-grader/types"
	"go.uber.org/zap"
)

// RosterExt is the extension of the roster file. Every other file in a
// section directory is a submission.
const RosterExt = ".csv"

// DefaultIdentityFunc is the entry point that returns the student ids
const DefaultIdentityFunc = "GetHawkIDs"

// Options defines how a section directory is loaded
type Options struct {
	Runner       *runner.Runner
	IdentityFunc string // empty uses DefaultIdentityFunc
	Logger       *zap.Logger
}

// Load reads the roster of dir and loads every submission in it. Only a
// missing or ambiguous roster is an error; submissions that fail to load
// are kept with an unresolved identity.
func Load(ctx context.Context, dir string, opts Options) (*Section, error) {
	if opts.Runner == nil {
		opts.Runner = runner.New(runner.Config{Logger: opts.Logger})
	}
	if opts.IdentityFunc == "" {
		opts.IdentityFunc = DefaultIdentityFunc
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("section", filepath.Base(dir)))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("section %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var rosters, sources []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if strings.EqualFold(filepath.Ext(e.Name()), RosterExt) {
			rosters = append(rosters, p)
		} else {
			sources = append(sources, p)
		}
	}
	switch len(rosters) {
	case 0:
		return nil, fmt.Errorf("section %s: no %s roster found", dir, RosterExt)
	case 1:
	default:
		return nil, fmt.Errorf("section %s: expected one %s roster, found %d", dir, RosterExt, len(rosters))
	}

	roster, err := ReadRosterFile(rosters[0])
	if err != nil {
		return nil, err
	}
	s := &Section{
		Dir:        dir,
		RosterPath: rosters[0],
		Roster:     roster,
		logger:     logger,
	}

	seen := make(map[string]string)
	for _, p := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sub := loadSubmission(ctx, p, roster, opts)
		switch sub.Identity.State {
		case types.IdentityResolved:
			if first, ok := seen[sub.Identity.ID]; ok {
				logger.Warn("duplicate submission, the first one is used",
					zap.String("id", sub.Identity.ID),
					zap.String("first", first),
					zap.String("duplicate", sub.Path))
			} else {
				seen[sub.Identity.ID] = sub.Path
			}
		default:
			logger.Info("unresolved submission",
				zap.String("file", sub.Path),
				zap.Stringer("identity", sub.Identity.State),
				zap.String("detail", sub.Identity.Detail))
		}
		s.Submissions = append(s.Submissions, sub)
	}
	logger.Info("section loaded",
		zap.Int("students", len(roster.Rows)),
		zap.Int("submissions", len(s.Submissions)))
	return s, nil
}

func loadSubmission(ctx context.Context, path string, roster *Roster, opts Options) *Submission {
	sub := &Submission{
		Source: file.NewLocalFile(path),
		Path:   path,
	}
	m, err := opts.Runner.Load(ctx, sub.Source)
	if err != nil {
		sub.Identity = types.Identity{State: types.IdentityLoadFailure, Detail: err.Error()}
		return sub
	}
	sub.module = m

	id, err := extractID(ctx, m, opts.IdentityFunc)
	// grading starts the worker again
	m.Close()
	if err != nil {
		sub.Identity = types.Identity{State: types.IdentityExtractFailure, Detail: err.Error()}
		return sub
	}
	sub.Identity.ID = id
	if roster.Has(id) {
		sub.Identity.State = types.IdentityResolved
	} else {
		sub.Identity.State = types.IdentityUnmatched
	}
	return sub
}

var errNoID = errors.New("no identifier returned")

// extractID calls the identity entry point and returns the first element
// of the sequence it returns
func extractID(ctx context.Context, m *runner.Module, name string) (string, error) {
	fn, err := m.Resolve(name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrIdentity, err)
	}
	v, err := fn.Call(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", types.ErrIdentity, name, err)
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return "", fmt.Errorf("%w: %s returned %T, expected a list of ids", types.ErrIdentity, name, v)
	}
	if rv.Len() == 0 {
		return "", fmt.Errorf("%w: %s: %w", types.ErrIdentity, name, errNoID)
	}
	first := rv.Index(0)
	if !first.CanInterface() {
		return "", fmt.Errorf("%w: %s: %w", types.ErrIdentity, name, errNoID)
	}
	id := strings.TrimSpace(fmt.Sprint(first.Interface()))
	if id == "" {
		return "", fmt.Errorf("%w: %s: %w", types.ErrIdentity, name, errNoID)
	}
	return id, nil
}
