package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/criyle/go-grader/section"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Output layout
const (
	NumPadding     = 5     // blank lines between the submission and its feedback
	CommentPrefix  = "// " // prefix of every feedback line
	NumMetaColumns = 4     // roster columns kept in the score sheet
)

// SheetHeader is the label row of the score sheet, followed by the
// assignment name
var SheetHeader = []string{"Student", "ID", "SIS Login ID", "Section"}

// FeedbackText returns the original content of sub followed by the
// commented feedback
func FeedbackText(sub *section.Submission) ([]byte, error) {
	content, err := sub.Source.Content()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sub.Path, err)
	}
	var b bytes.Buffer
	b.Grow(len(content) + 1024)
	b.Write(content)
	b.WriteString(strings.Repeat("\n", NumPadding))
	for _, l := range strings.SplitAfter(RenderText(Build(sub)), "\n") {
		if l == "" {
			continue
		}
		b.WriteString(strings.TrimRight(CommentPrefix+l, " \n"))
		b.WriteByte('\n')
	}
	return b.Bytes(), nil
}

// WriteFeedback writes the graded copy of sub into outDir, under the
// same file name
func WriteFeedback(outDir string, sub *section.Submission) error {
	b, err := FeedbackText(sub)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, filepath.Base(sub.Path)), b, 0644)
}

// WriteSheet writes the score sheet of s. Roster rows keep their order;
// students without a resolved submission get an empty score.
func WriteSheet(w io.Writer, s *section.Section, assignment, possible string) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, SheetHeader...), assignment)
	if err := cw.Write(header); err != nil {
		return err
	}
	pp := make([]string, NumMetaColumns+1)
	pp[0] = "Points Possible"
	pp[NumMetaColumns] = possible
	if err := cw.Write(pp); err != nil {
		return err
	}

	for i, row := range s.Roster.Rows {
		out := make([]string, NumMetaColumns+1)
		copy(out, row)
		if sub, ok := s.Lookup(s.Roster.ID(i)); ok {
			out[NumMetaColumns] = formatScore(sub.TotalScore())
		}
		if err := cw.Write(out); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SectionOptions defines the output of WriteSection
type SectionOptions struct {
	Assignment     string
	PointsPossible string
	Parallelism    int // concurrent feedback writes, <= 0 for no limit
	Logger         *zap.Logger
}

// WriteSection writes the feedback of every submission of s and then
// the score sheet into outDir/<section>/
func WriteSection(ctx context.Context, outDir string, s *section.Section, opts SectionOptions) (string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := filepath.Join(outDir, filepath.Base(s.Dir))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	eg, ctx := errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		eg.SetLimit(opts.Parallelism)
	}
	for _, sub := range s.Submissions {
		sub := sub
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := WriteFeedback(dir, sub); err != nil {
				return fmt.Errorf("feedback %s: %w", sub.Path, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return "", err
	}

	sheet := filepath.Join(dir, filepath.Base(s.RosterPath))
	var b bytes.Buffer
	if err := WriteSheet(&b, s, opts.Assignment, opts.PointsPossible); err != nil {
		return "", err
	}
	if err := os.WriteFile(sheet, b.Bytes(), 0644); err != nil {
		return "", err
	}
	logger.Info("section written",
		zap.String("dir", dir),
		zap.String("sheet", sheet),
		zap.Int("feedback", len(s.Submissions)))
	return sheet, nil
}
