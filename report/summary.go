package report

import (
	"io"
	"path/filepath"

	"github.com/criyle/go-grader/section"
	"github.com/criyle/go-grader/types"
	"github.com/goccy/go-yaml"
)

// Summary is the machine readable result of a run
type Summary struct {
	Run      string           `yaml:"run,omitempty"`
	Sections []SectionSummary `yaml:"sections"`
}

// SectionSummary lists the submissions of a section
type SectionSummary struct {
	Name        string              `yaml:"name"`
	Roster      string              `yaml:"roster"`
	Submissions []SubmissionSummary `yaml:"submissions"`
}

// SubmissionSummary is the result of one submission
type SubmissionSummary struct {
	File      string              `yaml:"file"`
	Identity  types.IdentityState `yaml:"identity"`
	ID        string              `yaml:"id,omitempty"`
	Detail    string              `yaml:"detail,omitempty"`
	Total     float64             `yaml:"total"`
	Functions []FunctionSummary   `yaml:"functions"`
}

// FunctionSummary is the result of one function
type FunctionSummary struct {
	Name    string  `yaml:"name"`
	Score   float64 `yaml:"score"`
	Points  float64 `yaml:"points"`
	Passed  int     `yaml:"passed"`
	Cases   int     `yaml:"cases"`
	Missing bool    `yaml:"missing,omitempty"`
}

// Summarize collects the results of sections
func Summarize(run string, sections []*section.Section) *Summary {
	sum := &Summary{Run: run, Sections: make([]SectionSummary, 0, len(sections))}
	for _, s := range sections {
		ss := SectionSummary{
			Name:        filepath.Base(s.Dir),
			Roster:      filepath.Base(s.RosterPath),
			Submissions: make([]SubmissionSummary, 0, len(s.Submissions)),
		}
		for _, sub := range s.Submissions {
			subSum := SubmissionSummary{
				File:      filepath.Base(sub.Path),
				Identity:  sub.Identity.State,
				ID:        sub.Identity.ID,
				Detail:    sub.Identity.Detail,
				Total:     sub.TotalScore(),
				Functions: make([]FunctionSummary, 0, len(sub.Results)),
			}
			for _, r := range sub.Results {
				subSum.Functions = append(subSum.Functions, FunctionSummary{
					Name:    r.Name,
					Score:   r.Score(),
					Points:  r.Points,
					Passed:  r.Count(types.CasePass),
					Cases:   len(r.Cases),
					Missing: r.Missing,
				})
			}
			ss.Submissions = append(ss.Submissions, subSum)
		}
		sum.Sections = append(sum.Sections, ss)
	}
	return sum
}

// WriteSummary writes the summary of sections as yaml
func WriteSummary(w io.Writer, run string, sections []*section.Section) error {
	b, err := yaml.Marshal(Summarize(run, sections))
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
