package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/criyle/go-grader/file"
	"github.com/criyle/go-grader/section"
	"github.com/criyle/go-grader/types"
	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

const rosterCSV = `Student,ID,SIS Login ID,Section,HW1,Extra
Points Possible,,,,4,
Jane,1001,A1,S1,,x
Rick,1002,A2,S1,,y
Nobody,1003,A3,S1,,z
`

func addResult(statuses ...types.CaseStatus) types.FunctionResult {
	r := types.FunctionResult{Name: "Add", Points: 2}
	for i, s := range statuses {
		c := types.CaseResult{Status: s, Args: types.ArgumentSet{uint64(i + 1), uint64(2)}}
		if s == types.CaseFail {
			c.Expected, c.Actual = i+3, i-1
			c.Detail = "mismatch"
		}
		r.Cases = append(r.Cases, c)
	}
	return r
}

func testSection(t *testing.T) *section.Section {
	t.Helper()
	dir := t.TempDir()
	roster, err := section.ReadRoster(strings.NewReader(rosterCSV))
	if err != nil {
		t.Fatal(err)
	}
	sub := func(name, src string, id types.Identity, results ...types.FunctionResult) *section.Submission {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(src), 0644); err != nil {
			t.Fatal(err)
		}
		return &section.Submission{Source: file.NewLocalFile(p), Path: p, Identity: id, Results: results}
	}
	return &section.Section{
		Dir:        dir,
		RosterPath: filepath.Join(dir, "roster.csv"),
		Roster:     roster,
		Submissions: []*section.Submission{
			sub("a1.go", "package main\n", types.Identity{State: types.IdentityResolved, ID: "A1"},
				addResult(types.CasePass, types.CasePass)),
			sub("a2.go", "package main // no newline", types.Identity{State: types.IdentityResolved, ID: "A2"},
				addResult(types.CaseFail, types.CaseFail)),
			sub("z9.go", "package main\n", types.Identity{State: types.IdentityUnmatched, ID: "Z9"},
				addResult(types.CasePass, types.CasePass)),
			sub("broken.go", "package main\nfunc (\n",
				types.Identity{State: types.IdentityLoadFailure, Detail: "load failure: broken.go:2:7: expected ')'"},
				types.FunctionResult{Name: "Add", Points: 2, Missing: true, Detail: "file could not be loaded",
					Cases: []types.CaseResult{{Status: types.CaseRuntimeError, Detail: "file could not be loaded"}}}),
		},
	}
}

func TestRenderText(t *testing.T) {
	s := testSection(t)

	text := RenderText(Build(s.Submissions[1]))
	expected := `Add: 0 / 2 points
  case 1: Fail Add(1, 2)
    expected: 3
    actual:   -1
  case 2: Fail Add(2, 2)
    expected: 4
    actual:   0

Total: 0 / 2
`
	if diff := cmp.Diff(expected, text); diff != "" {
		t.Fatalf("feedback (-want +got):\n%s", diff)
	}

	load := RenderText(Build(s.Submissions[3]))
	if !strings.HasPrefix(load, "LOAD FAILURE") {
		t.Fatalf("load failure feedback:\n%s", load)
	}
	extract := RenderText(Build(&section.Submission{
		Identity: types.Identity{State: types.IdentityExtractFailure, Detail: "missing function"},
	}))
	if !strings.HasPrefix(extract, "IDENTITY FAILURE") {
		t.Fatalf("identity failure feedback:\n%s", extract)
	}
	unmatched := RenderText(Build(s.Submissions[2]))
	if !strings.HasPrefix(unmatched, `UNMATCHED ID: "Z9"`) {
		t.Fatalf("unmatched feedback:\n%s", unmatched)
	}
}

func TestBuild_Order(t *testing.T) {
	sub := &section.Submission{
		Identity: types.Identity{State: types.IdentityLoadFailure},
		Results:  []types.FunctionResult{{Name: "A", Points: 1}, {Name: "B", Points: 2, Missing: true}},
	}
	fb := Build(sub)
	if len(fb.Blocks) != 3 {
		t.Fatalf("blocks = %d", len(fb.Blocks))
	}
	if _, ok := fb.Blocks[0].(*IdentityNote); !ok {
		t.Fatalf("first block = %T", fb.Blocks[0])
	}
	if b, ok := fb.Blocks[2].(*FunctionBlock); !ok || b.Result.Name != "B" {
		t.Fatalf("last block = %#v", fb.Blocks[2])
	}
	if fb.Total != 1 || fb.Points != 3 {
		t.Fatalf("total = %v / %v", fb.Total, fb.Points)
	}
}

func TestFeedbackText(t *testing.T) {
	s := testSection(t)
	for _, sub := range s.Submissions {
		orig, _ := sub.Source.Content()
		b, err := FeedbackText(sub)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.HasPrefix(b, orig) {
			t.Fatalf("%s: original content changed", sub.Path)
		}
		rest := b[len(orig):]
		if !bytes.HasPrefix(rest, []byte(strings.Repeat("\n", NumPadding)+"//")) {
			t.Fatalf("%s: padding missing: %q", sub.Path, rest)
		}
		for _, l := range strings.Split(strings.TrimSpace(string(rest)), "\n") {
			if !strings.HasPrefix(l, "//") {
				t.Fatalf("%s: line not commented: %q", sub.Path, l)
			}
		}
	}
}

func TestWriteSheet(t *testing.T) {
	s := testSection(t)
	var b1, b2 bytes.Buffer
	if err := WriteSheet(&b1, s, "HW1", "4"); err != nil {
		t.Fatal(err)
	}
	if err := WriteSheet(&b2, s, "HW1", "4"); err != nil {
		t.Fatal(err)
	}
	expected := `Student,ID,SIS Login ID,Section,HW1
Points Possible,,,,4
Jane,1001,A1,S1,2
Rick,1002,A2,S1,0
Nobody,1003,A3,S1,
`
	if diff := cmp.Diff(expected, b1.String()); diff != "" {
		t.Fatalf("sheet (-want +got):\n%s", diff)
	}
	if !bytes.Equal(b1.Bytes(), b2.Bytes()) {
		t.Fatal("sheet output is not deterministic")
	}
}

func TestWriteSection(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := testSection(t)
	out := t.TempDir()
	sheet, err := WriteSection(context.Background(), out, s, SectionOptions{
		Assignment:     "HW1",
		PointsPossible: "4",
		Parallelism:    2,
	})
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(out, filepath.Base(s.Dir))
	if sheet != filepath.Join(dir, "roster.csv") {
		t.Fatalf("sheet = %s", sheet)
	}
	for _, sub := range s.Submissions {
		b, err := os.ReadFile(filepath.Join(dir, filepath.Base(sub.Path)))
		if err != nil {
			t.Fatal(err)
		}
		expected, _ := FeedbackText(sub)
		if !bytes.Equal(b, expected) {
			t.Fatalf("%s: unexpected content", sub.Path)
		}
	}
	first, err := os.ReadFile(sheet)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := WriteSection(context.Background(), out, s, SectionOptions{Assignment: "HW1", PointsPossible: "4"}); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(sheet)
	if !bytes.Equal(first, second) {
		t.Fatal("rewritten sheet differs")
	}
}

func TestWriteSection_Canceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := WriteSection(ctx, t.TempDir(), testSection(t), SectionOptions{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestWriteSummary(t *testing.T) {
	s := testSection(t)
	var b bytes.Buffer
	if err := WriteSummary(&b, "run-1", []*section.Section{s}); err != nil {
		t.Fatal(err)
	}

	var sum struct {
		Run      string `yaml:"run"`
		Sections []struct {
			Roster      string `yaml:"roster"`
			Submissions []struct {
				File     string  `yaml:"file"`
				Identity string  `yaml:"identity"`
				Total    float64 `yaml:"total"`
			} `yaml:"submissions"`
		} `yaml:"sections"`
	}
	if err := yaml.Unmarshal(b.Bytes(), &sum); err != nil {
		t.Fatalf("%v\n%s", err, b.String())
	}
	if sum.Run != "run-1" || len(sum.Sections) != 1 || sum.Sections[0].Roster != "roster.csv" {
		t.Fatalf("summary = %+v", sum)
	}
	subs := sum.Sections[0].Submissions
	if len(subs) != 4 || subs[0].Total != 2 || subs[3].Identity != "Load Failure" {
		t.Fatalf("submissions = %+v", subs)
	}
}
