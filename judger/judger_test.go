package judger

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/criyle/go-grader/file"
	"github.com/criyle/go-grader/runner"
	"github.com/criyle/go-grader/types"
)

const (
	refSource = `package main

func Add(a, b int) int { return a + b }
func Plus(a, b int) int { return a + b }
func Sign(x int) int {
	if x < 0 {
		panic("negative")
	}
	return 1
}
func Present() {}
`
	goodSource = `package main

func Add(a, b int) int { return a + b }
func Plus(a, b int) int { return b + a }
func Sign(x int) int { return 1 }
func Present() {}
`
	badSource = `package main

import "time"

func Add(a, b int) int { return a - b }
func Plus(a, b int) string { return "3" }
func Sign(x int) int {
	time.Sleep(time.Second)
	return 1
}
`
)

func TestMain(m *testing.M) {
	runner.ServeWorker()
	os.Exit(m.Run())
}

type recorder struct {
	n int
}

func (r *recorder) Case(*types.FunctionSpec, *types.CaseResult) {
	r.n++
}

func load(t *testing.T, r *runner.Runner, name, src string) *runner.Module {
	t.Helper()
	m, err := r.Load(context.Background(), file.NewMemFile(name, []byte(src)))
	if err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func args(v ...any) types.ArgumentSet {
	return types.ArgumentSet(v)
}

func statuses(r types.FunctionResult) string {
	s := make([]string, len(r.Cases))
	for i, c := range r.Cases {
		s[i] = c.Status.String()
	}
	return strings.Join(s, ",")
}

// add(1,2) -> 3 and add(2,2) -> 4 as two cases of one function
func TestJudge_AddOneFunction(t *testing.T) {
	r := runner.New(runner.Config{})
	ref := load(t, r, "ref.go", refSource)
	good := load(t, r, "good.go", goodSource)
	bad := load(t, r, "bad.go", badSource)

	spec := &types.FunctionSpec{
		Name:         "Add",
		Points:       2,
		ArgumentSets: []types.ArgumentSet{args(uint64(1), uint64(2)), args(uint64(2), uint64(2))},
	}
	rec := &recorder{}
	j := &Judger{Observer: rec}

	rt := j.Judge(context.Background(), good, spec, ref)
	if s := statuses(rt); s != "Pass,Pass" {
		t.Fatalf("good: %s", s)
	}
	if rt.Score() != 2 {
		t.Fatalf("good score = %v", rt.Score())
	}
	if rt.Cases[0].Expected != int64(3) || rt.Cases[0].Actual != int64(3) {
		t.Fatalf("good case 0 = %v, %v", rt.Cases[0].Expected, rt.Cases[0].Actual)
	}

	rt = j.Judge(context.Background(), bad, spec, ref)
	if s := statuses(rt); s != "Fail,Fail" {
		t.Fatalf("bad: %s", s)
	}
	if rt.Score() != 0 {
		t.Fatalf("bad score = %v", rt.Score())
	}
	if rt.Cases[1].Actual != int64(0) {
		t.Fatalf("bad add(2, 2) = %v", rt.Cases[1].Actual)
	}
	if rec.n != 4 {
		t.Fatalf("observed %d cases", rec.n)
	}
}

// add(1,2) -> 3 and add(2,2) -> 4 as two functions with one case each
func TestJudge_AddTwoFunctions(t *testing.T) {
	r := runner.New(runner.Config{})
	ref := load(t, r, "ref.go", refSource)
	good := load(t, r, "good.go", goodSource)
	bad := load(t, r, "bad.go", strings.Replace(badSource, `string { return "3" }`, `int { return a - b }`, 1))

	specs := []types.FunctionSpec{
		{Name: "Add", Points: 2, ArgumentSets: []types.ArgumentSet{args(uint64(1), uint64(2))}},
		{Name: "Plus", Points: 2, ArgumentSets: []types.ArgumentSet{args(uint64(2), uint64(2))}},
	}
	j := &Judger{}
	var goodTotal, badTotal float64
	for i := range specs {
		g := j.Judge(context.Background(), good, &specs[i], ref)
		b := j.Judge(context.Background(), bad, &specs[i], ref)
		if statuses(g) != "Pass" || statuses(b) != "Fail" {
			t.Fatalf("%s: good %s, bad %s", specs[i].Name, statuses(g), statuses(b))
		}
		goodTotal += g.Score()
		badTotal += b.Score()
	}
	if goodTotal != 4 || badTotal != 0 {
		t.Fatalf("totals = %v, %v", goodTotal, badTotal)
	}
}

func TestJudge_Uncomparable(t *testing.T) {
	r := runner.New(runner.Config{})
	ref := load(t, r, "ref.go", refSource)
	bad := load(t, r, "bad.go", badSource)

	spec := &types.FunctionSpec{Name: "Plus", Points: 1, ArgumentSets: []types.ArgumentSet{args(uint64(1), uint64(2))}}
	rt := (&Judger{}).Judge(context.Background(), bad, spec, ref)
	if s := statuses(rt); s != "Uncomparable" {
		t.Fatalf("got %s", s)
	}
	if rt.Score() != 0 {
		t.Fatalf("score = %v", rt.Score())
	}
}

func TestJudge_RuntimeErrors(t *testing.T) {
	r := runner.New(runner.Config{TimeLimit: 100 * time.Millisecond})
	ref := load(t, r, "ref.go", refSource)
	bad := load(t, r, "bad.go", badSource)
	good := load(t, r, "good.go", goodSource)

	spec := &types.FunctionSpec{
		Name:   "Sign",
		Points: 1,
		ArgumentSets: []types.ArgumentSet{
			args(uint64(1)),
			args(int64(-1)),
			args("x"),
		},
	}
	rt := (&Judger{}).Judge(context.Background(), bad, spec, ref)
	// the reference panics on -1 and can not take a string
	if s := statuses(rt); s != "Runtime Error,Uncomparable,Uncomparable" {
		t.Fatalf("bad: %s", s)
	}
	if !strings.Contains(rt.Cases[0].Detail, "time limit") {
		t.Fatalf("detail = %q", rt.Cases[0].Detail)
	}
	if !strings.Contains(rt.Cases[1].Detail, detailReferenceFailed) {
		t.Fatalf("detail = %q", rt.Cases[1].Detail)
	}

	rt = (&Judger{}).Judge(context.Background(), good, spec, ref)
	if s := statuses(rt); s != "Pass,Uncomparable,Uncomparable" {
		t.Fatalf("good: %s", s)
	}
}

const factSource = `package main

func Fact(n int) int {
	if n <= 1 {
		return 1
	}
	return n * Fact(n-1)
}
`

// a recursive factorial without a base case overflows the stack
func TestJudge_StackOverflow(t *testing.T) {
	r := runner.New(runner.Config{TimeLimit: 20 * time.Second})
	ref := load(t, r, "ref.go", factSource)
	sub := load(t, r, "sub.go", `package main

func Fact(n int) int { return n * Fact(n-1) }
`)

	spec := &types.FunctionSpec{
		Name:         "Fact",
		Points:       1,
		ArgumentSets: []types.ArgumentSet{args(uint64(5)), args(uint64(3))},
	}
	rt := (&Judger{}).Judge(context.Background(), sub, spec, ref)
	if s := statuses(rt); s != "Runtime Error,Runtime Error" {
		t.Fatalf("got %s", s)
	}
	if !strings.Contains(rt.Cases[0].Detail, "crashed") {
		t.Fatalf("detail = %q", rt.Cases[0].Detail)
	}
	if rt.Cases[1].Expected != int64(6) {
		t.Fatalf("expected = %v", rt.Cases[1].Expected)
	}

	// the grader and the reference are unaffected
	good := load(t, r, "good.go", factSource)
	if rt := (&Judger{}).Judge(context.Background(), good, spec, ref); statuses(rt) != "Pass,Pass" {
		t.Fatalf("good: %s", statuses(rt))
	}
}
