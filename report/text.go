package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/criyle/go-grader/pkg/diff"
	"github.com/criyle/go-grader/types"
)

// RenderText renders the feedback as plain text
func RenderText(fb Feedback) string {
	var b strings.Builder
	for i, blk := range fb.Blocks {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch blk := blk.(type) {
		case *IdentityNote:
			writeIdentity(&b, blk.Identity)
		case *FunctionBlock:
			writeFunction(&b, &blk.Result)
		}
	}
	if len(fb.Blocks) > 0 {
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Total: %s / %s\n", formatScore(fb.Total), formatScore(fb.Points))
	return b.String()
}

func writeIdentity(w io.Writer, id types.Identity) {
	switch id.State {
	case types.IdentityLoadFailure:
		fmt.Fprintln(w, "LOAD FAILURE: this file could not be loaded, so none of its functions could be run.")
	case types.IdentityExtractFailure:
		fmt.Fprintln(w, "IDENTITY FAILURE: the file loaded, but your student id could not be read from it.")
	case types.IdentityUnmatched:
		fmt.Fprintf(w, "UNMATCHED ID: %q is not on the roster of this section, no score was recorded.\n", id.ID)
	default:
		fmt.Fprintf(w, "IDENTITY: %v\n", id.State)
	}
	writeDetail(w, id.Detail, "  ")
}

func writeFunction(w io.Writer, r *types.FunctionResult) {
	fmt.Fprintf(w, "%s: %s / %s points\n", r.Name, formatScore(r.Score()), formatScore(r.Points))
	if r.Missing {
		fmt.Fprintf(w, "  not run: %s\n", r.Detail)
	}
	if len(r.Cases) == 0 && !r.Missing {
		fmt.Fprintln(w, "  defined")
	}
	for i, c := range r.Cases {
		fmt.Fprintf(w, "  case %d: %v %s\n", i+1, c.Status, formatArgs(r.Name, c.Args))
		switch c.Status {
		case types.CasePass:
		case types.CaseFail:
			fmt.Fprintf(w, "    expected: %s\n", diff.Format(c.Expected))
			fmt.Fprintf(w, "    actual:   %s\n", diff.Format(c.Actual))
		default:
			if !r.Missing {
				writeDetail(w, c.Detail, "    ")
			}
		}
	}
}

func writeDetail(w io.Writer, detail, indent string) {
	if detail == "" {
		return
	}
	for _, l := range strings.Split(strings.TrimRight(detail, "\n"), "\n") {
		fmt.Fprintf(w, "%s%s\n", indent, l)
	}
}

func formatArgs(name string, args types.ArgumentSet) string {
	s := make([]string, len(args))
	for i, a := range args {
		s[i] = diff.Format(a)
	}
	return name + "(" + strings.Join(s, ", ") + ")"
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
