package problem

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/criyle/go-grader/file"
	"github.com/criyle/go-grader/types"
)

var _ Builder = CSV{}

// CSV builds function specs from the CSV specification format
type CSV struct{}

// Build parses the content of f
func (CSV) Build(f file.File) ([]types.FunctionSpec, error) {
	r, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", types.ErrParse, f.Name(), err)
	}
	defer r.Close()

	specs, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	return specs, nil
}

// ParseFile parses the specification file at path
func ParseFile(path string) ([]types.FunctionSpec, error) {
	return CSV{}.Build(file.NewLocalFile(path))
}

// SyntaxError reports a malformed specification
type SyntaxError struct {
	Line   int // 1-based line
	Column int // 1-based cell index, 0 for the whole row
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("parse error: line %d, cell %d: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("parse error: line %d: %v", e.Line, e.Err)
}

// Unwrap makes the error match both types.ErrParse and the cause
func (e *SyntaxError) Unwrap() []error {
	return []error{types.ErrParse, e.Err}
}

type row struct {
	line  int
	cells []string // nil for a blank row
}

// Parse reads all function blocks in order. Any malformed row or literal
// fails the whole parse.
func Parse(r io.Reader) ([]types.FunctionSpec, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	var (
		specs []types.FunctionSpec
		seen  = make(map[string]int)
	)
	for i := 0; i < len(rows); {
		// skip separators
		if rows[i].cells == nil {
			i++
			continue
		}
		meta := rows[i]
		spec, err := parseMeta(meta)
		if err != nil {
			return nil, err
		}
		if l, ok := seen[spec.Name]; ok {
			return nil, &SyntaxError{Line: meta.line, Column: 1,
				Err: fmt.Errorf("function %q already defined at line %d", spec.Name, l)}
		}
		seen[spec.Name] = meta.line

		// argument rows until blank row or end
		spec.ArgumentSets = make([]types.ArgumentSet, 0)
		for i++; i < len(rows) && rows[i].cells != nil; i++ {
			args, err := parseArgs(rows[i])
			if err != nil {
				return nil, err
			}
			spec.ArgumentSets = append(spec.ArgumentSets, args)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseMeta(r row) (types.FunctionSpec, error) {
	name := strings.TrimSpace(r.cells[0])
	if name == "" {
		return types.FunctionSpec{}, &SyntaxError{Line: r.line, Column: 1, Err: fmt.Errorf("empty function name")}
	}
	spec := types.FunctionSpec{Name: name, Points: types.DefaultPoints}
	if len(r.cells) > 1 {
		if p := strings.TrimSpace(r.cells[1]); p != "" {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return types.FunctionSpec{}, &SyntaxError{Line: r.line, Column: 2, Err: fmt.Errorf("invalid points %q", p)}
			}
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return types.FunctionSpec{}, &SyntaxError{Line: r.line, Column: 2, Err: fmt.Errorf("points out of range: %q", p)}
			}
			spec.Points = v
		}
	}
	return spec, nil
}

func parseArgs(r row) (types.ArgumentSet, error) {
	args := make(types.ArgumentSet, 0, len(r.cells))
	for i, c := range r.cells {
		v, err := DecodeLiteral(c)
		if err != nil {
			return nil, &SyntaxError{Line: r.line, Column: i + 1, Err: fmt.Errorf("literal %q: %w", c, err)}
		}
		args = append(args, v)
	}
	return args, nil
}

// readRows splits the input into rows. encoding/csv drops blank lines,
// which are block separators here, so every line is read separately;
// cells can not span multiple lines.
func readRows(r io.Reader) ([]row, error) {
	var rows []row
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if line == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if strings.TrimSpace(text) == "" {
			rows = append(rows, row{line: line})
			continue
		}
		cr := csv.NewReader(strings.NewReader(text))
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		cells, err := cr.Read()
		if err != nil {
			return nil, &SyntaxError{Line: line, Err: err}
		}
		if allEmpty(cells) {
			cells = nil
		}
		rows = append(rows, row{line: line, cells: cells})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	return rows, nil
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
