package section

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/criyle/go-grader/types"
)

// Roster layout
const (
	NumHeaderRows = 2 // label row and points possible row
	IDColumn      = 2 // 0-based column holding the student identifier
)

// Roster is the class list of one section
type Roster struct {
	Header [][]string // the NumHeaderRows header rows
	Rows   [][]string // data rows in original order
}

// ReadRoster reads a roster. Rows may have different lengths, but every
// data row needs the id column.
func ReadRoster(r io.Reader) (*Roster, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: roster: %v", types.ErrParse, err)
	}
	if len(records) < NumHeaderRows {
		return nil, fmt.Errorf("%w: roster: expected %d header rows, got %d", types.ErrParse, NumHeaderRows, len(records))
	}
	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}

	rt := &Roster{
		Header: records[:NumHeaderRows],
		Rows:   records[NumHeaderRows:],
	}
	for i, row := range rt.Rows {
		if len(row) <= IDColumn {
			return nil, fmt.Errorf("%w: roster: row %d has %d cells, expected at least %d", types.ErrParse, i+NumHeaderRows+1, len(row), IDColumn+1)
		}
	}
	return rt, nil
}

// ReadRosterFile reads the roster at path
func ReadRosterFile(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: roster: %v", types.ErrParse, err)
	}
	defer f.Close()

	rt, err := ReadRoster(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rt, nil
}

// ID returns the identifier of data row i
func (r *Roster) ID(i int) string {
	return strings.TrimSpace(r.Rows[i][IDColumn])
}

// IDs returns all identifiers in order, duplicates included
func (r *Roster) IDs() []string {
	ids := make([]string, len(r.Rows))
	for i := range r.Rows {
		ids[i] = r.ID(i)
	}
	return ids
}

// Has reports whether id is on the roster
func (r *Roster) Has(id string) bool {
	for i := range r.Rows {
		if r.ID(i) == id {
			return true
		}
	}
	return false
}

// PointsPossible returns the second header row's cell under the column
// labelled assignment, if there is one
func (r *Roster) PointsPossible(assignment string) (string, bool) {
	for i, label := range r.Header[0] {
		if strings.TrimSpace(label) != assignment {
			continue
		}
		if i < len(r.Header[1]) {
			if v := strings.TrimSpace(r.Header[1][i]); v != "" {
				return v, true
			}
		}
		return "", false
	}
	return "", false
}
