// Package problem reads the function specification of an assignment.
//
// A specification is row oriented CSV text made of blocks. Each block
// starts with a metadata row holding the function name and optionally its
// point value, followed by zero or more argument rows, and ends with a
// blank row or the end of the input. Every argument cell is a literal in
// YAML flow syntax, so 1, -2.5, true, null, 'text', "text", [1, [2, 3]]
// and {a: 1} are all accepted. Text must be quoted: an unquoted word such
// as abc or Tru is a parse error.
package problem

import (
	"github.com/criyle/go-grader/file"
	"github.com/criyle/go-grader/types"
)

// Builder builds function specs from file
type Builder interface {
	Build(file.File) ([]types.FunctionSpec, error)
}
