package problem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/token"
)

var errEmptyLiteral = errors.New("empty literal")

// DecodeLiteral decodes a single literal cell. The result is one of
// nil, bool, int64, uint64, float64, string, []any or map[string]any.
//
// Text values have to be quoted. Unquoted text that is not null, a
// boolean or a number is rejected so typos like Tru or (1, 2) do not turn
// into string arguments. Mapping keys may stay unquoted.
func DecodeLiteral(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "#") {
		return nil, errEmptyLiteral
	}
	f, err := parser.ParseBytes([]byte(s), 0)
	if err != nil {
		return nil, err
	}
	if len(f.Docs) != 1 || f.Docs[0].Body == nil {
		return nil, fmt.Errorf("expected a single value")
	}
	if err := checkLiteral(f.Docs[0].Body); err != nil {
		return nil, err
	}

	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// checkLiteral accepts scalars, quoted strings, sequences and mappings
func checkLiteral(n ast.Node) error {
	switch n := n.(type) {
	case *ast.NullNode, *ast.BoolNode, *ast.IntegerNode, *ast.FloatNode, *ast.InfinityNode, *ast.NanNode:
		return nil
	case *ast.StringNode:
		if n.Token != nil && n.Token.Type == token.StringType {
			return fmt.Errorf("unquoted text %q, strings have to be quoted", n.Value)
		}
		return nil
	case *ast.SequenceNode:
		for _, v := range n.Values {
			if err := checkLiteral(v); err != nil {
				return err
			}
		}
		return nil
	case *ast.MappingNode:
		for _, v := range n.Values {
			if err := checkLiteral(v); err != nil {
				return err
			}
		}
		return nil
	case *ast.MappingValueNode:
		return checkLiteral(n.Value)
	}
	return fmt.Errorf("unsupported literal %q", n.String())
}
