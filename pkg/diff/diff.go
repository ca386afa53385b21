// Package diff compares values returned by the reference implementation
// and by a submission and returns error information if they are different.
//
// Values are first normalized to plain trees (nil, bool, int64, uint64,
// float64, string, []any, map[string]any) so that an int returned by one
// side equals an equivalent int64 or float64 returned by the other.
// Integers are compared exactly; the tolerance applies only when at least
// one side is a float.
package diff

import (
	"fmt"
	"math"

	"github.com/criyle/go-grader/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Comparator decides whether actual is equal enough to expected.
// It returns nil if equal, a *MismatchError if not, and an error wrapping
// types.ErrUncomparable if the values can not be judged
type Comparator interface {
	Compare(expected, actual any) error
}

// Default tolerances
const (
	DefaultFraction = 1e-9
	DefaultMargin   = 1e-12
)

var _ Comparator = Values{}

// Default compares numbers with the default tolerances
var Default = Values{Fraction: DefaultFraction, Margin: DefaultMargin}

// Values is the default comparator
type Values struct {
	Fraction float64 // relative tolerance for floats
	Margin   float64 // absolute tolerance for floats
}

// MismatchError describes two comparable but different values
type MismatchError struct {
	Expected, Actual any
	Diff             string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected: %v\nactual: %v", Format(e.Expected), Format(e.Actual))
}

// Compare compares actual with expected.
func (c Values) Compare(expected, actual any) (err error) {
	exp, err := Normalize(expected)
	if err != nil {
		return fmt.Errorf("%w: expected value: %v", types.ErrUncomparable, err)
	}
	act, err := Normalize(actual)
	if err != nil {
		return fmt.Errorf("%w: actual value: %v", types.ErrUncomparable, err)
	}
	if ke, ka := kindOf(exp), kindOf(act); ke != ka && ke != "nil" && ka != "nil" {
		return fmt.Errorf("%w: expected a %s, got a %s", types.ErrUncomparable, ke, ka)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", types.ErrUncomparable, r)
		}
	}()
	opts := cmp.Options{
		cmp.FilterValues(bothNumbers, cmp.Comparer(c.numbersEqual)),
		cmpopts.EquateEmpty(),
	}
	if cmp.Equal(exp, act, opts) {
		return nil
	}
	return &MismatchError{
		Expected: exp,
		Actual:   act,
		Diff:     cmp.Diff(exp, act, opts),
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case bool:
		return "bool"
	case int64, uint64, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "mapping"
	}
	return fmt.Sprintf("%T", v)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, uint64, float64:
		return true
	}
	return false
}

func bothNumbers(x, y any) bool {
	return isNumber(x) && isNumber(y)
}

// numbersEqual compares integers exactly and floats within the tolerance
func (c Values) numbersEqual(x, y any) bool {
	xf, xFloat := x.(float64)
	yf, yFloat := y.(float64)
	if !xFloat && !yFloat {
		return integersEqual(x, y)
	}
	if !xFloat {
		xf = toFloat(x)
	}
	if !yFloat {
		yf = toFloat(y)
	}
	return c.floatsEqual(xf, yf)
}

func integersEqual(x, y any) bool {
	switch x := x.(type) {
	case int64:
		switch y := y.(type) {
		case int64:
			return x == y
		case uint64:
			return x >= 0 && uint64(x) == y
		}
	case uint64:
		switch y := y.(type) {
		case uint64:
			return x == y
		case int64:
			return y >= 0 && uint64(y) == x
		}
	}
	return false
}

func toFloat(v any) float64 {
	switch v := v.(type) {
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float64:
		return v
	}
	return math.NaN()
}

func (c Values) floatsEqual(x, y float64) bool {
	if x == y {
		return true
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.IsNaN(x) && math.IsNaN(y)
	}
	if math.IsInf(x, 0) || math.IsInf(y, 0) {
		return false
	}
	d := math.Abs(x - y)
	return d <= c.Margin || d <= c.Fraction*math.Min(math.Abs(x), math.Abs(y))
}
