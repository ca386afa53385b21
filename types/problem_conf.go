package types

// ArgumentSet is the ordered tuple of literal values passed to one call
type ArgumentSet []any

// FunctionSpec defines a graded function and all of its cases
type FunctionSpec struct {
	Name         string
	ArgumentSets []ArgumentSet
	Points       float64
}

// DefaultPoints is used when the specification does not give a point value
const DefaultPoints = 1

// TotalPoints sums the points of all specs
func TotalPoints(specs []FunctionSpec) float64 {
	var total float64
	for _, s := range specs {
		total += s.Points
	}
	return total
}
