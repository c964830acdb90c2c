package sim

import "fmt"

// Aggregation combines the values delivered by several sources into one attribute.
type Aggregation uint8

const (
	// AggMean is the arithmetic mean over all sources (default).
	AggMean Aggregation = iota
	// AggSum adds all sources, e.g. power flowing into a busbar.
	AggSum
	// AggLast takes the source whose id sorts last as a string, so "x_9" wins over "x_10".
	AggLast
)

func (a Aggregation) String() string {
	switch a {
	case AggMean:
		return "mean"
	case AggSum:
		return "sum"
	case AggLast:
		return "last"
	default:
		return fmt.Sprintf("aggregation(%d)", uint8(a))
	}
}

// AttrSpec declares one attribute slot of an entity type.
type AttrSpec struct {
	Name string
	Kind Kind
	Agg  Aggregation // inputs only
}

// FloatAttr declares a numeric attribute aggregated by mean.
func FloatAttr(name string) AttrSpec { return AttrSpec{Name: name, Kind: KindFloat} }

// BoolAttr declares a boolean attribute.
func BoolAttr(name string) AttrSpec { return AttrSpec{Name: name, Kind: KindBool} }

// SumAttr declares a numeric input attribute whose sources are added.
func SumAttr(name string) AttrSpec { return AttrSpec{Name: name, Kind: KindFloat, Agg: AggSum} }

// Schema is the static attribute declaration of an entity type.
type Schema struct {
	Params  []string
	Inputs  []AttrSpec
	Outputs []AttrSpec
}

// Input looks up an input attribute.
func (s *Schema) Input(name string) (AttrSpec, bool) {
	return lookupAttr(s.Inputs, name)
}

// Output looks up an output attribute.
func (s *Schema) Output(name string) (AttrSpec, bool) {
	return lookupAttr(s.Outputs, name)
}

// HasParam reports whether name is a declared construction parameter.
func (s *Schema) HasParam(name string) bool {
	for _, p := range s.Params {
		if p == name {
			return true
		}
	}
	return false
}

// OutputNames lists the declared outputs in declaration order.
func (s *Schema) OutputNames() []string {
	names := make([]string, len(s.Outputs))
	for i, a := range s.Outputs {
		names[i] = a.Name
	}
	return names
}

func lookupAttr(attrs []AttrSpec, name string) (AttrSpec, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return AttrSpec{}, false
}
