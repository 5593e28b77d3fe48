package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SpecType determines what a Spec describes: the actions of a role, the
// observations of a role, or the discount of the game
type SpecType int

const (
	Action SpecType = iota
	Observation
	Discount
)

func (s SpecType) String() string {
	switch s {
	case Action:
		return "Action"
	case Observation:
		return "Observation"
	default:
		return "Discount"
	}
}

// Cardinality determines whether the values a Spec describes are
// discrete or continuous
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec describes a vector of Size values, each bounded by [Low, High]
type Spec struct {
	Type SpecType
	Size int
	Low  float64
	High float64
	Cardinality
}

// NewSpec returns a Spec of n values, each bounded by [low, high]
func NewSpec(n int, t SpecType, low, high float64,
	cardinality Cardinality) Spec {
	if n < 1 {
		panic(fmt.Sprintf("newSpec: size must be positive, got %d", n))
	}
	if low > high {
		panic(fmt.Sprintf("newSpec: lower bound %v exceeds upper bound %v",
			low, high))
	}
	return Spec{t, n, low, high, cardinality}
}

// Contains returns whether v has the Spec's size and all its values lie
// within the Spec's bounds. Discrete specs also require whole values.
func (s Spec) Contains(v mat.Vector) bool {
	if v.Len() != s.Size {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		x := v.AtVec(i)
		if x < s.Low || x > s.High {
			return false
		}
		if s.Cardinality == Discrete && x != float64(int64(x)) {
			return false
		}
	}
	return true
}

func (s Spec) String() string {
	return fmt.Sprintf("%v(%v x %d in [%v, %v])", s.Type, s.Cardinality,
		s.Size, s.Low, s.High)
}
