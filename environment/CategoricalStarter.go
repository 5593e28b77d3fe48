package environment

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Starter samples the initial configuration of each episode
type Starter interface {
	Start() []int
}

// CategoricalStarter samples starting configurations whose dimension i
// is drawn uniformly from {0, 1, ..., bounds[i]-1}. Dimensions that share
// a bound share a distribution, and all distributions share one source.
type CategoricalStarter struct {
	bounds []int
	dists  map[int]distuv.Categorical
}

// NewCategoricalStarter returns a new CategoricalStarter
func NewCategoricalStarter(bounds []int, seed uint64) (*CategoricalStarter,
	error) {
	source := rand.NewSource(seed)
	dists := make(map[int]distuv.Categorical)

	for i, b := range bounds {
		if b < 1 {
			return nil, fmt.Errorf("newCategoricalStarter: bound %d of "+
				"dimension %d must be positive", b, i)
		}
		if _, ok := dists[b]; ok {
			continue
		}
		weights := make([]float64, b)
		for j := range weights {
			weights[j] = 1.0 / float64(b)
		}
		dists[b] = distuv.NewCategorical(weights, source)
	}

	return &CategoricalStarter{
		bounds: append([]int(nil), bounds...),
		dists:  dists,
	}, nil
}

// Start returns a starting configuration
func (c *CategoricalStarter) Start() []int {
	start := make([]int, len(c.bounds))
	for i, b := range c.bounds {
		d := c.dists[b]
		start[i] = int(d.Rand())
	}
	return start
}
