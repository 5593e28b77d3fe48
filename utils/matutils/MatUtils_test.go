package matutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestVecClip(t *testing.T) {
	v := mat.NewVecDense(4, []float64{-1, 0.5, 3, 12})
	VecClip(v, 0, 9)
	assert.Equal(t, []float64{0, 0.5, 3, 9}, v.RawVector().Data)
}

func TestVecConcat(t *testing.T) {
	a := mat.NewVecDense(2, []float64{1, 2})
	b := mat.NewVecDense(1, []float64{3})
	assert.Equal(t, []float64{1, 2, 3}, VecConcat(a, b).RawVector().Data)
	assert.Equal(t, 0, VecConcat().Len())
}

func TestVecZeroMean(t *testing.T) {
	v := mat.NewVecDense(3, []float64{1, 2, 6})
	VecZeroMean(v)
	assert.InDeltaSlice(t, []float64{-2, -1, 3}, v.RawVector().Data, 1e-12)
	assert.InDelta(t, 0, mat.Sum(v), 1e-12)
}

func TestVecKey(t *testing.T) {
	a := mat.NewVecDense(2, []float64{1.00000001, -0.0000001})
	b := mat.NewVecDense(2, []float64{1, 0})
	assert.Equal(t, VecKey(a, 4), VecKey(b, 4))
	assert.Equal(t, "1.0000,0.0000", VecKey(b, 4))
}
