// Package matutils implements utility function for working with mat.Matrix
// structs
package matutils

import (
	"math"
	"strconv"
	"strings"

	"github.com/medai-secure/idsgame-sarsa/utils/floatutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// VecClip performs an element-wise clipping of a vector's values such
// that each value is at least min and at most max
func VecClip(a *mat.VecDense, min, max float64) {
	for i := 0; i < a.Len(); i++ {
		a.SetVec(i, floatutils.Clip(a.AtVec(i), min, max))
	}
}

// VecConcat returns a new vector holding the elements of each vector in
// order
func VecConcat(vecs ...mat.Vector) *mat.VecDense {
	n := 0
	for _, v := range vecs {
		n += v.Len()
	}
	if n == 0 {
		return &mat.VecDense{}
	}

	out := mat.NewVecDense(n, nil)
	i := 0
	for _, v := range vecs {
		for j := 0; j < v.Len(); j++ {
			out.SetVec(i, v.AtVec(j))
			i++
		}
	}
	return out
}

// VecZeroMean subtracts the mean of a vector from each of its elements
func VecZeroMean(a *mat.VecDense) {
	if a.Len() == 0 {
		return
	}
	values := make([]float64, a.Len())
	for i := range values {
		values[i] = a.AtVec(i)
	}

	mean := stat.Mean(values, nil)
	for i := 0; i < a.Len(); i++ {
		a.SetVec(i, a.AtVec(i)-mean)
	}
}

// VecKey returns a string key identifying the values of a vector, with
// each value rounded to prec decimal places
func VecKey(a mat.Vector, prec int) string {
	scale := math.Pow(10, float64(prec))

	var b strings.Builder
	for i := 0; i < a.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		v := math.Round(a.AtVec(i)*scale) / scale
		if v == 0 {
			v = 0 // -0
		}
		b.WriteString(strconv.FormatFloat(v, 'f', prec, 64))
	}
	return b.String()
}
