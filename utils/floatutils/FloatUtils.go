// Package floatutils provides utilities for working with floats
package floatutils

import "math"

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max
// If min exceeds the floating point, then the function returns the min
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// MaxOver returns the maximum of value(i) over the given indices along
// with the first index attaining it. It panics if indices is empty.
func MaxOver(indices []int, value func(int) float64) (max float64,
	index int) {
	max, index = math.Inf(-1), indices[0]
	for _, i := range indices {
		if v := value(i); v > max {
			max, index = v, i
		}
	}
	return
}
