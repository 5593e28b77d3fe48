// Package plot renders training curves as PNG images
package plot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/floats"
)

// Image dimensions and margins in pixels
const (
	Width  = 640
	Height = 400
	margin = 50.0
)

var (
	background = color.White
	axisColour = color.Black
	lineColour = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

// Series is a set of metric series logged at a sequence of episodes
type Series interface {
	Series(name string) []float64
	Episodes() []int
}

// Curves renders one PNG per metric into dir, named
// <prefix>_<metric>.png, and returns the paths written. Metrics without
// values are skipped.
func Curves(s Series, metrics []string, dir, prefix string) ([]string,
	error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("curves: %w", err)
	}

	episodes := s.Episodes()
	x := make([]float64, len(episodes))
	for i, e := range episodes {
		x[i] = float64(e)
	}

	var paths []string
	for _, m := range metrics {
		y := s.Series(m)
		if len(y) == 0 || len(y) != len(x) {
			continue
		}

		path := filepath.Join(dir, fmt.Sprintf("%v_%v.png", prefix, m))
		if err := Curve(path, fmt.Sprintf("%v %v", prefix, m), x,
			y); err != nil {
			return paths, fmt.Errorf("curves: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Curve renders a single line plot of y against x to a PNG at path
func Curve(path, title string, x, y []float64) error {
	if len(x) != len(y) || len(x) == 0 {
		return fmt.Errorf("curve: need equal non-zero lengths, got %d and %d",
			len(x), len(y))
	}

	minX, maxX := floats.Min(x), floats.Max(x)
	minY, maxY := floats.Min(y), floats.Max(y)
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		minY, maxY = minY-0.5, maxY+0.5
	}

	// px and py convert data coordinates to pixel coordinates
	px := func(v float64) float64 {
		return margin + (v-minX)/(maxX-minX)*(Width-2*margin)
	}
	py := func(v float64) float64 {
		return Height - margin - (v-minY)/(maxY-minY)*(Height-2*margin)
	}

	dc := gg.NewContext(Width, Height)
	dc.SetColor(background)
	dc.Clear()

	// Axes
	dc.SetColor(axisColour)
	dc.SetLineWidth(1.0)
	dc.DrawLine(margin, margin, margin, Height-margin)
	dc.DrawLine(margin, Height-margin, Width-margin, Height-margin)
	dc.Stroke()

	dc.DrawStringAnchored(title, Width/2, margin/2, 0.5, 0.5)
	dc.DrawStringAnchored(label(maxY), margin-4, margin, 1, 0.5)
	dc.DrawStringAnchored(label(minY), margin-4, Height-margin, 1, 0.5)
	dc.DrawStringAnchored(label(minX), margin, Height-margin+12, 0.5, 0.5)
	dc.DrawStringAnchored(label(maxX), Width-margin, Height-margin+12, 0.5,
		0.5)

	// Curve
	dc.SetColor(lineColour)
	dc.SetLineWidth(2.0)
	dc.MoveTo(px(x[0]), py(y[0]))
	for i := 1; i < len(x); i++ {
		dc.LineTo(px(x[i]), py(y[i]))
	}
	if len(x) == 1 {
		dc.DrawCircle(px(x[0]), py(y[0]), 2)
		dc.Fill()
	} else {
		dc.Stroke()
	}

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("curve: %w", err)
	}
	return nil
}

func label(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e6 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.3g", v)
}
