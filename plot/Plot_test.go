package plot

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type series struct {
	episodes []int
	values   map[string][]float64
}

func (s series) Series(name string) []float64 { return s.values[name] }
func (s series) Episodes() []int              { return s.episodes }

func TestCurves(t *testing.T) {
	s := series{
		episodes: []int{0, 10, 20},
		values: map[string][]float64{
			"hack_probability": {0.5, 0.25, 0.1},
			"epsilon_values":   {1, 1, 1},
		},
	}

	dir := filepath.Join(t.TempDir(), "plots")
	paths, err := Curves(s, []string{"hack_probability", "epsilon_values",
		"avg_episode_steps"}, dir, "train")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "train_hack_probability.png"),
		filepath.Join(dir, "train_epsilon_values.png"),
	}, paths)

	f, err := os.Open(paths[0])
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())
}

func TestCurveSinglePoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.png")
	require.NoError(t, Curve(path, "one", []float64{0}, []float64{3}))
	_, err := os.Stat(path)
	assert.NoError(t, err)

	assert.Error(t, Curve(path, "bad", []float64{0, 1}, []float64{3}))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "10", label(10))
	assert.Equal(t, "0.125", label(0.125))
}
