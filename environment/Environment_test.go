package environment

import (
	"testing"

	"github.com/medai-secure/idsgame-sarsa/timestep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSpecContains(t *testing.T) {
	s := NewSpec(3, Observation, 0, 10, Discrete)

	assert.True(t, s.Contains(mat.NewVecDense(3, []float64{0, 5, 10})))
	assert.False(t, s.Contains(mat.NewVecDense(3, []float64{0, 5, 11})))
	assert.False(t, s.Contains(mat.NewVecDense(3, []float64{0, 0.5, 1})))
	assert.False(t, s.Contains(mat.NewVecDense(2, nil)))

	c := NewSpec(1, Discount, 0.9, 0.9, Continuous)
	assert.True(t, c.Contains(mat.NewVecDense(1, []float64{0.9})))
	assert.Equal(t, "Discount(Continuous x 1 in [0.9, 0.9])", c.String())

	assert.Panics(t, func() { NewSpec(0, Action, 0, 1, Discrete) })
	assert.Panics(t, func() { NewSpec(1, Action, 2, 1, Discrete) })
}

func TestCategoricalStarter(t *testing.T) {
	bounds := []int{1, 3, 3, 5}
	s, err := NewCategoricalStarter(bounds, 11)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		start := s.Start()
		require.Len(t, start, len(bounds))
		for j, v := range start {
			assert.GreaterOrEqual(t, v, 0)
			assert.Less(t, v, bounds[j])
		}
		assert.Equal(t, 0, start[0])
	}

	again, err := NewCategoricalStarter(bounds, 11)
	require.NoError(t, err)
	first, _ := NewCategoricalStarter(bounds, 11)
	assert.Equal(t, first.Start(), again.Start())

	_, err = NewCategoricalStarter([]int{2, 0}, 1)
	assert.Error(t, err)
}

func TestStepLimit(t *testing.T) {
	l := NewStepLimit(3)

	step := timestep.New(timestep.Mid, 1, 0.9, nil, 2)
	assert.False(t, l.End(&step))
	assert.True(t, step.Mid())

	step.Number = 3
	assert.True(t, l.End(&step))
	assert.True(t, step.Last())
	assert.Equal(t, timestep.Timeout, step.EndType)

	unlimited := NewStepLimit(0)
	step = timestep.New(timestep.Mid, 0, 1, nil, 1000)
	assert.False(t, unlimited.End(&step))
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "attacker", Attacker.String())
	assert.Equal(t, "defender", Defender.String())
}
