package celldevs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devs-sim/devs-sim/sim"
)

func TestInertialBuffer_NewerChangePreemptsPending(t *testing.T) {
	b, err := newDelayBuffer[int](DelayInertial)
	require.NoError(t, err)
	assert.Equal(t, sim.Infinity, b.next())

	b.add(1, 5)
	b.add(2, 3)

	assert.Equal(t, 3.0, b.next())
	assert.Equal(t, 2, b.peek())
	b.pop()
	assert.Equal(t, sim.Infinity, b.next())
}

func TestTransportBuffer_PublishesEveryChangeInTimeOrder(t *testing.T) {
	b, err := newDelayBuffer[string](DelayTransport)
	require.NoError(t, err)

	b.add("late", 5)
	b.add("early", 1)
	b.add("middle", 3)
	b.add("middle-again", 3)

	var got []string
	var times []float64
	for b.next() != sim.Infinity {
		times = append(times, b.next())
		got = append(got, b.peek())
		b.pop()
	}
	assert.Equal(t, []string{"early", "middle-again", "late"}, got)
	assert.Equal(t, []float64{1, 3, 5}, times)
}

func TestNewDelayBuffer_Unknown(t *testing.T) {
	_, err := newDelayBuffer[int]("hyperbolic")
	assert.ErrorIs(t, err, sim.ErrConfig)
}
