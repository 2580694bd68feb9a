package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_Escalation(t *testing.T) {
	b := &Backoff{Short: 30 * time.Second, Long: 5 * time.Minute, Threshold: 3}

	var pauses []time.Duration
	var longs []bool
	for i := 0; i < 4; i++ {
		d, long := b.Failure()
		pauses = append(pauses, d)
		longs = append(longs, long)
	}

	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second, 5 * time.Minute, 30 * time.Second}, pauses)
	assert.Equal(t, []bool{false, false, true, false}, longs)
	// the fourth failure counts from one, not four
	assert.Equal(t, 1, b.Count())
}

func TestBackoff_SuccessResets(t *testing.T) {
	b := &Backoff{Short: time.Second, Long: time.Minute, Threshold: 2}
	b.Failure()
	b.Success()
	assert.Zero(t, b.Count())

	d, long := b.Failure()
	assert.Equal(t, time.Second, d)
	assert.False(t, long)
}

func TestBackoff_ThresholdOne(t *testing.T) {
	b := &Backoff{Short: time.Second, Long: time.Minute, Threshold: 1}
	d, long := b.Failure()
	assert.Equal(t, time.Minute, d)
	assert.True(t, long)
	assert.Zero(t, b.Count())
}
