package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextGrowsAndCaps(t *testing.T) {
	p := Retry()

	d := p.Next(0)
	assert.Equal(t, 600*time.Millisecond, d)

	d = p.Next(d)
	assert.Equal(t, 960*time.Millisecond, d)

	// Growth is eventually capped.
	for i := 0; i < 20; i++ {
		d = p.Next(d)
	}
	assert.Equal(t, 10*time.Second, d)
}

func TestPollPolicySchedule(t *testing.T) {
	p := Poll()

	d := p.Next(0)
	assert.Equal(t, time.Second, d)

	d = p.Next(d)
	assert.Equal(t, 1400*time.Millisecond, d)

	for i := 0; i < 10; i++ {
		d = p.Next(d)
	}
	assert.Equal(t, 5*time.Second, d)
}

func TestJitteredStaysWithinBounds(t *testing.T) {
	p := Retry()
	base := time.Second

	for i := 0; i < 100; i++ {
		d := p.Jittered(base)
		assert.GreaterOrEqual(t, d, 850*time.Millisecond)
		assert.Less(t, d, 1150*time.Millisecond)
	}
}

func TestJitteredNoopWithoutJitter(t *testing.T) {
	p := Poll()
	assert.Equal(t, time.Second, p.Jittered(time.Second))
}

func TestSleepHonorsContextCancellation(t *testing.T) {
	p := Retry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Sleep(ctx, time.Minute, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepTruncatesAtDeadline(t *testing.T) {
	p := Poll()
	deadline := time.Now().Add(20 * time.Millisecond)

	start := time.Now()
	err := p.Sleep(context.Background(), time.Minute, deadline)
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSleepPastDeadlineReturnsImmediately(t *testing.T) {
	p := Poll()

	start := time.Now()
	err := p.Sleep(context.Background(), time.Minute, time.Now().Add(-time.Second))
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
