package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonotonicClock(t *testing.T) {
	src := NewManualClock(100)
	c := NewMonotonicClock(src)

	assert.Equal(t, int64(100), c.Now())

	src.Advance(5)
	assert.Equal(t, int64(105), c.Now())

	src.Set(90)
	assert.Equal(t, int64(105), c.Now(), "must not go backwards")

	src.Set(200)
	assert.Equal(t, int64(200), c.Now())
}

func TestSystemClock(t *testing.T) {
	assert.Greater(t, SystemClock{}.Now(), int64(1_600_000_000))
}

func TestCreatedAtFollowsClock(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	p1, err := svc.RegisterPaper(ctx, authorA, PaperRequest{Author: authorA, PaperHash: "h1"})
	require.NoError(t, err)

	clock.Advance(3600)
	p2, err := svc.RegisterPaper(ctx, authorA, PaperRequest{Author: authorA, PaperHash: "h2"})
	require.NoError(t, err)

	assert.Equal(t, p1.CreatedAt+3600, p2.CreatedAt)
}

func TestWithNilClockKeepsDefault(t *testing.T) {
	svc := New(nil, WithClock(nil))
	assert.NotNil(t, svc.clock)
}
