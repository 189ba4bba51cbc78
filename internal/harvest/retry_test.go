package harvest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (e timeoutErr) Timeout() bool   { return e.timeout }
func (e timeoutErr) Temporary() bool { return e.timeout }

func TestShouldRetry(t *testing.T) {
	p := NewRetryPolicy(3)

	assert.False(t, p.ShouldRetry(nil, 1))
	assert.True(t, p.ShouldRetry(errors.New("connection refused"), 1))
	assert.True(t, p.ShouldRetry(errors.New("connection refused"), 2))
	assert.False(t, p.ShouldRetry(errors.New("connection refused"), 3), "attempts are exhausted")

	assert.False(t, p.ShouldRetry(context.Canceled, 1))
	assert.False(t, p.ShouldRetry(context.DeadlineExceeded, 1))

	assert.True(t, p.ShouldRetry(timeoutErr{timeout: true}, 1))
	assert.False(t, p.ShouldRetry(timeoutErr{timeout: false}, 1))
}

func TestBackoffGrowsAndStaysBounded(t *testing.T) {
	p := NewRetryPolicy(5)

	first := p.Backoff(0)
	assert.GreaterOrEqual(t, first, 125*time.Millisecond)
	assert.LessOrEqual(t, first, 250*time.Millisecond)

	// Large attempt numbers clamp to the max delay.
	huge := p.Backoff(20)
	assert.LessOrEqual(t, huge, 5*time.Second)
	assert.GreaterOrEqual(t, huge, 2500*time.Millisecond)
}

func TestNewRetryPolicyDefaults(t *testing.T) {
	p := NewRetryPolicy(0)
	assert.True(t, p.ShouldRetry(errors.New("boom"), 2))
	assert.False(t, p.ShouldRetry(errors.New("boom"), 3))
}
