package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestClientLimiter_PerClientBuckets(t *testing.T) {
	limiter := newClientLimiter(rate.Limit(1), 1)
	now := time.Now()

	// Each client gets its own bucket
	assert.True(t, limiter.allow("10.0.0.1", now))
	assert.True(t, limiter.allow("10.0.0.2", now))

	// The bucket is empty until it refills
	assert.False(t, limiter.allow("10.0.0.1", now))
	assert.False(t, limiter.allow("10.0.0.2", now))
}

func TestClientLimiter_PrunesIdleEntries(t *testing.T) {
	limiter := newClientLimiter(rate.Limit(1), 1)
	now := time.Now()

	limiter.allow("10.0.0.1", now)
	assert.Len(t, limiter.byKey, 1)

	// An access past the idle TTL drops entries not seen since
	later := now.Add(limiterIdleTTL + time.Minute)
	limiter.allow("10.0.0.2", later)

	assert.Len(t, limiter.byKey, 1)
	_, ok := limiter.byKey["10.0.0.2"]
	assert.True(t, ok)
}
