package importqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesUntilCap(t *testing.T) {
	opts := Options{RetryBaseDelay: 2 * time.Second, RetryMaxDelay: 30 * time.Second}
	assert.Equal(t, 2*time.Second, opts.backoff(1))
	assert.Equal(t, 4*time.Second, opts.backoff(2))
	assert.Equal(t, 8*time.Second, opts.backoff(3))
	assert.Equal(t, 16*time.Second, opts.backoff(4))
	assert.Equal(t, 30*time.Second, opts.backoff(5))
	assert.Equal(t, 30*time.Second, opts.backoff(12))
}
