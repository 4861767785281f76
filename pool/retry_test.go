package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vaporio/httpstack/herr"
)

func TestRetryableClassifiesTransportErrors(t *testing.T) {
	assert.True(t, retryable(herr.New(herr.Transport, "reset", "", nil)))
	assert.False(t, retryable(herr.New(herr.Application, "handler panic", "", nil)))
	assert.False(t, retryable(assertPlainError{}))
}

type assertPlainError struct{}

func (assertPlainError) Error() string { return "boom" }

func TestRetryPolicyDefaults(t *testing.T) {
	p := RetryPolicy{}.withDefaults()
	assert.Equal(t, 2, p.MaxAttempts)
}

func TestPoolIDString(t *testing.T) {
	id := PoolID{Host: "example.com", Port: 443, Encrypted: true}
	assert.Equal(t, "https://example.com:443", id.String())

	id.SettingsFingerprint = "abc"
	assert.Equal(t, "https://example.com:443#abc", id.String())
}
