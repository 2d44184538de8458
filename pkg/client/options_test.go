package client

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithHTTPClient(t *testing.T) {
	custom := &http.Client{Timeout: 42 * time.Second}
	c, err := NewClient("http://api.example.com", WithHTTPClient(custom))
	assert.NoError(t, err)
	assert.Equal(t, custom, c.httpClient)

	// nil is ignored, the default stays in place
	c2, err := NewClient("http://api.example.com", WithHTTPClient(nil))
	assert.NoError(t, err)
	assert.NotNil(t, c2.httpClient)
}

func TestWithLogger(t *testing.T) {
	logger := &testLogger{}
	c, err := NewClient("http://api.example.com", WithLogger(logger))
	assert.NoError(t, err)
	assert.Equal(t, logger, c.logger)

	c2, err := NewClient("http://api.example.com", WithLogger(nil))
	assert.NoError(t, err)
	assert.NotNil(t, c2.logger)
}

func TestWithRetryMax(t *testing.T) {
	tests := []struct {
		name  string
		value int
		want  int
	}{
		{name: "zero disables retries", value: 0, want: 0},
		{name: "positive value applied", value: 7, want: 7},
		{name: "negative value ignored", value: -1, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient("http://api.example.com", WithRetryMax(tt.value))
			assert.NoError(t, err)
			assert.Equal(t, tt.want, c.retryMax)
		})
	}
}

func TestWithRetryWait(t *testing.T) {
	c, err := NewClient("http://api.example.com", WithRetryWait(100*time.Millisecond, 2*time.Second))
	assert.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, c.retryWaitMin)
	assert.Equal(t, 2*time.Second, c.retryWaitMax)

	// max below min keeps the default max
	c2, err := NewClient("http://api.example.com", WithRetryWait(3*time.Second, 1*time.Second))
	assert.NoError(t, err)
	assert.Equal(t, 3*time.Second, c2.retryWaitMin)
	assert.Equal(t, 5*time.Second, c2.retryWaitMax)

	// zero min is a no-op
	c3, err := NewClient("http://api.example.com", WithRetryWait(0, 10*time.Second))
	assert.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, c3.retryWaitMin)
	assert.Equal(t, 5*time.Second, c3.retryWaitMax)
}

func TestWithUserAgent(t *testing.T) {
	c, err := NewClient("http://api.example.com", WithUserAgent("custom-agent/2.0"))
	assert.NoError(t, err)
	assert.Equal(t, "custom-agent/2.0", c.userAgent)

	// empty string keeps the default
	c2, err := NewClient("http://api.example.com", WithUserAgent(""))
	assert.NoError(t, err)
	assert.Contains(t, c2.userAgent, "placescope-go/")
}

func TestOptions_Combined(t *testing.T) {
	logger := &testLogger{}
	c, err := NewClient("http://api.example.com",
		WithLogger(logger),
		WithRetryMax(1),
		WithRetryWait(10*time.Millisecond, 20*time.Millisecond),
		WithUserAgent("combo/1.0"),
	)
	assert.NoError(t, err)
	assert.Equal(t, logger, c.logger)
	assert.Equal(t, 1, c.retryMax)
	assert.Equal(t, 10*time.Millisecond, c.retryWaitMin)
	assert.Equal(t, 20*time.Millisecond, c.retryWaitMax)
	assert.Equal(t, "combo/1.0", c.userAgent)
}
