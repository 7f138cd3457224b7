package remote

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRESTClient_Normalizes(t *testing.T) {
	c := NewRESTClient("  http://example.test/ ", 0, Credentials{Token: " tok "}, nil)
	assert.Equal(t, "http://example.test", c.BaseURL())
	assert.Equal(t, 10*time.Second, c.client.Timeout)

	c = NewRESTClient("", 0, Credentials{}, nil)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestNewRESTClient_LeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	c := NewRESTClient("http://example.test", 2*time.Second, Credentials{}, shared)

	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, 2*time.Second, c.client.Timeout)
	assert.NotSame(t, shared, c.client)
}

func TestNewRESTClient_KeepsSharedClientWithoutTimeout(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c := NewRESTClient("http://example.test", 0, Credentials{}, shared)
	assert.Same(t, shared, c.client)
}
