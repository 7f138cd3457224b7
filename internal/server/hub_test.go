package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClient_EnqueueAfterDetach(t *testing.T) {
	hub := NewHub()
	c := NewClient(hub, nil, "s1", 4)
	hub.Attach(c)

	hub.Detach(c)
	assert.False(t, c.enqueue(Message{Type: MessageSystem}))
	assert.Zero(t, hub.Count())

	// A second close is a no-op.
	c.close()
}

func TestHub_BroadcastWhileDetaching(t *testing.T) {
	hub := NewHub()
	clients := make([]*Client, 50)
	for i := range clients {
		clients[i] = NewClient(hub, nil, fmt.Sprintf("s%d", i), 1)
		hub.Attach(clients[i])
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				hub.Broadcast(Message{Type: MessageSystem})
			}
		}()
	}
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			hub.Detach(c)
		}(c)
	}

	assert.NotPanics(t, wg.Wait)
	assert.Zero(t, hub.Count())
}
