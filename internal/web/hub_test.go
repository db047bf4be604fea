package web

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionsum/appwatch/internal/models"
	"github.com/actionsum/appwatch/internal/relay"
)

func newClient() *client {
	return &client{send: make(chan []byte, clientBuffer)}
}

func TestHubAttachFollowsSubscribers(t *testing.T) {
	r := relay.New(nil)
	h := NewHub(r, nil)

	a, b := newClient(), newClient()
	h.add(a)
	assert.True(t, r.Attached())
	h.add(b)

	assert.True(t, h.remove(a))
	assert.False(t, h.remove(a), "second remove is a no-op")
	assert.True(t, r.Attached())

	assert.True(t, h.remove(b))
	assert.False(t, r.Attached())
}

func TestHubHandoverKeepsSlot(t *testing.T) {
	r := relay.New(nil)
	h := NewHub(r, nil)

	for i := 0; i < 2000; i++ {
		leaving := newClient()
		h.add(leaving)

		joining := newClient()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.remove(leaving)
		}()
		go func() {
			defer wg.Done()
			h.add(joining)
		}()
		wg.Wait()

		require.Equal(t, 1, h.Subscribers())
		require.True(t, r.Attached(), "round %d: subscriber connected but hub detached", i)

		h.remove(joining)
		require.False(t, r.Attached())
	}
}

func TestHubDeliversAfterHandover(t *testing.T) {
	r := relay.New(nil)
	h := NewHub(r, nil)

	first := newClient()
	h.add(first)
	second := newClient()
	h.remove(first)
	h.add(second)

	r.Deliver(models.ChangeEvent{AppID: "code", Timestamp: 7})
	require.Len(t, second.send, 1)
	assert.Contains(t, string(<-second.send), `"appId":"code"`)
}
