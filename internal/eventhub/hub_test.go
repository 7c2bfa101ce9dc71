package eventhub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jeeves/internal/domain"
)

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
	h := New()
	var mu sync.Mutex
	var received []string

	collect := func(name string) SendFunc {
		return func(e domain.EventEnvelope) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, name+":"+e.Type)
			return nil
		}
	}
	h.AddSubscriber(collect("a"))
	h.AddSubscriber(collect("b"))

	h.Broadcast(domain.EventEnvelope{Type: "run.started"})

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a:run.started", "b:run.started"}, received)
}

func TestRemoveSubscriberStopsDelivery(t *testing.T) {
	h := New()
	count := 0
	id := h.AddSubscriber(func(domain.EventEnvelope) error {
		count++
		return nil
	})
	h.RemoveSubscriber(id)
	h.Broadcast(domain.EventEnvelope{Type: "x"})
	assert.Equal(t, 0, count)
}

func TestSendToUnknownIDReturnsFalse(t *testing.T) {
	h := New()
	assert.False(t, h.SendTo(999, domain.EventEnvelope{}))
}

func TestSendToKnownIDDeliversOnlyToThatSubscriber(t *testing.T) {
	h := New()
	var aCount, bCount int
	idA := h.AddSubscriber(func(domain.EventEnvelope) error { aCount++; return nil })
	h.AddSubscriber(func(domain.EventEnvelope) error { bCount++; return nil })

	found := h.SendTo(idA, domain.EventEnvelope{Type: "x"})
	require.True(t, found)
	assert.Equal(t, 1, aCount)
	assert.Equal(t, 0, bCount)
}

func TestBroadcastSwallowsSubscriberErrors(t *testing.T) {
	h := New()
	h.AddSubscriber(func(domain.EventEnvelope) error { return assert.AnError })
	assert.NotPanics(t, func() { h.Broadcast(domain.EventEnvelope{Type: "x"}) })
}

func TestCloseRemovesSubscribers(t *testing.T) {
	h := New()
	h.AddSubscriber(func(domain.EventEnvelope) error { return nil })
	h.Close()
	assert.Equal(t, 0, h.SubscriberCount())
}
