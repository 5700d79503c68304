package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Subscribe_Unsubscribe(t *testing.T) {
	n := New()

	ch := n.Subscribe()
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Listeners())

	n.Unsubscribe(ch)
	assert.Equal(t, 0, n.Listeners())

	_, open := <-ch
	assert.False(t, open, "unsubscribed channel is closed")
}

func TestNotifier_Broadcast(t *testing.T) {
	n := New()

	ch1 := n.Subscribe()
	ch2 := n.Subscribe()
	defer n.Unsubscribe(ch1)
	defer n.Unsubscribe(ch2)

	want := Event{Topic: RunCompleted, Entry: "Chef: Equipment Maintenance Reminder (Table)"}
	n.Broadcast(want)

	for i, ch := range []chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			assert.Equal(t, want, got)
		case <-time.After(100 * time.Millisecond):
			t.Errorf("listener %d did not receive broadcast", i)
		}
	}
}

func TestNotifier_Broadcast_NonBlocking(t *testing.T) {
	n := New()

	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	// Fill the buffer.
	n.Broadcast(Event{Topic: CatalogReloaded})
	n.Broadcast(Event{Topic: RunCompleted})

	done := make(chan struct{})
	go func() {
		n.Broadcast(Event{Topic: RunCompleted})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Broadcast blocked on full channel")
	}

	assert.Equal(t, CatalogReloaded, (<-ch).Topic, "earlier events are kept")
}

func TestNotifier_Concurrent(t *testing.T) {
	n := New()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := n.Subscribe()
			n.Broadcast(Event{Topic: CatalogReloaded})
			n.Unsubscribe(ch)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, n.Listeners())
}
