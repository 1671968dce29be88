package events

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipdeck/clipdeck/internal/logging"
)

func TestBroker_OpenPublishClose(t *testing.T) {
	b := NewBroker(logging.Discard())
	defer b.Shutdown()

	assert.False(t, b.server.StreamExists("s1"))

	b.Open("s1")
	b.Open("s1")
	require.True(t, b.server.StreamExists("s1"))

	require.NoError(t, b.Publish("s1", TypeState, map[string]int{"current_time": 3}))

	b.Close("s1")
	assert.False(t, b.server.StreamExists("s1"))
}

func TestBroker_PublishToUnknownStreamIsDropped(t *testing.T) {
	b := NewBroker(logging.Discard())
	defer b.Shutdown()

	assert.NoError(t, b.Publish("missing", TypeNotice, "hello"))
	assert.False(t, b.server.StreamExists("missing"))
}

func TestBroker_PublishEncodingError(t *testing.T) {
	b := NewBroker(logging.Discard())
	defer b.Shutdown()
	b.Open("s1")

	err := b.Publish("s1", TypeState, make(chan int))
	assert.Error(t, err)
}

// stalledWriter accepts headers but blocks every body write until released.
type stalledWriter struct {
	header   http.Header
	started  chan struct{}
	once     sync.Once
	released chan struct{}
}

func newStalledWriter() *stalledWriter {
	return &stalledWriter{
		header:   make(http.Header),
		started:  make(chan struct{}),
		released: make(chan struct{}),
	}
}

func (w *stalledWriter) Header() http.Header { return w.header }
func (w *stalledWriter) WriteHeader(int)     {}
func (w *stalledWriter) Flush()              {}

func (w *stalledWriter) Write(p []byte) (int, error) {
	w.once.Do(func() { close(w.started) })
	<-w.released
	return len(p), nil
}

func TestBroker_StalledSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroker(logging.Discard())
	b.Open("s1")

	w := newStalledWriter()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events?stream=s1", nil).WithContext(ctx)
	served := make(chan struct{})
	go func() {
		defer close(served)
		b.ServeHTTP(w, req)
	}()
	t.Cleanup(func() {
		close(w.released)
		cancel()
		b.Close("s1")
		b.Shutdown()
		<-served
	})

	// publish until the subscriber is stuck in its first write
	deadline := time.After(2 * time.Second)
	for waiting := true; waiting; {
		select {
		case <-w.started:
			waiting = false
		case <-deadline:
			t.Fatal("subscriber never received an event")
		case <-time.After(10 * time.Millisecond):
			b.Publish("s1", TypeState, map[string]int{"current_time": 0})
		}
	}

	done := make(chan int)
	go func() {
		dropped := 0
		for i := 0; i < 2000; i++ {
			if err := b.Publish("s1", TypeState, map[string]int{"current_time": i}); errors.Is(err, ErrDropped) {
				dropped++
			}
		}
		done <- dropped
	}()

	select {
	case dropped := <-done:
		assert.Positive(t, dropped, "expected events to be dropped once buffers filled")
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked behind a stalled subscriber")
	}
}
