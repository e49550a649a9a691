package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"luna/pkg/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublishFansOut(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelA()
	defer cancelB()

	h.Publish(protocol.KindHeard, "open notepad", "")

	for _, ch := range []<-chan protocol.Event{a, b} {
		ev := <-ch
		assert.Equal(t, protocol.KindHeard, ev.Kind)
		assert.Equal(t, "open notepad", ev.Text)
		assert.NotEmpty(t, ev.ID)
	}
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < bufferSize*3; i++ {
			h.Publish(protocol.KindSay, "line", "")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
	assert.Len(t, ch, bufferSize)
}

func TestCancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	require.Equal(t, 1, h.Subscribers())

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, h.Subscribers())

	h.Publish(protocol.KindSay, "nobody listens", "")
}

func TestCloseEndsSubscriptions(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Close()
	_, ok := <-ch
	assert.False(t, ok)

	late, _ := h.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestSpeakerPublishesSay(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Speaker().Say(context.Background(), "Hello")

	ev := <-ch
	assert.Equal(t, protocol.KindSay, ev.Kind)
	assert.Equal(t, "Hello", ev.Text)
}

func TestServeWS(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	web, err := protocol.NewWebSocket(ctx, url, nil, 10*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	h.Publish(protocol.KindReply, "It is 10:00 AM in Tokyo.", "local")

	in := web.Read()
	require.Equal(t, protocol.ReadOK, in.Kind, "err: %v", in.Err)
	assert.Equal(t, protocol.KindReply, in.Event.Kind)
	assert.Equal(t, "local", in.Event.Route)

	h.Close()
	in = web.Read()
	assert.Equal(t, protocol.ConnClosed, in.Kind)
	require.NoError(t, web.Close())

	require.Eventually(t, func() bool { return h.Subscribers() == 0 }, 2*time.Second, 5*time.Millisecond)
}
