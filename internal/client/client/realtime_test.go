package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherchat/internal/api"
	"cipherchat/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// startEventServer runs a websocket endpoint pushing the given events to
// every connection.
func startEventServer(t *testing.T, events []*api.Event) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		for _, e := range events {
			require.NoError(t, conn.WriteJSON(e))
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collect(t *testing.T, ch <-chan *api.Event, n int) []*api.Event {
	t.Helper()
	var got []*api.Event
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case e, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, e)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(got), n)
		}
	}
	return got
}

func TestRealtime_DeliversEventsToAllSubscribers(t *testing.T) {
	events := []*api.Event{
		{Type: api.EventInsert, Table: api.TableDirectMessages, DirectMessage: &api.DirectMessage{ID: "m1"}},
		{Type: api.EventInsert, Table: api.TableGroupMessages, GroupMessage: &api.GroupMessage{ID: "g1"}},
	}
	url := startEventServer(t, events)

	r, err := NewRealtime(context.Background(), url, testLogger())
	require.NoError(t, err)
	defer r.Close()

	ch1, cancel1 := r.Subscribe()
	defer cancel1()
	ch2, cancel2 := r.Subscribe()
	defer cancel2()

	got1 := collect(t, ch1, 2)
	got2 := collect(t, ch2, 2)

	assert.Equal(t, "m1", got1[0].DirectMessage.ID)
	assert.Equal(t, "g1", got1[1].GroupMessage.ID)
	assert.Equal(t, "m1", got2[0].DirectMessage.ID)
}

func TestRealtime_CancelTearsDownSubscription(t *testing.T) {
	url := startEventServer(t, nil)

	r, err := NewRealtime(context.Background(), url, testLogger())
	require.NoError(t, err)
	defer r.Close()

	ch, cancel := r.Subscribe()
	cancel()

	_, ok := <-ch
	assert.False(t, ok, "channel must be closed after cancel")

	// double cancel is a no-op
	cancel()
}

func TestRealtime_CloseClosesSubscriberChannels(t *testing.T) {
	url := startEventServer(t, nil)

	r, err := NewRealtime(context.Background(), url, testLogger())
	require.NoError(t, err)

	ch, _ := r.Subscribe()
	require.NoError(t, r.Close())

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber channel not closed on Close")
	}
}
