package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"cipherchat/internal/api"
	"cipherchat/internal/logging"
)

// dialWebsocket is a test seam for the websocket dial.
var dialWebsocket = websocket.DefaultDialer.DialContext

// Realtime consumes the server's websocket event stream and fans events out
// to per-view subscriptions. Each subscription owns a buffered channel and a
// cancel func; views must call the cancel func on close so stale listeners
// do not keep receiving decrypt-capable events.
type Realtime struct {
	conn   *websocket.Conn
	logger logging.Logger

	mu     sync.Mutex
	subs   map[int]chan *api.Event
	nextID int
	closed bool
}

func NewRealtime(ctx context.Context, wsURL string, logger logging.Logger) (*Realtime, error) {
	conn, _, err := dialWebsocket(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	r := &Realtime{
		conn:   conn,
		logger: logger.With("module", "realtime"),
		subs:   make(map[int]chan *api.Event),
	}
	go r.readLoop(ctx)
	return r, nil
}

// Subscribe registers a listener for all incoming events. The returned cancel
// func tears the subscription down; after it returns the channel is closed.
func (r *Realtime) Subscribe() (<-chan *api.Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	ch := make(chan *api.Event, 16)
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	r.subs[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (r *Realtime) readLoop(ctx context.Context) {
	defer r.closeSubs()

	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Debug(ctx, "realtime connection closed", "error", err)
			}
			return
		}

		var event api.Event
		if err := json.Unmarshal(data, &event); err != nil {
			r.logger.Warn(ctx, "malformed realtime event", "error", err)
			continue
		}
		r.dispatch(&event)
	}
}

// dispatch delivers to every live subscription. A full subscriber buffer
// drops the event for that subscriber rather than stalling the read loop;
// stores recover via their next full fetch.
func (r *Realtime) dispatch(event *api.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (r *Realtime) closeSubs() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}

func (r *Realtime) Close() error {
	err := r.conn.Close()
	r.closeSubs()
	return err
}
