package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client consumes the Supabase realtime websocket (Phoenix channel
// protocol) and fans postgres_changes notifications out to subscribers.
// It reconnects and rejoins automatically when the socket drops.
type Client struct {
	url    string
	apikey string
	log    zerolog.Logger

	mu     sync.RWMutex
	conn   *websocket.Conn
	subs   map[uint64]clientSub
	nextID uint64
	ref    atomic.Uint64
	closed atomic.Bool
	stop   chan struct{}
}

type clientSub struct {
	ch     chan ChangeEvent
	filter Filter
}

// phoenixMessage is the channel protocol envelope.
type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// changePayload is the postgres_changes notification body.
type changePayload struct {
	Data struct {
		Type      string `json:"type"`
		Table     string `json:"table"`
		Record    Record `json:"record"`
		OldRecord Record `json:"old_record"`
	} `json:"data"`
}

// NewClient creates a realtime client for the given websocket endpoint.
func NewClient(url, apikey string, log zerolog.Logger) *Client {
	return &Client{
		url:    url,
		apikey: apikey,
		log:    log.With().Str("component", "realtime-client").Logger(),
		subs:   make(map[uint64]clientSub),
		stop:   make(chan struct{}),
	}
}

// Connect dials the websocket and starts the read and heartbeat loops.
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url+"?apikey="+c.apikey+"&vsn=1.0.0", nil)
	if err != nil {
		return fmt.Errorf("realtime dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.rejoinAll(); err != nil {
		conn.Close()
		return err
	}

	go c.readLoop(conn)
	go c.heartbeatLoop(conn)
	c.log.Info().Str("url", c.url).Msg("realtime connected")
	return nil
}

// Subscribe implements Stream. The returned cancel is idempotent.
// IsConnected reports whether the websocket is currently established.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

func (c *Client) Subscribe(f Filter) (<-chan ChangeEvent, func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	ch := make(chan ChangeEvent, 16)
	c.subs[id] = clientSub{ch: ch, filter: f}
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		if err := c.join(conn, f); err != nil {
			c.log.Warn().Err(err).Str("table", f.Table).Msg("channel join failed, will retry on reconnect")
		}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			conn := c.conn
			c.mu.Unlock()
			close(ch)
			if conn != nil {
				c.leave(conn, f)
			}
		})
	}
	return ch, cancel
}

// Close shuts the client down. Safe to call more than once.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.stop)
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
}

func topicFor(f Filter) string {
	return "realtime:public:" + f.Table + ":" + f.Slug
}

// join sends a phx_join carrying the postgres_changes config for the
// filtered table.
func (c *Client) join(conn *websocket.Conn, f Filter) error {
	payload := map[string]any{
		"config": map[string]any{
			"postgres_changes": []map[string]any{{
				"event":  "*",
				"schema": "public",
				"table":  f.Table,
				"filter": "episode_slug=eq." + f.Slug,
			}},
		},
	}
	return c.send(conn, topicFor(f), "phx_join", payload)
}

func (c *Client) leave(conn *websocket.Conn, f Filter) {
	if err := c.send(conn, topicFor(f), "phx_leave", map[string]any{}); err != nil {
		c.log.Debug().Err(err).Str("table", f.Table).Msg("phx_leave failed")
	}
}

func (c *Client) rejoinAll() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, sub := range c.subs {
		if err := c.join(c.conn, sub.filter); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) send(conn *websocket.Conn, topic, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := phoenixMessage{
		Topic:   topic,
		Event:   event,
		Payload: raw,
		Ref:     strconv.FormatUint(c.ref.Add(1), 10),
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(msg)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg phoenixMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if c.closed.Load() {
				return
			}
			c.log.Warn().Err(err).Msg("realtime read failed, reconnecting")
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			c.reconnect()
			return
		}
		if msg.Event != "postgres_changes" {
			continue
		}

		var payload changePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.log.Debug().Err(err).Msg("undecodable change payload")
			continue
		}

		ev := ChangeEvent{
			Table: payload.Data.Table,
			Type:  payload.Data.Type,
			Old:   payload.Data.OldRecord,
			New:   payload.Data.Record,
		}
		c.fanout(ev)
	}
}

func (c *Client) fanout(ev ChangeEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, sub := range c.subs {
		if sub.filter.Table != ev.Table {
			continue
		}
		if sub.filter.Slug != "" && sub.filter.Slug != ev.New.Slug && sub.filter.Slug != ev.Old.Slug {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Drop if subscriber is slow; a refetch is coming anyway.
		}
	}
}

func (c *Client) heartbeatLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.send(conn, "phoenix", "heartbeat", map[string]any{}); err != nil {
				return
			}
		case <-c.stop:
			return
		}
	}
}

func (c *Client) reconnect() {
	for delay := time.Second; ; delay = backoff(delay) {
		if c.closed.Load() {
			return
		}
		select {
		case <-c.stop:
			return
		case <-time.After(delay):
		}
		err := c.Connect()
		if err == nil {
			return
		}
		c.log.Warn().Err(err).Dur("next_retry", backoff(delay)).Msg("realtime reconnect failed")
	}
}

func backoff(d time.Duration) time.Duration {
	d *= 2
	if d > time.Minute {
		return time.Minute
	}
	return d
}
