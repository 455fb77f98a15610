package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"taskboard/internal/realtime"
)

const ackTimeout = 10 * time.Second

// subscription is a websocket-backed realtime.Stream.
type subscription struct {
	conn   *websocket.Conn
	events chan realtime.ChangeEvent
	done   chan struct{}
	once   sync.Once
	log    *zap.Logger
}

func (s *subscription) Events() <-chan realtime.ChangeEvent {
	return s.events
}

// Close ends the subscription. Events is closed shortly after.
func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

func (s *subscription) readLoop() {
	defer close(s.events)
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Warn("realtime stream ended", zap.Error(err))
			}
			return
		}
		var evt realtime.ChangeEvent
		if err := json.Unmarshal(message, &evt); err != nil {
			s.log.Warn("dropping malformed change event", zap.Error(err))
			continue
		}
		if evt.Type == realtime.EventSystem {
			continue
		}
		select {
		case s.events <- evt:
		case <-s.done:
			return
		}
	}
}

func (c *Client) realtimeURL(table, filter string) (string, error) {
	u, err := url.Parse(c.baseURL + "/realtime/v1")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := url.Values{}
	q.Set("table", table)
	if filter != "" {
		q.Set("filter", filter)
	}
	q.Set("apikey", c.apiKey)
	q.Set("token", c.accessToken())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe opens a change-event stream for table, optionally restricted by
// a "column=eq.value" filter. It returns once the gateway has acknowledged
// the subscription, so no change made after Subscribe returns is missed.
func (c *Client) Subscribe(ctx context.Context, table, filter string) (realtime.Stream, error) {
	if c.accessToken() == "" {
		return nil, ErrNoSession
	}
	if _, err := realtime.ParseFilter(filter); err != nil {
		return nil, err
	}
	target, err := c.realtimeURL(table, filter)
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= http.StatusBadRequest {
			return nil, &Error{Status: resp.StatusCode, Message: "subscribe " + table}
		}
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	deadline := time.Now().Add(ackTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	var ack realtime.ChangeEvent
	if err := conn.ReadJSON(&ack); err != nil || ack.Type != realtime.EventSystem {
		_ = conn.Close()
		if err == nil {
			err = fmt.Errorf("unexpected %s event", ack.Type)
		}
		return nil, fmt.Errorf("subscribe %s: waiting for ack: %w", table, err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	s := &subscription{
		conn:   conn,
		events: make(chan realtime.ChangeEvent, 16),
		done:   make(chan struct{}),
		log:    c.log.With(zap.String("table", table), zap.String("filter", strings.TrimSpace(filter))),
	}
	go s.readLoop()
	return s, nil
}
