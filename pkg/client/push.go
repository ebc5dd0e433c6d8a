package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"music_stream/internal/domain"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const pushWriteWait = 10 * time.Second

var ErrNotConnected = errors.New("push source not connected")

// PushSource receives events over the /ws channel. Run returns when the
// connection drops; reconnecting is up to the caller.
type PushSource struct {
	client *Client
	userID string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewPushSource(c *Client, opts SourceOptions) *PushSource {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &PushSource{client: c, userID: opts.UserID, dialer: dialer}
}

func (s *PushSource) Run(ctx context.Context, sink EventSink) error {
	if s.userID == "" {
		return errors.New("push source needs a user id")
	}

	addr, err := s.client.websocketURL(ctx)
	if err != nil {
		return err
	}
	conn, _, err := s.dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	stop := make(chan struct{})
	defer func() {
		close(stop)
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if err := s.Emit(domain.EventJoinRoom, s.userID); err != nil {
		return err
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		ev, err := decodeEvent(data)
		if err != nil {
			continue
		}
		sink.Apply(ev)
	}
}

// Emit writes an outbound event such as user_status or user_song_update.
func (s *PushSource) Emit(eventType string, data interface{}) error {
	payload, err := json.Marshal(domain.Event{Type: eventType, Data: data})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(pushWriteWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}
