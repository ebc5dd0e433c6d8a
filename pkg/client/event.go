package client

import (
	"context"
	"fmt"
	"time"

	"music_stream/internal/domain"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// Mode selects how server events reach the client.
type Mode string

const (
	ModePush Mode = "push"
	ModePoll Mode = "poll"
)

// Event is a server event in decoded form. Push and poll sources produce
// the same values, so sinks never know which transport delivered them.
type Event struct {
	Type string

	Record     *domain.PresenceRecord   // user_status_update
	Records    []*domain.PresenceRecord // online_users
	SongUpdate *domain.SongUpdatePayload
	Message    *domain.Message // receive_message, message_edited
	MessageID  string          // message_edited, message_deleted
	UserID     string          // user_disconnected
	Err        *domain.ErrorPayload
}

type EventSink interface {
	Apply(Event)
}

type EventSource interface {
	Run(ctx context.Context, sink EventSink) error
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

func (f SinkFunc) Apply(ev Event) { f(ev) }

type SourceOptions struct {
	// UserID is the room joined by the push source.
	UserID string

	StatusInterval       time.Duration
	ConversationInterval time.Duration
	// ActivePeer returns the user whose conversation is open, or "".
	ActivePeer func() string
	// OnError receives transient poll failures.
	OnError func(error)

	Dialer *websocket.Dialer
}

func NewEventSource(mode Mode, c *Client, opts SourceOptions) (EventSource, error) {
	switch mode {
	case ModePush:
		return NewPushSource(c, opts), nil
	case ModePoll:
		return NewPollSource(c, opts), nil
	default:
		return nil, fmt.Errorf("unknown event mode %q", mode)
	}
}

type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func decodeEvent(raw []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	ev := Event{Type: w.Type}
	var err error
	switch w.Type {
	case domain.EventUserStatusUpdate:
		err = json.Unmarshal(w.Data, &ev.Record)
	case domain.EventOnlineUsers:
		err = json.Unmarshal(w.Data, &ev.Records)
	case domain.EventUserSongUpdate:
		err = json.Unmarshal(w.Data, &ev.SongUpdate)
	case domain.EventReceiveMessage:
		err = json.Unmarshal(w.Data, &ev.Message)
	case domain.EventMessageEdited:
		var p domain.MessageEditedPayload
		err = json.Unmarshal(w.Data, &p)
		ev.MessageID, ev.Message = p.MessageID, p.Message
	case domain.EventMessageDeleted:
		var p domain.MessageDeletedPayload
		err = json.Unmarshal(w.Data, &p)
		ev.MessageID = p.MessageID
	case domain.EventUserDisconnected:
		err = json.Unmarshal(w.Data, &ev.UserID)
	case domain.EventError:
		err = json.Unmarshal(w.Data, &ev.Err)
	default:
		return Event{}, fmt.Errorf("unknown event type %q", w.Type)
	}
	if err != nil {
		return Event{}, fmt.Errorf("decode %s: %w", w.Type, err)
	}
	return ev, nil
}
