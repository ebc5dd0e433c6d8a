package client

import (
	"context"
	"reflect"
	"time"

	"music_stream/internal/domain"

	"github.com/google/uuid"
)

const (
	defaultStatusInterval       = 3 * time.Second
	defaultConversationInterval = 2 * time.Second
)

// PollSource rebuilds the event stream from periodic REST snapshots for
// clients that cannot hold a websocket. Successive snapshots are diffed
// into the same events the push channel would have sent.
type PollSource struct {
	client               *Client
	statusInterval       time.Duration
	conversationInterval time.Duration
	activePeer           func() string
	onError              func(error)

	statuses map[string]*domain.PresenceRecord
	primed   bool

	peer     string
	messages map[uuid.UUID]*domain.Message
}

func NewPollSource(c *Client, opts SourceOptions) *PollSource {
	p := &PollSource{
		client:               c,
		statusInterval:       opts.StatusInterval,
		conversationInterval: opts.ConversationInterval,
		activePeer:           opts.ActivePeer,
		onError:              opts.OnError,
	}
	if p.statusInterval <= 0 {
		p.statusInterval = defaultStatusInterval
	}
	if p.conversationInterval <= 0 {
		p.conversationInterval = defaultConversationInterval
	}
	if p.activePeer == nil {
		p.activePeer = func() string { return "" }
	}
	return p
}

// Run polls until ctx is cancelled. Failed polls are reported to OnError
// and retried on the next tick.
func (p *PollSource) Run(ctx context.Context, sink EventSink) error {
	p.pollStatuses(ctx, sink)
	p.pollConversation(ctx, sink)

	statusTicker := time.NewTicker(p.statusInterval)
	defer statusTicker.Stop()
	conversationTicker := time.NewTicker(p.conversationInterval)
	defer conversationTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-statusTicker.C:
			p.pollStatuses(ctx, sink)
		case <-conversationTicker.C:
			p.pollConversation(ctx, sink)
		}
	}
}

func (p *PollSource) report(ctx context.Context, err error) {
	if ctx.Err() == nil && p.onError != nil {
		p.onError(err)
	}
}

func (p *PollSource) pollStatuses(ctx context.Context, sink EventSink) {
	records, err := p.client.Statuses(ctx)
	if err != nil {
		p.report(ctx, err)
		return
	}

	next := make(map[string]*domain.PresenceRecord, len(records))
	for _, r := range records {
		if r != nil {
			next[r.UserID] = r
		}
	}

	if !p.primed {
		p.primed = true
		p.statuses = next
		sink.Apply(Event{Type: domain.EventOnlineUsers, Records: records})
		return
	}

	for id, r := range next {
		if prev, ok := p.statuses[id]; ok && !presenceChanged(prev, r) {
			continue
		}
		sink.Apply(Event{Type: domain.EventUserStatusUpdate, Record: r})
	}
	for id := range p.statuses {
		if _, ok := next[id]; !ok {
			sink.Apply(Event{Type: domain.EventUserDisconnected, UserID: id})
		}
	}
	p.statuses = next
}

func presenceChanged(a, b *domain.PresenceRecord) bool {
	return a.Status != b.Status || !a.LastSeen.Equal(b.LastSeen) || !reflect.DeepEqual(a.CurrentSong, b.CurrentSong)
}

func (p *PollSource) pollConversation(ctx context.Context, sink EventSink) {
	peer := p.activePeer()
	if peer != p.peer {
		p.peer = peer
		p.messages = nil
	}
	if peer == "" {
		return
	}

	messages, err := p.client.Conversation(ctx, peer)
	if err != nil {
		p.report(ctx, err)
		return
	}

	next := make(map[uuid.UUID]*domain.Message, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		next[m.ID] = m
		prev, seen := p.messages[m.ID]
		switch {
		case !seen:
			sink.Apply(Event{Type: domain.EventReceiveMessage, Message: m})
		case messageChanged(prev, m):
			sink.Apply(Event{Type: domain.EventMessageEdited, MessageID: m.ID.String(), Message: m})
		}
	}
	// The first fetch of a conversation has nothing to compare against.
	if p.messages != nil {
		for id := range p.messages {
			if _, ok := next[id]; !ok {
				sink.Apply(Event{Type: domain.EventMessageDeleted, MessageID: id.String()})
			}
		}
	}
	p.messages = next
}

func messageChanged(a, b *domain.Message) bool {
	return a.Text != b.Text || !a.UpdatedAt.Equal(b.UpdatedAt)
}
