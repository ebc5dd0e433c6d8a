package client

import (
	"sync"

	"music_stream/internal/domain"

	"github.com/google/uuid"
)

// Reconciler applies events from any EventSource to per-conversation
// message state and the activity list. It is safe for concurrent use.
type Reconciler struct {
	mu            sync.RWMutex
	self          string
	conversations map[string]*ConversationState
	activity      *ActivityState
	// owner maps a message id to the peer whose conversation holds it.
	owner   map[uuid.UUID]string
	deleted map[uuid.UUID]struct{}
	lastErr *domain.ErrorPayload
}

func NewReconciler(self string) *Reconciler {
	return &Reconciler{
		self:          self,
		conversations: make(map[string]*ConversationState),
		activity:      NewActivityState(),
		owner:         make(map[uuid.UUID]string),
		deleted:       make(map[uuid.UUID]struct{}),
	}
}

var _ EventSink = (*Reconciler)(nil)

func (r *Reconciler) Apply(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case domain.EventOnlineUsers:
		r.activity.Replace(ev.Records)
	case domain.EventUserStatusUpdate:
		r.activity.Set(ev.Record)
	case domain.EventUserSongUpdate:
		if ev.SongUpdate != nil {
			r.activity.SetSong(ev.SongUpdate.UserID, ev.SongUpdate.Song)
		}
	case domain.EventUserDisconnected:
		r.activity.MarkOffline(ev.UserID)
	case domain.EventReceiveMessage, domain.EventMessageEdited:
		r.upsertLocked(ev.Message)
	case domain.EventMessageDeleted:
		if id, err := uuid.Parse(ev.MessageID); err == nil {
			r.removeLocked(id)
		}
	case domain.EventError:
		r.lastErr = ev.Err
	}
}

// LoadConversation merges a REST fetch of the conversation with peer.
func (r *Reconciler) LoadConversation(peer string, messages []*domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conversationLocked(peer)
	for _, m := range messages {
		r.upsertLocked(m)
	}
}

func (r *Reconciler) upsertLocked(m *domain.Message) {
	if m == nil || !m.Involves(r.self) {
		return
	}
	if _, gone := r.deleted[m.ID]; gone {
		return
	}
	peer := m.Counterpart(r.self)
	if r.conversationLocked(peer).Upsert(m) {
		r.owner[m.ID] = peer
	}
}

func (r *Reconciler) removeLocked(id uuid.UUID) {
	r.deleted[id] = struct{}{}
	if peer, ok := r.owner[id]; ok {
		r.conversations[peer].Remove(id)
		delete(r.owner, id)
	}
}

func (r *Reconciler) conversationLocked(peer string) *ConversationState {
	conv, ok := r.conversations[peer]
	if !ok {
		conv = NewConversationState()
		r.conversations[peer] = conv
	}
	return conv
}

// Conversation returns the messages exchanged with peer, oldest first.
func (r *Reconciler) Conversation(peer string) []*domain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[peer]
	if !ok {
		return nil
	}
	return conv.Messages()
}

func (r *Reconciler) Activity() []*domain.PresenceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activity.All()
}

func (r *Reconciler) Presence(userID string) (*domain.PresenceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activity.Get(userID)
}

// LastError is the most recent error event from the server.
func (r *Reconciler) LastError() *domain.ErrorPayload {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}
