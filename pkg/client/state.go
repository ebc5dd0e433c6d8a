package client

import (
	"sort"
	"time"

	"music_stream/internal/domain"

	"github.com/google/uuid"
)

// ConversationState holds one conversation keyed by message id. Every
// operation is idempotent and a newer version of a message is never
// replaced by an older one, so fetches and events may interleave freely.
type ConversationState struct {
	messages map[uuid.UUID]*domain.Message
	deleted  map[uuid.UUID]struct{}
}

func NewConversationState() *ConversationState {
	return &ConversationState{
		messages: make(map[uuid.UUID]*domain.Message),
		deleted:  make(map[uuid.UUID]struct{}),
	}
}

// Upsert adds m or replaces the stored copy when m is at least as new.
// It reports whether the state changed.
func (s *ConversationState) Upsert(m *domain.Message) bool {
	if m == nil || m.ID == uuid.Nil {
		return false
	}
	if _, gone := s.deleted[m.ID]; gone {
		return false
	}
	if cur, ok := s.messages[m.ID]; ok && version(m).Before(version(cur)) {
		return false
	}
	s.messages[m.ID] = m.Clone()
	return true
}

// Remove drops the message and remembers the id so a stale fetch cannot
// bring it back.
func (s *ConversationState) Remove(id uuid.UUID) bool {
	s.deleted[id] = struct{}{}
	if _, ok := s.messages[id]; !ok {
		return false
	}
	delete(s.messages, id)
	return true
}

func (s *ConversationState) Get(id uuid.UUID) (*domain.Message, bool) {
	m, ok := s.messages[id]
	return m.Clone(), ok
}

func (s *ConversationState) Len() int { return len(s.messages) }

// Messages returns copies ordered by CreatedAt, ties broken by id.
func (s *ConversationState) Messages() []*domain.Message {
	out := make([]*domain.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func version(m *domain.Message) time.Time {
	v := m.UpdatedAt
	if m.EditedAt != nil && m.EditedAt.After(v) {
		v = *m.EditedAt
	}
	if v.IsZero() {
		v = m.CreatedAt
	}
	return v
}

// ActivityState is the latest presence known for each user.
type ActivityState struct {
	records map[string]*domain.PresenceRecord
}

func NewActivityState() *ActivityState {
	return &ActivityState{records: make(map[string]*domain.PresenceRecord)}
}

// Set stores r unless a record with a later LastSeen is already known.
func (s *ActivityState) Set(r *domain.PresenceRecord) bool {
	if r == nil || r.UserID == "" {
		return false
	}
	if cur, ok := s.records[r.UserID]; ok && r.LastSeen.Before(cur.LastSeen) {
		return false
	}
	s.records[r.UserID] = r.Clone()
	return true
}

// Replace installs a full snapshot. Users missing from it keep their entry
// but are marked offline.
func (s *ActivityState) Replace(records []*domain.PresenceRecord) {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		seen[r.UserID] = struct{}{}
		s.Set(r)
	}
	for id, r := range s.records {
		if _, ok := seen[id]; !ok && r.Status != domain.StatusOffline {
			r.Status = domain.StatusOffline
			r.CurrentSong = nil
		}
	}
}

// SetSong annotates a known user. Unknown users are ignored.
func (s *ActivityState) SetSong(userID string, song *domain.SongSummary) bool {
	r, ok := s.records[userID]
	if !ok {
		return false
	}
	if song == nil {
		r.CurrentSong = nil
	} else {
		c := *song
		r.CurrentSong = &c
	}
	return true
}

func (s *ActivityState) MarkOffline(userID string) bool {
	r, ok := s.records[userID]
	if !ok || r.Status == domain.StatusOffline {
		return false
	}
	r.Status = domain.StatusOffline
	r.CurrentSong = nil
	return true
}

func (s *ActivityState) Get(userID string) (*domain.PresenceRecord, bool) {
	r, ok := s.records[userID]
	return r.Clone(), ok
}

// All returns copies sorted by user id.
func (s *ActivityState) All() []*domain.PresenceRecord {
	out := make([]*domain.PresenceRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
