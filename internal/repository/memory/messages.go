package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"music_stream/internal/domain"
	apperrors "music_stream/pkg/errors"

	"github.com/google/uuid"
)

type storedMessage struct {
	msg *domain.Message
	seq uint64
}

type MessageRepository struct {
	mu       sync.RWMutex
	seq      uint64
	messages map[uuid.UUID]*storedMessage
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{messages: make(map[uuid.UUID]*storedMessage)}
}

func (r *MessageRepository) Create(_ context.Context, message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.messages[message.ID] = &storedMessage{msg: message.Clone(), seq: r.seq}
	return nil
}

func (r *MessageRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.messages[id]
	if !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	return stored.msg.Clone(), nil
}

func (r *MessageRepository) UpdateText(_ context.Context, id uuid.UUID, text string, editedAt time.Time) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.messages[id]
	if !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	stored.msg.Text = text
	stored.msg.EditedAt = &editedAt
	stored.msg.UpdatedAt = editedAt
	return stored.msg.Clone(), nil
}

func (r *MessageRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.messages[id]; !ok {
		return apperrors.ErrMessageNotFound
	}
	delete(r.messages, id)
	return nil
}

func (r *MessageRepository) ListConversation(_ context.Context, a, b string) ([]*domain.Message, error) {
	return r.filter(func(m *domain.Message) bool {
		return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
	}), nil
}

func (r *MessageRepository) ListForUser(_ context.Context, userID string) ([]*domain.Message, error) {
	return r.filter(func(m *domain.Message) bool { return m.Involves(userID) }), nil
}

func (r *MessageRepository) filter(keep func(*domain.Message) bool) []*domain.Message {
	r.mu.RLock()
	matched := make([]storedMessage, 0)
	for _, stored := range r.messages {
		if keep(stored.msg) {
			matched = append(matched, storedMessage{msg: stored.msg.Clone(), seq: stored.seq})
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		ti, tj := matched[i].msg.CreatedAt, matched[j].msg.CreatedAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return matched[i].seq < matched[j].seq
	})

	out := make([]*domain.Message, len(matched))
	for i, stored := range matched {
		out[i] = stored.msg
	}
	return out
}
