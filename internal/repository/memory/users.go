package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"music_stream/internal/domain"
	apperrors "music_stream/pkg/errors"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) Upsert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	existing, ok := r.users[user.ID]
	if !ok {
		u := *user
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		u.CreatedAt, u.UpdatedAt = now, now
		r.users[user.ID] = &u
		*user = u
		return nil
	}

	if user.Email != "" {
		existing.Email = strings.ToLower(strings.TrimSpace(user.Email))
	}
	if user.DisplayName != "" {
		existing.DisplayName = user.DisplayName
	}
	if user.AvatarURL != "" {
		existing.AvatarURL = user.AvatarURL
	}
	existing.UpdatedAt = now
	*user = *existing
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (r *UserRepository) ListExcept(_ context.Context, id string) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := []*domain.User{}
	for _, user := range r.users {
		if user.ID == id {
			continue
		}
		u := *user
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].DisplayName < users[j].DisplayName })
	return users, nil
}

func (r *UserRepository) count() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users))
}
