package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"music_stream/internal/domain"
	"music_stream/internal/metrics"
	"music_stream/internal/repository"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"
)

type PresenceService interface {
	// Announce sets the user's status and stamps LastSeen.
	Announce(ctx context.Context, userID string, status domain.PresenceStatus) (*domain.PresenceRecord, error)
	// RecordActivity brings an idle, offline or unknown user back online.
	RecordActivity(ctx context.Context, userID string) error
	// UpdateCurrentSong applies only to online users; unknown users are ignored.
	UpdateCurrentSong(ctx context.Context, userID string, song *domain.SongSummary) error
	// Bind attaches a realtime session to the user, replacing any earlier binding.
	Bind(userID, sessionID string)
	// Disconnect releases sessionID. A stale session (replaced by a newer Bind) is
	// ignored. An empty sessionID is an explicit sign-off.
	Disconnect(ctx context.Context, userID, sessionID string) error
	ListAll(ctx context.Context) ([]*domain.PresenceRecord, error)
	Get(ctx context.Context, userID string) (*domain.PresenceRecord, error)
	// ExpireIdle marks online users without activity for IdleTimeout as idle
	// and keeps the records of users with a bound session from expiring.
	ExpireIdle(ctx context.Context) (int, error)
	// Run sweeps for idle users until ctx is done.
	Run(ctx context.Context)
}

type PresenceOptions struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

type presenceService struct {
	store    repository.PresenceStore
	notifier Notifier
	opts     PresenceOptions
	log      logger.Logger

	mu       sync.Mutex
	sessions map[string]string
}

func NewPresenceService(store repository.PresenceStore, notifier Notifier, opts PresenceOptions, log logger.Logger) PresenceService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 5 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 15 * time.Second
	}
	return &presenceService{
		store:    store,
		notifier: notifier,
		opts:     opts,
		log:      log.With("component", "presence"),
		sessions: make(map[string]string),
	}
}

func (s *presenceService) Announce(ctx context.Context, userID string, status domain.PresenceStatus) (*domain.PresenceRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.Validation("User ID and status are required")
	}
	if !status.Valid() {
		return nil, apperrors.Validation("Status must be one of online, idle, offline")
	}

	now := s.opts.Now()
	record, err := s.store.Update(ctx, userID, func(current *domain.PresenceRecord) *domain.PresenceRecord {
		next := &domain.PresenceRecord{UserID: userID, Status: status, LastSeen: now}
		if current != nil && status != domain.StatusOffline {
			next.CurrentSong = current.CurrentSong
		}
		return next
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	metrics.PresenceTransitions.WithLabelValues(string(status)).Inc()
	s.notifier.Broadcast(domain.Event{Type: domain.EventUserStatusUpdate, Data: record})
	return record, nil
}

func (s *presenceService) RecordActivity(ctx context.Context, userID string) error {
	now := s.opts.Now()
	var transitioned bool

	record, err := s.store.Update(ctx, userID, func(current *domain.PresenceRecord) *domain.PresenceRecord {
		transitioned = current == nil || current.Status != domain.StatusOnline
		next := &domain.PresenceRecord{UserID: userID, Status: domain.StatusOnline, LastSeen: now}
		if current != nil {
			next.CurrentSong = current.CurrentSong
		}
		return next
	})
	if err != nil {
		return apperrors.Internal(err)
	}

	if transitioned {
		metrics.PresenceTransitions.WithLabelValues(string(domain.StatusOnline)).Inc()
		s.notifier.Broadcast(domain.Event{Type: domain.EventUserStatusUpdate, Data: record})
	}
	return nil
}

func (s *presenceService) UpdateCurrentSong(ctx context.Context, userID string, song *domain.SongSummary) error {
	now := s.opts.Now()

	record, err := s.store.Update(ctx, userID, func(current *domain.PresenceRecord) *domain.PresenceRecord {
		if current == nil || current.Status != domain.StatusOnline {
			return nil
		}
		current.CurrentSong = song
		current.LastSeen = now
		return current
	})
	if err != nil {
		return apperrors.Internal(err)
	}
	if record == nil {
		s.log.Debug("Song update ignored", "user_id", userID)
		return nil
	}

	s.notifier.Broadcast(domain.Event{
		Type: domain.EventUserSongUpdate,
		Data: domain.SongUpdatePayload{UserID: userID, Song: record.CurrentSong},
	})
	return nil
}

func (s *presenceService) Bind(userID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.sessions[userID]; ok && prev != sessionID {
		s.log.Info("Session binding replaced", "user_id", userID, "previous", prev, "session", sessionID)
	}
	s.sessions[userID] = sessionID
}

func (s *presenceService) Disconnect(ctx context.Context, userID, sessionID string) error {
	s.mu.Lock()
	bound, ok := s.sessions[userID]
	if sessionID != "" && (!ok || bound != sessionID) {
		s.mu.Unlock()
		s.log.Debug("Ignoring disconnect of stale session", "user_id", userID, "session", sessionID)
		return nil
	}
	delete(s.sessions, userID)
	s.mu.Unlock()

	now := s.opts.Now()
	record, err := s.store.Update(ctx, userID, func(current *domain.PresenceRecord) *domain.PresenceRecord {
		// a bound session whose record expired still owes its friends an offline update
		if current == nil && !ok {
			return nil
		}
		return &domain.PresenceRecord{UserID: userID, Status: domain.StatusOffline, LastSeen: now}
	})
	if err != nil {
		return apperrors.Internal(err)
	}
	if record == nil {
		return nil
	}

	metrics.PresenceTransitions.WithLabelValues(string(domain.StatusOffline)).Inc()
	s.notifier.Broadcast(domain.Event{Type: domain.EventUserDisconnected, Data: userID})
	s.notifier.Broadcast(domain.Event{Type: domain.EventUserStatusUpdate, Data: record})
	return nil
}

func (s *presenceService) ListAll(ctx context.Context) ([]*domain.PresenceRecord, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return records, nil
}

func (s *presenceService) Get(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrStatusNotFound
		}
		return nil, apperrors.Internal(err)
	}
	return record, nil
}

func (s *presenceService) ExpireIdle(ctx context.Context) (int, error) {
	s.keepAlive(ctx)

	records, err := s.store.List(ctx)
	if err != nil {
		return 0, apperrors.Internal(err)
	}

	now := s.opts.Now()
	expired := 0
	for _, r := range records {
		if r.Status != domain.StatusOnline || now.Sub(r.LastSeen) < s.opts.IdleTimeout {
			continue
		}

		// re-check under the store's lock, activity may have landed since List
		record, err := s.store.Update(ctx, r.UserID, func(current *domain.PresenceRecord) *domain.PresenceRecord {
			if current == nil || current.Status != domain.StatusOnline || now.Sub(current.LastSeen) < s.opts.IdleTimeout {
				return nil
			}
			current.Status = domain.StatusIdle
			return current
		})
		if err != nil {
			s.log.Warn("Failed to mark user idle", "user_id", r.UserID, "error", err)
			continue
		}
		if record == nil {
			continue
		}

		expired++
		metrics.PresenceTransitions.WithLabelValues(string(domain.StatusIdle)).Inc()
		s.notifier.Broadcast(domain.Event{Type: domain.EventUserStatusUpdate, Data: record})
	}

	return expired, nil
}

// keepAlive refreshes the stored records of users holding a session, so a
// connected but quiet user never disappears from the shared store.
func (s *presenceService) keepAlive(ctx context.Context) {
	s.mu.Lock()
	userIDs := make([]string, 0, len(s.sessions))
	for userID := range s.sessions {
		userIDs = append(userIDs, userID)
	}
	s.mu.Unlock()

	if err := s.store.Touch(ctx, userIDs...); err != nil {
		s.log.Warn("Failed to keep sessions alive", "users", len(userIDs), "error", err)
	}
}

func (s *presenceService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()

	s.log.Info("Presence sweeper started", "idle_timeout", s.opts.IdleTimeout.String(), "interval", s.opts.SweepInterval.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Presence sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.ExpireIdle(ctx)
			if err != nil {
				s.log.Error("Idle sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.log.Debug("Users marked idle", "count", n)
			}
		}
	}
}
