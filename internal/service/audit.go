package service

import (
	"context"
	"time"

	"music_stream/internal/domain"
	"music_stream/internal/repository"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type AuditService interface {
	// Record stores a catalog change. Failures are logged and never fail the
	// change itself.
	Record(ctx context.Context, actorID, action string, targetID *uuid.UUID, payload map[string]interface{})
	Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	log       logger.Logger
	now       func() time.Time
}

func NewAuditService(auditRepo repository.AuditRepository, log logger.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		log:       log,
		now:       time.Now,
	}
}

func (s *auditService) Record(ctx context.Context, actorID, action string, targetID *uuid.UUID, payload map[string]interface{}) {
	if s.auditRepo == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	entry := &domain.AuditEntry{
		EventTime: s.now().UTC(),
		ActorID:   actorID,
		Action:    action,
		TargetID:  targetID,
		Payload:   payload,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.log.Warn("Audit entry dropped", "action", action, "actor_id", actorID, "error", err)
	}
}

func (s *auditService) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	if s.auditRepo == nil {
		return []*domain.AuditEntry{}, nil
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		return nil, apperrors.Validation("Limit must not exceed 500")
	}

	entries, err := s.auditRepo.Recent(ctx, limit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return entries, nil
}
