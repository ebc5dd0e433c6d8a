package repository

import (
	"context"

	"music_stream/internal/domain"
	"music_stream/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}

type auditRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAuditRepository(db *pgxpool.Pool, log logger.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_log (event_time, actor_id, action, target_id, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		entry.EventTime, entry.ActorID, entry.Action, entry.TargetID, entry.Payload,
	).Scan(&entry.ID)
	if err != nil {
		r.log.Error("Failed to create audit entry", "action", entry.Action, "error", err)
		return err
	}

	return nil
}

func (r *auditRepository) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, event_time, actor_id, action, target_id, payload
		FROM audit_log
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		r.log.Error("Failed to list audit entries", "error", err)
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.AuditEntry, 0, limit)
	for rows.Next() {
		e := &domain.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.EventTime, &e.ActorID, &e.Action, &e.TargetID, &e.Payload); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
