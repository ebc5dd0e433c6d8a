package repository

import (
	"context"
	"errors"
	"time"

	"music_stream/internal/domain"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// UpdateText overwrites the text unconditionally; concurrent edits are last-write-wins.
	UpdateText(ctx context.Context, id uuid.UUID, text string, editedAt time.Time) (*domain.Message, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListConversation returns messages between a and b in either direction, oldest first.
	ListConversation(ctx context.Context, a, b string) ([]*domain.Message, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.Message, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

const messageColumns = `
	id, sender_id, receiver_id, text, file_url, file_type, file_name,
	reply_to_id, reply_message, reply_sender_name, created_at, updated_at, edited_at`

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var fileURL, fileType, fileName *string
	if message.File != nil {
		fileURL, fileType, fileName = &message.File.URL, &message.File.MimeType, &message.File.Name
	}
	var replyID *uuid.UUID
	var replyText, replySender *string
	if message.ReplyTo != nil {
		replyID, replyText, replySender = &message.ReplyTo.MessageID, &message.ReplyTo.Message, &message.ReplyTo.SenderName
	}

	_, err := r.db.Exec(ctx, query,
		message.ID, message.SenderID, message.ReceiverID, message.Text, fileURL, fileType, fileName,
		replyID, replyText, replySender, message.CreatedAt, message.UpdatedAt, message.EditedAt,
	)
	if err != nil {
		r.log.Error("Failed to create message", "error", err, "sender_id", message.SenderID)
		return err
	}

	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	message, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to get message", "error", err, "message_id", id)
		return nil, err
	}

	return message, nil
}

func (r *messageRepository) UpdateText(ctx context.Context, id uuid.UUID, text string, editedAt time.Time) (*domain.Message, error) {
	query := `
		UPDATE messages
		SET text = $2, edited_at = $3, updated_at = $3
		WHERE id = $1
		RETURNING ` + messageColumns

	message, err := scanMessage(r.db.QueryRow(ctx, query, id, text, editedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to update message", "error", err, "message_id", id)
		return nil, err
	}

	return message, nil
}

func (r *messageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete message", "error", err, "message_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMessageNotFound
	}
	return nil
}

func (r *messageRepository) ListConversation(ctx context.Context, a, b string) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, a, b)
}

func (r *messageRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, userID)
}

func (r *messageRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	messages := []*domain.Message{}
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		m                           domain.Message
		fileURL, fileType, fileName *string
		replyID                     *uuid.UUID
		replyText, replySender      *string
	)

	err := row.Scan(
		&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &fileURL, &fileType, &fileName,
		&replyID, &replyText, &replySender, &m.CreatedAt, &m.UpdatedAt, &m.EditedAt,
	)
	if err != nil {
		return nil, err
	}

	if fileURL != nil {
		m.File = &domain.FileAttachment{URL: *fileURL}
		if fileType != nil {
			m.File.MimeType = *fileType
		}
		if fileName != nil {
			m.File.Name = *fileName
		}
	}
	if replyID != nil {
		m.ReplyTo = &domain.ReplyReference{MessageID: *replyID}
		if replyText != nil {
			m.ReplyTo.Message = *replyText
		}
		if replySender != nil {
			m.ReplyTo.SenderName = *replySender
		}
	}

	return &m, nil
}
