package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"music_stream/internal/domain"
	"music_stream/internal/metrics"
	"music_stream/internal/repository"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/google/uuid"
)

type SendMessageInput struct {
	SenderID   string
	ReceiverID string
	Text       string
	File       *Upload
	ReplyToID  string
}

type MessageService interface {
	Send(ctx context.Context, in SendMessageInput) (*domain.Message, error)
	// Edit replaces the text of a message. Concurrent edits are last-write-wins.
	Edit(ctx context.Context, messageID uuid.UUID, requesterID, text string) (*domain.Message, error)
	Delete(ctx context.Context, messageID uuid.UUID, requesterID string) error
	ListConversation(ctx context.Context, userA, userB string) ([]*domain.Message, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.Message, error)
}

type messageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	media       MediaService
	notifier    Notifier
	maxFileSize int64
	log         logger.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	media MediaService,
	notifier Notifier,
	maxFileSize int64,
	log logger.Logger,
) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		media:       media,
		notifier:    notifier,
		maxFileSize: maxFileSize,
		log:         log.With("component", "messages"),
	}
}

func (s *messageService) Send(ctx context.Context, in SendMessageInput) (*domain.Message, error) {
	receiverID := strings.TrimSpace(in.ReceiverID)
	text := strings.TrimSpace(in.Text)
	if receiverID == "" || (text == "" && in.File == nil) {
		return nil, apperrors.Validation("Receiver ID and message or file are required")
	}
	if in.File != nil && in.File.Size > s.maxFileSize {
		return nil, apperrors.Validation(fmt.Sprintf("File size must be less than %dMB", s.maxFileSize>>20))
	}

	// v7 IDs sort by creation, matching the created_at, id tie-break in listings
	message := &domain.Message{
		ID:         uuid.Must(uuid.NewV7()),
		SenderID:   in.SenderID,
		ReceiverID: receiverID,
		Text:       text,
	}

	if in.ReplyToID != "" {
		message.ReplyTo = s.replySnapshot(ctx, in.ReplyToID, in.SenderID, receiverID)
	}

	if in.File != nil {
		uploaded, err := s.media.Upload(ctx, in.File, FolderChatFiles)
		if err != nil {
			return nil, err
		}
		message.File = &domain.FileAttachment{URL: uploaded.URL, MimeType: uploaded.MimeType, Name: uploaded.Name}
	}

	now := time.Now()
	message.CreatedAt, message.UpdatedAt = now, now

	// an upload that succeeded before a failed insert stays orphaned at the gateway
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, apperrors.Internal(err)
	}
	metrics.MessagesSent.Inc()

	s.notifier.PublishTo(receiverID, domain.Event{Type: domain.EventReceiveMessage, Data: message})
	return message, nil
}

// replySnapshot freezes the quoted message. Lookups that fail for any reason
// produce no reply reference; the send goes ahead regardless.
func (s *messageService) replySnapshot(ctx context.Context, replyToID, senderID, receiverID string) *domain.ReplyReference {
	id, err := uuid.Parse(replyToID)
	if err != nil {
		return nil
	}

	target, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.log.Warn("Reply lookup failed", "error", err, "reply_to", replyToID)
		}
		return nil
	}
	if !target.Involves(senderID) || !target.Involves(receiverID) {
		return nil
	}

	ref := &domain.ReplyReference{MessageID: target.ID, Message: target.Text}
	if sender, err := s.userRepo.GetByID(ctx, target.SenderID); err == nil {
		ref.SenderName = sender.DisplayName
	}
	if ref.Message == "" && target.File != nil {
		ref.Message = target.File.Name
	}
	return ref
}

func (s *messageService) Edit(ctx context.Context, messageID uuid.UUID, requesterID, text string) (*domain.Message, error) {
	message, err := s.owned(ctx, messageID, requesterID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("Message text is required")
	}

	updated, err := s.messageRepo.UpdateText(ctx, message.ID, text, time.Now())
	if err != nil {
		return nil, storeError(err)
	}

	s.notifier.PublishTo(updated.Counterpart(requesterID), domain.Event{
		Type: domain.EventMessageEdited,
		Data: domain.MessageEditedPayload{MessageID: updated.ID.String(), Message: updated},
	})
	return updated, nil
}

func (s *messageService) Delete(ctx context.Context, messageID uuid.UUID, requesterID string) error {
	message, err := s.owned(ctx, messageID, requesterID)
	if err != nil {
		return err
	}

	if err := s.messageRepo.Delete(ctx, message.ID); err != nil {
		return storeError(err)
	}

	s.notifier.PublishTo(message.Counterpart(requesterID), domain.Event{
		Type: domain.EventMessageDeleted,
		Data: domain.MessageDeletedPayload{MessageID: message.ID.String()},
	})
	return nil
}

// owned loads the message and checks requesterID sent it.
func (s *messageService) owned(ctx context.Context, messageID uuid.UUID, requesterID string) (*domain.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, storeError(err)
	}
	if message.SenderID != requesterID {
		return nil, apperrors.ErrNotSender
	}
	return message, nil
}

func (s *messageService) ListConversation(ctx context.Context, userA, userB string) ([]*domain.Message, error) {
	if strings.TrimSpace(userA) == "" || strings.TrimSpace(userB) == "" {
		return nil, apperrors.Validation("User ID is required")
	}
	messages, err := s.messageRepo.ListConversation(ctx, userA, userB)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return messages, nil
}

func (s *messageService) ListForUser(ctx context.Context, userID string) ([]*domain.Message, error) {
	messages, err := s.messageRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return messages, nil
}
