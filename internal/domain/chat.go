package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct chat message between two users.
// Text and File may not both be empty. ReplyTo is a snapshot taken at send time.
type Message struct {
	ID         uuid.UUID       `json:"id"`
	SenderID   string          `json:"senderId"`
	ReceiverID string          `json:"receiverId"`
	Text       string          `json:"message"`
	File       *FileAttachment `json:"file,omitempty"`
	ReplyTo    *ReplyReference `json:"replyTo,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	EditedAt   *time.Time      `json:"editedAt,omitempty"`
}

type FileAttachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Name     string `json:"name"`
}

type ReplyReference struct {
	MessageID  uuid.UUID `json:"messageId"`
	Message    string    `json:"message"`
	SenderName string    `json:"senderName"`
}

// Counterpart returns the other party of the message as seen by userID.
func (m *Message) Counterpart(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Involves reports whether userID is the sender or the receiver.
func (m *Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.File != nil {
		f := *m.File
		c.File = &f
	}
	if m.ReplyTo != nil {
		r := *m.ReplyTo
		c.ReplyTo = &r
	}
	if m.EditedAt != nil {
		t := *m.EditedAt
		c.EditedAt = &t
	}
	return &c
}
