package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry records one catalog change made by an admin.
type AuditEntry struct {
	ID        int64                  `json:"id"`
	EventTime time.Time              `json:"eventTime"`
	ActorID   string                 `json:"actorId"`
	Action    string                 `json:"action"`
	TargetID  *uuid.UUID             `json:"targetId,omitempty"`
	Payload   map[string]interface{} `json:"payload"`
}

const (
	AuditSongCreated  = "SONG_CREATED"
	AuditSongDeleted  = "SONG_DELETED"
	AuditAlbumCreated = "ALBUM_CREATED"
	AuditAlbumDeleted = "ALBUM_DELETED"
)
