package domain

import (
	"time"
)

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusIdle    PresenceStatus = "idle"
	StatusOffline PresenceStatus = "offline"
)

func (s PresenceStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusIdle, StatusOffline:
		return true
	}
	return false
}

// SongSummary is the "now playing" annotation shown to friends.
type SongSummary struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type PresenceRecord struct {
	UserID      string         `json:"userId"`
	Status      PresenceStatus `json:"status"`
	LastSeen    time.Time      `json:"lastSeen"`
	CurrentSong *SongSummary   `json:"currentSong,omitempty"`
}

func (r *PresenceRecord) Clone() *PresenceRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.CurrentSong != nil {
		s := *r.CurrentSong
		c.CurrentSong = &s
	}
	return &c
}
