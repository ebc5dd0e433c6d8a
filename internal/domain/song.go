package domain

import (
	"time"

	"github.com/google/uuid"
)

type Song struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Artist    string     `json:"artist"`
	AudioURL  string     `json:"audioUrl"`
	ImageURL  string     `json:"imageUrl"`
	Duration  int        `json:"duration"`
	AlbumID   *uuid.UUID `json:"albumId"`
	PlayCount int64      `json:"playCount"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (s *Song) Summary() *SongSummary {
	return &SongSummary{Title: s.Title, Artist: s.Artist, ImageURL: s.ImageURL}
}

type Album struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	ImageURL    string    `json:"imageUrl"`
	ReleaseYear int       `json:"releaseYear"`
	Songs       []*Song   `json:"songs"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
