package client

import (
	"testing"
	"time"

	"music_stream/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func message(sender, receiver, text string, at time.Time) *domain.Message {
	return &domain.Message{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       text,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

func edited(m *domain.Message, text string, at time.Time) *domain.Message {
	c := m.Clone()
	c.Text = text
	c.UpdatedAt = at
	c.EditedAt = &at
	return c
}

func texts(messages []*domain.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Text)
	}
	return out
}

func TestConversationState_OrdersByCreatedAt(t *testing.T) {
	s := NewConversationState()
	s.Upsert(message("a", "b", "third", t0.Add(2*time.Second)))
	s.Upsert(message("a", "b", "first", t0))
	s.Upsert(message("b", "a", "second", t0.Add(time.Second)))

	assert.Equal(t, []string{"first", "second", "third"}, texts(s.Messages()))
}

func TestConversationState_UpsertIsIdempotent(t *testing.T) {
	s := NewConversationState()
	m := message("a", "b", "hi", t0)

	assert.True(t, s.Upsert(m))
	assert.True(t, s.Upsert(m), "same version replaces in place")
	assert.Equal(t, 1, s.Len())
}

func TestConversationState_StaleCopyDoesNotUndoEdit(t *testing.T) {
	s := NewConversationState()
	original := message("a", "b", "draft", t0)

	// The edit event overtakes the initial fetch that still carries the old text.
	require.True(t, s.Upsert(edited(original, "final", t0.Add(time.Minute))))
	assert.False(t, s.Upsert(original))

	got, ok := s.Get(original.ID)
	require.True(t, ok)
	assert.Equal(t, "final", got.Text)
	assert.NotNil(t, got.EditedAt)
}

func TestConversationState_RemoveWins(t *testing.T) {
	s := NewConversationState()
	m := message("a", "b", "oops", t0)
	s.Upsert(m)

	assert.True(t, s.Remove(m.ID))
	assert.False(t, s.Remove(m.ID), "second delete is a no-op")
	assert.False(t, s.Upsert(m), "a late fetch cannot resurrect it")
	assert.Zero(t, s.Len())
}

func TestConversationState_ReturnsCopies(t *testing.T) {
	s := NewConversationState()
	m := message("a", "b", "hi", t0)
	s.Upsert(m)
	m.Text = "mutated"

	s.Messages()[0].Text = "also mutated"
	got, _ := s.Get(m.ID)
	assert.Equal(t, "hi", got.Text)
}

func TestActivityState_IgnoresOlderRecords(t *testing.T) {
	s := NewActivityState()
	require.True(t, s.Set(&domain.PresenceRecord{UserID: "bob", Status: domain.StatusIdle, LastSeen: t0.Add(time.Minute)}))
	assert.False(t, s.Set(&domain.PresenceRecord{UserID: "bob", Status: domain.StatusOnline, LastSeen: t0}))

	got, ok := s.Get("bob")
	require.True(t, ok)
	assert.Equal(t, domain.StatusIdle, got.Status)
}

func TestActivityState_ReplaceMarksMissingOffline(t *testing.T) {
	s := NewActivityState()
	s.Set(&domain.PresenceRecord{UserID: "bob", Status: domain.StatusOnline, LastSeen: t0, CurrentSong: &domain.SongSummary{Title: "x"}})

	s.Replace([]*domain.PresenceRecord{{UserID: "carol", Status: domain.StatusOnline, LastSeen: t0}})

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "bob", all[0].UserID)
	assert.Equal(t, domain.StatusOffline, all[0].Status)
	assert.Nil(t, all[0].CurrentSong)
	assert.Equal(t, domain.StatusOnline, all[1].Status)
}

func TestActivityState_SongOnlyForKnownUsers(t *testing.T) {
	s := NewActivityState()
	assert.False(t, s.SetSong("ghost", &domain.SongSummary{Title: "x"}))

	s.Set(&domain.PresenceRecord{UserID: "bob", Status: domain.StatusOnline, LastSeen: t0})
	assert.True(t, s.SetSong("bob", &domain.SongSummary{Title: "Song", Artist: "Band"}))

	got, _ := s.Get("bob")
	require.NotNil(t, got.CurrentSong)
	assert.Equal(t, "Song", got.CurrentSong.Title)

	assert.True(t, s.MarkOffline("bob"))
	assert.False(t, s.MarkOffline("bob"))
}
