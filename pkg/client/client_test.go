package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"music_stream/internal/domain"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string, tokens TokenSource) *Client {
	t.Helper()
	c, err := New(url, tokens, Options{InitialBackoff: time.Millisecond, MaxRetries: 3})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://example.com", nil, Options{})
	assert.Error(t, err)

	_, err = New("://nope", nil, Options{})
	assert.Error(t, err)
}

func TestClient_RefreshesTokenOnceOn401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token", "code": "UNAUTHORIZED"})
			return
		}
		writeJSON(w, http.StatusOK, []*domain.User{{ID: "bob", DisplayName: "Bob"}})
	}))
	defer srv.Close()

	var refreshes int32
	tokens := func(_ context.Context, refresh bool) (string, error) {
		if refresh {
			atomic.AddInt32(&refreshes, 1)
			return "fresh", nil
		}
		return "stale", nil
	}

	users, err := newTestClient(t, srv.URL, tokens).Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
}

func TestClient_GivesUpAfterSecond401(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token", "code": "UNAUTHORIZED"})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, StaticToken("bad")).Users(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "one retry with a refreshed token, no backoff retries")
}

func TestClient_RetriesIdempotentReads(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "busy"})
			return
		}
		writeJSON(w, http.StatusOK, []*domain.Message{})
	}))
	defer srv.Close()

	messages, err := newTestClient(t, srv.URL, StaticToken("t")).Conversation(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestClient_NeverRetriesSends(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Server error", "code": "SERVER_ERROR"})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, StaticToken("t")).SendMessage(context.Background(), SendMessage{ReceiverID: "bob", Text: "hi"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "User status not found", "code": "NOT_FOUND"})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, StaticToken("t")).Status(context.Background(), "ghost")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "User status not found", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_LocalFailuresAreNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"not": "a list"`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, StaticToken("t")).Conversation(context.Background(), "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	var tokenCalls int32
	failing := TokenSource(func(context.Context, bool) (string, error) {
		atomic.AddInt32(&tokenCalls, 1)
		return "", errors.New("keychain locked")
	})
	_, err = newTestClient(t, srv.URL, failing).Users(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keychain locked")
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_TransportFailuresAreRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	var tokenCalls int32
	counting := TokenSource(func(context.Context, bool) (string, error) {
		atomic.AddInt32(&tokenCalls, 1)
		return "t", nil
	})
	_, err := newTestClient(t, addr, counting).Users(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&tokenCalls))
}

func TestClient_SendFileReplaysBodyAfterRefresh(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "expired"})
			return
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, domain.Message{
			ID:         uuid.New(),
			ReceiverID: r.FormValue("receiverId"),
			Text:       r.FormValue("message"),
			File:       &domain.FileAttachment{Name: header.Filename},
		})
	}))
	defer srv.Close()

	msg, err := newTestClient(t, srv.URL, StaticToken("t")).SendFile(context.Background(),
		SendMessage{ReceiverID: "bob", Text: "look"}, "cover.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "bob", msg.ReceiverID)
	assert.Equal(t, "look", msg.Text)
	require.NotNil(t, msg.File)
	assert.Equal(t, "cover.png", msg.File.Name)
}

func TestClient_StatusEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    []*domain.PresenceRecord{{UserID: "bob", Status: domain.StatusIdle}},
		})
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv.URL, nil).Statuses(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusIdle, records[0].Status)
}

func TestClient_WebSocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws?token=abc"},
		{"https://api.example.com/", "wss://api.example.com/ws?token=abc"},
		{"https://api.example.com/stream", "wss://api.example.com/stream/ws?token=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			c, err := New(tt.base, StaticToken("abc"), Options{})
			require.NoError(t, err)
			got, err := c.websocketURL(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEvent(t *testing.T) {
	id := uuid.New()

	ev, err := decodeEvent([]byte(`{"type":"message_deleted","data":{"messageId":"` + id.String() + `"}}`))
	require.NoError(t, err)
	assert.Equal(t, id.String(), ev.MessageID)

	ev, err = decodeEvent([]byte(`{"type":"user_disconnected","data":"bob"}`))
	require.NoError(t, err)
	assert.Equal(t, "bob", ev.UserID)

	ev, err = decodeEvent([]byte(`{"type":"user_song_update","data":{"userId":"bob","song":{"title":"Song","artist":"Band"}}}`))
	require.NoError(t, err)
	require.NotNil(t, ev.SongUpdate)
	assert.Equal(t, "Song", ev.SongUpdate.Song.Title)

	_, err = decodeEvent([]byte(`{"type":"mystery","data":{}}`))
	assert.Error(t, err)

	_, err = decodeEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestNewEventSource(t *testing.T) {
	c, err := New("http://localhost", nil, Options{})
	require.NoError(t, err)

	src, err := NewEventSource(ModePush, c, SourceOptions{UserID: "alice"})
	require.NoError(t, err)
	assert.IsType(t, &PushSource{}, src)

	src, err = NewEventSource(ModePoll, c, SourceOptions{})
	require.NoError(t, err)
	assert.IsType(t, &PollSource{}, src)

	_, err = NewEventSource("carrier-pigeon", c, SourceOptions{})
	assert.Error(t, err)
}
