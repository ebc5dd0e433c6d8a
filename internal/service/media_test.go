package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"music_stream/internal/config"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMedia(url string) *mediaService {
	svc := NewMediaService(config.MediaConfig{
		UploadURL:     url,
		APIKey:        "key",
		APISecret:     "secret",
		UploadTimeout: 5 * time.Second,
	}, logger.Nop()).(*mediaService)
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc
}

func TestSign(t *testing.T) {
	sig := Sign(map[string]string{"timestamp": "1", "folder": "songs"}, "s3cr3t")
	assert.Len(t, sig, 40)
	assert.Equal(t, sig, Sign(map[string]string{"folder": "songs", "timestamp": "1"}, "s3cr3t"))
	assert.NotEqual(t, sig, Sign(map[string]string{"folder": "songs", "timestamp": "1"}, "other"))
}

func TestMediaUpload_SendsSignedForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "chat_files", r.FormValue("folder"))
		assert.Equal(t, "1700000000", r.FormValue("timestamp"))
		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, Sign(map[string]string{"folder": "chat_files", "timestamp": "1700000000"}, "secret"), r.FormValue("signature"))

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "notes.txt", header.Filename)
		assert.Equal(t, "hello world", string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"secure_url":"https://cdn.example/chat_files/notes.txt"}`))
	}))
	defer srv.Close()

	result, err := newTestMedia(srv.URL).Upload(context.Background(), memUpload("notes.txt", []byte("hello world")), FolderChatFiles)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/chat_files/notes.txt", result.URL)
	assert.Equal(t, "notes.txt", result.Name)
	assert.Contains(t, result.MimeType, "text/plain")
}

func TestMediaUpload_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"rejected", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad signature", http.StatusUnauthorized)
		}},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
		{"missing url", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestMedia(srv.URL).Upload(context.Background(), memUpload("a.bin", []byte{1, 2, 3}), FolderImages)
			require.ErrorIs(t, err, apperrors.ErrUpload)
			assert.Equal(t, "Failed to upload file", err.Error())
		})
	}
}

func TestMediaUpload_NotConfigured(t *testing.T) {
	_, err := newTestMedia("").Upload(context.Background(), memUpload("a.bin", []byte{1}), FolderImages)
	assert.ErrorIs(t, err, apperrors.ErrUpload)
}

func TestMediaUpload_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newTestMedia(srv.URL)
	for i := 0; i < 5; i++ {
		_, err := svc.Upload(context.Background(), memUpload("a.bin", []byte{1}), FolderSongs)
		require.ErrorIs(t, err, apperrors.ErrUpload)
	}
	assert.Equal(t, gobreaker.StateOpen, svc.cb.State())

	_, err := svc.Upload(context.Background(), memUpload("a.bin", []byte{1}), FolderSongs)
	require.ErrorIs(t, err, apperrors.ErrUpload)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), hits.Load())
}

func TestMediaUpload_ClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := newTestMedia(srv.URL)
	for i := 0; i < 6; i++ {
		_, err := svc.Upload(context.Background(), memUpload("a.bin", []byte{1}), FolderSongs)
		require.ErrorIs(t, err, apperrors.ErrUpload)
	}
	assert.Equal(t, gobreaker.StateClosed, svc.cb.State())
}
