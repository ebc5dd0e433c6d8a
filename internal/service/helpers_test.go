package service

import (
	"bytes"
	"context"
	"io"
	"sync"

	"music_stream/internal/domain"
)

type sentEvent struct {
	to    string // empty for broadcasts
	event domain.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) PublishTo(userID string, event domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{to: userID, event: event})
}

func (n *recordingNotifier) Broadcast(event domain.Event) {
	n.PublishTo("", event)
}

func (n *recordingNotifier) ofType(eventType string) []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentEvent
	for _, e := range n.events {
		if e.event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeMedia struct {
	mu      sync.Mutex
	calls   []string
	err     error
	urlBase string
}

func (m *fakeMedia) Upload(_ context.Context, file *Upload, folder string) (*UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, folder+"/"+file.Name)
	if m.err != nil {
		return nil, m.err
	}
	base := m.urlBase
	if base == "" {
		base = "https://media.example/"
	}
	return &UploadResult{URL: base + folder + "/" + file.Name, MimeType: "application/octet-stream", Name: file.Name}, nil
}

func (m *fakeMedia) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func memUpload(name string, content []byte) *Upload {
	return &Upload{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(content)), nil },
	}
}

// sizedUpload reports size without holding the bytes.
func sizedUpload(name string, size int64) *Upload {
	return &Upload{
		Name: name,
		Size: size,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(nil)), nil },
	}
}
