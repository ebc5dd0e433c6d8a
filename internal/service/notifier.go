package service

import "music_stream/internal/domain"

// Notifier delivers events to connected realtime sessions. Delivery is
// fire-and-forget: implementations never block and never report failure.
type Notifier interface {
	PublishTo(userID string, event domain.Event)
	Broadcast(event domain.Event)
}

// NopNotifier is used when clients discover changes by polling.
type NopNotifier struct{}

func (NopNotifier) PublishTo(string, domain.Event) {}

func (NopNotifier) Broadcast(domain.Event) {}
