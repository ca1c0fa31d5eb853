package chat

import (
	"context"
	"time"

	"github.com/suPer8Hu/profile-assistant/internal/intent"
)

// EventSink receives chat events. Publishing is best effort.
type EventSink interface {
	Publish(ctx context.Context, e Event) error
}

// Observer is notified of controller activity (metrics).
type Observer interface {
	MessageStored(sender Sender)
	IntentMatched(topic intent.Topic, lang intent.Language)
	RevealFinished(d time.Duration, completed bool)
	HistoryCleared(deleted int64)
	ControllersLive(n int)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) error { return nil }

type nopObserver struct{}

func (nopObserver) MessageStored(Sender) {}
func (nopObserver) IntentMatched(intent.Topic, intent.Language) {}
func (nopObserver) RevealFinished(time.Duration, bool) {}
func (nopObserver) HistoryCleared(int64) {}
func (nopObserver) ControllersLive(int) {}
