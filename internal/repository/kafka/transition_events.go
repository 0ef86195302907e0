package kafka

import (
	"context"
	"time"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
)

// TransitionEvent is the wire shape of one classified transition.
type TransitionEvent struct {
	WatchID     string    `json:"watch_id"`
	Kind        string    `json:"kind"`
	Transition  string    `json:"transition"`
	ResourceKey string    `json:"resource_key"`
	SinkChannel string    `json:"sink_channel"`
	StatusCode  int       `json:"status_code,omitempty"`
	ItemID      string    `json:"item_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Link        string    `json:"link,omitempty"`
	At          time.Time `json:"at"`
}

// TransitionEventsKafka publishes transition events to a topic, keyed by
// watch id so per-watch ordering survives partitioning.
type TransitionEventsKafka struct {
	p *Producer
}

func NewTransitionEventsKafka(p *Producer) *TransitionEventsKafka {
	return &TransitionEventsKafka{p: p}
}

var _ watch.Notifier = (*TransitionEventsKafka)(nil)

func (e *TransitionEventsKafka) Notify(ctx context.Context, ev watch.Event) error {
	return e.p.PublishJSON(ctx, []byte(ev.Watch.ID), TransitionEvent{
		WatchID:     ev.Watch.ID,
		Kind:        string(ev.Watch.Kind),
		Transition:  string(ev.Transition),
		ResourceKey: ev.Watch.ResourceKey,
		SinkChannel: ev.Watch.SinkChannel,
		StatusCode:  ev.Observation.StatusCode,
		ItemID:      ev.Observation.ItemID,
		Title:       ev.Observation.Title,
		Link:        ev.Observation.Link,
		At:          ev.At,
	})
}
