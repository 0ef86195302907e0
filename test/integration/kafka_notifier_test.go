//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
	kafkarepo "github.com/NordCoder/Watchtower/internal/repository/kafka"
	"github.com/segmentio/kafka-go"
)

func TestKafkaNotifier_PublishAndConsume(t *testing.T) {
	cfg := LoadCfg()
	WaitTCP(t, "kafka", cfg.KafkaBootstrap, 30*time.Second)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.KafkaBootstrap},
		Topic:       cfg.KafkaTopic,
		GroupID:     "it-watchtower",
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	defer reader.Close()

	producer := kafkarepo.NewProducer([]string{cfg.KafkaBootstrap}, cfg.KafkaTopic)
	defer producer.Close()
	notifier := kafkarepo.NewTransitionEventsKafka(producer)

	w := watch.Watch{
		ID:          watch.DeriveID(watch.KindWebsite, "https://example.test", "it-kafka"),
		Kind:        watch.KindWebsite,
		ResourceKey: "https://example.test",
		SinkChannel: "it-kafka",
	}
	at := time.Now().UTC().Truncate(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := notifier.Notify(ctx, watch.Event{
		Watch:       w,
		Transition:  watch.WentDown,
		Observation: watch.Observation{Up: false, StatusCode: 503},
		At:          at,
	}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			t.Fatalf("read message: %v", err)
		}
		if string(msg.Key) != w.ID {
			continue
		}
		var ev kafkarepo.TransitionEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Transition != string(watch.WentDown) {
			t.Errorf("got transition %q, want %q", ev.Transition, watch.WentDown)
		}
		if ev.StatusCode != 503 {
			t.Errorf("got status %d, want 503", ev.StatusCode)
		}
		if !ev.At.Equal(at) {
			t.Errorf("got at %v, want %v", ev.At, at)
		}
		return
	}
}
