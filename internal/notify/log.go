package notify

import (
	"context"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
	"go.uber.org/zap"
)

// Log is the default sink: transitions land in the structured log only.
type Log struct {
	log *zap.Logger
}

var _ watch.Notifier = (*Log)(nil)

func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.L()
	}
	return &Log{log: log.With(zap.String("component", "notify.log"))}
}

func (n *Log) Notify(_ context.Context, ev watch.Event) error {
	n.log.Info("transition",
		zap.String("watch_id", ev.Watch.ID),
		zap.String("kind", string(ev.Watch.Kind)),
		zap.String("transition", string(ev.Transition)),
		zap.String("sink", ev.Watch.SinkChannel),
		zap.String("text", FormatEvent(ev)),
	)
	return nil
}
