// Package notify holds the notifier implementations behind the engine's
// dispatch: a zap-only sink, Telegram delivery and formatting helpers.
package notify

import (
	"fmt"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
)

// FormatEvent renders the human-facing alert text for one transition.
func FormatEvent(ev watch.Event) string {
	w := ev.Watch
	o := ev.Observation

	switch ev.Transition {
	case watch.WentDown:
		if o.StatusCode > 0 {
			return fmt.Sprintf("🚨 %s is down (HTTP %d)", w.ResourceKey, o.StatusCode)
		}
		return fmt.Sprintf("🚨 %s is down (unreachable)", w.ResourceKey)
	case watch.WentUp:
		return fmt.Sprintf("✅ %s is back online (HTTP %d)", w.ResourceKey, o.StatusCode)
	case watch.WentLive:
		if o.Title != "" {
			return fmt.Sprintf("🔴 %s is live: %s\n%s", w.ResourceKey, o.Title, o.Link)
		}
		return fmt.Sprintf("🔴 %s is live\n%s", w.ResourceKey, o.Link)
	case watch.WentOffline:
		return fmt.Sprintf("⚫ %s went offline", w.ResourceKey)
	case watch.NewItem:
		return fmt.Sprintf("📺 New upload: %s\n%s", o.Title, o.Link)
	}
	return fmt.Sprintf("%s: %s", w.ResourceKey, ev.Transition)
}
