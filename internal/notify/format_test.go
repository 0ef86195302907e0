package notify

import (
	"testing"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
	"github.com/google/go-cmp/cmp"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   watch.Event
		want string
	}{
		{
			name: "went down with status",
			ev: watch.Event{
				Watch:       watch.Watch{ResourceKey: "https://example.test"},
				Transition:  watch.WentDown,
				Observation: watch.Observation{StatusCode: 503},
			},
			want: "🚨 https://example.test is down (HTTP 503)",
		},
		{
			name: "went down unreachable",
			ev: watch.Event{
				Watch:      watch.Watch{ResourceKey: "https://example.test"},
				Transition: watch.WentDown,
			},
			want: "🚨 https://example.test is down (unreachable)",
		},
		{
			name: "went up",
			ev: watch.Event{
				Watch:       watch.Watch{ResourceKey: "https://example.test"},
				Transition:  watch.WentUp,
				Observation: watch.Observation{StatusCode: 200},
			},
			want: "✅ https://example.test is back online (HTTP 200)",
		},
		{
			name: "went live with title",
			ev: watch.Event{
				Watch:      watch.Watch{ResourceKey: "somestreamer"},
				Transition: watch.WentLive,
				Observation: watch.Observation{
					Up:    true,
					Title: "speedrun",
					Link:  "https://www.twitch.tv/somestreamer",
				},
			},
			want: "🔴 somestreamer is live: speedrun\nhttps://www.twitch.tv/somestreamer",
		},
		{
			name: "went live without title",
			ev: watch.Event{
				Watch:       watch.Watch{ResourceKey: "somestreamer"},
				Transition:  watch.WentLive,
				Observation: watch.Observation{Up: true, Link: "https://www.twitch.tv/somestreamer"},
			},
			want: "🔴 somestreamer is live\nhttps://www.twitch.tv/somestreamer",
		},
		{
			name: "went offline",
			ev: watch.Event{
				Watch:      watch.Watch{ResourceKey: "somestreamer"},
				Transition: watch.WentOffline,
			},
			want: "⚫ somestreamer went offline",
		},
		{
			name: "new upload",
			ev: watch.Event{
				Watch:      watch.Watch{ResourceKey: "UCabc"},
				Transition: watch.NewItem,
				Observation: watch.Observation{
					ItemID: "dQw4w9WgXcQ",
					Title:  "Newest Upload",
					Link:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
				},
			},
			want: "📺 New upload: Newest Upload\nhttps://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatEvent(tt.ev)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("message mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
