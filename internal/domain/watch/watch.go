package watch

import (
	"time"

	"github.com/google/uuid"
)

// Kind selects which prober and which transition semantics apply to a watch.
type Kind string

const (
	KindWebsite Kind = "website"
	KindStream  Kind = "stream"
	KindVideo   Kind = "video"
)

func (k Kind) Valid() bool {
	switch k {
	case KindWebsite, KindStream, KindVideo:
		return true
	}
	return false
}

// Watch is one registered external resource under periodic observation.
//
// Observed state is kind-specific: LastUp for website/stream watches,
// LastItemID for video watches. A nil value means the watch has never been
// successfully probed and the next successful probe establishes the baseline
// without notifying.
type Watch struct {
	ID          string        `json:"id"`
	Kind        Kind          `json:"kind"`
	ResourceKey string        `json:"resource_key"`
	SinkChannel string        `json:"sink_channel"`
	Interval    time.Duration `json:"interval"`

	LastUp     *bool   `json:"last_up,omitempty"`
	LastItemID *string `json:"last_item_id,omitempty"`

	// Extra caches identifiers resolved lazily on first successful probe,
	// e.g. a numeric account id behind a human handle.
	Extra string `json:"extra,omitempty"`

	LastCheckedAt time.Time `json:"last_checked_at"`
	CreatedAt     time.Time `json:"created_at"`

	// Seq is the insertion-order sequence assigned by the store. It doubles
	// as a generation token: a replaced or removed record never shares a Seq
	// with its successor.
	Seq uint64 `json:"seq"`
}

// DeriveID computes the stable watch id for a resource/sink pair.
// Registering the same pair twice yields the same id, so re-adding is an
// idempotent replace rather than a duplicate.
func DeriveID(kind Kind, resourceKey, sinkChannel string) string {
	name := string(kind) + "|" + resourceKey + "|" + sinkChannel
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Observation is the state a prober saw during one poll.
type Observation struct {
	// Up is the reachable/live flag for website and stream watches.
	Up bool `json:"up,omitempty"`
	// StatusCode is the HTTP status behind a website observation, 0 when the
	// probe never got a response.
	StatusCode int `json:"status_code,omitempty"`
	// ItemID identifies the newest item of a video watch.
	ItemID string `json:"item_id,omitempty"`

	Title string `json:"title,omitempty"`
	Link  string `json:"link,omitempty"`
}

// Transition classifies the change between two consecutive observations.
type Transition string

const (
	TransitionNone Transition = ""
	WentDown       Transition = "went_down"
	WentUp         Transition = "went_up"
	WentLive       Transition = "went_live"
	WentOffline    Transition = "went_offline"
	NewItem        Transition = "new_item"
)

// Event is the notification-worthy payload handed to a Notifier,
// at most once per classified transition.
type Event struct {
	Watch       Watch       `json:"watch"`
	Transition  Transition  `json:"transition"`
	Observation Observation `json:"observation"`
	At          time.Time   `json:"at"`
}
