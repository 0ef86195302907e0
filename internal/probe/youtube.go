package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const defaultYouTubeFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id="

// maxFeedBody bounds how much feed XML is read per poll.
const maxFeedBody = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// YouTube observes a channel's newest upload through its Atom feed; the
// feed needs no API key or quota. The channel title is cached through the
// record's extra field after the first successful poll.
type YouTube struct {
	client    HTTPClient
	feedURL   string
	userAgent string
	log       *zap.Logger
}

var _ watch.Prober = (*YouTube)(nil)

func NewYouTube(client HTTPClient, userAgent string, log *zap.Logger) *YouTube {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.L()
	}
	return &YouTube{
		client:    client,
		feedURL:   defaultYouTubeFeedURL,
		userAgent: userAgent,
		log:       log.With(zap.String("component", "probe.youtube")),
	}
}

// WithFeedURL overrides the feed base URL (useful for testing).
func (p *YouTube) WithFeedURL(base string) *YouTube {
	cp := *p
	cp.feedURL = base
	return &cp
}

func (p *YouTube) Probe(ctx context.Context, resourceKey, extra string) (watch.Observation, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL+resourceKey, nil)
	if err != nil {
		return watch.Observation{}, extra, fmt.Errorf("create request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return watch.Observation{}, extra, fmt.Errorf("fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return watch.Observation{}, extra, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return watch.Observation{}, extra, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return watch.Observation{}, extra, fmt.Errorf("parse feed: %w", err)
	}
	if len(feed.Items) == 0 {
		return watch.Observation{}, extra, fmt.Errorf("feed for channel %s has no entries", resourceKey)
	}

	item := feed.Items[0]
	obs := watch.Observation{
		ItemID: videoID(item),
		Title:  item.Title,
		Link:   item.Link,
	}
	if extra == "" {
		extra = feed.Title
	}
	return obs, extra, nil
}

// videoID extracts the bare video id from an Atom entry. YouTube entry ids
// look like "yt:video:VIDEOID".
func videoID(item *gofeed.Item) string {
	id := item.GUID
	if strings.HasPrefix(id, "yt:video:") {
		return strings.TrimPrefix(id, "yt:video:")
	}
	return id
}
