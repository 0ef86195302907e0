// Package probe holds the concrete probers behind each watch kind.
package probe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
	"go.uber.org/zap"
)

// Website reports reachability via a bounded HEAD request. A timeout or
// connection error is a "down" observation, not a probe failure: for a
// website, unreachable is the state being watched.
type Website struct {
	client    *http.Client
	userAgent string
	log       *zap.Logger
}

var _ watch.Prober = (*Website)(nil)

func NewWebsite(client *http.Client, userAgent string, log *zap.Logger) *Website {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.L()
	}
	return &Website{
		client:    client,
		userAgent: userAgent,
		log:       log.With(zap.String("component", "probe.website")),
	}
}

func (p *Website) Probe(ctx context.Context, resourceKey, extra string) (watch.Observation, string, error) {
	url := normalizeURL(resourceKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return watch.Observation{}, extra, err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		// A canceled probe is the caller going away, not an observation of
		// the site. Timeouts and connection failures are "down".
		if errors.Is(err, context.Canceled) {
			return watch.Observation{}, extra, err
		}
		p.log.Debug("unreachable", zap.String("url", url), zap.Error(err))
		return watch.Observation{Up: false}, extra, nil
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	up := code >= 200 && code <= 399
	return watch.Observation{Up: up, StatusCode: code, Link: url}, extra, nil
}

func normalizeURL(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return t
	}
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
		return t
	}
	return "https://" + t
}
