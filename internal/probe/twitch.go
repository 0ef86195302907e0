package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
	"github.com/NordCoder/Watchtower/internal/obs/retry"
	"go.uber.org/zap"
)

const (
	defaultTwitchAuthURL = "https://id.twitch.tv/oauth2/token"
	defaultTwitchAPIURL  = "https://api.twitch.tv/helix"

	// Tokens are treated as expired one minute early so a request never
	// departs with a token about to lapse mid-flight.
	tokenExpiryBuffer = time.Minute
)

type TwitchConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	APIURL       string
}

// Twitch resolves a login to its live/offline state through the Helix API.
// The login→user-id resolution happens once and is cached through the
// record's extra field; the app token is cached until shortly before expiry.
type Twitch struct {
	client *http.Client
	cfg    TwitchConfig
	log    *zap.Logger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

var _ watch.Prober = (*Twitch)(nil)

func NewTwitch(client *http.Client, cfg TwitchConfig, log *zap.Logger) *Twitch {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultTwitchAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultTwitchAPIURL
	}
	if log == nil {
		log = zap.L()
	}
	return &Twitch{
		client: client,
		cfg:    cfg,
		log:    log.With(zap.String("component", "probe.twitch")),
	}
}

func (p *Twitch) Probe(ctx context.Context, resourceKey, extra string) (watch.Observation, string, error) {
	login := strings.ToLower(strings.TrimSpace(resourceKey))

	token, err := p.accessToken(ctx)
	if err != nil {
		return watch.Observation{}, extra, fmt.Errorf("twitch token: %w", err)
	}

	userID := extra
	if userID == "" {
		userID, err = p.resolveUser(ctx, token, login)
		if err != nil {
			return watch.Observation{}, extra, err
		}
	}

	var streams struct {
		Data []struct {
			Title    string `json:"title"`
			GameName string `json:"game_name"`
		} `json:"data"`
	}
	if err := p.getJSON(ctx, token, "/streams?user_id="+url.QueryEscape(userID), &streams); err != nil {
		return watch.Observation{}, userID, fmt.Errorf("query streams: %w", err)
	}

	obs := watch.Observation{
		Up:   len(streams.Data) > 0,
		Link: "https://www.twitch.tv/" + login,
	}
	if obs.Up {
		obs.Title = streams.Data[0].Title
	}
	return obs, userID, nil
}

// resolveUser maps a login to its numeric user id. An unknown login is
// ErrUnresolved: a distinct failure, never an "offline" observation.
func (p *Twitch) resolveUser(ctx context.Context, token, login string) (string, error) {
	var users struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := p.getJSON(ctx, token, "/users?login="+url.QueryEscape(login), &users); err != nil {
		return "", fmt.Errorf("resolve user %q: %w", login, err)
	}
	if len(users.Data) == 0 {
		return "", fmt.Errorf("%w: login %q", watch.ErrUnresolved, login)
	}
	return users.Data[0].ID, nil
}

func (p *Twitch) getJSON(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.APIURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Client-ID", p.cfg.ClientID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *Twitch) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.tokenExp) {
		return p.token, nil
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	err := retry.Do(ctx, func() error {
		form := url.Values{
			"client_id":     {p.cfg.ClientID},
			"client_secret": {p.cfg.ClientSecret},
			"grant_type":    {"client_credentials"},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.AuthURL,
			strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("token status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&tok)
	}, retry.Policy{
		Name:     "twitch.token",
		Attempts: 3,
		Backoff:  retry.ExpoJitter{Base: 200 * time.Millisecond, Max: 2 * time.Second, Jitter: 0.2},
	})
	if err != nil {
		return "", err
	}

	p.token = tok.AccessToken
	p.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenExpiryBuffer)
	p.log.Debug("token refreshed", zap.Time("expires", p.tokenExp))
	return p.token, nil
}
