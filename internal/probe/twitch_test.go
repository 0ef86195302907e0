package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeHelix serves the token endpoint plus /users and /streams lookups.
type fakeHelix struct {
	auth *httptest.Server
	api  *httptest.Server

	tokenRequests atomic.Int64
	userRequests  atomic.Int64

	users map[string]string // login -> user id
	live  map[string]string // user id -> stream title, absent means offline
}

func newFakeHelix(t *testing.T) *fakeHelix {
	t.Helper()
	f := &fakeHelix{
		users: map[string]string{},
		live:  map[string]string{},
	}
	f.auth = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.tokenRequests.Add(1)
		require.NoError(t, r.ParseForm())
		if r.PostFormValue("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-abc",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(f.auth.Close)

	f.api = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/users":
			f.userRequests.Add(1)
			data := []map[string]string{}
			if id, ok := f.users[r.URL.Query().Get("login")]; ok {
				data = append(data, map[string]string{"id": id})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
		case "/streams":
			data := []map[string]string{}
			if title, ok := f.live[r.URL.Query().Get("user_id")]; ok {
				data = append(data, map[string]string{"title": title, "game_name": "IRL"})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.api.Close)
	return f
}

func (f *fakeHelix) prober() *Twitch {
	return NewTwitch(nil, TwitchConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		AuthURL:      f.auth.URL,
		APIURL:       f.api.URL,
	}, zap.NewNop())
}

func TestTwitchProbeLiveAndOffline(t *testing.T) {
	helix := newFakeHelix(t)
	helix.users["somestreamer"] = "12345"
	helix.live["12345"] = "speedrunning all night"

	p := helix.prober()
	ctx := context.Background()

	obs, extra, err := p.Probe(ctx, "SomeStreamer", "")
	require.NoError(t, err)
	assert.True(t, obs.Up)
	assert.Equal(t, "speedrunning all night", obs.Title)
	assert.Equal(t, "https://www.twitch.tv/somestreamer", obs.Link)
	assert.Equal(t, "12345", extra, "resolved user id is handed back for caching")

	delete(helix.live, "12345")
	obs, _, err = p.Probe(ctx, "SomeStreamer", extra)
	require.NoError(t, err)
	assert.False(t, obs.Up)
}

func TestTwitchProbeCachesUserAndToken(t *testing.T) {
	helix := newFakeHelix(t)
	helix.users["somestreamer"] = "12345"

	p := helix.prober()
	ctx := context.Background()

	_, extra, err := p.Probe(ctx, "somestreamer", "")
	require.NoError(t, err)
	_, _, err = p.Probe(ctx, "somestreamer", extra)
	require.NoError(t, err)
	_, _, err = p.Probe(ctx, "somestreamer", extra)
	require.NoError(t, err)

	assert.Equal(t, int64(1), helix.tokenRequests.Load(), "app token is fetched once and reused")
	assert.Equal(t, int64(1), helix.userRequests.Load(), "user id resolves once, then rides the extra field")
}

func TestTwitchProbeUnknownLogin(t *testing.T) {
	helix := newFakeHelix(t)

	p := helix.prober()
	_, _, err := p.Probe(context.Background(), "nobody", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, watch.ErrUnresolved, "unknown login is unresolved, never offline")
}

func TestTwitchProbeTokenFailure(t *testing.T) {
	helix := newFakeHelix(t)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer broken.Close()

	p := NewTwitch(nil, TwitchConfig{
		ClientID: "cid", ClientSecret: "bad",
		AuthURL: broken.URL, APIURL: helix.api.URL,
	}, zap.NewNop())

	_, _, err := p.Probe(context.Background(), "somestreamer", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, watch.ErrUnresolved)
}
