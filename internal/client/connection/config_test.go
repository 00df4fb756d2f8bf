package connection

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestResolvePriority(t *testing.T) {
	origin := mustURL(t, "http://page.example.org:3000/weeks/1")

	tests := []struct {
		name     string
		explicit Settings
		meta     *Settings
		origin   *url.URL
		want     Resolved
	}{
		{
			name:     "explicit wins over metadata",
			explicit: Settings{AppKey: "k1", Host: "ws.example.org", Port: 9000, Scheme: "http"},
			meta:     &Settings{AppKey: "k2", Host: "meta.example.org", Port: 6001, Scheme: "https"},
			origin:   origin,
			want:     Resolved{AppKey: "k1", Host: "ws.example.org", Port: 9000, PortSet: true, OriginHost: "page.example.org"},
		},
		{
			name:   "metadata fills gaps",
			meta:   &Settings{AppKey: "k2", Host: "meta.example.org", Scheme: "https"},
			origin: origin,
			want:   Resolved{AppKey: "k2", Host: "meta.example.org", Port: 443, TLS: true, OriginHost: "page.example.org"},
		},
		{
			name:     "origin is the last resort",
			explicit: Settings{AppKey: "k"},
			origin:   origin,
			want:     Resolved{AppKey: "k", Host: "page.example.org", Port: 8080, OriginHost: "page.example.org"},
		},
		{
			name:     "https origin forces tls",
			explicit: Settings{AppKey: "k", Scheme: "http", Port: 8080},
			origin:   mustURL(t, "https://secure.example.org"),
			want:     Resolved{AppKey: "k", Host: "secure.example.org", Port: 8080, PortSet: true, TLS: true, OriginHost: "secure.example.org"},
		},
		{
			name: "no sources at all",
			want: Resolved{Host: "localhost", Port: 8080},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.explicit, tt.meta, tt.origin))
		})
	}
}

func TestResolveMissingKey(t *testing.T) {
	r := Resolve(Settings{Host: "h"}, &Settings{Port: 1}, nil)
	assert.True(t, r.Missing())
	assert.False(t, Resolve(Settings{AppKey: "k"}, nil, nil).Missing())
}

func TestCandidatesOrder(t *testing.T) {
	r := Resolved{AppKey: "k", Host: "ws.example.org", Port: 8080, PortSet: true, OriginHost: "page.example.org"}
	assert.Equal(t, []Candidate{
		{Host: "ws.example.org", Port: 8080},
		{Host: "page.example.org", Port: 8080},
		{Host: "ws.example.org", Port: 443},
		{Host: "page.example.org", Port: 443},
	}, Candidates(r))
}

func TestCandidatesOrderFromTLSPort(t *testing.T) {
	r := Resolved{AppKey: "k", Host: "h1", Port: 443, PortSet: true, TLS: true, OriginHost: "h2"}
	assert.Equal(t, []Candidate{
		{Host: "h1", Port: 443, TLS: true},
		{Host: "h2", Port: 443, TLS: true},
		{Host: "h1", Port: 8080, TLS: true},
		{Host: "h2", Port: 8080, TLS: true},
	}, Candidates(r))
}

func TestCandidatesWithDefaultPortAddsWellKnownPorts(t *testing.T) {
	r := Resolved{AppKey: "k", Host: "ws.example.org", Port: 443, TLS: true, OriginHost: "ws.example.org"}
	assert.Equal(t, []Candidate{
		{Host: "ws.example.org", Port: 443, TLS: true},
		{Host: "ws.example.org", Port: 8080, TLS: true},
	}, Candidates(r))
}

func TestCandidatesCustomPortHasNoSwap(t *testing.T) {
	r := Resolved{AppKey: "k", Host: "a", Port: 6001, PortSet: true, OriginHost: "b"}
	assert.Equal(t, []Candidate{
		{Host: "a", Port: 6001},
		{Host: "b", Port: 6001},
	}, Candidates(r))
}

func TestCandidatesAreDeterministic(t *testing.T) {
	r := Resolve(Settings{AppKey: "k", Host: "ws.example.org"}, nil, mustURL(t, "http://page.example.org"))
	first := Candidates(r)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, Candidates(r))
	}
	seen := map[Candidate]bool{}
	for _, c := range first {
		require.False(t, seen[c], "duplicate candidate %s", c)
		seen[c] = true
	}
}

func TestCandidateString(t *testing.T) {
	assert.Equal(t, "wss://example.org:443", Candidate{Host: "example.org", Port: 443, TLS: true}.String())
	assert.Equal(t, "ws://[::1]:8080", Candidate{Host: "::1", Port: 8080}.String())
}
