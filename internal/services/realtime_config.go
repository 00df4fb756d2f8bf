package services

import (
	"net"
	"slices"
	"strings"
)

// bindHosts are listen addresses that a browser can never connect to.
var bindHosts = []string{"0.0.0.0", "127.0.0.1", "::", "::1", "localhost"}

// RealtimeConfig is the public connection info for the broadcast transport.
// Zero values mean "derive from the request".
type RealtimeConfig struct {
	AppKey string
	Host   string
	Port   int
	Scheme string
}

// RealtimeMetadata is served to clients so they can locate the transport
// behind proxies and tunnels.
type RealtimeMetadata struct {
	Key    string `json:"key"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Scheme string `json:"scheme"`
}

// Reflect fills the gaps in c from the inbound request. A configured bind
// address is replaced by the request host.
func (c RealtimeConfig) Reflect(requestHost, requestScheme string) RealtimeMetadata {
	reqHost := requestHost
	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		reqHost = h
	}
	host := strings.TrimSpace(c.Host)
	if host == "" || slices.Contains(bindHosts, host) {
		host = reqHost
	}
	scheme := strings.ToLower(strings.TrimSpace(c.Scheme))
	if scheme == "" {
		scheme = strings.ToLower(requestScheme)
	}
	if scheme == "" {
		scheme = "http"
	}
	return RealtimeMetadata{Key: c.AppKey, Host: host, Port: c.Port, Scheme: scheme}
}

// KeyMatches reports whether key may open a socket. An unset app key
// accepts any client.
func (c RealtimeConfig) KeyMatches(key string) bool {
	return c.AppKey == "" || key == c.AppKey
}
