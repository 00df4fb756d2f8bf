package connection

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultTLSPort   = 443
	DefaultPlainPort = 8080
)

// Settings is one source of transport configuration. Zero fields are unset.
type Settings struct {
	AppKey string `json:"key"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Scheme string `json:"scheme"`
}

// Resolved is the merged configuration the candidate list is built from.
type Resolved struct {
	AppKey string
	Host   string
	Port   int
	TLS    bool
	// PortSet is true when Port came from a source rather than the default.
	PortSet bool
	// OriginHost is the hostname of the page the client was loaded from.
	OriginHost string
}

// Missing reports whether the transport cannot be configured at all.
func (r Resolved) Missing() bool {
	return strings.TrimSpace(r.AppKey) == ""
}

// Resolve merges explicit settings over server metadata over the origin.
// metadata may be nil. An https origin always forces TLS since a secure
// page cannot open plain sockets.
func Resolve(explicit Settings, metadata *Settings, origin *url.URL) Resolved {
	var meta Settings
	if metadata != nil {
		meta = *metadata
	}
	originHost, originScheme := "", ""
	if origin != nil {
		originHost = origin.Hostname()
		originScheme = strings.ToLower(origin.Scheme)
	}

	out := Resolved{
		AppKey:     first(explicit.AppKey, meta.AppKey),
		Host:       first(explicit.Host, meta.Host, originHost, "localhost"),
		OriginHost: originHost,
	}

	scheme := first(strings.ToLower(explicit.Scheme), strings.ToLower(meta.Scheme), originScheme, "http")
	if originScheme == "https" {
		scheme = "https"
	}
	out.TLS = scheme == "https" || scheme == "wss"

	switch {
	case explicit.Port > 0:
		out.Port, out.PortSet = explicit.Port, true
	case meta.Port > 0:
		out.Port, out.PortSet = meta.Port, true
	case out.TLS:
		out.Port = DefaultTLSPort
	default:
		out.Port = DefaultPlainPort
	}
	return out
}

// Candidate is one endpoint the manager may dial.
type Candidate struct {
	Host string
	Port int
	TLS  bool
}

func (c Candidate) Address() string {
	host := c.Host
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	return host + ":" + strconv.Itoa(c.Port)
}

func (c Candidate) String() string {
	if c.TLS {
		return "wss://" + c.Address()
	}
	return "ws://" + c.Address()
}

func first(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
