package pool

import (
	"strconv"
	"strings"

	"github.com/vaporio/httpstack/h1"
	"github.com/vaporio/httpstack/herr"
)

// resolveID derives the destination PoolID for req: an absolute-form URI
// takes precedence, otherwise the Host header is required (spec §4.6
// "Requests without an absolute URI and no valid Host header fail
// immediately").
func resolveID(req *h1.Request, fingerprint string) (PoolID, error) {
	if req.URI.IsAbsolute() {
		return idFromHostPort(req.URI.Scheme, req.URI.Host, req.URI.Port, fingerprint)
	}
	host, ok := req.Headers.Get("Host")
	if !ok || host == "" {
		return PoolID{}, herr.New(herr.Configuration,
			"request has no absolute URI and no Host header", "", nil)
	}
	scheme := "http"
	h, p := splitHostPort(host)
	return idFromHostPort(scheme, h, p, fingerprint)
}

func idFromHostPort(scheme, host string, port int, fingerprint string) (PoolID, error) {
	if host == "" {
		return PoolID{}, herr.New(herr.Configuration, "empty host", "", nil)
	}
	encrypted := scheme == "https"
	if port == 0 {
		if encrypted {
			port = 443
		} else {
			port = 80
		}
	}
	return PoolID{Host: host, Port: port, Encrypted: encrypted, SettingsFingerprint: fingerprint}, nil
}

func splitHostPort(hostHeader string) (string, int) {
	idx := strings.LastIndexByte(hostHeader, ':')
	if idx < 0 {
		return hostHeader, 0
	}
	// Reject a bare IPv6 literal colon split; hostHeader without brackets
	// and with more than one colon isn't a host:port pair we can parse.
	if strings.Count(hostHeader, ":") > 1 && !strings.HasPrefix(hostHeader, "[") {
		return hostHeader, 0
	}
	port, err := strconv.Atoi(hostHeader[idx+1:])
	if err != nil {
		return hostHeader, 0
	}
	return hostHeader[:idx], port
}
