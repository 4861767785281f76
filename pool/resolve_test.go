package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaporio/httpstack/h1"
)

func TestResolveIDFromAbsoluteURI(t *testing.T) {
	req := &h1.Request{
		Method: h1.GET,
		URI:    h1.URI{Scheme: "https", Host: "example.com", Port: 8443},
	}
	id, err := resolveID(req, "")
	require.NoError(t, err)
	assert.Equal(t, PoolID{Host: "example.com", Port: 8443, Encrypted: true}, id)
}

func TestResolveIDFromHostHeader(t *testing.T) {
	req := &h1.Request{
		Method:  h1.GET,
		URI:     h1.URI{Path: "/"},
		Headers: h1.Headers{}.Add("Host", "example.com:9090"),
	}
	id, err := resolveID(req, "")
	require.NoError(t, err)
	assert.Equal(t, PoolID{Host: "example.com", Port: 9090, Encrypted: false}, id)
}

func TestResolveIDDefaultsPortByScheme(t *testing.T) {
	req := &h1.Request{
		Method: h1.GET,
		URI:    h1.URI{Scheme: "https", Host: "example.com"},
	}
	id, err := resolveID(req, "")
	require.NoError(t, err)
	assert.Equal(t, 443, id.Port)
}

func TestResolveIDFailsWithoutAbsoluteURIOrHost(t *testing.T) {
	req := &h1.Request{Method: h1.GET, URI: h1.URI{Path: "/"}}
	_, err := resolveID(req, "")
	assert.Error(t, err)
}

func TestResolveIDIncludesFingerprint(t *testing.T) {
	req := &h1.Request{
		Method: h1.GET,
		URI:    h1.URI{Scheme: "http", Host: "example.com"},
	}
	id, err := resolveID(req, "fp1")
	require.NoError(t, err)
	assert.Equal(t, "fp1", id.SettingsFingerprint)
	assert.Contains(t, id.String(), "fp1")
}
