package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaporio/httpstack/h1"
)

func TestAcceptKeyKnownVector(t *testing.T) {
	// RFC 6455 §1.3 worked example.
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", AcceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

func TestIsUpgradeRequest(t *testing.T) {
	key, err := NewClientKey()
	require.NoError(t, err)
	req := UpgradeRequest("example.com", "/chat", key, nil)
	assert.True(t, IsUpgradeRequest(req))

	plain := &h1.Request{Method: h1.GET, URI: h1.URI{Path: "/"}, Proto: h1.HTTP11}
	assert.False(t, IsUpgradeRequest(plain))
}

func TestAcceptAndValidateRoundTrip(t *testing.T) {
	key, err := NewClientKey()
	require.NoError(t, err)
	req := UpgradeRequest("example.com", "/chat", key, []string{"chat.v1"})

	resp, err := Accept(req, "chat.v1")
	require.NoError(t, err)
	assert.Equal(t, 101, resp.Status)

	err = ValidateServerResponse(resp, key, []string{"chat.v1"})
	assert.NoError(t, err)
}

func TestValidateServerResponseRejectsUnofferedProtocol(t *testing.T) {
	key, err := NewClientKey()
	require.NoError(t, err)
	req := UpgradeRequest("example.com", "/chat", key, nil)
	resp, err := Accept(req, "chat.v1")
	require.NoError(t, err)

	err = ValidateServerResponse(resp, key, []string{"other"})
	assert.Error(t, err)
}

func TestValidateServerResponseRejectsBadAccept(t *testing.T) {
	key, err := NewClientKey()
	require.NoError(t, err)
	req := UpgradeRequest("example.com", "/chat", key, nil)
	resp, err := Accept(req, "")
	require.NoError(t, err)

	err = ValidateServerResponse(resp, "some-other-key", nil)
	assert.Error(t, err)
}

func TestNegotiateProtocol(t *testing.T) {
	assert.Equal(t, "chat.v2", NegotiateProtocol([]string{"chat.v2", "chat.v1"}, []string{"chat.v1", "chat.v2"}))
	assert.Equal(t, "", NegotiateProtocol([]string{"chat.v9"}, []string{"chat.v1"}))
}
