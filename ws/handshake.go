package ws

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"strings"

	"github.com/vaporio/httpstack/h1"
	"github.com/vaporio/httpstack/herr"
)

// acceptGUID is the fixed string RFC 6455 §1.3 appends to the client's
// key before hashing.
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// AcceptKey computes Sec-WebSocket-Accept from a client's
// Sec-WebSocket-Key (spec §6).
func AcceptKey(clientKey string) string {
	h := sha1.New()
	h.Write([]byte(clientKey))
	h.Write([]byte(acceptGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// NewClientKey generates a fresh random 16-byte Sec-WebSocket-Key,
// base64-encoded, for an outgoing handshake request.
func NewClientKey() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b[:]), nil
}

// IsUpgradeRequest reports whether req carries the headers spec §6
// requires of a WebSocket upgrade request.
func IsUpgradeRequest(req *h1.Request) bool {
	upgrade, _ := req.Headers.Get("Upgrade")
	conn, _ := req.Headers.Get("Connection")
	version, _ := req.Headers.Get("Sec-WebSocket-Version")
	key, _ := req.Headers.Get("Sec-WebSocket-Key")
	return strings.EqualFold(upgrade, "websocket") &&
		hasToken(conn, "upgrade") &&
		version == "13" &&
		key != ""
}

func hasToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// Accept builds the server's 101 response headers for req, having
// already verified IsUpgradeRequest(req). protocol is the chosen
// subprotocol (empty if none negotiated).
func Accept(req *h1.Request, protocol string) (*h1.Response, error) {
	key, ok := req.Headers.Get("Sec-WebSocket-Key")
	if !ok {
		return nil, herr.New(herr.Configuration, "missing Sec-WebSocket-Key", "", nil)
	}
	headers := h1.Headers{}
	headers = headers.Add("Upgrade", "websocket")
	headers = headers.Add("Connection", "Upgrade")
	headers = headers.Add("Sec-WebSocket-Accept", AcceptKey(key))
	if protocol != "" {
		headers = headers.Add("Sec-WebSocket-Protocol", protocol)
	}
	return &h1.Response{
		Proto:   h1.HTTP11,
		Status:  101,
		Reason:  "Switching Protocols",
		Headers: headers,
		Entity:  h1.StrictEntity{},
	}, nil
}

// NegotiateProtocol picks the first of offered present in supported, or
// "" if none match (spec §6 optional Sec-WebSocket-Protocol).
func NegotiateProtocol(offered []string, supported []string) string {
	for _, want := range offered {
		for _, have := range supported {
			if want == have {
				return want
			}
		}
	}
	return ""
}

// ValidateServerResponse checks a client's view of the server's 101
// response against the rejection cases spec §6 enumerates: non-101
// status, missing/wrong Accept hash, missing Upgrade, missing Connection
// upgrade, or a subprotocol the client never offered.
func ValidateServerResponse(resp *h1.Response, clientKey string, offeredProtocols []string) error {
	if resp.Status != 101 {
		return herr.New(herr.Protocol, "expected 101 Switching Protocols", resp.Reason, nil)
	}
	upgrade, _ := resp.Headers.Get("Upgrade")
	if !strings.EqualFold(upgrade, "websocket") {
		return herr.New(herr.Protocol, "missing Upgrade: websocket", "", nil)
	}
	conn, _ := resp.Headers.Get("Connection")
	if !hasToken(conn, "upgrade") {
		return herr.New(herr.Protocol, "missing Connection: upgrade", "", nil)
	}
	accept, _ := resp.Headers.Get("Sec-WebSocket-Accept")
	if accept != AcceptKey(clientKey) {
		return herr.New(herr.Protocol, "Sec-WebSocket-Accept mismatch", "", nil)
	}
	if proto, ok := resp.Headers.Get("Sec-WebSocket-Protocol"); ok {
		found := false
		for _, want := range offeredProtocols {
			if want == proto {
				found = true
				break
			}
		}
		if !found {
			return herr.New(herr.Protocol, "server selected unoffered subprotocol", proto, nil)
		}
	}
	return nil
}

// UpgradeRequest builds the client-side HTTP/1.1 request that initiates a
// WebSocket handshake against path on host.
func UpgradeRequest(host, path, key string, protocols []string) *h1.Request {
	headers := h1.Headers{}
	headers = headers.Add("Host", host)
	headers = headers.Add("Upgrade", "websocket")
	headers = headers.Add("Connection", "Upgrade")
	headers = headers.Add("Sec-WebSocket-Key", key)
	headers = headers.Add("Sec-WebSocket-Version", "13")
	if len(protocols) > 0 {
		headers = headers.Add("Sec-WebSocket-Protocol", strings.Join(protocols, ", "))
	}
	return &h1.Request{
		Method:  h1.GET,
		URI:     h1.URI{Path: path},
		Proto:   h1.HTTP11,
		Headers: headers,
		Entity:  h1.StrictEntity{},
	}
}
