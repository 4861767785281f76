package h1

import "strings"

// Method is an HTTP request method. The well-known methods are typed
// constants; anything else is a custom method carried verbatim.
type Method string

const (
	GET     Method = "GET"
	HEAD    Method = "HEAD"
	POST    Method = "POST"
	PUT     Method = "PUT"
	DELETE  Method = "DELETE"
	CONNECT Method = "CONNECT"
	OPTIONS Method = "OPTIONS"
	TRACE   Method = "TRACE"
	PATCH   Method = "PATCH"
)

// IsIdempotent reports whether retrying a request with this method on
// transport failure is safe (spec §4.6 retry policy).
func (m Method) IsIdempotent() bool {
	switch m {
	case GET, HEAD, PUT, DELETE, OPTIONS, TRACE:
		return true
	default:
		return false
	}
}

// AttrKey is a typed key into a Request/Response's Attributes side
// channel. Attributes never touch the wire; they exist for out-of-band
// metadata a caller attaches during processing (remote address, TLS
// session info, dropped trailers, ...).
type AttrKey string

// Attributes is the polymorphic per-message side-channel map (spec §3).
type Attributes map[AttrKey]interface{}

// Get returns the attribute and whether it was present.
func (a Attributes) Get(key AttrKey) (interface{}, bool) {
	v, ok := a[key]
	return v, ok
}

// Set stores val under key, allocating the map if necessary, and returns
// the (possibly new) map so it can be reassigned by the caller.
func (a Attributes) Set(key AttrKey, val interface{}) Attributes {
	if a == nil {
		a = Attributes{}
	}
	a[key] = val
	return a
}

const (
	// AttrRemoteAddress carries the peer's network address (server-side)
	// when configured via remote-address-attribute.
	AttrRemoteAddress AttrKey = "remote-address"
	// AttrTLSSession carries TLS session info when
	// include-ssl-session-attribute is enabled.
	AttrTLSSession AttrKey = "tls-session"
	// AttrDroppedTrailers carries HEADERS-as-trailers that arrived after a
	// non-chunked entity and were dropped per spec §4.4 ("logged and
	// dropped, or surfaced as attributes").
	AttrDroppedTrailers AttrKey = "dropped-trailers"
)

// URI is the subset of an absolute or origin-form request target the core
// cares about. Scheme is empty for an origin-form target (path + query
// only, authority coming from the Host header instead).
type URI struct {
	Scheme   string
	Host     string
	Port     int
	Path     string
	Query    string
}

// IsAbsolute reports whether the URI carries its own scheme and host
// rather than relying on a Host header (spec §4.6: submissions without an
// absolute URI and no valid Host header fail immediately).
func (u URI) IsAbsolute() bool {
	return u.Scheme != "" && u.Host != ""
}

func (u URI) String() string {
	var b strings.Builder
	if u.IsAbsolute() {
		b.WriteString(u.Scheme)
		b.WriteString("://")
		b.WriteString(u.Host)
		if u.Port != 0 {
			b.WriteByte(':')
			b.WriteString(itoa(u.Port))
		}
	}
	if u.Path == "" {
		b.WriteByte('/')
	} else {
		b.WriteString(u.Path)
	}
	if u.Query != "" {
		b.WriteByte('?')
		b.WriteString(u.Query)
	}
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Request is an HTTP/1 request in the core's protocol-neutral data model.
type Request struct {
	Method     Method
	URI        URI
	Proto      Protocol
	Headers    Headers
	Entity     Entity
	Attributes Attributes
}

// Response is an HTTP/1 response in the core's protocol-neutral data
// model.
type Response struct {
	Proto      Protocol
	Status     int
	Reason     string
	Headers    Headers
	Entity     Entity
	Attributes Attributes
}

// StatusClass maps a status code to its "N00" class, used for unknown
// status codes without a custom resolver (spec §4.1).
func StatusClass(code int) int {
	return (code / 100) * 100
}

var defaultReasons = map[int]string{
	100: "Continue", 101: "Switching Protocols",
	200: "OK", 201: "Created", 202: "Accepted", 204: "No Content",
	206: "Partial Content",
	300: "Multiple Choices", 301: "Moved Permanently", 302: "Found",
	303: "See Other", 304: "Not Modified", 307: "Temporary Redirect", 308: "Permanent Redirect",
	400: "Bad Request", 401: "Unauthorized", 403: "Forbidden", 404: "Not Found",
	405: "Method Not Allowed", 408: "Request Timeout", 409: "Conflict",
	411: "Length Required", 413: "Payload Too Large", 414: "URI Too Long",
	415: "Unsupported Media Type", 429: "Too Many Requests",
	500: "Internal Server Error", 501: "Not Implemented", 502: "Bad Gateway",
	503: "Service Unavailable", 504: "Gateway Timeout",
}

// ReasonFor returns a default reason phrase for code, or the class reason
// ("OK"-style placeholder for the N00 class) when code itself is unknown.
// A non-nil resolve is consulted first.
func ReasonFor(code int, resolve func(int) (string, bool)) string {
	if resolve != nil {
		if reason, ok := resolve(code); ok {
			return reason
		}
	}
	if reason, ok := defaultReasons[code]; ok {
		return reason
	}
	if reason, ok := defaultReasons[StatusClass(code)]; ok {
		return reason
	}
	return ""
}
