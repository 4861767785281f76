package h1

// Protocol is the two HTTP/1 wire versions the Connection-header decision
// table distinguishes between.
type Protocol int

const (
	HTTP10 Protocol = iota
	HTTP11
)

// ConnDirective is the parsed value of a Connection header, or the absence
// of one.
type ConnDirective int

const (
	ConnNone ConnDirective = iota
	ConnKeepAlive
	ConnClose
)

// ParseConnDirective classifies a raw Connection header value. Multiple
// tokens (e.g. "close, Upgrade") are not expected on this header in
// practice; only the keep-alive/close tokens are recognized here.
func ParseConnDirective(raw string) ConnDirective {
	switch canon(raw) {
	case "close":
		return ConnClose
	case "keep-alive":
		return ConnKeepAlive
	default:
		return ConnNone
	}
}

// DecideConnection implements the deterministic Connection-header table
// from spec §4.2/§8: given the request's protocol and Connection header,
// the response's protocol and Connection header, and whether the response
// entity is close-delimited, it returns the Connection value to render
// ("" meaning omit the header) and whether the transport must close after
// this response.
//
// Priority, highest first: a close-delimited entity always forces close
// (there is no other way to signal the entity's end); an explicit close
// from either side forces close; otherwise HTTP/1.0 participants need an
// explicit "keep-alive" to stay open, and HTTP/1.1-to-HTTP/1.1 exchanges
// stay open by default with no header at all.
func DecideConnection(reqProto, resProto Protocol, reqConn, resConn ConnDirective, closeDelimited bool) (value string, closeAfter bool) {
	if closeDelimited {
		return "close", true
	}
	if resConn == ConnClose || reqConn == ConnClose {
		return "close", true
	}

	needsExplicitKeepAlive := reqProto == HTTP10 || resProto == HTTP10
	if !needsExplicitKeepAlive {
		return "", false
	}

	if reqProto == HTTP10 && reqConn != ConnKeepAlive {
		return "close", true
	}
	if resProto == HTTP10 && resConn != ConnKeepAlive {
		return "close", true
	}
	return "keep-alive", false
}
