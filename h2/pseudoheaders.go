package h2

// Pseudo-header field names (RFC 7540 §8.1.2.3). These must precede all
// regular headers in an encoded block and the frame layer treats them as
// opaque HeaderField entries; only the connection driver interprets them.
const (
	PseudoMethod    = ":method"
	PseudoScheme    = ":scheme"
	PseudoAuthority = ":authority"
	PseudoPath      = ":path"
	PseudoStatus    = ":status"
)

const (
	ALPNProto = "h2"
	H2CProto  = "h2c"
)
