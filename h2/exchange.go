package h2

import "github.com/vaporio/httpstack/h1"

// Exchange is one request/response pair bound to a stream, the h2
// analogue of the teacher's Ctx. The protocol-neutral h1.Request/
// h1.Response types are shared across h1 and h2 so a caller's handler
// code does not need to know which wire framing carried a message.
type Exchange struct {
	StreamID uint32

	Request  *h1.Request
	Response *h1.Response

	// Trailers holds a HEADERS-after-DATA block the peer sent with
	// END_STREAM; h2 supports trailers natively (spec §4.4 Supplemented
	// Features), unlike h1 where only chunked framing carries them.
	Trailers h1.Headers

	done chan error
}

func newExchange(streamID uint32, req *h1.Request) *Exchange {
	return &Exchange{
		StreamID: streamID,
		Request:  req,
		done:     make(chan error, 1),
	}
}

// Wait blocks until the exchange completes (response fully received, or
// the stream/connection failed).
func (e *Exchange) Wait() error {
	return <-e.done
}

func (e *Exchange) finish(err error) {
	select {
	case e.done <- err:
	default:
	}
}
