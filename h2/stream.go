package h2

import "github.com/vaporio/httpstack/herr"

// StreamState is a node in the RFC 7540 §5.1 stream lifecycle. Unlike the
// teacher's informal idle/open/half-closed/closed ints, transitions are
// checked against an explicit table so an illegal transition (e.g. a
// second HEADERS on an already-Open stream without trailers semantics)
// surfaces as a protocol error instead of silently corrupting state.
type StreamState int8

const (
	StreamIdle StreamState = iota
	StreamReservedLocal
	StreamReservedRemote
	StreamOpen
	StreamHalfClosedLocal
	StreamHalfClosedRemote
	StreamClosed
)

func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamReservedLocal:
		return "reserved (local)"
	case StreamReservedRemote:
		return "reserved (remote)"
	case StreamOpen:
		return "open"
	case StreamHalfClosedLocal:
		return "half-closed (local)"
	case StreamHalfClosedRemote:
		return "half-closed (remote)"
	case StreamClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// streamEvent is one of the events that drive a stream transition, named
// after the frame or action that causes it (RFC 7540 §5.1 figure 2).
type streamEvent int8

const (
	evSendHeaders streamEvent = iota
	evRecvHeaders
	evSendPushPromise
	evRecvPushPromise
	evSendEndStream
	evRecvEndStream
	evSendRstStream
	evRecvRstStream
)

// transitions maps (state, event) to the resulting state. Entries absent
// from the table are illegal and Advance returns a protocol error.
var transitions = map[StreamState]map[streamEvent]StreamState{
	StreamIdle: {
		evSendHeaders:      StreamOpen,
		evRecvHeaders:      StreamOpen,
		evSendPushPromise:  StreamReservedLocal,
		evRecvPushPromise:  StreamReservedRemote,
	},
	StreamReservedLocal: {
		evSendHeaders:  StreamHalfClosedRemote,
		evSendRstStream: StreamClosed,
		evRecvRstStream: StreamClosed,
	},
	StreamReservedRemote: {
		evRecvHeaders:  StreamHalfClosedLocal,
		evSendRstStream: StreamClosed,
		evRecvRstStream: StreamClosed,
	},
	StreamOpen: {
		evSendEndStream: StreamHalfClosedLocal,
		evRecvEndStream: StreamHalfClosedRemote,
		evSendRstStream: StreamClosed,
		evRecvRstStream: StreamClosed,
	},
	StreamHalfClosedLocal: {
		evRecvEndStream: StreamClosed,
		evSendRstStream: StreamClosed,
		evRecvRstStream: StreamClosed,
	},
	StreamHalfClosedRemote: {
		evSendEndStream: StreamClosed,
		evSendRstStream: StreamClosed,
		evRecvRstStream: StreamClosed,
	},
}

// Stream is one HTTP/2 stream: its FSM state, both flow-control windows,
// and the caller-supplied payload (a pending request/response exchange).
type Stream struct {
	id    uint32
	state StreamState

	send *Window
	recv *Window

	data interface{}
}

func NewStream(id uint32, initialWindow int32, data interface{}) *Stream {
	return &Stream{
		id:    id,
		state: StreamIdle,
		send:  NewWindow(initialWindow),
		recv:  NewWindow(initialWindow),
		data:  data,
	}
}

func (s *Stream) ID() uint32            { return s.id }
func (s *Stream) State() StreamState    { return s.state }
func (s *Stream) Data() interface{}     { return s.data }
func (s *Stream) SetData(d interface{}) { s.data = d }

func (s *Stream) SendWindow() *Window { return s.send }
func (s *Stream) RecvWindow() *Window { return s.recv }

// IsClosed reports whether the stream has fully completed (spec §4.4:
// closed streams may still be referenced briefly for flow-control
// accounting, but carry no further frames other than WINDOW_UPDATE/
// RST_STREAM, which the caller should tolerate).
func (s *Stream) IsClosed() bool { return s.state == StreamClosed }

func (s *Stream) advance(ev streamEvent) error {
	next, ok := transitions[s.state][ev]
	if !ok {
		return herr.New(herr.Protocol, "illegal stream state transition", s.state.String(), nil)
	}
	s.state = next
	return nil
}

func (s *Stream) SendHeaders() error      { return s.advance(evSendHeaders) }
func (s *Stream) RecvHeaders() error      { return s.advance(evRecvHeaders) }
func (s *Stream) SendPushPromise() error  { return s.advance(evSendPushPromise) }
func (s *Stream) RecvPushPromise() error  { return s.advance(evRecvPushPromise) }
func (s *Stream) SendEndStream() error    { return s.advance(evSendEndStream) }
func (s *Stream) RecvEndStream() error    { return s.advance(evRecvEndStream) }
func (s *Stream) SendRstStream() error    { return s.advance(evSendRstStream) }
func (s *Stream) RecvRstStream() error    { return s.advance(evRecvRstStream) }
