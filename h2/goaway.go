package h2

import "github.com/vaporio/httpstack/h2/wire"

// GoAway signals the sender will no longer open or accept streams above
// LastStreamID; streams above it are safe to retry elsewhere (spec §4.4
// graceful shutdown).
type GoAway struct {
	stream uint32
	code   ErrorCode
	data   []byte
}

func (g *GoAway) Type() FrameType { return FrameGoAway }

func (g *GoAway) Reset() {
	g.stream = 0
	g.code = 0
	g.data = g.data[:0]
}

func (g *GoAway) CopyTo(o *GoAway) {
	o.stream = g.stream
	o.code = g.code
	o.data = append(o.data[:0], g.data...)
}

func (g *GoAway) LastStreamID() uint32     { return g.stream }
func (g *GoAway) SetLastStreamID(s uint32) { g.stream = s & (1<<31 - 1) }
func (g *GoAway) Code() ErrorCode          { return g.code }
func (g *GoAway) SetCode(c ErrorCode)      { g.code = c }
func (g *GoAway) DebugData() []byte        { return g.data }
func (g *GoAway) SetDebugData(b []byte)    { g.data = append(g.data[:0], b...) }

func (g *GoAway) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 8 {
		return errMissingBytes
	}
	g.stream = wire.BytesToUint32(frh.payload) & (1<<31 - 1)
	g.code = ErrorCode(wire.BytesToUint32(frh.payload[4:]))
	g.data = append(g.data[:0], frh.payload[8:]...)
	return nil
}

func (g *GoAway) Serialize(frh *FrameHeader) {
	payload := wire.AppendUint32Bytes(nil, g.stream)
	payload = wire.AppendUint32Bytes(payload, uint32(g.code))
	payload = append(payload, g.data...)
	frh.setPayload(payload)
}
