package h2

import "github.com/vaporio/httpstack/h2/wire"

// RstStream aborts a stream immediately (spec §4.4's {any open} → Closed
// transition on send/recv RST_STREAM).
type RstStream struct {
	code ErrorCode
}

func (r *RstStream) Type() FrameType    { return FrameResetStream }
func (r *RstStream) Reset()             { r.code = 0 }
func (r *RstStream) CopyTo(o *RstStream) { o.code = r.code }
func (r *RstStream) Code() ErrorCode    { return r.code }
func (r *RstStream) SetCode(c ErrorCode) { r.code = c }

func (r *RstStream) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 4 {
		return errMissingBytes
	}
	r.code = ErrorCode(wire.BytesToUint32(frh.payload))
	return nil
}

func (r *RstStream) Serialize(frh *FrameHeader) {
	frh.setPayload(wire.AppendUint32Bytes(nil, uint32(r.code)))
}
