package h2

import "github.com/vaporio/httpstack/h2/wire"

// WindowUpdate replenishes connection-level (stream 0) or stream-level
// flow-control credit (spec §4.4 two-level window accounting).
type WindowUpdate struct {
	increment uint32
}

func (w *WindowUpdate) Type() FrameType { return FrameWindowUpdate }
func (w *WindowUpdate) Reset()          { w.increment = 0 }
func (w *WindowUpdate) CopyTo(o *WindowUpdate) {
	o.increment = w.increment
}
func (w *WindowUpdate) Increment() uint32     { return w.increment }
func (w *WindowUpdate) SetIncrement(v uint32) { w.increment = v & (1<<31 - 1) }

func (w *WindowUpdate) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 4 {
		return errMissingBytes
	}
	w.increment = wire.BytesToUint32(frh.payload) & (1<<31 - 1)
	return nil
}

func (w *WindowUpdate) Serialize(frh *FrameHeader) {
	frh.setPayload(wire.AppendUint32Bytes(nil, w.increment))
}
