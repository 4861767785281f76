package h2

import "github.com/vaporio/httpstack/h2/wire"

// Data carries a DATA frame's payload (spec §4.4: consumes flow-control
// credit on both the connection and stream windows).
type Data struct {
	endStream  bool
	hasPadding bool
	b          []byte
}

func (d *Data) Type() FrameType { return FrameData }

func (d *Data) Reset() {
	d.endStream = false
	d.hasPadding = false
	d.b = d.b[:0]
}

func (d *Data) CopyTo(o *Data) {
	o.endStream = d.endStream
	o.hasPadding = d.hasPadding
	o.b = append(o.b[:0], d.b...)
}

func (d *Data) EndStream() bool        { return d.endStream }
func (d *Data) SetEndStream(v bool)    { d.endStream = v }
func (d *Data) Bytes() []byte          { return d.b }
func (d *Data) SetData(b []byte)       { d.b = append(d.b[:0], b...) }
func (d *Data) Padding() bool          { return d.hasPadding }
func (d *Data) SetPadding(v bool)      { d.hasPadding = v }
func (d *Data) Len() int               { return len(d.b) }

func (d *Data) Deserialize(frh *FrameHeader) error {
	payload := frh.payload
	if frh.Flags().Has(FlagPadded) {
		var err error
		payload, err = wire.CutPadding(payload, frh.Len())
		if err != nil {
			return err
		}
	}
	d.endStream = frh.Flags().Has(FlagEndStream)
	d.b = append(d.b[:0], payload...)
	return nil
}

func (d *Data) Serialize(frh *FrameHeader) {
	if d.endStream {
		frh.SetFlags(frh.Flags().Add(FlagEndStream))
	}
	if d.hasPadding {
		frh.SetFlags(frh.Flags().Add(FlagPadded))
		d.b = wire.AddPadding(d.b)
	}
	frh.setPayload(d.b)
}
