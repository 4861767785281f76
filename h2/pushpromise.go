package h2

import "github.com/vaporio/httpstack/h2/wire"

// PushPromise is parsed on the client (servers never receive it; this
// implementation's client always sets SETTINGS_ENABLE_PUSH=0 so peers
// should not send one, but the codec still decodes it defensively).
type PushPromise struct {
	endHeaders bool
	promised   uint32
	rawHeaders []byte
}

func (p *PushPromise) Type() FrameType { return FramePushPromise }

func (p *PushPromise) Reset() {
	p.endHeaders = false
	p.promised = 0
	p.rawHeaders = p.rawHeaders[:0]
}

func (p *PushPromise) CopyTo(o *PushPromise) {
	o.endHeaders = p.endHeaders
	o.promised = p.promised
	o.rawHeaders = append(o.rawHeaders[:0], p.rawHeaders...)
}

func (p *PushPromise) Headers() []byte       { return p.rawHeaders }
func (p *PushPromise) PromisedStreamID() uint32 { return p.promised }
func (p *PushPromise) EndHeaders() bool      { return p.endHeaders }

func (p *PushPromise) Deserialize(frh *FrameHeader) error {
	payload := frh.payload
	if frh.Flags().Has(FlagPadded) {
		var err error
		payload, err = wire.CutPadding(payload, frh.Len())
		if err != nil {
			return err
		}
	}
	if len(payload) < 4 {
		return errMissingBytes
	}
	p.promised = wire.BytesToUint32(payload) & (1<<31 - 1)
	p.rawHeaders = append(p.rawHeaders[:0], payload[4:]...)
	p.endHeaders = frh.Flags().Has(FlagEndHeaders)
	return nil
}

func (p *PushPromise) Serialize(frh *FrameHeader) {
	if p.endHeaders {
		frh.SetFlags(frh.Flags().Add(FlagEndHeaders))
	}
	payload := wire.AppendUint32Bytes(nil, p.promised)
	frh.setPayload(append(payload, p.rawHeaders...))
}
