package h2

import "github.com/vaporio/httpstack/h2/wire"

// Headers carries a HEADERS frame: an HPACK-compressed header-block
// fragment, optionally preceded by a PRIORITY payload (spec §4.3/§4.4).
// rawHeaders accumulates fragments across CONTINUATION frames until
// EndHeaders is set.
type Headers struct {
	hasPadding bool
	priority   bool
	stream     uint32
	weight     uint8
	endStream  bool
	endHeaders bool
	rawHeaders []byte
}

func (h *Headers) Type() FrameType { return FrameHeaders }

func (h *Headers) Reset() {
	h.hasPadding = false
	h.priority = false
	h.stream = 0
	h.weight = 0
	h.endStream = false
	h.endHeaders = false
	h.rawHeaders = h.rawHeaders[:0]
}

func (h *Headers) CopyTo(o *Headers) {
	o.hasPadding = h.hasPadding
	o.priority = h.priority
	o.stream = h.stream
	o.weight = h.weight
	o.endStream = h.endStream
	o.endHeaders = h.endHeaders
	o.rawHeaders = append(o.rawHeaders[:0], h.rawHeaders...)
}

func (h *Headers) Headers() []byte     { return h.rawHeaders }
func (h *Headers) SetHeaders(b []byte) { h.rawHeaders = append(h.rawHeaders[:0], b...) }
func (h *Headers) AppendRawHeaders(b []byte) {
	h.rawHeaders = append(h.rawHeaders, b...)
}

// AppendHeaderField encodes hf through enc (optionally indexing it into
// the dynamic table) and appends the bytes to the header-block fragment.
func (h *Headers) AppendHeaderField(enc *HPACK, hf *HeaderField, store bool) error {
	b, err := enc.AppendField(h.rawHeaders, hf, store)
	if err != nil {
		return err
	}
	h.rawHeaders = b
	return nil
}

func (h *Headers) EndStream() bool     { return h.endStream }
func (h *Headers) SetEndStream(v bool) { h.endStream = v }
func (h *Headers) EndHeaders() bool    { return h.endHeaders }
func (h *Headers) SetEndHeaders(v bool) { h.endHeaders = v }
func (h *Headers) Stream() uint32      { return h.stream }
func (h *Headers) SetStream(id uint32) { h.stream = id }
func (h *Headers) Weight() byte        { return h.weight }
func (h *Headers) SetWeight(w byte)    { h.weight = w; h.priority = true }

func (h *Headers) Deserialize(frh *FrameHeader) error {
	flags := frh.Flags()
	payload := frh.payload

	if flags.Has(FlagPadded) {
		var err error
		payload, err = wire.CutPadding(payload, len(payload))
		if err != nil {
			return err
		}
	}

	if flags.Has(FlagPriority) {
		if len(payload) < 5 {
			return errMissingBytes
		}
		h.priority = true
		h.stream = wire.BytesToUint32(payload) & (1<<31 - 1)
		h.weight = payload[4]
		payload = payload[5:]
	}

	h.endStream = flags.Has(FlagEndStream)
	h.endHeaders = flags.Has(FlagEndHeaders)
	h.rawHeaders = append(h.rawHeaders[:0], payload...)
	return nil
}

func (h *Headers) Serialize(frh *FrameHeader) {
	if h.endStream {
		frh.SetFlags(frh.Flags().Add(FlagEndStream))
	}
	if h.endHeaders {
		frh.SetFlags(frh.Flags().Add(FlagEndHeaders))
	}

	payload := h.rawHeaders
	if h.priority {
		frh.SetFlags(frh.Flags().Add(FlagPriority))
		prefix := make([]byte, 5)
		wire.Uint32ToBytes(prefix, h.stream)
		prefix[4] = h.weight
		payload = append(prefix, payload...)
	}
	if h.hasPadding {
		frh.SetFlags(frh.Flags().Add(FlagPadded))
		payload = wire.AddPadding(payload)
	}
	frh.setPayload(payload)
}
