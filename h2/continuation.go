package h2

// Continuation carries a header-block fragment that follows a HEADERS or
// PUSH_PROMISE frame without END_HEADERS (spec §4.3).
type Continuation struct {
	endHeaders bool
	rawHeaders []byte
}

func (c *Continuation) Type() FrameType { return FrameContinuation }

func (c *Continuation) Reset() {
	c.endHeaders = false
	c.rawHeaders = c.rawHeaders[:0]
}

func (c *Continuation) CopyTo(o *Continuation) {
	o.endHeaders = c.endHeaders
	o.rawHeaders = append(o.rawHeaders[:0], c.rawHeaders...)
}

func (c *Continuation) Headers() []byte     { return c.rawHeaders }
func (c *Continuation) SetEndHeaders(v bool) { c.endHeaders = v }
func (c *Continuation) EndHeaders() bool     { return c.endHeaders }
func (c *Continuation) SetHeader(b []byte)   { c.rawHeaders = append(c.rawHeaders[:0], b...) }
func (c *Continuation) AppendHeader(b []byte) {
	c.rawHeaders = append(c.rawHeaders, b...)
}

func (c *Continuation) Deserialize(frh *FrameHeader) error {
	c.endHeaders = frh.Flags().Has(FlagEndHeaders)
	c.SetHeader(frh.payload)
	return nil
}

func (c *Continuation) Serialize(frh *FrameHeader) {
	if c.endHeaders {
		frh.SetFlags(frh.Flags().Add(FlagEndHeaders))
	}
	frh.setPayload(c.rawHeaders)
}
