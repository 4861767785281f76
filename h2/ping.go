package h2

// Ping carries an 8-byte opaque payload echoed back on ACK (spec §4.4
// keep-alive: emit PING, expect PING(ACK) with the same payload within
// ping-timeout or GOAWAY(PROTOCOL_ERROR)).
type Ping struct {
	ack  bool
	data [8]byte
}

func (p *Ping) Type() FrameType { return FramePing }

func (p *Ping) Reset() {
	p.ack = false
	p.data = [8]byte{}
}

func (p *Ping) CopyTo(o *Ping) {
	o.ack = p.ack
	o.data = p.data
}

func (p *Ping) Ack() bool        { return p.ack }
func (p *Ping) SetAck(v bool)    { p.ack = v }
func (p *Ping) Data() []byte     { return p.data[:] }
func (p *Ping) SetData(b []byte) { copy(p.data[:], b) }

func (p *Ping) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 8 {
		return errMissingBytes
	}
	p.ack = frh.Flags().Has(FlagAck)
	copy(p.data[:], frh.payload)
	return nil
}

func (p *Ping) Serialize(frh *FrameHeader) {
	if p.ack {
		frh.SetFlags(frh.Flags().Add(FlagAck))
	}
	frh.setPayload(p.data[:])
}
