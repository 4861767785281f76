package h2

import "github.com/vaporio/httpstack/h2/wire"

// Priority carries stream-dependency/weight hints. The core parses and
// emits these frames but does not implement priority-based scheduling
// (spec §4.4's multiplexer round-robins fairly, ignoring weight).
type Priority struct {
	dependsOn uint32
	weight    byte
}

func (p *Priority) Type() FrameType { return FramePriority }

func (p *Priority) Reset() {
	p.dependsOn = 0
	p.weight = 0
}

func (p *Priority) CopyTo(o *Priority) {
	o.dependsOn = p.dependsOn
	o.weight = p.weight
}

func (p *Priority) DependsOn() uint32  { return p.dependsOn }
func (p *Priority) SetDependsOn(s uint32) { p.dependsOn = s & (1<<31 - 1) }
func (p *Priority) Weight() byte      { return p.weight }
func (p *Priority) SetWeight(w byte)  { p.weight = w }

func (p *Priority) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 5 {
		return errMissingBytes
	}
	p.dependsOn = wire.BytesToUint32(frh.payload) & (1<<31 - 1)
	p.weight = frh.payload[4]
	return nil
}

func (p *Priority) Serialize(frh *FrameHeader) {
	payload := wire.AppendUint32Bytes(frh.payload[:0], p.dependsOn)
	frh.setPayload(append(payload, p.weight))
}
