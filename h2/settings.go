package h2

import "github.com/vaporio/httpstack/h2/wire"

// SETTINGS identifiers (RFC 7540 §6.5.2).
const (
	SettingHeaderTableSize      uint16 = 0x1
	SettingEnablePush           uint16 = 0x2
	SettingMaxConcurrentStreams uint16 = 0x3
	SettingInitialWindowSize    uint16 = 0x4
	SettingMaxFrameSize         uint16 = 0x5
	SettingMaxHeaderListSize    uint16 = 0x6
)

const (
	DefaultHeaderTableSize   uint32 = 4096
	DefaultConcurrentStreams uint32 = 100
	DefaultWindowSize        uint32 = 1<<16 - 1
	DefaultMaxFrameSize      uint32 = 1 << 14

	MaxWindowSize = 1<<31 - 1
	MaxFrameSize  = 1<<24 - 1
)

// Settings is both the connection's negotiated parameter set and the
// SETTINGS frame itself: decoding one into a fresh Settings value simply
// overlays the changed parameters (spec §4.4 settings negotiation is a
// running overlay, not a full replacement, per RFC 7540 §6.5).
type Settings struct {
	ack bool

	HeaderTableSize      uint32
	EnablePush           bool
	MaxConcurrentStreams uint32
	InitialWindowSize    uint32
	MaxFrameSize         uint32
	MaxHeaderListSize    uint32

	// changed tracks which parameters this frame instance actually
	// carries, so Apply only overlays what was present on the wire.
	changed uint8
}

const (
	chHeaderTableSize uint8 = 1 << iota
	chEnablePush
	chMaxConcurrentStreams
	chInitialWindowSize
	chMaxFrameSize
	chMaxHeaderListSize
)

// NewDefaultSettings returns the parameter set a fresh connection assumes
// before any SETTINGS frame has been exchanged (RFC 7540 §6.5.2 defaults).
func NewDefaultSettings() *Settings {
	return &Settings{
		HeaderTableSize:      DefaultHeaderTableSize,
		EnablePush:           true,
		MaxConcurrentStreams: DefaultConcurrentStreams,
		InitialWindowSize:    DefaultWindowSize,
		MaxFrameSize:         DefaultMaxFrameSize,
	}
}

func (s *Settings) Type() FrameType { return FrameSettings }

func (s *Settings) Reset() {
	*s = Settings{}
}

func (s *Settings) CopyTo(o *Settings) { *o = *s }

func (s *Settings) Ack() bool     { return s.ack }
func (s *Settings) SetAck(v bool) { s.ack = v }

func (s *Settings) SetHeaderTableSize(v uint32) {
	s.HeaderTableSize = v
	s.changed |= chHeaderTableSize
}
func (s *Settings) SetEnablePush(v bool) {
	s.EnablePush = v
	s.changed |= chEnablePush
}
func (s *Settings) SetMaxConcurrentStreams(v uint32) {
	s.MaxConcurrentStreams = v
	s.changed |= chMaxConcurrentStreams
}
func (s *Settings) SetInitialWindowSize(v uint32) {
	s.InitialWindowSize = v
	s.changed |= chInitialWindowSize
}
func (s *Settings) SetMaxFrameSize(v uint32) {
	s.MaxFrameSize = v
	s.changed |= chMaxFrameSize
}
func (s *Settings) SetMaxHeaderListSize(v uint32) {
	s.MaxHeaderListSize = v
	s.changed |= chMaxHeaderListSize
}

// Apply overlays the parameters delta carries onto the receiver, the
// running negotiated state for the connection.
func (base *Settings) Apply(delta *Settings) {
	if delta.changed&chHeaderTableSize != 0 {
		base.HeaderTableSize = delta.HeaderTableSize
	}
	if delta.changed&chEnablePush != 0 {
		base.EnablePush = delta.EnablePush
	}
	if delta.changed&chMaxConcurrentStreams != 0 {
		base.MaxConcurrentStreams = delta.MaxConcurrentStreams
	}
	if delta.changed&chInitialWindowSize != 0 {
		base.InitialWindowSize = delta.InitialWindowSize
	}
	if delta.changed&chMaxFrameSize != 0 {
		base.MaxFrameSize = delta.MaxFrameSize
	}
	if delta.changed&chMaxHeaderListSize != 0 {
		base.MaxHeaderListSize = delta.MaxHeaderListSize
	}
}

func (s *Settings) Deserialize(frh *FrameHeader) error {
	s.ack = frh.Flags().Has(FlagAck)
	if s.ack {
		return nil
	}
	d := frh.payload
	if len(d)%6 != 0 {
		return errMissingBytes
	}
	for i := 0; i+6 <= len(d); i += 6 {
		key := uint16(d[i])<<8 | uint16(d[i+1])
		value := wire.BytesToUint32(d[i+2 : i+6])
		switch key {
		case SettingHeaderTableSize:
			s.SetHeaderTableSize(value)
		case SettingEnablePush:
			s.SetEnablePush(value != 0)
		case SettingMaxConcurrentStreams:
			s.SetMaxConcurrentStreams(value)
		case SettingInitialWindowSize:
			if value > MaxWindowSize {
				return NewConnError(ErrCodeFlowControl, "initial window size out of range")
			}
			s.SetInitialWindowSize(value)
		case SettingMaxFrameSize:
			if value < DefaultMaxFrameSize || value > MaxFrameSize {
				return NewConnError(ErrCodeProtocol, "max frame size out of range")
			}
			s.SetMaxFrameSize(value)
		case SettingMaxHeaderListSize:
			s.SetMaxHeaderListSize(value)
		}
	}
	return nil
}

func (s *Settings) Serialize(frh *FrameHeader) {
	if s.ack {
		frh.SetFlags(frh.Flags().Add(FlagAck))
		frh.setPayload(nil)
		return
	}
	payload := make([]byte, 0, 36)
	if s.changed&chHeaderTableSize != 0 {
		payload = appendSetting(payload, SettingHeaderTableSize, s.HeaderTableSize)
	}
	if s.changed&chEnablePush != 0 {
		v := uint32(1)
		if !s.EnablePush {
			v = 0
		}
		payload = appendSetting(payload, SettingEnablePush, v)
	}
	if s.changed&chMaxConcurrentStreams != 0 {
		payload = appendSetting(payload, SettingMaxConcurrentStreams, s.MaxConcurrentStreams)
	}
	if s.changed&chInitialWindowSize != 0 {
		payload = appendSetting(payload, SettingInitialWindowSize, s.InitialWindowSize)
	}
	if s.changed&chMaxFrameSize != 0 {
		payload = appendSetting(payload, SettingMaxFrameSize, s.MaxFrameSize)
	}
	if s.changed&chMaxHeaderListSize != 0 {
		payload = appendSetting(payload, SettingMaxHeaderListSize, s.MaxHeaderListSize)
	}
	frh.setPayload(payload)
}

func appendSetting(dst []byte, key uint16, value uint32) []byte {
	dst = append(dst, byte(key>>8), byte(key))
	return wire.AppendUint32Bytes(dst, value)
}
