package h2

import (
	"bytes"

	"golang.org/x/net/http2/hpack"

	"github.com/vaporio/httpstack/herr"
)

// HPACK drives one direction's RFC 7541 compression state, wrapping
// x/net/http2/hpack's table logic so this package never hand-rolls the
// static/dynamic table or the Huffman code.
type HPACK struct {
	enc *hpack.Encoder
	buf bytes.Buffer

	dec *hpack.Decoder

	// pendingTableSize holds a dynamic-table-size-update requested via
	// SetMaxDynamicTableSize before the next header block is encoded, so
	// the update prefixes that block instead of applying immediately.
	pendingTableSize uint32
	tableSizePending bool
}

// NewHPACK builds an HPACK codec with both directions starting at the
// RFC 7541 default dynamic table capacity.
func NewHPACK() *HPACK {
	h := &HPACK{}
	h.enc = hpack.NewEncoder(&h.buf)
	h.dec = hpack.NewDecoder(DefaultHeaderTableSize, nil)
	return h
}

// SetMaxDynamicTableSize queues a table-size-update that the encoder
// applies when it encodes the next field, so the update prefixes that
// header block (spec §9 table sizing). It does not touch the decoder; use
// SetPeerMaxTableSize for that.
func (h *HPACK) SetMaxDynamicTableSize(size uint32) {
	h.pendingTableSize = size
	h.tableSizePending = true
}

// SetPeerMaxTableSize tells the decoder the maximum size the peer's
// encoder may reference; this must track our own advertised
// SETTINGS_HEADER_TABLE_SIZE.
func (h *HPACK) SetPeerMaxTableSize(size uint32) {
	h.dec.SetMaxDynamicTableSize(size)
}

// AppendField encodes hf onto dst and returns the extended slice. store
// is advisory: x/net's encoder decides indexing itself from field size
// and the Sensitive flag (RFC 7541 §6.2.3 never-indexed representation
// for sensible fields), but a false store still skips the dynamic table
// by encoding the field as sensible.
func (h *HPACK) AppendField(dst []byte, hf *HeaderField, store bool) ([]byte, error) {
	if h.tableSizePending {
		h.enc.SetMaxDynamicTableSize(h.pendingTableSize)
		h.tableSizePending = false
	}
	h.buf.Reset()
	f := hpack.HeaderField{
		Name:      hf.Key(),
		Value:     hf.Value(),
		Sensitive: hf.IsSensible() || !store,
	}
	if err := h.enc.WriteField(f); err != nil {
		return dst, herr.New(herr.Hpack, "hpack encode failed", hf.Key(), err)
	}
	return append(dst, h.buf.Bytes()...), nil
}

// Decode parses a full header block into HeaderFields, in emitted order
// (pseudo-headers first per RFC 7540 §8.1.2.1, enforced by the sender).
func (h *HPACK) Decode(block []byte) ([]*HeaderField, error) {
	var out []*HeaderField
	h.dec.SetEmitFunc(func(f hpack.HeaderField) {
		hf := AcquireHeaderField()
		hf.SetBytes([]byte(f.Name), []byte(f.Value))
		hf.SetSensible(f.Sensitive)
		out = append(out, hf)
	})
	if _, err := h.dec.Write(block); err != nil {
		return nil, herr.New(herr.Hpack, "hpack decode failed", "", err)
	}
	if err := h.dec.Close(); err != nil {
		return nil, herr.New(herr.Hpack, "hpack decode failed", "", err)
	}
	return out, nil
}

// ReleaseFields returns every field in fs to the shared pool.
func ReleaseFields(fs []*HeaderField) {
	for _, hf := range fs {
		ReleaseHeaderField(hf)
	}
}
