package h2

import "sync"

// HeaderField is one name/value pair moving through HPACK, either a
// regular header or a pseudo-header (":method", ":path", etc per RFC
// 7540 §8.1.2.3). Acquire one from the pool with AcquireHeaderField.
type HeaderField struct {
	key, value []byte
	sensible   bool
}

var headerFieldPool = sync.Pool{New: func() interface{} { return &HeaderField{} }}

func AcquireHeaderField() *HeaderField {
	return headerFieldPool.Get().(*HeaderField)
}

func ReleaseHeaderField(hf *HeaderField) {
	hf.Reset()
	headerFieldPool.Put(hf)
}

func (hf *HeaderField) Reset() {
	hf.key = hf.key[:0]
	hf.value = hf.value[:0]
	hf.sensible = false
}

func (hf *HeaderField) Empty() bool {
	return len(hf.key) == 0 && len(hf.value) == 0
}

// Size is the RFC 7541 §4.1 dynamic table entry size: name, value, plus
// 32 bytes of accounting overhead.
func (hf *HeaderField) Size() int {
	return len(hf.key) + len(hf.value) + 32
}

func (hf *HeaderField) CopyTo(o *HeaderField) {
	o.key = append(o.key[:0], hf.key...)
	o.value = append(o.value[:0], hf.value...)
	o.sensible = hf.sensible
}

func (hf *HeaderField) Key() string   { return string(hf.key) }
func (hf *HeaderField) Value() string { return string(hf.value) }
func (hf *HeaderField) KeyBytes() []byte   { return hf.key }
func (hf *HeaderField) ValueBytes() []byte { return hf.value }

func (hf *HeaderField) Set(k, v string) {
	hf.key = append(hf.key[:0], k...)
	hf.value = append(hf.value[:0], v...)
}

func (hf *HeaderField) SetBytes(k, v []byte) {
	hf.key = append(hf.key[:0], k...)
	hf.value = append(hf.value[:0], v...)
}

func (hf *HeaderField) SetSensible(v bool) { hf.sensible = v }
func (hf *HeaderField) IsSensible() bool   { return hf.sensible }

// IsPseudo reports whether the field is a pseudo-header, which per RFC
// 7540 §8.1.2.1 must all precede regular headers in a block.
func (hf *HeaderField) IsPseudo() bool {
	return len(hf.key) > 0 && hf.key[0] == ':'
}

func (hf *HeaderField) String() string {
	return hf.Key() + ": " + hf.Value()
}
