// Package h1 implements HTTP/1.1 message parsing and rendering: start-line
// and header-block framing, the header cache, chunked transfer coding, and
// the Connection-header decision table.
package h1

import "strings"

// Header is one request/response header field. Name is the canonical
// lowercase form used for lookups; Raw preserves the bytes as received (or
// as the application set them) so rendering round-trips casing.
type Header struct {
	Name  string
	Raw   string
	Value string
}

func canon(name string) string {
	return strings.ToLower(name)
}

// NewHeader builds a Header from a raw (as-received or as-set) name.
func NewHeader(raw, value string) Header {
	return Header{Name: canon(raw), Raw: raw, Value: value}
}

// Headers is an ordered sequence of header fields. Order is preserved for
// rendering; lookups are case-insensitive on Name.
type Headers []Header

// Get returns the first value for name, case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	name = canon(name)
	for _, f := range h {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// GetAll returns every value for name in order.
func (h Headers) GetAll(name string) []string {
	name = canon(name)
	var out []string
	for _, f := range h {
		if f.Name == name {
			out = append(out, f.Value)
		}
	}
	return out
}

// Has reports whether any field named name is present.
func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Add appends a header field without removing any existing one.
func (h Headers) Add(raw, value string) Headers {
	return append(h, NewHeader(raw, value))
}

// Set replaces all fields named raw with a single field carrying value.
func (h Headers) Set(raw, value string) Headers {
	name := canon(raw)
	out := h[:0]
	for _, f := range h {
		if f.Name != name {
			out = append(out, f)
		}
	}
	return append(out, NewHeader(raw, value))
}

// Del removes every field named name.
func (h Headers) Del(name string) Headers {
	name = canon(name)
	out := h[:0]
	for _, f := range h {
		if f.Name != name {
			out = append(out, f)
		}
	}
	return out
}

// VisitAll calls fn for every field in order.
func (h Headers) VisitAll(fn func(raw, value string)) {
	for _, f := range h {
		fn(f.Raw, f.Value)
	}
}

// hasCRLF reports whether s contains a bare CR or LF, which must never
// reach the wire (spec §4.1: such headers are suppressed, never rendered).
func hasCRLF(s string) bool {
	return strings.IndexByte(s, '\r') >= 0 || strings.IndexByte(s, '\n') >= 0
}
