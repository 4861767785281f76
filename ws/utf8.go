package ws

import "github.com/vaporio/httpstack/herr"

// utf8Validator checks a byte stream for well-formed UTF-8 incrementally,
// carrying a partial multi-byte sequence across calls so a code point
// split across two WebSocket frames is still validated correctly (spec
// §4.5 / §8 scenario 6). Unpaired surrogate halves (the 3-byte encoding
// of U+D800-U+DFFF, which is itself illegal UTF-8) are rejected by the
// same state machine: their bytes pass the continuation-byte check, and
// the decoded code point is then refused by an explicit range check.
type utf8Validator struct {
	need int    // continuation bytes still expected to complete the current rune
	got  int    // continuation bytes consumed so far for the current rune
	min  rune   // lower bound the accumulated rune must clear (rejects overlong encodings)
	cp   rune   // rune being accumulated
}

func (v *utf8Validator) Write(b []byte) error {
	for _, c := range b {
		if v.need == 0 {
			switch {
			case c&0x80 == 0:
				// ASCII, single byte.
			case c&0xE0 == 0xC0:
				v.need, v.got = 1, 0
				v.cp = rune(c & 0x1F)
				v.min = 0x80
			case c&0xF0 == 0xE0:
				v.need, v.got = 2, 0
				v.cp = rune(c & 0x0F)
				v.min = 0x800
			case c&0xF8 == 0xF0:
				v.need, v.got = 3, 0
				v.cp = rune(c & 0x07)
				v.min = 0x10000
			default:
				return errInvalidUTF8
			}
			continue
		}
		if c&0xC0 != 0x80 {
			return errInvalidUTF8
		}
		v.cp = v.cp<<6 | rune(c&0x3F)
		v.got++
		if v.got == v.need {
			if v.cp < v.min || v.cp > 0x10FFFF || (v.cp >= 0xD800 && v.cp <= 0xDFFF) {
				return errInvalidUTF8
			}
			v.need = 0
		}
	}
	return nil
}

// Done reports whether the validator ended on a complete sequence, i.e.
// the message's final frame left no dangling partial code point.
func (v *utf8Validator) Done() bool { return v.need == 0 }

var errInvalidUTF8 = herr.New(herr.Protocol, "invalid UTF-8 in text message", "", nil)
