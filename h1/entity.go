package h1

import (
	"fmt"
	"io"

	"github.com/vaporio/httpstack/herr"
)

// NoContentType is the sentinel content-type for an entity whose message
// carried none.
const NoContentType = ""

// ChunkExt is one `;name=value` chunk extension (spec §4.1). Value is
// unquoted; Quoted records whether the source used a quoted-string so a
// renderer grounded on the same entity can reproduce it.
type ChunkExt struct {
	Name   string
	Value  string
	Quoted bool
}

// ChunkPart is one unit produced by a ChunkedEntity's reader: either a data
// chunk (Last == false) or the terminal zero-size chunk (Last == true),
// which may itself carry extensions and trailers.
type ChunkPart struct {
	Data     []byte
	Ext      []ChunkExt
	Last     bool
	Trailers Headers
}

// ChunkReader is the lazy, pull-based sequence a ChunkedEntity exposes.
// Next returns io.EOF once the part with Last == true has been returned.
type ChunkReader interface {
	Next() (ChunkPart, error)
}

// Entity is implemented by the four message-body variants in spec §3.
// Every variant claims exactly one content-type, the sentinel empty string
// standing for "no content-type".
type Entity interface {
	ContentType() string
	isEntity()
}

// StrictEntity is a fully materialized body: content-type plus a byte
// buffer. The common case for small, already-in-memory bodies.
type StrictEntity struct {
	Type string
	Body []byte
}

func (e StrictEntity) ContentType() string { return e.Type }
func (StrictEntity) isEntity()             {}

// DefaultEntity is content-type + declared length + a lazy byte sequence.
// The reader MUST produce exactly Declared bytes; short reads are an
// underflow, extra bytes are an overflow, and both are distinct framing
// errors (spec §3, §8).
type DefaultEntity struct {
	Type     string
	Declared int64
	Data     io.Reader
}

func (e DefaultEntity) ContentType() string { return e.Type }
func (DefaultEntity) isEntity()             {}

// CloseDelimitedEntity has no declared length; its end is signalled by the
// transport closing. Forbidden in HTTP/2 (there is no transport close to
// delimit a stream).
type CloseDelimitedEntity struct {
	Type string
	Data io.Reader
}

func (e CloseDelimitedEntity) ContentType() string { return e.Type }
func (CloseDelimitedEntity) isEntity()             {}

// ChunkedEntity is content-type plus a lazy chunk sequence terminated by a
// part with Last == true.
type ChunkedEntity struct {
	Type   string
	Reader ChunkReader
}

func (e ChunkedEntity) ContentType() string { return e.Type }
func (ChunkedEntity) isEntity()             {}

// VerifiedReader wraps r and enforces that exactly n bytes are produced
// before io.EOF, turning under/overflow into distinct *herr.Error framing
// failures instead of a silent truncated or oversized body.
type VerifiedReader struct {
	r    io.Reader
	want int64
	got  int64
	done bool
}

// NewVerifiedReader returns a reader enforcing a declared Content-Length.
func NewVerifiedReader(r io.Reader, declared int64) *VerifiedReader {
	return &VerifiedReader{r: r, want: declared}
}

func (v *VerifiedReader) Read(p []byte) (int, error) {
	if v.done {
		return 0, io.EOF
	}
	remaining := v.want - v.got
	if remaining <= 0 {
		// Already delivered Declared bytes; a source with anything left to
		// give is an overflow rather than a clean end.
		var probe [1]byte
		n, err := v.r.Read(probe[:])
		v.done = true
		if n > 0 {
			return 0, herr.New(herr.Framing, "content-length overflow",
				fmt.Sprintf("declared %d, source has more", v.want), nil)
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		return 0, io.EOF
	}
	// Deliberately do not clamp p to remaining: a Read that returns more
	// than remaining bytes is itself the overflow signal below, rather
	// than being silently truncated to the declared length.
	n, err := v.r.Read(p)
	v.got += int64(n)
	if v.got > v.want {
		v.done = true
		return n, herr.New(herr.Framing, "content-length overflow",
			fmt.Sprintf("declared %d, got %d", v.want, v.got), nil)
	}
	if err == io.EOF {
		v.done = true
		if v.got < v.want {
			return n, herr.New(herr.Framing, "content-length underflow",
				fmt.Sprintf("declared %d, got %d", v.want, v.got), io.ErrUnexpectedEOF)
		}
		return n, io.EOF
	}
	if err != nil {
		return n, err
	}
	if v.got == v.want {
		v.done = true
	}
	return n, nil
}
