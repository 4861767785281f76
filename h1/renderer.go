package h1

import (
	"bufio"
	"bytes"
	"strconv"

	"github.com/vaporio/httpstack/herr"
)

// RenderOpts carries the per-response context the Connection-header table
// and Date/Server insertion need, beyond what's in the Response itself.
type RenderOpts struct {
	ReqProto      Protocol
	ReqConnHeader ConnDirective
	HeadRequest   bool
	ServerHeader  string // inserted if non-empty and not already set
}

// RenderResponse writes res to bw applying spec §4.2: Connection-header
// derivation, Date insertion, transfer framing per entity variant, and
// HEAD body suppression. It returns whether the transport must close after
// this response completes.
func RenderResponse(bw *bufio.Writer, res *Response, opts RenderOpts) (closeAfter bool, err error) {
	resConn := ConnNone
	if v, ok := res.Headers.Get("connection"); ok {
		resConn = ParseConnDirective(v)
	}

	_, closeDelimited := res.Entity.(CloseDelimitedEntity)
	if res.Proto == HTTP10 {
		if _, chunked := res.Entity.(ChunkedEntity); chunked {
			// spec §4.2: chunked on HTTP/1.0 degrades to close-delimited.
			closeDelimited = true
		}
	}

	connValue, closeAfter := DecideConnection(opts.ReqProto, res.Proto, opts.ReqConnHeader, resConn, closeDelimited)

	protoStr := "HTTP/1.1"
	if res.Proto == HTTP10 {
		protoStr = "HTTP/1.0"
	}
	reason := res.Reason
	if reason == "" {
		reason = ReasonFor(res.Status, nil)
	}
	if _, err := bw.WriteString(protoStr + " " + strconv.Itoa(res.Status) + " " + reason + "\r\n"); err != nil {
		return false, err
	}

	if _, ok := res.Headers.Get("date"); !ok {
		if err := writeHeaderLine(bw, "Date", SharedDate()); err != nil {
			return false, err
		}
	}
	if opts.ServerHeader != "" {
		if _, ok := res.Headers.Get("server"); !ok {
			if err := writeHeaderLine(bw, "Server", opts.ServerHeader); err != nil {
				return false, err
			}
		}
	}
	if connValue != "" {
		if err := writeHeaderLine(bw, "Connection", connValue); err != nil {
			return false, err
		}
	}

	res.Headers.VisitAll(func(raw, value string) {
		if hasCRLF(raw) || hasCRLF(value) {
			return
		}
		_ = writeHeaderLine(bw, raw, value)
	})

	suppressBody := opts.HeadRequest

	switch e := res.Entity.(type) {
	case StrictEntity:
		if err := writeHeaderLine(bw, "Content-Length", strconv.Itoa(len(e.Body))); err != nil {
			return false, err
		}
		if _, err := bw.WriteString("\r\n"); err != nil {
			return false, err
		}
		if !suppressBody {
			if _, err := bw.Write(e.Body); err != nil {
				return false, err
			}
		}

	case DefaultEntity:
		if err := writeHeaderLine(bw, "Content-Length", strconv.FormatInt(e.Declared, 10)); err != nil {
			return false, err
		}
		if _, err := bw.WriteString("\r\n"); err != nil {
			return false, err
		}
		if !suppressBody {
			n, err := copyVerified(bw, e.Data, e.Declared)
			if err != nil {
				return false, err
			}
			if n != e.Declared {
				return false, herr.Framingf("declared %d bytes, wrote %d", e.Declared, n)
			}
		}

	case CloseDelimitedEntity:
		if _, err := bw.WriteString("\r\n"); err != nil {
			return false, err
		}
		if !suppressBody {
			if _, err := bw.ReadFrom(e.Data); err != nil {
				return false, err
			}
		}
		closeAfter = true

	case ChunkedEntity:
		if res.Proto == HTTP10 {
			// degraded above: render as close-delimited, no framing header.
			if _, err := bw.WriteString("\r\n"); err != nil {
				return false, err
			}
			if !suppressBody {
				for {
					part, err := e.Reader.Next()
					if err != nil {
						return false, herr.New(herr.Framing, "chunk source failed", "", err)
					}
					if part.Last {
						break
					}
					if _, err := bw.Write(part.Data); err != nil {
						return false, err
					}
				}
			}
			closeAfter = true
			break
		}
		if err := writeHeaderLine(bw, "Transfer-Encoding", "chunked"); err != nil {
			return false, err
		}
		if _, err := bw.WriteString("\r\n"); err != nil {
			return false, err
		}
		if !suppressBody {
			if err := renderChunkedBody(bw, e.Reader); err != nil {
				return false, err
			}
		}
	}

	return closeAfter, bw.Flush()
}

// RenderRequest writes req to bw. Requests never degrade chunked framing
// and are never close-delimited (spec: "for requests without framing,
// body is empty").
func RenderRequest(bw *bufio.Writer, req *Request) error {
	protoStr := "HTTP/1.1"
	if req.Proto == HTTP10 {
		protoStr = "HTTP/1.0"
	}
	target := req.URI.String()
	if _, err := bw.WriteString(string(req.Method) + " " + target + " " + protoStr + "\r\n"); err != nil {
		return err
	}

	req.Headers.VisitAll(func(raw, value string) {
		if hasCRLF(raw) || hasCRLF(value) {
			return
		}
		_ = writeHeaderLine(bw, raw, value)
	})

	switch e := req.Entity.(type) {
	case StrictEntity:
		if len(e.Body) > 0 {
			if err := writeHeaderLine(bw, "Content-Length", strconv.Itoa(len(e.Body))); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\r\n"); err != nil {
			return err
		}
		if _, err := bw.Write(e.Body); err != nil {
			return err
		}
	case DefaultEntity:
		if err := writeHeaderLine(bw, "Content-Length", strconv.FormatInt(e.Declared, 10)); err != nil {
			return err
		}
		if _, err := bw.WriteString("\r\n"); err != nil {
			return err
		}
		n, err := copyVerified(bw, e.Data, e.Declared)
		if err != nil {
			return err
		}
		if n != e.Declared {
			return herr.Framingf("declared %d bytes, wrote %d", e.Declared, n)
		}
	case ChunkedEntity:
		if err := writeHeaderLine(bw, "Transfer-Encoding", "chunked"); err != nil {
			return err
		}
		if _, err := bw.WriteString("\r\n"); err != nil {
			return err
		}
		if err := renderChunkedBody(bw, e.Reader); err != nil {
			return err
		}
	default:
		if _, err := bw.WriteString("\r\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeHeaderLine(bw *bufio.Writer, name, value string) error {
	if _, err := bw.WriteString(name); err != nil {
		return err
	}
	if _, err := bw.WriteString(": "); err != nil {
		return err
	}
	if _, err := bw.WriteString(value); err != nil {
		return err
	}
	_, err := bw.WriteString("\r\n")
	return err
}

// copyVerified copies exactly declared bytes from r to bw. It caps each read
// at the remaining budget so a source that has more than declared to give
// never gets written past the Content-Length already sent, and it probes for
// trailing data once the budget is spent so an overflowing source is reported
// rather than silently truncated (spec §3, §8).
func copyVerified(bw *bufio.Writer, r interface{ Read([]byte) (int, error) }, declared int64) (int64, error) {
	buf := make([]byte, 32*1024)
	var total int64
	for total < declared {
		max := declared - total
		if max > int64(len(buf)) {
			max = int64(len(buf))
		}
		n, err := r.Read(buf[:max])
		if n > 0 {
			if _, werr := bw.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err != nil {
			break
		}
	}
	if total < declared {
		return total, nil
	}
	var probe [1]byte
	if n, _ := r.Read(probe[:]); n > 0 {
		return total, herr.Framingf("declared %d bytes, source has more", declared)
	}
	return total, nil
}

func renderChunkedBody(bw *bufio.Writer, cr ChunkReader) error {
	var buf bytes.Buffer
	for {
		part, err := cr.Next()
		if err != nil {
			return herr.New(herr.Framing, "chunk source failed", "", err)
		}
		buf.Reset()
		if part.Last {
			RenderLastChunk(&buf, part.Ext, part.Trailers)
			if _, err := bw.Write(buf.Bytes()); err != nil {
				return err
			}
			return nil
		}
		RenderChunk(&buf, part.Data, part.Ext)
		if _, err := bw.Write(buf.Bytes()); err != nil {
			return err
		}
	}
}
