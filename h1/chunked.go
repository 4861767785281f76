package h1

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vaporio/httpstack/herr"
)

// chunkDecoder turns a buffered byte source framed with HTTP/1 chunked
// transfer coding into a ChunkReader. Grounded on the teacher's
// start-line/header-block line-reading style: a bare LF is accepted
// anywhere a CRLF is expected, matching the h1 header parser's leniency.
type chunkDecoder struct {
	br   *bufio.Reader
	cfg  *Config
	done bool
}

func newChunkDecoder(br *bufio.Reader, cfg *Config) *chunkDecoder {
	return &chunkDecoder{br: br, cfg: cfg}
}

func (d *chunkDecoder) Next() (ChunkPart, error) {
	if d.done {
		return ChunkPart{}, errChunkStreamDone
	}

	line, err := readLine(d.br, d.cfg.MaxChunkExtLength+32)
	if err != nil {
		return ChunkPart{}, herr.New(herr.Framing, "bad chunk size line", "", err)
	}

	size, ext, err := parseChunkSizeLine(line, d.cfg)
	if err != nil {
		return ChunkPart{}, err
	}

	if size == 0 {
		trailers, err := readTrailers(d.br, d.cfg)
		if err != nil {
			return ChunkPart{}, err
		}
		d.done = true
		return ChunkPart{Last: true, Ext: ext, Trailers: trailers}, nil
	}

	if size > d.cfg.MaxChunkSize {
		return ChunkPart{}, herr.Framingf("chunk size %d exceeds max %d", size, d.cfg.MaxChunkSize)
	}

	data := make([]byte, size)
	if _, err := readFull(d.br, data); err != nil {
		return ChunkPart{}, herr.New(herr.Framing, "truncated chunk body", "", err)
	}

	trailer, err := readLine(d.br, 2)
	if err != nil {
		return ChunkPart{}, herr.New(herr.Framing, "missing chunk terminator", "", err)
	}
	if trailer != "" {
		return ChunkPart{}, herr.Framingf("chunk body not followed by CRLF")
	}

	return ChunkPart{Data: data, Ext: ext}, nil
}

var errChunkStreamDone = io.EOF

func parseChunkSizeLine(line string, cfg *Config) (int, []ChunkExt, error) {
	semi := strings.IndexByte(line, ';')
	hexPart := line
	var extPart string
	if semi >= 0 {
		hexPart = line[:semi]
		extPart = line[semi+1:]
	}
	if hexPart == "" {
		return 0, nil, herr.Framingf("empty chunk size")
	}
	size64, err := strconv.ParseInt(hexPart, 16, 32)
	if err != nil || size64 < 0 {
		return 0, nil, herr.New(herr.Framing, "invalid chunk size", hexPart, err)
	}
	if len(extPart) > cfg.MaxChunkExtLength {
		return 0, nil, herr.Framingf("chunk extension too long: %d bytes", len(extPart))
	}
	ext, err := parseChunkExt(extPart)
	if err != nil {
		return 0, nil, err
	}
	return int(size64), ext, nil
}

func parseChunkExt(s string) ([]ChunkExt, error) {
	if s == "" {
		return nil, nil
	}
	var out []ChunkExt
	var parts []string
	start, inQuote := 0, false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && inQuote:
			i++
		case s[i] == '"':
			inQuote = !inQuote
		case s[i] == ';' && !inQuote:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			out = append(out, ChunkExt{Name: part})
			continue
		}
		name := part[:eq]
		val := part[eq+1:]
		quoted := false
		if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
			quoted = true
			val = unescapeQuoted(val[1 : len(val)-1])
		}
		out = append(out, ChunkExt{Name: name, Value: val, Quoted: quoted})
	}
	return out, nil
}

func unescapeQuoted(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func readTrailers(br *bufio.Reader, cfg *Config) (Headers, error) {
	var h Headers
	for {
		line, err := readLine(br, cfg.MaxHeaderNameLength+cfg.MaxHeaderValueLength+4)
		if err != nil {
			return nil, herr.New(herr.Framing, "truncated trailer block", "", err)
		}
		if line == "" {
			return h, nil
		}
		name, value, err := splitHeaderLine(line, cfg)
		if err != nil {
			return nil, err
		}
		if hasCRLF(name) || hasCRLF(value) {
			continue
		}
		h = h.Add(name, value)
		if len(h) > cfg.MaxHeaderCount {
			return nil, herr.Framingf("too many trailer fields")
		}
	}
}

// readLine reads up to a LF terminator (tolerating a preceding CR) and
// returns the line without the terminator.
func readLine(br *bufio.Reader, maxLen int) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) > maxLen {
		return "", herr.Framingf("line exceeds %d bytes", maxLen)
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func readFull(br *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := br.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func splitHeaderLine(line string, cfg *Config) (name, value string, err error) {
	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return "", "", herr.Framingf("malformed header line %q", line)
	}
	name = line[:colon]
	value = strings.TrimSpace(line[colon+1:])
	if len(name) > cfg.MaxHeaderNameLength {
		return "", "", herr.Framingf("header name too long")
	}
	if len(value) > cfg.MaxHeaderValueLength {
		return "", "", herr.Framingf("header value too long")
	}
	return name, value, nil
}

// RenderChunk writes one data chunk in wire format: size[;ext]CRLF data CRLF.
func RenderChunk(buf *bytes.Buffer, data []byte, ext []ChunkExt) {
	fmt.Fprintf(buf, "%x", len(data))
	writeChunkExt(buf, ext)
	buf.WriteString("\r\n")
	buf.Write(data)
	buf.WriteString("\r\n")
}

// RenderLastChunk writes the terminal zero-size chunk, optional extensions,
// and optional trailers, matching spec §8 scenario 2 byte-for-byte.
func RenderLastChunk(buf *bytes.Buffer, ext []ChunkExt, trailers Headers) {
	buf.WriteString("0")
	writeChunkExt(buf, ext)
	buf.WriteString("\r\n")
	trailers.VisitAll(func(raw, value string) {
		if hasCRLF(raw) || hasCRLF(value) {
			return
		}
		buf.WriteString(raw)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	})
	buf.WriteString("\r\n")
}

func writeChunkExt(buf *bytes.Buffer, ext []ChunkExt) {
	for _, e := range ext {
		buf.WriteByte(';')
		buf.WriteString(e.Name)
		if e.Value != "" || e.Quoted {
			buf.WriteByte('=')
			if e.Quoted {
				buf.WriteByte('"')
				buf.WriteString(strings.ReplaceAll(e.Value, `"`, `\"`))
				buf.WriteByte('"')
			} else {
				buf.WriteString(e.Value)
			}
		}
	}
}
