package h1

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/vaporio/httpstack/herr"
)

// Parser turns a byte stream into Request/Response values, applying the
// start-line bounds, header-block rules, and entity-framing priority order
// from spec §4.1. One Parser belongs to one connection; its HeaderCache
// persists across messages on that connection (spec §5) but must never be
// shared with another connection.
type Parser struct {
	cfg   *Config
	cache *HeaderCache
}

// NewParser returns a Parser governed by cfg, with a fresh per-connection
// header cache.
func NewParser(cfg *Config) *Parser {
	return &Parser{cfg: cfg, cache: NewHeaderCache(cfg)}
}

// ParseRequest reads exactly one request (start line, headers, and an
// entity reader bound to the remainder of br) from br.
func (p *Parser) ParseRequest(br *bufio.Reader) (*Request, error) {
	line, err := readLine(br, p.cfg.MaxMethodLength+p.cfg.MaxURILength+16)
	if err != nil {
		return nil, herr.New(herr.Framing, "failed to read request line", "", err)
	}
	method, uri, proto, err := parseRequestLine(line, p.cfg)
	if err != nil {
		return nil, err
	}

	headers, err := p.parseHeaderBlock(br)
	if err != nil {
		return nil, err
	}

	headers, err = resolveContentType(headers, p.cfg)
	if err != nil {
		return nil, err
	}

	req := &Request{Method: method, URI: uri, Proto: proto, Headers: headers}

	entity, err := p.frameRequestEntity(br, req)
	if err != nil {
		return nil, err
	}
	req.Entity = entity
	return req, nil
}

// ParseResponse reads exactly one response from br, using forMethod (the
// method of the request this response answers) to resolve body-expectation
// exceptions (spec §4.1: expectResponseTo).
func (p *Parser) ParseResponse(br *bufio.Reader, forMethod Method) (*Response, error) {
	line, err := readLine(br, p.cfg.MaxResponseReasonLength+32)
	if err != nil {
		return nil, herr.New(herr.Framing, "failed to read status line", "", err)
	}
	proto, status, reason, err := parseStatusLine(line, p.cfg)
	if err != nil {
		return nil, err
	}

	headers, err := p.parseHeaderBlock(br)
	if err != nil {
		return nil, err
	}

	headers, err = resolveContentType(headers, p.cfg)
	if err != nil {
		return nil, err
	}

	res := &Response{Proto: proto, Status: status, Reason: reason, Headers: headers}

	entity, err := p.frameResponseEntity(br, res, forMethod)
	if err != nil {
		return nil, err
	}
	res.Entity = entity
	return res, nil
}

func parseRequestLine(line string, cfg *Config) (Method, URI, Protocol, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return "", URI{}, 0, herr.Framingf("malformed request line %q", line)
	}
	methodStr, target, protoStr := parts[0], parts[1], parts[2]
	if len(methodStr) > cfg.MaxMethodLength {
		return "", URI{}, 0, herr.Framingf("method too long")
	}
	if len(target) > cfg.MaxURILength {
		return "", URI{}, 0, herr.Framingf("request target too long")
	}
	if !isASCII(methodStr) || !isASCII(target) {
		return "", URI{}, 0, herr.Framingf("non-ASCII octet in request line")
	}
	proto, err := parseProto(protoStr)
	if err != nil {
		return "", URI{}, 0, err
	}
	uri := parseRequestTarget(target)
	return Method(methodStr), uri, proto, nil
}

func parseRequestTarget(target string) URI {
	if strings.Contains(target, "://") {
		return parseAbsoluteTarget(target)
	}
	path, query, _ := strings.Cut(target, "?")
	return URI{Path: path, Query: query}
}

func parseAbsoluteTarget(target string) URI {
	schemeEnd := strings.Index(target, "://")
	scheme := target[:schemeEnd]
	rest := target[schemeEnd+3:]
	var authority, pathAndQuery string
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		authority, pathAndQuery = rest[:i], rest[i:]
	} else {
		authority = rest
		pathAndQuery = "/"
	}
	host, port := authority, 0
	if i := strings.LastIndexByte(authority, ':'); i >= 0 {
		host = authority[:i]
		port, _ = strconv.Atoi(authority[i+1:])
	}
	path, query, _ := strings.Cut(pathAndQuery, "?")
	return URI{Scheme: scheme, Host: host, Port: port, Path: path, Query: query}
}

func parseStatusLine(line string, cfg *Config) (Protocol, int, string, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return 0, 0, "", herr.Framingf("malformed status line %q", line)
	}
	proto, err := parseProto(parts[0])
	if err != nil {
		return 0, 0, "", err
	}
	status, err := strconv.Atoi(parts[1])
	if err != nil || status < 100 || status > 599 {
		return 0, 0, "", herr.Framingf("invalid status code %q", parts[1])
	}
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}
	if len(reason) > cfg.MaxResponseReasonLength {
		return 0, 0, "", herr.Framingf("response reason too long")
	}
	return proto, status, reason, nil
}

func parseProto(s string) (Protocol, error) {
	switch s {
	case "HTTP/1.1":
		return HTTP11, nil
	case "HTTP/1.0":
		return HTTP10, nil
	default:
		return 0, herr.Framingf("unsupported protocol %q", s)
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// parseHeaderBlock reads header lines until a blank line, consulting and
// populating p.cache. Folded continuation lines (leading whitespace) are
// appended to the previous value; a header whose name or value still
// contains CR or LF is dropped without an error.
func (p *Parser) parseHeaderBlock(br *bufio.Reader) (Headers, error) {
	var h Headers
	var lastIdx = -1
	maxLine := p.cfg.MaxHeaderNameLength + p.cfg.MaxHeaderValueLength + 4
	for {
		raw, err := br.ReadString('\n')
		if err != nil {
			return nil, herr.New(herr.Framing, "truncated header block", "", err)
		}
		if len(raw) > maxLine {
			return nil, herr.Framingf("header line exceeds %d bytes", maxLine)
		}
		trimmed := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
		if trimmed == "" {
			return h, nil
		}

		if (raw[0] == ' ' || raw[0] == '\t') && lastIdx >= 0 {
			h[lastIdx].Value += " " + strings.TrimSpace(trimmed)
			continue
		}

		if cached, ok := p.cache.Lookup([]byte(trimmed)); ok {
			h = append(h, cached)
			lastIdx = len(h) - 1
			continue
		}

		name, value, err := splitHeaderLine(trimmed, p.cfg)
		if err != nil {
			if p.cfg.IllegalHeaderMode == LeniencyError && !p.cfg.IgnoreIllegalHeaderFor[canon(name)] {
				return nil, err
			}
			continue
		}
		if hasCRLF(name) || hasCRLF(value) {
			continue
		}

		hdr := NewHeader(name, value)
		p.cache.Insert([]byte(trimmed), hdr)
		h = append(h, hdr)
		lastIdx = len(h) - 1

		if len(h) > p.cfg.MaxHeaderCount {
			return nil, herr.Framingf("too many header fields")
		}
	}
}

// resolveContentType applies cfg.ConflictingContentType when a message
// declares more than one Content-Type header (spec §4.1), collapsing the
// header block down to the single field the policy selects (or none, for
// ContentTypeNone) so a later Headers.Get("content-type") sees exactly the
// field the policy intends rather than an arbitrary duplicate.
func resolveContentType(h Headers, cfg *Config) (Headers, error) {
	all := h.GetAll("content-type")
	if len(all) <= 1 {
		return h, nil
	}
	switch cfg.ConflictingContentType {
	case ContentTypeError:
		return h, herr.Framingf("conflicting Content-Type headers: %v", all)
	case ContentTypeFirst:
		return keepContentType(h, all[0]), nil
	case ContentTypeLast:
		return keepContentType(h, all[len(all)-1]), nil
	case ContentTypeNone:
		return h.Del("content-type"), nil
	default:
		return h, nil
	}
}

// keepContentType collapses every content-type field down to a single one
// carrying value, in the position of the first occurrence.
func keepContentType(h Headers, value string) Headers {
	out := make(Headers, 0, len(h))
	kept := false
	for _, f := range h {
		if f.Name != "content-type" {
			out = append(out, f)
			continue
		}
		if kept {
			continue
		}
		kept = true
		out = append(out, Header{Name: "content-type", Raw: f.Raw, Value: value})
	}
	return out
}

// frameRequestEntity implements the priority order for request bodies:
// chunked, then Content-Length, then empty (spec §4.1: "for requests
// without framing, body is empty").
func (p *Parser) frameRequestEntity(br *bufio.Reader, req *Request) (Entity, error) {
	contentType, _ := req.Headers.Get("content-type")
	te, _ := req.Headers.Get("transfer-encoding")
	cl, hasCL := req.Headers.Get("content-length")

	if strings.Contains(canon(te), "chunked") {
		if hasCL {
			return nil, herr.Framingf("both Content-Length and Transfer-Encoding: chunked present")
		}
		return ChunkedEntity{Type: contentType, Reader: newChunkDecoder(br, p.cfg)}, nil
	}
	if hasCL {
		n, err := parseContentLength(cl, p.cfg)
		if err != nil {
			return nil, err
		}
		return DefaultEntity{Type: contentType, Declared: n, Data: NewVerifiedReader(br, n)}, nil
	}
	return StrictEntity{Type: contentType, Body: nil}, nil
}

// frameResponseEntity applies the same priority order plus the
// method-dependent no-body exceptions (HEAD, CONNECT 2xx, 1xx/204/304) and
// falls back to close-delimited framing when nothing else applies.
func (p *Parser) frameResponseEntity(br *bufio.Reader, res *Response, forMethod Method) (Entity, error) {
	if noBodyExpected(res.Status, forMethod) {
		return StrictEntity{Type: "", Body: nil}, nil
	}

	contentType, _ := res.Headers.Get("content-type")
	te, _ := res.Headers.Get("transfer-encoding")
	cl, hasCL := res.Headers.Get("content-length")

	if strings.Contains(canon(te), "chunked") {
		if hasCL {
			return nil, herr.Framingf("both Content-Length and Transfer-Encoding: chunked present")
		}
		return ChunkedEntity{Type: contentType, Reader: newChunkDecoder(br, p.cfg)}, nil
	}
	if hasCL {
		n, err := parseContentLength(cl, p.cfg)
		if err != nil {
			return nil, err
		}
		return DefaultEntity{Type: contentType, Declared: n, Data: NewVerifiedReader(br, n)}, nil
	}
	return CloseDelimitedEntity{Type: contentType, Data: br}, nil
}

func noBodyExpected(status int, forMethod Method) bool {
	if forMethod == HEAD {
		return true
	}
	if forMethod == CONNECT && status/100 == 2 {
		return true
	}
	if status/100 == 1 || status == 204 || status == 304 {
		return true
	}
	return false
}

func parseContentLength(s string, cfg *Config) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, herr.Framingf("invalid Content-Length %q", s)
	}
	if n > cfg.MaxContentLength {
		return 0, herr.Framingf("Content-Length %d exceeds max %d", n, cfg.MaxContentLength)
	}
	return n, nil
}

var _ io.Reader = (*bufio.Reader)(nil)
