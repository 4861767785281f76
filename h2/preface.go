package h2

import (
	"bufio"
	"bytes"

	"github.com/vaporio/httpstack/herr"
)

// Preface is the client connection preface (RFC 7540 §3.5): sent before
// any frame, confirming both endpoints are speaking HTTP/2.
var Preface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

// WritePreface writes the connection preface to bw.
func WritePreface(bw *bufio.Writer) error {
	_, err := bw.Write(Preface)
	return err
}

// ReadPreface consumes and validates the connection preface from br.
func ReadPreface(br *bufio.Reader) error {
	b := make([]byte, len(Preface))
	if _, err := readFull(br, b); err != nil {
		return err
	}
	if !bytes.Equal(b, Preface) {
		return herr.New(herr.Protocol, "bad connection preface", "", nil)
	}
	return nil
}

func readFull(br *bufio.Reader, b []byte) (int, error) {
	n := 0
	for n < len(b) {
		m, err := br.Read(b[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
