package armor

import (
	"bytes"
	"encoding/base64"
	"io"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xpgp/pgpcrypto"
)

const lineLength = 64

// lineBreaker splits the base64 output into lines
type lineBreaker struct {
	w    io.Writer
	used int
}

func (l *lineBreaker) Write(b []byte) (int, error) {
	written := 0
	for len(b) > 0 {
		n := lineLength - l.used
		if n > len(b) {
			n = len(b)
		}
		if _, err := l.w.Write(b[:n]); err != nil {
			return written, err
		}
		written += n
		l.used += n
		b = b[n:]
		if l.used == lineLength {
			if _, err := l.w.Write([]byte{'\n'}); err != nil {
				return written, err
			}
			l.used = 0
		}
	}
	return written, nil
}

func (l *lineBreaker) close() error {
	if l.used > 0 {
		_, err := l.w.Write([]byte{'\n'})
		return err
	}
	return nil
}

type encoder struct {
	w     io.Writer
	typ   string
	crc   uint32
	lines *lineBreaker
	b64   io.WriteCloser
}

func (e *encoder) Write(b []byte) (int, error) {
	e.crc = crc24Update(e.crc, b)
	return e.b64.Write(b)
}

// Close writes the checksum and the armour trailer,
// it does not close the underlying writer
func (e *encoder) Close() error {
	if err := e.b64.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err := e.lines.close(); err != nil {
		return errors.WithStack(err)
	}
	sum := []byte{byte(e.crc >> 16), byte(e.crc >> 8), byte(e.crc)}
	_, err := io.WriteString(e.w, "="+base64.StdEncoding.EncodeToString(sum)+"\n"+endPrefix+e.typ+lineSuffix+"\n")
	return errors.WithStack(err)
}

// Encode returns a WriteCloser which armours the written data as a block
// of blockType, such as TypeSignature. Headers are written in key order.
// Close must be called to finish the block.
func Encode(w io.Writer, blockType string, headers map[string]string) (io.WriteCloser, error) {
	var buf bytes.Buffer
	buf.WriteString(beginPrefix + blockType + lineSuffix + "\n")

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString(k + ": " + headers[k] + "\n")
	}
	buf.WriteByte('\n')

	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, errors.WithStack(err)
	}

	lines := &lineBreaker{w: w}
	return &encoder{
		w:     w,
		typ:   blockType,
		crc:   crc24Init,
		lines: lines,
		b64:   base64.NewEncoder(base64.StdEncoding, lines),
	}, nil
}

// DashEscape escapes the lines of text which start with a dash
func DashEscape(text []byte) []byte {
	lines := bytes.Split(text, []byte("\n"))
	for i, line := range lines {
		if bytes.HasPrefix(line, []byte("-")) {
			lines[i] = append([]byte("- "), line...)
		}
	}
	return bytes.Join(lines, []byte("\n"))
}

// EncodeClearText writes the head of a clear-signed message: the armour
// line, the Hash header and the dash-escaped text. The armoured signature
// must follow.
func EncodeClearText(w io.Writer, text []byte, hashes ...pgpcrypto.HashAlgorithm) error {
	var buf bytes.Buffer
	buf.WriteString(beginPrefix + TypeSignedMessage + lineSuffix + "\n")
	if len(hashes) > 0 {
		names := make([]string, len(hashes))
		for i, h := range hashes {
			names[i] = h.String()
		}
		buf.WriteString("Hash: " + strings.Join(names, ",") + "\n")
	}
	buf.WriteByte('\n')
	buf.Write(DashEscape(text))
	buf.WriteByte('\n')

	_, err := w.Write(buf.Bytes())
	return errors.WithStack(err)
}
