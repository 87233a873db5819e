package armor

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/packet"
	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xpgp", "armor")

// Armour block types
const (
	TypeMessage       = "MESSAGE"
	TypePublicKey     = "PUBLIC KEY BLOCK"
	TypePrivateKey    = "PRIVATE KEY BLOCK"
	TypeSignature     = "SIGNATURE"
	TypeSignedMessage = "SIGNED MESSAGE"
)

const (
	beginPrefix = "-----BEGIN PGP "
	endPrefix   = "-----END PGP "
	lineSuffix  = "-----"
)

// AllowedHeaders are the armour header keys
var AllowedHeaders = []string{"Version", "Comment", "MessageID", "Hash", "Charset"}

// Emitter receives the framing packets of the armour,
// it is implemented by packet.Stream
type Emitter interface {
	Emit(tag packet.Tag, c packet.Content) packet.Result
	PushError(err error)
}

type state int

const (
	stateOutside state = iota
	stateBase64
	stateTrailer
)

// Dearmour is a reader stage decoding armoured blocks
type Dearmour struct {
	src *bufio.Reader
	em  Emitter

	state state
	typ   string
	b64   []byte
	crc   uint32

	out []byte
	err error
}

// NewDearmour returns a dearmour stage reading from src
func NewDearmour(src io.Reader, em Emitter) *Dearmour {
	return &Dearmour{
		src: bufio.NewReader(src),
		em:  em,
	}
}

// Push installs a dearmour stage on the reader stack of the stream.
// The armoured text itself is not accumulated, packets accumulate the
// decoded octets.
func Push(s *packet.Stream) *Dearmour {
	rd := s.Reader()
	acc := rd.Accumulate()
	rd.SetAccumulate(false)
	d := NewDearmour(rd.Top(), s)
	rd.Push(d)
	rd.SetAccumulate(acc)
	return d
}

// Name of the stage
func (d *Dearmour) Name() string { return "dearmour" }

// Read implements io.Reader
func (d *Dearmour) Read(p []byte) (int, error) {
	for len(d.out) == 0 {
		if d.err != nil {
			return 0, d.err
		}
		d.err = d.step()
	}
	n := copy(p, d.out)
	d.out = d.out[n:]
	return n, nil
}

// readLine returns the next line without its end of line,
// and io.EOF when there are no more lines
func (d *Dearmour) readLine() (string, error) {
	line, err := d.src.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", pgperr.Wrap(pgperr.ReadFailed, err, "Read failed")
		}
		if line == "" {
			return "", io.EOF
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (d *Dearmour) step() error {
	switch d.state {
	case stateBase64:
		return d.stepBase64()
	case stateTrailer:
		return d.stepTrailer()
	}
	return d.stepOutside()
}

func (d *Dearmour) stepOutside() error {
	line, err := d.readLine()
	if err != nil {
		return err
	}

	switch {
	case strings.HasPrefix(line, beginPrefix) && strings.HasSuffix(line, lineSuffix):
		typ := strings.TrimSuffix(strings.TrimPrefix(line, beginPrefix), lineSuffix)
		switch {
		case typ == TypeSignedMessage:
			return d.cleartext()
		case strings.HasPrefix(typ, "MESSAGE, PART"):
			return pgperr.New(pgperr.Unsupported, "Multi-part armoured messages are not supported")
		case typ == TypeMessage, typ == TypePublicKey, typ == TypePrivateKey, typ == TypeSignature:
			return d.begin(typ)
		}
		return pgperr.New(pgperr.Unsupported, "Unsupported armour type %q", typ)

	case strings.HasPrefix(line, endPrefix):
		return pgperr.New(pgperr.BadFormat, "Armour END line without BEGIN")
	}

	d.em.Emit(packet.TagUnarmouredText, &packet.Body{Data: []byte(line + "\n")})
	return nil
}

func (d *Dearmour) begin(typ string) error {
	headers, err := d.readHeaders()
	if err != nil {
		return err
	}
	logger.KV(xlog.DEBUG, "reason", "begin", "type", typ, "headers", len(headers))

	d.typ = typ
	d.crc = crc24Init
	d.b64 = d.b64[:0]
	d.state = stateBase64
	d.em.Emit(packet.TagArmourHeader, &packet.ArmourHeader{Type: typ, Headers: headers})
	return nil
}

// readHeaders reads armour headers up to the blank line
func (d *Dearmour) readHeaders() ([]packet.Header, error) {
	var headers []packet.Header
	for {
		line, err := d.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, pgperr.New(pgperr.EarlyEOF, "Unexpected end of armour headers")
			}
			return nil, err
		}
		line = strings.TrimRight(line, " \t")
		if line == "" {
			return headers, nil
		}

		i := strings.Index(line, ": ")
		if i < 0 {
			return nil, pgperr.New(pgperr.BadFormat, "no space in armour header")
		}
		key := line[:i]
		if !isAllowedHeader(key) {
			d.em.PushError(pgperr.New(pgperr.BadFormat, "invalid header %s", key))
			continue
		}
		headers = append(headers, packet.Header{Key: key, Value: line[i+2:]})
	}
}

func isAllowedHeader(key string) bool {
	for _, h := range AllowedHeaders {
		if h == key {
			return true
		}
	}
	return false
}

func (d *Dearmour) stepBase64() error {
	line, err := d.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return pgperr.New(pgperr.EarlyEOF, "Unexpected end of armoured data")
		}
		return err
	}
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return nil
	case line[0] == '=':
		if err = d.flush(); err != nil {
			return err
		}
		sum, err := base64.StdEncoding.DecodeString(line[1:])
		if err != nil || len(sum) != 3 {
			return pgperr.New(pgperr.BadFormat, "Bad armour checksum line")
		}
		expected := uint32(sum[0])<<16 | uint32(sum[1])<<8 | uint32(sum[2])
		if expected != d.crc {
			return pgperr.New(pgperr.BadFormat, "checksum mismatch: expected %06x, got %06x", expected, d.crc)
		}
		d.state = stateTrailer
		return nil
	case strings.HasPrefix(line, endPrefix):
		return pgperr.New(pgperr.BadFormat, "No checksum at base64 end")
	}

	d.b64 = append(d.b64, line...)
	n := len(d.b64) / 4 * 4
	if n == 0 {
		return nil
	}
	err = d.decode(d.b64[:n])
	d.b64 = append(d.b64[:0], d.b64[n:]...)
	return err
}

func (d *Dearmour) decode(b []byte) error {
	dec := make([]byte, base64.StdEncoding.DecodedLen(len(b)))
	n, err := base64.StdEncoding.Decode(dec, b)
	if err != nil {
		return pgperr.Wrap(pgperr.BadFormat, err, "Bad base64 data in armour")
	}
	dec = dec[:n]
	d.crc = crc24Update(d.crc, dec)
	d.out = append(d.out, dec...)
	return nil
}

func (d *Dearmour) flush() error {
	if len(d.b64) > 0 {
		return pgperr.New(pgperr.BadFormat, "Bad base64 length in armour (%d)", len(d.b64))
	}
	return nil
}

func (d *Dearmour) stepTrailer() error {
	line, err := d.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return pgperr.New(pgperr.EarlyEOF, "Missing armour trailer")
		}
		return err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	return d.end(line)
}

func (d *Dearmour) end(line string) error {
	if line != endPrefix+d.typ+lineSuffix {
		return pgperr.New(pgperr.BadFormat, "Bad armour trailer %q", line)
	}
	logger.KV(xlog.DEBUG, "reason", "end", "type", d.typ)

	d.state = stateOutside
	d.em.Emit(packet.TagArmourTrailer, &packet.ArmourTrailer{Type: d.typ})
	return nil
}

// cleartext reads the clear-signed text up to the armoured signature
func (d *Dearmour) cleartext() error {
	headers, err := d.readHeaders()
	if err != nil {
		return err
	}

	var hashes []pgpcrypto.Hash
	for _, h := range headers {
		if h.Key != "Hash" {
			continue
		}
		for _, name := range strings.Split(h.Value, ",") {
			alg, ok := pgpcrypto.ParseHashName(name)
			if !ok {
				return pgperr.New(pgperr.UnsupportedHash, "Unsupported hash algorithm %q", strings.TrimSpace(name))
			}
			hash, err := pgpcrypto.NewHash(alg)
			if err != nil {
				return err
			}
			hashes = append(hashes, hash)
		}
	}
	if len(hashes) == 0 {
		hash, err := pgpcrypto.NewHash(pgpcrypto.HashMD5)
		if err != nil {
			return err
		}
		hashes = append(hashes, hash)
	}
	d.em.Emit(packet.TagSignedCleartextHeader, &packet.SignedCleartextHeader{Headers: headers})

	var body bytes.Buffer
	emitBody := func() {
		if body.Len() > 0 {
			d.em.Emit(packet.TagSignedCleartextBody, &packet.Body{Data: append([]byte(nil), body.Bytes()...)})
			body.Reset()
		}
	}
	write := func(b []byte) {
		for _, h := range hashes {
			_, _ = h.Write(b)
		}
	}

	for first := true; ; first = false {
		line, err := d.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return pgperr.New(pgperr.EarlyEOF, "Unexpected end of signed cleartext")
			}
			return err
		}

		if strings.HasPrefix(line, "- ") {
			line = line[2:]
		} else if strings.HasPrefix(line, "-") {
			if line != beginPrefix+TypeSignature+lineSuffix {
				return pgperr.New(pgperr.BadFormat, "Bad dash-escaping in signed cleartext")
			}
			emitBody()
			d.em.Emit(packet.TagSignedCleartextTrailer, &packet.SignedCleartextTrailer{Hashes: hashes})
			return d.begin(TypeSignature)
		}

		// the line break before the signature is not part of the text
		if !first {
			write([]byte("\r\n"))
			body.WriteByte('\n')
		}
		write([]byte(strings.TrimRight(line, " \t")))
		body.WriteString(line)
		if body.Len() >= 8192 {
			emitBody()
		}
	}
}

// IsArmoured returns true when b starts like armoured text
func IsArmoured(b []byte) bool {
	head := bytes.TrimLeft(b, " \t\r\n")
	if len(head) == 0 || head[0]&0x80 != 0 {
		return false
	}
	if len(head) > 4096 {
		head = head[:4096]
	}
	return bytes.Contains(head, []byte(beginPrefix))
}
