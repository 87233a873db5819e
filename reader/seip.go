package reader

import (
	"bytes"
	"crypto/subtle"
	"io"

	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
)

const (
	// MDCTag is the tag octet of the modification detection code packet
	MDCTag = 0xD3
	// MDCLength is the length octet of the modification detection code packet
	MDCLength = 0x14
	// MDCSize is the size of the modification detection code packet
	MDCSize = 2 + MDCLength
)

// SEIP is a stage over the decrypted content of a symmetrically encrypted
// integrity protected packet. On the first read it consumes the whole
// decrypted region, checks the quick check octets of the preamble and the
// trailing MDC, and only then releases the plaintext.
type SEIP struct {
	src       io.Reader
	blockSize int

	checked bool
	plain   *bytes.Reader
	err     error
}

// NewSEIP returns a SEIP stage, src must be the decrypted and bounded
// packet body
func NewSEIP(src io.Reader, blockSize int) *SEIP {
	return &SEIP{src: src, blockSize: blockSize}
}

// Name of the stage
func (s *SEIP) Name() string { return "se_ip" }

// Read implements io.Reader
func (s *SEIP) Read(p []byte) (int, error) {
	if !s.checked {
		s.checked = true
		s.err = s.check()
	}
	if s.err != nil {
		return 0, s.err
	}
	return s.plain.Read(p)
}

func (s *SEIP) check() error {
	buf, err := io.ReadAll(s.src)
	if err != nil {
		return err
	}

	bs := s.blockSize
	sizePreamble := bs + 2
	if len(buf) < sizePreamble+MDCSize {
		return pgperr.New(pgperr.NotEnoughData, "Not enough data for SE-IP packet: %d", len(buf))
	}

	if buf[bs-2] != buf[bs] || buf[bs-1] != buf[bs+1] {
		return pgperr.New(pgperr.BadSymmetricDecrypt,
			"Bad symmetric decrypt (%02x%02x vs %02x%02x)",
			buf[bs-2], buf[bs-1], buf[bs], buf[bs+1])
	}

	sizePlain := len(buf) - sizePreamble - MDCSize
	mdc := buf[sizePreamble+sizePlain:]

	h, err := pgpcrypto.NewHash(pgpcrypto.HashSHA1)
	if err != nil {
		return err
	}
	_, _ = h.Write(buf[:sizePreamble+sizePlain])
	_, _ = h.Write([]byte{MDCTag, MDCLength})
	hashed := h.Sum()

	if mdc[0] != MDCTag || mdc[1] != MDCLength || subtle.ConstantTimeCompare(mdc[2:], hashed) != 1 {
		logger.KV(xlog.DEBUG, "reason", "mdc_mismatch", "plaintext", sizePlain)
		return pgperr.New(pgperr.BadHash, "Bad hash in MDC")
	}

	s.plain = bytes.NewReader(buf[sizePreamble : sizePreamble+sizePlain])
	return nil
}
