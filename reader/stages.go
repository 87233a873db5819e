package reader

import (
	"io"

	"github.com/effective-security/xpgp/pgpcrypto"
)

// Sum16 is a stage that keeps the sum of the passed octets mod 65536
type Sum16 struct {
	src io.Reader
	sum uint16
}

// NewSum16 returns a Sum16 stage over src
func NewSum16(src io.Reader) *Sum16 {
	return &Sum16{src: src}
}

// Name of the stage
func (s *Sum16) Name() string { return "sum16" }

// Read implements io.Reader
func (s *Sum16) Read(p []byte) (int, error) {
	n, err := s.src.Read(p)
	for _, b := range p[:n] {
		s.sum += uint16(b)
	}
	return n, err
}

// Sum returns the checksum
func (s *Sum16) Sum() uint16 {
	return s.sum
}

// Hash is a stage that feeds every passed octet to a hash
type Hash struct {
	src io.Reader
	h   pgpcrypto.Hash
}

// NewHash returns a Hash stage over src
func NewHash(src io.Reader, h pgpcrypto.Hash) *Hash {
	return &Hash{src: src, h: h}
}

// Name of the stage
func (s *Hash) Name() string { return "hash" }

// Read implements io.Reader
func (s *Hash) Read(p []byte) (int, error) {
	n, err := s.src.Read(p)
	if n > 0 {
		_, _ = s.h.Write(p[:n])
	}
	return n, err
}

// Hash returns the running hash
func (s *Hash) Hash() pgpcrypto.Hash {
	return s.h
}

// Decrypt is a stage that decrypts the OpenPGP CFB stream read from src.
// It never reads ahead, so a Resync applies exactly at the current offset.
type Decrypt struct {
	src    io.Reader
	cipher pgpcrypto.Cipher
	plain  bool
}

// NewDecrypt returns a Decrypt stage over src,
// the cipher must be keyed and its IV set
func NewDecrypt(src io.Reader, c pgpcrypto.Cipher) *Decrypt {
	return &Decrypt{src: src, cipher: c}
}

// Name of the stage
func (d *Decrypt) Name() string { return "decrypt" }

// Read implements io.Reader
func (d *Decrypt) Read(p []byte) (int, error) {
	n, err := d.src.Read(p)
	if n > 0 && !d.plain {
		d.cipher.CFBDecrypt(p[:n], p[:n])
	}
	return n, err
}

// SetPlain passes octets through without decryption while on,
// as needed for the MPI lengths of v3 secret keys
func (d *Decrypt) SetPlain(on bool) {
	d.plain = on
}

// Resync resynchronizes the cipher at the current offset
func (d *Decrypt) Resync() {
	d.cipher.Resync()
}

// Cipher returns the cipher
func (d *Decrypt) Cipher() pgpcrypto.Cipher {
	return d.cipher
}
