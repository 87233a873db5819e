package pgpcrypto

import (
	"github.com/effective-security/xpgp/pgperr"
)

// S2KSpecifier is the string-to-key mode
type S2KSpecifier uint8

// S2K modes
const (
	S2KSimple   S2KSpecifier = 0
	S2KSalted   S2KSpecifier = 1
	S2KIterated S2KSpecifier = 3
)

func (s S2KSpecifier) String() string {
	switch s {
	case S2KSimple:
		return "Simple"
	case S2KSalted:
		return "Salted"
	case S2KIterated:
		return "Iterated+Salted"
	}
	return "Unknown"
}

// SaltSize is the size of the S2K salt
const SaltSize = 8

// S2K describes how a passphrase is turned into a key
type S2K struct {
	Specifier S2KSpecifier
	Hash      HashAlgorithm
	Salt      [SaltSize]byte
	// Count is the coded iteration count octet
	Count uint8
}

// DecodeCount returns the number of octets hashed for a coded count
func DecodeCount(c uint8) int {
	return (16 + int(c&15)) << ((c >> 4) + 6)
}

// DeriveKey derives a key of keySize bytes from the passphrase.
// The n-th hash context is preloaded with n zero octets.
func (s *S2K) DeriveKey(passphrase []byte, keySize int) ([]byte, error) {
	switch s.Specifier {
	case S2KSimple, S2KSalted, S2KIterated:
	default:
		return nil, pgperr.New(pgperr.Unsupported, "unsupported S2K specifier %d", s.Specifier)
	}

	key := make([]byte, 0, keySize)
	var zero [1]byte
	for n := 0; len(key) < keySize; n++ {
		h, err := NewHash(s.Hash)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			_, _ = h.Write(zero[:])
		}

		switch s.Specifier {
		case S2KSimple:
			_, _ = h.Write(passphrase)
		case S2KSalted:
			_, _ = h.Write(s.Salt[:])
			_, _ = h.Write(passphrase)
		case S2KIterated:
			iterate(h, s.Salt[:], passphrase, DecodeCount(s.Count))
		}

		sum := h.Sum()
		need := keySize - len(key)
		if need > len(sum) {
			need = len(sum)
		}
		key = append(key, sum[:need]...)
	}
	return key, nil
}

// iterate hashes salt||passphrase repeatedly until count octets were
// written, at least one full copy is always hashed
func iterate(h Hash, salt, passphrase []byte, count int) {
	combined := make([]byte, 0, len(salt)+len(passphrase))
	combined = append(combined, salt...)
	combined = append(combined, passphrase...)
	if count < len(combined) {
		count = len(combined)
	}
	for count > len(combined) {
		_, _ = h.Write(combined)
		count -= len(combined)
	}
	_, _ = h.Write(combined[:count])
}
