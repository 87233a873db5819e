package pgpcrypto

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/binary"
	"math/big"
)

// KeyIDSize is the size of a key id
const KeyIDSize = 8

// FingerprintV4 returns the SHA-1 fingerprint of a v4 public key body
// and the key id, which is its last eight octets
func FingerprintV4(body []byte) ([]byte, [KeyIDSize]byte) {
	h := sha1.New()
	var hdr [3]byte
	hdr[0] = 0x99
	binary.BigEndian.PutUint16(hdr[1:], uint16(len(body)))
	_, _ = h.Write(hdr[:])
	_, _ = h.Write(body)
	fp := h.Sum(nil)

	var id [KeyIDSize]byte
	copy(id[:], fp[len(fp)-KeyIDSize:])
	return fp, id
}

// FingerprintV3 returns the MD5 fingerprint of the RSA modulus and exponent
// and the key id, which is the low eight octets of the modulus
func FingerprintV3(n, e *big.Int) ([]byte, [KeyIDSize]byte) {
	nb := n.Bytes()
	h := md5.New()
	_, _ = h.Write(nb)
	_, _ = h.Write(e.Bytes())

	var id [KeyIDSize]byte
	if len(nb) >= KeyIDSize {
		copy(id[:], nb[len(nb)-KeyIDSize:])
	} else {
		copy(id[KeyIDSize-len(nb):], nb)
	}
	return h.Sum(nil), id
}
