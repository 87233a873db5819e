package pgpcrypto

import (
	"bytes"
	"crypto/dsa" //nolint:staticcheck
	"math/big"

	"github.com/effective-security/xpgp/pgperr"
)

// RSAPublicKey holds the public RSA parameters
type RSAPublicKey struct {
	N *big.Int
	E *big.Int
}

// RSASecretKey holds the secret RSA parameters
type RSASecretKey struct {
	D *big.Int
	P *big.Int
	Q *big.Int
	U *big.Int
}

// DSAPublicKey holds the public DSA parameters
type DSAPublicKey struct {
	P *big.Int
	Q *big.Int
	G *big.Int
	Y *big.Int
}

// DSASecretKey holds the secret DSA parameter
type DSASecretKey struct {
	X *big.Int
}

// ElGamalPublicKey holds the public ElGamal parameters
type ElGamalPublicKey struct {
	P *big.Int
	G *big.Int
	Y *big.Int
}

// ElGamalSecretKey holds the secret ElGamal parameter
type ElGamalSecretKey struct {
	X *big.Int
}

// DigestInfo prefixes of EMSA-PKCS1-v1_5 encoding
var digestInfoPrefix = map[HashAlgorithm][]byte{
	HashMD5:       {0x30, 0x20, 0x30, 0x0C, 0x06, 0x08, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x02, 0x05, 0x05, 0x00, 0x04, 0x10},
	HashSHA1:      {0x30, 0x21, 0x30, 0x09, 0x06, 0x05, 0x2b, 0x0E, 0x03, 0x02, 0x1A, 0x05, 0x00, 0x04, 0x14},
	HashRIPEMD160: {0x30, 0x21, 0x30, 0x09, 0x06, 0x05, 0x2B, 0x24, 0x03, 0x02, 0x01, 0x05, 0x00, 0x04, 0x14},
	HashSHA224:    {0x30, 0x2d, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x04, 0x05, 0x00, 0x04, 0x1c},
	HashSHA256:    {0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01, 0x05, 0x00, 0x04, 0x20},
	HashSHA384:    {0x30, 0x41, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x02, 0x05, 0x00, 0x04, 0x30},
	HashSHA512:    {0x30, 0x51, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x03, 0x05, 0x00, 0x04, 0x40},
}

// DigestInfoPrefix returns the DER prefix for the hash algorithm
func DigestInfoPrefix(alg HashAlgorithm) ([]byte, bool) {
	p, ok := digestInfoPrefix[alg]
	return p, ok
}

// RSAPublicRaw applies the raw public operation s^e mod n,
// the result is left padded to the modulus size
func RSAPublicRaw(pub *RSAPublicKey, s *big.Int) ([]byte, error) {
	if pub == nil || pub.N == nil || pub.E == nil || pub.N.Sign() <= 0 {
		return nil, pgperr.New(pgperr.UnsupportedPublicKey, "invalid RSA public key")
	}
	if s.Sign() < 0 || s.Cmp(pub.N) >= 0 {
		return nil, pgperr.New(pgperr.BadSignature, "RSA value out of range")
	}
	m := new(big.Int).Exp(s, pub.E, pub.N)
	return LeftPad(m.Bytes(), (pub.N.BitLen()+7)/8), nil
}

// RSAVerify checks a PKCS#1 v1.5 signature over the digest
func RSAVerify(pub *RSAPublicKey, alg HashAlgorithm, digest []byte, sig *big.Int) bool {
	prefix, ok := digestInfoPrefix[alg]
	if !ok || sig == nil {
		return false
	}
	em, err := RSAPublicRaw(pub, sig)
	if err != nil {
		return false
	}

	keysize := len(em)
	plen := len(prefix)
	hlen := len(digest)
	if keysize-plen-hlen < 10 {
		return false
	}
	if em[0] != 0 || em[1] != 1 {
		return false
	}
	n := 2
	for ; n < keysize-plen-hlen-1; n++ {
		if em[n] != 0xff {
			return false
		}
	}
	if em[n] != 0 {
		return false
	}
	n++
	if !bytes.Equal(em[n:n+plen], prefix) {
		return false
	}
	return bytes.Equal(em[n+plen:], digest)
}

// DSAVerify checks a DSA signature over the digest,
// the digest is truncated to the size of the subgroup
func DSAVerify(pub *DSAPublicKey, digest []byte, r, s *big.Int) bool {
	if pub == nil || pub.Q == nil || r == nil || s == nil {
		return false
	}
	qlen := (pub.Q.BitLen() + 7) / 8
	if len(digest) > qlen {
		digest = digest[:qlen]
	}
	key := &dsa.PublicKey{
		Parameters: dsa.Parameters{P: pub.P, Q: pub.Q, G: pub.G},
		Y:          pub.Y,
	}
	return dsa.Verify(key, digest, r, s)
}

// RSAPrivateRaw applies the raw private operation c^d mod n,
// the result is left padded to the modulus size
func RSAPrivateRaw(pub *RSAPublicKey, sec *RSASecretKey, c *big.Int) ([]byte, error) {
	if pub == nil || sec == nil || sec.D == nil {
		return nil, pgperr.New(pgperr.UnsupportedPublicKey, "invalid RSA secret key")
	}
	if c.Sign() < 0 || c.Cmp(pub.N) >= 0 {
		return nil, pgperr.New(pgperr.Fail, "RSA value out of range")
	}
	m := new(big.Int).Exp(c, sec.D, pub.N)
	return LeftPad(m.Bytes(), (pub.N.BitLen()+7)/8), nil
}

// ElGamalDecryptRaw returns m = c2 / c1^x mod p,
// the result is left padded to the size of p
func ElGamalDecryptRaw(pub *ElGamalPublicKey, sec *ElGamalSecretKey, c1, c2 *big.Int) ([]byte, error) {
	if pub == nil || sec == nil || sec.X == nil {
		return nil, pgperr.New(pgperr.UnsupportedPublicKey, "invalid ElGamal secret key")
	}
	s := new(big.Int).Exp(c1, sec.X, pub.P)
	if s.ModInverse(s, pub.P) == nil {
		return nil, pgperr.New(pgperr.Fail, "ElGamal decryption error")
	}
	m := s.Mul(s, c2)
	m.Mod(m, pub.P)
	return LeftPad(m.Bytes(), (pub.P.BitLen()+7)/8), nil
}

// DecodeEME removes EME-PKCS1-v1_5 padding:
// 0x00 0x02, at least eight nonzero octets, 0x00, message
func DecodeEME(em []byte) ([]byte, error) {
	if len(em) < 2 || em[0] != 0 || em[1] != 2 {
		return nil, pgperr.New(pgperr.Fail, "invalid EME-PKCS1-v1_5 encoding")
	}
	i := 2
	for i < len(em) && em[i] != 0 {
		i++
	}
	if i == len(em) || i < 10 {
		return nil, pgperr.New(pgperr.Fail, "invalid EME-PKCS1-v1_5 padding")
	}
	return em[i+1:], nil
}

// SessionKeyChecksum returns the sum of the key octets mod 65536, big endian
func SessionKeyChecksum(key []byte) [2]byte {
	var sum uint16
	for _, b := range key {
		sum += uint16(b)
	}
	return [2]byte{byte(sum >> 8), byte(sum)}
}
