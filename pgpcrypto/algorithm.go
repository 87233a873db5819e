package pgpcrypto

import (
	"fmt"
	"strings"
)

// HashAlgorithm is an OpenPGP hash algorithm id
type HashAlgorithm uint8

// Hash algorithms
const (
	HashMD5       HashAlgorithm = 1
	HashSHA1      HashAlgorithm = 2
	HashRIPEMD160 HashAlgorithm = 3
	HashSHA256    HashAlgorithm = 8
	HashSHA384    HashAlgorithm = 9
	HashSHA512    HashAlgorithm = 10
	HashSHA224    HashAlgorithm = 11
)

var hashNames = map[HashAlgorithm]string{
	HashMD5:       "MD5",
	HashSHA1:      "SHA1",
	HashRIPEMD160: "RIPEMD160",
	HashSHA256:    "SHA256",
	HashSHA384:    "SHA384",
	HashSHA512:    "SHA512",
	HashSHA224:    "SHA224",
}

func (h HashAlgorithm) String() string {
	if s, ok := hashNames[h]; ok {
		return s
	}
	return fmt.Sprintf("Unknown(%d)", uint8(h))
}

// ParseHashName returns the hash algorithm for an armour "Hash:" header value
func ParseHashName(name string) (HashAlgorithm, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for alg, n := range hashNames {
		if n == name {
			return alg, true
		}
	}
	return 0, false
}

// SymmetricAlgorithm is an OpenPGP symmetric cipher id
type SymmetricAlgorithm uint8

// Symmetric algorithms
const (
	SymmetricPlaintext SymmetricAlgorithm = 0
	SymmetricIDEA      SymmetricAlgorithm = 1
	SymmetricTripleDES SymmetricAlgorithm = 2
	SymmetricCAST5     SymmetricAlgorithm = 3
	SymmetricBlowfish  SymmetricAlgorithm = 4
	SymmetricAES128    SymmetricAlgorithm = 7
	SymmetricAES192    SymmetricAlgorithm = 8
	SymmetricAES256    SymmetricAlgorithm = 9
	SymmetricTwofish   SymmetricAlgorithm = 10
)

var symmetricNames = map[SymmetricAlgorithm]string{
	SymmetricPlaintext: "Plaintext",
	SymmetricIDEA:      "IDEA",
	SymmetricTripleDES: "TripleDES",
	SymmetricCAST5:     "CAST5",
	SymmetricBlowfish:  "Blowfish",
	SymmetricAES128:    "AES128",
	SymmetricAES192:    "AES192",
	SymmetricAES256:    "AES256",
	SymmetricTwofish:   "Twofish",
}

func (s SymmetricAlgorithm) String() string {
	if n, ok := symmetricNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(%d)", uint8(s))
}

// KeySize returns the key size in bytes, or 0 if unknown
func (s SymmetricAlgorithm) KeySize() int {
	switch s {
	case SymmetricIDEA, SymmetricCAST5, SymmetricBlowfish, SymmetricAES128:
		return 16
	case SymmetricTripleDES, SymmetricAES192:
		return 24
	case SymmetricAES256, SymmetricTwofish:
		return 32
	}
	return 0
}

// BlockSize returns the block size in bytes, or 0 if unknown
func (s SymmetricAlgorithm) BlockSize() int {
	switch s {
	case SymmetricIDEA, SymmetricTripleDES, SymmetricCAST5, SymmetricBlowfish:
		return 8
	case SymmetricAES128, SymmetricAES192, SymmetricAES256, SymmetricTwofish:
		return 16
	}
	return 0
}

// PublicKeyAlgorithm is an OpenPGP public key algorithm id
type PublicKeyAlgorithm uint8

// Public key algorithms
const (
	PubKeyRSA            PublicKeyAlgorithm = 1
	PubKeyRSAEncryptOnly PublicKeyAlgorithm = 2
	PubKeyRSASignOnly    PublicKeyAlgorithm = 3
	PubKeyElGamal        PublicKeyAlgorithm = 16
	PubKeyDSA            PublicKeyAlgorithm = 17
	PubKeyElGamalSign    PublicKeyAlgorithm = 20

	PubKeyPrivateFirst PublicKeyAlgorithm = 100
	PubKeyPrivateLast  PublicKeyAlgorithm = 110
)

var pubKeyNames = map[PublicKeyAlgorithm]string{
	PubKeyRSA:            "RSA",
	PubKeyRSAEncryptOnly: "RSA Encrypt-Only",
	PubKeyRSASignOnly:    "RSA Sign-Only",
	PubKeyElGamal:        "Elgamal",
	PubKeyDSA:            "DSA",
	PubKeyElGamalSign:    "Elgamal Encrypt-Or-Sign",
}

func (p PublicKeyAlgorithm) String() string {
	if n, ok := pubKeyNames[p]; ok {
		return n
	}
	if p.IsPrivate() {
		return fmt.Sprintf("Private/Experimental(%d)", uint8(p))
	}
	return fmt.Sprintf("Unknown(%d)", uint8(p))
}

// IsRSA returns true for any of the RSA ids
func (p PublicKeyAlgorithm) IsRSA() bool {
	return p == PubKeyRSA || p == PubKeyRSAEncryptOnly || p == PubKeyRSASignOnly
}

// IsElGamal returns true for any of the ElGamal ids
func (p PublicKeyAlgorithm) IsElGamal() bool {
	return p == PubKeyElGamal || p == PubKeyElGamalSign
}

// IsPrivate returns true for the private/experimental range
func (p PublicKeyAlgorithm) IsPrivate() bool {
	return p >= PubKeyPrivateFirst && p <= PubKeyPrivateLast
}

// CompressionAlgorithm is an OpenPGP compression id
type CompressionAlgorithm uint8

// Compression algorithms
const (
	CompressionNone  CompressionAlgorithm = 0
	CompressionZIP   CompressionAlgorithm = 1
	CompressionZLIB  CompressionAlgorithm = 2
	CompressionBZIP2 CompressionAlgorithm = 3
)

var compressionNames = map[CompressionAlgorithm]string{
	CompressionNone:  "Uncompressed",
	CompressionZIP:   "ZIP",
	CompressionZLIB:  "ZLIB",
	CompressionBZIP2: "BZIP2",
}

func (c CompressionAlgorithm) String() string {
	if n, ok := compressionNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(%d)", uint8(c))
}
