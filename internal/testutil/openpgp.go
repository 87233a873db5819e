// Package testutil provides OpenPGP fixtures for the package tests.
//
// Keys, signatures and session keys are produced with golang.org/x/crypto/openpgp,
// which writes MPI bit counts as eight times the octet count. The helpers
// re-encode those MPIs with their exact bit count, as the parser requires.
package testutil

import (
	"bytes"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xpgp/packet"
	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/clearsign"
	xpacket "golang.org/x/crypto/openpgp/packet"
	"golang.org/x/crypto/openpgp/s2k"
)

// RSABits is the size of the generated test keys
const RSABits = 1024

// NewEntity returns an RSA signing key with an RSA encryption subkey
func NewEntity(t testing.TB, name, comment, email string) *openpgp.Entity {
	t.Helper()
	e, err := openpgp.NewEntity(name, comment, email, &xpacket.Config{RSABits: RSABits})
	require.NoError(t, err)
	return e
}

// Canonical re-encodes the MPIs of the signature and public key session
// key packets in data. Other packets are copied unchanged.
func Canonical(t testing.TB, data []byte) []byte {
	t.Helper()
	out, err := canonical(data)
	require.NoError(t, err)
	return out
}

func canonical(data []byte) ([]byte, error) {
	var out []byte
	for len(data) > 0 {
		r := bytes.NewReader(data[1:])
		pt, err := packet.ReadHeader(r, data[0])
		if err != nil {
			return nil, err
		}
		if pt.Indeterminate {
			return nil, errors.New("indeterminate length")
		}
		hdr := len(data) - r.Len()
		end := hdr + int(pt.Length)
		if end > len(data) {
			return nil, errors.Errorf("truncated packet %s", pt.ContentTag)
		}
		body := data[hdr:end]

		offset := -1
		switch pt.ContentTag {
		case packet.TagSignature:
			offset, err = signatureMPIs(body)
		case packet.TagPKSessionKey:
			// version, key id, algorithm
			offset = 10
		}
		if err != nil {
			return nil, err
		}

		if offset < 0 {
			out = append(out, data[:end]...)
		} else {
			b, err := appendMPIs(append([]byte(nil), body[:offset]...), body[offset:])
			if err != nil {
				return nil, err
			}
			out = packet.AppendNewHeader(out, pt.ContentTag, uint32(len(b)))
			out = append(out, b...)
		}
		data = data[end:]
	}
	return out, nil
}

// signatureMPIs returns the offset of the MPIs in a signature body
func signatureMPIs(body []byte) (int, error) {
	if len(body) == 0 {
		return 0, errors.New("empty signature")
	}
	switch body[0] {
	case 3:
		return 19, nil
	case 4:
		off := 4
		for range 2 {
			if len(body) < off+2 {
				return 0, errors.New("short signature")
			}
			off += 2 + int(binary.BigEndian.Uint16(body[off:]))
		}
		return off + 2, nil
	}
	return 0, errors.Errorf("unsupported signature version %d", body[0])
}

func appendMPIs(dst, src []byte) ([]byte, error) {
	for len(src) > 0 {
		if len(src) < 2 {
			return nil, errors.New("short MPI")
		}
		n := pgpcrypto.MPIByteLength(binary.BigEndian.Uint16(src))
		if len(src) < 2+n {
			return nil, errors.New("truncated MPI")
		}
		dst = pgpcrypto.AppendMPI(dst, new(big.Int).SetBytes(src[2:2+n]))
		src = src[2+n:]
	}
	return dst, nil
}

// Serialize returns the public keys of the entity
func Serialize(t testing.TB, e *openpgp.Entity) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, e.Serialize(&buf))
	return Canonical(t, buf.Bytes())
}

// SerializePrivate returns the unprotected secret keys of the entity
func SerializePrivate(t testing.TB, e *openpgp.Entity) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, e.SerializePrivate(&buf, nil))
	return Canonical(t, buf.Bytes())
}

// DetachSign returns a binary detached signature of data
func DetachSign(t testing.TB, e *openpgp.Entity, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, openpgp.DetachSign(&buf, e, bytes.NewReader(data), nil))
	return Canonical(t, buf.Bytes())
}

// DetachSignText returns a detached canonical text signature of data
func DetachSignText(t testing.TB, e *openpgp.Entity, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, openpgp.DetachSignText(&buf, e, bytes.NewReader(data), nil))
	return Canonical(t, buf.Bytes())
}

// ArmoredDetachSign returns an armoured detached signature of data
func ArmoredDetachSign(t testing.TB, e *openpgp.Entity, data []byte) []byte {
	t.Helper()
	return Armor(t, openpgp.SignatureType, DetachSign(t, e, data))
}

// Armor wraps data in an armour block of the given type
func Armor(t testing.TB, blockType string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, blockType, nil)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	buf.WriteByte('\n')
	return buf.Bytes()
}

// ClearSign returns a cleartext signed message of text
func ClearSign(t testing.TB, e *openpgp.Entity, text []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := clearsign.Encode(&buf, e.PrivateKey, nil)
	require.NoError(t, err)
	_, err = w.Write(text)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	signed := buf.Bytes()
	block, _ := clearsign.Decode(signed)
	require.NotNil(t, block)
	var sig bytes.Buffer
	_, err = sig.ReadFrom(block.ArmoredSignature.Body)
	require.NoError(t, err)

	idx := bytes.Index(signed, []byte("-----BEGIN PGP SIGNATURE-----"))
	require.Positive(t, idx)
	out := append([]byte(nil), signed[:idx]...)
	return append(out, Armor(t, openpgp.SignatureType, Canonical(t, sig.Bytes()))...)
}

// EncryptedKey returns a public key session key packet for an AES-128
// session key
func EncryptedKey(t testing.TB, pub *xpacket.PublicKey, sessionKey []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, xpacket.SerializeEncryptedKey(&buf, pub, xpacket.CipherAES128, sessionKey, nil))
	return Canonical(t, buf.Bytes())
}

// EncryptedSecretKey returns the primary key of the entity as a v4 secret
// key packet protected with AES-128 and an iterated SHA-1 S2K
func EncryptedSecretKey(t testing.TB, e *openpgp.Entity, passphrase []byte) []byte {
	t.Helper()
	priv, ok := e.PrivateKey.PrivateKey.(*rsa.PrivateKey)
	require.True(t, ok)

	var pub bytes.Buffer
	require.NoError(t, e.PrimaryKey.Serialize(&pub))
	pt, err := packet.ReadHeader(bytes.NewReader(pub.Bytes()[1:]), pub.Bytes()[0])
	require.NoError(t, err)
	body := append([]byte(nil), pub.Bytes()[pub.Len()-int(pt.Length):]...)

	var mpis []byte
	u := new(big.Int).ModInverse(priv.Primes[0], priv.Primes[1])
	for _, n := range []*big.Int{priv.D, priv.Primes[0], priv.Primes[1], u} {
		mpis = pgpcrypto.AppendMPI(mpis, n)
	}
	check := sha1.Sum(mpis)
	plain := append(mpis, check[:]...)

	var spec bytes.Buffer
	key := make([]byte, 16)
	require.NoError(t, s2k.Serialize(&spec, key, rand.Reader, passphrase, &s2k.Config{Hash: crypto.SHA1, S2KCount: 65536}))

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	iv := make([]byte, 16)
	_, err = rand.Read(iv)
	require.NoError(t, err)
	ct := make([]byte, len(plain))
	cipher.NewCFBEncrypter(block, iv).XORKeyStream(ct, plain)

	body = append(body, 254, byte(pgpcrypto.SymmetricAES128))
	body = append(body, spec.Bytes()...)
	body = append(body, iv...)
	body = append(body, ct...)
	return append(packet.AppendNewHeader(nil, packet.TagSecretKey, uint32(len(body))), body...)
}
