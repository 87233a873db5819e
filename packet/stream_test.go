package packet_test

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
	"testing"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/effective-security/xpgp/internal/testutil"
	"github.com/effective-security/xpgp/packet"
	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/openpgp"
	xpacket "golang.org/x/crypto/openpgp/packet"
)

func TestParsePublicKeyring(t *testing.T) {
	e := testEntity(t)
	data := testutil.Serialize(t, e)

	_, c, err := parse(data, nil)
	require.NoError(t, err)

	assert.Equal(t, []packet.Tag{
		packet.TagPublicKey,
		packet.TagUserID,
		packet.TagSignatureHeader,
		packet.TagSignatureFooter,
		packet.TagPublicSubkey,
		packet.TagSignatureHeader,
		packet.TagSignatureFooter,
	}, c.tags())

	pub := c.find(packet.TagPublicKey)[0].Content.(*packet.PublicKey)
	assert.Equal(t, uint8(4), pub.Version)
	assert.False(t, pub.Subkey)
	assert.Equal(t, pgpcrypto.PubKeyRSA, pub.Algorithm)
	fp, id := pub.Fingerprint()
	assert.Equal(t, e.PrimaryKey.Fingerprint[:], fp)
	assert.Equal(t, keyID(e.PrimaryKey.KeyId), id)
	assert.Equal(t, e.PrimaryKey.PublicKey.(*rsa.PublicKey).N, pub.RSA.N)

	sub := c.find(packet.TagPublicSubkey)[0].Content.(*packet.PublicKey)
	assert.True(t, sub.Subkey)
	assert.Equal(t, keyID(e.Subkeys[0].PublicKey.KeyId), sub.KeyID())

	uid := c.find(packet.TagUserID)[0].Content.(*packet.UserID)
	assert.Equal(t, "Test User (xpgp) <test@example.com>", uid.ID)

	sig := c.find(packet.TagSignatureFooter)[0].Content.(*packet.Signature)
	assert.Equal(t, packet.SigPositiveCert, sig.Type)
	assert.True(t, sig.SignerSet)
	assert.Equal(t, keyID(e.PrimaryKey.KeyId), sig.SignerID)
	assert.True(t, sig.CreationTimeSet)
	assert.Equal(t, byte(4), sig.V4Hashed[0])
	assert.Equal(t, byte(packet.SigPositiveCert), sig.V4Hashed[1])

	assert.NotEmpty(t, c.find(packet.SubpacketCreationTime))
	assert.NotEmpty(t, c.find(packet.SubpacketIssuer))
	assert.NotEmpty(t, c.find(packet.SubpacketKeyFlags))

	// the raw octets of all packets add up to the input
	var raw []byte
	for _, p := range c.find(packet.TagPacketEnd) {
		raw = append(raw, p.Content.(*packet.PacketEnd).Raw...)
	}
	assert.Equal(t, data, raw)

	ptags := c.find(packet.TagPTag)
	require.Len(t, ptags, 5)
	assert.Equal(t, uint64(0), ptags[0].Content.(*packet.PTag).Position)
	assert.Greater(t, ptags[1].Content.(*packet.PTag).Position, uint64(0))
}

func TestParseSignedMessage(t *testing.T) {
	e := testEntity(t)
	data := []byte("signed content\n")
	msg := signedMessage(t, e, data)

	s, c, err := parse(msg, nil)
	require.NoError(t, err)
	assert.Equal(t, []packet.Tag{
		packet.TagOnePassSignature,
		packet.TagLiteralDataHeader,
		packet.TagLiteralDataBody,
		packet.TagSignatureHeader,
		packet.TagSignatureFooter,
	}, c.tags())

	ops := c.find(packet.TagOnePassSignature)[0].Content.(*packet.OnePassSignature)
	assert.Equal(t, keyID(e.PrimaryKey.KeyId), ops.KeyID)
	assert.Equal(t, pgpcrypto.HashSHA256, ops.HashAlgorithm)
	assert.True(t, ops.Nested)

	hdr := c.find(packet.TagLiteralDataHeader)[0].Content.(*packet.LiteralDataHeader)
	assert.Equal(t, byte('b'), hdr.Format)
	assert.Equal(t, "data.txt", hdr.Filename)
	assert.Equal(t, data, c.body(packet.TagLiteralDataBody))

	h := s.FindHash(ops.KeyID)
	require.NotNil(t, h)
	expected := sha256.Sum256(data)
	assert.Equal(t, expected[:], h.Sum())
	assert.Nil(t, s.FindHash([8]byte{}))

	sig := c.find(packet.TagSignatureFooter)[0].Content.(*packet.Signature)
	assert.Equal(t, packet.SigBinary, sig.Type)
	assert.Equal(t, pgpcrypto.HashSHA256, sig.HashAlgorithm)
	assert.Equal(t, keyID(e.PrimaryKey.KeyId), sig.SignerID)

	// V4Hashed covers exactly what the signer hashed
	d := sha256.New()
	d.Write(data)
	d.Write(sig.V4Hashed)
	d.Write([]byte{0x04, 0xff})
	d.Write(binary.BigEndian.AppendUint32(nil, uint32(len(sig.V4Hashed))))
	digest := d.Sum(nil)
	assert.Equal(t, digest[:2], sig.Hash2[:])

	pub := e.PrimaryKey.PublicKey.(*rsa.PublicKey)
	assert.True(t, pgpcrypto.RSAVerify(&pgpcrypto.RSAPublicKey{N: pub.N, E: big.NewInt(int64(pub.E))},
		pgpcrypto.HashSHA256, digest, sig.RSA))
}

func TestParseStreamedMessage(t *testing.T) {
	e := testEntity(t)
	var buf bytes.Buffer
	w, err := openpgp.Sign(&buf, e, nil, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// partial body lengths are not supported
	s, c, err := parse(buf.Bytes(), nil)
	require.Error(t, err)
	assert.True(t, s.Errors().Has(pgperr.Unimplemented))
	assert.Equal(t, []packet.Tag{packet.TagOnePassSignature}, c.tags())
	assert.Len(t, c.find(packet.TagParserError), 1)
}

func TestParseSecretKeyring(t *testing.T) {
	e := testEntity(t)
	_, c, err := parse(testutil.SerializePrivate(t, e), nil)
	require.NoError(t, err)

	sks := c.find(packet.TagSecretKey)
	require.Len(t, sks, 1)
	sk := sks[0].Content.(*packet.SecretKey)
	assert.False(t, sk.Encrypted())
	assert.Equal(t, keyID(e.PrimaryKey.KeyId), sk.KeyID())
	assert.Equal(t, e.PrivateKey.PrivateKey.(*rsa.PrivateKey).D, sk.RSA.D)

	subs := c.find(packet.TagSecretSubkey)
	require.Len(t, subs, 1)
	sub := subs[0].Content.(*packet.SecretKey)
	assert.True(t, sub.Subkey)
	assert.Equal(t, keyID(e.Subkeys[0].PublicKey.KeyId), sub.KeyID())
}

func TestParseEncryptedSecretKey(t *testing.T) {
	e := testEntity(t)
	priv := e.PrivateKey.PrivateKey.(*rsa.PrivateKey)
	pkt := testutil.EncryptedSecretKey(t, e, []byte("secret"))

	t.Run("no passphrase", func(t *testing.T) {
		_, c, err := parse(pkt, nil)
		require.NoError(t, err)
		assert.Equal(t, []packet.Tag{packet.TagEncryptedSecretKey}, c.tags())
		sk := c.find(packet.TagEncryptedSecretKey)[0].Content.(*packet.SecretKey)
		assert.True(t, sk.Encrypted())
		assert.Equal(t, packet.S2KUsageSHA1, sk.S2KUsage)
		assert.Equal(t, pgpcrypto.SymmetricAES128, sk.Symmetric)
		assert.Equal(t, pgpcrypto.S2KIterated, sk.S2K.Specifier)
		assert.Equal(t, pgpcrypto.HashSHA1, sk.S2K.Hash)
		assert.Len(t, sk.IV, 16)
		assert.Nil(t, sk.RSA)
	})

	t.Run("passphrase", func(t *testing.T) {
		opts := &packet.Options{Accumulate: true, Upcalls: &upcalls{passphrase: []byte("secret")}}
		_, c, err := parse(pkt, opts)
		require.NoError(t, err)
		sks := c.find(packet.TagSecretKey)
		require.Len(t, sks, 1)
		sk := sks[0].Content.(*packet.SecretKey)
		assert.Equal(t, priv.D, sk.RSA.D)
		assert.Equal(t, priv.Primes[0], sk.RSA.P)
		assert.Len(t, sk.CheckHash, 20)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		opts := &packet.Options{Accumulate: true, Upcalls: &upcalls{passphrase: []byte("wrong")}}
		s, c, err := parse(pkt, opts)
		require.Error(t, err)
		assert.Empty(t, c.find(packet.TagSecretKey))
		assert.Len(t, *s.Errors(), 1)
		// the stack is restored
		assert.Equal(t, 1, s.Reader().Depth())
	})
}

func TestParseSessionKeyAndSEIP(t *testing.T) {
	e := testEntity(t)
	_, kc, err := parse(testutil.SerializePrivate(t, e), nil)
	require.NoError(t, err)
	var keys []*packet.SecretKey
	for _, p := range append(kc.find(packet.TagSecretKey), kc.find(packet.TagSecretSubkey)...) {
		keys = append(keys, p.Content.(*packet.SecretKey))
	}

	data := []byte("integrity protected literal data")
	sessionKey := randBytes(t, 16)

	message := func(tamper bool) []byte {
		var buf bytes.Buffer
		buf.Write(testutil.EncryptedKey(t, e.Subkeys[0].PublicKey, sessionKey))

		prefix := randBytes(t, 16)
		plain := append(prefix, prefix[14:]...)
		plain = append(plain, literalPacket("", data)...)
		plain = append(plain, 0xD3, 0x14)
		mdc := sha1.Sum(plain)
		plain = append(plain, mdc[:]...)
		if tamper {
			plain[len(plain)-1] ^= 0x80
		}

		block, err := aes.NewCipher(sessionKey)
		require.NoError(t, err)
		ct := make([]byte, len(plain))
		cipher.NewCFBEncrypter(block, make([]byte, 16)).XORKeyStream(ct, plain)

		buf.Write(newPacket(packet.TagSEIPData, append([]byte{1}, ct...)))
		return buf.Bytes()
	}

	t.Run("decrypt", func(t *testing.T) {
		opts := &packet.Options{Accumulate: true, Upcalls: &upcalls{keys: keys}}
		s, c, err := parse(message(false), opts)
		require.NoError(t, err)
		assert.Equal(t, []packet.Tag{
			packet.TagPKSessionKey,
			packet.TagSEIPDataHeader,
			packet.TagLiteralDataHeader,
			packet.TagLiteralDataBody,
		}, c.tags())

		pk := c.find(packet.TagPKSessionKey)[0].Content.(*packet.PKSessionKey)
		assert.Equal(t, sessionKey, pk.Key)
		assert.Equal(t, pgpcrypto.SymmetricAES128, pk.Symmetric)
		assert.Equal(t, keyID(e.Subkeys[0].PublicKey.KeyId), pk.KeyID)
		assert.NotNil(t, s.Cipher())
		assert.Equal(t, data, c.body(packet.TagLiteralDataBody))
	})

	t.Run("tampered", func(t *testing.T) {
		opts := &packet.Options{Accumulate: true, Upcalls: &upcalls{keys: keys}}
		s, c, err := parse(message(true), opts)
		require.Error(t, err)
		assert.True(t, s.Errors().Has(pgperr.BadHash))
		assert.Empty(t, c.find(packet.TagLiteralDataBody))
		assert.Equal(t, 1, s.Reader().Depth())
	})

	t.Run("no key", func(t *testing.T) {
		_, c, err := parse(message(false), nil)
		require.NoError(t, err)
		assert.Equal(t, packet.TagEncryptedPKSessionKey, c.tags()[0])
		assert.NotEmpty(t, c.body(packet.TagSEIPDataBody))
		assert.Empty(t, c.find(packet.TagLiteralDataBody))
	})
}

func TestParseSKSessionKeyAndSEData(t *testing.T) {
	passphrase := []byte("password")
	var buf bytes.Buffer
	key, err := xpacket.SerializeSymmetricKeyEncrypted(&buf, passphrase, &xpacket.Config{DefaultCipher: xpacket.CipherAES128})
	require.NoError(t, err)

	data := []byte("symmetrically encrypted literal data")
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	stream, prefix := xpacket.NewOCFBEncrypter(block, randBytes(t, 16), xpacket.OCFBResync)
	inner := literalPacket("x", data)
	ct := make([]byte, len(inner))
	stream.XORKeyStream(ct, inner)
	buf.Write(newPacket(packet.TagSEData, append(prefix, ct...)))

	t.Run("passphrase", func(t *testing.T) {
		opts := &packet.Options{Accumulate: true, Upcalls: &upcalls{passphrase: passphrase}}
		_, c, err := parse(buf.Bytes(), opts)
		require.NoError(t, err)
		assert.Equal(t, []packet.Tag{
			packet.TagSKSessionKey,
			packet.TagSEDataHeader,
			packet.TagLiteralDataHeader,
			packet.TagLiteralDataBody,
		}, c.tags())
		sk := c.find(packet.TagSKSessionKey)[0].Content.(*packet.SKSessionKey)
		assert.Equal(t, key, sk.Key)
		assert.Equal(t, data, c.body(packet.TagLiteralDataBody))

		// the decryption prefix is not part of the inner packet
		ends := c.find(packet.TagPacketEnd)
		require.Len(t, ends, 3)
		assert.Equal(t, inner, ends[1].Content.(*packet.PacketEnd).Raw)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		opts := &packet.Options{Accumulate: true, Upcalls: &upcalls{passphrase: []byte("wrong")}}
		s, c, err := parse(buf.Bytes(), opts)
		require.Error(t, err)
		assert.True(t, s.Errors().Has(pgperr.BadSymmetricDecrypt))
		sks := c.find(packet.TagSKSessionKey)
		require.Len(t, sks, 1)
		assert.Empty(t, c.find(packet.TagLiteralDataBody))
		assert.Equal(t, 1, s.Reader().Depth())
		// the garbage algorithm octet rarely names a cipher with a matching
		// key size, the quick check of the data fails then
		if sks[0].Content.(*packet.SKSessionKey).Key == nil {
			assert.Equal(t, []packet.Tag{
				packet.TagSKSessionKey,
				packet.TagSEDataHeader,
				packet.TagSEDataBody,
			}, c.tags())
			assert.Nil(t, s.Cipher())
		}
	})

	t.Run("undecryptable session key", func(t *testing.T) {
		s2k := pgpcrypto.S2K{Specifier: pgpcrypto.S2KSimple, Hash: pgpcrypto.HashSHA1}
		kek, err := s2k.DeriveKey(passphrase, 16)
		require.NoError(t, err)
		block, err := aes.NewCipher(kek)
		require.NoError(t, err)
		plain := append([]byte{99}, randBytes(t, 16)...)
		ek := make([]byte, len(plain))
		cipher.NewCFBEncrypter(block, make([]byte, 16)).XORKeyStream(ek, plain)

		body := []byte{4, byte(pgpcrypto.SymmetricAES128), byte(pgpcrypto.S2KSimple), byte(pgpcrypto.HashSHA1)}
		msg := newPacket(packet.TagSKSessionKey, append(body, ek...))
		msg = append(msg, newPacket(packet.TagSEData, append(prefix, ct...))...)

		opts := &packet.Options{Accumulate: true, Upcalls: &upcalls{passphrase: passphrase}}
		s, c, err := parse(msg, opts)
		require.Error(t, err)
		assert.EqualError(t, err, "BadSymmetricDecrypt: Bad passphrase for symmetric-key encrypted session key")
		assert.Equal(t, []pgperr.Code{pgperr.BadSymmetricDecrypt}, s.Errors().Codes())
		assert.Len(t, c.find(packet.TagParserError), 1)
		assert.Equal(t, []packet.Tag{
			packet.TagSKSessionKey,
			packet.TagSEDataHeader,
			packet.TagSEDataBody,
		}, c.tags())
		sk := c.find(packet.TagSKSessionKey)[0].Content.(*packet.SKSessionKey)
		assert.Nil(t, sk.Key)
		assert.Equal(t, ek, sk.EncryptedKey)
		assert.Equal(t, append(prefix, ct...), c.body(packet.TagSEDataBody))
		assert.Nil(t, s.Cipher())
	})

	t.Run("no passphrase", func(t *testing.T) {
		_, c, err := parse(buf.Bytes(), nil)
		require.NoError(t, err)
		assert.Equal(t, []packet.Tag{
			packet.TagSKSessionKey,
			packet.TagSEDataHeader,
			packet.TagSEDataBody,
		}, c.tags())
		assert.Equal(t, append(prefix, ct...), c.body(packet.TagSEDataBody))
	})
}

func TestParseCompressed(t *testing.T) {
	data := bytes.Repeat([]byte("compressed literal "), 1000)
	inner := literalPacket("c.txt", data)

	for _, alg := range []pgpcrypto.CompressionAlgorithm{
		pgpcrypto.CompressionNone,
		pgpcrypto.CompressionZIP,
		pgpcrypto.CompressionBZIP2,
	} {
		t.Run(alg.String(), func(t *testing.T) {
			var z bytes.Buffer
			switch alg {
			case pgpcrypto.CompressionZIP:
				w, err := flate.NewWriter(&z, flate.BestSpeed)
				require.NoError(t, err)
				_, _ = w.Write(inner)
				require.NoError(t, w.Close())
			case pgpcrypto.CompressionBZIP2:
				w, err := bzip2.NewWriter(&z, nil)
				require.NoError(t, err)
				_, _ = w.Write(inner)
				require.NoError(t, w.Close())
			default:
				z.Write(inner)
			}
			msg := newPacket(packet.TagCompressed, append([]byte{byte(alg)}, z.Bytes()...))

			s, c, err := parse(msg, nil)
			require.NoError(t, err)
			assert.Equal(t, packet.TagCompressed, c.tags()[0])
			assert.Equal(t, alg, c.find(packet.TagCompressed)[0].Content.(*packet.Compressed).Algorithm)
			assert.Equal(t, data, c.body(packet.TagLiteralDataBody))
			assert.Equal(t, 1, s.Reader().Depth())

			ends := c.find(packet.TagPacketEnd)
			require.Len(t, ends, 2)
			assert.Equal(t, inner, ends[0].Content.(*packet.PacketEnd).Raw)
			assert.Equal(t, msg, ends[1].Content.(*packet.PacketEnd).Raw)
		})
	}

	t.Run("ended before packet end", func(t *testing.T) {
		var z bytes.Buffer
		w, err := flate.NewWriter(&z, flate.BestSpeed)
		require.NoError(t, err)
		_, _ = w.Write(inner)
		require.NoError(t, w.Close())
		z.WriteString("trailing")
		msg := newPacket(packet.TagCompressed, append([]byte{byte(pgpcrypto.CompressionZIP)}, z.Bytes()...))

		s, c, err := parse(msg, nil)
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.DecompressionError}, s.Errors().Codes())
		pe := c.find(packet.TagParserError)
		require.Len(t, pe, 1)
		assert.Equal(t, pgperr.DecompressionError, pgperr.CodeOf(pe[0].Content.(*packet.ParserError).Err))
		assert.Equal(t, data, c.body(packet.TagLiteralDataBody))
		assert.Equal(t, 1, s.Reader().Depth())
	})

	t.Run("unsupported", func(t *testing.T) {
		msg := newPacket(packet.TagCompressed, []byte{9, 1, 2, 3})
		msg = append(msg, literalPacket("", []byte("next"))...)
		s, c, err := parse(msg, nil)
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.UnsupportedCompress}, s.Errors().Codes())
		assert.Equal(t, []byte("next"), c.body(packet.TagLiteralDataBody))
	})
}

func TestParseIndeterminate(t *testing.T) {
	body := []byte{'t', 0, 0, 0, 0, 0}
	body = append(body, "to the end of the input"...)
	msg := append(packet.AppendOldHeader(nil, packet.TagLiteralData, 0, true), body...)

	_, c, err := parse(msg, nil)
	require.NoError(t, err)
	assert.Equal(t, "to the end of the input", string(c.body(packet.TagLiteralDataBody)))
	assert.True(t, c.find(packet.TagPTag)[0].Content.(*packet.PTag).Indeterminate)
}

func TestParseErrors(t *testing.T) {
	next := literalPacket("", []byte("next"))

	t.Run("ptag bit", func(t *testing.T) {
		msg := append([]byte{0x00}, next...)
		s, c, err := parse(msg, nil)
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.BadFormat}, s.Errors().Codes())
		assert.Equal(t, []byte("next"), c.body(packet.TagLiteralDataBody))
		pe := c.find(packet.TagParserError)
		require.Len(t, pe, 1)
		assert.Equal(t, pgperr.BadFormat, pgperr.CodeOf(pe[0].Content.(*packet.ParserError).Err))
	})

	t.Run("unknown tag", func(t *testing.T) {
		msg := append(newPacket(60, []byte("abc")), next...)
		s, c, err := parse(msg, nil)
		require.Error(t, err)
		assert.EqualError(t, err, "UnknownTag: Unknown content tag 0x3c")
		assert.Equal(t, []pgperr.Code{pgperr.UnknownTag}, s.Errors().Codes())
		assert.Equal(t, []byte("next"), c.body(packet.TagLiteralDataBody))
	})

	t.Run("truncated", func(t *testing.T) {
		msg := literalPacket("", []byte("0123456789"))
		s, _, err := parse(msg[:len(msg)-4], nil)
		require.Error(t, err)
		assert.True(t, s.Errors().Has(pgperr.EarlyEOF))
		assert.True(t, s.Errors().Has(pgperr.PacketNotConsumed))
	})

	t.Run("indeterminate not consumed", func(t *testing.T) {
		msg := append(packet.AppendOldHeader(nil, packet.TagPublicKey, 0, true), 5, 0, 0, 0, 0, 1)
		s, _, err := parse(msg, nil)
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.BadPublicKeyVersion, pgperr.PacketNotConsumed}, s.Errors().Codes())
		assert.Equal(t, 1, s.Reader().Depth())
	})

	t.Run("bad signature version", func(t *testing.T) {
		msg := append(newPacket(packet.TagSignature, []byte{5, 0, 1, 2}), next...)
		s, c, err := parse(msg, nil)
		require.Error(t, err)
		assert.EqualError(t, err, "BadSignatureVersion: Bad signature version (5)")
		assert.Equal(t, []pgperr.Code{pgperr.BadSignatureVersion}, s.Errors().Codes())
		assert.Equal(t, []byte("next"), c.body(packet.TagLiteralDataBody))
	})

	t.Run("bad public key version", func(t *testing.T) {
		s, _, err := parse(newPacket(packet.TagPublicKey, []byte{5, 0, 0, 0, 0, 1}), nil)
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.BadPublicKeyVersion}, s.Errors().Codes())
	})

	t.Run("bad one-pass version", func(t *testing.T) {
		s, _, err := parse(newPacket(packet.TagOnePassSignature, make([]byte, 13)), nil)
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.BadOnePassSigVersion}, s.Errors().Codes())
	})

	t.Run("unconsumed", func(t *testing.T) {
		body := append(v3PublicKeyBody(), 0xAA)
		s, c, err := parse(newPacket(packet.TagPublicKey, body), nil)
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.UnconsumedData}, s.Errors().Codes())
		assert.Empty(t, c.find(packet.TagPublicKey))
	})

	t.Run("v4 signature needs accumulate", func(t *testing.T) {
		sig := testutil.DetachSign(t, testEntity(t), nil)
		s, _, err := parse(sig, &packet.Options{})
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.Fail}, s.Errors().Codes())
	})
}

func v3PublicKeyBody() []byte {
	n := new(big.Int).SetBytes([]byte{0xC1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	body := []byte{3, 0x5f, 0, 0, 0, 0, 30, byte(pgpcrypto.PubKeyRSA)}
	body = pgpcrypto.AppendMPI(body, n)
	return pgpcrypto.AppendMPI(body, big.NewInt(65537))
}

func TestParseV3(t *testing.T) {
	t.Run("public key", func(t *testing.T) {
		_, c, err := parse(newPacket(packet.TagPublicKey, v3PublicKeyBody()), nil)
		require.NoError(t, err)
		pub := c.find(packet.TagPublicKey)[0].Content.(*packet.PublicKey)
		assert.Equal(t, uint8(3), pub.Version)
		assert.Equal(t, uint16(30), pub.DaysValid)
		assert.Equal(t, [8]byte{5, 6, 7, 8, 9, 10, 11, 12}, pub.KeyID())
		assert.Equal(t, v3PublicKeyBody(), pub.Body())
	})

	t.Run("signature", func(t *testing.T) {
		body := []byte{3, 5, byte(packet.SigText), 0x5f, 0, 0, 1, 1, 2, 3, 4, 5, 6, 7, 8,
			byte(pgpcrypto.PubKeyRSA), byte(pgpcrypto.HashSHA1), 0xab, 0xcd}
		body = pgpcrypto.AppendMPI(body, big.NewInt(0x1234))
		_, c, err := parse(newPacket(packet.TagSignature, body), nil)
		require.NoError(t, err)
		assert.Equal(t, []packet.Tag{packet.TagSignature}, c.tags())

		sig := c.find(packet.TagSignature)[0].Content.(*packet.Signature)
		assert.Equal(t, uint8(3), sig.Version)
		assert.Equal(t, packet.SigText, sig.Type)
		assert.Equal(t, time.Unix(0x5f000001, 0).UTC(), sig.CreationTime)
		assert.True(t, sig.SignerSet)
		assert.Equal(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, sig.SignerID)
		assert.Equal(t, [2]byte{0xab, 0xcd}, sig.Hash2)
		assert.Equal(t, big.NewInt(0x1234), sig.RSA)
		assert.Nil(t, sig.V4Hashed)
	})

	t.Run("bad hash info length", func(t *testing.T) {
		s, _, err := parse(newPacket(packet.TagSignature, []byte{3, 6, 0, 0, 0, 0, 0, 0}), nil)
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.BadFormat}, s.Errors().Codes())
	})
}

// v4Signature returns a v4 DSA signature with the given subpackets
func v4Signature(hashed, unhashed []byte) []byte {
	body := []byte{4, byte(packet.SigBinary), byte(pgpcrypto.PubKeyDSA), byte(pgpcrypto.HashSHA1)}
	body = binary.BigEndian.AppendUint16(body, uint16(len(hashed)))
	body = append(body, hashed...)
	body = binary.BigEndian.AppendUint16(body, uint16(len(unhashed)))
	body = append(body, unhashed...)
	body = append(body, 0x12, 0x34)
	body = pgpcrypto.AppendMPI(body, big.NewInt(7))
	body = pgpcrypto.AppendMPI(body, big.NewInt(9))
	return newPacket(packet.TagSignature, body)
}

func subpacket(typ byte, data ...byte) []byte {
	return append(packet.AppendNewLength(nil, uint32(len(data)+1)), append([]byte{typ}, data...)...)
}

func TestParseSubpackets(t *testing.T) {
	created := subpacket(0x82, 0x60, 0, 0, 0) // critical
	issuer := subpacket(16, 1, 2, 3, 4, 5, 6, 7, 8)
	notation := subpacket(20, append([]byte{0x80, 0, 0, 0, 0, 4, 0, 2}, "namevl"...)...)
	reason := subpacket(29, append([]byte{2}, "compromised"...)...)
	revkey := subpacket(12, append([]byte{0x80, 17}, make([]byte, 20)...)...)
	target := subpacket(31, 1, 2, 0xaa, 0xbb)
	signer := subpacket(28, []byte("Signer <s@example.com>")...)
	trust := subpacket(5, 1, 120)
	flags := subpacket(27, 0x03)
	expires := subpacket(3, 0, 0, 0x0e, 0x10)

	hashed := bytes.Join([][]byte{created, notation, reason, revkey, target, signer, trust, flags, expires}, nil)
	msg := v4Signature(hashed, issuer)

	t.Run("parsed", func(t *testing.T) {
		_, c, err := parse(msg, nil)
		require.NoError(t, err)

		sig := c.find(packet.TagSignatureFooter)[0].Content.(*packet.Signature)
		assert.True(t, sig.SignerSet)
		assert.Equal(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, sig.SignerID)
		assert.Equal(t, time.Unix(0x60000000, 0).UTC(), sig.CreationTime)
		assert.Equal(t, time.Hour, sig.Expiration)
		assert.Equal(t, big.NewInt(7), sig.R)
		assert.Equal(t, big.NewInt(9), sig.S)
		assert.Equal(t, 6+len(hashed), len(sig.V4Hashed))

		hdr := c.find(packet.TagSignatureHeader)[0].Content.(*packet.Signature)
		assert.False(t, hdr.SignerSet, "the header is delivered before the subpackets")

		ct := c.find(packet.SubpacketCreationTime)
		require.Len(t, ct, 1)
		assert.True(t, ct[0].Critical)

		n := c.find(packet.SubpacketNotation)[0].Content.(*packet.Notation)
		assert.True(t, n.HumanReadable())
		assert.Equal(t, "name", string(n.Name))
		assert.Equal(t, "vl", string(n.Value))

		r := c.find(packet.SubpacketRevocationReason)[0].Content.(*packet.RevocationReason)
		assert.Equal(t, uint8(2), r.Code)
		assert.Equal(t, "compromised", r.Reason)

		rk := c.find(packet.SubpacketRevocationKey)[0].Content.(*packet.RevocationKey)
		assert.Equal(t, pgpcrypto.PubKeyDSA, rk.Algorithm)

		tg := c.find(packet.SubpacketSignatureTarget)[0].Content.(*packet.SignatureTarget)
		assert.Equal(t, []byte{0xaa, 0xbb}, tg.Hash)

		su := c.find(packet.SubpacketSignersUserID)[0].Content.(*packet.SignersUserID)
		assert.Equal(t, "Signer <s@example.com>", su.UserID)

		tr := c.find(packet.SubpacketTrust)[0].Content.(*packet.TrustSignature)
		assert.Equal(t, packet.TrustSignature{Level: 1, Amount: 120}, *tr)

		assert.Equal(t, []byte{0x03}, c.find(packet.SubpacketKeyFlags)[0].Content.(*packet.SubpacketData).Data)
		assert.Equal(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, c.find(packet.SubpacketIssuer)[0].Content.(*packet.Issuer).KeyID)
	})

	t.Run("raw", func(t *testing.T) {
		opts := &packet.Options{Accumulate: true}
		opts.AllSubpackets(packet.SubpacketsRaw)
		_, c, err := parse(msg, opts)
		require.NoError(t, err)
		raws := c.find(packet.TagRawSubpacket)
		require.Len(t, raws, 10)
		first := raws[0].Content.(*packet.RawSubpacket)
		assert.Equal(t, uint8(2), first.Type)
		assert.True(t, first.Critical)
		assert.Equal(t, []byte{0x60, 0, 0, 0}, first.Data)
		assert.Empty(t, c.find(packet.SubpacketCreationTime))

		// raw subpackets do not set the signer
		sig := c.find(packet.TagSignatureFooter)[0].Content.(*packet.Signature)
		assert.False(t, sig.SignerSet)
	})

	t.Run("ignored", func(t *testing.T) {
		s, c, err := parse(msg, &packet.Options{Accumulate: true})
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.CriticalSSIgnored}, s.Errors().Codes())
		assert.Empty(t, c.find(packet.SubpacketIssuer))

		sig := c.find(packet.TagSignatureFooter)[0].Content.(*packet.Signature)
		assert.True(t, sig.SignerSet)
		assert.True(t, sig.CreationTimeSet)
	})

	t.Run("mixed", func(t *testing.T) {
		opts := &packet.Options{Accumulate: true}
		opts.AllSubpackets(packet.SubpacketsParsed).SetSubpackets(packet.SubpacketsRaw, 16)
		assert.Equal(t, packet.SubpacketsRaw, opts.SubpacketMode(16))
		assert.Equal(t, packet.SubpacketsParsed, opts.SubpacketMode(2))

		_, c, err := parse(msg, opts)
		require.NoError(t, err)
		assert.Len(t, c.find(packet.TagRawSubpacket), 1)
		assert.Empty(t, c.find(packet.SubpacketIssuer))
	})

	t.Run("unknown", func(t *testing.T) {
		s, c, err := parse(v4Signature(subpacket(50, 1, 2, 3), issuer), nil)
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.UnknownSS}, s.Errors().Codes())
		assert.Len(t, c.find(packet.TagSignatureFooter), 1)
	})

	t.Run("set too long", func(t *testing.T) {
		body := []byte{4, 0, byte(pgpcrypto.PubKeyDSA), byte(pgpcrypto.HashSHA1), 0x10, 0x00, 1, 2}
		s, _, err := parse(newPacket(packet.TagSignature, body), nil)
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.BadFormat}, s.Errors().Codes())
	})

	t.Run("bad revocation class", func(t *testing.T) {
		bad := subpacket(12, append([]byte{0x00, 17}, make([]byte, 20)...)...)
		s, _, err := parse(v4Signature(bad, nil), nil)
		require.Error(t, err)
		assert.Equal(t, []pgperr.Code{pgperr.BadFormat}, s.Errors().Codes())
	})
}

func TestParseFinished(t *testing.T) {
	msg := append(literalPacket("", []byte("one")), literalPacket("", []byte("two"))...)

	var got []string
	s := packet.NewStream(bytes.NewReader(msg), nil)
	s.Push(func(pkt *packet.Packet, next packet.Callback) packet.Result {
		if pkt.Tag == packet.TagLiteralDataBody {
			got = append(got, string(pkt.Content.(*packet.Body).Data))
			return packet.Finished
		}
		return next.Call(pkt)
	})
	require.NoError(t, s.Parse())
	assert.Equal(t, []string{"one"}, got)
	require.NoError(t, s.Close())
}

func TestChain(t *testing.T) {
	var order []string
	var c packet.Chain
	assert.Equal(t, packet.Continue, c.Call(&packet.Packet{}))

	c.Push(func(pkt *packet.Packet, next packet.Callback) packet.Result {
		order = append(order, "first")
		return next.Call(pkt)
	})
	c.Push(func(pkt *packet.Packet, next packet.Callback) packet.Result {
		order = append(order, "second")
		return next.Call(pkt)
	})
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, packet.Continue, c.Call(&packet.Packet{Tag: packet.TagUserID}))
	assert.Equal(t, []string{"second", "first"}, order)

	c.Pop()
	c.Pop()
	c.Pop()
	assert.Equal(t, 0, c.Len())
}
