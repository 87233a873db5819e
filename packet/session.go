package packet

import (
	"io"

	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
	"github.com/effective-security/xpgp/reader"
	"github.com/effective-security/xpgp/region"
)

func (s *Stream) parsePKSessionKey(reg *region.Region) error {
	v, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	if v != 3 {
		return pgperr.New(pgperr.BadPKSKVersion, "Bad public-key encrypted session key version (%d)", v)
	}

	pk := &PKSessionKey{Version: v}
	if _, err = reg.ReadFull(s.rd, pk.KeyID[:]); err != nil {
		return err
	}
	alg, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	pk.Algorithm = pgpcrypto.PublicKeyAlgorithm(alg)

	switch {
	case pk.Algorithm.IsRSA():
		pk.RSA, err = reg.ReadMPI(s.rd)
	case pk.Algorithm.IsElGamal():
		if pk.ElGamalC1, err = reg.ReadMPI(s.rd); err == nil {
			pk.ElGamalC2, err = reg.ReadMPI(s.rd)
		}
	default:
		err = pgperr.New(pgperr.UnsupportedPublicKey, "Unknown public key algorithm in session key (%s)", pk.Algorithm)
	}
	if err != nil {
		return err
	}

	var sk *SecretKey
	if s.opts.Upcalls != nil {
		sk = s.opts.Upcalls.SecretKey(pk)
	}
	if sk == nil {
		s.Emit(TagEncryptedPKSessionKey, pk)
		return nil
	}

	var em []byte
	switch {
	case pk.Algorithm.IsRSA():
		em, err = pgpcrypto.RSAPrivateRaw(sk.PublicKey.RSA, sk.RSA, pk.RSA)
	default:
		em, err = pgpcrypto.ElGamalDecryptRaw(sk.PublicKey.ElGamal, sk.ElGamal, pk.ElGamalC1, pk.ElGamalC2)
	}
	if err != nil {
		return err
	}

	msg, err := pgpcrypto.DecodeEME(em)
	if err != nil || len(msg) < 1 {
		return pgperr.New(pgperr.Fail, "decrypted message too short")
	}

	pk.Symmetric = pgpcrypto.SymmetricAlgorithm(msg[0])
	if !pgpcrypto.IsCipherSupported(pk.Symmetric) {
		return pgperr.New(pgperr.UnsupportedSymmetric, "Symmetric algorithm %s not supported", pk.Symmetric)
	}
	k := pk.Symmetric.KeySize()
	if len(msg) != k+3 {
		return pgperr.New(pgperr.DecryptedMsgWrongLen, "decrypted message wrong length (got %d expected %d)", len(msg), k+3)
	}
	pk.Key = append([]byte(nil), msg[1:k+1]...)
	copy(pk.Checksum[:], msg[k+1:])

	calc := pgpcrypto.SessionKeyChecksum(pk.Key)
	if calc != pk.Checksum {
		return pgperr.New(pgperr.BadSKChecksum, "Session key checksum wrong: expected %2x %2x, got %2x %2x",
			calc[0], calc[1], pk.Checksum[0], pk.Checksum[1])
	}

	logger.KV(xlog.DEBUG, "reason", "pk_session_key", "alg", pk.Symmetric.String())
	s.Emit(TagPKSessionKey, pk)
	return s.installCipher(pk.Symmetric, pk.Key)
}

func (s *Stream) parseSKSessionKey(reg *region.Region) error {
	v, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	if v != 4 {
		return pgperr.New(pgperr.Unsupported, "Bad symmetric-key encrypted session key version (%d)", v)
	}

	sk := &SKSessionKey{Version: v}
	alg, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	sk.Symmetric = pgpcrypto.SymmetricAlgorithm(alg)
	if sk.S2K, err = s.readS2K(reg); err != nil {
		return err
	}
	if sk.EncryptedKey, err = reg.ReadAll(s.rd); err != nil {
		return err
	}

	passphrase := s.passphrase(&Packet{Tag: TagSKSessionKey, Content: sk})
	if passphrase == nil {
		s.Emit(TagSKSessionKey, sk)
		return nil
	}

	if !pgpcrypto.IsCipherSupported(sk.Symmetric) {
		return pgperr.New(pgperr.UnsupportedSymmetric, "Symmetric algorithm %s not supported", sk.Symmetric)
	}
	kek, err := sk.S2K.DeriveKey(passphrase, sk.Symmetric.KeySize())
	if err != nil {
		return err
	}

	if len(sk.EncryptedKey) == 0 {
		sk.SessionSymmetric = sk.Symmetric
		sk.Key = kek
	} else {
		c, err := pgpcrypto.NewCipher(sk.Symmetric)
		if err != nil {
			return err
		}
		if err = c.SetKey(kek); err != nil {
			return err
		}
		c.SetIV(nil)
		plain := make([]byte, len(sk.EncryptedKey))
		c.CFBDecrypt(plain, sk.EncryptedKey)

		alg := pgpcrypto.SymmetricAlgorithm(plain[0])
		if !pgpcrypto.IsCipherSupported(alg) || len(plain)-1 != alg.KeySize() {
			// a wrong passphrase decrypts to garbage: the session key is
			// delivered still encrypted and the data is left as is
			logger.KV(xlog.DEBUG, "reason", "sk_session_key", "decrypted_alg", alg.String(), "size", len(plain)-1)
			s.Emit(TagSKSessionKey, sk)
			s.PushError(pgperr.New(pgperr.BadSymmetricDecrypt, "Bad passphrase for symmetric-key encrypted session key"))
			return nil
		}
		sk.SessionSymmetric = alg
		sk.Key = plain[1:]
	}

	logger.KV(xlog.DEBUG, "reason", "sk_session_key", "alg", sk.SessionSymmetric.String())
	s.Emit(TagSKSessionKey, sk)
	return s.installCipher(sk.SessionSymmetric, sk.Key)
}

func (s *Stream) installCipher(alg pgpcrypto.SymmetricAlgorithm, key []byte) error {
	c, err := pgpcrypto.NewCipher(alg)
	if err != nil {
		return err
	}
	if err = c.SetKey(key); err != nil {
		return err
	}
	c.SetIV(nil)
	s.cipher = c
	return nil
}

func (s *Stream) parseSEData(reg *region.Region) error {
	s.Emit(TagSEDataHeader, &SEDataHeader{})
	if s.cipher == nil {
		return s.streamBody(reg, TagSEDataBody, false)
	}

	dec := reader.NewDecrypt(reg.Bounded(s.rd.Top()), s.cipher)
	s.rd.Push(dec)
	defer func() {
		_ = s.rd.Pop()
	}()

	bs := s.cipher.BlockSize()
	prefix := make([]byte, bs+2)
	if _, err := io.ReadFull(s.rd, prefix); err != nil {
		if pgperr.CodeOf(err) != pgperr.Fail {
			return err
		}
		return pgperr.Wrap(pgperr.EarlyEOF, err, "Read failed")
	}
	if prefix[bs-2] != prefix[bs] || prefix[bs-1] != prefix[bs+1] {
		return pgperr.New(pgperr.BadSymmetricDecrypt, "Bad symmetric decrypt (%02x%02x vs %02x%02x)",
			prefix[bs-2], prefix[bs-1], prefix[bs], prefix[bs+1])
	}
	// the prefix is not part of the inner packets
	s.dropAccumulated()
	dec.Resync()

	s.parse()
	return nil
}

func (s *Stream) parseSEIPData(reg *region.Region) error {
	v, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	if v != 1 {
		return pgperr.New(pgperr.Unsupported, "Bad SE IP data version (%d)", v)
	}
	s.Emit(TagSEIPDataHeader, &SEIPDataHeader{Version: v})
	if s.cipher == nil {
		return s.streamBody(reg, TagSEIPDataBody, false)
	}

	s.rd.Push(reader.NewDecrypt(reg.Bounded(s.rd.Top()), s.cipher))
	s.rd.Push(reader.NewSEIP(s.rd.Top(), s.cipher.BlockSize()))
	defer func() {
		_ = s.rd.Pop()
		_ = s.rd.Pop()
	}()

	s.parse()
	return nil
}
