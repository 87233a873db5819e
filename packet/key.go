package packet

import (
	"bytes"
	"math/big"

	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
	"github.com/effective-security/xpgp/reader"
	"github.com/effective-security/xpgp/region"
)

func (s *Stream) parsePublicKey(tag Tag, reg *region.Region) (*PublicKey, error) {
	v, err := reg.ReadOctet(s.rd)
	if err != nil {
		return nil, err
	}
	if v < 2 || v > 4 {
		return nil, pgperr.New(pgperr.BadPublicKeyVersion, "Bad public key version (0x%02x)", v)
	}

	k := &PublicKey{
		Version: v,
		Subkey:  tag == TagPublicSubkey || tag == TagSecretSubkey,
	}
	if k.CreationTime, err = reg.ReadTime(s.rd); err != nil {
		return nil, err
	}
	if v < 4 {
		days, err := reg.ReadScalar(s.rd, 2)
		if err != nil {
			return nil, err
		}
		k.DaysValid = uint16(days)
	}
	alg, err := reg.ReadOctet(s.rd)
	if err != nil {
		return nil, err
	}
	k.Algorithm = pgpcrypto.PublicKeyAlgorithm(alg)

	var mpis []*big.Int
	switch {
	case k.Algorithm.IsRSA():
		mpis, err = s.readMPIs(reg, 2)
		if err == nil {
			k.RSA = &pgpcrypto.RSAPublicKey{N: mpis[0], E: mpis[1]}
		}
	case k.Algorithm == pgpcrypto.PubKeyDSA:
		mpis, err = s.readMPIs(reg, 4)
		if err == nil {
			k.DSA = &pgpcrypto.DSAPublicKey{P: mpis[0], Q: mpis[1], G: mpis[2], Y: mpis[3]}
		}
	case k.Algorithm.IsElGamal():
		mpis, err = s.readMPIs(reg, 3)
		if err == nil {
			k.ElGamal = &pgpcrypto.ElGamalPublicKey{P: mpis[0], G: mpis[1], Y: mpis[2]}
		}
	default:
		err = pgperr.New(pgperr.UnsupportedPublicKey, "Unsupported Public Key algorithm (%s)", k.Algorithm)
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

func (s *Stream) readMPIs(reg *region.Region, count int) ([]*big.Int, error) {
	mpis := make([]*big.Int, count)
	for i := range mpis {
		n, err := reg.ReadMPI(s.rd)
		if err != nil {
			return nil, err
		}
		mpis[i] = n
	}
	return mpis, nil
}

func (s *Stream) parsePublicKeyPacket(tag Tag, reg *region.Region) error {
	k, err := s.parsePublicKey(tag, reg)
	if err != nil {
		return err
	}
	if !reg.Done() {
		return pgperr.New(pgperr.UnconsumedData, "Unconsumed data (%d)", reg.Remaining())
	}
	s.Emit(tag, k)
	return nil
}

func (s *Stream) readS2K(reg *region.Region) (pgpcrypto.S2K, error) {
	var k pgpcrypto.S2K
	spec, err := reg.ReadOctet(s.rd)
	if err != nil {
		return k, err
	}
	k.Specifier = pgpcrypto.S2KSpecifier(spec)
	switch k.Specifier {
	case pgpcrypto.S2KSimple, pgpcrypto.S2KSalted, pgpcrypto.S2KIterated:
	default:
		return k, pgperr.New(pgperr.Unsupported, "Unsupported S2K specifier (%d)", spec)
	}

	alg, err := reg.ReadOctet(s.rd)
	if err != nil {
		return k, err
	}
	k.Hash = pgpcrypto.HashAlgorithm(alg)

	if k.Specifier != pgpcrypto.S2KSimple {
		if _, err = reg.ReadFull(s.rd, k.Salt[:]); err != nil {
			return k, err
		}
	}
	if k.Specifier == pgpcrypto.S2KIterated {
		if k.Count, err = reg.ReadOctet(s.rd); err != nil {
			return k, err
		}
	}
	return k, nil
}

func (s *Stream) passphrase(pkt *Packet) []byte {
	if s.opts.Upcalls == nil {
		return nil
	}
	return s.opts.Upcalls.Passphrase(pkt)
}

func (s *Stream) parseSecretKey(tag Tag, reg *region.Region) error {
	pub, err := s.parsePublicKey(tag, reg)
	if err != nil {
		return err
	}
	sk := &SecretKey{PublicKey: *pub}

	if sk.S2KUsage, err = reg.ReadOctet(s.rd); err != nil {
		return err
	}
	switch sk.S2KUsage {
	case S2KUsageNone:
	case S2KUsageSHA1, S2KUsageChecksum:
		alg, err := reg.ReadOctet(s.rd)
		if err != nil {
			return err
		}
		sk.Symmetric = pgpcrypto.SymmetricAlgorithm(alg)
		if sk.S2K, err = s.readS2K(reg); err != nil {
			return err
		}
	default:
		// legacy keys name the cipher in the usage octet
		sk.Symmetric = pgpcrypto.SymmetricAlgorithm(sk.S2KUsage)
		sk.S2K = pgpcrypto.S2K{Specifier: pgpcrypto.S2KSimple, Hash: pgpcrypto.HashMD5}
	}

	pushed := 0
	defer func() {
		for ; pushed > 0; pushed-- {
			_ = s.rd.Pop()
		}
	}()
	pop := func() {
		_ = s.rd.Pop()
		pushed--
	}

	v4 := sk.Version == 4
	mreg := reg
	var dec *reader.Decrypt
	if sk.Encrypted() {
		bs := sk.Symmetric.BlockSize()
		if bs == 0 || !pgpcrypto.IsCipherSupported(sk.Symmetric) {
			return pgperr.New(pgperr.UnsupportedSymmetric, "Symmetric algorithm %s not supported", sk.Symmetric)
		}
		if sk.IV, err = reg.ReadBytes(s.rd, uint32(bs)); err != nil {
			return err
		}

		passphrase := s.passphrase(&Packet{Tag: tag, Content: sk})
		if passphrase == nil {
			if err = reg.SkipRest(s.rd); err != nil {
				return err
			}
			s.Emit(TagEncryptedSecretKey, sk)
			return nil
		}

		key, err := sk.S2K.DeriveKey(passphrase, sk.Symmetric.KeySize())
		if err != nil {
			return err
		}
		c, err := pgpcrypto.NewCipher(sk.Symmetric)
		if err != nil {
			return err
		}
		if err = c.SetKey(key); err != nil {
			return err
		}
		c.SetIV(sk.IV)

		encLen := reg.Remaining()
		if !v4 {
			// the checksum of older keys is not encrypted
			if encLen < 2 {
				return pgperr.New(pgperr.NotEnoughData, "Not enough data")
			}
			encLen -= 2
		}
		dec = reader.NewDecrypt(reg.Bounded(s.rd.Top()), c)
		s.rd.Push(dec)
		pushed++
		mreg = region.New(nil, encLen)
	}

	var sum *reader.Sum16
	var hs *reader.Hash
	if sk.S2KUsage == S2KUsageSHA1 {
		h, err := pgpcrypto.NewHash(pgpcrypto.HashSHA1)
		if err != nil {
			return err
		}
		hs = reader.NewHash(s.rd.Top(), h)
		s.rd.Push(hs)
	} else {
		sum = reader.NewSum16(s.rd.Top())
		s.rd.Push(sum)
	}
	pushed++

	legacy := dec != nil && !v4
	var mpis []*big.Int
	switch {
	case sk.Algorithm.IsRSA():
		mpis, err = s.readSecretMPIs(mreg, dec, legacy, 4)
		if err == nil {
			sk.RSA = &pgpcrypto.RSASecretKey{D: mpis[0], P: mpis[1], Q: mpis[2], U: mpis[3]}
		}
	case sk.Algorithm == pgpcrypto.PubKeyDSA:
		mpis, err = s.readSecretMPIs(mreg, dec, legacy, 1)
		if err == nil {
			sk.DSA = &pgpcrypto.DSASecretKey{X: mpis[0]}
		}
	case sk.Algorithm.IsElGamal():
		mpis, err = s.readSecretMPIs(mreg, dec, legacy, 1)
		if err == nil {
			sk.ElGamal = &pgpcrypto.ElGamalSecretKey{X: mpis[0]}
		}
	default:
		err = pgperr.New(pgperr.UnsupportedPublicKey, "Unsupported Public Key algorithm (%s)", sk.Algorithm)
	}
	if err != nil {
		return err
	}

	// the check octets are not part of the check
	pop()
	creg := mreg
	if legacy {
		pop()
		creg = reg
	}

	if hs != nil {
		if sk.CheckHash, err = creg.ReadBytes(s.rd, uint32(hs.Hash().Size())); err != nil {
			return err
		}
		if !bytes.Equal(sk.CheckHash, hs.Hash().Sum()) {
			return pgperr.New(pgperr.BadHash, "Hash mismatch in secret key")
		}
	} else {
		cs, err := creg.ReadScalar(s.rd, 2)
		if err != nil {
			return err
		}
		sk.Checksum = uint16(cs)
		if sk.Checksum != sum.Sum() {
			return pgperr.New(pgperr.BadSKChecksum, "Checksum mismatch in secret key")
		}
	}

	if dec != nil && v4 {
		pop()
	}

	logger.KV(xlog.DEBUG, "reason", "secret_key", "alg", sk.Algorithm.String(), "encrypted", sk.Encrypted())
	s.Emit(tag, sk)
	return nil
}

// readSecretMPIs reads count MPIs. The bit counts of legacy encrypted keys
// are not encrypted, and the cipher is resynchronized before each value.
func (s *Stream) readSecretMPIs(reg *region.Region, dec *reader.Decrypt, legacy bool, count int) ([]*big.Int, error) {
	if !legacy {
		return s.readMPIs(reg, count)
	}
	mpis := make([]*big.Int, count)
	for i := range mpis {
		dec.SetPlain(true)
		bits, err := reg.ReadScalar(s.rd, 2)
		dec.SetPlain(false)
		if err != nil {
			return nil, err
		}
		dec.Resync()

		body, err := reg.ReadBytes(s.rd, uint32(pgpcrypto.MPIByteLength(uint16(bits))))
		if err != nil {
			return nil, err
		}
		if err = pgpcrypto.CheckMPI(uint16(bits), body); err != nil {
			return nil, err
		}
		mpis[i] = new(big.Int).SetBytes(body)
	}
	return mpis, nil
}
