package packet

import (
	"time"

	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
	"github.com/effective-security/xpgp/region"
)

func (s *Stream) parseSignature(reg *region.Region) error {
	v, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	sig := &Signature{Version: v}
	switch v {
	case 2, 3:
		return s.parseV3Signature(reg, sig)
	case 4:
		return s.parseV4Signature(reg, sig)
	}
	return pgperr.New(pgperr.BadSignatureVersion, "Bad signature version (%d)", v)
}

func (s *Stream) parseV3Signature(reg *region.Region, sig *Signature) error {
	l, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	if l != 5 {
		return pgperr.New(pgperr.BadFormat, "Bad hash info length (%d)", l)
	}

	t, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	sig.Type = SigType(t)
	if sig.CreationTime, err = reg.ReadTime(s.rd); err != nil {
		return err
	}
	sig.CreationTimeSet = true
	if _, err = reg.ReadFull(s.rd, sig.SignerID[:]); err != nil {
		return err
	}
	sig.SignerSet = true

	if err = s.readSigAlgorithms(reg, sig); err != nil {
		return err
	}
	if _, err = reg.ReadFull(s.rd, sig.Hash2[:]); err != nil {
		return err
	}
	if err = s.readSigValue(reg, sig); err != nil {
		return err
	}
	if !reg.Done() {
		return pgperr.New(pgperr.UnconsumedData, "Unconsumed data (%d)", reg.Remaining())
	}
	s.Emit(TagSignature, sig)
	return nil
}

func (s *Stream) parseV4Signature(reg *region.Region, sig *Signature) error {
	if !s.rd.Accumulate() {
		return pgperr.New(pgperr.Fail, "v4 signatures require accumulate to be set")
	}
	// the version octet was the last one read
	hashstart := s.rd.ALength() - 1

	t, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	sig.Type = SigType(t)
	if err = s.readSigAlgorithms(reg, sig); err != nil {
		return err
	}

	hdr := *sig
	s.Emit(TagSignatureHeader, &hdr)

	if err = s.parseSubpackets(reg, sig); err != nil {
		return err
	}

	acc := s.rd.Accumulated()
	end := s.rd.ALength()
	if uint32(len(acc)) < end || hashstart > end {
		return pgperr.New(pgperr.SystemError, "accumulated data is out of sync")
	}
	sig.V4Hashed = append([]byte(nil), acc[hashstart:end]...)

	if err = s.parseSubpackets(reg, sig); err != nil {
		return err
	}
	if _, err = reg.ReadFull(s.rd, sig.Hash2[:]); err != nil {
		return err
	}

	if sig.KeyAlgorithm.IsPrivate() {
		if sig.Raw, err = reg.ReadAll(s.rd); err != nil {
			return err
		}
	} else if err = s.readSigValue(reg, sig); err != nil {
		return err
	}
	if !reg.Done() {
		return pgperr.New(pgperr.UnconsumedData, "Unconsumed data (%d)", reg.Remaining())
	}
	s.Emit(TagSignatureFooter, sig)
	return nil
}

func (s *Stream) readSigAlgorithms(reg *region.Region, sig *Signature) error {
	pk, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	h, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	sig.KeyAlgorithm = pgpcrypto.PublicKeyAlgorithm(pk)
	sig.HashAlgorithm = pgpcrypto.HashAlgorithm(h)
	return nil
}

func (s *Stream) readSigValue(reg *region.Region, sig *Signature) error {
	var err error
	switch {
	case sig.KeyAlgorithm.IsRSA():
		sig.RSA, err = reg.ReadMPI(s.rd)
	case sig.KeyAlgorithm == pgpcrypto.PubKeyDSA, sig.KeyAlgorithm.IsElGamal():
		if sig.R, err = reg.ReadMPI(s.rd); err == nil {
			sig.S, err = reg.ReadMPI(s.rd)
		}
	default:
		err = pgperr.New(pgperr.UnsupportedSignature, "Unsupported signature key algorithm (%s)", sig.KeyAlgorithm)
	}
	return err
}

func (s *Stream) parseSubpackets(reg *region.Region, sig *Signature) error {
	l, err := reg.ReadScalar(s.rd, 2)
	if err != nil {
		return err
	}
	if l > reg.Remaining() {
		return pgperr.New(pgperr.BadFormat, "Subpacket set too long")
	}

	set := region.New(reg, l)
	for !set.Done() {
		if err = s.parseSubpacket(set, sig); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stream) parseSubpacket(set *region.Region, sig *Signature) error {
	l, err := set.ReadNewLength(s.rd)
	if err != nil {
		return err
	}
	if l > set.Remaining() {
		return pgperr.New(pgperr.BadFormat, "Subpacket too long")
	}

	sub := region.New(set, l)
	c, err := sub.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	critical := c&0x80 != 0
	typ := c & 0x7f
	tag := SubpacketBase + Tag(typ)

	mode := s.opts.SubpacketMode(typ)
	if mode == SubpacketsRaw {
		data, err := sub.ReadAll(s.rd)
		if err != nil {
			return err
		}
		s.emit(&Packet{
			Tag:      TagRawSubpacket,
			Critical: critical,
			Content:  &RawSubpacket{Type: typ, Critical: critical, Data: data},
		})
		return nil
	}

	// known subpackets are always read, the signature needs some of them
	content, err := s.readSubpacket(tag, sub, sig)
	if err != nil {
		return err
	}
	if content == nil && mode == SubpacketsParsed {
		s.PushError(pgperr.New(pgperr.UnknownSS, "Unknown signature subpacket type (%d)", typ))
	}

	if mode != SubpacketsParsed {
		if critical {
			s.PushError(pgperr.New(pgperr.CriticalSSIgnored, "Critical signature subpacket ignored (%d)", typ))
		}
		return sub.SkipRest(s.rd)
	}
	if content == nil {
		return sub.SkipRest(s.rd)
	}
	if !sub.Done() {
		return pgperr.New(pgperr.UnconsumedData, "Unconsumed data (%d)", sub.Remaining())
	}
	s.emit(&Packet{Tag: tag, Critical: critical, Content: content})
	return nil
}

// readSubpacket reads the payload of a known subpacket type,
// it returns nil content for unknown types
func (s *Stream) readSubpacket(tag Tag, sub *region.Region, sig *Signature) (Content, error) {
	switch tag {
	case SubpacketCreationTime:
		t, err := sub.ReadTime(s.rd)
		if err != nil {
			return nil, err
		}
		sig.CreationTime = t
		sig.CreationTimeSet = true
		return &SubpacketTime{Time: t}, nil

	case SubpacketExpirationTime, SubpacketKeyExpiration:
		secs, err := sub.ReadScalar(s.rd, 4)
		if err != nil {
			return nil, err
		}
		d := time.Duration(secs) * time.Second
		if tag == SubpacketExpirationTime {
			sig.Expiration = d
		}
		return &SubpacketTime{Time: time.Unix(int64(secs), 0).UTC(), Duration: d}, nil

	case SubpacketExportable, SubpacketRevocable, SubpacketPrimaryUserID:
		b, err := sub.ReadOctet(s.rd)
		if err != nil {
			return nil, err
		}
		return &SubpacketBool{Value: b != 0}, nil

	case SubpacketTrust:
		var b [2]byte
		if _, err := sub.ReadFull(s.rd, b[:]); err != nil {
			return nil, err
		}
		return &TrustSignature{Level: b[0], Amount: b[1]}, nil

	case SubpacketRegexp, SubpacketPolicyURI, SubpacketPreferredKeyServer:
		b, err := sub.ReadAll(s.rd)
		if err != nil {
			return nil, err
		}
		return &SubpacketString{Value: string(b)}, nil

	case SubpacketSignersUserID:
		b, err := sub.ReadAll(s.rd)
		if err != nil {
			return nil, err
		}
		return &SignersUserID{UserID: string(b)}, nil

	case SubpacketIssuer:
		is := &Issuer{}
		if _, err := sub.ReadFull(s.rd, is.KeyID[:]); err != nil {
			return nil, err
		}
		sig.SignerID = is.KeyID
		sig.SignerSet = true
		return is, nil

	case SubpacketRevocationKey:
		var b [2]byte
		if _, err := sub.ReadFull(s.rd, b[:]); err != nil {
			return nil, err
		}
		if b[0]&0x80 == 0 {
			return nil, pgperr.New(pgperr.BadFormat, "Revocation key class 0x%02x must have bit 0x80 set", b[0])
		}
		rk := &RevocationKey{Class: b[0], Algorithm: pgpcrypto.PublicKeyAlgorithm(b[1])}
		if _, err := sub.ReadFull(s.rd, rk.Fingerprint[:]); err != nil {
			return nil, err
		}
		return rk, nil

	case SubpacketNotation:
		n := &Notation{}
		if _, err := sub.ReadFull(s.rd, n.Flags[:]); err != nil {
			return nil, err
		}
		nl, err := sub.ReadScalar(s.rd, 2)
		if err != nil {
			return nil, err
		}
		vl, err := sub.ReadScalar(s.rd, 2)
		if err != nil {
			return nil, err
		}
		if n.Name, err = sub.ReadBytes(s.rd, nl); err != nil {
			return nil, err
		}
		if n.Value, err = sub.ReadBytes(s.rd, vl); err != nil {
			return nil, err
		}
		return n, nil

	case SubpacketRevocationReason:
		code, err := sub.ReadOctet(s.rd)
		if err != nil {
			return nil, err
		}
		b, err := sub.ReadAll(s.rd)
		if err != nil {
			return nil, err
		}
		return &RevocationReason{Code: code, Reason: string(b)}, nil

	case SubpacketSignatureTarget:
		var b [2]byte
		if _, err := sub.ReadFull(s.rd, b[:]); err != nil {
			return nil, err
		}
		h, err := sub.ReadAll(s.rd)
		if err != nil {
			return nil, err
		}
		return &SignatureTarget{
			KeyAlgorithm:  pgpcrypto.PublicKeyAlgorithm(b[0]),
			HashAlgorithm: pgpcrypto.HashAlgorithm(b[1]),
			Hash:          h,
		}, nil

	case SubpacketReserved,
		SubpacketPreferredSymmetric,
		SubpacketPreferredHash,
		SubpacketPreferredCompress,
		SubpacketKeyServerPrefs,
		SubpacketKeyFlags,
		SubpacketFeatures,
		SubpacketEmbeddedSignature:
		return s.readSubpacketData(sub)
	}

	if tag >= SubpacketUserDefinedFirst && tag <= SubpacketUserDefinedLast {
		return s.readSubpacketData(sub)
	}
	return nil, nil
}

func (s *Stream) readSubpacketData(sub *region.Region) (Content, error) {
	b, err := sub.ReadAll(s.rd)
	if err != nil {
		return nil, err
	}
	return &SubpacketData{Data: b}, nil
}
