package packet

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
	"github.com/effective-security/xpgp/reader"
	"github.com/effective-security/xpgp/region"
)

// chunkSize is the size of delivered body chunks
const chunkSize = 8192

func (s *Stream) parseTrust(reg *region.Region) error {
	b, err := reg.ReadAll(s.rd)
	if err != nil {
		return err
	}
	s.Emit(TagTrust, &Trust{Data: b})
	return nil
}

func (s *Stream) parseUserID(reg *region.Region) error {
	b, err := reg.ReadAll(s.rd)
	if err != nil {
		return err
	}
	s.Emit(TagUserID, &UserID{ID: string(b)})
	return nil
}

func (s *Stream) parseUserAttribute(reg *region.Region) error {
	b, err := reg.ReadAll(s.rd)
	if err != nil {
		return err
	}
	s.Emit(TagUserAttribute, &UserAttribute{Data: b})
	return nil
}

func (s *Stream) parseMarker(reg *region.Region) error {
	b, err := reg.ReadAll(s.rd)
	if err != nil {
		return err
	}
	s.Emit(TagMarker, &Marker{Data: b})
	return nil
}

func (s *Stream) parseMDC(reg *region.Region) error {
	m := &MDC{}
	if _, err := reg.ReadFull(s.rd, m.Hash[:]); err != nil {
		return err
	}
	s.Emit(TagMDC, m)
	return nil
}

func (s *Stream) parseLiteralData(reg *region.Region) error {
	format, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	l, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	name, err := reg.ReadBytes(s.rd, uint32(l))
	if err != nil {
		return err
	}
	mtime, err := reg.ReadTime(s.rd)
	if err != nil {
		return err
	}
	s.Emit(TagLiteralDataHeader, &LiteralDataHeader{
		Format:   format,
		Filename: string(name),
		ModTime:  mtime,
	})
	return s.streamBody(reg, TagLiteralDataBody, true)
}

// streamBody delivers the rest of the region in chunks,
// an indeterminate region is read to the end of the input
func (s *Stream) streamBody(reg *region.Region, tag Tag, hash bool) error {
	for {
		n := uint32(chunkSize)
		if !reg.Indeterminate {
			rem := reg.Remaining()
			if rem == 0 {
				return nil
			}
			if rem < n {
				n = rem
			}
		}

		buf := make([]byte, n)
		got, err := reg.Read(s.rd, buf)
		if got > 0 {
			data := buf[:got]
			if hash {
				s.hashData(data)
			}
			s.Emit(tag, &Body{Data: data})
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if reg.Indeterminate && got < len(buf) {
			return nil
		}
	}
}

func (s *Stream) parseCompressed(reg *region.Region) error {
	alg, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	c := &Compressed{Algorithm: pgpcrypto.CompressionAlgorithm(alg)}
	s.Emit(TagCompressed, c)

	d, err := reader.NewDecompress(reg.Bounded(s.rd.Top()), c.Algorithm, s)
	if err != nil {
		return err
	}
	logger.KV(xlog.DEBUG, "reason", "compressed", "alg", c.Algorithm.String())

	s.rd.Push(d)
	s.parse()
	return errors.WithStack(s.rd.Pop())
}

func (s *Stream) parseOnePass(reg *region.Region) error {
	v, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	if v != 3 {
		return pgperr.New(pgperr.BadOnePassSigVersion, "Bad one-pass signature version (%d)", v)
	}

	var b [3]byte
	if _, err = reg.ReadFull(s.rd, b[:]); err != nil {
		return err
	}
	ops := &OnePassSignature{
		Version:       v,
		Type:          SigType(b[0]),
		HashAlgorithm: pgpcrypto.HashAlgorithm(b[1]),
		KeyAlgorithm:  pgpcrypto.PublicKeyAlgorithm(b[2]),
	}
	if _, err = reg.ReadFull(s.rd, ops.KeyID[:]); err != nil {
		return err
	}
	nested, err := reg.ReadOctet(s.rd)
	if err != nil {
		return err
	}
	ops.Nested = nested != 0

	s.Emit(TagOnePassSignature, ops)
	return s.addHash(ops.HashAlgorithm, ops.KeyID)
}
