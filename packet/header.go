package packet

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xpgp/pgperr"
)

// Old format length types
const (
	LengthOneOctet      uint8 = 0
	LengthTwoOctets     uint8 = 1
	LengthFourOctets    uint8 = 2
	LengthIndeterminate uint8 = 3
)

// PTag is the decoded packet header
type PTag struct {
	NewFormat  bool
	ContentTag Tag
	// LengthType is the old format length type
	LengthType    uint8
	Length        uint32
	Indeterminate bool
	// Position is the offset of the tag octet in the current stream
	Position uint64
}

// ReadHeader decodes a packet header starting with the tag octet c,
// further octets are read from src.
func ReadHeader(src io.Reader, c byte) (*PTag, error) {
	if c&0x80 == 0 {
		return nil, pgperr.New(pgperr.BadFormat, "Format error (ptag bit not set)")
	}

	pt := &PTag{NewFormat: c&0x40 != 0}
	if pt.NewFormat {
		pt.ContentTag = Tag(c & 0x3f)
		l, err := readNewFormatLength(src)
		if err != nil {
			return nil, err
		}
		pt.Length = l
		return pt, nil
	}

	pt.ContentTag = Tag((c >> 2) & 0x0f)
	pt.LengthType = c & 0x03
	var n int
	switch pt.LengthType {
	case LengthOneOctet:
		n = 1
	case LengthTwoOctets:
		n = 2
	case LengthFourOctets:
		n = 4
	default:
		pt.Indeterminate = true
		return pt, nil
	}
	l, err := readScalar(src, n)
	if err != nil {
		return nil, err
	}
	pt.Length = l
	return pt, nil
}

func readNewFormatLength(src io.Reader) (uint32, error) {
	c, err := readScalar(src, 1)
	if err != nil {
		return 0, err
	}
	switch {
	case c < 192:
		return c, nil
	case c < 224:
		c2, err := readScalar(src, 1)
		if err != nil {
			return 0, err
		}
		return ((c - 192) << 8) + c2 + 192, nil
	case c == 255:
		return readScalar(src, 4)
	}
	return 0, pgperr.New(pgperr.Unimplemented, "New format Partial Body Length fields not yet implemented")
}

func readScalar(src io.Reader, n int) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(src, buf[:n]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, pgperr.Wrap(pgperr.EarlyEOF, err, "Read failed")
		}
		if pgperr.CodeOf(err) != pgperr.Fail {
			return 0, err
		}
		return 0, pgperr.Wrap(pgperr.ReadFailed, err, "Read failed")
	}
	var v uint32
	for _, b := range buf[:n] {
		v = v<<8 | uint32(b)
	}
	return v, nil
}

// AppendOldHeader appends an old format header. The smallest length type
// that fits is used, unless indeterminate is set.
func AppendOldHeader(dst []byte, tag Tag, length uint32, indeterminate bool) []byte {
	c := 0x80 | byte(tag&0x0f)<<2
	switch {
	case indeterminate:
		return append(dst, c|LengthIndeterminate)
	case length < 0x100:
		return append(dst, c|LengthOneOctet, byte(length))
	case length < 0x10000:
		return binary.BigEndian.AppendUint16(append(dst, c|LengthTwoOctets), uint16(length))
	}
	return binary.BigEndian.AppendUint32(append(dst, c|LengthFourOctets), length)
}

// AppendNewHeader appends a new format header
func AppendNewHeader(dst []byte, tag Tag, length uint32) []byte {
	return AppendNewLength(append(dst, 0xC0|byte(tag&0x3f)), length)
}

// AppendNewLength appends a new format length, as used by new format
// headers and signature subpackets
func AppendNewLength(dst []byte, length uint32) []byte {
	switch {
	case length < 192:
		return append(dst, byte(length))
	case length < 8384:
		length -= 192
		return append(dst, byte(length>>8)+192, byte(length))
	}
	return binary.BigEndian.AppendUint32(append(dst, 0xFF), length)
}
