// Package region implements length-bounded reads over nested packet regions.
//
// Every read through a Region is counted against the region and all of its
// ancestors, so a nested parser can never read past the end of the packet
// that contains it.
package region

import (
	"encoding/binary"
	"io"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
)

// Region is a length-bounded part of the input
type Region struct {
	Parent        *Region
	Length        uint32
	Consumed      uint32
	LastRead      uint32
	Indeterminate bool
}

// New returns a region of the given length nested in parent, parent may be nil
func New(parent *Region, length uint32) *Region {
	return &Region{Parent: parent, Length: length}
}

// NewIndeterminate returns a region bounded only by the end of the input
func NewIndeterminate(parent *Region) *Region {
	return &Region{Parent: parent, Indeterminate: true}
}

// Remaining returns the number of unread octets of a determinate region
func (r *Region) Remaining() uint32 {
	if r.Indeterminate || r.Consumed >= r.Length {
		return 0
	}
	return r.Length - r.Consumed
}

// Done returns true when a determinate region is fully consumed
func (r *Region) Done() bool {
	return !r.Indeterminate && r.Consumed >= r.Length
}

// Read reads exactly len(p) octets from src. An indeterminate region
// accepts a short read at the end of the input, and returns io.EOF
// when nothing was read.
func (r *Region) Read(src io.Reader, p []byte) (int, error) {
	if !r.Indeterminate && uint64(r.Consumed)+uint64(len(p)) > uint64(r.Length) {
		return 0, pgperr.New(pgperr.NotEnoughData, "Not enough data")
	}

	n, err := io.ReadFull(src, p)
	if err != nil {
		eof := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
		switch {
		case pgperr.CodeOf(err) != pgperr.Fail:
			// coded errors of the stages below are passed through
			return n, err
		case eof && r.Indeterminate:
			// short read at the end of the input
		case eof:
			return n, pgperr.Wrap(pgperr.EarlyEOF, err, "Read failed")
		default:
			return n, pgperr.Wrap(pgperr.ReadFailed, err, "Read failed")
		}
	}

	if err = r.commit(uint32(n)); err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (r *Region) commit(n uint32) error {
	r.LastRead = n
	for reg := r; reg != nil; reg = reg.Parent {
		reg.Consumed += n
		if reg.Parent != nil && !reg.Parent.Indeterminate && reg.Length > reg.Parent.Length {
			return pgperr.New(pgperr.Fail, "region is longer than its parent")
		}
	}
	return nil
}

// ReadScalar reads an n-octet big-endian unsigned value, 1 <= n <= 4
func (r *Region) ReadScalar(src io.Reader, n int) (uint32, error) {
	if n < 1 || n > 4 {
		return 0, errors.Errorf("invalid scalar size: %d", n)
	}
	var buf [4]byte
	if _, err := r.ReadFull(src, buf[4-n:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadOctet reads a single octet
func (r *Region) ReadOctet(src io.Reader) (byte, error) {
	var b [1]byte
	if _, err := r.ReadFull(src, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadFull is Read that also fails on a short read in an indeterminate region
func (r *Region) ReadFull(src io.Reader, p []byte) (int, error) {
	n, err := r.Read(src, p)
	if err == nil && n != len(p) {
		err = pgperr.New(pgperr.EarlyEOF, "Read failed")
	} else if errors.Is(err, io.EOF) && len(p) > 0 {
		err = pgperr.Wrap(pgperr.EarlyEOF, err, "Read failed")
	}
	return n, err
}

// ReadTime reads a four-octet timestamp
func (r *Region) ReadTime(src io.Reader) (time.Time, error) {
	v, err := r.ReadScalar(src, 4)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(v), 0).UTC(), nil
}

// ReadMPI reads a multi-precision integer.
// A non-canonical encoding or a zero length is an MpiFormatError.
func (r *Region) ReadMPI(src io.Reader) (*big.Int, error) {
	bits, err := r.ReadScalar(src, 2)
	if err != nil {
		return nil, err
	}
	length := pgpcrypto.MPIByteLength(uint16(bits))
	if length == 0 {
		return nil, pgperr.New(pgperr.MpiFormatError, "MPI of zero length")
	}
	if length > pgpcrypto.MaxMPIBytes {
		return nil, pgperr.New(pgperr.MpiFormatError, "buffer too small")
	}
	body := make([]byte, length)
	if _, err = r.ReadFull(src, body); err != nil {
		return nil, err
	}
	if err = pgpcrypto.CheckMPI(uint16(bits), body); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(body), nil
}

// ReadNewLength reads a new-format length as used in signature subpackets:
// one octet below 192, two octets below 255, otherwise 0xFF and four octets
func (r *Region) ReadNewLength(src io.Reader) (uint32, error) {
	c, err := r.ReadOctet(src)
	if err != nil {
		return 0, err
	}
	switch {
	case c < 192:
		return uint32(c), nil
	case c < 255:
		c2, err := r.ReadOctet(src)
		if err != nil {
			return 0, err
		}
		return (uint32(c-192) << 8) + uint32(c2) + 192, nil
	default:
		return r.ReadScalar(src, 4)
	}
}

// ReadBytes reads n octets
func (r *Region) ReadBytes(src io.Reader, n uint32) ([]byte, error) {
	b := make([]byte, n)
	if _, err := r.ReadFull(src, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadAll reads the rest of the region. An indeterminate region is read
// until the end of the input.
func (r *Region) ReadAll(src io.Reader) ([]byte, error) {
	if !r.Indeterminate {
		return r.ReadBytes(src, r.Remaining())
	}
	var out []byte
	buf := make([]byte, 8192)
	for {
		n, err := r.Read(src, buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) || (err == nil && n < len(buf)) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

// Skip discards n octets through the bounded read path
func (r *Region) Skip(src io.Reader, n uint32) error {
	var buf [1024]byte
	for n > 0 {
		chunk := uint32(len(buf))
		if n < chunk {
			chunk = n
		}
		if _, err := r.ReadFull(src, buf[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// SkipRest discards the rest of the region
func (r *Region) SkipRest(src io.Reader) error {
	if !r.Indeterminate {
		return r.Skip(src, r.Remaining())
	}
	_, err := r.ReadAll(src)
	return err
}

// Bounded returns a reader over the rest of the region. It returns io.EOF at
// the end of the region, and reads single octets without reading ahead.
func (r *Region) Bounded(src io.Reader) *Bounded {
	return &Bounded{src: src, reg: r}
}

// Bounded is an io.Reader limited to a region
type Bounded struct {
	src io.Reader
	reg *Region
}

// Region returns the bounding region
func (b *Bounded) Region() *Region {
	return b.reg
}

// Read implements io.Reader
func (b *Bounded) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !b.reg.Indeterminate {
		rem := b.reg.Remaining()
		if rem == 0 {
			return 0, io.EOF
		}
		if uint32(len(p)) > rem {
			p = p[:rem]
		}
	}
	return b.reg.Read(b.src, p)
}

// ReadByte implements io.ByteReader
func (b *Bounded) ReadByte() (byte, error) {
	var buf [1]byte
	n, err := b.Read(buf[:])
	if n == 1 {
		return buf[0], nil
	}
	if err == nil {
		err = io.EOF
	}
	return 0, err
}
