package pgpcrypto

import (
	"encoding/binary"
	"io"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xpgp/pgperr"
)

// MaxMPIBytes is the largest MPI body accepted
const MaxMPIBytes = 8192

// MPIByteLength returns the body length for a bit count
func MPIByteLength(bits uint16) int {
	return (int(bits) + 7) / 8
}

// CheckMPI validates the body of an MPI against its declared bit count.
// The most significant used bit must be set and all bits above it clear.
func CheckMPI(bits uint16, body []byte) error {
	length := MPIByteLength(bits)
	if length == 0 {
		return pgperr.New(pgperr.MpiFormatError, "MPI of zero length")
	}
	if length > MaxMPIBytes {
		return pgperr.New(pgperr.MpiFormatError, "MPI too large: %d bytes", length)
	}
	if len(body) != length {
		return pgperr.New(pgperr.MpiFormatError, "MPI body is %d bytes, expected %d", len(body), length)
	}

	nonzero := uint(bits & 7)
	if nonzero == 0 {
		nonzero = 8
	}
	if body[0]>>nonzero != 0 || body[0]&(1<<(nonzero-1)) == 0 {
		return pgperr.New(pgperr.MpiFormatError, "MPI Format error")
	}
	return nil
}

// ParseMPI decodes an MPI from the head of b and returns the rest
func ParseMPI(b []byte) (*big.Int, []byte, error) {
	if len(b) < 2 {
		return nil, nil, pgperr.New(pgperr.NotEnoughData, "MPI header truncated")
	}
	bits := binary.BigEndian.Uint16(b)
	length := MPIByteLength(bits)
	if len(b)-2 < length {
		return nil, nil, pgperr.New(pgperr.NotEnoughData, "MPI body truncated")
	}
	body := b[2 : 2+length]
	if err := CheckMPI(bits, body); err != nil {
		return nil, nil, err
	}
	return new(big.Int).SetBytes(body), b[2+length:], nil
}

// AppendMPI appends the encoding of n to dst
func AppendMPI(dst []byte, n *big.Int) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(n.BitLen()))
	return append(dst, n.Bytes()...)
}

// WriteMPI writes the encoding of n to w
func WriteMPI(w io.Writer, n *big.Int) error {
	_, err := w.Write(AppendMPI(nil, n))
	return errors.WithStack(err)
}

// MPILength returns the encoded length of n
func MPILength(n *big.Int) int {
	return 2 + (n.BitLen()+7)/8
}

// LeftPad returns b padded with leading zeros to size bytes
func LeftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
