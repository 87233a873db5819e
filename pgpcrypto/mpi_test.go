package pgpcrypto_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMPIRoundTrip(t *testing.T) {
	for _, bits := range []int{1, 2, 7, 8, 9, 15, 16, 17, 255, 1024, 2047, 4096, 65535} {
		n := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		n.Or(n, big.NewInt(1))

		enc := pgpcrypto.AppendMPI(nil, n)
		assert.Len(t, enc, pgpcrypto.MPILength(n))
		if pgpcrypto.MPIByteLength(uint16(bits)) > pgpcrypto.MaxMPIBytes {
			_, _, err := pgpcrypto.ParseMPI(enc)
			assert.Equal(t, pgperr.MpiFormatError, pgperr.CodeOf(err))
			continue
		}

		got, rest, err := pgpcrypto.ParseMPI(append(enc, 0xAA))
		require.NoError(t, err, "bits=%d", bits)
		assert.Equal(t, 0, n.Cmp(got), "bits=%d", bits)
		assert.Equal(t, []byte{0xAA}, rest)

		var buf bytes.Buffer
		require.NoError(t, pgpcrypto.WriteMPI(&buf, n))
		assert.Equal(t, enc, buf.Bytes())
	}
}

func TestCheckMPI(t *testing.T) {
	tcases := []struct {
		bits uint16
		body []byte
		ok   bool
	}{
		{1, []byte{0x01}, true},
		{8, []byte{0x80}, true},
		{9, []byte{0x01, 0x00}, true},
		{12, []byte{0x0F, 0xFF}, true},
		// leading bit not set
		{8, []byte{0x7F}, false},
		{12, []byte{0x07, 0xFF}, false},
		// bits above the declared length
		{4, []byte{0x18}, false},
		// zero length
		{0, []byte{}, false},
		// body length mismatch
		{16, []byte{0x80}, false},
	}
	for _, tc := range tcases {
		err := pgpcrypto.CheckMPI(tc.bits, tc.body)
		if tc.ok {
			assert.NoError(t, err, "bits=%d body=%x", tc.bits, tc.body)
		} else {
			assert.Equal(t, pgperr.MpiFormatError, pgperr.CodeOf(err), "bits=%d body=%x", tc.bits, tc.body)
		}
	}

	_, _, err := pgpcrypto.ParseMPI([]byte{0x00})
	assert.Equal(t, pgperr.NotEnoughData, pgperr.CodeOf(err))
	_, _, err = pgpcrypto.ParseMPI([]byte{0x00, 0x10, 0x80})
	assert.Equal(t, pgperr.NotEnoughData, pgperr.CodeOf(err))
}

func TestLeftPad(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 1}, pgpcrypto.LeftPad([]byte{1}, 3))
	assert.Equal(t, []byte{1, 2}, pgpcrypto.LeftPad([]byte{1, 2}, 1))
}
