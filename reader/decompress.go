package reader

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/dsnet/compress/bzip2"
	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
	"github.com/effective-security/xpgp/region"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// ErrorSink receives errors that do not stop a read
type ErrorSink interface {
	PushError(err error)
}

// Decompress is a stage inflating compressed data bounded by a region
type Decompress struct {
	alg  pgpcrypto.CompressionAlgorithm
	src  *region.Bounded
	dec  io.Reader
	errs ErrorSink
	done bool
}

// NewDecompress returns a Decompress stage. Stream errors that do not stop
// the read, such as the stream ending before the region does, are pushed to
// errs.
func NewDecompress(src *region.Bounded, alg pgpcrypto.CompressionAlgorithm, errs ErrorSink) (*Decompress, error) {
	d := &Decompress{
		alg:  alg,
		src:  src,
		errs: errs,
	}

	var err error
	switch alg {
	case pgpcrypto.CompressionNone:
		d.dec = src
	case pgpcrypto.CompressionZIP:
		d.dec = flate.NewReader(src)
	case pgpcrypto.CompressionZLIB:
		d.dec, err = zlib.NewReader(src)
	case pgpcrypto.CompressionBZIP2:
		d.dec, err = bzip2.NewReader(src, nil)
	default:
		return nil, pgperr.New(pgperr.UnsupportedCompress, "Compression algorithm %s is not yet supported", alg)
	}
	if err != nil {
		return nil, pgperr.Wrap(pgperr.DecompressionError, err, "error initialising %s stream", alg)
	}
	return d, nil
}

// Name of the stage
func (d *Decompress) Name() string { return "decompress" }

// Algorithm returns the compression algorithm
func (d *Decompress) Algorithm() pgpcrypto.CompressionAlgorithm {
	return d.alg
}

// Read implements io.Reader
func (d *Decompress) Read(p []byte) (int, error) {
	if d.done {
		return 0, io.EOF
	}
	n, err := d.dec.Read(p)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, io.EOF) {
		d.done = true
		reg := d.src.Region()
		if !reg.Indeterminate && reg.Remaining() > 0 && d.alg != pgpcrypto.CompressionNone && d.errs != nil {
			d.errs.PushError(pgperr.New(pgperr.DecompressionError, "Compressed stream ended before packet end."))
		}
		return n, io.EOF
	}
	if pgperr.CodeOf(err) != pgperr.Fail {
		return n, err
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return n, pgperr.Wrap(pgperr.DecompressionError, err, "Compressed data didn't end when region ended.")
	}
	return n, pgperr.Wrap(pgperr.DecompressionError, err, "error inflating %s stream", d.alg)
}

// Close releases the decompressor
func (d *Decompress) Close() error {
	if c, ok := d.dec.(io.Closer); ok && d.dec != io.Reader(d.src) {
		return errors.WithStack(c.Close())
	}
	return nil
}
