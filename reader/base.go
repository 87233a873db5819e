package reader

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// NewMemory returns a base reader over an in-memory buffer
func NewMemory(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// Open returns a base reader over a file. With useMmap the file is mapped
// read-only where supported, otherwise it is read through the descriptor.
func Open(path string, useMmap bool) (io.ReadCloser, error) {
	if useMmap {
		return openMmap(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}

// mapped is a base reader over mapped memory
type mapped struct {
	*bytes.Reader
	unmap func() error
}

func (m *mapped) Close() error {
	if m.unmap == nil {
		return nil
	}
	err := m.unmap()
	m.unmap = nil
	return errors.WithStack(err)
}
