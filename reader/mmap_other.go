//go:build !unix

package reader

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

func openMmap(path string) (io.ReadCloser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &mapped{Reader: bytes.NewReader(data)}, nil
}
