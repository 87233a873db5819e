//go:build unix

package reader

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"golang.org/x/sys/unix"
)

func openMmap(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	size := st.Size()
	if size == 0 {
		return &mapped{Reader: bytes.NewReader(nil)}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.WithMessagef(err, "mmap failed: %s", path)
	}
	logger.KV(xlog.DEBUG, "reason", "mmap", "file", path, "size", size)

	return &mapped{
		Reader: bytes.NewReader(data),
		unmap: func() error {
			return unix.Munmap(data)
		},
	}, nil
}
