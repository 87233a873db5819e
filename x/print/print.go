// Package print provides helpers to print OpenPGP objects
package print

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/ugorji/go/codec"
	"golang.org/x/text/encoding/charmap"
)

var (
	// jsonEncPPHandle is used to encode json with a human readable pretty printed out put, as well as
	// line breaks/indents, fields are serialized in a canonical order everytime
	jsonEncPPHandle codec.JsonHandle
)

func init() {
	jsonEncPPHandle.BasicHandle.EncodeOptions.Canonical = true
	jsonEncPPHandle.Indent = -1
}

var newLine = []byte("\n")

// JSON prints value to out
func JSON(out io.Writer, value any) error {
	var json []byte
	err := codec.NewEncoderBytes(&json, &jsonEncPPHandle).Encode(value)
	if err != nil {
		return errors.WithMessage(err, "failed to encode")
	}

	_, _ = out.Write(json)
	_, _ = out.Write(newLine)
	return nil
}

// UserID returns a printable user id. Ids that are not valid UTF-8 are
// decoded as Latin-1, as written by old implementations.
func UserID(id string) string {
	if utf8.ValidString(id) {
		return id
	}
	s, err := charmap.ISO8859_1.NewDecoder().String(id)
	if err != nil {
		return fmt.Sprintf("%q", id)
	}
	return s
}
