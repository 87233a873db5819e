// Package pgperr defines the coded errors reported while parsing and
// validating OpenPGP data.
package pgperr

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code identifies a class of failure
type Code int

// General codes
const (
	OK Code = iota
	Fail
	SystemError
	Unimplemented
)

// Reader codes
const (
	ReadFailed Code = 0x1000 + iota
	EarlyEOF
	BadFormat
	Unsupported
	UnconsumedData
)

// Parser codes
const (
	NotEnoughData Code = 0x3000 + iota
	UnknownTag
	PacketConsumed
	MpiFormatError
	PacketNotConsumed
	DecompressionError
	NoUserID
)

// Validation codes
const (
	BadSignature Code = 0x5000 + iota
	NoSignature
	UnknownSigner
	BadHash
)

// Algorithm codes
const (
	UnsupportedSymmetric Code = 0x6000 + iota
	UnsupportedPublicKey
	UnsupportedSignature
	UnsupportedHash
	UnsupportedCompress
)

// Protocol codes
const (
	BadSymmetricDecrypt Code = 0x7000 + iota
	UnknownSS
	CriticalSSIgnored
	BadPublicKeyVersion
	BadSignatureVersion
	BadOnePassSigVersion
	BadPKSKVersion
	DecryptedMsgWrongLen
	BadSKChecksum
)

var codeNames = map[Code]string{
	OK:                   "OK",
	Fail:                 "Fail",
	SystemError:          "SystemError",
	Unimplemented:        "Unimplemented",
	ReadFailed:           "ReadFailed",
	EarlyEOF:             "EarlyEOF",
	BadFormat:            "BadFormat",
	Unsupported:          "Unsupported",
	UnconsumedData:       "UnconsumedData",
	NotEnoughData:        "NotEnoughData",
	UnknownTag:           "UnknownTag",
	PacketConsumed:       "PacketConsumed",
	MpiFormatError:       "MpiFormatError",
	PacketNotConsumed:    "PacketNotConsumed",
	DecompressionError:   "DecompressionError",
	NoUserID:             "NoUserID",
	BadSignature:         "BadSignature",
	NoSignature:          "NoSignature",
	UnknownSigner:        "UnknownSigner",
	BadHash:              "BadHash",
	UnsupportedSymmetric: "UnsupportedSymmetric",
	UnsupportedPublicKey: "UnsupportedPublicKey",
	UnsupportedSignature: "UnsupportedSignature",
	UnsupportedHash:      "UnsupportedHash",
	UnsupportedCompress:  "UnsupportedCompress",
	BadSymmetricDecrypt:  "BadSymmetricDecrypt",
	UnknownSS:            "UnknownSS",
	CriticalSSIgnored:    "CriticalSSIgnored",
	BadPublicKeyVersion:  "BadPublicKeyVersion",
	BadSignatureVersion:  "BadSignatureVersion",
	BadOnePassSigVersion: "BadOnePassSigVersion",
	BadPKSKVersion:       "BadPKSKVersion",
	DecryptedMsgWrongLen: "DecryptedMsgWrongLen",
	BadSKChecksum:        "BadSKChecksum",
}

// String returns the name of the code
func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Code(0x%04x)", int(c))
}

// Error is an error with a code
type Error struct {
	Code  Code
	Msg   string
	cause error
}

// New returns a coded error
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap returns a coded error caused by err
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		cause: errors.WithStack(err),
	}
}

// Error implements error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Msg, e.cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the cause
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports a match on the code, so a template error can be used as target
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Msg == "" || t.Msg == e.Msg)
}

// CodeOf returns the code carried by err, or Fail for uncoded errors.
// A nil error is OK.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Fail
}

// Sentinel returns a template error that matches any error with the code
// when used with errors.Is
func Sentinel(code Code) error {
	return &Error{Code: code}
}

// List is an ordered list of errors collected during a parse
type List []error

// Push appends an error
func (l *List) Push(err error) {
	if err != nil {
		*l = append(*l, err)
	}
}

// Pushf appends a coded error
func (l *List) Pushf(code Code, format string, args ...any) *Error {
	e := New(code, format, args...)
	*l = append(*l, e)
	return e
}

// Has reports whether any error in the list carries the code
func (l List) Has(code Code) bool {
	for _, e := range l {
		if CodeOf(e) == code {
			return true
		}
	}
	return false
}

// Codes returns the codes in order
func (l List) Codes() []Code {
	codes := make([]Code, 0, len(l))
	for _, e := range l {
		codes = append(codes, CodeOf(e))
	}
	return codes
}

// Err returns nil for an empty list, or the list as an error
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Error implements error interface
func (l List) Error() string {
	msgs := make([]string, 0, len(l))
	for _, e := range l {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap returns the list members
func (l List) Unwrap() []error {
	return l
}
