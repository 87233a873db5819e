package gpg

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/fileutil"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/armor"
	"github.com/effective-security/xpgp/keyring"
	"github.com/effective-security/xpgp/metricskey"
	"github.com/effective-security/xpgp/packet"
	"github.com/effective-security/xpgp/reader"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/effective-security/xpgp/gpg"

// startSpan starts a span, the returned func ends it with the error status
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// VerifyOptions configure VerifyFile and VerifyMem
type VerifyOptions struct {
	// Armoured forces the armour on or off, by default it is detected
	Armoured *bool
	// Detached is the signed data of a detached signature. For VerifyFile it
	// is read from the file without the .sig or .asc extension when not set.
	Detached []byte
	// Upcalls provide secrets for encrypted messages
	Upcalls packet.Upcalls
	// UseMmap maps the file instead of reading it
	UseMmap bool
}

// peekSize is the size of the input checked for armour
const peekSize = 4096

func (o *VerifyOptions) armoured(br *bufio.Reader) bool {
	if o != nil && o.Armoured != nil {
		return *o.Armoured
	}
	head, _ := br.Peek(peekSize)
	return armor.IsArmoured(head)
}

// VerifyMem verifies the signed message in data with the keyring
func VerifyMem(ctx context.Context, ring *keyring.Keyring, data []byte, opts *VerifyOptions) (*ValidationResult, error) {
	defer metricskey.PerfVerify.MeasureSince(time.Now(), "mem")
	ctx, end := startSpan(ctx, "gpg.VerifyMem", attribute.Int("size", len(data)))

	res, err := verify(ctx, ring, reader.NewMemory(data), opts)
	end(err)
	return res, err
}

// VerifyFile verifies the signed message in the file with the keyring
func VerifyFile(ctx context.Context, ring *keyring.Keyring, path string, opts *VerifyOptions) (*ValidationResult, error) {
	defer metricskey.PerfVerify.MeasureSince(time.Now(), "file")
	ctx, end := startSpan(ctx, "gpg.VerifyFile", attribute.String("path", path))

	res, err := verifyFile(ctx, ring, path, opts)
	end(err)
	return res, err
}

func verifyFile(ctx context.Context, ring *keyring.Keyring, path string, opts *VerifyOptions) (*ValidationResult, error) {
	if opts == nil {
		opts = &VerifyOptions{}
	}
	if opts.Detached == nil {
		detached, err := readDetached(path)
		if err != nil {
			return nil, err
		}
		if detached != nil {
			o := *opts
			o.Detached = detached
			opts = &o
		}
	}

	f, err := reader.Open(path, opts.UseMmap)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return verify(ctx, ring, f, opts)
}

// readDetached returns the data signed by a detached signature file
func readDetached(path string) ([]byte, error) {
	for _, ext := range []string{".sig", ".asc"} {
		if !strings.HasSuffix(path, ext) {
			continue
		}
		dataPath := strings.TrimSuffix(path, ext)
		if fileutil.FileExists(dataPath) != nil {
			return nil, nil
		}
		logger.KV(xlog.DEBUG, "reason", "detached", "data", dataPath)
		data, err := os.ReadFile(dataPath)
		if err != nil {
			return nil, errors.WithMessagef(err, "unable to read signed data")
		}
		return data, nil
	}
	return nil, nil
}

func verify(ctx context.Context, ring *keyring.Keyring, src io.Reader, opts *VerifyOptions) (*ValidationResult, error) {
	if opts == nil {
		opts = &VerifyOptions{}
	}
	br := bufio.NewReader(src)
	v := &Validator{
		Ring:     ring,
		Armoured: opts.armoured(br),
		Upcalls:  opts.Upcalls,
		Detached: opts.Detached,
	}
	return v.Validate(ctx, br)
}

// ParseFile parses the packets of the file with the callback
func ParseFile(ctx context.Context, path string, opts *packet.Options, armoured *bool, cb packet.CallbackFunc) error {
	defer metricskey.PerfParse.MeasureSince(time.Now(), "file")
	_, end := startSpan(ctx, "gpg.ParseFile", attribute.String("path", path))

	err := parseFile(path, opts, armoured, cb)
	end(err)
	return err
}

func parseFile(path string, opts *packet.Options, armoured *bool, cb packet.CallbackFunc) error {
	if opts == nil {
		// v4 signatures need the accumulated packet
		opts = &packet.Options{Accumulate: true}
	}
	f, err := reader.Open(path, false)
	if err != nil {
		return err
	}
	br := bufio.NewReader(f)
	s := packet.NewStream(br, opts)
	defer func() {
		_ = s.Close()
		_ = f.Close()
	}()

	vo := &VerifyOptions{Armoured: armoured}
	if vo.armoured(br) {
		armor.Push(s)
	}
	s.Push(cb)
	return s.Parse()
}
