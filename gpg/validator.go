package gpg

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"

	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/armor"
	"github.com/effective-security/xpgp/keyring"
	"github.com/effective-security/xpgp/packet"
	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xpgp", "gpg")

// SignatureInfo is a checked signature
type SignatureInfo struct {
	Signature *packet.Signature
	// Key is the signer, nil when unknown
	Key *keyring.Key
	// Err is the reason of the failure
	Err error
}

// ValidationResult classifies the signatures of a message
type ValidationResult struct {
	Valid   []*SignatureInfo
	Invalid []*SignatureInfo
	Unknown []*SignatureInfo
	// Data is the signed data: literal data, the clear-signed text, or the
	// detached data
	Data []byte
	// Errors are the errors of the parse
	Errors pgperr.List
}

// OK returns true when at least one signature is valid, and none is invalid
// or from an unknown signer
func (r *ValidationResult) OK() bool {
	return len(r.Valid) > 0 && len(r.Invalid) == 0 && len(r.Unknown) == 0
}

// Err returns nil on success, or the reason of the failure
func (r *ValidationResult) Err() error {
	switch {
	case r.OK():
		return nil
	case len(r.Valid)+len(r.Invalid)+len(r.Unknown) == 0:
		return pgperr.New(pgperr.NoSignature, "No signatures found")
	}
	return pgperr.New(pgperr.BadSignature, "verification failure: %d invalid signatures, %d unknown signatures",
		len(r.Invalid), len(r.Unknown))
}

// Validator checks the signatures of a message against a keyring
type Validator struct {
	Ring *keyring.Keyring
	// Armoured input is dearmoured
	Armoured bool
	// Upcalls provide secrets for encrypted messages,
	// by default the unlocked keys of Ring are used
	Upcalls packet.Upcalls
	// Detached is the signed data, used when the message has no data
	Detached []byte
}

type validation struct {
	v      *Validator
	stream *packet.Stream
	res    *ValidationResult

	data    bytes.Buffer
	seen    bool
	trailer *packet.SignedCleartextTrailer
}

// Validate parses the message and checks its signatures. It returns an
// error when the verification fails, the result is always returned.
func (v *Validator) Validate(_ context.Context, src io.Reader) (*ValidationResult, error) {
	up := v.Upcalls
	if up == nil {
		up = &keyring.Upcalls{Ring: v.Ring}
	}

	s := packet.NewStream(src, &packet.Options{Accumulate: true, Upcalls: up})
	defer func() {
		_ = s.Close()
	}()
	if v.Armoured {
		armor.Push(s)
	}

	va := &validation{
		v:      v,
		stream: s,
		res:    &ValidationResult{},
	}
	s.Push(va.callback)
	_ = s.Parse()

	res := va.res
	res.Errors = append(res.Errors, *s.Errors()...)
	if va.seen {
		res.Data = va.data.Bytes()
	} else {
		res.Data = v.Detached
	}

	err := res.Err()
	if pgperr.CodeOf(err) == pgperr.NoSignature {
		res.Errors.Push(err)
	}
	logger.KV(xlog.DEBUG,
		"reason", "validated",
		"valid", len(res.Valid),
		"invalid", len(res.Invalid),
		"unknown", len(res.Unknown),
		"errors", len(res.Errors))
	return res, err
}

func (va *validation) callback(pkt *packet.Packet, next packet.Callback) packet.Result {
	switch pkt.Tag {
	case packet.TagLiteralDataHeader:
		va.seen = true
	case packet.TagLiteralDataBody, packet.TagSignedCleartextBody:
		va.seen = true
		va.data.Write(pkt.Content.(*packet.Body).Data)
	case packet.TagSignedCleartextHeader:
		va.seen = true
	case packet.TagSignedCleartextTrailer:
		va.trailer = pkt.Content.(*packet.SignedCleartextTrailer)
	case packet.TagSignature, packet.TagSignatureFooter:
		va.check(pkt.Content.(*packet.Signature))
	}
	return next.Call(pkt)
}

func (va *validation) check(sig *packet.Signature) {
	info := &SignatureInfo{Signature: sig}

	var key *keyring.Key
	if sig.SignerSet {
		key = va.v.Ring.FindByID(sig.SignerID[:])
	}
	if key == nil {
		info.Err = pgperr.New(pgperr.UnknownSigner, "Unknown signer %X", sig.SignerID[:])
		va.stream.Errors().Push(info.Err)
		va.res.Unknown = append(va.res.Unknown, info)
		logger.KV(xlog.DEBUG, "reason", "unknown_signer", "id", sig.SignerID[:])
		return
	}
	info.Key = key

	info.Err = va.verify(key, sig)
	if info.Err != nil {
		va.stream.Errors().Push(info.Err)
		va.res.Invalid = append(va.res.Invalid, info)
		logger.KV(xlog.DEBUG, "reason", "invalid", "id", key.IDString(), "err", info.Err.Error())
		return
	}
	va.res.Valid = append(va.res.Valid, info)
	logger.KV(xlog.DEBUG, "reason", "valid", "id", key.IDString(), "type", sig.Type.String())
}

func (va *validation) verify(key *keyring.Key, sig *packet.Signature) error {
	switch sig.Type {
	case packet.SigBinary, packet.SigText:
	default:
		return pgperr.New(pgperr.Unimplemented, "Verification of signature type %s is not implemented", sig.Type)
	}

	pub := key.PublicKey
	if pub.Algorithm != sig.KeyAlgorithm {
		return pgperr.New(pgperr.BadSignature, "Signature algorithm %s does not match the key algorithm %s",
			sig.KeyAlgorithm, pub.Algorithm)
	}

	digest, err := va.digest(sig)
	if err != nil {
		return err
	}
	if digest[0] != sig.Hash2[0] || digest[1] != sig.Hash2[1] {
		return pgperr.New(pgperr.BadHash, "Hash check failed (%02x%02x vs %02x%02x)",
			digest[0], digest[1], sig.Hash2[0], sig.Hash2[1])
	}

	var ok bool
	switch {
	case pub.Algorithm.IsRSA() && pub.RSA != nil && sig.RSA != nil:
		ok = pgpcrypto.RSAVerify(pub.RSA, sig.HashAlgorithm, digest, sig.RSA)
	case pub.Algorithm == pgpcrypto.PubKeyDSA && pub.DSA != nil && sig.R != nil:
		ok = pgpcrypto.DSAVerify(pub.DSA, digest, sig.R, sig.S)
	default:
		return pgperr.New(pgperr.UnsupportedSignature, "Unsupported signature key algorithm (%s)", sig.KeyAlgorithm)
	}
	if !ok {
		return pgperr.New(pgperr.BadSignature, "Bad signature")
	}
	return nil
}

// digest returns the hash of the signed data with the signature trailer
func (va *validation) digest(sig *packet.Signature) ([]byte, error) {
	h, err := va.dataHash(sig)
	if err != nil {
		return nil, err
	}

	if sig.Version == 4 {
		_, _ = h.Write(sig.V4Hashed)
		var trailer [6]byte
		trailer[0] = 0x04
		trailer[1] = 0xff
		binary.BigEndian.PutUint32(trailer[2:], uint32(len(sig.V4Hashed)))
		_, _ = h.Write(trailer[:])
	} else {
		var trailer [5]byte
		trailer[0] = byte(sig.Type)
		binary.BigEndian.PutUint32(trailer[1:], uint32(sig.CreationTime.Unix()))
		_, _ = h.Write(trailer[:])
	}
	return h.Sum(), nil
}

// dataHash returns a hash of the signed data, ready for the trailer
func (va *validation) dataHash(sig *packet.Signature) (pgpcrypto.Hash, error) {
	if va.trailer != nil {
		h := va.trailer.Hash(sig.HashAlgorithm)
		if h == nil {
			return nil, pgperr.New(pgperr.UnsupportedHash, "Signed cleartext is not hashed with %s", sig.HashAlgorithm)
		}
		return h.Clone()
	}

	if sig.Type == packet.SigBinary && va.seen {
		if h := va.stream.FindHash(sig.SignerID); h != nil && h.Algorithm() == sig.HashAlgorithm {
			return h.Clone()
		}
	}

	h, err := pgpcrypto.NewHash(sig.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	data := va.v.Detached
	if va.seen {
		data = va.data.Bytes()
	}
	if sig.Type == packet.SigText {
		data = CanonicalText(data)
	}
	_, _ = h.Write(data)
	return h, nil
}

// CanonicalText converts the line endings to CR LF
func CanonicalText(b []byte) []byte {
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(b, []byte("\n"), []byte("\r\n"))
}
