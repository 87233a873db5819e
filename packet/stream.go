package packet

import (
	"io"

	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
	"github.com/effective-security/xpgp/reader"
	"github.com/effective-security/xpgp/region"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xpgp", "packet")

// Upcalls provide secrets needed while parsing
type Upcalls interface {
	// Passphrase returns the passphrase for an encrypted secret key or a
	// symmetric-key session key, nil skips the decryption
	Passphrase(pkt *Packet) []byte
	// SecretKey returns the unlocked secret key for the session key, or nil
	SecretKey(sk *PKSessionKey) *SecretKey
}

// SubpacketMode selects how signature subpackets are delivered
type SubpacketMode int

// Subpacket modes
const (
	// SubpacketsIgnore parses known subpackets for the signature only
	SubpacketsIgnore SubpacketMode = iota
	// SubpacketsRaw delivers RawSubpacket
	SubpacketsRaw
	// SubpacketsParsed delivers typed subpackets
	SubpacketsParsed
)

// Options configure a Stream
type Options struct {
	// Accumulate keeps the raw octets of each packet, it is required for
	// v4 signatures
	Accumulate bool
	Upcalls    Upcalls

	raw    [32]byte
	parsed [32]byte
}

// SetSubpackets sets the mode for the subpacket types
func (o *Options) SetSubpackets(mode SubpacketMode, types ...uint8) *Options {
	for _, t := range types {
		i, bit := t>>3, byte(1)<<(t&7)
		o.raw[i] &^= bit
		o.parsed[i] &^= bit
		switch mode {
		case SubpacketsRaw:
			o.raw[i] |= bit
		case SubpacketsParsed:
			o.parsed[i] |= bit
		}
	}
	return o
}

// AllSubpackets sets the mode for all subpacket types
func (o *Options) AllSubpackets(mode SubpacketMode) *Options {
	for t := 0; t < 256; t++ {
		o.SetSubpackets(mode, uint8(t))
	}
	return o
}

// SubpacketMode returns the mode of a subpacket type
func (o *Options) SubpacketMode(t uint8) SubpacketMode {
	i, bit := t>>3, byte(1)<<(t&7)
	switch {
	case o.raw[i]&bit != 0:
		return SubpacketsRaw
	case o.parsed[i]&bit != 0:
		return SubpacketsParsed
	}
	return SubpacketsIgnore
}

type keyedHash struct {
	keyID [pgpcrypto.KeyIDSize]byte
	hash  pgpcrypto.Hash
}

// Stream is the context of a parse. It is not safe for concurrent use.
type Stream struct {
	opts     Options
	rd       *reader.Stack
	chain    Chain
	errs     pgperr.List
	cipher   pgpcrypto.Cipher
	hashes   []keyedHash
	finished bool
}

// NewStream returns a Stream reading from src, opts may be nil
func NewStream(src io.Reader, opts *Options) *Stream {
	s := &Stream{
		rd: reader.New(src),
	}
	if opts != nil {
		s.opts = *opts
	}
	s.rd.SetAccumulate(s.opts.Accumulate)
	return s
}

// Reader returns the reader stack, stages such as dearmour are pushed on it
// before Parse
func (s *Stream) Reader() *reader.Stack {
	return s.rd
}

// Options returns the stream options
func (s *Stream) Options() *Options {
	return &s.opts
}

// Push installs a callback as the head of the chain
func (s *Stream) Push(fn CallbackFunc) {
	s.chain.Push(fn)
}

// Errors returns the error list
func (s *Stream) Errors() *pgperr.List {
	return &s.errs
}

// Cipher returns the session cipher, if a session key was decrypted
func (s *Stream) Cipher() pgpcrypto.Cipher {
	return s.cipher
}

// SetCipher installs the session cipher for encrypted data
func (s *Stream) SetCipher(c pgpcrypto.Cipher) {
	s.cipher = c
}

// FindHash returns the one-pass hash registered for the key id, or nil
func (s *Stream) FindHash(keyID [pgpcrypto.KeyIDSize]byte) pgpcrypto.Hash {
	for _, kh := range s.hashes {
		if kh.keyID == keyID {
			return kh.hash
		}
	}
	return nil
}

// Close closes the reader stack
func (s *Stream) Close() error {
	return s.rd.Close()
}

// Parse parses packets until the end of the input, or until a callback
// returns Finished. It returns the pushed errors, if any.
func (s *Stream) Parse() error {
	logger.KV(xlog.DEBUG, "reason", "parse", "depth", s.rd.Depth())
	s.parse()
	return s.errs.Err()
}

func (s *Stream) parse() {
	for !s.finished && s.parsePacket() {
	}
}

// Emit delivers a packet to the callbacks
func (s *Stream) Emit(tag Tag, c Content) Result {
	return s.emit(&Packet{Tag: tag, Content: c})
}

func (s *Stream) emit(pkt *Packet) Result {
	r := s.chain.Call(pkt)
	if r == Finished {
		s.finished = true
	}
	return r
}

// PushError adds the error to the list and delivers it as PARSER_ERROR
func (s *Stream) PushError(err error) {
	logger.KV(xlog.DEBUG, "reason", "error", "err", err.Error())
	s.errs.Push(err)
	s.Emit(TagParserError, &ParserError{Err: err})
}

func (s *Stream) dropAccumulated() {
	s.rd.TakeAccumulated()
	s.rd.ResetALength()
}

// parsePacket parses one packet and returns false when the parse must stop
func (s *Stream) parsePacket() bool {
	position := s.rd.Position()

	var c [1]byte
	if _, err := io.ReadFull(s.rd, c[:]); err != nil {
		// errors of the base reader are effectively EOF, errors of the
		// stages are reported
		if pgperr.CodeOf(err) != pgperr.Fail {
			s.PushError(err)
		}
		s.dropAccumulated()
		return false
	}

	pt, err := ReadHeader(s.rd, c[0])
	if err != nil {
		s.PushError(err)
		s.dropAccumulated()
		// a stray octet is skipped, a broken length can not be recovered
		return pgperr.CodeOf(err) == pgperr.BadFormat
	}
	pt.Position = position

	logger.KV(xlog.DEBUG,
		"reason", "ptag",
		"tag", pt.ContentTag.String(),
		"length", pt.Length,
		"indeterminate", pt.Indeterminate,
		"position", position)

	s.Emit(TagPTag, pt)

	var reg *region.Region
	if pt.Indeterminate {
		reg = region.NewIndeterminate(nil)
	} else {
		reg = region.New(nil, pt.Length)
	}

	err = s.parseContent(pt.ContentTag, reg)
	if err != nil {
		s.PushError(err)
	}

	switch {
	case reg.Indeterminate:
		if err != nil {
			s.PushError(pgperr.New(pgperr.PacketNotConsumed, "Can't consume indeterminate packets"))
			s.dropAccumulated()
			return false
		}
	case !reg.Done():
		if serr := reg.SkipRest(s.rd); serr != nil {
			s.PushError(pgperr.Wrap(pgperr.PacketNotConsumed, serr, "Packet was not consumed"))
			s.dropAccumulated()
			return false
		}
	}

	if err == nil && s.rd.Accumulate() {
		s.Emit(TagPacketEnd, &PacketEnd{
			Length: s.rd.ALength(),
			Raw:    s.rd.TakeAccumulated(),
		})
		s.rd.ResetALength()
	} else {
		s.dropAccumulated()
	}
	return !s.finished
}

func (s *Stream) parseContent(tag Tag, reg *region.Region) error {
	switch tag {
	case TagSignature:
		return s.parseSignature(reg)
	case TagPublicKey, TagPublicSubkey:
		return s.parsePublicKeyPacket(tag, reg)
	case TagSecretKey, TagSecretSubkey:
		return s.parseSecretKey(tag, reg)
	case TagTrust:
		return s.parseTrust(reg)
	case TagUserID:
		return s.parseUserID(reg)
	case TagUserAttribute:
		return s.parseUserAttribute(reg)
	case TagMarker:
		return s.parseMarker(reg)
	case TagCompressed:
		return s.parseCompressed(reg)
	case TagOnePassSignature:
		return s.parseOnePass(reg)
	case TagLiteralData:
		return s.parseLiteralData(reg)
	case TagPKSessionKey:
		return s.parsePKSessionKey(reg)
	case TagSKSessionKey:
		return s.parseSKSessionKey(reg)
	case TagSEData:
		return s.parseSEData(reg)
	case TagSEIPData:
		return s.parseSEIPData(reg)
	case TagMDC:
		return s.parseMDC(reg)
	}
	return pgperr.New(pgperr.UnknownTag, "Unknown content tag 0x%x", uint16(tag))
}

func (s *Stream) addHash(alg pgpcrypto.HashAlgorithm, keyID [pgpcrypto.KeyIDSize]byte) error {
	h, err := pgpcrypto.NewHash(alg)
	if err != nil {
		return err
	}
	s.hashes = append(s.hashes, keyedHash{keyID: keyID, hash: h})
	return nil
}

func (s *Stream) hashData(p []byte) {
	for _, kh := range s.hashes {
		_, _ = kh.hash.Write(p)
	}
}
