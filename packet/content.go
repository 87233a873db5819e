package packet

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/effective-security/xpgp/pgpcrypto"
)

// Packet is a value delivered to the callbacks
type Packet struct {
	Tag      Tag
	Critical bool
	Content  Content
}

// Content is the payload of a Packet, one type per payload kind
type Content interface {
	isContent()
}

// PublicKey is a public key or public subkey, and the public part of a
// secret key
type PublicKey struct {
	Version      uint8
	CreationTime time.Time
	// DaysValid is only present in v2 and v3 keys, 0 means forever
	DaysValid uint16
	Algorithm pgpcrypto.PublicKeyAlgorithm
	Subkey    bool

	RSA     *pgpcrypto.RSAPublicKey
	DSA     *pgpcrypto.DSAPublicKey
	ElGamal *pgpcrypto.ElGamalPublicKey
}

// Body returns the serialized key material, as hashed for fingerprints
// and key signatures
func (k *PublicKey) Body() []byte {
	b := []byte{k.Version}
	b = binary.BigEndian.AppendUint32(b, uint32(k.CreationTime.Unix()))
	if k.Version < 4 {
		b = binary.BigEndian.AppendUint16(b, k.DaysValid)
	}
	b = append(b, byte(k.Algorithm))
	for _, n := range k.mpis() {
		b = pgpcrypto.AppendMPI(b, n)
	}
	return b
}

func (k *PublicKey) mpis() []*big.Int {
	switch {
	case k.RSA != nil:
		return []*big.Int{k.RSA.N, k.RSA.E}
	case k.DSA != nil:
		return []*big.Int{k.DSA.P, k.DSA.Q, k.DSA.G, k.DSA.Y}
	case k.ElGamal != nil:
		return []*big.Int{k.ElGamal.P, k.ElGamal.G, k.ElGamal.Y}
	}
	return nil
}

// Fingerprint returns the fingerprint and the key id
func (k *PublicKey) Fingerprint() ([]byte, [pgpcrypto.KeyIDSize]byte) {
	if k.Version < 4 && k.RSA != nil {
		return pgpcrypto.FingerprintV3(k.RSA.N, k.RSA.E)
	}
	return pgpcrypto.FingerprintV4(k.Body())
}

// KeyID returns the key id
func (k *PublicKey) KeyID() [pgpcrypto.KeyIDSize]byte {
	_, id := k.Fingerprint()
	return id
}

// S2K usage octets
const (
	S2KUsageNone     uint8 = 0
	S2KUsageChecksum uint8 = 255
	S2KUsageSHA1     uint8 = 254
)

// SecretKey is a secret key or secret subkey
type SecretKey struct {
	PublicKey

	S2KUsage  uint8
	Symmetric pgpcrypto.SymmetricAlgorithm
	S2K       pgpcrypto.S2K
	IV        []byte

	// Checksum is set for keys without SHA1 protection
	Checksum uint16
	// CheckHash is the SHA1 of the secret MPIs for S2K usage 254
	CheckHash []byte

	RSA     *pgpcrypto.RSASecretKey
	DSA     *pgpcrypto.DSASecretKey
	ElGamal *pgpcrypto.ElGamalSecretKey
}

// Encrypted returns true if the secret MPIs are protected by a passphrase
func (k *SecretKey) Encrypted() bool {
	return k.S2KUsage != S2KUsageNone
}

// SigType is the signature type octet
type SigType uint8

// Signature types
const (
	SigBinary            SigType = 0x00
	SigText              SigType = 0x01
	SigStandalone        SigType = 0x02
	SigGenericCert       SigType = 0x10
	SigPersonaCert       SigType = 0x11
	SigCasualCert        SigType = 0x12
	SigPositiveCert      SigType = 0x13
	SigSubkeyBinding     SigType = 0x18
	SigPrimaryKeyBinding SigType = 0x19
	SigDirectKey         SigType = 0x1F
	SigKeyRevocation     SigType = 0x20
	SigSubkeyRevocation  SigType = 0x28
	SigCertRevocation    SigType = 0x30
	SigTimestamp         SigType = 0x40
	SigThirdParty        SigType = 0x50
)

var sigTypeNames = map[SigType]string{
	SigBinary:            "Signature of a binary document",
	SigText:              "Signature of a canonical text document",
	SigStandalone:        "Standalone signature",
	SigGenericCert:       "Generic certification of a User ID and Public Key packet",
	SigPersonaCert:       "Persona certification of a User ID and Public Key packet",
	SigCasualCert:        "Casual certification of a User ID and Public Key packet",
	SigPositiveCert:      "Positive certification of a User ID and Public Key packet",
	SigSubkeyBinding:     "Subkey Binding Signature",
	SigPrimaryKeyBinding: "Primary Key Binding Signature",
	SigDirectKey:         "Signature directly on a key",
	SigKeyRevocation:     "Key revocation signature",
	SigSubkeyRevocation:  "Subkey revocation signature",
	SigCertRevocation:    "Certification revocation signature",
	SigTimestamp:         "Timestamp signature",
	SigThirdParty:        "Third-Party Confirmation signature",
}

func (t SigType) String() string {
	if s, ok := sigTypeNames[t]; ok {
		return s
	}
	return "Unknown signature type"
}

// IsCertification returns true for user id certifications
func (t SigType) IsCertification() bool {
	return t >= SigGenericCert && t <= SigPositiveCert
}

// Signature holds the signature metadata and value
type Signature struct {
	Version         uint8
	Type            SigType
	CreationTime    time.Time
	CreationTimeSet bool
	// Expiration is the validity period after creation, 0 means forever
	Expiration    time.Duration
	SignerID      [pgpcrypto.KeyIDSize]byte
	SignerSet     bool
	KeyAlgorithm  pgpcrypto.PublicKeyAlgorithm
	HashAlgorithm pgpcrypto.HashAlgorithm
	Hash2         [2]byte

	RSA *big.Int
	R   *big.Int
	S   *big.Int
	// Raw is the value of signatures with private algorithms
	Raw []byte

	// V4Hashed are the wire octets from the version through the end of the
	// hashed subpackets
	V4Hashed []byte
}

// UserID is a user id, usually a UTF-8 "name <email>"
type UserID struct {
	ID string
}

// UserAttribute holds the raw attribute subpackets
type UserAttribute struct {
	Data []byte
}

// Trust holds implementation defined trust data
type Trust struct {
	Data []byte
}

// Marker is the obsolete marker packet
type Marker struct {
	Data []byte
}

// LiteralDataHeader precedes the literal data body
type LiteralDataHeader struct {
	// Format is 'b' binary, 't' text or 'u' UTF-8
	Format   byte
	Filename string
	ModTime  time.Time
}

// Body is a chunk of data: literal data, unarmoured or cleartext
// text, or encrypted data that could not be decrypted
type Body struct {
	Data []byte
}

// Compressed announces compressed content, the inner packets follow
type Compressed struct {
	Algorithm pgpcrypto.CompressionAlgorithm
}

// OnePassSignature precedes signed data
type OnePassSignature struct {
	Version       uint8
	Type          SigType
	HashAlgorithm pgpcrypto.HashAlgorithm
	KeyAlgorithm  pgpcrypto.PublicKeyAlgorithm
	KeyID         [pgpcrypto.KeyIDSize]byte
	Nested        bool
}

// PKSessionKey is a session key encrypted to a public key
type PKSessionKey struct {
	Version   uint8
	KeyID     [pgpcrypto.KeyIDSize]byte
	Algorithm pgpcrypto.PublicKeyAlgorithm

	// RSA is m^e mod n
	RSA *big.Int
	// ElGamalC1 is g^k mod p, ElGamalC2 is m * y^k mod p
	ElGamalC1 *big.Int
	ElGamalC2 *big.Int

	// Symmetric, Key and Checksum are set once decrypted
	Symmetric pgpcrypto.SymmetricAlgorithm
	Key       []byte
	Checksum  [2]byte
}

// SKSessionKey is a session key derived from a passphrase
type SKSessionKey struct {
	Version      uint8
	Symmetric    pgpcrypto.SymmetricAlgorithm
	S2K          pgpcrypto.S2K
	EncryptedKey []byte

	// SessionSymmetric and Key are set once decrypted
	SessionSymmetric pgpcrypto.SymmetricAlgorithm
	Key              []byte
}

// SEDataHeader precedes symmetrically encrypted data
type SEDataHeader struct{}

// SEIPDataHeader precedes integrity protected data
type SEIPDataHeader struct {
	Version uint8
}

// MDC is the modification detection code
type MDC struct {
	Hash [20]byte
}

// RawSubpacket is an unparsed signature subpacket
type RawSubpacket struct {
	Type     uint8
	Critical bool
	Data     []byte
}

// SubpacketTime is a creation or expiration time subpacket.
// Expirations are relative, Duration is set for them.
type SubpacketTime struct {
	Time     time.Time
	Duration time.Duration
}

// TrustSignature is a trust signature subpacket
type TrustSignature struct {
	Level  uint8
	Amount uint8
}

// SubpacketBool is an exportable, revocable or primary user id subpacket
type SubpacketBool struct {
	Value bool
}

// SubpacketData is a subpacket with opaque or list data: preferences,
// flags, features, embedded signatures and user defined subpackets
type SubpacketData struct {
	Data []byte
}

// SubpacketString is a regexp, policy URI or preferred key server subpacket
type SubpacketString struct {
	Value string
}

// SignersUserID is the signer's user id subpacket
type SignersUserID struct {
	UserID string
}

// Issuer is the issuer key id subpacket
type Issuer struct {
	KeyID [pgpcrypto.KeyIDSize]byte
}

// Notation is a notation data subpacket
type Notation struct {
	Flags [4]byte
	Name  []byte
	Value []byte
}

// HumanReadable returns true if the value is text
func (n *Notation) HumanReadable() bool {
	return n.Flags[0]&0x80 != 0
}

// RevocationReason is a reason for revocation subpacket
type RevocationReason struct {
	Code   uint8
	Reason string
}

// RevocationKey is a revocation key subpacket
type RevocationKey struct {
	Class       uint8
	Algorithm   pgpcrypto.PublicKeyAlgorithm
	Fingerprint [20]byte
}

// SignatureTarget is a signature target subpacket
type SignatureTarget struct {
	KeyAlgorithm  pgpcrypto.PublicKeyAlgorithm
	HashAlgorithm pgpcrypto.HashAlgorithm
	Hash          []byte
}

// Header is an armour header line
type Header struct {
	Key   string
	Value string
}

// ArmourHeader starts an armoured block
type ArmourHeader struct {
	Type    string
	Headers []Header
}

// ArmourTrailer ends an armoured block
type ArmourTrailer struct {
	Type string
}

// SignedCleartextHeader starts a clear-signed message
type SignedCleartextHeader struct {
	Headers []Header
}

// SignedCleartextTrailer carries the hashes of the clear-signed text,
// ready for the signature trailer to be added
type SignedCleartextTrailer struct {
	Hashes []pgpcrypto.Hash
}

// Hash returns the hash for the algorithm, or nil
func (t *SignedCleartextTrailer) Hash(alg pgpcrypto.HashAlgorithm) pgpcrypto.Hash {
	for _, h := range t.Hashes {
		if h.Algorithm() == alg {
			return h
		}
	}
	return nil
}

// PacketEnd follows a packet when accumulation is on
type PacketEnd struct {
	Length uint32
	Raw    []byte
}

// ParserError reports an error pushed while parsing
type ParserError struct {
	Err error
}

func (*PTag) isContent()                   {}
func (*PublicKey) isContent()              {}
func (*SecretKey) isContent()              {}
func (*Signature) isContent()              {}
func (*UserID) isContent()                 {}
func (*UserAttribute) isContent()          {}
func (*Trust) isContent()                  {}
func (*Marker) isContent()                 {}
func (*LiteralDataHeader) isContent()      {}
func (*Body) isContent()                   {}
func (*Compressed) isContent()             {}
func (*OnePassSignature) isContent()       {}
func (*PKSessionKey) isContent()           {}
func (*SKSessionKey) isContent()           {}
func (*SEDataHeader) isContent()           {}
func (*SEIPDataHeader) isContent()         {}
func (*MDC) isContent()                    {}
func (*RawSubpacket) isContent()           {}
func (*SubpacketTime) isContent()          {}
func (*TrustSignature) isContent()         {}
func (*SubpacketBool) isContent()          {}
func (*SubpacketData) isContent()          {}
func (*SubpacketString) isContent()        {}
func (*SignersUserID) isContent()          {}
func (*Issuer) isContent()                 {}
func (*Notation) isContent()               {}
func (*RevocationReason) isContent()       {}
func (*RevocationKey) isContent()          {}
func (*SignatureTarget) isContent()        {}
func (*ArmourHeader) isContent()           {}
func (*ArmourTrailer) isContent()          {}
func (*SignedCleartextHeader) isContent()  {}
func (*SignedCleartextTrailer) isContent() {}
func (*PacketEnd) isContent()              {}
func (*ParserError) isContent()            {}
