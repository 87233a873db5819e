package packet

import "fmt"

// Tag identifies the kind of a delivered packet: an OpenPGP packet tag,
// a signature subpacket type offset by SubpacketBase, or a pseudo packet
// produced while streaming
type Tag uint16

// OpenPGP packet tags
const (
	TagReserved         Tag = 0
	TagPKSessionKey     Tag = 1
	TagSignature        Tag = 2
	TagSKSessionKey     Tag = 3
	TagOnePassSignature Tag = 4
	TagSecretKey        Tag = 5
	TagPublicKey        Tag = 6
	TagSecretSubkey     Tag = 7
	TagCompressed       Tag = 8
	TagSEData           Tag = 9
	TagMarker           Tag = 10
	TagLiteralData      Tag = 11
	TagTrust            Tag = 12
	TagUserID           Tag = 13
	TagPublicSubkey     Tag = 14
	TagUserAttribute    Tag = 17
	TagSEIPData         Tag = 18
	TagMDC              Tag = 19
)

// SubpacketBase is added to a signature subpacket type to form its Tag
const SubpacketBase Tag = 0x200

// Signature subpacket tags
const (
	SubpacketCreationTime       = SubpacketBase + 2
	SubpacketExpirationTime     = SubpacketBase + 3
	SubpacketExportable         = SubpacketBase + 4
	SubpacketTrust              = SubpacketBase + 5
	SubpacketRegexp             = SubpacketBase + 6
	SubpacketRevocable          = SubpacketBase + 7
	SubpacketKeyExpiration      = SubpacketBase + 9
	SubpacketReserved           = SubpacketBase + 10
	SubpacketPreferredSymmetric = SubpacketBase + 11
	SubpacketRevocationKey      = SubpacketBase + 12
	SubpacketIssuer             = SubpacketBase + 16
	SubpacketNotation           = SubpacketBase + 20
	SubpacketPreferredHash      = SubpacketBase + 21
	SubpacketPreferredCompress  = SubpacketBase + 22
	SubpacketKeyServerPrefs     = SubpacketBase + 23
	SubpacketPreferredKeyServer = SubpacketBase + 24
	SubpacketPrimaryUserID      = SubpacketBase + 25
	SubpacketPolicyURI          = SubpacketBase + 26
	SubpacketKeyFlags           = SubpacketBase + 27
	SubpacketSignersUserID      = SubpacketBase + 28
	SubpacketRevocationReason   = SubpacketBase + 29
	SubpacketFeatures           = SubpacketBase + 30
	SubpacketSignatureTarget    = SubpacketBase + 31
	SubpacketEmbeddedSignature  = SubpacketBase + 32
	SubpacketUserDefinedFirst   = SubpacketBase + 100
	SubpacketUserDefinedLast    = SubpacketBase + 110
)

// Pseudo packet tags
const (
	TagPTag Tag = 0x300 + iota
	TagRawSubpacket
	TagPacketEnd
	TagLiteralDataHeader
	TagLiteralDataBody
	TagSignatureHeader
	TagSignatureFooter
	TagArmourHeader
	TagArmourTrailer
	TagUnarmouredText
	TagSignedCleartextHeader
	TagSignedCleartextBody
	TagSignedCleartextTrailer
	TagEncryptedSecretKey
	TagEncryptedPKSessionKey
	TagSEDataHeader
	TagSEDataBody
	TagSEIPDataHeader
	TagSEIPDataBody
	TagParserError
)

var tagNames = map[Tag]string{
	TagReserved:         "Reserved",
	TagPKSessionKey:     "Public-Key Encrypted Session Key",
	TagSignature:        "Signature",
	TagSKSessionKey:     "Symmetric-Key Encrypted Session Key",
	TagOnePassSignature: "One-Pass Signature",
	TagSecretKey:        "Secret Key",
	TagPublicKey:        "Public Key",
	TagSecretSubkey:     "Secret Subkey",
	TagCompressed:       "Compressed Data",
	TagSEData:           "Symmetrically Encrypted Data",
	TagMarker:           "Marker",
	TagLiteralData:      "Literal Data",
	TagTrust:            "Trust",
	TagUserID:           "User ID",
	TagPublicSubkey:     "Public Subkey",
	TagUserAttribute:    "User Attribute",
	TagSEIPData:         "Sym. Encrypted and Integrity Protected Data",
	TagMDC:              "Modification Detection Code",

	SubpacketCreationTime:       "SS: Signature Creation Time",
	SubpacketExpirationTime:     "SS: Signature Expiration Time",
	SubpacketExportable:         "SS: Exportable Certification",
	SubpacketTrust:              "SS: Trust Signature",
	SubpacketRegexp:             "SS: Regular Expression",
	SubpacketRevocable:          "SS: Revocable",
	SubpacketKeyExpiration:      "SS: Key Expiration Time",
	SubpacketReserved:           "SS: Reserved",
	SubpacketPreferredSymmetric: "SS: Preferred Symmetric Algorithms",
	SubpacketRevocationKey:      "SS: Revocation Key",
	SubpacketIssuer:             "SS: Issuer Key ID",
	SubpacketNotation:           "SS: Notation Data",
	SubpacketPreferredHash:      "SS: Preferred Hash Algorithms",
	SubpacketPreferredCompress:  "SS: Preferred Compression Algorithms",
	SubpacketKeyServerPrefs:     "SS: Key Server Preferences",
	SubpacketPreferredKeyServer: "SS: Preferred Key Server",
	SubpacketPrimaryUserID:      "SS: Primary User ID",
	SubpacketPolicyURI:          "SS: Policy URI",
	SubpacketKeyFlags:           "SS: Key Flags",
	SubpacketSignersUserID:      "SS: Signer's User ID",
	SubpacketRevocationReason:   "SS: Reason for Revocation",
	SubpacketFeatures:           "SS: Features",
	SubpacketSignatureTarget:    "SS: Signature Target",
	SubpacketEmbeddedSignature:  "SS: Embedded Signature",

	TagPTag:                   "PTag",
	TagRawSubpacket:           "Raw Signature Subpacket",
	TagPacketEnd:              "Packet End",
	TagLiteralDataHeader:      "Literal Data Header",
	TagLiteralDataBody:        "Literal Data Body",
	TagSignatureHeader:        "Signature Header",
	TagSignatureFooter:        "Signature Footer",
	TagArmourHeader:           "Armour Header",
	TagArmourTrailer:          "Armour Trailer",
	TagUnarmouredText:         "Unarmoured Text",
	TagSignedCleartextHeader:  "Signed Cleartext Header",
	TagSignedCleartextBody:    "Signed Cleartext Body",
	TagSignedCleartextTrailer: "Signed Cleartext Trailer",
	TagEncryptedSecretKey:     "Encrypted Secret Key",
	TagEncryptedPKSessionKey:  "Encrypted Public-Key Session Key",
	TagSEDataHeader:           "Symmetrically Encrypted Data Header",
	TagSEDataBody:             "Symmetrically Encrypted Data Body",
	TagSEIPDataHeader:         "Sym. Encrypted and Integrity Protected Data Header",
	TagSEIPDataBody:           "Sym. Encrypted and Integrity Protected Data Body",
	TagParserError:            "Parser Error",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	if t >= SubpacketUserDefinedFirst && t <= SubpacketUserDefinedLast {
		return fmt.Sprintf("SS: User Defined (%d)", uint16(t-SubpacketBase))
	}
	if t.IsSubpacket() {
		return fmt.Sprintf("SS: Unknown (%d)", uint16(t-SubpacketBase))
	}
	return fmt.Sprintf("Unknown Tag (0x%x)", uint16(t))
}

// IsSubpacket returns true for signature subpacket tags
func (t Tag) IsSubpacket() bool {
	return t >= SubpacketBase && t < SubpacketBase+0x100
}

// SubpacketType returns the subpacket type of a subpacket tag
func (t Tag) SubpacketType() uint8 {
	return uint8(t - SubpacketBase)
}
