package print

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/effective-security/xpgp/packet"
)

// Packet prints one line for the packet, framing pseudo packets are skipped
// unless raw is set
func Packet(w io.Writer, pkt *packet.Packet, raw bool) {
	indent := ""
	if pkt.Tag.IsSubpacket() {
		indent = "    "
	}
	desc := describe(pkt, raw)
	if desc == nil {
		return
	}
	crit := ""
	if pkt.Critical {
		crit = " (critical)"
	}
	fmt.Fprintf(w, "%s:%s %s%s\n", indent, pkt.Tag.String(), strings.Join(desc, ", "), crit)
}

func describe(pkt *packet.Packet, raw bool) []string {
	switch c := pkt.Content.(type) {
	case *packet.PTag:
		if !raw {
			return nil
		}
		return []string{fmt.Sprintf("tag %d", c.ContentTag), fmt.Sprintf("length %d", c.Length)}
	case *packet.PacketEnd:
		if !raw {
			return nil
		}
		return []string{fmt.Sprintf("length %d", c.Length)}
	case *packet.PublicKey:
		return publicKey(c)
	case *packet.SecretKey:
		d := publicKey(&c.PublicKey)
		if c.Encrypted() {
			d = append(d, "protected "+c.Symmetric.String())
		}
		return d
	case *packet.Signature:
		d := []string{
			fmt.Sprintf("v%d", c.Version),
			"type " + c.Type.String(),
			"algo " + c.KeyAlgorithm.String(),
			"digest " + c.HashAlgorithm.String(),
		}
		if c.SignerSet {
			d = append(d, "keyid "+hexID(c.SignerID[:]))
		}
		if c.CreationTimeSet {
			d = append(d, "created "+timeString(c.CreationTime))
		}
		return d
	case *packet.OnePassSignature:
		return []string{
			"type " + c.Type.String(),
			"algo " + c.KeyAlgorithm.String(),
			"digest " + c.HashAlgorithm.String(),
			"keyid " + hexID(c.KeyID[:]),
		}
	case *packet.PKSessionKey:
		return []string{fmt.Sprintf("v%d", c.Version), "algo " + c.Algorithm.String(), "keyid " + hexID(c.KeyID[:])}
	case *packet.SKSessionKey:
		return []string{fmt.Sprintf("v%d", c.Version), "cipher " + c.Symmetric.String()}
	case *packet.UserID:
		return []string{fmt.Sprintf("%q", UserID(c.ID))}
	case *packet.SignersUserID:
		return []string{fmt.Sprintf("%q", UserID(c.UserID))}
	case *packet.LiteralDataHeader:
		return []string{fmt.Sprintf("format %c", c.Format), fmt.Sprintf("name %q", c.Filename), "modified " + timeString(c.ModTime)}
	case *packet.Body:
		return []string{fmt.Sprintf("%d octets", len(c.Data))}
	case *packet.Compressed:
		return []string{"algo " + c.Algorithm.String()}
	case *packet.SEIPDataHeader:
		return []string{fmt.Sprintf("v%d", c.Version)}
	case *packet.MDC:
		return []string{"hash " + hex.EncodeToString(c.Hash[:])}
	case *packet.ArmourHeader:
		return append([]string{c.Type}, headers(c.Headers)...)
	case *packet.ArmourTrailer:
		return []string{c.Type}
	case *packet.SignedCleartextHeader:
		return headers(c.Headers)
	case *packet.SignedCleartextTrailer:
		var d []string
		for _, h := range c.Hashes {
			d = append(d, h.Algorithm().String())
		}
		return d
	case *packet.Issuer:
		return []string{hexID(c.KeyID[:])}
	case *packet.SubpacketTime:
		if c.Duration != 0 {
			return []string{c.Duration.String()}
		}
		return []string{timeString(c.Time)}
	case *packet.TrustSignature:
		return []string{fmt.Sprintf("level %d", c.Level), fmt.Sprintf("amount %d", c.Amount)}
	case *packet.SubpacketBool:
		return []string{fmt.Sprintf("%t", c.Value)}
	case *packet.SubpacketString:
		return []string{fmt.Sprintf("%q", c.Value)}
	case *packet.SubpacketData:
		return []string{hex.EncodeToString(c.Data)}
	case *packet.RawSubpacket:
		return []string{fmt.Sprintf("type %d", c.Type), hex.EncodeToString(c.Data)}
	case *packet.Notation:
		return []string{fmt.Sprintf("%s=%s", c.Name, notationValue(c))}
	case *packet.RevocationReason:
		return []string{fmt.Sprintf("code %d", c.Code), fmt.Sprintf("%q", c.Reason)}
	case *packet.ParserError:
		return []string{c.Err.Error()}
	}
	return []string{}
}

func publicKey(k *packet.PublicKey) []string {
	id := k.KeyID()
	return []string{
		fmt.Sprintf("v%d", k.Version),
		fmt.Sprintf("algo %s%d", k.Algorithm.String(), KeyBits(k)),
		"keyid " + hexID(id[:]),
		"created " + timeString(k.CreationTime),
	}
}

func notationValue(n *packet.Notation) string {
	if n.HumanReadable() {
		return string(n.Value)
	}
	return hex.EncodeToString(n.Value)
}

func headers(hs []packet.Header) []string {
	var d []string
	for _, h := range hs {
		d = append(d, h.Key+": "+h.Value)
	}
	return d
}

func hexID(id []byte) string {
	return strings.ToUpper(hex.EncodeToString(id))
}

func timeString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
