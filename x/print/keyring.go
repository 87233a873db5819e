package print

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/effective-security/xpgp/keyring"
	"github.com/effective-security/xpgp/packet"
)

// KeyInfo is the printable form of a key
type KeyInfo struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Type        string    `json:"type"`
	Algorithm   string    `json:"algorithm"`
	Bits        int       `json:"bits"`
	Created     time.Time `json:"created"`
	UserIDs     []string  `json:"user_ids,omitempty"`
	Subkeys     []KeyInfo `json:"subkeys,omitempty"`
}

// NewKeyInfo returns KeyInfo of the key and its subkeys
func NewKeyInfo(k *keyring.Key) KeyInfo {
	info := KeyInfo{
		ID:          k.IDString(),
		Fingerprint: strings.ToUpper(hex.EncodeToString(k.Fingerprint)),
		Type:        k.Type.String(),
		Algorithm:   k.PublicKey.Algorithm.String(),
		Bits:        KeyBits(k.PublicKey),
		Created:     k.PublicKey.CreationTime.UTC(),
	}
	for _, uid := range k.UserIDs {
		info.UserIDs = append(info.UserIDs, UserID(uid))
	}
	for _, sub := range k.Subkeys {
		info.Subkeys = append(info.Subkeys, NewKeyInfo(sub))
	}
	return info
}

// KeyBits returns the size of the key modulus or prime
func KeyBits(k *packet.PublicKey) int {
	switch {
	case k.RSA != nil && k.RSA.N != nil:
		return k.RSA.N.BitLen()
	case k.DSA != nil && k.DSA.P != nil:
		return k.DSA.P.BitLen()
	case k.ElGamal != nil && k.ElGamal.P != nil:
		return k.ElGamal.P.BitLen()
	}
	return 0
}

// Keys prints the primary keys of the keyring with their subkeys
func Keys(w io.Writer, ring *keyring.Keyring) {
	for _, k := range ring.Primaries() {
		Key(w, NewKeyInfo(k))
	}
}

// Key prints the key
func Key(w io.Writer, k KeyInfo) {
	printKey(w, "pub", k)
	for _, uid := range k.UserIDs {
		fmt.Fprintf(w, "uid   %s\n", uid)
	}
	for _, sub := range k.Subkeys {
		printKey(w, "sub", sub)
	}
	fmt.Fprintln(w)
}

var secretPrefix = map[string]string{
	"pub": "sec",
	"sub": "ssb",
}

func printKey(w io.Writer, prefix string, k KeyInfo) {
	if k.Type != keyring.KeyPublic.String() {
		prefix = secretPrefix[prefix]
	}
	fmt.Fprintf(w, "%-5s %s%d/%s %s\n", prefix, k.Algorithm, k.Bits, k.ID, k.Created.Format(time.DateOnly))
	fmt.Fprintf(w, "      %s\n", k.Fingerprint)
}
