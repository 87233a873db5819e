// Package keyring accumulates parsed keys into a Keyring.
package keyring

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/packet"
	"github.com/effective-security/xpgp/pgpcrypto"
	"github.com/effective-security/xpgp/pgperr"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xpgp", "keyring")

// KeyType describes the key material held by a Key
type KeyType int

// Key types
const (
	KeyPublic KeyType = iota
	KeySecret
	KeyEncryptedSecret
)

func (t KeyType) String() string {
	switch t {
	case KeySecret:
		return "secret"
	case KeyEncryptedSecret:
		return "encrypted-secret"
	}
	return "public"
}

// Key is a primary key or a subkey with its user ids and signatures
type Key struct {
	ID          [pgpcrypto.KeyIDSize]byte
	Fingerprint []byte
	Type        KeyType
	PublicKey   *packet.PublicKey
	// SecretKey is set for secret keys, encrypted ones carry no secret values
	SecretKey *packet.SecretKey
	UserIDs   []string
	// Packets are the raw packets of the key, when accumulated
	Packets [][]byte
	// Bindings are the certifications and binding signatures of the key
	Bindings []*packet.Signature

	Primary *Key
	Subkeys []*Key
}

func newKey(pub *packet.PublicKey) *Key {
	fp, id := pub.Fingerprint()
	return &Key{
		ID:          id,
		Fingerprint: fp,
		PublicKey:   pub,
	}
}

// IsSubkey returns true for subkeys
func (k *Key) IsSubkey() bool {
	return k.Primary != nil
}

// IDString returns the key id in hex
func (k *Key) IDString() string {
	return strings.ToUpper(hex.EncodeToString(k.ID[:]))
}

// PrimaryUserID returns the first user id of the key, or of its primary key
func (k *Key) PrimaryUserID() (string, error) {
	owner := k
	if k.Primary != nil {
		owner = k.Primary
	}
	if len(owner.UserIDs) == 0 {
		return "", pgperr.New(pgperr.NoUserID, "No user id for key %s", k.IDString())
	}
	return owner.UserIDs[0], nil
}

// Unlocked returns true when the secret values are available
func (k *Key) Unlocked() bool {
	return k.Type == KeySecret && k.SecretKey != nil
}

// Keyring is a list of keys. Subkeys are listed next to their primary key.
type Keyring struct {
	Keys []*Key
}

// Len returns the number of keys, including subkeys
func (r *Keyring) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Keys)
}

// Add appends keys to the keyring
func (r *Keyring) Add(keys ...*Key) {
	r.Keys = append(r.Keys, keys...)
}

// Merge appends the keys of other
func (r *Keyring) Merge(other *Keyring) {
	if other != nil {
		r.Keys = append(r.Keys, other.Keys...)
	}
}

// Primaries returns the primary keys
func (r *Keyring) Primaries() []*Key {
	var res []*Key
	for _, k := range r.Keys {
		if k.Primary == nil {
			res = append(res, k)
		}
	}
	return res
}

// FindByID returns the first key matching the id. The id is a fingerprint,
// a long (8 octets) or a short (4 octets) key id.
func (r *Keyring) FindByID(id []byte) *Key {
	if r == nil {
		return nil
	}
	for _, k := range r.Keys {
		switch len(id) {
		case 4:
			if bytes.Equal(k.ID[4:], id) {
				return k
			}
		case pgpcrypto.KeyIDSize:
			if bytes.Equal(k.ID[:], id) {
				return k
			}
		default:
			if bytes.Equal(k.Fingerprint, id) {
				return k
			}
		}
	}
	return nil
}

// FindByHex returns the key for the id in hex, with or without 0x prefix
func (r *Keyring) FindByHex(s string) *Key {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.ReplaceAll(s, " ", ""), "0x"), "0X")
	id, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return r.FindByID(id)
}

// FindSecret returns the unlocked secret key with the id
func (r *Keyring) FindSecret(id [pgpcrypto.KeyIDSize]byte) *Key {
	if r == nil {
		return nil
	}
	for _, k := range r.Keys {
		if k.ID == id && k.Unlocked() {
			return k
		}
	}
	return nil
}
