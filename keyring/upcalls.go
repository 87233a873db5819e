package keyring

import (
	"github.com/effective-security/xpgp/packet"
	"github.com/effective-security/xpgp/pgpcrypto"
)

// Upcalls implements packet.Upcalls with a static passphrase and the
// unlocked secret keys of a Keyring
type Upcalls struct {
	Ring *Keyring
	// Secret is the passphrase for encrypted keys and session keys
	Secret []byte
}

var _ packet.Upcalls = (*Upcalls)(nil)

// Passphrase returns a copy of the static passphrase
func (u *Upcalls) Passphrase(_ *packet.Packet) []byte {
	if u.Secret == nil {
		return nil
	}
	return append([]byte(nil), u.Secret...)
}

// SecretKey returns the unlocked secret key for the session key.
// A wildcard key id selects the first unlocked key of the algorithm.
func (u *Upcalls) SecretKey(pk *packet.PKSessionKey) *packet.SecretKey {
	if u.Ring == nil {
		return nil
	}
	if pk.KeyID != ([pgpcrypto.KeyIDSize]byte{}) {
		if k := u.Ring.FindSecret(pk.KeyID); k != nil {
			return k.SecretKey
		}
		return nil
	}
	for _, k := range u.Ring.Keys {
		if k.Unlocked() && k.PublicKey.Algorithm == pk.Algorithm {
			return k.SecretKey
		}
	}
	return nil
}
