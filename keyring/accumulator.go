package keyring

import (
	"io"

	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/armor"
	"github.com/effective-security/xpgp/packet"
)

// Accumulator is a callback collecting keys into a Keyring
type Accumulator struct {
	Ring *Keyring

	primary *Key
	last    *Key
}

// NewAccumulator returns an Accumulator adding keys to ring,
// a new Keyring is created when ring is nil
func NewAccumulator(ring *Keyring) *Accumulator {
	if ring == nil {
		ring = &Keyring{}
	}
	return &Accumulator{Ring: ring}
}

// Callback implements packet.CallbackFunc
func (a *Accumulator) Callback(pkt *packet.Packet, next packet.Callback) packet.Result {
	switch c := pkt.Content.(type) {
	case *packet.PublicKey:
		a.add(newKey(c))

	case *packet.SecretKey:
		k := newKey(&c.PublicKey)
		k.SecretKey = c
		k.Type = KeySecret
		if pkt.Tag == packet.TagEncryptedSecretKey {
			k.Type = KeyEncryptedSecret
		}
		a.add(k)

	case *packet.UserID:
		if a.primary != nil {
			a.primary.UserIDs = append(a.primary.UserIDs, c.ID)
		}

	case *packet.Signature:
		if a.last != nil && (pkt.Tag == packet.TagSignature || pkt.Tag == packet.TagSignatureFooter) {
			a.last.Bindings = append(a.last.Bindings, c)
		}

	case *packet.PacketEnd:
		if a.last != nil {
			a.last.Packets = append(a.last.Packets, c.Raw)
		}
	}
	return next.Call(pkt)
}

func (a *Accumulator) add(k *Key) {
	if k.PublicKey.Subkey {
		if a.primary == nil {
			logger.KV(xlog.WARNING, "reason", "orphan_subkey", "id", k.IDString())
		} else {
			k.Primary = a.primary
			a.primary.Subkeys = append(a.primary.Subkeys, k)
		}
	} else {
		a.primary = k
	}
	a.last = k
	a.Ring.Add(k)
	logger.KV(xlog.DEBUG, "reason", "key", "id", k.IDString(), "type", k.Type.String(), "subkey", k.IsSubkey())
}

// Options for Load
type Options struct {
	// Armoured input is dearmoured
	Armoured bool
	// Passphrase unlocks encrypted secret keys
	Passphrase []byte
}

// Load parses the keys from src. It returns the keys parsed so far
// together with the parse errors, if any.
func Load(src io.Reader, opts *Options) (*Keyring, error) {
	if opts == nil {
		opts = &Options{}
	}

	popts := &packet.Options{Accumulate: true}
	if opts.Passphrase != nil {
		popts.Upcalls = &Upcalls{Secret: opts.Passphrase}
	}

	s := packet.NewStream(src, popts)
	defer func() {
		_ = s.Close()
	}()
	if opts.Armoured {
		armor.Push(s)
	}

	acc := NewAccumulator(nil)
	s.Push(acc.Callback)
	err := s.Parse()
	return acc.Ring, err
}
