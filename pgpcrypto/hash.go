package pgpcrypto

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding"
	"hash"
	"io"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xpgp/pgperr"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

// Hash is a running message digest
type Hash interface {
	io.Writer
	// Algorithm returns the OpenPGP id of the hash
	Algorithm() HashAlgorithm
	// Size returns the digest size in bytes
	Size() int
	// Sum returns the digest of the data written so far,
	// the state is not modified
	Sum() []byte
	// Reset clears the state
	Reset()
	// Clone returns an independent copy of the running state
	Clone() (Hash, error)
}

// HashFactory creates a new Hash
type HashFactory func() Hash

var (
	lockHashes sync.RWMutex
	hashes     = make(map[HashAlgorithm]HashFactory)
)

func init() {
	for alg, f := range map[HashAlgorithm]func() hash.Hash{
		HashMD5:       md5.New,
		HashSHA1:      sha1.New,
		HashRIPEMD160: ripemd160.New,
		HashSHA224:    sha256.New224,
		HashSHA256:    sha256.New,
		HashSHA384:    sha512.New384,
		HashSHA512:    sha512.New,
	} {
		_ = RegisterHash(alg, StdHash(alg, f))
	}
}

// RegisterHash registers a factory for the algorithm
func RegisterHash(alg HashAlgorithm, factory HashFactory) error {
	lockHashes.Lock()
	defer lockHashes.Unlock()

	if _, ok := hashes[alg]; ok {
		return errors.Errorf("already registered: %s", alg)
	}
	hashes[alg] = factory
	return nil
}

// UnregisterHash removes the factory for the algorithm
func UnregisterHash(alg HashAlgorithm) (HashFactory, error) {
	lockHashes.Lock()
	defer lockHashes.Unlock()

	if f, ok := hashes[alg]; ok {
		delete(hashes, alg)
		return f, nil
	}
	return nil, errors.Errorf("not registered: %s", alg)
}

// RegisteredHashes returns the supported hash algorithms
func RegisteredHashes() []HashAlgorithm {
	lockHashes.RLock()
	defer lockHashes.RUnlock()

	list := make([]HashAlgorithm, 0, len(hashes))
	for alg := range hashes {
		list = append(list, alg)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// NewHash returns a Hash for the algorithm
func NewHash(alg HashAlgorithm) (Hash, error) {
	lockHashes.RLock()
	f, ok := hashes[alg]
	lockHashes.RUnlock()

	if !ok {
		return nil, pgperr.New(pgperr.UnsupportedHash, "hash algorithm %s not supported", alg)
	}
	return f(), nil
}

// HashSize returns the digest size of the algorithm, or 0 if not supported
func HashSize(alg HashAlgorithm) int {
	h, err := NewHash(alg)
	if err != nil {
		return 0
	}
	return h.Size()
}

// StdHash returns a factory adapting a hash.Hash constructor
func StdHash(alg HashAlgorithm, newFn func() hash.Hash) HashFactory {
	return func() Hash {
		h := newFn()
		_, m := h.(encoding.BinaryMarshaler)
		_, u := h.(encoding.BinaryUnmarshaler)
		return &digest{
			alg:    alg,
			newFn:  newFn,
			h:      h,
			replay: !(m && u),
		}
	}
}

type digest struct {
	alg   HashAlgorithm
	newFn func() hash.Hash
	h     hash.Hash
	// replay keeps the written data for hashes without state export
	replay bool
	data   []byte
}

func (d *digest) Algorithm() HashAlgorithm { return d.alg }

func (d *digest) Size() int { return d.h.Size() }

func (d *digest) Write(p []byte) (int, error) {
	if d.replay {
		d.data = append(d.data, p...)
	}
	return d.h.Write(p)
}

func (d *digest) Sum() []byte {
	return d.h.Sum(nil)
}

func (d *digest) Reset() {
	d.h.Reset()
	d.data = nil
}

func (d *digest) Clone() (Hash, error) {
	c := &digest{
		alg:    d.alg,
		newFn:  d.newFn,
		h:      d.newFn(),
		replay: d.replay,
	}
	if d.replay {
		c.data = append([]byte(nil), d.data...)
		_, _ = c.h.Write(c.data)
		return c, nil
	}

	state, err := d.h.(encoding.BinaryMarshaler).MarshalBinary()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err = c.h.(encoding.BinaryUnmarshaler).UnmarshalBinary(state); err != nil {
		return nil, errors.WithStack(err)
	}
	return c, nil
}
