package pgpcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dgryski/go-idea"
	"github.com/effective-security/xpgp/pgperr"
	"golang.org/x/crypto/cast5" //nolint:staticcheck
)

// Cipher is a block cipher running in the OpenPGP CFB mode
type Cipher interface {
	// Algorithm returns the OpenPGP id of the cipher
	Algorithm() SymmetricAlgorithm
	// BlockSize returns the block size in bytes
	BlockSize() int
	// KeySize returns the key size in bytes
	KeySize() int
	// SetKey initializes the cipher with the key
	SetKey(key []byte) error
	// SetIV sets the feedback register, a nil iv is all zeros
	SetIV(iv []byte)
	// Resync aligns the feedback register with the last block boundary
	// of the ciphertext, as required after the OpenPGP prefix
	Resync()
	// EncryptBlock encrypts a single block
	EncryptBlock(dst, src []byte)
	// DecryptBlock decrypts a single block
	DecryptBlock(dst, src []byte)
	// CFBEncrypt encrypts src into dst, dst and src may overlap entirely
	CFBEncrypt(dst, src []byte)
	// CFBDecrypt decrypts src into dst, dst and src may overlap entirely
	CFBDecrypt(dst, src []byte)
}

// CipherFactory creates a new Cipher
type CipherFactory func() Cipher

var (
	lockCiphers sync.RWMutex
	ciphers     = make(map[SymmetricAlgorithm]CipherFactory)
)

func init() {
	for alg, f := range map[SymmetricAlgorithm]func([]byte) (cipher.Block, error){
		SymmetricIDEA:      idea.NewCipher,
		SymmetricTripleDES: des.NewTripleDESCipher,
		SymmetricCAST5: func(key []byte) (cipher.Block, error) {
			return cast5.NewCipher(key)
		},
		SymmetricAES128: aes.NewCipher,
		SymmetricAES192: aes.NewCipher,
		SymmetricAES256: aes.NewCipher,
	} {
		_ = RegisterCipher(alg, BlockCipher(alg, f))
	}
}

// RegisterCipher registers a factory for the algorithm
func RegisterCipher(alg SymmetricAlgorithm, factory CipherFactory) error {
	lockCiphers.Lock()
	defer lockCiphers.Unlock()

	if _, ok := ciphers[alg]; ok {
		return errors.Errorf("already registered: %s", alg)
	}
	ciphers[alg] = factory
	return nil
}

// UnregisterCipher removes the factory for the algorithm
func UnregisterCipher(alg SymmetricAlgorithm) (CipherFactory, error) {
	lockCiphers.Lock()
	defer lockCiphers.Unlock()

	if f, ok := ciphers[alg]; ok {
		delete(ciphers, alg)
		return f, nil
	}
	return nil, errors.Errorf("not registered: %s", alg)
}

// RegisteredCiphers returns the supported symmetric algorithms
func RegisteredCiphers() []SymmetricAlgorithm {
	lockCiphers.RLock()
	defer lockCiphers.RUnlock()

	list := make([]SymmetricAlgorithm, 0, len(ciphers))
	for alg := range ciphers {
		list = append(list, alg)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// IsCipherSupported returns true if a cipher is registered for the algorithm
func IsCipherSupported(alg SymmetricAlgorithm) bool {
	lockCiphers.RLock()
	defer lockCiphers.RUnlock()
	_, ok := ciphers[alg]
	return ok
}

// NewCipher returns an uninitialized Cipher for the algorithm
func NewCipher(alg SymmetricAlgorithm) (Cipher, error) {
	lockCiphers.RLock()
	f, ok := ciphers[alg]
	lockCiphers.RUnlock()

	if !ok {
		return nil, pgperr.New(pgperr.UnsupportedSymmetric, "symmetric algorithm %s not supported", alg)
	}
	return f(), nil
}

// BlockCipher returns a factory running a cipher.Block constructor in CFB mode
func BlockCipher(alg SymmetricAlgorithm, newBlock func([]byte) (cipher.Block, error)) CipherFactory {
	return func() Cipher {
		bs := alg.BlockSize()
		return &cfb{
			alg:      alg,
			newBlock: newBlock,
			register: make([]byte, bs),
			stream:   make([]byte, bs),
		}
	}
}

type cfb struct {
	alg      SymmetricAlgorithm
	newBlock func([]byte) (cipher.Block, error)
	block    cipher.Block

	// register holds the last ciphertext block,
	// its first num bytes belong to the current block
	register []byte
	// stream is the encrypted register
	stream []byte
	num    int
}

func (c *cfb) Algorithm() SymmetricAlgorithm { return c.alg }

func (c *cfb) BlockSize() int { return len(c.register) }

func (c *cfb) KeySize() int { return c.alg.KeySize() }

func (c *cfb) SetKey(key []byte) error {
	if len(key) != c.KeySize() {
		return errors.Errorf("invalid key size for %s: %d", c.alg, len(key))
	}
	block, err := c.newBlock(key)
	if err != nil {
		return errors.WithStack(err)
	}
	if block.BlockSize() != len(c.register) {
		return errors.Errorf("unexpected block size for %s: %d", c.alg, block.BlockSize())
	}
	c.block = block
	return nil
}

func (c *cfb) SetIV(iv []byte) {
	clear(c.register)
	copy(c.register, iv)
	c.num = 0
}

func (c *cfb) Resync() {
	if c.num == 0 {
		return
	}
	rotated := make([]byte, len(c.register))
	n := copy(rotated, c.register[c.num:])
	copy(rotated[n:], c.register[:c.num])
	copy(c.register, rotated)
	c.num = 0
}

func (c *cfb) EncryptBlock(dst, src []byte) {
	c.block.Encrypt(dst, src)
}

func (c *cfb) DecryptBlock(dst, src []byte) {
	c.block.Decrypt(dst, src)
}

func (c *cfb) CFBEncrypt(dst, src []byte) {
	for i, in := range src {
		if c.num == 0 {
			c.block.Encrypt(c.stream, c.register)
		}
		out := in ^ c.stream[c.num]
		dst[i] = out
		c.register[c.num] = out
		c.num = (c.num + 1) % len(c.register)
	}
}

func (c *cfb) CFBDecrypt(dst, src []byte) {
	for i, in := range src {
		if c.num == 0 {
			c.block.Encrypt(c.stream, c.register)
		}
		dst[i] = in ^ c.stream[c.num]
		c.register[c.num] = in
		c.num = (c.num + 1) % len(c.register)
	}
}
