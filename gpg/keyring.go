package gpg

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xpgp/armor"
	"github.com/effective-security/xpgp/keyring"
	"github.com/effective-security/xpgp/metricskey"
	"github.com/effective-security/xpgp/reader"
	"go.opentelemetry.io/otel/attribute"
)

// KeyRing reads a keyring from data, armoured or binary.
// Parse errors are logged when at least one key was loaded.
func KeyRing(data []byte) (*keyring.Keyring, error) {
	return loadKeyRing(data, nil)
}

// SecretKeyRing reads a keyring from data, unlocking the encrypted
// secret keys with passphrase
func SecretKeyRing(data, passphrase []byte) (*keyring.Keyring, error) {
	return loadKeyRing(data, passphrase)
}

func loadKeyRing(data, passphrase []byte) (*keyring.Keyring, error) {
	defer metricskey.PerfKeyringLoad.MeasureSince(time.Now(), "mem")

	ring, err := keyring.Load(bytes.NewReader(data), &keyring.Options{
		Armoured:   armor.IsArmoured(data),
		Passphrase: passphrase,
	})
	if err != nil {
		if ring.Len() == 0 {
			return nil, errors.WithMessagef(err, "unable to load keyring")
		}
		logger.KV(xlog.WARNING, "reason", "keyring_errors", "keys", ring.Len(), "err", err.Error())
	}
	return ring, nil
}

// KeyRingFromFile reads a keyring from the given file path
func KeyRingFromFile(path string) (*keyring.Keyring, error) {
	return SecretKeyRingFromFile(path, nil)
}

// SecretKeyRingFromFile reads a keyring from the given file path, unlocking
// the encrypted secret keys with passphrase
func SecretKeyRingFromFile(path string, passphrase []byte) (*keyring.Keyring, error) {
	_, end := startSpan(context.Background(), "gpg.KeyRingFromFile", attribute.String("path", path))

	ring, err := keyRingFromFile(path, passphrase)
	end(err)
	return ring, err
}

func keyRingFromFile(path string, passphrase []byte) (*keyring.Keyring, error) {
	f, err := reader.Open(path, false)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	ring, err := loadKeyRing(data, passphrase)
	if err != nil {
		return nil, errors.WithMessagef(err, "file %s", path)
	}
	return ring, nil
}

// KeyRingFromFiles reads a keyring from the given file paths.
//
// This function might typically be used to read all keys in /etc/pki/rpm-gpg.
func KeyRingFromFiles(files []string) (*keyring.Keyring, error) {
	ring := &keyring.Keyring{}
	for _, path := range files {
		kr, err := KeyRingFromFile(path)
		if err != nil {
			return nil, err
		}
		ring.Merge(kr)
	}
	return ring, nil
}
