// Package gpg verifies OpenPGP signed messages.
//
// This package supports:
//   - Loading keyrings from armoured or binary files
//   - Verification of signed, clear-signed and detached messages
//   - Decryption of encrypted messages with keyring secret keys
//
// The package is commonly used for verifying signatures on software packages
// and validating the authenticity of downloaded artifacts.
package gpg
