// Package pgpcrypto provides the cryptographic primitives used by the
// OpenPGP parser.
//
// This package supports:
//   - Algorithm identifiers for hashes, ciphers, public keys and compression
//   - Hash and Cipher interfaces with registries of implementations
//   - The OpenPGP CFB mode, including the resynchronization step
//   - MPI encoding and validation
//   - RSA and DSA signature verification, RSA and ElGamal session key decryption
//   - String-to-key derivation and key fingerprints
package pgpcrypto
