// Package armor implements the OpenPGP ASCII armour (RFC 4880, section 6)
// and clear-signed text (section 7).
//
// The dearmour stage is pushed on the reader stack of a packet.Stream and
// delivers the decoded octets to the packet parser. Text outside of armoured
// blocks, armour headers and trailers, and the clear-signed text with its
// hashes are emitted to the callbacks of the stream.
package armor
