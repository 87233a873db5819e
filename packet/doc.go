// Package packet parses OpenPGP packets (RFC 4880) from a reader stack and
// delivers them to a chain of callbacks.
//
// A Stream reads a packet header, parses the body within a region of the
// packet length, and emits typed values: keys, user ids, signatures with
// their subpackets, literal data in chunks, and pseudo packets such as PTag
// and PacketEnd. Compressed and encrypted packets push a stage on the
// reader stack and parse their content recursively.
//
// Errors do not stop the parse. They are pushed to the error list and
// emitted as TagParserError, and the rest of the failed packet is skipped.
package packet
