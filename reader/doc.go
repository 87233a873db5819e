// Package reader implements the layered input pipeline of the parser.
//
// A Stack starts with a base reader (memory, file or mmap) and grows by
// pushing stages that transform the octets read from the stage below:
//   - Sum16 and Hash observe the passed octets
//   - Decrypt applies the OpenPGP CFB mode
//   - SEIP verifies the integrity protected content before releasing it
//   - Decompress inflates ZIP, ZLIB and BZIP2 data
//
// Stages are popped in strict LIFO order.
package reader
