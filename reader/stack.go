package reader

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xpgp", "reader")

// Stack is a LIFO pipeline of reader stages. Reads are served by the top
// stage, which pulls from the stage below it.
type Stack struct {
	head  *node
	depth int
}

type node struct {
	r     io.Reader
	below *node

	accumulate  bool
	accumulated []byte
	// alength counts octets read since the last reset, it is tracked
	// regardless of accumulation since it is used for packet offsets
	alength  uint32
	position uint64
}

func (n *node) Read(p []byte) (int, error) {
	c, err := n.r.Read(p)
	if c > 0 {
		if n.accumulate {
			n.accumulated = append(n.accumulated, p[:c]...)
		}
		n.alength += uint32(c)
		n.position += uint64(c)
	}
	return c, err
}

// New returns a Stack over the base reader
func New(base io.Reader) *Stack {
	return &Stack{
		head:  &node{r: base},
		depth: 1,
	}
}

// Read reads from the top stage
func (s *Stack) Read(p []byte) (int, error) {
	return s.head.Read(p)
}

// Top returns the current top of the stack, to be used as the source of a
// new stage
func (s *Stack) Top() io.Reader {
	return s.head
}

// Push installs the stage on top of the stack. The stage must read from the
// previous Top. The accumulate flag is inherited.
func (s *Stack) Push(stage io.Reader) {
	s.head = &node{
		r:          stage,
		below:      s.head,
		accumulate: s.head.accumulate,
	}
	s.depth++
	logger.KV(xlog.DEBUG, "reason", "push", "stage", stageName(stage), "depth", s.depth)
}

// Pop removes the top stage and closes it, if it is an io.Closer.
// The base reader cannot be popped.
func (s *Stack) Pop() error {
	if s.head.below == nil {
		return errors.New("reader stack is empty")
	}
	top := s.head
	s.head = top.below
	s.depth--
	logger.KV(xlog.DEBUG, "reason", "pop", "stage", stageName(top.r), "depth", s.depth)

	if c, ok := top.r.(io.Closer); ok {
		return errors.WithStack(c.Close())
	}
	return nil
}

// Depth returns the number of readers including the base
func (s *Stack) Depth() int {
	return s.depth
}

// Stage returns the top stage
func (s *Stack) Stage() io.Reader {
	return s.head.r
}

// SetAccumulate turns accumulation of read octets on the top stage on or off
func (s *Stack) SetAccumulate(on bool) {
	s.head.accumulate = on
}

// Accumulate returns true when the top stage keeps a copy of read octets
func (s *Stack) Accumulate() bool {
	return s.head.accumulate
}

// Accumulated returns the octets accumulated on the top stage
func (s *Stack) Accumulated() []byte {
	return s.head.accumulated
}

// TakeAccumulated returns the accumulated octets and starts a new buffer
func (s *Stack) TakeAccumulated() []byte {
	b := s.head.accumulated
	s.head.accumulated = nil
	return b
}

// ALength returns the number of octets read from the top stage since the
// last ResetALength
func (s *Stack) ALength() uint32 {
	return s.head.alength
}

// ResetALength resets the octet counter of the top stage
func (s *Stack) ResetALength() {
	s.head.alength = 0
}

// Position returns the number of octets read from the top stage
func (s *Stack) Position() uint64 {
	return s.head.position
}

// Close pops all stages and closes the base reader
func (s *Stack) Close() error {
	var first error
	for s.head.below != nil {
		if err := s.Pop(); err != nil && first == nil {
			first = err
		}
	}
	if c, ok := s.head.r.(io.Closer); ok {
		if err := c.Close(); err != nil && first == nil {
			first = errors.WithStack(err)
		}
	}
	return first
}

func stageName(r io.Reader) string {
	if n, ok := r.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "reader"
}
