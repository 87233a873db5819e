package packet

// Result is returned by callbacks
type Result int

// Callback results
const (
	// Continue the parse
	Continue Result = iota
	// Finished stops the parse after the current packet
	Finished
)

// Callback receives parsed packets. Ownership of the packet passes to the
// callback.
type Callback interface {
	Call(pkt *Packet) Result
}

// CallbackFunc is a link of a callback chain. It may pass the packet on
// to the next callback, which is never nil.
type CallbackFunc func(pkt *Packet, next Callback) Result

// Chain is a stack of callbacks, the last pushed is called first
type Chain struct {
	head *link
}

type link struct {
	fn   CallbackFunc
	next *link
}

// Call delivers the packet to the head of the chain
func (c *Chain) Call(pkt *Packet) Result {
	return c.head.Call(pkt)
}

// Push installs fn as the new head of the chain
func (c *Chain) Push(fn CallbackFunc) {
	c.head = &link{fn: fn, next: c.head}
}

// Pop removes the head of the chain
func (c *Chain) Pop() {
	if c.head != nil {
		c.head = c.head.next
	}
}

// Len returns the number of callbacks
func (c *Chain) Len() int {
	n := 0
	for l := c.head; l != nil; l = l.next {
		n++
	}
	return n
}

// Call delivers the packet to the link, the end of a chain continues
func (l *link) Call(pkt *Packet) Result {
	if l == nil {
		return Continue
	}
	return l.fn(pkt, l.next)
}
