package core

// Frame is an encoded wire message ready to be written to a transport.
type Frame []byte

// SignalConnection abstracts the realtime transport of one session.
// Owned by the adapter; the adapter must Close() it. TrySend must not
// block: delivery order per connection is preserved by a single write
// pump draining a buffered channel.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
