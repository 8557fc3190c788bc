package channel

import "context"

// Reply delivers the encoded reply for one message. A nil response means
// the handler produced no reply envelope.
type Reply func(response []byte)

// Handler receives one encoded request and must call reply exactly once,
// either before returning or later from any goroutine.
type Handler func(message []byte, reply Reply)

// TaskQueue selects the execution context handlers run on. A nil TaskQueue
// is the messenger's serial context shared by all handlers registered
// without one.
type TaskQueue interface {
	Name() string
}

// Messenger moves encoded messages between the two sides of a channel.
type Messenger interface {
	// Send delivers message to the handler registered for channel and waits
	// for its reply. Failures to obtain a reply are *ChannelError.
	Send(ctx context.Context, channel string, message []byte) ([]byte, error)

	// SetHandler attaches handler to channel, replacing any previous one.
	// A nil handler detaches the channel.
	SetHandler(channel string, handler Handler, queue TaskQueue)

	// BackgroundQueue returns a new task queue whose handlers run off the
	// serial context.
	BackgroundQueue() TaskQueue
}
