package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds each background task queue of a LocalMessenger.
const DefaultWorkers = 4

// Exchange records one Send on a LocalMessenger.
type Exchange struct {
	// Seq orders exchanges by the time Send was called, starting at 1.
	Seq     int64
	Channel string
	Request []byte
	Reply   []byte
	// Err is the ChannelError returned to the sender, if any.
	Err error
}

// LocalOption configures a LocalMessenger.
type LocalOption func(*LocalMessenger)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) LocalOption {
	return func(m *LocalMessenger) {
		m.logger = l
	}
}

// WithWorkers sets the concurrency limit of background task queues.
func WithWorkers(n int) LocalOption {
	return func(m *LocalMessenger) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithObserver registers fn to be called after every Send returns. fn is
// called from the sending goroutine and must be safe for concurrent use.
func WithObserver(fn func(Exchange)) LocalOption {
	return func(m *LocalMessenger) {
		m.observers = append(m.observers, fn)
	}
}

// LocalMessenger connects callers and receivers in one process.
//
// Thread-safety model:
//   - Send, SetHandler and BackgroundQueue: safe from any goroutine
//   - Run: must be called from exactly one goroutine; it is the serial
//     context every handler registered without a task queue runs on
//
// Send on a serial channel blocks until Run picks the task up, so Run must
// be running for those channels to make progress.
type LocalMessenger struct {
	logger    *slog.Logger
	workers   int
	observers []func(Exchange)

	mu     sync.RWMutex
	routes map[string]route

	serial *taskQueue
	seq    atomic.Int64
	closed atomic.Bool

	bgMu       sync.Mutex
	background []*backgroundQueue
}

type route struct {
	handler Handler
	queue   *backgroundQueue // nil for the serial context
}

type backgroundQueue struct {
	name  string
	group *errgroup.Group
}

func (q *backgroundQueue) Name() string {
	return q.name
}

// NewLocalMessenger creates a LocalMessenger with no handlers.
func NewLocalMessenger(opts ...LocalOption) *LocalMessenger {
	m := &LocalMessenger{
		logger:  slog.Default(),
		workers: DefaultWorkers,
		routes:  make(map[string]route),
		serial:  newTaskQueue(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetHandler implements Messenger. queue must be nil or a queue returned by
// this messenger's BackgroundQueue; any other queue is treated as serial.
func (m *LocalMessenger) SetHandler(channel string, handler Handler, queue TaskQueue) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if handler == nil {
		delete(m.routes, channel)
		m.logger.Debug("handler detached", "channel", channel)
		return
	}

	r := route{handler: handler}
	if queue != nil {
		bq, ok := queue.(*backgroundQueue)
		if ok {
			r.queue = bq
		} else {
			m.logger.Warn("foreign task queue, using serial context",
				"channel", channel,
				"queue", queue.Name(),
			)
		}
	}
	m.routes[channel] = r
	m.logger.Debug("handler attached", "channel", channel, "background", r.queue != nil)
}

// BackgroundQueue implements Messenger. Each queue runs at most the
// configured number of handlers at once.
func (m *LocalMessenger) BackgroundQueue() TaskQueue {
	g := new(errgroup.Group)
	g.SetLimit(m.workers)

	m.bgMu.Lock()
	defer m.bgMu.Unlock()
	q := &backgroundQueue{
		name:  fmt.Sprintf("background-%d", len(m.background)+1),
		group: g,
	}
	m.background = append(m.background, q)
	return q
}

// Handled reports whether a handler is attached to channel.
func (m *LocalMessenger) Handled(channel string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.routes[channel]
	return ok
}

// Send implements Messenger.
func (m *LocalMessenger) Send(ctx context.Context, channel string, message []byte) ([]byte, error) {
	seq := m.seq.Add(1)

	resp, err := m.send(ctx, channel, seq, message)
	for _, fn := range m.observers {
		fn(Exchange{Seq: seq, Channel: channel, Request: message, Reply: resp, Err: err})
	}
	return resp, err
}

func (m *LocalMessenger) send(ctx context.Context, channel string, seq int64, message []byte) ([]byte, error) {
	if m.closed.Load() {
		return nil, &ChannelError{Channel: channel, Message: "messenger closed"}
	}

	m.mu.RLock()
	r, ok := m.routes[channel]
	m.mu.RUnlock()
	if !ok {
		m.logger.Debug("no handler", "channel", channel, "seq", seq)
		return nil, &ChannelError{Channel: channel, Message: "no handler registered"}
	}

	replies := make(chan []byte, 1)
	var once sync.Once
	reply := func(resp []byte) {
		sent := false
		once.Do(func() {
			replies <- resp
			sent = true
		})
		if !sent {
			m.logger.Warn("reply already sent, ignoring", "channel", channel, "seq", seq)
		}
	}

	run := func() {
		m.dispatch(channel, seq, r.handler, message, reply)
	}

	if r.queue != nil {
		r.queue.group.Go(func() error {
			run()
			return nil
		})
	} else if !m.serial.Enqueue(task{channel: channel, seq: seq, run: run}) {
		return nil, &ChannelError{Channel: channel, Message: "messenger closed"}
	}

	select {
	case resp := <-replies:
		return resp, nil
	case <-ctx.Done():
		m.logger.Warn("no reply before context ended", "channel", channel, "seq", seq)
		return nil, &ChannelError{Channel: channel, Message: "no reply", Err: ctx.Err()}
	}
}

// dispatch runs one handler. A panicking handler that has not replied yet
// drops its reply.
func (m *LocalMessenger) dispatch(channel string, seq int64, h Handler, message []byte, reply Reply) {
	var replied atomic.Bool
	guarded := func(resp []byte) {
		replied.Store(true)
		reply(resp)
	}
	defer func() {
		if p := recover(); p != nil {
			m.logger.Error("handler panicked",
				"channel", channel,
				"seq", seq,
				"panic", fmt.Sprint(p),
			)
			if !replied.Load() {
				reply(nil)
			}
		}
	}()

	m.logger.Debug("dispatching", "channel", channel, "seq", seq, "bytes", len(message))
	h(message, guarded)
}

// Run starts the serial event loop. It blocks until ctx is cancelled or
// Close is called and every queued task has run.
func (m *LocalMessenger) Run(ctx context.Context) error {
	m.logger.Debug("messenger loop starting")

	for {
		if t, ok := m.serial.TryDequeue(); ok {
			t.run()
			continue
		}

		select {
		case <-ctx.Done():
			m.logger.Debug("messenger loop stopping: context cancelled")
			m.serial.Close()
			return ctx.Err()

		case <-m.serial.Wait():
			if m.serial.Drained() {
				m.logger.Debug("messenger loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Close stops accepting new messages, closes the serial queue and waits for
// running background handlers. Run returns once queued serial tasks drain.
func (m *LocalMessenger) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.serial.Close()

	m.bgMu.Lock()
	queues := append([]*backgroundQueue(nil), m.background...)
	m.bgMu.Unlock()

	for _, q := range queues {
		if err := q.group.Wait(); err != nil {
			return err
		}
	}
	return nil
}
