package interop

import (
	"context"
	"fmt"

	"github.com/xiaowei-guan/pigeon/channel"
	"github.com/xiaowei-guan/pigeon/codec"
	"github.com/xiaowei-guan/pigeon/internal/discriminant"
	"github.com/xiaowei-guan/pigeon/internal/ir"
)

// CodecFactory builds the message codec of an interface from its
// discriminants.
type CodecFactory func(codes ...uint8) codec.MessageCodec

// StandardCodec is the default CodecFactory.
func StandardCodec(codes ...uint8) codec.MessageCodec {
	return codec.NewStandard(codes...)
}

// MsgpackCodec is a CodecFactory for the MessagePack codec.
func MsgpackCodec(codes ...uint8) codec.MessageCodec {
	return codec.NewMsgpack(codes...)
}

// Option configures a Binding.
type Option func(*Binding)

// WithPrefix sets the channel name prefix.
func WithPrefix(prefix string) Option {
	return func(b *Binding) {
		b.prefix = prefix
	}
}

// WithCodec sets the codec factory.
func WithCodec(f CodecFactory) Option {
	return func(b *Binding) {
		b.newCodec = f
	}
}

// Binding is both ends of one interface: Call plays the caller and SetUp
// registers a receiver.
type Binding struct {
	schema   *Schema
	iface    *ir.Interface
	entries  []discriminant.Entry
	prefix   string
	newCodec CodecFactory
	codec    codec.MessageCodec
}

// Bind prepares the interface named name of doc.
func Bind(doc *ir.Document, name string, opts ...Option) (*Binding, error) {
	base, err := NewSchema(doc)
	if err != nil {
		return nil, err
	}
	iface, ok := doc.Interface(name)
	if !ok {
		return nil, fmt.Errorf("unknown interface %q", name)
	}
	entries, err := discriminant.Assign(iface, doc)
	if err != nil {
		return nil, err
	}

	b := &Binding{
		schema: &Schema{
			doc:    base.doc,
			codes:  make(map[string]uint8, len(entries)),
			byCode: make(map[uint8]string, len(entries)),
		},
		iface:    iface,
		entries:  entries,
		prefix:   channel.DefaultPrefix,
		newCodec: StandardCodec,
	}
	for _, e := range entries {
		b.schema.codes[e.Record] = e.Code
		b.schema.byCode[e.Code] = e.Record
	}
	for _, opt := range opts {
		opt(b)
	}
	b.codec = b.newCodec(discriminant.Codes(entries)...)
	return b, nil
}

// Interface returns the bound interface.
func (b *Binding) Interface() *ir.Interface {
	return b.iface
}

// Discriminants returns the interface's discriminant entries.
func (b *Binding) Discriminants() []discriminant.Entry {
	return b.entries
}

// Codec returns the message codec used on the interface's channels.
func (b *Binding) Codec() codec.MessageCodec {
	return b.codec
}

// Channel returns the channel name of method.
func (b *Binding) Channel(method string) string {
	return channel.Name(b.prefix, b.iface.Name, method)
}

// Call invokes method with positional args and resolves the reply.
//
// Arguments are sent as given; the receiver enforces nullability. A void
// method returns nil. A non-nullable return value that arrives absent is a
// *channel.NullError.
func (b *Binding) Call(ctx context.Context, m channel.Messenger, method string, args ...Value) (Value, error) {
	def, ok := b.iface.Method(method)
	if !ok {
		return nil, fmt.Errorf("%s has no method %q", b.iface.Name, method)
	}
	if len(args) != len(def.Arguments) {
		return nil, fmt.Errorf("%s.%s takes %d arguments, got %d", b.iface.Name, method, len(def.Arguments), len(args))
	}

	name := b.Channel(method)
	encoded := make([]codec.Value, len(args))
	for i, arg := range args {
		ev, err := b.schema.encode(def.Arguments[i].Type, arg, true)
		if err != nil {
			return nil, fmt.Errorf("%s argument %s: %w", name, def.Arguments[i].Name, err)
		}
		encoded[i] = ev
	}

	result, err := channel.Call(ctx, m, b.codec, name, encoded...)
	if err != nil {
		return nil, err
	}
	if def.ReturnType.IsVoid {
		return nil, nil
	}
	if !def.ReturnType.IsNullable {
		if result, err = channel.Result(name, result); err != nil {
			return nil, err
		}
	}
	v, err := b.schema.decode(def.ReturnType, result, true)
	if err != nil {
		return nil, &channel.ChannelError{Channel: name, Message: "undecodable result", Err: err}
	}
	return v, nil
}

// Func is synchronous receiver logic for one method.
type Func func(args []Value) (Value, error)

// AsyncFunc is asynchronous receiver logic; complete must be called once.
type AsyncFunc func(args []Value, complete func(Value, error))

// Implementation holds receiver logic per method name. Asynchronous
// methods are looked up in Async, the rest in Sync.
type Implementation struct {
	Sync  map[string]Func
	Async map[string]AsyncFunc
}

// SetUp attaches one handler per method channel to m. A nil impl detaches
// every channel of the interface.
//
// Methods marked background share one background task queue; the others
// run on the messenger's serial context.
func (b *Binding) SetUp(m channel.Messenger, impl *Implementation) error {
	if impl == nil {
		for _, def := range b.iface.Methods {
			m.SetHandler(b.Channel(def.Name), nil, nil)
		}
		return nil
	}

	handlers := make([]channel.Handler, len(b.iface.Methods))
	for i := range b.iface.Methods {
		def := &b.iface.Methods[i]
		h, err := b.handler(def, impl)
		if err != nil {
			return err
		}
		handlers[i] = h
	}

	var background channel.TaskQueue
	for i, def := range b.iface.Methods {
		var queue channel.TaskQueue
		if def.Dispatch == ir.DispatchBackground {
			if background == nil {
				background = m.BackgroundQueue()
			}
			queue = background
		}
		m.SetHandler(b.Channel(def.Name), handlers[i], queue)
	}
	return nil
}

func (b *Binding) handler(def *ir.Method, impl *Implementation) (channel.Handler, error) {
	if def.IsAsynchronous {
		fn, ok := impl.Async[def.Name]
		if !ok {
			return nil, fmt.Errorf("%s.%s: no asynchronous implementation", b.iface.Name, def.Name)
		}
		return channel.ServeAsync(b.codec, func(raw []codec.Value, complete channel.Completion) {
			args, err := b.decodeArgs(def, raw)
			if err != nil {
				complete(nil, err)
				return
			}
			fn(args, func(result Value, err error) {
				if err != nil {
					complete(nil, err)
					return
				}
				complete(b.encodeResult(def, result))
			})
		}), nil
	}

	fn, ok := impl.Sync[def.Name]
	if !ok {
		return nil, fmt.Errorf("%s.%s: no implementation", b.iface.Name, def.Name)
	}
	return channel.Serve(b.codec, func(raw []codec.Value) (codec.Value, error) {
		args, err := b.decodeArgs(def, raw)
		if err != nil {
			return nil, err
		}
		result, err := fn(args)
		if err != nil {
			return nil, err
		}
		return b.encodeResult(def, result)
	}), nil
}

// decodeArgs decodes the positional request, rejecting absent non-nullable
// arguments before any user logic runs.
func (b *Binding) decodeArgs(def *ir.Method, raw []codec.Value) ([]Value, error) {
	name := b.Channel(def.Name)
	args := make([]Value, len(def.Arguments))
	for i, a := range def.Arguments {
		v, err := channel.Arg(name, raw, i, a.Name, a.Type.IsNullable)
		if err != nil {
			return nil, err
		}
		dv, err := b.schema.decode(a.Type, v, true)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", a.Name, err)
		}
		args[i] = dv
	}
	return args, nil
}

func (b *Binding) encodeResult(def *ir.Method, result Value) (codec.Value, error) {
	if def.ReturnType.IsVoid {
		return codec.Null{}, nil
	}
	ev, err := b.schema.encode(def.ReturnType, result, true)
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	return ev, nil
}
