package interop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaowei-guan/pigeon/channel"
	"github.com/xiaowei-guan/pigeon/codec"
	"github.com/xiaowei-guan/pigeon/internal/ir"
)

func field(name, typ string) ir.Field {
	return ir.Field{Name: name, Type: ir.MustParseTypeRef(typ)}
}

func searchDocument() *ir.Document {
	return &ir.Document{
		Records: []ir.Record{
			{Name: "SearchRequest", Fields: []ir.Field{field("query", "String?")}},
			{Name: "SearchReply", Fields: []ir.Field{
				field("result", "String?"),
				field("state", "State?"),
			}},
			{Name: "Meta", Fields: []ir.Field{field("took", "int")}},
			{Name: "Everything", Fields: []ir.Field{
				field("flag", "bool"),
				field("count", "int?"),
				field("ratio", "double?"),
				field("name", "String?"),
				field("bytes", "Uint8List?"),
				field("ints", "Int32List?"),
				field("longs", "Int64List?"),
				field("doubles", "Float64List?"),
				field("tags", "List<String?>?"),
				field("scores", "Map<String, int>?"),
				field("state", "State"),
				field("meta", "Meta?"),
				field("metas", "List<Meta>?"),
				field("any", "Object?"),
			}},
		},
		Enums: []ir.Enum{{Name: "State", Members: []string{"pending", "success", "error"}}},
		Interfaces: []ir.Interface{
			{
				Name: "Api",
				Role: ir.RoleCaller,
				Methods: []ir.Method{
					{Name: "search", Arguments: []ir.Field{field("request", "SearchRequest")}, ReturnType: ir.MustParseTypeRef("SearchReply")},
					{Name: "lookup", Arguments: []ir.Field{field("id", "int")}, ReturnType: ir.MustParseTypeRef("SearchReply?")},
					{Name: "echo", Arguments: []ir.Field{field("value", "Everything")}, ReturnType: ir.MustParseTypeRef("Everything")},
					{Name: "reset", ReturnType: ir.Void()},
				},
			},
			{
				Name: "HostApi",
				Role: ir.RoleReceiver,
				Methods: []ir.Method{
					{Name: "add", Arguments: []ir.Field{field("a", "int"), field("b", "int")}, ReturnType: ir.MustParseTypeRef("int")},
					{Name: "slow", Arguments: []ir.Field{field("state", "State")}, ReturnType: ir.MustParseTypeRef("State"), IsAsynchronous: true},
					{Name: "heavy", ReturnType: ir.MustParseTypeRef("String"), Dispatch: ir.DispatchBackground},
				},
			},
		},
	}
}

func startMessenger(t *testing.T) *channel.LocalMessenger {
	t.Helper()
	m := channel.NewLocalMessenger()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		_ = m.Close()
		cancel()
		<-done
	})
	return m
}

func bind(t *testing.T, name string, opts ...Option) *Binding {
	t.Helper()
	b, err := Bind(searchDocument(), name, opts...)
	require.NoError(t, err)
	return b
}

func everything() *Record {
	return NewRecord("Everything", map[string]Value{
		"flag":    true,
		"count":   int64(-7),
		"ratio":   0.25,
		"name":    "n",
		"bytes":   []byte{1, 2, 3},
		"ints":    []int32{1, -1},
		"longs":   []int64{1 << 40},
		"doubles": []float64{1.5},
		"tags":    []Value{"a", nil},
		"scores":  Map{{Key: "x", Value: int64(1)}},
		"state":   EnumValue{Type: "State", Index: 2},
		"meta":    NewRecord("Meta", map[string]Value{"took": int64(3)}),
		"metas":   []Value{NewRecord("Meta", map[string]Value{"took": int64(4)})},
		"any":     []Value{"x", int64(1), true},
	})
}

func TestSchema_RecordRoundTrip(t *testing.T) {
	s, err := NewSchema(searchDocument())
	require.NoError(t, err)

	full := everything()
	sparse := NewRecord("Everything", map[string]Value{
		"flag": false, "count": nil, "ratio": nil, "name": nil, "bytes": nil,
		"ints": nil, "longs": nil, "doubles": nil, "tags": nil, "scores": nil,
		"state": EnumValue{Type: "State", Index: 0}, "meta": nil, "metas": nil, "any": nil,
	})

	for _, rec := range []*Record{full, sparse} {
		encoded, err := s.EncodeRecord(rec)
		require.NoError(t, err)

		decoded, err := s.DecodeRecord("Everything", encoded)
		require.NoError(t, err)
		assert.Equal(t, rec, decoded)

		// Through the wire codec as well.
		data, err := codec.NewStandard().EncodeMessage(encoded)
		require.NoError(t, err)
		wire, err := codec.NewStandard().DecodeMessage(data)
		require.NoError(t, err)
		decoded, err = s.DecodeRecord("Everything", wire)
		require.NoError(t, err)
		assert.Equal(t, rec, decoded)
	}
}

func TestSchema_RecordEncodingShape(t *testing.T) {
	s, err := NewSchema(searchDocument())
	require.NoError(t, err)

	encoded, err := s.EncodeRecord(NewRecord("SearchReply", map[string]Value{
		"result": "ho",
		"state":  EnumValue{Type: "State", Index: 1},
	}))
	require.NoError(t, err)
	assert.Equal(t, codec.Map{
		codec.E("result", codec.String("ho")),
		codec.E("state", codec.Int(1)),
	}, encoded)

	// Nested records are plain mappings.
	rec := everything()
	encoded, err = s.EncodeRecord(rec)
	require.NoError(t, err)
	meta, ok := encoded.Get("meta")
	require.True(t, ok)
	assert.Equal(t, codec.Map{codec.E("took", codec.Int(3))}, meta)
	assert.Equal(t, codec.String("flag"), encoded[0].Key)
	assert.Equal(t, codec.String("any"), encoded[len(encoded)-1].Key)
}

func TestSchema_EnumOrdinals(t *testing.T) {
	s, err := NewSchema(searchDocument())
	require.NoError(t, err)

	for i, member := range []string{"pending", "success", "error"} {
		ev, err := s.DecodeEnum("State", codec.Int(i))
		require.NoError(t, err, member)
		assert.Equal(t, EnumValue{Type: "State", Index: i}, ev)
	}

	_, err = s.DecodeEnum("State", codec.Int(3))
	assert.ErrorContains(t, err, "out of range")
	_, err = s.DecodeEnum("State", codec.Int(-1))
	assert.ErrorContains(t, err, "out of range")
	_, err = s.DecodeEnum("State", codec.String("pending"))
	assert.Error(t, err)
}

func TestSchema_RejectsInvalidRecords(t *testing.T) {
	s, err := NewSchema(searchDocument())
	require.NoError(t, err)

	_, err = s.EncodeRecord(NewRecord("Meta", nil))
	assert.ErrorContains(t, err, "non-nullable field is absent")

	_, err = s.EncodeRecord(NewRecord("Meta", map[string]Value{"took": "three"}))
	assert.ErrorContains(t, err, "expected int")

	_, err = s.DecodeRecord("Meta", codec.Map{})
	assert.ErrorContains(t, err, "non-nullable field is absent")

	_, err = s.DecodeRecord("Meta", codec.List{})
	assert.ErrorContains(t, err, "expected Map")
}

func TestNewSchema_UnresolvedType(t *testing.T) {
	doc := searchDocument()
	doc.Records[0].Fields[0].Type = ir.Named("Ghost")
	_, err := NewSchema(doc)
	assert.ErrorContains(t, err, `"Ghost"`)
}

func TestBind_Discriminants(t *testing.T) {
	b := bind(t, "Api")
	assert.Equal(t, "dev.flutter.pigeon.Api.search", b.Channel("search"))

	codes := make(map[string]uint8)
	for _, e := range b.Discriminants() {
		codes[e.Record] = e.Code
	}
	assert.Equal(t, map[string]uint8{"SearchReply": 128, "SearchRequest": 129, "Everything": 130}, codes)

	_, err := Bind(searchDocument(), "Nope")
	assert.Error(t, err)
}

func TestCall_SearchScenario(t *testing.T) {
	m := startMessenger(t)
	b := bind(t, "Api")

	// The other side replies {"result": {"result": "ho"}} with SearchReply
	// tagged by its discriminant.
	m.SetHandler(b.Channel("search"), func(message []byte, reply channel.Reply) {
		req, err := b.Codec().DecodeMessage(message)
		if !assert.NoError(t, err) {
			reply(nil)
			return
		}
		assert.Equal(t, codec.List{codec.Custom{Code: 129, Payload: codec.Map{codec.E("query", codec.String("hi"))}}}, req)

		data, err := b.Codec().EncodeMessage(channel.Success(codec.Custom{
			Code:    128,
			Payload: codec.Map{codec.E("result", codec.String("ho"))},
		}))
		assert.NoError(t, err)
		reply(data)
	}, nil)

	got, err := b.Call(context.Background(), m, "search", NewRecord("SearchRequest", map[string]Value{"query": "hi"}))
	require.NoError(t, err)

	reply, ok := got.(*Record)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, "SearchReply", reply.Type)
	assert.Equal(t, "ho", reply.Get("result"))
	assert.Nil(t, reply.Get("state"))
}

func TestCall_ErrorEnvelopeScenario(t *testing.T) {
	m := startMessenger(t)
	b := bind(t, "Api")

	m.SetHandler(b.Channel("search"), func(message []byte, reply channel.Reply) {
		data, err := b.Codec().EncodeMessage(codec.Map{codec.E("error", codec.Map{
			codec.E("code", codec.String("Error")),
			codec.E("message", codec.String("boom")),
			codec.E("details", codec.Null{}),
		})})
		assert.NoError(t, err)
		reply(data)
	}, nil)

	_, err := b.Call(context.Background(), m, "search", NewRecord("SearchRequest", nil))
	ae, ok := channel.AsApplicationError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "Error", ae.Code)
	assert.Equal(t, "boom", ae.Message)
}

func TestCall_NullReturnScenario(t *testing.T) {
	m := startMessenger(t)
	b := bind(t, "Api")

	nullReply := func(message []byte, reply channel.Reply) {
		data, err := b.Codec().EncodeMessage(codec.Map{codec.E("result", codec.Null{})})
		assert.NoError(t, err)
		reply(data)
	}
	m.SetHandler(b.Channel("search"), nullReply, nil)
	m.SetHandler(b.Channel("lookup"), nullReply, nil)

	_, err := b.Call(context.Background(), m, "search", NewRecord("SearchRequest", nil))
	require.Error(t, err)
	assert.True(t, channel.IsNullError(err), "got %v", err)

	// A nullable return type accepts the absent value.
	got, err := b.Call(context.Background(), m, "lookup", int64(1))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCall_NoReceiverIsTransportError(t *testing.T) {
	m := startMessenger(t)
	b := bind(t, "Api")

	_, err := b.Call(context.Background(), m, "reset")
	assert.True(t, channel.IsChannelError(err))
	_, isApp := channel.AsApplicationError(err)
	assert.False(t, isApp)
}

func TestCall_ArgumentCount(t *testing.T) {
	m := startMessenger(t)
	b := bind(t, "Api")

	_, err := b.Call(context.Background(), m, "search")
	assert.ErrorContains(t, err, "takes 1 arguments")
	_, err = b.Call(context.Background(), m, "missing")
	assert.Error(t, err)
}

func TestSetUp_EndToEnd(t *testing.T) {
	m := startMessenger(t)
	b := bind(t, "Api")

	require.NoError(t, b.SetUp(m, &Implementation{Sync: map[string]Func{
		"search": func(args []Value) (Value, error) {
			req := args[0].(*Record)
			return NewRecord("SearchReply", map[string]Value{
				"result": "re: " + req.Get("query").(string),
				"state":  EnumValue{Type: "State", Index: 1},
			}), nil
		},
		"lookup": func(args []Value) (Value, error) {
			return nil, &channel.ApplicationError{Code: "not-found", Details: codec.Int(args[0].(int64))}
		},
		"echo": func(args []Value) (Value, error) {
			return args[0], nil
		},
		"reset": func(args []Value) (Value, error) {
			return nil, nil
		},
	}}))

	got, err := b.Call(context.Background(), m, "search", NewRecord("SearchRequest", map[string]Value{"query": "hi"}))
	require.NoError(t, err)
	assert.Equal(t, NewRecord("SearchReply", map[string]Value{
		"result": "re: hi",
		"state":  EnumValue{Type: "State", Index: 1},
	}), got)

	_, err = b.Call(context.Background(), m, "lookup", int64(9))
	ae, ok := channel.AsApplicationError(err)
	require.True(t, ok)
	assert.Equal(t, "not-found", ae.Code)
	assert.Equal(t, codec.Int(9), ae.Details)

	rec := everything()
	got, err = b.Call(context.Background(), m, "echo", rec)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	got, err = b.Call(context.Background(), m, "reset")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetUp_NonNullArgumentNeverReachesLogic(t *testing.T) {
	m := startMessenger(t)
	b := bind(t, "HostApi")

	var called bool
	require.NoError(t, b.SetUp(m, &Implementation{
		Sync: map[string]Func{
			"add": func(args []Value) (Value, error) {
				called = true
				return args[0].(int64) + args[1].(int64), nil
			},
			"heavy": func(args []Value) (Value, error) { return "done", nil },
		},
		Async: map[string]AsyncFunc{
			"slow": func(args []Value, complete func(Value, error)) { complete(args[0], nil) },
		},
	}))

	_, err := b.Call(context.Background(), m, "add", int64(1), nil)
	ae, ok := channel.AsApplicationError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, channel.CodeNullError, ae.Code)
	assert.False(t, called)

	got, err := b.Call(context.Background(), m, "add", int64(2), int64(3))
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
}

func TestSetUp_AsyncAndBackground(t *testing.T) {
	m := startMessenger(t)
	b := bind(t, "HostApi")

	require.NoError(t, b.SetUp(m, &Implementation{
		Sync: map[string]Func{
			"add":   func(args []Value) (Value, error) { return int64(0), nil },
			"heavy": func(args []Value) (Value, error) { return "done", nil },
		},
		Async: map[string]AsyncFunc{
			"slow": func(args []Value, complete func(Value, error)) {
				go func() {
					time.Sleep(5 * time.Millisecond)
					complete(args[0], nil)
				}()
			},
		},
	}))

	got, err := b.Call(context.Background(), m, "slow", EnumValue{Type: "State", Index: 2})
	require.NoError(t, err)
	assert.Equal(t, EnumValue{Type: "State", Index: 2}, got)

	got, err = b.Call(context.Background(), m, "heavy")
	require.NoError(t, err)
	assert.Equal(t, "done", got)
}

func TestSetUp_MissingImplementation(t *testing.T) {
	m := startMessenger(t)
	b := bind(t, "HostApi")

	err := b.SetUp(m, &Implementation{Sync: map[string]Func{
		"add": func(args []Value) (Value, error) { return int64(0), nil },
	}})
	assert.Error(t, err)
	assert.False(t, m.Handled(b.Channel("add")), "nothing is attached on error")
}

func TestSetUp_NilDetaches(t *testing.T) {
	m := startMessenger(t)
	b := bind(t, "Api")

	require.NoError(t, b.SetUp(m, &Implementation{Sync: map[string]Func{
		"search": func(args []Value) (Value, error) { return nil, nil },
		"lookup": func(args []Value) (Value, error) { return nil, nil },
		"echo":   func(args []Value) (Value, error) { return nil, nil },
		"reset":  func(args []Value) (Value, error) { return nil, nil },
	}}))
	for _, def := range b.Interface().Methods {
		assert.True(t, m.Handled(b.Channel(def.Name)))
	}

	require.NoError(t, b.SetUp(m, nil))
	for _, def := range b.Interface().Methods {
		assert.False(t, m.Handled(b.Channel(def.Name)))
	}

	_, err := b.Call(context.Background(), m, "reset")
	assert.True(t, channel.IsChannelError(err))
}

func TestMsgpackCodec_EndToEnd(t *testing.T) {
	m := startMessenger(t)
	b := bind(t, "Api", WithCodec(MsgpackCodec), WithPrefix("test"))
	assert.Equal(t, "test.Api.search", b.Channel("search"))

	require.NoError(t, b.SetUp(m, &Implementation{Sync: map[string]Func{
		"search": func(args []Value) (Value, error) {
			return NewRecord("SearchReply", map[string]Value{"result": "mp", "state": nil}), nil
		},
		"lookup": func(args []Value) (Value, error) { return nil, errors.New("unused") },
		"echo":   func(args []Value) (Value, error) { return args[0], nil },
		"reset":  func(args []Value) (Value, error) { return nil, nil },
	}}))

	got, err := b.Call(context.Background(), m, "search", NewRecord("SearchRequest", map[string]Value{"query": nil}))
	require.NoError(t, err)
	assert.Equal(t, "mp", got.(*Record).Get("result"))
}
