package golang

import (
	"fmt"
	"strings"

	"github.com/xiaowei-guan/pigeon/internal/backend"
	"github.com/xiaowei-guan/pigeon/internal/ir"
)

// params returns the Go parameter list of a method.
func (g *generator) params(m backend.Method) []string {
	out := make([]string, 0, len(m.Arguments)+1)
	for _, a := range m.Arguments {
		out = append(out, param(a.Name)+" "+a.Resolved.Representation)
	}
	return out
}

func (g *generator) receiver(iface *backend.Interface) {
	w := g.w
	name := backend.Upper(iface.Name)

	w.Linef("// %s is implemented on the host and invoked from Flutter.", name)
	w.Block(fmt.Sprintf("type %s interface {", name), "}", func() {
		for _, m := range iface.Methods {
			params := g.params(m)
			ret := m.Return
			switch {
			case m.IsAsynchronous && ret.Type.IsVoid:
				params = append(params, "complete func(error)")
				w.Linef("%s(%s)", backend.Upper(m.Name), strings.Join(params, ", "))
			case m.IsAsynchronous:
				params = append(params, fmt.Sprintf("complete func(%s, error)", ret.Resolved.Representation))
				w.Linef("%s(%s)", backend.Upper(m.Name), strings.Join(params, ", "))
			case ret.Type.IsVoid:
				w.Linef("%s(%s) error", backend.Upper(m.Name), strings.Join(params, ", "))
			default:
				w.Linef("%s(%s) (%s, error)", backend.Upper(m.Name), strings.Join(params, ", "), ret.Resolved.Representation)
			}
		}
	})

	w.Line("")
	w.Linef("// SetUp%s attaches api to the channels of %s on m. A nil api", name, iface.Name)
	w.Line("// detaches every channel.")
	w.Linef("func SetUp%s(m channel.Messenger, api %s) {", name, name)
	w.In()
	w.Block("if api == nil {", "}", func() {
		for _, m := range iface.Methods {
			w.Linef("m.SetHandler(%s, nil, nil)", backend.Quote(m.Channel))
		}
		w.Line("return")
	})
	if iface.HasBackground() {
		w.Line("background := m.BackgroundQueue()")
	}
	for _, m := range iface.Methods {
		g.handler(iface, m)
	}
	w.Out()
	w.Line("}")
}

func (g *generator) handler(iface *backend.Interface, m backend.Method) {
	w := g.w
	queue := "nil"
	if m.Dispatch == ir.DispatchBackground {
		queue = "background"
	}
	c := codecName(iface)

	fail := "return nil, %s"
	if m.IsAsynchronous {
		w.Linef("m.SetHandler(%s, channel.ServeAsync(%s, func(args []codec.Value, complete channel.Completion) {", backend.Quote(m.Channel), c)
		fail = "complete(nil, %s)\nreturn"
	} else {
		w.Linef("m.SetHandler(%s, channel.Serve(%s, func(args []codec.Value) (codec.Value, error) {", backend.Quote(m.Channel), c)
	}
	w.In()

	failWith := func(err string) {
		w.Block("if err != nil {", "}", func() {
			for _, line := range strings.Split(fmt.Sprintf(fail, err), "\n") {
				w.Line(line)
			}
		})
	}

	callArgs := make([]string, 0, len(m.Arguments))
	for i, a := range m.Arguments {
		w.Linef("raw%d, err := channel.Arg(%s, args, %d, %s, %t)", i, backend.Quote(m.Channel), i, backend.Quote(a.Name), a.Type.IsNullable)
		failWith("err")
		v := "arg" + backend.Upper(a.Name)
		w.Linef("%s, err := %s(raw%d)", v, g.dec(a.Type, iface), i)
		failWith(fmt.Sprintf(`fmt.Errorf("argument %s: %%w", err)`, a.Name))
		callArgs = append(callArgs, v)
	}

	method := "api." + backend.Upper(m.Name)
	ret := m.Return
	switch {
	case m.IsAsynchronous && ret.Type.IsVoid:
		callArgs = append(callArgs, "func(err error) {")
		w.Linef("%s(%s", method, strings.Join(callArgs, ", "))
		w.In()
		w.Block("if err != nil {", "}", func() {
			w.Line("complete(nil, err)")
			w.Line("return")
		})
		w.Line("complete(codec.Null{}, nil)")
		w.Out()
		w.Line("})")
	case m.IsAsynchronous:
		callArgs = append(callArgs, fmt.Sprintf("func(result %s, err error) {", ret.Resolved.Representation))
		w.Linef("%s(%s", method, strings.Join(callArgs, ", "))
		w.In()
		w.Block("if err != nil {", "}", func() {
			w.Line("complete(nil, err)")
			w.Line("return")
		})
		w.Linef("complete(%s, nil)", g.enc(ret.Type, "result", iface))
		w.Out()
		w.Line("})")
	case ret.Type.IsVoid:
		w.Block(fmt.Sprintf("if err := %s(%s); err != nil {", method, strings.Join(callArgs, ", ")), "}", func() {
			w.Line("return nil, err")
		})
		w.Line("return codec.Null{}, nil")
	default:
		w.Linef("result, err := %s(%s)", method, strings.Join(callArgs, ", "))
		failWith("err")
		w.Linef("return %s, nil", g.enc(ret.Type, "result", iface))
	}

	w.Out()
	w.Linef("}), %s)", queue)
}

func (g *generator) caller(iface *backend.Interface) {
	w := g.w
	name := backend.Upper(iface.Name)

	w.Linef("// %s invokes the Flutter implementation of %s.", name, iface.Name)
	w.Block(fmt.Sprintf("type %s struct {", name), "}", func() {
		w.Line("messenger channel.Messenger")
	})
	w.Line("")
	w.Linef("// New%s returns a caller for %s over m.", name, iface.Name)
	w.Linef("func New%s(m channel.Messenger) *%s {", name, name)
	w.In()
	w.Linef("return &%s{messenger: m}", name)
	w.Out()
	w.Line("}")

	for _, m := range iface.Methods {
		w.Line("")
		g.call(iface, m)
	}
}

func (g *generator) call(iface *backend.Interface, m backend.Method) {
	w := g.w
	params := append([]string{"ctx context.Context"}, g.params(m)...)
	ret := m.Return

	sendArgs := []string{"ctx", "api.messenger", codecName(iface), "channelName"}
	for _, a := range m.Arguments {
		sendArgs = append(sendArgs, g.enc(a.Type, param(a.Name), iface))
	}
	send := fmt.Sprintf("channel.Call(%s)", strings.Join(sendArgs, ", "))

	w.Linef("// %s sends one request on %s.", backend.Upper(m.Name), m.Channel)
	if ret.Type.IsVoid {
		w.Linef("func (api *%s) %s(%s) error {", backend.Upper(iface.Name), backend.Upper(m.Name), strings.Join(params, ", "))
		w.In()
		w.Linef("const channelName = %s", backend.Quote(m.Channel))
		w.Linef("_, err := %s", send)
		w.Line("return err")
		w.Out()
		w.Line("}")
		return
	}

	zero := g.zero(ret.Type)
	w.Linef("func (api *%s) %s(%s) (%s, error) {", backend.Upper(iface.Name), backend.Upper(m.Name), strings.Join(params, ", "), ret.Resolved.Representation)
	w.In()
	w.Linef("const channelName = %s", backend.Quote(m.Channel))
	w.Linef("result, err := %s", send)
	w.Block("if err != nil {", "}", func() {
		w.Linef("return %s, err", zero)
	})
	if !ret.Type.IsNullable {
		w.Block("if result, err = channel.Result(channelName, result); err != nil {", "}", func() {
			w.Linef("return %s, err", zero)
		})
	}
	w.Linef("out, err := %s(result)", g.dec(ret.Type, iface))
	w.Block("if err != nil {", "}", func() {
		w.Linef(`return %s, &channel.ChannelError{Channel: channelName, Message: "undecodable result", Err: err}`, zero)
	})
	w.Line("return out, nil")
	w.Out()
	w.Line("}")
}
