package dart

import (
	"fmt"
	"strings"

	"github.com/xiaowei-guan/pigeon/internal/backend"
)

func (g *generator) params(m backend.Method) string {
	ps := make([]string, len(m.Arguments))
	for i, a := range m.Arguments {
		ps[i] = a.Resolved.Representation + " " + a.Name
	}
	return strings.Join(ps, ", ")
}

// caller writes the Dart class that invokes a host implementation.
func (g *generator) caller(iface *backend.Interface) {
	w := g.w
	w.Block(fmt.Sprintf("class %s {", iface.Name), "}", func() {
		w.Line("/// Constructor for [" + iface.Name + "]. The [binaryMessenger] named argument is")
		w.Line("/// available for dependency injection. If it is left null, the default")
		w.Line("/// BinaryMessenger will be used which routes to the host platform.")
		w.Linef("%s({BinaryMessenger? binaryMessenger}) : pigeonVar_binaryMessenger = binaryMessenger;", iface.Name)
		w.Line("final BinaryMessenger? pigeonVar_binaryMessenger;")
		w.Line("")
		w.Linef("static const MessageCodec<Object?> pigeonChannelCodec = %s();", codecName(iface))

		for _, m := range iface.Methods {
			w.Line("")
			g.call(m)
		}
	})
}

func (g *generator) call(m backend.Method) {
	w := g.w
	ret := m.Return
	retType := ret.Resolved.Representation

	w.Block(fmt.Sprintf("Future<%s> %s(%s) async {", retType, m.Name, g.params(m)), "}", func() {
		w.Linef("const String pigeonVar_channelName = '%s';", m.Channel)
		w.Line("final BasicMessageChannel<Object?> pigeonVar_channel = BasicMessageChannel<Object?>(")
		w.In()
		w.Line("pigeonVar_channelName,")
		w.Line("pigeonChannelCodec,")
		w.Line("binaryMessenger: pigeonVar_binaryMessenger,")
		w.Out()
		w.Line(");")

		message := "null"
		if len(m.Arguments) > 0 {
			encoded := make([]string, len(m.Arguments))
			for i, a := range m.Arguments {
				encoded[i] = g.enc(a.Type, a.Name, true)
			}
			message = "<Object?>[" + strings.Join(encoded, ", ") + "]"
		}
		w.Line("final Map<Object?, Object?>? pigeonVar_replyMap =")
		w.In()
		w.In()
		w.Linef("await pigeonVar_channel.send(%s) as Map<Object?, Object?>?;", message)
		w.Out()
		w.Out()

		w.Line("if (pigeonVar_replyMap == null) {")
		w.In()
		w.Line("throw _createConnectionError(pigeonVar_channelName);")
		w.Out()
		w.Line("} else if (pigeonVar_replyMap['error'] != null) {")
		w.In()
		w.Line("final Map<Object?, Object?> pigeonVar_error = pigeonVar_replyMap['error']! as Map<Object?, Object?>;")
		w.Block("throw PlatformException(", ");", func() {
			w.Line("code: pigeonVar_error['code']! as String,")
			w.Line("message: pigeonVar_error['message'] as String?,")
			w.Line("details: pigeonVar_error['details'],")
		})
		w.Out()
		if !ret.Type.IsVoid && !ret.Type.IsNullable {
			w.Line("} else if (pigeonVar_replyMap['result'] == null) {")
			w.In()
			w.Block("throw PlatformException(", ");", func() {
				w.Line("code: 'null-error',")
				w.Line("message: 'Host platform returned null value for non-null return value.',")
			})
			w.Out()
		}
		w.Line("} else {")
		w.In()
		if ret.Type.IsVoid {
			w.Line("return;")
		} else {
			w.Linef("return %s;", g.dec(ret.Type, "pigeonVar_replyMap['result']", true))
		}
		w.Out()
		w.Line("}")
	})
}

// receiver writes the abstract class implemented in Dart and its setUp.
func (g *generator) receiver(iface *backend.Interface) {
	w := g.w
	w.Block(fmt.Sprintf("abstract class %s {", iface.Name), "}", func() {
		w.Linef("static const MessageCodec<Object?> pigeonChannelCodec = %s();", codecName(iface))
		w.Line("")
		for _, m := range iface.Methods {
			ret := m.Return.Resolved.Representation
			if m.IsAsynchronous {
				ret = "Future<" + ret + ">"
			}
			w.Linef("%s %s(%s);", ret, m.Name, g.params(m))
			w.Line("")
		}

		w.Linef("static void setUp(%s? api, {BinaryMessenger? binaryMessenger}) {", iface.Name)
		w.In()
		for _, m := range iface.Methods {
			g.handler(m)
		}
		w.Out()
		w.Line("}")
	})
}

func (g *generator) handler(m backend.Method) {
	w := g.w
	w.Block("{", "}", func() {
		w.Line("final BasicMessageChannel<Object?> pigeonVar_channel = BasicMessageChannel<Object?>(")
		w.In()
		w.Linef("'%s',", m.Channel)
		w.Line("pigeonChannelCodec,")
		w.Line("binaryMessenger: binaryMessenger,")
		w.Out()
		w.Line(");")
		w.Line("if (api == null) {")
		w.In()
		w.Line("pigeonVar_channel.setMessageHandler(null);")
		w.Out()
		w.Line("} else {")
		w.In()
		w.Line("pigeonVar_channel.setMessageHandler((Object? message) async {")
		w.In()

		// Argument decoding can throw, so it runs inside the try.
		w.Line("try {")
		w.In()
		callArgs := make([]string, len(m.Arguments))
		if len(m.Arguments) > 0 {
			w.Line("final List<Object?> args = (message as List<Object?>?) ?? <Object?>[];")
		}
		for i, a := range m.Arguments {
			arg := "arg_" + a.Name
			nullable := a.Type
			nullable.IsNullable = true
			w.Linef("final %s %s = %s;", g.plan.Type(nullable), arg, g.dec(nullable, fmt.Sprintf("_argAt(args, %d)", i), true))
			callArgs[i] = arg
			if !a.Type.IsNullable {
				callArgs[i] = arg + "!"
				w.Linef("if (%s == null) {", arg)
				w.In()
				w.Block("return _wrapResponse(error: PlatformException(", "));", func() {
					w.Line("code: 'null-error',")
					w.Linef("message: 'Argument for %s was null, expected non-null %s.',", m.Channel, a.Resolved.Representation)
				})
				w.Out()
				w.Line("}")
			}
		}

		call := fmt.Sprintf("api.%s(%s)", m.Name, strings.Join(callArgs, ", "))
		if m.IsAsynchronous {
			call = "await " + call
		}
		if m.Return.Type.IsVoid {
			w.Linef("%s;", call)
			w.Line("return _wrapResponse(empty: true);")
		} else {
			w.Linef("final %s output = %s;", m.Return.Resolved.Representation, call)
			w.Linef("return _wrapResponse(result: %s);", g.enc(m.Return.Type, "output", true))
		}
		w.Out()
		w.Line("} on PlatformException catch (e) {")
		w.In()
		w.Line("return _wrapResponse(error: e);")
		w.Out()
		w.Line("} catch (e) {")
		w.In()
		w.Line("return _wrapResponse(error: PlatformException(code: 'Error', message: e.toString()));")
		w.Out()
		w.Line("}")

		w.Out()
		w.Line("});")
		w.Out()
		w.Line("}")
	})
}
