package kotlin

import (
	"fmt"
	"strings"

	"github.com/xiaowei-guan/pigeon/internal/backend"
	"github.com/xiaowei-guan/pigeon/internal/ir"
)

func argName(a backend.Field) string {
	return a.Name + "Arg"
}

func (g *generator) params(m backend.Method) []string {
	ps := make([]string, len(m.Arguments))
	for i, a := range m.Arguments {
		ps[i] = argName(a) + ": " + a.Resolved.Representation
	}
	return ps
}

// receiver writes the interface the host implements and its setUp.
func (g *generator) receiver(iface *backend.Interface) {
	w := g.w
	w.Line("/** Generated interface from Pigeon that represents a handler of messages from Flutter. */")
	w.Block(fmt.Sprintf("interface %s {", iface.Name), "}", func() {
		for _, m := range iface.Methods {
			params := g.params(m)
			ret := m.Return.Resolved.Representation
			switch {
			case m.IsAsynchronous:
				params = append(params, fmt.Sprintf("callback: (Result<%s>) -> Unit", ret))
				w.Linef("fun %s(%s)", m.Name, strings.Join(params, ", "))
			case m.Return.Type.IsVoid:
				w.Linef("fun %s(%s)", m.Name, strings.Join(params, ", "))
			default:
				w.Linef("fun %s(%s): %s", m.Name, strings.Join(params, ", "), ret)
			}
		}

		w.Line("")
		w.Block("companion object {", "}", func() {
			w.Linef("/** The codec used by %s. */", iface.Name)
			w.Block("val codec: MessageCodec<Any?> by lazy {", "}", func() {
				w.Line(codecName(iface))
			})
			w.Linef("/** Sets up an instance of `%s` to handle messages through the `binaryMessenger`. */", iface.Name)
			w.Line("@JvmStatic")
			w.Block(fmt.Sprintf("fun setUp(binaryMessenger: BinaryMessenger, api: %s?) {", iface.Name), "}", func() {
				if iface.HasBackground() {
					w.Line("val taskQueue = binaryMessenger.makeBackgroundTaskQueue()")
				}
				for _, m := range iface.Methods {
					g.handler(m)
				}
			})
		})
	})
}

func (g *generator) handler(m backend.Method) {
	w := g.w
	w.Block("run {", "}", func() {
		if m.Dispatch == ir.DispatchBackground {
			w.Linef("val channel = BasicMessageChannel<Any?>(binaryMessenger, %q, codec, taskQueue)", m.Channel)
		} else {
			w.Linef("val channel = BasicMessageChannel<Any?>(binaryMessenger, %q, codec)", m.Channel)
		}
		w.Line("if (api != null) {")
		w.In()
		w.Line("channel.setMessageHandler { message, reply ->")
		w.In()

		call := fmt.Sprintf("api.%s(%s)", m.Name, strings.Join(g.callArgs(m), ", "))
		if m.IsAsynchronous {
			ret := m.Return.Resolved.Representation
			w.Line("try {")
			w.In()
			g.decodeArgs(m)
			w.Block(fmt.Sprintf("%s { result: Result<%s> ->", call, ret), "}", func() {
				w.Line("val error = result.exceptionOrNull()")
				w.Line("if (error != null) {")
				w.In()
				w.Line("reply.reply(wrapError(error))")
				w.Out()
				w.Line("} else {")
				w.In()
				if m.Return.Type.IsVoid {
					w.Line("reply.reply(wrapResult(null))")
				} else {
					nullable := m.Return.Type
					nullable.IsNullable = true
					w.Line("val data = result.getOrNull()")
					w.Linef("reply.reply(wrapResult(%s))", g.enc(nullable, "data", true))
				}
				w.Out()
				w.Line("}")
			})
			w.Out()
			w.Line("} catch (exception: Throwable) {")
			w.In()
			w.Line("reply.reply(wrapError(exception))")
			w.Out()
			w.Line("}")
		} else {
			w.Line("val wrapped: Map<String, Any?> = try {")
			w.In()
			g.decodeArgs(m)
			if m.Return.Type.IsVoid {
				w.Line(call)
				w.Line("wrapResult(null)")
			} else {
				w.Linef("val output = %s", call)
				w.Linef("wrapResult(%s)", g.enc(m.Return.Type, "output", true))
			}
			w.Out()
			w.Line("} catch (exception: Throwable) {")
			w.In()
			w.Line("wrapError(exception)")
			w.Out()
			w.Line("}")
			w.Line("reply.reply(wrapped)")
		}

		w.Out()
		w.Line("}")
		w.Out()
		w.Line("} else {")
		w.In()
		w.Line("channel.setMessageHandler(null)")
		w.Out()
		w.Line("}")
	})
}

func (g *generator) callArgs(m backend.Method) []string {
	out := make([]string, len(m.Arguments))
	for i, a := range m.Arguments {
		out[i] = argName(a)
	}
	return out
}

// decodeArgs writes the argument decoding of a handler. It runs inside the
// handler's try block so a malformed message still gets an error reply.
func (g *generator) decodeArgs(m backend.Method) {
	w := g.w
	if len(m.Arguments) == 0 {
		return
	}
	w.Line(`@Suppress("UNCHECKED_CAST")`)
	w.Line("val args = message as? List<Any?> ?: emptyList()")
	for i, a := range m.Arguments {
		nullable := a.Type
		nullable.IsNullable = true
		w.Linef("val %s = %s", argName(a), g.dec(nullable, fmt.Sprintf("args.getOrNull(%d)", i), true))
		if !a.Type.IsNullable {
			w.Block(fmt.Sprintf("if (%s == null) {", argName(a)), "}", func() {
				w.Linef(`reply.reply(wrapError(FlutterError("null-error", "Argument for %s was null, expected non-null %s.", null)))`,
					m.Channel, a.Resolved.Representation)
				w.Line("return@setMessageHandler")
			})
		}
	}
}

// caller writes the class the host uses to invoke Flutter.
func (g *generator) caller(iface *backend.Interface) {
	w := g.w
	w.Line("/** Generated class from Pigeon that represents Flutter messages that can be called from Kotlin. */")
	w.Block(fmt.Sprintf("class %s(private val binaryMessenger: BinaryMessenger) {", iface.Name), "}", func() {
		w.Block("companion object {", "}", func() {
			w.Linef("/** The codec used by %s. */", iface.Name)
			w.Block("val codec: MessageCodec<Any?> by lazy {", "}", func() {
				w.Line(codecName(iface))
			})
		})
		for _, m := range iface.Methods {
			g.call(m)
		}
	})
}

func (g *generator) call(m backend.Method) {
	w := g.w
	ret := m.Return
	params := append(g.params(m), fmt.Sprintf("callback: (Result<%s>) -> Unit", ret.Resolved.Representation))

	message := "null"
	if len(m.Arguments) > 0 {
		encoded := make([]string, len(m.Arguments))
		for i, a := range m.Arguments {
			encoded[i] = g.enc(a.Type, argName(a), true)
		}
		message = "listOf(" + strings.Join(encoded, ", ") + ")"
	}

	w.Block(fmt.Sprintf("fun %s(%s) {", m.Name, strings.Join(params, ", ")), "}", func() {
		w.Linef("val channelName = %q", m.Channel)
		w.Line("val channel = BasicMessageChannel<Any?>(binaryMessenger, channelName, codec)")
		w.Block(fmt.Sprintf("channel.send(%s) {", message), "}", func() {
			w.Line("if (it is Map<*, *>) {")
			w.In()
			w.Line("val error = it[\"error\"] as Map<*, *>?")
			w.Line("if (error != null) {")
			w.In()
			w.Line(`callback(Result.failure(FlutterError(error["code"] as String, error["message"] as String?, error["details"])))`)
			w.Out()
			if !ret.Type.IsVoid && !ret.Type.IsNullable {
				w.Line(`} else if (it["result"] == null) {`)
				w.In()
				w.Line(`callback(Result.failure(FlutterError("null-error", "Flutter api returned null value for non-null return value.", null)))`)
				w.Out()
			}
			w.Line("} else {")
			w.In()
			if ret.Type.IsVoid {
				w.Line("callback(Result.success(Unit))")
			} else {
				w.Linef("val output = %s", g.dec(ret.Type, `it["result"]`, true))
				w.Line("callback(Result.success(output))")
			}
			w.Out()
			w.Line("}")
			w.Out()
			w.Line("} else {")
			w.In()
			w.Line("callback(Result.failure(createConnectionError(channelName)))")
			w.Out()
			w.Line("}")
		})
	})
}
