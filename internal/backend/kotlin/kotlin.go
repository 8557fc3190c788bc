// Package kotlin emits host-side Kotlin bindings for Android.
package kotlin

import (
	"fmt"
	"strings"

	"github.com/xiaowei-guan/pigeon/internal/backend"
	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
)

const (
	defaultPackage = "messages"
	defaultOut     = "Messages.g.kt"
)

// Backend is the Kotlin target.
type Backend struct{}

// New returns the Kotlin backend.
func New() *Backend {
	return &Backend{}
}

// Name returns "kotlin".
func (b *Backend) Name() string {
	return "kotlin"
}

// Builtins returns the Kotlin type table.
func (b *Backend) Builtins() resolve.Table {
	return resolve.Table{
		Builtins: map[string]string{
			ir.TypeBool:        "Boolean",
			ir.TypeInt:         "Long",
			ir.TypeDouble:      "Double",
			ir.TypeString:      "String",
			ir.TypeUint8List:   "ByteArray",
			ir.TypeInt32List:   "IntArray",
			ir.TypeInt64List:   "LongArray",
			ir.TypeFloat64List: "DoubleArray",
			ir.TypeList:        "List<%s>",
			ir.TypeMap:         "Map<%s, %s>",
			ir.TypeObject:      "Any",
		},
		Void:     "Unit",
		Nullable: func(repr string) string { return repr + "?" },
	}
}

// Generate emits one Kotlin source file.
func (b *Backend) Generate(plan *backend.Plan, opts backend.Options) ([]backend.File, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = defaultPackage
	}
	out := opts.Out
	if out == "" {
		out = defaultOut
	}
	g := &generator{plan: plan, w: backend.NewWriter("  ")}
	g.file(pkg, opts)
	return []backend.File{{Path: out, Content: g.w.Bytes()}}, nil
}

type generator struct {
	plan *backend.Plan
	w    *backend.Writer
}

const preamble = `import android.util.Log
import io.flutter.plugin.common.BasicMessageChannel
import io.flutter.plugin.common.BinaryMessenger
import io.flutter.plugin.common.MessageCodec
import io.flutter.plugin.common.StandardMessageCodec
import java.io.ByteArrayOutputStream
import java.nio.ByteBuffer

private fun wrapResult(result: Any?): Map<String, Any?> {
  return mapOf("result" to result)
}

private fun wrapError(exception: Throwable): Map<String, Any?> {
  return if (exception is FlutterError) {
    mapOf("error" to mapOf(
      "code" to exception.code,
      "message" to exception.message,
      "details" to exception.details
    ))
  } else {
    mapOf("error" to mapOf(
      "code" to "Error",
      "message" to exception.toString(),
      "details" to "Cause: " + exception.cause + ", Stacktrace: " + Log.getStackTraceString(exception)
    ))
  }
}

private fun createConnectionError(channelName: String): FlutterError {
  return FlutterError("channel-error", "Unable to establish connection on channel: '$channelName'.", "")
}

/**
 * Error class for passing custom error details to Flutter via a thrown PlatformException.
 * @property code The error code.
 * @property message The error message.
 * @property details The error details. Must be a datatype supported by the api codec.
 */
class FlutterError (
  val code: String,
  override val message: String? = null,
  val details: Any? = null
) : Throwable()`

func (g *generator) file(pkg string, opts backend.Options) {
	w := g.w
	w.Header("//", g.plan, opts)
	w.Line("")
	w.Linef("package %s", pkg)
	w.Line("")
	for _, line := range strings.Split(preamble, "\n") {
		w.Line(line)
	}

	for _, e := range g.plan.Enums {
		w.Line("")
		g.enum(e)
	}
	for _, rec := range g.plan.Records {
		w.Line("")
		g.record(rec)
	}
	for i := range g.plan.Interfaces {
		iface := &g.plan.Interfaces[i]
		w.Line("")
		g.codec(iface)
		w.Line("")
		if iface.ImplementedOn(backend.SideHost) {
			g.receiver(iface)
		} else {
			g.caller(iface)
		}
	}
}

func (g *generator) enum(e backend.Enum) {
	w := g.w
	w.Block(fmt.Sprintf("enum class %s(val raw: Int) {", e.Name), "}", func() {
		for i, m := range e.Members {
			sep := ","
			if i == len(e.Members)-1 {
				sep = ";"
			}
			w.Linef("%s(%d)%s", backend.Screaming(m), i, sep)
		}
		w.Line("")
		w.Block("companion object {", "}", func() {
			w.Block("fun ofRaw(raw: Int): "+e.Name+" {", "}", func() {
				w.Linef(`return values().getOrNull(raw) ?: throw IllegalArgumentException("%s index $raw out of range")`, e.Name)
			})
		})
	})
}

func (g *generator) record(rec backend.Record) {
	w := g.w
	if len(rec.Fields) == 0 {
		w.Linef("class %s {", rec.Name)
	} else {
		w.Linef("data class %s (", rec.Name)
		w.In()
		for i, f := range rec.Fields {
			sep := ","
			if i == len(rec.Fields)-1 {
				sep = ""
			}
			if f.Type.IsNullable {
				w.Linef("val %s: %s = null%s", f.Name, f.Resolved.Representation, sep)
			} else {
				w.Linef("val %s: %s%s", f.Name, f.Resolved.Representation, sep)
			}
		}
		w.Out()
		w.Line(") {")
	}
	w.In()

	w.Block("companion object {", "}", func() {
		w.Line(`@Suppress("UNCHECKED_CAST")`)
		w.Block(fmt.Sprintf("fun fromMap(map: Map<String?, Any?>): %s {", rec.Name), "}", func() {
			if len(rec.Fields) == 0 {
				w.Linef("return %s()", rec.Name)
				return
			}
			w.Block(fmt.Sprintf("return %s(", rec.Name), ")", func() {
				for i, f := range rec.Fields {
					sep := ","
					if i == len(rec.Fields)-1 {
						sep = ""
					}
					w.Linef("%s = %s%s", f.Name, g.dec(f.Type, fmt.Sprintf("map[%q]", f.Name), false), sep)
				}
			})
		})
	})
	w.Block("fun toMap(): Map<String, Any?> {", "}", func() {
		if len(rec.Fields) == 0 {
			w.Line("return emptyMap()")
			return
		}
		w.Block("return mapOf(", ")", func() {
			for i, f := range rec.Fields {
				sep := ","
				if i == len(rec.Fields)-1 {
					sep = ""
				}
				w.Linef("%q to %s%s", f.Name, g.enc(f.Type, f.Name, false), sep)
			}
		})
	})

	w.Out()
	w.Line("}")
}

// codec writes the interface's message codec object.
func (g *generator) codec(iface *backend.Interface) {
	w := g.w
	name := codecName(iface)
	if len(iface.Discriminants) == 0 {
		w.Linef("private object %s : StandardMessageCodec()", name)
		return
	}
	w.Block(fmt.Sprintf("private object %s : StandardMessageCodec() {", name), "}", func() {
		w.Block("override fun readValueOfType(type: Byte, buffer: ByteBuffer): Any? {", "}", func() {
			w.Block("return when (type) {", "}", func() {
				for _, e := range iface.Discriminants {
					w.Block(fmt.Sprintf("%d.toByte() -> {", e.Code), "}", func() {
						w.Linef("return (readValue(buffer) as? Map<String?, Any?>)?.let {")
						w.In()
						w.Linef("%s.fromMap(it)", e.Record)
						w.Out()
						w.Line("}")
					})
				}
				w.Line("else -> super.readValueOfType(type, buffer)")
			})
		})
		w.Block("override fun writeValue(stream: ByteArrayOutputStream, value: Any?) {", "}", func() {
			w.Block("when (value) {", "}", func() {
				for _, e := range iface.Discriminants {
					w.Block(fmt.Sprintf("is %s -> {", e.Record), "}", func() {
						w.Linef("stream.write(%d)", e.Code)
						w.Line("writeValue(stream, value.toMap())")
					})
				}
				w.Line("else -> super.writeValue(stream, value)")
			})
		})
	})
}

func codecName(iface *backend.Interface) string {
	return iface.Name + "Codec"
}
