// Package dart emits the Flutter-side bindings.
//
// Roles are seen from the other end: a receiver interface is called from
// Dart and a caller interface is implemented in Dart.
package dart

import (
	"fmt"
	"strings"

	"github.com/xiaowei-guan/pigeon/internal/backend"
	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
)

const defaultOut = "messages.g.dart"

// Backend is the Dart target.
type Backend struct{}

// New returns the Dart backend.
func New() *Backend {
	return &Backend{}
}

// Name returns "dart".
func (b *Backend) Name() string {
	return "dart"
}

// Builtins returns the Dart type table.
func (b *Backend) Builtins() resolve.Table {
	return resolve.Table{
		Builtins: map[string]string{
			ir.TypeBool:        "bool",
			ir.TypeInt:         "int",
			ir.TypeDouble:      "double",
			ir.TypeString:      "String",
			ir.TypeUint8List:   "Uint8List",
			ir.TypeInt32List:   "Int32List",
			ir.TypeInt64List:   "Int64List",
			ir.TypeFloat64List: "Float64List",
			ir.TypeList:        "List<%s>",
			ir.TypeMap:         "Map<%s, %s>",
			ir.TypeObject:      "Object",
		},
		Void:     "void",
		Nullable: func(repr string) string { return repr + "?" },
	}
}

// Generate emits one Dart library. opts.Package is unused.
func (b *Backend) Generate(plan *backend.Plan, opts backend.Options) ([]backend.File, error) {
	out := opts.Out
	if out == "" {
		out = defaultOut
	}
	g := &generator{plan: plan, w: backend.NewWriter("  ")}
	g.file(opts)
	return []backend.File{{Path: out, Content: g.w.Bytes()}}, nil
}

type generator struct {
	plan *backend.Plan
	w    *backend.Writer
}

const preamble = `// ignore_for_file: public_member_api_docs, non_constant_identifier_names, avoid_as, unused_import, unnecessary_parenthesis, prefer_null_aware_operators, omit_local_variable_types, unused_shown_name, unnecessary_import, no_leading_underscores_for_local_identifiers

import 'dart:async';
import 'dart:typed_data' show Float64List, Int32List, Int64List, Uint8List;

import 'package:flutter/foundation.dart' show ReadBuffer, WriteBuffer;
import 'package:flutter/services.dart';

PlatformException _createConnectionError(String channelName) {
  return PlatformException(
    code: 'channel-error',
    message: 'Unable to establish connection on channel: "$channelName".',
  );
}

Map<Object?, Object?> _wrapResponse({Object? result, PlatformException? error, bool empty = false}) {
  if (empty) {
    return <Object?, Object?>{'result': null};
  }
  if (error == null) {
    return <Object?, Object?>{'result': result};
  }
  return <Object?, Object?>{
    'error': <Object?, Object?>{
      'code': error.code,
      'message': error.message,
      'details': error.details,
    },
  };
}

Object? _argAt(List<Object?> args, int index) {
  return index < args.length ? args[index] : null;
}`

func (g *generator) file(opts backend.Options) {
	w := g.w
	w.Header("//", g.plan, opts)
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
		if iface.ImplementedOn(backend.SideFlutter) {
			g.receiver(iface)
		} else {
			g.caller(iface)
		}
	}
}

func (g *generator) enum(e backend.Enum) {
	g.w.Block(fmt.Sprintf("enum %s {", e.Name), "}", func() {
		for _, m := range e.Members {
			g.w.Linef("%s,", m)
		}
	})
}

func (g *generator) record(rec backend.Record) {
	w := g.w
	w.Block(fmt.Sprintf("class %s {", rec.Name), "}", func() {
		if len(rec.Fields) == 0 {
			w.Linef("%s();", rec.Name)
		} else {
			w.Block(fmt.Sprintf("%s({", rec.Name), "});", func() {
				for _, f := range rec.Fields {
					if f.Type.IsNullable {
						w.Linef("this.%s,", f.Name)
					} else {
						w.Linef("required this.%s,", f.Name)
					}
				}
			})
		}
		for _, f := range rec.Fields {
			w.Line("")
			w.Linef("%s %s;", f.Resolved.Representation, f.Name)
		}

		w.Line("")
		w.Block("Object encode() {", "}", func() {
			w.Block("return <Object?, Object?>{", "};", func() {
				for _, f := range rec.Fields {
					w.Linef("'%s': %s,", f.Name, g.enc(f.Type, f.Name, false))
				}
			})
		})

		w.Line("")
		w.Block(fmt.Sprintf("static %s decode(Object result) {", rec.Name), "}", func() {
			w.Line("result as Map<Object?, Object?>;")
			if len(rec.Fields) == 0 {
				w.Linef("return %s();", rec.Name)
				return
			}
			w.Block(fmt.Sprintf("return %s(", rec.Name), ");", func() {
				for _, f := range rec.Fields {
					w.Linef("%s: %s,", f.Name, g.dec(f.Type, fmt.Sprintf("result['%s']", f.Name), false))
				}
			})
		})
	})
}

// codec writes the interface's message codec. Records listed in the
// discriminants are written as their code followed by the encoded map.
func (g *generator) codec(iface *backend.Interface) {
	w := g.w
	w.Block(fmt.Sprintf("class %s extends StandardMessageCodec {", codecName(iface)), "}", func() {
		w.Linef("const %s();", codecName(iface))
		if len(iface.Discriminants) == 0 {
			return
		}

		w.Line("")
		w.Line("@override")
		w.Block("void writeValue(WriteBuffer buffer, Object? value) {", "}", func() {
			for i, e := range iface.Discriminants {
				open := "} else if"
				if i == 0 {
					open = "if"
				}
				w.Linef("%s (value is %s) {", open, e.Record)
				w.In()
				w.Linef("buffer.putUint8(%d);", e.Code)
				w.Line("writeValue(buffer, value.encode());")
				w.Out()
			}
			w.Line("} else {")
			w.In()
			w.Line("super.writeValue(buffer, value);")
			w.Out()
			w.Line("}")
		})

		w.Line("")
		w.Line("@override")
		w.Block("Object? readValueOfType(int type, ReadBuffer buffer) {", "}", func() {
			w.Block("switch (type) {", "}", func() {
				for _, e := range iface.Discriminants {
					w.Linef("case %d:", e.Code)
					w.In()
					w.Linef("return %s.decode(readValue(buffer)!);", e.Record)
					w.Out()
				}
				w.Line("default:")
				w.In()
				w.Line("return super.readValueOfType(type, buffer);")
				w.Out()
			})
		})
	})
}

func codecName(iface *backend.Interface) string {
	return "_" + iface.Name + "Codec"
}
