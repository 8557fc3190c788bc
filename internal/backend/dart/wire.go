package dart

import (
	"fmt"

	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
)

// converts reports whether values of ref change shape on the wire: enums
// become indexes and, below a record field, records become maps.
func (g *generator) converts(ref ir.TypeRef, tagged bool) bool {
	found := false
	resolve.Visit(ref, func(r ir.TypeRef) bool {
		switch g.plan.Kind(r) {
		case resolve.KindEnum:
			found = true
		case resolve.KindRecord:
			found = found || !tagged
		}
		return !found
	})
	return found
}

// enc returns the Dart expression for the wire form of x. tagged is true
// in method signatures, where the codec writes records itself.
func (g *generator) enc(ref ir.TypeRef, x string, tagged bool) string {
	if !g.converts(ref, tagged) {
		return x
	}
	q := ""
	if ref.IsNullable {
		q = "?"
	}
	switch g.plan.Kind(ref) {
	case resolve.KindRecord:
		return fmt.Sprintf("%s%s.encode()", x, q)
	case resolve.KindEnum:
		return fmt.Sprintf("%s%s.index", x, q)
	}
	args := resolve.TypeArguments(ref)
	switch ref.BaseName {
	case ir.TypeList:
		return fmt.Sprintf("%s%s.map((e) => %s).toList()", x, q, g.enc(args[0], "e", tagged))
	case ir.TypeMap:
		return fmt.Sprintf("%s%s.map((k, v) => MapEntry(%s, %s))", x, q, g.enc(args[0], "k", tagged), g.enc(args[1], "v", tagged))
	}
	return x
}

// dec returns the Dart expression reading x (an Object?) as ref.
func (g *generator) dec(ref ir.TypeRef, x string, tagged bool) string {
	typ := g.plan.Type(ref)
	bang := "!"
	if ref.IsNullable {
		bang = ""
	}

	switch g.plan.Kind(ref) {
	case resolve.KindRecord:
		if tagged {
			return fmt.Sprintf("%s%s as %s", x, bang, typ)
		}
		if ref.IsNullable {
			return fmt.Sprintf("%s != null ? %s.decode(%s!) : null", x, ref.BaseName, x)
		}
		return fmt.Sprintf("%s.decode(%s!)", ref.BaseName, x)
	case resolve.KindEnum:
		if ref.IsNullable {
			return fmt.Sprintf("%s != null ? %s.values[%s! as int] : null", x, ref.BaseName, x)
		}
		return fmt.Sprintf("%s.values[%s! as int]", ref.BaseName, x)
	}

	args := resolve.TypeArguments(ref)
	q := "?"
	if !ref.IsNullable {
		q = ""
	}
	switch ref.BaseName {
	case ir.TypeList:
		elem := g.plan.Type(args[0])
		if !g.converts(args[0], tagged) {
			return fmt.Sprintf("(%s%s as List<Object?>%s)%s.cast<%s>()", x, bang, q, q, elem)
		}
		return fmt.Sprintf("(%s%s as List<Object?>%s)%s.map<%s>((e) => %s).toList()", x, bang, q, q, elem, g.dec(args[0], "e", tagged))
	case ir.TypeMap:
		key, value := g.plan.Type(args[0]), g.plan.Type(args[1])
		if !g.converts(ref, tagged) {
			return fmt.Sprintf("(%s%s as Map<Object?, Object?>%s)%s.cast<%s, %s>()", x, bang, q, q, key, value)
		}
		return fmt.Sprintf("(%s%s as Map<Object?, Object?>%s)%s.map<%s, %s>((k, v) => MapEntry(%s, %s))",
			x, bang, q, q, key, value, g.dec(args[0], "k", tagged), g.dec(args[1], "v", tagged))
	case ir.TypeObject:
		return x + bang
	}
	return fmt.Sprintf("%s%s as %s", x, bang, typ)
}
