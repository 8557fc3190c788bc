package kotlin

import (
	"fmt"

	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
)

// converts reports whether values of ref need more than a cast between
// their Kotlin and wire forms. Ints may arrive as Int and are widened.
func (g *generator) converts(ref ir.TypeRef, tagged bool) bool {
	found := false
	resolve.Visit(ref, func(r ir.TypeRef) bool {
		switch g.plan.Kind(r) {
		case resolve.KindEnum:
			found = true
		case resolve.KindRecord:
			found = found || !tagged
		case resolve.KindBuiltin:
			found = found || r.BaseName == ir.TypeInt
		}
		return !found
	})
	return found
}

// enc returns the Kotlin expression for the wire form of x.
func (g *generator) enc(ref ir.TypeRef, x string, tagged bool) string {
	q := ""
	if ref.IsNullable {
		q = "?"
	}
	switch g.plan.Kind(ref) {
	case resolve.KindRecord:
		if tagged {
			return x
		}
		return fmt.Sprintf("%s%s.toMap()", x, q)
	case resolve.KindEnum:
		return fmt.Sprintf("%s%s.raw", x, q)
	}

	args := resolve.TypeArguments(ref)
	switch ref.BaseName {
	case ir.TypeList:
		if !g.needsEncode(args[0], tagged) {
			return x
		}
		return fmt.Sprintf("%s%s.map { %s }", x, q, g.enc(args[0], "it", tagged))
	case ir.TypeMap:
		if !g.needsEncode(args[0], tagged) && !g.needsEncode(args[1], tagged) {
			return x
		}
		return fmt.Sprintf("%s%s.map { (k, v) -> %s to %s }%s.toMap()", x, q, g.enc(args[0], "k", tagged), g.enc(args[1], "v", tagged), q)
	}
	return x
}

// needsEncode is converts without int widening, which only matters when
// reading.
func (g *generator) needsEncode(ref ir.TypeRef, tagged bool) bool {
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

// dec returns the Kotlin expression reading x (an Any?) as ref.
func (g *generator) dec(ref ir.TypeRef, x string, tagged bool) string {
	typ := g.plan.Type(ref)
	q := ""
	if ref.IsNullable {
		q = "?"
	}

	switch g.plan.Kind(ref) {
	case resolve.KindRecord:
		if tagged {
			return fmt.Sprintf("%s as %s", x, typ)
		}
		if ref.IsNullable {
			return fmt.Sprintf("(%s as Map<String?, Any?>?)?.let { %s.fromMap(it) }", x, ref.BaseName)
		}
		return fmt.Sprintf("%s.fromMap(%s as Map<String?, Any?>)", ref.BaseName, x)
	case resolve.KindEnum:
		if ref.IsNullable {
			return fmt.Sprintf("(%s as Number?)?.let { %s.ofRaw(it.toInt()) }", x, ref.BaseName)
		}
		return fmt.Sprintf("%s.ofRaw((%s as Number).toInt())", ref.BaseName, x)
	}

	args := resolve.TypeArguments(ref)
	switch ref.BaseName {
	case ir.TypeInt:
		return fmt.Sprintf("(%s as Number%s)%s.toLong()", x, q, q)
	case ir.TypeObject:
		if ref.IsNullable {
			return x
		}
		return x + "!!"
	case ir.TypeList:
		if !g.converts(args[0], tagged) {
			return fmt.Sprintf("%s as %s", x, typ)
		}
		return fmt.Sprintf("(%s as List<Any?>%s)%s.map { %s }", x, q, q, g.dec(args[0], "it", tagged))
	case ir.TypeMap:
		if !g.converts(ref, tagged) {
			return fmt.Sprintf("%s as %s", x, typ)
		}
		return fmt.Sprintf("(%s as Map<Any?, Any?>%s)%s.map { (k, v) -> %s to %s }%s.toMap()",
			x, q, q, g.dec(args[0], "k", tagged), g.dec(args[1], "v", tagged), q)
	}
	return fmt.Sprintf("%s as %s", x, typ)
}
