// Package discriminant assigns the codec tags of custom record types.
//
// The generic codec represents builtins natively; every record reachable
// from an interface's method signatures is tagged with a one-byte
// discriminant so the receiving side can pick the decode routine without
// knowing the type in advance. The traversal order is part of the wire
// contract: every backend must reach the same (record, code) list.
package discriminant

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/xiaowei-guan/pigeon/codec"
	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
)

// Base is the first discriminant. Codes below it are the codec's builtin
// type tags.
const Base = codec.MinCustomCode

// MaxRecords is the number of distinct codes available to one interface.
const MaxRecords = 256 - Base

// Entry pairs a record with its discriminant.
type Entry struct {
	Record string `json:"record"`
	Code   uint8  `json:"code"`
}

// Assign walks iface's methods in declaration order, and for each method
// its return type then its arguments in order, visiting every type
// reference pre-order. Each record met for the first time receives the
// next code starting at Base. Enums and builtins are never tagged, and
// records reachable only through record fields are not tagged either.
func Assign(iface *ir.Interface, doc *ir.Document) ([]Entry, error) {
	var (
		entries []Entry
		seen    = make(map[string]bool)
		err     error
	)

	visit := func(ref ir.TypeRef) {
		resolve.Visit(ref, func(r ir.TypeRef) bool {
			if err != nil {
				return false
			}
			switch resolve.KindOf(r, doc) {
			case resolve.KindRecord:
				if seen[r.BaseName] {
					return true
				}
				seen[r.BaseName] = true
				code, convErr := safecast.Conv[uint8](Base + len(entries))
				if convErr != nil || len(entries) >= MaxRecords {
					err = fmt.Errorf("interface %s: more than %d record types on the codec surface", iface.Name, MaxRecords)
					return false
				}
				entries = append(entries, Entry{Record: r.BaseName, Code: code})
			case resolve.KindUnknown:
				err = fmt.Errorf("interface %s: %w", iface.Name, &resolve.Error{Name: r.BaseName, Ref: ref.String()})
				return false
			}
			return true
		})
	}

	for _, m := range iface.Methods {
		visit(m.ReturnType)
		for _, arg := range m.Arguments {
			visit(arg.Type)
		}
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Codes returns the discriminant values of entries in order.
func Codes(entries []Entry) []uint8 {
	codes := make([]uint8, len(entries))
	for i, e := range entries {
		codes[i] = e.Code
	}
	return codes
}

// Lookup returns the code assigned to record.
func Lookup(entries []Entry, record string) (uint8, bool) {
	for _, e := range entries {
		if e.Record == record {
			return e.Code, true
		}
	}
	return 0, false
}
