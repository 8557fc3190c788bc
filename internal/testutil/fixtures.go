package testutil

import "github.com/xiaowei-guan/pigeon/internal/ir"

// Field builds a field from a type expression such as "List<String?>?".
func Field(name, typ string) ir.Field {
	return ir.Field{Name: name, Type: ir.MustParseTypeRef(typ)}
}

// SearchDocument returns a small document that touches every kind of
// declaration:
//
//   - SearchApi is implemented on the host; search is tagged with
//     SearchReply (128) and SearchRequest (129).
//   - ResultsApi is implemented in Flutter and takes nested containers.
//   - Meta is only reachable through a record field and is never tagged.
//
// Each call returns a fresh copy.
func SearchDocument() *ir.Document {
	return &ir.Document{
		Records: []ir.Record{
			{Name: "SearchRequest", Fields: []ir.Field{
				Field("query", "String?"),
				Field("limit", "int"),
			}},
			{Name: "SearchReply", Fields: []ir.Field{
				Field("result", "String?"),
				Field("error", "String?"),
				Field("state", "State?"),
				Field("meta", "Meta?"),
			}},
			{Name: "Meta", Fields: []ir.Field{
				Field("took", "int"),
				Field("tags", "List<String?>?"),
			}},
		},
		Enums: []ir.Enum{
			{Name: "State", Members: []string{"pending", "success", "error"}},
		},
		Interfaces: []ir.Interface{
			{
				Name: "SearchApi",
				Role: ir.RoleReceiver,
				Methods: []ir.Method{
					{
						Name:       "search",
						Arguments:  []ir.Field{Field("request", "SearchRequest")},
						ReturnType: ir.MustParseTypeRef("SearchReply"),
					},
					{
						Name:           "count",
						Arguments:      []ir.Field{Field("state", "State")},
						ReturnType:     ir.MustParseTypeRef("int"),
						IsAsynchronous: true,
					},
					{
						Name:       "reset",
						ReturnType: ir.Void(),
						Dispatch:   ir.DispatchBackground,
					},
				},
			},
			{
				Name: "ResultsApi",
				Role: ir.RoleCaller,
				Methods: []ir.Method{
					{
						Name:       "onResults",
						Arguments:  []ir.Field{Field("replies", "List<SearchReply?>"), Field("scores", "Map<String, double>?")},
						ReturnType: ir.Void(),
					},
					{
						Name:       "pick",
						Arguments:  []ir.Field{Field("states", "List<State>")},
						ReturnType: ir.MustParseTypeRef("State?"),
					},
				},
			},
		},
	}
}
