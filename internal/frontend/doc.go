// Package frontend turns API descriptions into an ir.Document.
//
// Two input forms are accepted:
//
//   - CUE files, loaded as one package through the CUE SDK. Top-level
//     "record", "enum", "host" and "flutter" structs declare the API
//     ("receiver" and "caller" are accepted as aliases for the last two).
//   - JSON files ending in ".pigeon.json", holding the ir.Document form.
//
// A CUE description looks like:
//
//	record: SearchRequest: {
//		query: "String?"
//		limit: "int"
//	}
//	enum: State: ["pending", "success", "error"]
//	host: SearchApi: {
//		search: {
//			args: [{request: "SearchRequest"}]
//			returns: "SearchReply"
//		}
//		count: {
//			args: [{state: "State"}]
//			returns: "int"
//			async: true
//		}
//		reset: background: true
//	}
//
// Type strings use the ir type-expression syntax. Declaration order is
// taken from the source and is significant: record field order is the
// wire order and method order drives discriminant assignment.
//
// Validate checks a compiled document and reports every problem with a
// stable E2xx code.
package frontend
