// Package resolve maps abstract type references to target-language
// representations.
//
// Resolution has two halves that share one classification:
//
//   - Kind classifies a reference as builtin, record, enum or unknown using
//     only the canonical vocabulary and the Document. It is language
//     independent and drives discriminant assignment and the dynamic codec.
//   - Resolve renders a reference through a backend's Table. Containers are
//     resolved structurally and nullability wraps the final representation.
//
// A reference whose base name is neither builtin nor declared is a
// resolution error; generation must fail rather than emit a guess.
package resolve
