// Package ir provides the intermediate representation of an API surface
// for pigeon.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the IR the foundational
// layer every backend observes identically.
//
// Key design constraints:
//   - A Document is immutable once produced by a front end
//   - Declaration order is significant everywhere (fields, enum members,
//     methods, arguments) because it is part of the wire contract
//   - Derived structures (resolved types, discriminants) are recomputed per
//     generation run and never stored on the IR
//   - All JSON tags use snake_case
package ir
