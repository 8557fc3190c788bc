// Package codec defines the values that travel over pigeon channels and the
// generic message codecs that serialize them.
//
// The value model is a sealed set: Null, Bool, Int, Float, String, Bytes,
// Int32List, Int64List, Float64List, List, Map and Custom. Map keeps entry
// order because record encodings are ordered field-name mappings.
//
// Custom wraps a value tagged with a one-byte discriminant (128..255). Only
// top-level argument and return values that resolve to records are tagged;
// records nested in record fields travel as plain maps.
//
// Standard implements the Flutter standard message codec layout bit for bit.
// Msgpack is an alternative codec for peers that speak MessagePack.
package codec
