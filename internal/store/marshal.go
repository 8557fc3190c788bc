package store

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/xiaowei-guan/pigeon/internal/ir"
)

// marshalDocument converts a document to canonical JSON TEXT for storage.
// The stored body hashes to the fingerprint it is keyed by.
func marshalDocument(doc *ir.Document) (string, error) {
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses a stored document body.
func unmarshalDocument(data string) (*ir.Document, error) {
	var doc ir.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}

// errorText flattens an optional error for the error column.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
