package frontend

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/xiaowei-guan/pigeon/internal/ir"
)

// JSONSuffix marks JSON API descriptions in an input directory.
const JSONSuffix = ".pigeon.json"

// DecodeJSON reads the JSON form of a Document. Unknown keys are errors.
func DecodeJSON(data []byte) (*ir.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc ir.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// EncodeJSON writes doc in the form DecodeJSON reads, indented for review.
func EncodeJSON(doc *ir.Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Merge appends the declarations of docs in order.
func Merge(docs ...*ir.Document) *ir.Document {
	out := &ir.Document{}
	for _, d := range docs {
		if d == nil {
			continue
		}
		out.Records = append(out.Records, d.Records...)
		out.Enums = append(out.Enums, d.Enums...)
		out.Interfaces = append(out.Interfaces, d.Interfaces...)
	}
	return out
}
