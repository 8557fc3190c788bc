package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/testutil"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, Validate(testutil.SearchDocument()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc *ir.Document)
		code   string
		field  string
	}{
		{
			name:   "duplicate declaration",
			mutate: func(doc *ir.Document) { doc.Enums = append(doc.Enums, ir.Enum{Name: "Meta", Members: []string{"a"}}) },
			code:   ErrDuplicateDeclaration,
			field:  "enum Meta",
		},
		{
			name: "duplicate field",
			mutate: func(doc *ir.Document) {
				doc.Records[0].Fields = append(doc.Records[0].Fields, testutil.Field("query", "int"))
			},
			code:  ErrDuplicateField,
			field: "SearchRequest.query",
		},
		{
			name:   "duplicate member",
			mutate: func(doc *ir.Document) { doc.Enums[0].Members = append(doc.Enums[0].Members, "pending") },
			code:   ErrDuplicateMember,
			field:  "State.pending",
		},
		{
			name:   "empty enum",
			mutate: func(doc *ir.Document) { doc.Enums[0].Members = nil },
			code:   ErrEmptyEnum,
			field:  "State",
		},
		{
			name: "duplicate method",
			mutate: func(doc *ir.Document) {
				doc.Interfaces[1].Methods = append(doc.Interfaces[1].Methods, ir.Method{Name: "pick", ReturnType: ir.Void()})
			},
			code:  ErrDuplicateMethod,
			field: "ResultsApi.pick",
		},
		{
			name: "duplicate argument",
			mutate: func(doc *ir.Document) {
				m := &doc.Interfaces[0].Methods[0]
				m.Arguments = append(m.Arguments, testutil.Field("request", "int"))
			},
			code:  ErrDuplicateArgument,
			field: "SearchApi.search(request)",
		},
		{
			name:   "unknown type",
			mutate: func(doc *ir.Document) { doc.Records[2].Fields[1] = testutil.Field("tags", "List<Tag>") },
			code:   ErrUnknownType,
			field:  "Meta.tags",
		},
		{
			name:   "too many type arguments",
			mutate: func(doc *ir.Document) { doc.Records[2].Fields[1] = testutil.Field("tags", "List<String, int>") },
			code:   ErrTypeArity,
			field:  "Meta.tags",
		},
		{
			name:   "arguments on a scalar",
			mutate: func(doc *ir.Document) { doc.Records[2].Fields[0] = testutil.Field("took", "int<String>") },
			code:   ErrTypeArity,
			field:  "Meta.took",
		},
		{
			name:   "void argument",
			mutate: func(doc *ir.Document) { doc.Interfaces[0].Methods[0].Arguments[0].Type = ir.Void() },
			code:   ErrMisplacedVoid,
			field:  "SearchApi.search(request)",
		},
		{
			name:   "void type argument",
			mutate: func(doc *ir.Document) { doc.Interfaces[0].Methods[0].ReturnType = ir.MustParseTypeRef("List<void>") },
			code:   ErrMisplacedVoid,
			field:  "SearchApi.search return",
		},
		{
			name:   "invalid name",
			mutate: func(doc *ir.Document) { doc.Records[0].Fields[0].Name = "query-string" },
			code:   ErrInvalidName,
			field:  "SearchRequest.query-string",
		},
		{
			name: "builtin shadowed",
			mutate: func(doc *ir.Document) {
				doc.Records = append(doc.Records, ir.Record{Name: "String"})
			},
			code:  ErrBuiltinShadowed,
			field: "record String",
		},
		{
			name:   "invalid role",
			mutate: func(doc *ir.Document) { doc.Interfaces[0].Role = 0 },
			code:   ErrInvalidRole,
			field:  "SearchApi",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.SearchDocument()
			tt.mutate(doc)

			errs := Validate(doc)
			require.Len(t, errs, 1, "%v", errs)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidate_TooManyRecords(t *testing.T) {
	doc := &ir.Document{}
	var args []ir.Field
	for i := range 129 {
		name := "R" + string(rune('a'+i/26)) + string(rune('a'+i%26))
		doc.Records = append(doc.Records, ir.Record{Name: name})
		args = append(args, testutil.Field("a"+name, name))
	}
	doc.Interfaces = []ir.Interface{{
		Name:    "Wide",
		Role:    ir.RoleReceiver,
		Methods: []ir.Method{{Name: "take", Arguments: args, ReturnType: ir.Void()}},
	}}

	errs := Validate(doc)
	assert.Equal(t, []string{ErrTooManyRecords}, codes(errs))
	assert.Contains(t, errs[0].Message, "more than 128 record types")

	doc.Interfaces[0].Methods[0].Arguments = args[:128]
	assert.Empty(t, Validate(doc))
}

func TestValidate_CollectsAll(t *testing.T) {
	doc := testutil.SearchDocument()
	doc.Enums[0].Members = nil
	doc.Records[0].Fields[1] = testutil.Field("limit", "Missing")
	doc.Interfaces[1].Methods[0].Name = "on results"

	assert.Equal(t, []string{ErrUnknownType, ErrEmptyEnum, ErrInvalidName}, codes(Validate(doc)))
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "Meta.tags", Message: "bad", Code: ErrTypeArity}
	assert.Equal(t, "[E208] Meta.tags: bad", err.Error())
}
