package resolve

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaowei-guan/pigeon/internal/ir"
)

func testDocument() *ir.Document {
	return &ir.Document{
		Records: []ir.Record{
			{Name: "SearchRequest", Fields: []ir.Field{{Name: "query", Type: ir.Nullable(ir.TypeString)}}},
		},
		Enums: []ir.Enum{
			{Name: "State", Members: []string{"pending", "success"}},
		},
	}
}

// dartLike is a table in the style of a language with postfix nullability.
func dartLike() Table {
	return Table{
		Builtins: map[string]string{
			ir.TypeBool:        "bool",
			ir.TypeInt:         "int",
			ir.TypeDouble:      "double",
			ir.TypeString:      "String",
			ir.TypeUint8List:   "Uint8List",
			ir.TypeInt32List:   "Int32List",
			ir.TypeInt64List:   "Int64List",
			ir.TypeFloat64List: "Float64List",
			ir.TypeList:        "List<%s>",
			ir.TypeMap:         "Map<%s, %s>",
			ir.TypeObject:      "Object",
		},
		Void:     "void",
		Nullable: func(repr string) string { return repr + "?" },
	}
}

// goLike renders pointers for nullable scalars and custom types.
func goLike() Table {
	return Table{
		Builtins: map[string]string{
			ir.TypeBool:        "bool",
			ir.TypeInt:         "int64",
			ir.TypeDouble:      "float64",
			ir.TypeString:      "string",
			ir.TypeUint8List:   "[]byte",
			ir.TypeInt32List:   "[]int32",
			ir.TypeInt64List:   "[]int64",
			ir.TypeFloat64List: "[]float64",
			ir.TypeList:        "[]%s",
			ir.TypeMap:         "map[%s]%s",
			ir.TypeObject:      "any",
		},
		Custom: func(name string) string { return "*" + name },
		Nullable: func(repr string) string {
			if strings.HasPrefix(repr, "*") || strings.HasPrefix(repr, "[]") ||
				strings.HasPrefix(repr, "map[") || repr == "any" {
				return repr
			}
			return "*" + repr
		},
	}
}

func TestResolve(t *testing.T) {
	doc := testDocument()
	tests := []struct {
		ref       string
		dart      string
		golang    string
		isBuiltIn bool
	}{
		{"int", "int", "int64", true},
		{"int?", "int?", "*int64", true},
		{"String", "String", "string", true},
		{"List<String?>", "List<String?>", "[]*string", true},
		{"Map<String, List<int>>?", "Map<String, List<int>>?", "map[string][]int64", true},
		{"List", "List<Object?>", "[]any", true},
		{"Map", "Map<Object?, Object?>", "map[any]any", true},
		{"SearchRequest", "SearchRequest", "*SearchRequest", false},
		{"SearchRequest?", "SearchRequest?", "*SearchRequest", false},
		{"State", "State", "*State", false},
		{"List<SearchRequest>", "List<SearchRequest>", "[]*SearchRequest", true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			ref := ir.MustParseTypeRef(tt.ref)

			got, err := Resolve(ref, doc, dartLike())
			require.NoError(t, err)
			assert.Equal(t, tt.dart, got.Representation)
			assert.Equal(t, tt.isBuiltIn, got.IsBuiltIn)

			got, err = Resolve(ref, doc, goLike())
			require.NoError(t, err)
			assert.Equal(t, tt.golang, got.Representation)
			assert.Equal(t, tt.isBuiltIn, got.IsBuiltIn)
		})
	}
}

func TestResolve_Void(t *testing.T) {
	got, err := Resolve(ir.Void(), testDocument(), dartLike())
	require.NoError(t, err)
	assert.Equal(t, ResolvedType{Representation: "void", IsBuiltIn: true}, got)
}

func TestResolve_UnknownType(t *testing.T) {
	doc := testDocument()

	got, err := Resolve(ir.Named("Mystery"), doc, dartLike())
	require.Error(t, err)
	assert.Equal(t, "Mystery", got.Representation)
	assert.False(t, got.IsBuiltIn)

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "Mystery", re.Name)
}

func TestResolve_UnknownTypeArgument(t *testing.T) {
	ref := ir.MustParseTypeRef("Map<String, Mystery?>")

	got, err := Resolve(ref, testDocument(), dartLike())
	var re *Error
	require.True(t, errors.As(err, &re), "got %v", err)
	assert.Equal(t, "Mystery", re.Name)
	assert.Equal(t, "Map<String, Mystery?>", re.Ref)
	assert.Equal(t, "Map<String, Mystery>", got.Representation)
	assert.Contains(t, err.Error(), `"Mystery"`)
}

func TestResolve_IsBuiltInIndependentOfTable(t *testing.T) {
	doc := testDocument()
	refs := []string{"bool", "Object?", "List<State>", "SearchRequest", "State?", "Float64List"}
	for _, s := range refs {
		ref := ir.MustParseTypeRef(s)
		a, errA := Resolve(ref, doc, dartLike())
		b, errB := Resolve(ref, doc, goLike())
		require.NoError(t, errA)
		require.NoError(t, errB)
		assert.Equal(t, a.IsBuiltIn, b.IsBuiltIn, s)
	}
}

func TestResolve_BuiltinShadowsDeclaration(t *testing.T) {
	doc := &ir.Document{Records: []ir.Record{{Name: "String"}}}
	got, err := Resolve(ir.Named("String"), doc, dartLike())
	require.NoError(t, err)
	assert.True(t, got.IsBuiltIn)
}

func TestTable_Validate(t *testing.T) {
	require.NoError(t, dartLike().Validate())
	require.NoError(t, goLike().Validate())

	missing := dartLike()
	delete(missing.Builtins, ir.TypeFloat64List)
	assert.ErrorContains(t, missing.Validate(), "Float64List")

	badTemplate := dartLike()
	badTemplate.Builtins[ir.TypeMap] = "Map<%s>"
	assert.ErrorContains(t, badTemplate.Validate(), "placeholders")

	extra := dartLike()
	extra.Builtins["Set"] = "Set<%s>"
	assert.ErrorContains(t, extra.Validate(), "non-canonical")
}

func TestKindOf(t *testing.T) {
	doc := testDocument()
	assert.Equal(t, KindBuiltin, KindOf(ir.Named("int"), doc))
	assert.Equal(t, KindRecord, KindOf(ir.Named("SearchRequest"), doc))
	assert.Equal(t, KindEnum, KindOf(ir.Nullable("State"), doc))
	assert.Equal(t, KindUnknown, KindOf(ir.Named("Nope"), doc))
	assert.Equal(t, KindVoid, KindOf(ir.Void(), doc))
	assert.Equal(t, KindUnknown, KindOf(ir.Named("SearchRequest"), nil))
	assert.Equal(t, "enum", KindEnum.String())
}

func TestVisit_PreOrder(t *testing.T) {
	ref := ir.MustParseTypeRef("Map<String, List<SearchRequest?>>")

	var seen []string
	Visit(ref, func(r ir.TypeRef) bool {
		seen = append(seen, r.BaseName)
		return true
	})
	assert.Equal(t, []string{"Map", "String", "List", "SearchRequest"}, seen)

	seen = nil
	Visit(ref, func(r ir.TypeRef) bool {
		seen = append(seen, r.BaseName)
		return r.BaseName != "List"
	})
	assert.Equal(t, []string{"Map", "String", "List"}, seen)
}

func TestCheck(t *testing.T) {
	doc := testDocument()
	doc.Interfaces = []ir.Interface{{
		Name: "Api",
		Role: ir.RoleCaller,
		Methods: []ir.Method{{
			Name:       "search",
			Arguments:  []ir.Field{{Name: "request", Type: ir.Named("SearchRequest")}},
			ReturnType: ir.Named("List", ir.Named("Reply")),
		}},
	}}

	err := Check(doc)
	var re *Error
	require.True(t, errors.As(err, &re), "got %v", err)
	assert.Equal(t, "Reply", re.Name)
	assert.Contains(t, err.Error(), "Api.search return")

	doc.Interfaces[0].Methods[0].ReturnType = ir.Void()
	assert.NoError(t, Check(doc))
}
