package backend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
	"github.com/xiaowei-guan/pigeon/internal/testutil"
)

// fakeBackend lists the channel of every method, one per line.
type fakeBackend struct {
	name  string
	table resolve.Table
	err   error
	plan  *Plan
	// extra is resolved through the plan before emitting, when set.
	extra *ir.TypeRef
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Builtins() resolve.Table { return f.table }

func (f *fakeBackend) Generate(plan *Plan, opts Options) ([]File, error) {
	f.plan = plan
	if f.err != nil {
		return nil, f.err
	}
	if f.extra != nil {
		plan.Type(*f.extra)
	}
	w := NewWriter("\t")
	for _, iface := range plan.Interfaces {
		for _, m := range iface.Methods {
			w.Line(m.Channel)
		}
	}
	return []File{{Path: opts.Out, Content: w.Bytes()}}, nil
}

func newFake(name string) *fakeBackend {
	return &fakeBackend{name: name, table: postfixTable()}
}

func TestRegistry_Select(t *testing.T) {
	r := NewRegistry(newFake("dart"), newFake("kotlin"), newFake("go"))
	assert.Equal(t, []string{"dart", "kotlin", "go"}, r.Names())

	all, err := r.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := r.Select([]string{"go", "dart"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "dart", some[0].Name(), "selection keeps registration order")
	assert.Equal(t, "go", some[1].Name())

	_, err = r.Select([]string{"swift"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "swift"`)
	assert.Contains(t, err.Error(), "dart, kotlin, go")
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry(newFake("dart"))
	assert.Panics(t, func() { r.Register(newFake("dart")) })
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(newFake("dart"))
	b, ok := r.Get("dart")
	require.True(t, ok)
	assert.Equal(t, "dart", b.Name())
	_, ok = r.Get("kotlin")
	assert.False(t, ok)
}

func TestGenerate(t *testing.T) {
	f := newFake("fake")
	files, err := Generate(f, testutil.SearchDocument(), PlanOptions{Prefix: "x"}, Options{Out: "out.txt"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "out.txt", files[0].Path)
	assert.Equal(t, "x.SearchApi.search\nx.SearchApi.count\nx.SearchApi.reset\nx.ResultsApi.onResults\nx.ResultsApi.pick\n",
		string(files[0].Content))
}

func TestGenerate_InvalidTable(t *testing.T) {
	f := newFake("broken")
	f.table.Builtins[ir.TypeList] = "List"

	_, err := Generate(f, testutil.SearchDocument(), PlanOptions{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken backend")
	assert.Nil(t, f.plan, "an invalid table never reaches the backend")
}

func TestGenerate_BackendError(t *testing.T) {
	f := newFake("failing")
	f.err = errors.New("boom")

	_, err := Generate(f, testutil.SearchDocument(), PlanOptions{}, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, f.err))
	assert.Equal(t, "failing backend: boom", err.Error())
}
