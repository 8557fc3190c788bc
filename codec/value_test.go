package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_Get(t *testing.T) {
	m := Map{E("code", String("Error")), {Key: Int(1), Value: Bool(true)}}

	v, ok := m.Get("code")
	require.True(t, ok)
	assert.Equal(t, String("Error"), v)

	_, ok = m.Get("message")
	assert.False(t, ok)
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(Null{}))
	assert.False(t, IsNull(String("")))
	assert.False(t, IsNull(List{}))
}

func TestFromGo(t *testing.T) {
	var tree any
	require.NoError(t, json.Unmarshal([]byte(`{"b": [1, 2.5, null], "a": "x"}`), &tree))

	v, err := FromGo(tree)
	require.NoError(t, err)
	assert.Equal(t, Map{
		E("a", String("x")),
		E("b", List{Float(1), Float(2.5), Null{}}),
	}, v)

	num, err := FromGo(json.Number("12"))
	require.NoError(t, err)
	assert.Equal(t, Int(12), num)

	_, err = FromGo(struct{}{})
	assert.Error(t, err)

	_, err = FromGo(uint64(1 << 63))
	assert.Error(t, err)
}

func TestToGo(t *testing.T) {
	v := Map{
		E("result", Custom{Code: 128, Payload: Map{E("result", String("ho"))}}),
		E("count", Int(3)),
	}
	assert.Equal(t, map[string]any{
		"result": map[string]any{
			"code":  int64(128),
			"value": map[string]any{"result": "ho"},
		},
		"count": int64(3),
	}, ToGo(v))

	pairs := ToGo(Map{{Key: Int(1), Value: Null{}}})
	assert.Equal(t, []any{[]any{int64(1), nil}}, pairs)
}
