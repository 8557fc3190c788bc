package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMsgpack_RoundTrip(t *testing.T) {
	c := NewMsgpack()
	values := []Value{
		Bool(true),
		Int(-42),
		Int(1 << 40),
		Float(2.5),
		String("hello"),
		Bytes{0, 1, 2},
		List{String("a"), Null{}, Int(3)},
		Map{
			E("query", String("hi")),
			{Key: Int(7), Value: Bool(false)},
		},
		Custom{Code: 129, Payload: Map{E("result", String("ho"))}},
		List{Custom{Code: 255, Payload: List{}}},
	}

	for _, v := range values {
		t.Run(TypeName(v), func(t *testing.T) {
			data, err := c.EncodeMessage(v)
			require.NoError(t, err)

			back, err := c.DecodeMessage(data)
			require.NoError(t, err)
			assert.Equal(t, v, back)
		})
	}
}

func TestMsgpack_CustomAsExtension(t *testing.T) {
	c := NewMsgpack()

	data, err := c.EncodeMessage(Custom{Code: 129, Payload: Map{}})
	require.NoError(t, err)
	// fixext1, ext id 1, empty fixmap
	assert.Equal(t, []byte{0xd4, 0x01, 0x80}, data)

	data, err = c.EncodeMessage(Custom{Code: 128, Payload: Null{}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xd4, 0x00, 0xc0}, data)
}

func TestMsgpack_TypedListsDecodeAsList(t *testing.T) {
	c := NewMsgpack()

	data, err := c.EncodeMessage(Int32List{1, 2})
	require.NoError(t, err)

	back, err := c.DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, List{Int(1), Int(2)}, back)
}

func TestMsgpack_NullMessage(t *testing.T) {
	c := NewMsgpack()

	data, err := c.EncodeMessage(Null{})
	require.NoError(t, err)
	assert.Nil(t, data)

	v, err := c.DecodeMessage(nil)
	require.NoError(t, err)
	assert.Equal(t, Null{}, v)
}

func TestMsgpack_DecodeErrors(t *testing.T) {
	c := NewMsgpack(128)

	_, err := c.DecodeMessage([]byte{0xc0, 0xc0})
	assert.True(t, errors.Is(err, ErrCorrupted), "trailing bytes: %v", err)

	_, err = c.DecodeMessage([]byte{0xd4, 0xff, 0xc0})
	assert.True(t, errors.Is(err, ErrCorrupted), "reserved ext: %v", err)

	_, err = c.DecodeMessage([]byte{0x92, 0x01})
	assert.True(t, errors.Is(err, ErrCorrupted), "truncated array: %v", err)

	_, err = c.DecodeMessage([]byte{0xd4, 0x05, 0xc0})
	var unknown *UnknownCodeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint8(133), unknown.Code)
}
