package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaowei-guan/pigeon/channel"
)

type prefixNamer string

func (p prefixNamer) Channel(method string) string {
	return channel.Name(string(p), "Api", method)
}

const names = prefixNamer("test")

func testTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Channel: "test.Api.open"},
		{Seq: 2, Channel: "test.Api.write"},
		{Seq: 3, Channel: "test.Api.write"},
		{Seq: 4, Channel: "test.Api.close"},
	}
}

func TestAssertChannelOrder_Correct(t *testing.T) {
	err := assertChannelOrder(testTrace(), Assertion{
		Type:    AssertChannelOrder,
		Methods: []string{"open", "write", "close"},
	}, names)
	assert.NoError(t, err)
}

func TestAssertChannelOrder_Subsequence(t *testing.T) {
	err := assertChannelOrder(testTrace(), Assertion{
		Type:    AssertChannelOrder,
		Methods: []string{"open", "close"},
	}, names)
	assert.NoError(t, err, "other messages may come in between")
}

func TestAssertChannelOrder_WrongOrder(t *testing.T) {
	err := assertChannelOrder(testTrace(), Assertion{
		Type:    AssertChannelOrder,
		Methods: []string{"close", "open"},
	}, names)
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, AssertChannelOrder, assertErr.Type)
	assert.Contains(t, assertErr.Actual, "close (pos 4) should be before open (pos 1)")
}

func TestAssertChannelOrder_Missing(t *testing.T) {
	err := assertChannelOrder(testTrace(), Assertion{
		Type:    AssertChannelOrder,
		Methods: []string{"open", "flush"},
	}, names)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing method: flush")
}

func TestAssertMessageCount(t *testing.T) {
	tests := []struct {
		method string
		count  int
		ok     bool
	}{
		{"write", 2, true},
		{"open", 1, true},
		{"flush", 0, true},
		{"write", 1, false},
	}

	for _, tt := range tests {
		err := assertMessageCount(testTrace(), Assertion{
			Type:   AssertMessageCount,
			Method: tt.method,
			Count:  tt.count,
		}, names)
		if tt.ok {
			assert.NoError(t, err, "%s x%d", tt.method, tt.count)
		} else {
			require.Error(t, err)
			assert.Contains(t, err.Error(), "2 messages")
		}
	}
}

func TestAssertChannelPrefix(t *testing.T) {
	assert.NoError(t, assertChannelPrefix(testTrace(), Assertion{Type: AssertChannelPrefix, Prefix: "test"}))
	assert.NoError(t, assertChannelPrefix(testTrace(), Assertion{Type: AssertChannelPrefix, Prefix: "test.Api"}))

	err := assertChannelPrefix(testTrace(), Assertion{Type: AssertChannelPrefix, Prefix: "tes"})
	require.Error(t, err, "prefix must end on a name boundary")
	assert.Contains(t, err.Error(), "test.Api.open")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertMessageCount,
		Expected: "1 messages on test.Api.write",
		Actual:   "2 messages",
		Trace:    testTrace()[:2],
	}

	assert.Equal(t, "Assertion failed: message_count\n"+
		"  Expected: 1 messages on test.Api.write\n"+
		"  Actual: 2 messages\n"+
		"\nFull trace:\n"+
		"  [1] test.Api.open\n"+
		"  [2] test.Api.write\n", err.Error())
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = testTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertChannelOrder, Methods: []string{"open", "close"}},
		{Type: AssertMessageCount, Method: "close", Count: 2},
		{Type: AssertChannelPrefix, Prefix: "test"},
		{Type: "bogus"},
	}, names)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "message_count")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}
