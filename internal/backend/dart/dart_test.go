package dart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaowei-guan/pigeon/internal/backend"
	"github.com/xiaowei-guan/pigeon/internal/testutil"
)

func generate(t *testing.T, opts backend.Options) string {
	t.Helper()
	files, err := backend.Generate(New(), testutil.SearchDocument(), backend.PlanOptions{}, opts)
	require.NoError(t, err)
	require.Len(t, files, 1)
	return string(files[0].Content)
}

func TestBuiltins(t *testing.T) {
	require.NoError(t, New().Builtins().Validate())
}

func TestGenerate_File(t *testing.T) {
	files, err := backend.Generate(New(), testutil.SearchDocument(), backend.PlanOptions{},
		backend.Options{Out: "lib/search.g.dart", CopyrightHeader: []string{"Copyright 2026 Example"}})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "lib/search.g.dart", files[0].Path)

	out := string(files[0].Content)
	assert.Regexp(t, `^// Copyright 2026 Example\n// Autogenerated from Pigeon \(v0\.1\.0\), do not edit directly\.\n`, out)
	assert.Contains(t, out, "import 'package:flutter/services.dart';")
	assert.Contains(t, out, "PlatformException _createConnectionError(String channelName) {")
}

func TestGenerate_Types(t *testing.T) {
	out := generate(t, backend.Options{})

	for _, want := range []string{
		"enum State {\n  pending,\n  success,\n  error,\n}",
		"class SearchRequest {\n  SearchRequest({\n    this.query,\n    required this.limit,\n  });",
		"  List<String?>? tags;\n",
		"      'state': state?.index,\n",
		"      'meta': meta?.encode(),\n",
		"      took: result['took']! as int,\n",
		"      state: result['state'] != null ? State.values[result['state']! as int] : null,\n",
		"      meta: result['meta'] != null ? Meta.decode(result['meta']!) : null,\n",
		"      tags: (result['tags'] as List<Object?>?)?.cast<String?>(),\n",
	} {
		assert.Contains(t, out, want)
	}
}

func TestGenerate_Codec(t *testing.T) {
	out := generate(t, backend.Options{})

	assert.Contains(t, out, "class _SearchApiCodec extends StandardMessageCodec {")
	assert.Contains(t, out, "    if (value is SearchReply) {\n      buffer.putUint8(128);\n      writeValue(buffer, value.encode());\n    } else if (value is SearchRequest) {\n      buffer.putUint8(129);")
	assert.Contains(t, out, "      case 129:\n        return SearchRequest.decode(readValue(buffer)!);")
	assert.NotContains(t, out, "value is Meta", "Meta is only reachable through a record field")
}

// SearchApi is implemented on the host, so Dart calls it.
func TestGenerate_Caller(t *testing.T) {
	out := generate(t, backend.Options{})

	for _, want := range []string{
		"class SearchApi {",
		"  static const MessageCodec<Object?> pigeonChannelCodec = _SearchApiCodec();",
		"  Future<SearchReply> search(SearchRequest request) async {",
		"    const String pigeonVar_channelName = 'dev.flutter.pigeon.SearchApi.search';",
		"await pigeonVar_channel.send(<Object?>[request]) as Map<Object?, Object?>?;",
		"      return pigeonVar_replyMap['result']! as SearchReply;",
		"  Future<int> count(State state) async {",
		"await pigeonVar_channel.send(<Object?>[state.index]) as Map<Object?, Object?>?;",
		"  Future<void> reset() async {",
		"await pigeonVar_channel.send(null) as Map<Object?, Object?>?;",
		"message: 'Host platform returned null value for non-null return value.',",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "abstract class SearchApi")
}

// ResultsApi is implemented in Dart.
func TestGenerate_Receiver(t *testing.T) {
	out := generate(t, backend.Options{})

	for _, want := range []string{
		"abstract class ResultsApi {",
		"  void onResults(List<SearchReply?> replies, Map<String, double>? scores);",
		"  State? pick(List<State> states);",
		"  static void setUp(ResultsApi? api, {BinaryMessenger? binaryMessenger}) {",
		"final List<SearchReply?>? arg_replies = (_argAt(args, 0) as List<Object?>?)?.cast<SearchReply?>();",
		"message: 'Argument for dev.flutter.pigeon.ResultsApi.onResults was null, expected non-null List<SearchReply?>.',",
		"api.onResults(arg_replies!, arg_scores);",
		"return _wrapResponse(empty: true);",
		"final List<State>? arg_states = (_argAt(args, 0) as List<Object?>?)?.map<State>((e) => State.values[e! as int]).toList();",
		"final State? output = api.pick(arg_states!);",
		"return _wrapResponse(result: output?.index);",
		"return _wrapResponse(error: PlatformException(code: 'Error', message: e.toString()));",
	} {
		assert.Contains(t, out, want)
	}
}

func TestGenerate_ReceiverDecodesInsideTry(t *testing.T) {
	out := generate(t, backend.Options{})

	for _, tc := range []struct {
		channel string
		decode  string
	}{
		{"dev.flutter.pigeon.ResultsApi.onResults", "final List<SearchReply?>? arg_replies = "},
		{"dev.flutter.pigeon.ResultsApi.pick", "final List<State>? arg_states = "},
	} {
		t.Run(tc.channel, func(t *testing.T) {
			start := strings.Index(out, "'"+tc.channel+"',")
			require.GreaterOrEqual(t, start, 0)
			handler := out[start:]

			open := strings.Index(handler, "try {")
			decode := strings.Index(handler, tc.decode)
			catch := strings.Index(handler, "} catch (e) {")
			require.GreaterOrEqual(t, open, 0)
			require.GreaterOrEqual(t, decode, 0)
			require.GreaterOrEqual(t, catch, 0)
			assert.Less(t, open, decode, "arguments decode inside the try block")
			assert.Less(t, decode, catch)
			assert.Contains(t, handler[catch:], "return _wrapResponse(error: PlatformException(code: 'Error', message: e.toString()));")
		})
	}
}
