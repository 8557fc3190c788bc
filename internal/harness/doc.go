// Package harness provides conformance testing for the channel protocol.
//
// A scenario binds one interface of an API description, programs the
// receiver side from YAML, and makes calls from the caller side through a
// LocalMessenger. Every exchange is recorded so the trace can be checked by
// assertions and compared against golden files.
//
// # Scenario Format
//
//	name: search_success
//	description: "What this scenario validates"
//	api: ../api            # directory of .cue/.json files
//	interface: SearchApi
//	prefix: dev.flutter.pigeon   # optional
//	codec: standard              # or msgpack
//	handlers:
//	  search:
//	    returns: {result: ho}
//	  count:
//	    error: {code: not-found, message: "nothing"}
//	  reset:
//	    panic: boom
//	detached: [other]
//	calls:
//	  - method: search
//	    args: [{query: hi, limit: 3}]
//	    expect:
//	      result: {result: ho}
//	assertions:
//	  - type: channel_order
//	    methods: [search, count]
//
// Records are written as mappings, enums as member names. An expectation
// is one of result, error, null_error or channel_error; a call without
// one must succeed.
//
// # Assertion Types
//
//   - channel_order: methods are first called in the given order
//   - message_count: a method's channel carries exactly N messages
//   - channel_prefix: every channel is under the given prefix
//
// # Deterministic Testing
//
// Calls are made one at a time, so exchange sequence numbers and the
// decoded trace are identical across runs. Golden files hold the trace as
// canonical JSON.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/search_success.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
