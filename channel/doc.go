// Package channel implements the message channel protocol shared by every
// generated binding.
//
// A method is addressed by a single channel name,
// "<prefix>.<Interface>.<Method>", used verbatim by both ends. A request is
// the codec list of positional arguments (no payload when the method takes
// none). A reply is a single-key mapping: {"result": v} on success or
// {"error": {"code", "message", "details"}} on failure.
//
// Every invocation is SENT and then either REPLIED or DROPPED. Callers see
// exactly one of four outcomes:
//   - the result value
//   - *ApplicationError, for an "error" reply envelope
//   - *NullError, when a non-nullable value arrived absent
//   - *ChannelError, when no reply envelope arrived at all
//
// Receivers never propagate failures: Serve and ServeAsync turn every
// failure of user logic, including panics, into exactly one error envelope.
//
// LocalMessenger is an in-process Messenger. Handlers registered without a
// task queue run on one serial FIFO worker, handlers registered on a
// background queue run on a bounded worker pool.
package channel
