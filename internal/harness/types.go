package harness

// TraceEvent is one channel exchange in decoded form. Request and Reply
// hold the wire values as plain data (see codec.ToGo).
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Channel string `json:"channel"`
	Request any    `json:"request"`
	Reply   any    `json:"reply"`
	// Error is the transport failure seen by the sender, if any.
	Error string `json:"error,omitempty"`
}

// CallOutcome is what the caller side observed for one call.
type CallOutcome struct {
	Method string `json:"method"`
	// Result is the decoded return value as plain data.
	Result any `json:"result,omitempty"`
	// Error is the error text, empty on success.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the name of the scenario that produced the result.
	Scenario string `json:"scenario"`

	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every exchange in send order.
	Trace []TraceEvent `json:"trace"`

	// Calls holds one outcome per scenario call.
	Calls []CallOutcome `json:"calls"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RunID is the ledger run the scenario was recorded under, if any.
	RunID string `json:"run_id,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Calls:  []CallOutcome{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
