package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: one interface of an API
// description, programmed receiver behavior, and a sequence of calls made
// through the channel protocol with their expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// API is the directory holding the API description, relative to the
	// scenario file.
	API string `yaml:"api"`

	// Interface names the interface under test.
	Interface string `yaml:"interface"`

	// Prefix overrides the channel name prefix.
	Prefix string `yaml:"prefix,omitempty"`

	// Codec selects the message codec: "standard" (default) or "msgpack".
	Codec string `yaml:"codec,omitempty"`

	// Handlers programs the receiver per method name. Every method of the
	// interface needs an entry unless it is listed in Detached.
	Handlers map[string]HandlerSpec `yaml:"handlers"`

	// Detached lists methods whose channel has no handler.
	Detached []string `yaml:"detached,omitempty"`

	// Calls are made in order by the caller side.
	Calls []CallStep `yaml:"calls"`

	// Assertions validate the recorded trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// HandlerSpec is the programmed behavior of one receiver method. At most
// one of Error and Panic is set; otherwise the handler returns Returns.
type HandlerSpec struct {
	// Returns is the result, typed by the method's return type.
	Returns any `yaml:"returns"`

	// Error makes the handler fail with an application error.
	Error *ErrorSpec `yaml:"error,omitempty"`

	// Panic makes the handler panic with this message.
	Panic string `yaml:"panic,omitempty"`
}

// ErrorSpec is an application error.
type ErrorSpec struct {
	Code    string `yaml:"code"`
	Message string `yaml:"message,omitempty"`
	Details any    `yaml:"details,omitempty"`
}

// CallStep invokes one method from the caller side.
type CallStep struct {
	// Method is the method name.
	Method string `yaml:"method"`

	// Args are the positional arguments, typed by the method signature.
	Args []any `yaml:"args"`

	// Expect specifies the expected outcome. If nil, the call must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected outcome of a call. Exactly one of the fields is
// set; Result may be set to null to expect an absent value.
type Expect struct {
	// Result is matched against the decoded return value. Records and maps
	// match as subsets: only listed entries are compared. A node keeps
	// `result: null` distinct from no result key.
	Result yaml.Node `yaml:"result,omitempty"`

	// Error expects an application error. An empty message is not compared.
	Error *ErrorSpec `yaml:"error,omitempty"`

	// NullError expects a non-nullable violation.
	NullError bool `yaml:"null_error,omitempty"`

	// ChannelError expects a transport failure.
	ChannelError bool `yaml:"channel_error,omitempty"`
}

// HasResult reports whether a result key was given, null included.
func (e *Expect) HasResult() bool {
	return e.Result.Kind != 0
}

// Assertion validates the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "channel_order": methods appear in this order
	// - "message_count": a method's channel carries exactly Count messages
	// - "channel_prefix": every channel starts with Prefix
	Type string `yaml:"type"`

	// Method is the method name (used by message_count).
	Method string `yaml:"method,omitempty"`

	// Methods is the expected order (used by channel_order).
	Methods []string `yaml:"methods,omitempty"`

	// Count is the expected number of messages (used by message_count).
	Count int `yaml:"count,omitempty"`

	// Prefix is the expected channel prefix (used by channel_prefix).
	Prefix string `yaml:"prefix,omitempty"`
}

// Assertion type constants.
const (
	AssertChannelOrder  = "channel_order"
	AssertMessageCount  = "message_count"
	AssertChannelPrefix = "channel_prefix"
)

// Codec names.
const (
	CodecStandard = "standard"
	CodecMsgpack  = "msgpack"
)

// LoadScenario reads and parses a scenario YAML file. The API path is
// resolved against the scenario file's directory.
//
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.API != "" && !filepath.IsAbs(scenario.API) {
		scenario.API = filepath.Join(filepath.Dir(path), scenario.API)
	}
	if _, err := os.Stat(scenario.API); err != nil {
		return nil, fmt.Errorf("invalid scenario: api directory: %w", err)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// Checks against the API description happen when the scenario runs.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.API == "" {
		return fmt.Errorf("api is required")
	}
	if s.Interface == "" {
		return fmt.Errorf("interface is required")
	}
	if len(s.Calls) == 0 {
		return fmt.Errorf("calls list is required and must be non-empty")
	}

	switch s.Codec {
	case "", CodecStandard, CodecMsgpack:
	default:
		return fmt.Errorf("unknown codec %q (expected %s or %s)", s.Codec, CodecStandard, CodecMsgpack)
	}

	for name, h := range s.Handlers {
		if h.Error != nil && h.Panic != "" {
			return fmt.Errorf("handlers.%s: error and panic are exclusive", name)
		}
		if h.Error != nil && h.Error.Code == "" {
			return fmt.Errorf("handlers.%s.error: code is required", name)
		}
	}

	for i, step := range s.Calls {
		if step.Method == "" {
			return fmt.Errorf("calls[%d]: method is required", i)
		}
		if step.Expect != nil {
			if err := validateExpect(step.Expect); err != nil {
				return fmt.Errorf("calls[%d].expect: %w", i, err)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateExpect(e *Expect) error {
	set := 0
	if e.HasResult() {
		set++
	}
	if e.Error != nil {
		set++
		if e.Error.Code == "" {
			return fmt.Errorf("error.code is required")
		}
	}
	if e.NullError {
		set++
	}
	if e.ChannelError {
		set++
	}
	if set > 1 {
		return fmt.Errorf("result, error, null_error and channel_error are exclusive")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertChannelOrder:
		if len(a.Methods) == 0 {
			return fmt.Errorf("assertions[%d]: methods list is required for channel_order", index)
		}
	case AssertMessageCount:
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for message_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for message_count", index)
		}
	case AssertChannelPrefix:
		if a.Prefix == "" {
			return fmt.Errorf("assertions[%d]: prefix is required for channel_prefix", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
