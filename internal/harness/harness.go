package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/xiaowei-guan/pigeon/channel"
	"github.com/xiaowei-guan/pigeon/codec"
	"github.com/xiaowei-guan/pigeon/internal/frontend"
	"github.com/xiaowei-guan/pigeon/internal/interop"
	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/store"
)

// Option configures Run.
type Option func(*Harness)

// WithStore records the run and every exchange in the ledger.
func WithStore(st *store.Store) Option {
	return func(h *Harness) {
		h.store = st
	}
}

// WithLogger sets the logger used by the harness and its messenger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Harness executes one scenario against the dynamic binding of its
// interface, connected to itself through a LocalMessenger.
type Harness struct {
	scenario *Scenario
	doc      *ir.Document
	binding  *interop.Binding
	store    *store.Store
	logger   *slog.Logger

	mu        sync.Mutex
	exchanges []channel.Exchange
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load and validate the API description
//  2. Bind the interface and program the receiver from the handlers
//  3. Make every call in order, checking expectations
//  4. Evaluate assertions over the recorded trace
//
// The returned error covers problems with the scenario itself; failed
// expectations are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{scenario: scenario, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.prepare(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	impl, err := h.implementation()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	var run store.Run
	if h.store != nil {
		run, err = h.store.BeginRun(ctx, h.doc, store.Run{
			Kind:   store.RunTest,
			Label:  scenario.Name,
			Prefix: h.prefix(),
		})
		if err != nil {
			return nil, err
		}
	}

	result := NewResult()
	result.Scenario = scenario.Name
	result.RunID = run.ID
	if err := h.execute(ctx, impl, result); err != nil {
		return nil, err
	}

	result.Trace = h.trace()
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h.binding) {
		result.AddError(msg)
	}

	if h.store != nil {
		if err := h.record(ctx, run.ID, result); err != nil {
			return nil, err
		}
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"exchanges", len(result.Trace),
	)
	return result, nil
}

func (h *Harness) prefix() string {
	if h.scenario.Prefix != "" {
		return h.scenario.Prefix
	}
	return channel.DefaultPrefix
}

// prepare loads the API description and binds the interface under test.
func (h *Harness) prepare() error {
	loaded, err := frontend.Load(h.scenario.API)
	if err != nil {
		return err
	}
	if errs := frontend.Validate(loaded.Document); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("invalid API description:\n  %s", strings.Join(msgs, "\n  "))
	}
	h.doc = loaded.Document

	factory := interop.StandardCodec
	if h.scenario.Codec == CodecMsgpack {
		factory = interop.MsgpackCodec
	}
	h.binding, err = interop.Bind(h.doc, h.scenario.Interface,
		interop.WithPrefix(h.prefix()),
		interop.WithCodec(factory),
	)
	if err != nil {
		return err
	}

	iface := h.binding.Interface()
	for _, name := range sortedKeys(h.scenario.Handlers) {
		if _, ok := iface.Method(name); !ok {
			return fmt.Errorf("handlers.%s: %s has no such method", name, iface.Name)
		}
	}
	for _, name := range h.scenario.Detached {
		if _, ok := iface.Method(name); !ok {
			return fmt.Errorf("detached: %s has no method %q", iface.Name, name)
		}
	}
	for i, step := range h.scenario.Calls {
		if _, ok := iface.Method(step.Method); !ok {
			return fmt.Errorf("calls[%d]: %s has no method %q", i, iface.Name, step.Method)
		}
	}
	return nil
}

// implementation builds receiver logic from the handler specs. Values are
// converted up front so a bad scenario fails before any message is sent.
func (h *Harness) implementation() (*interop.Implementation, error) {
	impl := &interop.Implementation{
		Sync:  make(map[string]interop.Func),
		Async: make(map[string]interop.AsyncFunc),
	}

	for _, def := range h.binding.Interface().Methods {
		spec, ok := h.scenario.Handlers[def.Name]
		if !ok && !slices.Contains(h.scenario.Detached, def.Name) {
			return nil, fmt.Errorf("handlers.%s: missing (list the method under detached to leave it unhandled)", def.Name)
		}

		fn, err := h.handler(def, spec)
		if err != nil {
			return nil, fmt.Errorf("handlers.%s: %w", def.Name, err)
		}
		if def.IsAsynchronous {
			impl.Async[def.Name] = func(args []interop.Value, complete func(interop.Value, error)) {
				if spec.Panic != "" {
					panic(spec.Panic)
				}
				go complete(fn(args))
			}
		} else {
			impl.Sync[def.Name] = fn
		}
	}
	return impl, nil
}

func (h *Harness) handler(def ir.Method, spec HandlerSpec) (interop.Func, error) {
	if spec.Panic != "" {
		return func([]interop.Value) (interop.Value, error) {
			panic(spec.Panic)
		}, nil
	}

	if spec.Error != nil {
		details, err := codec.FromGo(spec.Error.Details)
		if err != nil {
			return nil, fmt.Errorf("error.details: %w", err)
		}
		appErr := &channel.ApplicationError{
			Code:    spec.Error.Code,
			Message: spec.Error.Message,
			Details: details,
		}
		return func([]interop.Value) (interop.Value, error) {
			return nil, appErr
		}, nil
	}

	var result interop.Value
	if !def.ReturnType.IsVoid {
		v, err := fromYAML(h.doc, def.ReturnType, spec.Returns)
		if err != nil {
			return nil, fmt.Errorf("returns: %w", err)
		}
		result = v
	}
	return func([]interop.Value) (interop.Value, error) {
		return result, nil
	}, nil
}

// execute runs the calls against a fresh messenger.
func (h *Harness) execute(ctx context.Context, impl *interop.Implementation, result *Result) error {
	m := channel.NewLocalMessenger(
		channel.WithLogger(h.logger),
		channel.WithObserver(func(ex channel.Exchange) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.exchanges = append(h.exchanges, ex)
		}),
	)
	if err := h.binding.SetUp(m, impl); err != nil {
		return err
	}
	for _, name := range h.scenario.Detached {
		m.SetHandler(h.binding.Channel(name), nil, nil)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := m.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Warn("messenger loop failed", "error", err)
		}
	}()
	defer func() {
		m.Close()
		cancel()
		<-loopDone
	}()

	for i, step := range h.scenario.Calls {
		out, err := h.call(ctx, m, step)
		if err != nil {
			return fmt.Errorf("calls[%d]: %w", i, err)
		}
		result.Calls = append(result.Calls, out.CallOutcome)
		if msg := h.check(step, out); msg != "" {
			result.AddError(fmt.Sprintf("calls[%d] %s: %s", i, step.Method, msg))
		}
	}
	return nil
}

type outcome struct {
	CallOutcome
	err error
}

func (h *Harness) call(ctx context.Context, m channel.Messenger, step CallStep) (outcome, error) {
	def, _ := h.binding.Interface().Method(step.Method)
	if len(step.Args) != len(def.Arguments) {
		return outcome{}, fmt.Errorf("%s takes %d arguments, got %d", step.Method, len(def.Arguments), len(step.Args))
	}

	args := make([]interop.Value, len(step.Args))
	for i, raw := range step.Args {
		v, err := fromYAML(h.doc, def.Arguments[i].Type, raw)
		if err != nil {
			return outcome{}, fmt.Errorf("args[%d]: %w", i, err)
		}
		args[i] = v
	}

	h.logger.Debug("calling", "channel", h.binding.Channel(step.Method), "args", len(args))
	value, err := h.binding.Call(ctx, m, step.Method, args...)
	out := outcome{CallOutcome: CallOutcome{Method: step.Method}, err: err}
	if err != nil {
		out.Error = err.Error()
	} else {
		out.Result = toPlain(h.doc, value)
	}
	return out, nil
}

// check compares a call outcome with its expectation and returns a failure
// message, or "" if it holds.
func (h *Harness) check(step CallStep, out outcome) string {
	exp := step.Expect
	if exp == nil || exp.HasResult() {
		if out.err != nil {
			return fmt.Sprintf("unexpected error: %v", out.err)
		}
		if exp == nil {
			return ""
		}
		var raw any
		if err := exp.Result.Decode(&raw); err != nil {
			return fmt.Sprintf("expect.result: %v", err)
		}
		def, _ := h.binding.Interface().Method(step.Method)
		if def.ReturnType.IsVoid {
			if raw != nil {
				return "expect.result: void method returns no value"
			}
			return ""
		}
		want, err := fromYAML(h.doc, def.ReturnType, raw)
		if err != nil {
			return fmt.Sprintf("expect.result: %v", err)
		}
		if err := match("result", toPlain(h.doc, want), out.Result); err != nil {
			return err.Error()
		}
		return ""
	}

	switch {
	case exp.Error != nil:
		ae, ok := channel.AsApplicationError(out.err)
		if !ok {
			return fmt.Sprintf("expected application error %s, got %v", exp.Error.Code, describe(out.err))
		}
		if ae.Code != exp.Error.Code {
			return fmt.Sprintf("expected error code %q, got %q", exp.Error.Code, ae.Code)
		}
		if exp.Error.Message != "" && ae.Message != exp.Error.Message {
			return fmt.Sprintf("expected error message %q, got %q", exp.Error.Message, ae.Message)
		}
	case exp.NullError:
		if !channel.IsNullError(out.err) {
			return fmt.Sprintf("expected null error, got %v", describe(out.err))
		}
	case exp.ChannelError:
		if !channel.IsChannelError(out.err) {
			return fmt.Sprintf("expected channel error, got %v", describe(out.err))
		}
	}
	return ""
}

func describe(err error) string {
	if err == nil {
		return "success"
	}
	return err.Error()
}

// trace decodes the recorded exchanges in send order.
func (h *Harness) trace() []TraceEvent {
	h.mu.Lock()
	exchanges := slices.Clone(h.exchanges)
	h.mu.Unlock()
	sort.Slice(exchanges, func(i, j int) bool { return exchanges[i].Seq < exchanges[j].Seq })

	c := h.binding.Codec()
	events := make([]TraceEvent, len(exchanges))
	for i, ex := range exchanges {
		events[i] = TraceEvent{
			Seq:     ex.Seq,
			Channel: ex.Channel,
			Request: decodeMessage(c, ex.Request),
			Reply:   decodeMessage(c, ex.Reply),
		}
		if ex.Err != nil {
			events[i].Error = ex.Err.Error()
		}
	}
	return events
}

func decodeMessage(c codec.MessageCodec, data []byte) any {
	if len(data) == 0 {
		return nil
	}
	v, err := c.DecodeMessage(data)
	if err != nil {
		return fmt.Sprintf("undecodable: %v", err)
	}
	return codec.ToGo(v)
}

// record writes the exchanges to the ledger and closes the run.
func (h *Harness) record(ctx context.Context, runID string, result *Result) error {
	h.mu.Lock()
	exchanges := slices.Clone(h.exchanges)
	h.mu.Unlock()

	for _, ex := range exchanges {
		msg := store.Message{
			RunID:   runID,
			Seq:     ex.Seq,
			Channel: ex.Channel,
			Request: ex.Request,
			Reply:   ex.Reply,
		}
		if ex.Err != nil {
			msg.Error = ex.Err.Error()
		}
		if err := h.store.WriteMessage(ctx, msg); err != nil {
			return err
		}
	}

	var runErr error
	if !result.Pass {
		runErr = errors.New(strings.Join(result.Errors, "; "))
	}
	return h.store.FinishRun(ctx, runID, runErr)
}
