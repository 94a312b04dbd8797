// Package chat runs the conversational loop against the response service:
// building requests, dispatching service-issued tool calls, and parsing
// whichever reply shape comes back into text plus an optional diagram.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/cexll/diagramchat-go/pkg/event"
	"github.com/cexll/diagramchat-go/pkg/responses"
	"github.com/cexll/diagramchat-go/pkg/session"
	"github.com/cexll/diagramchat-go/pkg/tool"
)

// ErrMissingAnchor is returned when the service requests tool calls but its
// response carries no identifier to anchor the continuation to. Continuing
// without one would silently fork the conversation, so the exchange aborts.
var ErrMissingAnchor = errors.New("chat: response requested tool calls without a continuation anchor")

// Engine drives chat exchanges. It is safe for concurrent use; all mutable
// state lives per-call.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New validates the configuration and builds an engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: cfg.Logger}, nil
}

// Chat runs one exchange to completion: an initial request followed by at
// most MaxToolRounds tool-output continuations. The final response is parsed
// regardless of which branch ended the loop.
func (e *Engine) Chat(ctx context.Context, messages []Message) (*Result, error) {
	if len(messages) == 0 {
		return nil, errors.New("chat: no messages")
	}

	sessionID := e.sessionID()
	events := []event.Event{event.NewEvent(event.EventProgress, sessionID, event.ProgressData{
		Stage:   "request",
		Message: "sending initial request",
	})}
	e.recordInput(messages)

	resp, err := e.cfg.Client.CreateResponse(ctx, e.initialRequest(messages))
	if err != nil {
		return nil, fmt.Errorf("chat: initial request: %w", err)
	}

	var executed []ToolCall
	rounds := 0
	for rounds < e.cfg.MaxToolRounds {
		calls := detectToolCalls(resp)
		if !e.dispatchable(calls) {
			break
		}
		anchor := resp.Anchor()
		if anchor == "" {
			e.logger.Warn("tool calls without continuation anchor", "calls", len(calls))
			return nil, ErrMissingAnchor
		}
		rounds++
		e.logger.Debug("dispatching tool round",
			"round", rounds, "calls", len(calls), "anchor", anchor)

		outputs, records := e.runToolRound(ctx, calls, rounds, sessionID, &events)
		executed = append(executed, records...)

		resp, err = e.cfg.Client.CreateResponse(ctx, e.continuationRequest(anchor, outputs))
		if err != nil {
			return nil, fmt.Errorf("chat: continuation round %d: %w", rounds, err)
		}
	}

	stopReason := StopComplete
	if rounds == e.cfg.MaxToolRounds && e.dispatchable(detectToolCalls(resp)) {
		stopReason = StopMaxToolRounds
		e.logger.Warn("tool round budget exhausted", "rounds", rounds)
	}

	res := parseResponse(resp, e.cfg.SchemaFields)
	res.StopReason = stopReason
	res.ToolCalls = executed
	events = append(events, event.NewEvent(event.EventCompletion, sessionID, event.CompletionData{
		Text:              res.Text,
		DiagramDefinition: res.DiagramDefinition,
		StopReason:        stopReason,
		ToolRounds:        rounds,
	}))
	res.Events = events
	e.recordResult(res, resp.Anchor())
	return res, nil
}

// dispatchable reports whether at least one detected call has a registered
// handler. A response full of unknown tool names ends the loop instead of
// spinning the budget on no-op rounds.
func (e *Engine) dispatchable(calls []ToolCallRecord) bool {
	if len(calls) == 0 || e.cfg.Tools.Len() == 0 {
		return false
	}
	for _, c := range calls {
		if e.cfg.Tools.Has(c.Name) {
			return true
		}
	}
	return false
}

// runToolRound executes every call of one round concurrently and returns the
// continuation items and execution records in the order the service issued
// the calls.
func (e *Engine) runToolRound(ctx context.Context, calls []ToolCallRecord, round int, sessionID string, events *[]event.Event) ([]responses.InputItem, []ToolCall) {
	for _, call := range calls {
		*events = append(*events, event.NewEvent(event.EventToolCall, sessionID, event.ToolCallData{
			CallID:    call.ID,
			Name:      call.Name,
			Arguments: call.Arguments,
			Round:     round,
		}))
	}

	outputs := make([]responses.InputItem, len(calls))
	records := make([]ToolCall, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			started := time.Now()
			output, errMsg := e.executeCall(gctx, call)
			records[i] = ToolCall{
				CallID:    call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
				Output:    output,
				Error:     errMsg,
				Duration:  time.Since(started),
			}
			outputs[i] = responses.FunctionCallOutput(call.ID, output)
			return nil
		})
	}
	_ = g.Wait()

	for _, rec := range records {
		*events = append(*events, event.NewEvent(event.EventToolResult, sessionID, event.ToolResultData{
			CallID:   rec.CallID,
			Name:     rec.Name,
			Output:   rec.Output,
			Error:    rec.Error,
			Duration: rec.Duration,
		}))
	}
	return outputs, records
}

// executeCall runs one tool invocation. Failures are soft: malformed
// arguments degrade to an empty parameter map, and execution errors are
// encoded into the output so the service can react, keeping the exchange
// alive.
func (e *Engine) executeCall(ctx context.Context, call ToolCallRecord) (output, errMsg string) {
	params := map[string]any{}
	if args := strings.TrimSpace(call.Arguments); args != "" {
		if err := json.Unmarshal([]byte(args), &params); err != nil {
			e.logger.Debug("tool arguments are not valid JSON",
				"call_id", call.ID, "tool", call.Name, "error", err)
			params = map[string]any{}
		}
	}

	// Arguments come from the service, not the caller, so dispatch skips
	// schema validation and lets the tool interpret what it was given.
	impl, err := e.cfg.Tools.Get(call.Name)
	if err != nil {
		return encodeToolError(err), err.Error()
	}
	res, err := impl.Execute(ctx, params)
	if err != nil {
		e.logger.Warn("tool execution failed", "tool", call.Name, "error", err)
		return encodeToolError(err), err.Error()
	}
	return encodeToolOutput(res), ""
}

// encodeToolOutput serializes a tool result for the continuation item. A
// structured Data payload travels as-is; plain output is wrapped into a JSON
// string so the field is always valid JSON.
func encodeToolOutput(res *tool.Result) string {
	if res == nil {
		return "{}"
	}
	if res.Data != nil {
		if raw, err := json.Marshal(res.Data); err == nil {
			return string(raw)
		}
	}
	raw, _ := json.Marshal(res.Output)
	return string(raw)
}

func encodeToolError(err error) string {
	raw, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(raw)
}

func (e *Engine) initialRequest(messages []Message) *responses.Request {
	input := make([]responses.InputItem, 0, len(messages))
	for _, m := range messages {
		input = append(input, responses.MessageInput(m.Role, m.Content))
	}
	req := &responses.Request{
		Model:       e.cfg.Model,
		Input:       input,
		Temperature: e.cfg.Temperature,
		Text:        responses.StructuredFormat(e.cfg.SchemaFields),
	}
	e.attachTools(req)
	return req
}

// continuationRequest carries only the function-call outputs; the calls
// themselves are referenced through the anchor, never echoed back.
func (e *Engine) continuationRequest(anchor string, outputs []responses.InputItem) *responses.Request {
	req := &responses.Request{
		Model:              e.cfg.Model,
		Input:              outputs,
		Temperature:        e.cfg.Temperature,
		Text:               responses.StructuredFormat(e.cfg.SchemaFields),
		PreviousResponseID: anchor,
	}
	e.attachTools(req)
	return req
}

func (e *Engine) attachTools(req *responses.Request) {
	if e.cfg.Tools.Len() == 0 {
		return
	}
	for _, t := range e.cfg.Tools.List() {
		req.Tools = append(req.Tools, responses.ToolParam{
			Type:        "function",
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  json.RawMessage(t.Schema().MarshalParameters()),
			Strict:      true,
		})
	}
	req.ToolChoice = "auto"
}

func (e *Engine) sessionID() string {
	if e.cfg.Session == nil {
		return ""
	}
	return e.cfg.Session.ID()
}

func (e *Engine) recordInput(messages []Message) {
	if e.cfg.Session == nil {
		return
	}
	for _, m := range messages {
		if err := e.cfg.Session.Append(session.Message{Role: m.Role, Content: m.Content}); err != nil {
			e.logger.Debug("session append failed", "role", m.Role, "error", err)
		}
	}
}

func (e *Engine) recordResult(res *Result, anchor string) {
	if e.cfg.Session == nil {
		return
	}
	calls := make([]session.ToolCall, 0, len(res.ToolCalls))
	for _, c := range res.ToolCalls {
		calls = append(calls, session.ToolCall{
			CallID:    c.CallID,
			Name:      c.Name,
			Arguments: c.Arguments,
			Output:    c.Output,
			Error:     c.Error,
			Duration:  c.Duration,
		})
	}
	err := e.cfg.Session.Append(session.Message{
		Role:              RoleAssistant,
		Content:           res.Text,
		DiagramDefinition: res.DiagramDefinition,
		Anchor:            anchor,
		ToolCalls:         calls,
	})
	if err != nil {
		e.logger.Debug("session append failed", "role", RoleAssistant, "error", err)
	}
}
