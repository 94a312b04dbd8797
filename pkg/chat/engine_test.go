package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/cexll/diagramchat-go/pkg/docs"
	"github.com/cexll/diagramchat-go/pkg/event"
	"github.com/cexll/diagramchat-go/pkg/responses"
	"github.com/cexll/diagramchat-go/pkg/tool"
)

// fakeService replays scripted response bodies in order, repeating the last
// one, and keeps every request body it received.
type fakeService struct {
	mu      sync.Mutex
	bodies  [][]byte
	scripts []string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	idx := len(f.bodies) - 1
	f.mu.Unlock()
	if idx >= len(f.scripts) {
		idx = len(f.scripts) - 1
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, f.scripts[idx])
}

func (f *fakeService) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

// sentRequest is the subset of the outbound body the tests assert on.
type sentRequest struct {
	Model              string `json:"model"`
	PreviousResponseID string `json:"previous_response_id"`
	ToolChoice         string `json:"tool_choice"`
	Input              []struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content string `json:"content"`
		CallID  string `json:"call_id"`
		Output  string `json:"output"`
	} `json:"input"`
	Tools []struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"tools"`
	Text *struct {
		Format struct {
			Type string `json:"type"`
		} `json:"format"`
	} `json:"text"`
}

func (f *fakeService) request(t *testing.T, i int) sentRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.bodies) {
		t.Fatalf("request %d not captured, have %d", i, len(f.bodies))
	}
	var req sentRequest
	if err := json.Unmarshal(f.bodies[i], &req); err != nil {
		t.Fatalf("decode request %d: %v", i, err)
	}
	return req
}

type stubTool struct {
	name    string
	execute func(ctx context.Context, params map[string]any) (*tool.Result, error)
}

func (s *stubTool) Name() string             { return s.name }
func (s *stubTool) Description() string      { return "stub tool" }
func (s *stubTool) Schema() *tool.JSONSchema { return nil }
func (s *stubTool) Execute(ctx context.Context, params map[string]any) (*tool.Result, error) {
	return s.execute(ctx, params)
}

func newTestEngine(t *testing.T, url string, tools *tool.Registry) *Engine {
	t.Helper()
	client, err := responses.NewClient(responses.Config{BaseURL: url, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	eng, err := New(Config{Client: client, Model: "gpt-4o-mini", Tools: tools})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}

const finalJSONResp = `{"id":"resp_final","output":[{"type":"message","content":[{"type":"output_text","text":"{\"text\":\"all done\",\"diagramDefinition\":\"flowchart TD\\nA-->B\"}"}]}]}`

func toolCallResp(id, callID, args string) string {
	body := map[string]any{
		"id": id,
		"output": []map[string]any{{
			"type":      "function_call",
			"call_id":   callID,
			"name":      "get_docs",
			"arguments": args,
		}},
	}
	raw, _ := json.Marshal(body)
	return string(raw)
}

func TestChatWithoutToolCalls(t *testing.T) {
	svc := &fakeService{scripts: []string{finalJSONResp}}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	eng := newTestEngine(t, srv.URL, nil)
	res, err := eng.Chat(context.Background(), []Message{User("draw the flow")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Text != "all done" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.DiagramDefinition != "flowchart TD\nA-->B" {
		t.Errorf("DiagramDefinition = %q", res.DiagramDefinition)
	}
	if res.StopReason != StopComplete {
		t.Errorf("StopReason = %q", res.StopReason)
	}
	if svc.requestCount() != 1 {
		t.Fatalf("request count = %d, want 1", svc.requestCount())
	}

	req := svc.request(t, 0)
	if req.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", req.Model)
	}
	if len(req.Input) != 1 || req.Input[0].Role != RoleUser || req.Input[0].Content != "draw the flow" {
		t.Errorf("input = %+v", req.Input)
	}
	if req.Text == nil || req.Text.Format.Type != "json_schema" {
		t.Errorf("structured format missing: %+v", req.Text)
	}
	if len(req.Tools) != 0 {
		t.Errorf("tools declared without a registry: %+v", req.Tools)
	}
}

func TestChatToolRound(t *testing.T) {
	svc := &fakeService{scripts: []string{
		toolCallResp("resp_1", "call_1", `{"topic":"auth"}`),
		finalJSONResp,
	}}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	reg := tool.NewRegistry()
	var gotTopic string
	if err := reg.Register(&stubTool{name: "get_docs", execute: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
		gotTopic, _ = params["topic"].(string)
		doc := docs.Document{Content: "doc", Source: "kb://auth"}
		return &tool.Result{Output: doc.Content, Data: doc}, nil
	}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	eng := newTestEngine(t, srv.URL, reg)
	res, err := eng.Chat(context.Background(), []Message{User("how does auth work?")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if gotTopic != "auth" {
		t.Errorf("tool received topic %q", gotTopic)
	}
	if res.Text != "all done" {
		t.Errorf("Text = %q", res.Text)
	}
	if len(res.ToolCalls) != 1 || res.ToolCalls[0].CallID != "call_1" {
		t.Fatalf("ToolCalls = %+v", res.ToolCalls)
	}
	if svc.requestCount() != 2 {
		t.Fatalf("request count = %d, want 2", svc.requestCount())
	}

	cont := svc.request(t, 1)
	if cont.PreviousResponseID != "resp_1" {
		t.Errorf("previous_response_id = %q", cont.PreviousResponseID)
	}
	if len(cont.Input) != 1 {
		t.Fatalf("continuation input = %+v", cont.Input)
	}
	item := cont.Input[0]
	if item.Type != "function_call_output" || item.CallID != "call_1" {
		t.Errorf("continuation item = %+v", item)
	}
	if item.Output != `{"document":"doc","sourceLocator":"kb://auth"}` {
		t.Errorf("output = %q", item.Output)
	}
	if item.Role != "" || item.Content != "" {
		t.Errorf("call echoed into continuation: %+v", item)
	}
	if len(cont.Tools) != 1 || cont.Tools[0].Name != "get_docs" {
		t.Errorf("continuation tools = %+v", cont.Tools)
	}
}

func TestChatRoundBudget(t *testing.T) {
	// The service keeps requesting tool calls forever; the engine must stop
	// after three continuation rounds and parse whatever came back last.
	svc := &fakeService{scripts: []string{
		toolCallResp("resp_1", "call_1", `{"topic":"a"}`),
		toolCallResp("resp_2", "call_2", `{"topic":"b"}`),
		toolCallResp("resp_3", "call_3", `{"topic":"c"}`),
		toolCallResp("resp_4", "call_4", `{"topic":"d"}`),
	}}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	reg := tool.NewRegistry()
	if err := reg.Register(&stubTool{name: "get_docs", execute: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
		return &tool.Result{Output: "ok"}, nil
	}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	eng := newTestEngine(t, srv.URL, reg)
	res, err := eng.Chat(context.Background(), []Message{User("loop forever")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if svc.requestCount() != 4 {
		t.Fatalf("request count = %d, want initial plus 3 continuations", svc.requestCount())
	}
	if res.StopReason != StopMaxToolRounds {
		t.Errorf("StopReason = %q", res.StopReason)
	}
	if len(res.ToolCalls) != 3 {
		t.Errorf("executed %d calls, want 3", len(res.ToolCalls))
	}
}

func TestChatMissingAnchor(t *testing.T) {
	svc := &fakeService{scripts: []string{
		`{"output":[{"type":"function_call","call_id":"call_1","name":"get_docs","arguments":"{}"}]}`,
	}}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	reg := tool.NewRegistry()
	if err := reg.Register(&stubTool{name: "get_docs", execute: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
		t.Fatal("tool must not run without an anchor")
		return nil, nil
	}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	eng := newTestEngine(t, srv.URL, reg)
	_, err := eng.Chat(context.Background(), []Message{User("hi")})
	if !errors.Is(err, ErrMissingAnchor) {
		t.Fatalf("err = %v, want ErrMissingAnchor", err)
	}
	if svc.requestCount() != 1 {
		t.Errorf("request count = %d, want 1", svc.requestCount())
	}
}

func TestChatUnknownToolEndsLoop(t *testing.T) {
	svc := &fakeService{scripts: []string{
		toolCallResp("resp_1", "call_1", `{}`),
	}}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	reg := tool.NewRegistry()
	if err := reg.Register(&stubTool{name: "something_else", execute: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
		return &tool.Result{}, nil
	}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	eng := newTestEngine(t, srv.URL, reg)
	res, err := eng.Chat(context.Background(), []Message{User("hi")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if svc.requestCount() != 1 {
		t.Errorf("request count = %d, want no continuation", svc.requestCount())
	}
	if res.StopReason != StopComplete {
		t.Errorf("StopReason = %q", res.StopReason)
	}
}

func TestChatMalformedArguments(t *testing.T) {
	svc := &fakeService{scripts: []string{
		toolCallResp("resp_1", "call_1", `not json at all`),
		finalJSONResp,
	}}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	reg := tool.NewRegistry()
	var gotParams map[string]any
	if err := reg.Register(&stubTool{name: "get_docs", execute: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
		gotParams = params
		return &tool.Result{Output: "ok"}, nil
	}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	eng := newTestEngine(t, srv.URL, reg)
	res, err := eng.Chat(context.Background(), []Message{User("hi")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if gotParams == nil || len(gotParams) != 0 {
		t.Errorf("params = %+v, want empty map", gotParams)
	}
	if res.ToolCalls[0].Error != "" {
		t.Errorf("unexpected tool error %q", res.ToolCalls[0].Error)
	}
}

func TestChatToolErrorKeepsExchangeAlive(t *testing.T) {
	svc := &fakeService{scripts: []string{
		toolCallResp("resp_1", "call_1", `{"topic":"x"}`),
		finalJSONResp,
	}}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	reg := tool.NewRegistry()
	if err := reg.Register(&stubTool{name: "get_docs", execute: func(ctx context.Context, params map[string]any) (*tool.Result, error) {
		return nil, errors.New("backend unavailable")
	}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	eng := newTestEngine(t, srv.URL, reg)
	res, err := eng.Chat(context.Background(), []Message{User("hi")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Text != "all done" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.ToolCalls[0].Error != "backend unavailable" {
		t.Errorf("Error = %q", res.ToolCalls[0].Error)
	}

	cont := svc.request(t, 1)
	if cont.Input[0].Output != `{"error":"backend unavailable"}` {
		t.Errorf("output = %q", cont.Input[0].Output)
	}
}

func TestChatStream(t *testing.T) {
	svc := &fakeService{scripts: []string{finalJSONResp}}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	eng := newTestEngine(t, srv.URL, nil)
	ch, err := eng.ChatStream(context.Background(), []Message{User("hi")})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	var events []event.Event
	for evt := range ch {
		events = append(events, evt)
	}
	if len(events) < 2 {
		t.Fatalf("got %d events, want at least progress and completion", len(events))
	}
	last := events[len(events)-1]
	if last.Type != event.EventCompletion {
		t.Errorf("last event = %q", last.Type)
	}
	data, ok := last.Data.(event.CompletionData)
	if !ok {
		t.Fatalf("completion data = %T", last.Data)
	}
	if data.Text != "all done" {
		t.Errorf("completion text = %q", data.Text)
	}
}

func TestChatStreamReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	eng := newTestEngine(t, srv.URL, nil)
	ch, err := eng.ChatStream(context.Background(), []Message{User("hi")})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	var last event.Event
	for evt := range ch {
		last = evt
	}
	if last.Type != event.EventError {
		t.Fatalf("last event = %q, want error", last.Type)
	}
}

func TestConfigValidate(t *testing.T) {
	client, err := responses.NewClient(responses.Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "missing client", cfg: Config{Model: "m"}, wantErr: true},
		{name: "missing model", cfg: Config{Client: client}, wantErr: true},
		{name: "defaults applied", cfg: Config{Client: client, Model: "m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tt.cfg.MaxToolRounds != defaultMaxToolRounds {
				t.Errorf("MaxToolRounds = %d", tt.cfg.MaxToolRounds)
			}
			if tt.cfg.Temperature != defaultTemperature {
				t.Errorf("Temperature = %v", tt.cfg.Temperature)
			}
			if tt.cfg.SchemaFields.Text != "text" || tt.cfg.SchemaFields.Diagram != "diagramDefinition" {
				t.Errorf("SchemaFields = %+v", tt.cfg.SchemaFields)
			}
		})
	}
}
