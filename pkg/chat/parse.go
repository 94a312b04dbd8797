package chat

import (
	"strings"

	json "github.com/goccy/go-json"

	"github.com/cexll/diagramchat-go/pkg/diagram"
	"github.com/cexll/diagramchat-go/pkg/responses"
)

// A parseStage attempts one reading of the response. Stages are pure; a
// false return means "try the next one", never an error.
type parseStage func(resp *responses.Response, fields responses.SchemaFields) (text, diag string, ok bool)

// parseStages is ordered from the most structured reading to the loosest.
// The first stage that yields anything wins.
var parseStages = []parseStage{
	parseStructuredItems,
	parseAggregatedText,
	parseStitchedChunks,
}

// parseResponse extracts the reply text and diagram definition from a
// response. An unrecognizable response degrades to an empty result rather
// than an error; the raw body is preserved either way.
func parseResponse(resp *responses.Response, fields responses.SchemaFields) *Result {
	res := &Result{}
	if resp != nil {
		res.Raw = resp.Raw
	}
	for _, stage := range parseStages {
		if text, diag, ok := stage(resp, fields); ok {
			res.Text = text
			res.DiagramDefinition = diag
			return res
		}
	}
	return res
}

// parseStructuredItems walks message items looking for a structured payload:
// either a native JSON content entry, or a text entry whose body is itself a
// JSON object matching the declared schema.
func parseStructuredItems(resp *responses.Response, fields responses.SchemaFields) (string, string, bool) {
	for _, item := range resp.Items() {
		if item.Type != "" && item.Type != responses.ItemTypeMessage {
			continue
		}
		for _, entry := range item.Content {
			if raw := entry.StructuredPayload(); len(raw) > 0 {
				if text, diag, ok := coercePayload(raw, fields); ok {
					return text, diag, true
				}
			}
			if entry.Text != "" {
				if text, diag, ok := coerceText(entry.Text, fields); ok {
					return text, diag, true
				}
			}
		}
	}
	return "", "", false
}

// parseAggregatedText falls back to the aggregated output_text field. A JSON
// body is coerced like a structured payload; anything else is returned as
// plain text with the diagram extractor run over it.
func parseAggregatedText(resp *responses.Response, fields responses.SchemaFields) (string, string, bool) {
	text := resp.AggregatedText()
	if text == "" {
		return "", "", false
	}
	return readFreeText(text, fields)
}

// parseStitchedChunks is the last resort: concatenate every plain text chunk
// found across the message items and read the result like aggregated text.
func parseStitchedChunks(resp *responses.Response, fields responses.SchemaFields) (string, string, bool) {
	var chunks []string
	for _, item := range resp.Items() {
		if item.Type != "" && item.Type != responses.ItemTypeMessage {
			continue
		}
		for _, entry := range item.Content {
			if entry.Text != "" {
				chunks = append(chunks, entry.Text)
			}
		}
	}
	if len(chunks) == 0 {
		return "", "", false
	}
	return readFreeText(strings.Join(chunks, "\n"), fields)
}

func readFreeText(text string, fields responses.SchemaFields) (string, string, bool) {
	if t, d, ok := coerceText(text, fields); ok {
		return t, d, true
	}
	d, _ := diagram.Extract(text)
	return text, d, true
}

// diagramSynonyms lists the field names providers have been observed using
// for the diagram payload when they ignore the declared schema.
var diagramSynonyms = []string{"diagram", "mermaid", "mermaidDefinition", "mermaidCode", "chart"}

// textSynonyms covers the same drift for the reply text.
var textSynonyms = []string{"answer", "message", "content"}

// nestedDiagramKeys are probed when the diagram field holds an object rather
// than a string.
var nestedDiagramKeys = []string{"definition", "code", "text", "mermaid"}

// coercePayload reads a JSON object as a structured reply. It succeeds when
// either the text field or the diagram field (under its declared name or a
// known synonym) carries a non-empty string.
func coercePayload(raw []byte, fields responses.SchemaFields) (string, string, bool) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", "", false
	}
	text := stringField(payload, fields.Text, textSynonyms)
	diag := diagramField(payload, fields.Diagram)
	if text == "" && diag == "" {
		return "", "", false
	}
	return text, diag, true
}

// coerceText tries to read free text as a fenced or bare JSON object.
func coerceText(text string, fields responses.SchemaFields) (string, string, bool) {
	body := unfence(strings.TrimSpace(text))
	if !strings.HasPrefix(body, "{") {
		return "", "", false
	}
	return coercePayload([]byte(body), fields)
}

func stringField(payload map[string]any, primary string, synonyms []string) string {
	for _, key := range append([]string{primary}, synonyms...) {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func diagramField(payload map[string]any, primary string) string {
	for _, key := range append([]string{primary}, diagramSynonyms...) {
		switch v := payload[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			for _, nested := range nestedDiagramKeys {
				if s, ok := v[nested].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// unfence strips a surrounding markdown code fence, keeping the inner body.
// Text without a fence passes through unchanged.
func unfence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[3:]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		// Drop the language tag line.
		if lang := strings.TrimSpace(body[:i]); lang == "" || !strings.ContainsAny(lang, "{}") {
			body = body[i+1:]
		}
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}
