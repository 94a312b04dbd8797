package chat

import (
	"github.com/cexll/diagramchat-go/pkg/responses"
)

// ToolCallRecord is one tool invocation requested by the service, normalized
// from whichever wire layout carried it.
type ToolCallRecord struct {
	ID        string
	Name      string
	Arguments string
}

// detectToolCalls scans a response for tool-call requests. Two layouts are
// recognized: top-level function_call items, and call-shaped entries nested
// inside message content (flat fields or a function object). Entries missing
// an identifier or a name are dropped; the wire order of the rest is kept.
// Detection is pure and never fails on malformed input.
func detectToolCalls(resp *responses.Response) []ToolCallRecord {
	var calls []ToolCallRecord
	for _, item := range resp.Items() {
		if item.Type == responses.ItemTypeFunctionCall {
			rec := ToolCallRecord{
				ID:        firstNonEmpty(item.CallID, item.ID),
				Name:      item.Name,
				Arguments: item.Arguments,
			}
			if rec.ID != "" && rec.Name != "" {
				calls = append(calls, rec)
			}
			continue
		}
		for _, entry := range item.Content {
			if rec, ok := callFromEntry(entry); ok {
				calls = append(calls, rec)
			}
		}
	}
	return calls
}

func callFromEntry(entry responses.ContentEntry) (ToolCallRecord, bool) {
	switch entry.Type {
	case "tool_call", responses.ItemTypeFunctionCall:
	default:
		return ToolCallRecord{}, false
	}
	rec := ToolCallRecord{
		ID:        firstNonEmpty(entry.CallID, entry.ID),
		Name:      entry.Name,
		Arguments: entry.Arguments,
	}
	if entry.Function != nil {
		if rec.Name == "" {
			rec.Name = entry.Function.Name
		}
		if rec.Arguments == "" {
			rec.Arguments = entry.Function.Arguments
		}
	}
	if rec.ID == "" || rec.Name == "" {
		return ToolCallRecord{}, false
	}
	return rec, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
