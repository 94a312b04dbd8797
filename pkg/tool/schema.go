package tool

import "encoding/json"

// JSONSchema captures the subset of JSON Schema we require for tool
// parameter declarations and pre-execution validation.
type JSONSchema struct {
	Type                 string         `json:"type"`
	Properties           map[string]any `json:"properties,omitempty"`
	Required             []string       `json:"required,omitempty"`
	AdditionalProperties *bool          `json:"additionalProperties,omitempty"`
}

// MarshalParameters renders the schema as the raw parameters object expected
// by the wire-level tool declaration. A nil schema yields a permissive empty
// object schema.
func (s *JSONSchema) MarshalParameters() json.RawMessage {
	if s == nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return raw
}
