package responses

import (
	json "github.com/goccy/go-json"
)

// SchemaFields names the properties of the structured-output schema. Two
// vintages of the schema exist in the wild; parameterizing the names lets one
// client speak both instead of duplicating request builders.
type SchemaFields struct {
	Text    string
	Diagram string
}

// DefaultSchemaFields returns the canonical field names.
func DefaultSchemaFields() SchemaFields {
	return SchemaFields{Text: "text", Diagram: "diagramDefinition"}
}

// Normalize fills unset names with the canonical defaults.
func (f SchemaFields) Normalize() SchemaFields {
	def := DefaultSchemaFields()
	if f.Text == "" {
		f.Text = def.Text
	}
	if f.Diagram == "" {
		f.Diagram = def.Diagram
	}
	return f
}

// StructuredFormat builds the json_schema declaration sent on every request,
// initial and continuation alike, so the service is consistently nudged
// toward structured replies.
func StructuredFormat(fields SchemaFields) *TextFormat {
	fields = fields.Normalize()
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			fields.Text:    map[string]any{"type": "string"},
			fields.Diagram: map[string]any{"type": "string"},
		},
		"required":             []string{fields.Text, fields.Diagram},
		"additionalProperties": false,
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		// The schema is built from literals; marshalling cannot fail.
		panic(err)
	}
	return &TextFormat{
		Format: OutputFormat{
			Type:   "json_schema",
			Name:   "assistant_reply",
			Schema: raw,
			Strict: true,
		},
	}
}
