package store

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// sessionSchemaJSON describes a session record file. Every memory must carry a
// string category and content; the remaining fields are optional strings.
const sessionSchemaJSON = `{
	"type": "object",
	"properties": {
		"session_id":        {"type": "string"},
		"timestamp":         {"type": "string"},
		"summary":           {"type": "string"},
		"working_directory": {"type": "string"},
		"memories": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["category", "content"],
				"properties": {
					"category": {"type": "string"},
					"content":  {"type": "string"}
				}
			}
		}
	}
}`

// compileSessionSchema compiles sessionSchemaJSON.
func compileSessionSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(sessionSchemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("session.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("session.json")
}
