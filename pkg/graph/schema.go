package graph

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
)

const documentSchemaURL = "https://flowlayout.dev/schemas/graph.json"

// documentSchemaJSON is the JSON Schema for [Document].
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowlayout.dev/schemas/graph.json",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "edges": {
      "type": ["array", "null"],
      "items": { "$ref": "#/$defs/edge" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "node": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "type": "string", "minLength": 1, "maxLength": 512 },
        "type": { "type": "string" },
        "x": { "type": "number" },
        "y": { "type": "number" },
        "width": { "type": "number", "minimum": 0 },
        "height": { "type": "number", "minimum": 0 },
        "data": { "type": ["object", "null"] }
      },
      "additionalProperties": false
    },
    "edge": {
      "type": "object",
      "required": ["source", "target"],
      "properties": {
        "id": { "type": "string" },
        "source": { "type": "string", "minLength": 1 },
        "target": { "type": "string", "minLength": 1 },
        "data": { "type": ["object", "null"] }
      },
      "additionalProperties": false
    }
  }
}`

var (
	schemaOnce     sync.Once
	documentSchema *jsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("unmarshal graph schema: %w", err)
			return
		}
		if err := c.AddResource(documentSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add graph schema resource: %w", err)
			return
		}
		documentSchema, schemaErr = c.Compile(documentSchemaURL)
	})
	return documentSchema, schemaErr
}

// ValidateJSON checks raw document bytes against the graph schema.
// Violations are reported as a single VALIDATION_ERROR listing each one
// with its JSON pointer.
func ValidateJSON(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return flerrors.Wrap(flerrors.ErrCodeInternal, err, "graph schema")
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return flerrors.Wrap(flerrors.ErrCodeValidation, err, "graph document is not valid JSON")
	}
	if err := sch.Validate(inst); err != nil {
		return toValidationError(err)
	}
	return nil
}

func toValidationError(err error) error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return flerrors.Wrap(flerrors.ErrCodeValidation, err, "graph document invalid")
	}
	violations := collectViolations(verr)
	switch len(violations) {
	case 0:
		return flerrors.Validation("graph document invalid: %s", verr.Error())
	case 1:
		return flerrors.Validation("graph document invalid: %s", violations[0])
	default:
		return flerrors.Validation("graph document invalid: %d violations: %s",
			len(violations), strings.Join(violations, "; "))
	}
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/" + strings.Join(verr.InstanceLocation, "/")
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}
	var out []string
	for _, c := range verr.Causes {
		out = append(out, collectViolations(c)...)
	}
	return out
}
