package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// configSchema rejects unknown keys and mistyped values before the document
// is decoded into Config. Enumerated values are checked by Validate, after
// normalization.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string"},
    "seed": {"type": "integer"},
    "nav_attempts": {"type": "integer", "minimum": 0},
    "playback": {"type": "string"},
    "engine": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "constants_preamble": {"type": "boolean"},
        "player_order": {"type": "string"}
      }
    },
    "log": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "path": {"type": "string"},
        "format": {"type": "string"},
        "level": {"type": "string"}
      }
    },
    "record": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "dir": {"type": "string"},
        "transcript": {"type": "string"},
        "index": {"type": "string"}
      }
    },
    "transport": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "url": {"type": "string"},
        "connect_timeout": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h)$"}
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("config.schema.json", configSchema)
})

// validateDocument checks a raw YAML config against configSchema. An empty
// document is valid.
func validateDocument(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	// The validator works on JSON values.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	return s.Validate(v)
}
