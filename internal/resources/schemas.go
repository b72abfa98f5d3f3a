package resources

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Every pack record is validated against its schema before decoding, so a
// malformed file fails with a path-and-reason error instead of a half
// populated definition.

const itemSchema = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "model": {"type": "string"}
  }
}`

const tileSchema = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "function": {"type": "string"},
    "category": {"type": "string"},
    "model": {"type": "string"},
    "data": {"type": "object"}
  }
}`

const recipeSchema = `{
  "type": "object",
  "required": ["id", "outputs"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "inputs": {"type": "array", "items": {"$ref": "#/$defs/stack"}},
    "outputs": {"type": "array", "items": {"$ref": "#/$defs/stack"}}
  },
  "$defs": {
    "stack": {
      "type": "object",
      "required": ["id", "amount"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "amount": {"type": "integer"}
      }
    }
  }
}`

const tagSchema = `{
  "type": "object",
  "required": ["id", "entries"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "entries": {"type": "array", "items": {"type": "string", "minLength": 1}}
  }
}`

const categorySchema = `{
  "type": "object",
  "required": ["id", "ord"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "ord": {"type": "integer"},
    "icon": {"type": "string"},
    "item": {"type": "string"}
  }
}`

const researchSchema = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "category": {"type": "string"},
    "depends_on": {"type": "string"},
    "unlocks": {"type": "array", "items": {"type": "string"}},
    "required_items": {"type": "array", "items": {
      "type": "object",
      "required": ["id", "amount"],
      "properties": {
        "id": {"type": "string"},
        "amount": {"type": "integer"}
      }
    }}
  }
}`

const modelSchema = `{
  "type": "object",
  "required": ["id", "file"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "file": {"type": "string", "minLength": 1}
  }
}`

const translateSchema = `{
  "type": "object",
  "properties": {
    "names": {"type": "object", "additionalProperties": {"type": "string"}},
    "strings": {"type": "object", "additionalProperties": {"type": "string"}}
  }
}`

type schemaSet struct {
	item      *jsonschema.Schema
	tile      *jsonschema.Schema
	recipe    *jsonschema.Schema
	tag       *jsonschema.Schema
	category  *jsonschema.Schema
	research  *jsonschema.Schema
	model     *jsonschema.Schema
	translate *jsonschema.Schema
}

func compileSchemas() (*schemaSet, error) {
	var s schemaSet
	for _, e := range []struct {
		name string
		src  string
		dst  **jsonschema.Schema
	}{
		{"item.schema.json", itemSchema, &s.item},
		{"tile.schema.json", tileSchema, &s.tile},
		{"recipe.schema.json", recipeSchema, &s.recipe},
		{"tag.schema.json", tagSchema, &s.tag},
		{"category.schema.json", categorySchema, &s.category},
		{"research.schema.json", researchSchema, &s.research},
		{"model.schema.json", modelSchema, &s.model},
		{"translate.schema.json", translateSchema, &s.translate},
	} {
		c, err := jsonschema.CompileString(e.name, e.src)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", e.name, err)
		}
		*e.dst = c
	}
	return &s, nil
}

// decodeRecord validates raw against schema, then unmarshals it into out.
func decodeRecord(schema *jsonschema.Schema, raw []byte, out any) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
