// Package jsonschema infers a JSON Schema (Draft 2020-12) from a JSON
// document. Object properties are listed in the order they appear in the
// document.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/invopop/jsonschema"
)

// Draft is the $schema URI set on inferred root schemas.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Options controls schema inference behavior.
type Options struct {
	// Required lists every property that is present and non-null. For
	// arrays of objects a property is required only when every item has it.
	Required bool
	// AdditionalProperties sets additionalProperties in object schemas.
	// Default: nil (not set)
	AdditionalProperties *bool
}

// DefaultOptions returns the default inference options.
func DefaultOptions() *Options {
	return &Options{Required: true}
}

// Infer returns the schema of a single JSON document.
func Infer(data []byte) (*jsonschema.Schema, error) {
	return InferWithOptions(data, DefaultOptions())
}

// InferWithOptions returns the schema of a single JSON document using opts.
// Returns an error if data is not exactly one JSON value.
func InferWithOptions(data []byte, opts *Options) (*jsonschema.Schema, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeOrdered(dec)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid JSON: trailing data after value")
	}

	schema := inferFromValue(v)
	if !opts.Required {
		clearRequired(schema)
	}
	if opts.AdditionalProperties != nil {
		applyAdditionalProperties(schema, *opts.AdditionalProperties)
	}
	schema.Version = Draft
	return schema, nil
}

// Marshal renders schema as JSON indented by two spaces.
func Marshal(schema *jsonschema.Schema) ([]byte, error) {
	return json.MarshalIndent(schema, "", "  ")
}

// object is a decoded JSON object that remembers its key order.
type object struct {
	keys   []string
	values map[string]any
}

func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch d {
	case '{':
		obj := &object{values: make(map[string]any)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T", keyTok)
			}
			val, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			if _, seen := obj.values[key]; !seen {
				obj.keys = append(obj.keys, key)
			}
			obj.values[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %q", d)
}

func inferFromValue(v any) *jsonschema.Schema {
	switch val := v.(type) {
	case nil:
		return &jsonschema.Schema{Type: "null"}
	case bool:
		return &jsonschema.Schema{Type: "boolean"}
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return &jsonschema.Schema{Type: "integer"}
		}
		f, err := val.Float64()
		if err == nil && math.Trunc(f) == f && !math.IsInf(f, 0) {
			return &jsonschema.Schema{Type: "integer"}
		}
		return &jsonschema.Schema{Type: "number"}
	case string:
		return &jsonschema.Schema{Type: "string"}
	case []any:
		schema := &jsonschema.Schema{Type: "array"}
		if len(val) == 0 {
			return schema
		}
		items := make([]*jsonschema.Schema, 0, len(val))
		for _, item := range val {
			items = append(items, inferFromValue(item))
		}
		schema.Items = mergeSchemas(items)
		return schema
	case *object:
		schema := &jsonschema.Schema{
			Type:       "object",
			Properties: jsonschema.NewProperties(),
		}
		for _, k := range val.keys {
			schema.Properties.Set(k, inferFromValue(val.values[k]))
			if val.values[k] != nil {
				schema.Required = append(schema.Required, k)
			}
		}
		return schema
	}
	return &jsonschema.Schema{}
}

func mergeSchemas(schemas []*jsonschema.Schema) *jsonschema.Schema {
	if len(schemas) == 1 {
		return schemas[0]
	}

	types := make(map[string]bool)
	var objects, arrays, untyped []*jsonschema.Schema
	for _, s := range schemas {
		if s.Type == "" {
			untyped = append(untyped, s)
			continue
		}
		types[s.Type] = true
		switch s.Type {
		case "object":
			objects = append(objects, s)
		case "array":
			arrays = append(arrays, s)
		}
	}

	if len(types) == 1 && len(untyped) == 0 {
		switch {
		case len(objects) > 0:
			return mergeObjectSchemas(objects)
		case len(arrays) > 0:
			return mergeArraySchemas(arrays)
		}
		return schemas[0]
	}

	typeList := make([]string, 0, len(types))
	for t := range types {
		typeList = append(typeList, t)
	}
	sort.Strings(typeList)

	var anyOf []*jsonschema.Schema
	if len(objects) > 0 {
		anyOf = append(anyOf, mergeObjectSchemas(objects))
	}
	if len(arrays) > 0 {
		anyOf = append(anyOf, mergeArraySchemas(arrays))
	}
	for _, t := range typeList {
		if t != "object" && t != "array" {
			anyOf = append(anyOf, &jsonschema.Schema{Type: t})
		}
	}
	anyOf = append(anyOf, untyped...)
	return &jsonschema.Schema{AnyOf: anyOf}
}

// mergeObjectSchemas unions properties in first-seen order. A property stays
// required only if every object requires it.
func mergeObjectSchemas(schemas []*jsonschema.Schema) *jsonschema.Schema {
	if len(schemas) == 1 {
		return schemas[0]
	}

	var order []string
	props := make(map[string][]*jsonschema.Schema)
	requiredCount := make(map[string]int)
	for _, s := range schemas {
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			if _, seen := props[pair.Key]; !seen {
				order = append(order, pair.Key)
			}
			props[pair.Key] = append(props[pair.Key], pair.Value)
		}
		for _, k := range s.Required {
			requiredCount[k]++
		}
	}

	merged := &jsonschema.Schema{
		Type:       "object",
		Properties: jsonschema.NewProperties(),
	}
	for _, k := range order {
		merged.Properties.Set(k, mergeSchemas(props[k]))
		if requiredCount[k] == len(schemas) {
			merged.Required = append(merged.Required, k)
		}
	}
	return merged
}

func mergeArraySchemas(schemas []*jsonschema.Schema) *jsonschema.Schema {
	if len(schemas) == 1 {
		return schemas[0]
	}

	var items []*jsonschema.Schema
	for _, s := range schemas {
		if s.Items != nil {
			items = append(items, s.Items)
		}
	}

	merged := &jsonschema.Schema{Type: "array"}
	if len(items) > 0 {
		merged.Items = mergeSchemas(items)
	}
	return merged
}

// walk calls fn for schema and every nested object, array item and anyOf
// branch.
func walk(schema *jsonschema.Schema, fn func(*jsonschema.Schema)) {
	if schema == nil {
		return
	}
	fn(schema)
	if schema.Properties != nil {
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			walk(pair.Value, fn)
		}
	}
	walk(schema.Items, fn)
	for _, s := range schema.AnyOf {
		walk(s, fn)
	}
}

func clearRequired(schema *jsonschema.Schema) {
	walk(schema, func(s *jsonschema.Schema) { s.Required = nil })
}

func applyAdditionalProperties(schema *jsonschema.Schema, allowed bool) {
	walk(schema, func(s *jsonschema.Schema) {
		if s.Type != "object" {
			return
		}
		if allowed {
			s.AdditionalProperties = jsonschema.TrueSchema
		} else {
			s.AdditionalProperties = jsonschema.FalseSchema
		}
	})
}
