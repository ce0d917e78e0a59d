package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Document is the JSON-like field map stored at a document path.
// Nested maps merge field by field; every other value is a leaf.
type Document map[string]any

type deleteField struct{}

type arrayRemove struct {
	values []any
}

// DeleteField, used as a value inside a merged Document, removes that field.
var DeleteField any = deleteField{}

// ArrayRemove, used as a value inside a merged Document, removes every
// element equal to one of values from the array stored in that field.
// A missing field becomes an empty array.
func ArrayRemove(values ...any) any {
	return arrayRemove{values: values}
}

// mergeInto folds src into dst following the deep-merge rules above.
func mergeInto(dst map[string]any, src map[string]any) error {
	for key, value := range src {
		switch v := value.(type) {
		case deleteField:
			delete(dst, key)
		case arrayRemove:
			if err := removeFromArray(dst, key, v); err != nil {
				return err
			}
		case Document:
			if err := mergeChild(dst, key, v); err != nil {
				return err
			}
		case map[string]any:
			if err := mergeChild(dst, key, v); err != nil {
				return err
			}
		default:
			leaf, err := normalize(v)
			if err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			dst[key] = leaf
		}
	}
	return nil
}

func mergeChild(dst map[string]any, key string, src map[string]any) error {
	child, ok := dst[key].(map[string]any)
	if !ok {
		child = make(map[string]any, len(src))
	}
	if err := mergeInto(child, src); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	dst[key] = child
	return nil
}

func removeFromArray(dst map[string]any, key string, op arrayRemove) error {
	targets := make([]any, 0, len(op.values))
	for _, v := range op.values {
		n, err := normalize(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		targets = append(targets, n)
	}

	current, _ := dst[key].([]any)
	kept := make([]any, 0, len(current))
	for _, el := range current {
		if !containsValue(targets, el) {
			kept = append(kept, el)
		}
	}
	dst[key] = kept
	return nil
}

func containsValue(values []any, v any) bool {
	for _, candidate := range values {
		if reflect.DeepEqual(candidate, v) {
			return true
		}
	}
	return false
}

// normalize converts v into the shape encoding/json produces when decoding
// into an any, so stored and freshly merged values compare equal.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

// Decode copies a document into a typed value using its json tags.
func Decode(doc Document, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// ParseDocument decodes a stored document.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}
