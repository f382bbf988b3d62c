// Package parser decodes import documents. Both the JSON export format and an
// equivalent YAML rendering are accepted.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/lapse/internal/apperr"
	"github.com/starford/lapse/internal/models"
)

// Format is the detected encoding of an import document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Detect sniffs the document encoding: a leading '{' means JSON, anything
// else is treated as YAML.
func Detect(data []byte) Format {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return FormatJSON
	}
	return FormatYAML
}

// ParseDocument decodes an export document. Top-level sections that are
// absent or null stay nil in the result. Malformed input yields an
// *apperr.ValidationError.
func ParseDocument(data []byte) (*models.ImportDocument, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apperr.Invalid("document", "empty document")
	}
	if Detect(data) == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, apperr.Invalid("document", "invalid YAML: %v", err)
		}
		data = converted
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, apperr.Invalid("document", "invalid JSON: %v", err)
	}

	doc := &models.ImportDocument{}
	if raw, ok := present(top, "knowledgeItems"); ok {
		raw, err := stringIDs(raw)
		if err != nil {
			return nil, apperr.Invalid("knowledgeItems", "%v", err)
		}
		if err := json.Unmarshal(raw, &doc.KnowledgeItems); err != nil {
			return nil, apperr.Invalid("knowledgeItems", "%v", err)
		}
		if doc.KnowledgeItems == nil {
			doc.KnowledgeItems = []models.KnowledgeItem{}
		}
	}
	if raw, ok := present(top, "categories"); ok {
		raw, err := stringIDs(raw)
		if err != nil {
			return nil, apperr.Invalid("categories", "%v", err)
		}
		if err := json.Unmarshal(raw, &doc.Categories); err != nil {
			return nil, apperr.Invalid("categories", "%v", err)
		}
		if doc.Categories == nil {
			doc.Categories = []models.Category{}
		}
	}
	if raw, ok := present(top, "settings"); ok {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, apperr.Invalid("settings", "must be an object")
		}
		doc.Settings = raw
	}
	if raw, ok := present(top, "exportDate"); ok {
		var t time.Time
		if err := json.Unmarshal(raw, &t); err == nil {
			doc.ExportDate = &t
		}
	}
	return doc, nil
}

// stringIDs rewrites numeric "id" and "category" values of a record array as
// strings. Older exports use millisecond timestamps as identifiers.
func stringIDs(raw json.RawMessage) (json.RawMessage, error) {
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	changed := false
	for _, rec := range records {
		for _, key := range []string{"id", "category"} {
			v, ok := rec[key]
			if !ok {
				continue
			}
			var n json.Number
			if err := json.Unmarshal(v, &n); err != nil || n == "" {
				continue
			}
			quoted, err := json.Marshal(n.String())
			if err != nil {
				return nil, err
			}
			rec[key] = quoted
			changed = true
		}
	}
	if !changed {
		return raw, nil
	}
	return json.Marshal(records)
}

func present(top map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := top[key]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return nil, false
	}
	return raw, true
}

// yamlToJSON re-encodes a YAML mapping as JSON so that a single decoding path
// handles both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, errors.New("top level must be a mapping")
	}
	norm, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(norm)
}

// normalize makes a decoded YAML tree JSON-encodable. Bare YAML dates
// (2026-01-31) become YYYY-MM-DD strings rather than timestamps.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			n, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			n, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[ks] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			n, err := normalize(val)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case time.Time:
		if x.Equal(time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, x.Location())) && x.Location() == time.UTC {
			return x.Format("2006-01-02"), nil
		}
		return x.Format(time.RFC3339Nano), nil
	default:
		return v, nil
	}
}
