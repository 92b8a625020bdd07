package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wmcube/settlesplit/internal/models"
)

// Normalize coerces a raw model response into a single Record. Three shapes
// are accepted: a bare JSON object, a JSON array whose first object element
// is taken, and a text blob wrapped in Markdown code fences (with or without
// a language tag). Anything else yields nil.
func Normalize(raw string) *models.Record {
	s := stripFences([]byte(raw))
	if len(s) == 0 {
		return nil
	}
	switch s[0] {
	case '{':
		return normalizeObject(s)
	case '[':
		return normalizeList(s)
	default:
		return nil
	}
}

// stripFences removes a surrounding Markdown code fence and whitespace.
// Handles ```json\n{...}\n```, ```\n{...}\n```, and bare payloads.
func stripFences(data []byte) []byte {
	s := bytes.TrimSpace(data)
	if len(s) == 0 {
		return s
	}
	if bytes.HasPrefix(s, []byte("```")) {
		if idx := bytes.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = bytes.TrimPrefix(s, []byte("```json"))
			s = bytes.TrimPrefix(s, []byte("```"))
		}
		if bytes.HasSuffix(s, []byte("```")) {
			s = s[:len(s)-3]
		}
		s = bytes.TrimSpace(s)
	}
	return s
}

// normalizeObject sanitizes one JSON object and decodes it into a Record.
// Unknown keys are dropped and numeric payment totals are coerced to strings
// before schema validation, so a model that returns a bare number for
// payment_total still produces a usable record.
func normalizeObject(data []byte) *models.Record {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}

	allowed := map[string]struct{}{
		"full_name": {}, "simplified_name": {}, "currency": {},
		"payment_total": {}, "confidence": {},
	}
	for k, v := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			continue
		}
		switch t := v.(type) {
		case nil:
			delete(m, k)
		case float64:
			m[k] = fmt.Sprintf("%.2f", t)
		}
	}

	// Confidence is advisory; a malformed value is dropped rather than
	// letting it fail validation and sink an otherwise usable record.
	if v, ok := m["confidence"].(string); ok {
		up := strings.ToUpper(strings.TrimSpace(v))
		switch up {
		case models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow:
			m["confidence"] = up
		default:
			delete(m, "confidence")
		}
	}

	sanitized, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	if err := validateRecordJSON(sanitized); err != nil {
		slog.Debug("oracle response failed schema validation", "error", err)
		return nil
	}

	var rec models.Record
	if err := json.Unmarshal(sanitized, &rec); err != nil {
		return nil
	}
	return &rec
}

// normalizeList picks the first object element of a JSON array and normalizes
// it; the rest of the array is discarded.
func normalizeList(data []byte) *models.Record {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	for _, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			return normalizeObject(trimmed)
		}
	}
	return nil
}
