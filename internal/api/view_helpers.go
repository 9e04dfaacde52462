package api

import (
	"encoding/json"
	"strconv"
)

// MetadataField extracts a scalar field from ledger metadata as text.
func MetadataField(metadata json.RawMessage, field, fallback string) string {
	if len(metadata) == 0 {
		return fallback
	}
	var raw map[string]any
	if err := json.Unmarshal(metadata, &raw); err != nil {
		return fallback
	}
	switch v := raw[field].(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return fallback
}

// EntityKey returns the business key an import produced, whichever document
// type wrote the metadata.
func EntityKey(entry ImportEntry) string {
	for _, field := range []string{"orderNumber", "glassOrderNumber", "rackNumber"} {
		if value := MetadataField(entry.Metadata, field, ""); value != "" {
			return value
		}
	}
	return ""
}
