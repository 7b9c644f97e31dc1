package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// maxCellWidth bounds nested values shown inline in tables.
const maxCellWidth = 60

// activitySummary holds the list fields shown in tables.
type activitySummary struct {
	ActivityID     json.Number `json:"activityId"`
	ActivityName   string      `json:"activityName"`
	StartTimeLocal string      `json:"startTimeLocal"`
	ActivityType   struct {
		TypeKey string `json:"typeKey"`
	} `json:"activityType"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

func (a activitySummary) row() []string {
	return []string{
		a.ActivityID.String(),
		a.ActivityName,
		a.ActivityType.TypeKey,
		a.StartTimeLocal,
		formatDistance(a.Distance),
		formatDuration(a.Duration),
	}
}

var activityHeader = []string{"ID", "Name", "Type", "Start", "Distance", "Duration"}

func parseActivities(raw []byte) ([]activitySummary, error) {
	var activities []activitySummary
	if err := json.Unmarshal(raw, &activities); err != nil {
		return nil, fmt.Errorf("activity list is not a JSON array: %w", err)
	}
	return activities, nil
}

// field is one key/value row of a flattened object.
type field struct {
	Key   string
	Value string
}

// objectFields lists top-level keys in sorted order. Nested values are shown
// as truncated compact JSON.
func objectFields(raw []byte) ([]field, error) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make([]field, 0, len(keys))
	for _, key := range keys {
		fields = append(fields, field{Key: key, Value: cellValue(object[key])})
	}
	return fields, nil
}

func cellValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}

	var s string
	if trimmed[0] == '"' && json.Unmarshal(trimmed, &s) == nil {
		return s
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	value := buf.String()
	if len(value) > maxCellWidth {
		value = value[:maxCellWidth-3] + "..."
	}
	return value
}

func decodeGeneric(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	return normalizeNumbers(value), nil
}

// normalizeNumbers converts json.Number into int64 or float64 so YAML renders
// plain scalars instead of quoted strings.
func normalizeNumbers(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalizeNumbers(item)
		}
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return v
	}
}

func formatDistance(meters float64) string {
	if meters <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	return (time.Duration(seconds) * time.Second).Round(time.Second).String()
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
