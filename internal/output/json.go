package output

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONFormatter renders payloads as JSON, preserving upstream field order.
type JSONFormatter struct {
	Indent bool
}

// FormatActivities renders an activity list as JSON.
func (f *JSONFormatter) FormatActivities(raw []byte) (string, error) {
	return f.render(raw)
}

// FormatObject renders an object as JSON. The title is not part of the output.
func (f *JSONFormatter) FormatObject(_ string, raw []byte) (string, error) {
	return f.render(raw)
}

func (f *JSONFormatter) render(raw []byte) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	var err error
	if f.Indent {
		err = json.Indent(&buf, raw, "", "  ")
	} else {
		err = json.Compact(&buf, raw)
	}
	if err != nil {
		return "", fmt.Errorf("invalid JSON payload: %w", err)
	}
	return buf.String(), nil
}
