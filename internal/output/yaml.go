package output

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter renders payloads as YAML.
type YAMLFormatter struct{}

// FormatActivities renders an activity list as YAML.
func (f *YAMLFormatter) FormatActivities(raw []byte) (string, error) {
	return f.render(raw)
}

// FormatObject renders an object as YAML.
func (f *YAMLFormatter) FormatObject(_ string, raw []byte) (string, error) {
	return f.render(raw)
}

func (f *YAMLFormatter) render(raw []byte) (string, error) {
	value, err := decodeGeneric(raw)
	if err != nil || value == nil {
		return "", err
	}

	data, err := yaml.Marshal(value)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}
