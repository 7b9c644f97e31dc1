package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders payloads as markdown tables.
type MarkdownFormatter struct{}

// FormatActivities renders the activity list as a markdown table.
func (f *MarkdownFormatter) FormatActivities(raw []byte) (string, error) {
	activities, err := parseActivities(raw)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	writeMarkdownRow(&sb, activityHeader)
	sb.WriteString(strings.Repeat("|---", len(activityHeader)) + "|\n")
	for _, a := range activities {
		writeMarkdownRow(&sb, a.row())
	}
	sb.WriteString(fmt.Sprintf("\n**Total**: %s\n", pluralize(len(activities), "activity", "activities")))
	return sb.String(), nil
}

// FormatObject renders top-level fields as a two-column markdown table.
func (f *MarkdownFormatter) FormatObject(title string, raw []byte) (string, error) {
	fields, err := objectFields(raw)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(title)))
	}
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	for _, fld := range fields {
		writeMarkdownRow(&sb, []string{fld.Key, fld.Value})
	}
	return sb.String(), nil
}

func writeMarkdownRow(sb *strings.Builder, cells []string) {
	sb.WriteString("|")
	for _, cell := range cells {
		sb.WriteString(" " + escapeMarkdownCell(cell) + " |")
	}
	sb.WriteString("\n")
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
