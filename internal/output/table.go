package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders payloads as ASCII tables.
type TableFormatter struct{}

// FormatActivities renders one row per activity.
func (f *TableFormatter) FormatActivities(raw []byte) (string, error) {
	activities, err := parseActivities(raw)
	if err != nil {
		return "", err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(toRow(activityHeader))

	for _, a := range activities {
		t.AppendRow(toRow(a.row()))
	}
	t.AppendFooter(table.Row{"", "", "", "", "", pluralize(len(activities), "activity", "activities")})

	return t.Render(), nil
}

// FormatObject renders top-level fields as key/value rows.
func (f *TableFormatter) FormatObject(title string, raw []byte) (string, error) {
	fields, err := objectFields(raw)
	if err != nil {
		return "", err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, fld := range fields {
		t.AppendRow(table.Row{fld.Key, fld.Value})
	}

	return t.Render(), nil
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
