package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "table", input: "table", want: FormatTable},
		{name: "empty defaults to table", input: "", want: FormatTable},
		{name: "JSON uppercase", input: "JSON", want: FormatJSON},
		{name: "yml alias", input: "yml", want: FormatYAML},
		{name: "whitespace trimmed", input: "  yaml  ", want: FormatYAML},
		{name: "invalid format", input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type handleRow struct {
	ID   int32  `json:"id" yaml:"id"`
	Path string `json:"path" yaml:"path"`
}

func TestPrinterPrint(t *testing.T) {
	table := NewTableData("ID", "Path")
	table.AddRow("1", "/data/a")

	tests := []struct {
		format Format
		data   any
		want   string
	}{
		{FormatTable, table, "/data/a"},
		{FormatTable, handleRow{ID: 1, Path: "/x"}, `"path": "/x"`}, // JSON fallback
		{FormatJSON, handleRow{ID: 2, Path: "/y"}, `"id": 2`},
		{FormatYAML, []handleRow{{ID: 3, Path: "/z"}}, "- id: 3\n  path: /z"},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewPrinter(&buf, tt.format, false).Print(tt.data))
			assert.Contains(t, buf.String(), tt.want)
		})
	}

	var buf bytes.Buffer
	assert.Error(t, NewPrinter(&buf, Format("xml"), false).Print(table))
}

func TestPrinterColors(t *testing.T) {
	var plain, colored bytes.Buffer
	NewPrinter(&plain, FormatTable, false).Success("done")
	NewPrinter(&colored, FormatTable, true).Error("failed")

	assert.Equal(t, "done\n", plain.String())
	assert.Equal(t, "\033[31mfailed\033[0m\n", colored.String())
}
