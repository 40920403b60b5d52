package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func captureStderr(f func()) string {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	f()

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestSuccess(t *testing.T) {
	output := captureStdout(func() {
		Success("Test successful")
	})

	assert.Contains(t, output, "✓")
	assert.Contains(t, output, "Test successful")
}

func TestError(t *testing.T) {
	output := captureStderr(func() {
		Error("Test error")
	})

	assert.Contains(t, output, "✗")
	assert.Contains(t, output, "Test error")
}

func TestError_WithFormatting(t *testing.T) {
	output := captureStderr(func() {
		Error("Failed to connect to %s on port %d", "server", 8080)
	})

	assert.Contains(t, output, "✗")
	assert.Contains(t, output, "Failed to connect to server on port 8080")
}

func TestInfo(t *testing.T) {
	output := captureStdout(func() {
		Info("Information message")
	})

	assert.Contains(t, output, "Information message")
	assert.NotContains(t, output, "✓") // Info doesn't have checkmark
	assert.NotContains(t, output, "✗")
}

func TestWarn(t *testing.T) {
	output := captureStdout(func() {
		Warn("Warning message")
	})

	assert.Contains(t, output, "⚠")
	assert.Contains(t, output, "Warning message")
}

func TestJSON_Simple(t *testing.T) {
	data := map[string]interface{}{
		"name":  "test",
		"count": 42,
	}

	output := captureStdout(func() {
		err := JSON(data)
		assert.NoError(t, err)
	})

	// Verify it's valid JSON
	var parsed map[string]interface{}
	err := json.Unmarshal([]byte(output), &parsed)
	require.NoError(t, err)

	assert.Equal(t, "test", parsed["name"])
	assert.Equal(t, float64(42), parsed["count"])
}

func TestJSON_Indented(t *testing.T) {
	data := map[string]interface{}{
		"user": map[string]interface{}{
			"name": "alice",
			"id":   123,
		},
	}

	output := captureStdout(func() {
		err := JSON(data)
		assert.NoError(t, err)
	})

	// Check for indentation (2 spaces)
	assert.Contains(t, output, "  \"user\":")
	assert.Contains(t, output, "    \"name\":")
}

func TestNewTable(t *testing.T) {
	headers := []string{"Name", "Age", "City"}
	table := NewTable(headers)

	assert.NotNil(t, table)
	assert.Equal(t, headers, table.headers)
	assert.Empty(t, table.rows)
}

func TestTable_AddRow(t *testing.T) {
	table := NewTable([]string{"Col1", "Col2"})

	table.AddRow([]string{"val1", "val2"})
	table.AddRow([]string{"val3", "val4"})

	assert.Len(t, table.rows, 2)
	assert.Equal(t, []string{"val1", "val2"}, table.rows[0])
	assert.Equal(t, []string{"val3", "val4"}, table.rows[1])
}

func TestTable_Render_Empty(t *testing.T) {
	table := NewTable([]string{"Name", "Status"})

	output := captureStdout(func() {
		table.Render()
	})

	// Should have header and separator
	assert.Contains(t, output, "Name")
	assert.Contains(t, output, "Status")
	assert.Contains(t, output, "----") // Separator
}

func TestTable_Render_ColumnAlignment(t *testing.T) {
	table := NewTable([]string{"Short", "VeryLongHeader"})
	table.AddRow([]string{"A", "B"})
	table.AddRow([]string{"LongValue", "C"})

	output := captureStdout(func() {
		table.Render()
	})

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.GreaterOrEqual(t, len(lines), 4) // Header, separator, 2 rows

	// Header line should have proper spacing
	headerLine := lines[0]
	assert.Contains(t, headerLine, "Short")
	assert.Contains(t, headerLine, "VeryLongHeader")

	// Separator should match column widths
	separatorLine := lines[1]
	assert.Contains(t, separatorLine, "----")

	// Data rows should align
	row1 := lines[2]
	row2 := lines[3]
	assert.Contains(t, row1, "A")
	assert.Contains(t, row1, "B")
	assert.Contains(t, row2, "LongValue")
	assert.Contains(t, row2, "C")
}

func TestYAML(t *testing.T) {
	data := struct {
		Name  string   `yaml:"name"`
		Items []string `yaml:"items"`
	}{Name: "maze", Items: []string{"raw", "solved"}}

	output := captureStdout(func() {
		assert.NoError(t, YAML(data))
	})

	assert.Contains(t, output, "name: maze")
	assert.Contains(t, output, "items:")
	assert.Contains(t, output, "  - raw")
}

func TestPrint(t *testing.T) {
	table := NewTable([]string{"ID"})
	table.AddRow([]string{"abc"})
	data := map[string]string{"id": "abc"}

	tests := []struct {
		name   string
		format string
		want   string
	}{
		{name: "table", format: FormatTable, want: "----"},
		{name: "default", format: "", want: "ID"},
		{name: "json", format: FormatJSON, want: `"id": "abc"`},
		{name: "yaml", format: "YAML", want: "id: abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureStdout(func() {
				assert.NoError(t, Print(tt.format, data, table))
			})
			assert.Contains(t, output, tt.want)
		})
	}
}

func TestPrint_UnknownFormat(t *testing.T) {
	err := Print("xml", nil, NewTable(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestTable_Render_UppercasesHeaders(t *testing.T) {
	table := NewTable([]string{"Seq", "Raw"})
	table.AddRow([]string{"12", "2026-10-19/abc/raw.jpg"})

	output := captureStdout(func() {
		table.Render()
	})

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "SEQ  RAW"))
	assert.Equal(t, "---  "+strings.Repeat("-", len("2026-10-19/abc/raw.jpg"))+"  ", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "12   2026-10-19/abc/raw.jpg"))
}

func TestTable_Render_ExtraCellsIgnored(t *testing.T) {
	table := NewTable([]string{"ID"})
	table.AddRow([]string{"m-1", "unexpected"})

	output := captureStdout(func() {
		table.Render()
	})

	assert.Contains(t, output, "m-1")
	assert.NotContains(t, output, "unexpected")
}
