package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableData(t *testing.T) {
	table := NewTableData("ID", "Mode", "Path")
	assert.Equal(t, []string{"ID", "Mode", "Path"}, table.Headers())
	assert.Empty(t, table.Rows())

	table.AddRow("1", "read", "/a")
	table.AddRow("2", "write", "/b")

	rows := table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2", "write", "/b"}, rows[1])
}

func TestPrintTable(t *testing.T) {
	table := NewTableData("Owner", "Offset")
	table.AddRow("10.0.0.1:4000", "4096")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, table))

	out := buf.String()
	assert.Contains(t, out, "OWNER")
	assert.Contains(t, out, "OFFSET")
	assert.Contains(t, out, "10.0.0.1:4000")
	assert.Contains(t, out, "4096")
}

func TestKeyValue(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, KeyValue(&buf, [][2]string{
		{"Broker", "127.0.0.1:9400"},
		{"Status", "OK"},
	}))

	out := buf.String()
	assert.Contains(t, out, "Broker")
	assert.Contains(t, out, "127.0.0.1:9400")
	assert.Contains(t, out, "OK")
}
