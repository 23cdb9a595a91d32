package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableCSV(t *testing.T) {
	table := NewTable("student_id", "date", "status")
	table.AddRow("s1", "2026-04-01", "PRESENT")
	table.AddRow("s2", "2026-04-01")

	out, err := table.CSV()
	require.NoError(t, err)
	assert.Equal(t, "student_id,date,status\ns1,2026-04-01,PRESENT\ns2,2026-04-01,\n", string(out))
	assert.Equal(t, 2, table.Len())
}

func TestTableCSVQuotesCells(t *testing.T) {
	table := NewTable("remarks")
	table.AddRow(`fever, sent home`)

	out, err := table.CSV()
	require.NoError(t, err)
	assert.Equal(t, "remarks\n\"fever, sent home\"\n", string(out))
}

func TestTableCSVRequiresColumns(t *testing.T) {
	_, err := NewTable().CSV()
	assert.Error(t, err)
}
