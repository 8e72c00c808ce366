package store

import (
	"encoding/json"
	"testing"

	"mou-dashboard/internal/columns"
	"mou-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRows(t *testing.T, rows []map[string]interface{}) domain.Table {
	t.Helper()
	payload, err := json.Marshal(rows)
	require.NoError(t, err)
	table, err := JSONTableDecoder{}.Decode(payload, "upload.json")
	require.NoError(t, err)
	return table
}

func TestDecode_KeepsDataRows(t *testing.T) {
	table := decodeRows(t, []map[string]interface{}{
		{columns.WBSL2: "2.5 Software", columns.Institution: "LBNL", columns.Name: "Curie, Marie", columns.FTE: 0.5},
	})
	require.Len(t, table, 1)
	assert.Equal(t, "LBNL", table[0][columns.Institution])
}

func TestDecode_SkipsGroupingOnlyRows(t *testing.T) {
	// spreadsheet exports carry rows whose only populated cells are the
	// WBS / region grouping columns
	table := decodeRows(t, []map[string]interface{}{
		{
			columns.WBSL2:       "2.5 Software",
			columns.WBSL3:       "2.5.1 Core Software",
			columns.USNonUS:     "US",
			columns.Institution: "",
			columns.Name:        nil,
		},
		{columns.WBSL2: "2.5 Software", columns.Institution: "LBNL", columns.Name: "Curie, Marie", columns.FTE: 0.5},
	})
	require.Len(t, table, 1)
	assert.Equal(t, "Curie, Marie", table[0][columns.Name])
}

func TestDecode_TreatsZeroAsNoData(t *testing.T) {
	table := decodeRows(t, []map[string]interface{}{
		{columns.WBSL2: "2.5 Software", columns.Institution: "", columns.FTE: float64(0)},
	})
	assert.Empty(t, table)
}

func TestDecode_SkipsExportedTotalRows(t *testing.T) {
	table := decodeRows(t, []map[string]interface{}{
		{columns.Institution: "US TOTAL", columns.FTE: 1.5},
		{columns.WBSL2: "L2 TOTAL | 2.5 Software", columns.FTE: 2.5},
	})
	assert.Empty(t, table)
}

func TestDecode_RejectsNonTablePayload(t *testing.T) {
	_, err := JSONTableDecoder{}.Decode([]byte(`{"not": "a table"}`), "upload.json")
	assert.Error(t, err)
}
