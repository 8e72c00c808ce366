package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"mou-dashboard/internal/columns"
	"mou-dashboard/internal/domain"
)

// TableDecoder turns an uploaded file into a table of flat records.
type TableDecoder interface {
	Decode(payload []byte, filename string) (domain.Table, error)
}

// JSONTableDecoder parses an uploaded JSON array of records. Blank rows and
// rows that are themselves subtotal lines (spreadsheets exported from the
// UI include them) are skipped before ingest.
type JSONTableDecoder struct{}

func (JSONTableDecoder) Decode(payload []byte, filename string) (domain.Table, error) {
	var raw []map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse %q as a record table: %w", filename, err)
	}

	table := make(domain.Table, 0, len(raw))
	for _, row := range raw {
		record := domain.Record(row)
		if isTotalRow(record) || !rowHasData(record) {
			continue
		}
		table = append(table, record)
	}
	return table, nil
}

func isTotalRow(record domain.Record) bool {
	for _, col := range []string{columns.WBSL2, columns.WBSL3, columns.USNonUS, columns.Institution, columns.TotalCol} {
		if v, ok := record[col].(string); ok &&
			strings.Contains(strings.ToUpper(v), "TOTAL") {
			return true
		}
	}
	return false
}

// The WBS and region columns only group rows; a row whose other cells are
// all empty (or zero) carries no allocation data.
var groupingColumns = map[string]bool{
	columns.WBSL2:   true,
	columns.WBSL3:   true,
	columns.USNonUS: true,
}

func rowHasData(record domain.Record) bool {
	for k, v := range record {
		if groupingColumns[k] {
			continue
		}
		switch t := v.(type) {
		case nil:
		case string:
			if strings.TrimSpace(t) != "" {
				return true
			}
		case float64:
			if t != 0 {
				return true
			}
		case bool:
			if t {
				return true
			}
		default:
			return true
		}
	}
	return false
}
