package schema

import (
	"fmt"

	"mou-dashboard/internal/columns"
	"mou-dashboard/internal/domain"
)

// RemoveOnTheFlyFields deletes every computed field from the record, in
// place. The grand total is the one persist-worthy computed value: if the
// record has no explicit FTE, the grand total is copied into it first.
func (r *Registry) RemoveOnTheFlyFields(record domain.Record) domain.Record {
	for _, field := range r.GetOnTheFlyColumns() {
		if _, ok := record[field]; !ok {
			continue
		}
		// copy over grand total to FTE
		if field == columns.GrandTotal {
			if _, ok := record[columns.FTE]; !ok {
				record[columns.FTE] = record[field]
			}
		}
		delete(record, field)
	}
	return record
}

// AddOnTheFlyFields derives the computed fields for display, in place. The
// record must name an institution, since the region and the funding-source
// sub-column depend on it. Idempotent.
func (r *Registry) AddOnTheFlyFields(record domain.Record) (domain.Record, error) {
	record = r.RemoveOnTheFlyFields(record)

	inst := stringValue(record[columns.Institution])
	if inst == "" {
		return nil, fmt.Errorf("record has no institution, cannot derive on-the-fly fields: %v", record)
	}

	record[columns.USNonUS] = r.UsOrNonUs(inst)
	// a non-US institution has exactly one funding source
	if record[columns.USNonUS] == columns.NonUS {
		record[columns.SourceOfFundsUSOnly] = columns.NonUSInKind
	}

	// FTE fields
	if fte, ok := record[columns.FTE]; ok {
		source := stringValue(record[columns.SourceOfFundsUSOnly])
		if contains(columns.FundingSources, source) {
			record[source] = fte
		}
		record[columns.GrandTotal] = fte
	}

	return record, nil
}
