package totals

// Cascading subtotal rows: per L2/L3 region subtotals, L3 totals, L2
// totals, and one overall grand total. Sums accumulate exactly (decimal,
// from the string-formatted FTE) and convert to floating point only at the
// end, so float error cannot build up across hundreds of rows.

import (
	"fmt"
	"strings"

	"mou-dashboard/internal/columns"
	"mou-dashboard/internal/domain"
	"mou-dashboard/internal/schema"
	"mou-dashboard/internal/wbs"

	"github.com/shopspring/decimal"
)

// Kinds of total rows, recognized from the Total Of? label.
type Kind int

const (
	KindUSTotal Kind = iota
	KindNonUSTotal
	KindL3Total
	KindL2Total
	KindGrandTotal
)

const (
	labelUSTotal    = "US TOTAL"
	labelNonUSTotal = "NON-US TOTAL"
	labelL3Total    = "L3 TOTAL"
	labelL2Total    = "L2 TOTAL"
	labelGrandTotal = "GRAND TOTAL"
)

// Classify maps a total row's label to its kind. A label that matches no
// recognized kind should never occur; it signals an internal defect.
func Classify(label string) (Kind, error) {
	switch {
	case strings.HasPrefix(label, labelNonUSTotal):
		return KindNonUSTotal, nil
	case strings.HasPrefix(label, labelUSTotal):
		return KindUSTotal, nil
	case strings.HasPrefix(label, labelL3Total):
		return KindL3Total, nil
	case strings.HasPrefix(label, labelL2Total):
		return KindL2Total, nil
	case strings.HasPrefix(label, labelGrandTotal):
		return KindGrandTotal, nil
	default:
		return 0, fmt.Errorf("total row with unrecognized label: %q", label)
	}
}

// GetTotalRows computes the subtotal rows for a table. Rows that are
// themselves total rows, or whose FTE is blank/zero/unset, contribute to no
// sum. With onlyRowsWithData, rows whose grand total is exactly zero are
// dropped, except the final overall grand-total row.
func GetTotalRows(
	reg *schema.Registry,
	wbsRoot string,
	table domain.Table,
	onlyRowsWithData bool,
	withRegionTotals bool,
) (domain.Table, error) {
	rows := domain.Table{}

	for _, l2 := range wbs.L2Values(wbsRoot) {
		for _, l3 := range wbs.L3Values(wbsRoot, l2) {
			if withRegionTotals {
				for _, region := range []string{columns.US, columns.NonUS} {
					row := sumRows(table, matchL3Region(l2, l3, region))
					row[columns.WBSL2] = l2
					row[columns.WBSL3] = l3
					row[columns.USNonUS] = region
					row[columns.TotalCol] = regionLabel(region) + " | " + l3
					rows = append(rows, row)
				}
			}

			row := sumRows(table, matchL3(l2, l3))
			row[columns.WBSL2] = l2
			row[columns.WBSL3] = l3
			row[columns.TotalCol] = labelL3Total + " | " + l3
			rows = append(rows, row)
		}

		row := sumRows(table, matchL2(l2))
		row[columns.WBSL2] = l2
		row[columns.TotalCol] = labelL2Total + " | " + l2
		rows = append(rows, row)
	}

	grand := sumRows(table, func(domain.Record) bool { return true })
	grand[columns.TotalCol] = labelGrandTotal
	rows = append(rows, grand)

	if !onlyRowsWithData {
		return rows, nil
	}

	filtered := domain.Table{}
	for _, row := range rows {
		kind, err := Classify(stringValue(row[columns.TotalCol]))
		if err != nil {
			return nil, err
		}
		if kind == KindGrandTotal || row[columns.GrandTotal] != float64(0) {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

func regionLabel(region string) string {
	if region == columns.NonUS {
		return labelNonUSTotal
	}
	return labelUSTotal
}

func matchL2(l2 string) func(domain.Record) bool {
	return func(rec domain.Record) bool {
		return stringValue(rec[columns.WBSL2]) == l2
	}
}

func matchL3(l2, l3 string) func(domain.Record) bool {
	return func(rec domain.Record) bool {
		return stringValue(rec[columns.WBSL2]) == l2 &&
			stringValue(rec[columns.WBSL3]) == l3
	}
}

func matchL3Region(l2, l3, region string) func(domain.Record) bool {
	return func(rec domain.Record) bool {
		return stringValue(rec[columns.WBSL2]) == l2 &&
			stringValue(rec[columns.WBSL3]) == l3 &&
			stringValue(rec[columns.USNonUS]) == region
	}
}

// sumRows builds one total row by accumulating every matching data row's
// FTE into its funding-source bucket and the grand total.
func sumRows(table domain.Table, match func(domain.Record) bool) domain.Record {
	perSource := map[string]decimal.Decimal{}
	grand := decimal.Zero

	for _, rec := range table {
		// total rows never feed other total rows
		if stringValue(rec[columns.TotalCol]) != "" {
			continue
		}
		fte, ok := fteValue(rec)
		if !ok || fte.IsZero() {
			continue
		}
		if !match(rec) {
			continue
		}

		source := stringValue(rec[columns.SourceOfFundsUSOnly])
		if _, recognized := perSource[source]; recognized || containsSource(source) {
			perSource[source] = perSource[source].Add(fte)
		}
		grand = grand.Add(fte)
	}

	row := domain.Record{}
	for _, source := range columns.FundingSources {
		row[source] = perSource[source].InexactFloat64()
	}
	row[columns.GrandTotal] = grand.InexactFloat64()
	return row
}

func fteValue(rec domain.Record) (decimal.Decimal, bool) {
	raw, ok := rec[columns.FTE]
	if !ok || raw == nil {
		return decimal.Zero, false
	}
	str := strings.TrimSpace(fmt.Sprint(raw))
	if str == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func containsSource(source string) bool {
	for _, s := range columns.FundingSources {
		if s == source {
			return true
		}
	}
	return false
}

func stringValue(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
