package schema

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mou-dashboard/internal/columns"
	"mou-dashboard/internal/directory"
	"mou-dashboard/internal/domain"
	"mou-dashboard/internal/wbs"
)

// ColumnConfig is the static metadata for one column.
type ColumnConfig struct {
	Width int

	Tooltip            string
	NonEditable        bool
	Hidden             bool
	Mandatory          bool
	Options            []string
	SortValue          int
	ConditionalParent  string
	ConditionalOptions map[string][]string
	BorderLeft         bool
	OnTheFly           bool
	Numeric            bool
}

var laborCategories = map[string]string{
	// Science
	"KE": "Key Personnel (Faculty Members)",
	"SC": "Scientist",
	"PO": "Postdoctoral Associates",
	"GR": "Graduate Students (PhD Students)",
	// Technical
	"AD": "Administration",
	"CS": "Computer Science",
	"DS": "Data Science",
	"EN": "Engineering",
	"IT": "Information Technology",
	"MA": "Manager",
	"WO": "Winterover",
}

var taskCategories = []string{"Custom", "Intro", "Open", "Standard"}

// LaborCategory pairs a labor category's full name with its abbreviation.
type LaborCategory struct {
	Name   string `json:"name"`
	Abbrev string `json:"abbrev"`
}

// Registry is the authoritative, cached column-schema definition. The
// institution-dependent parts are rebuilt from the directory service once
// the cache is older than the TTL.
type Registry struct {
	client directory.Client
	ttl    time.Duration

	mu            sync.RWMutex
	columnConfigs map[string]ColumnConfig
	columnOrder   []string
	institutions  []directory.Institution
	builtAt       time.Time

	now func() time.Time
}

// NewRegistry builds the initial table config. A directory failure here is
// fatal to the caller.
func NewRegistry(ctx context.Context, client directory.Client, ttl time.Duration) (*Registry, error) {
	r := &Registry{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
	if err := r.rebuild(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Refresh rebuilds the institution-dependent parts of the config once the
// cache age exceeds the TTL. Otherwise it is a no-op.
func (r *Registry) Refresh(ctx context.Context) error {
	r.mu.RLock()
	fresh := r.now().Sub(r.builtAt) < r.ttl
	r.mu.RUnlock()
	if fresh {
		return nil
	}
	return r.rebuild(ctx)
}

func (r *Registry) rebuild(ctx context.Context) error {
	institutions, err := r.client.TodaysInstitutions(ctx)
	if err != nil {
		return fmt.Errorf("building table config: %w", err)
	}

	instOptions := make([]string, 0, len(institutions))
	seen := map[string]bool{}
	for _, inst := range institutions {
		if !seen[inst.ShortName] {
			instOptions = append(instOptions, inst.ShortName)
			seen[inst.ShortName] = true
		}
	}
	sort.Strings(instOptions)

	laborOptions := make([]string, 0, len(laborCategories))
	for abbrev := range laborCategories {
		laborOptions = append(laborOptions, abbrev)
	}
	sort.Strings(laborOptions)

	tooltipFundingSourceValue := "This number is dependent on the Funding Source and FTE. " +
		"Changing those values will affect this number."

	configs := map[string]ColumnConfig{
		columns.WBSL2: {
			Width:     115,
			SortValue: 70,
			Tooltip:   "WBS Level 2 Category",
			Mandatory: true,
		},
		columns.WBSL3: {
			Width:     115,
			SortValue: 60,
			Tooltip:   "WBS Level 3 Category",
			Mandatory: true,
		},
		columns.USNonUS: {
			Width:       50,
			NonEditable: true,
			Hidden:      true,
			BorderLeft:  true,
			OnTheFly:    true,
			SortValue:   50,
			Tooltip:     "The institution's region. This cannot be changed.",
		},
		columns.Institution: {
			Width:      70,
			Options:    instOptions,
			BorderLeft: true,
			SortValue:  40,
			Tooltip:    "The institution. This cannot be changed.",
			Mandatory:  true,
		},
		columns.LaborCat: {
			Width:     50,
			Options:   laborOptions,
			SortValue: 30,
			Tooltip:   "The labor category",
			Mandatory: true,
		},
		columns.Name: {
			Width:     100,
			SortValue: 20,
			Tooltip:   "LastName, FirstName",
			Mandatory: true,
		},
		columns.Task: {
			Width:       75,
			SortValue:   25,
			Options:     taskCategories,
			Tooltip:     "Task category",
			NonEditable: true,
			Hidden:      true,
		},
		columns.TaskDescription: {
			Width:   200,
			Tooltip: "A description of the task",
		},
		columns.SourceOfFundsUSOnly: {
			Width:             100,
			ConditionalParent: columns.USNonUS,
			ConditionalOptions: map[string][]string{
				columns.US: {
					columns.NSFMOCore,
					columns.NSFBaseGrants,
					columns.USInKind,
				},
				columns.NonUS: {columns.NonUSInKind},
			},
			BorderLeft: true,
			SortValue:  10,
			Tooltip:    "The funding source",
			Mandatory:  true,
		},
		columns.FTE: {
			Width:     50,
			Numeric:   true,
			Tooltip:   "FTE for funding source",
			Mandatory: true,
		},
		columns.TotalCol: {
			Width:       100,
			NonEditable: true,
			Hidden:      true,
			BorderLeft:  true,
			OnTheFly:    true,
			Tooltip:     "TOTAL-ROWS ONLY: FTE totals to the right refer to this category.",
		},
		columns.NSFMOCore: {
			Width:       50,
			NonEditable: true,
			Hidden:      true,
			Numeric:     true,
			OnTheFly:    true,
			Tooltip:     tooltipFundingSourceValue,
		},
		columns.NSFBaseGrants: {
			Width:       50,
			NonEditable: true,
			Hidden:      true,
			Numeric:     true,
			OnTheFly:    true,
			Tooltip:     tooltipFundingSourceValue,
		},
		columns.USInKind: {
			Width:       50,
			NonEditable: true,
			Hidden:      true,
			Numeric:     true,
			OnTheFly:    true,
			Tooltip:     tooltipFundingSourceValue,
		},
		columns.NonUSInKind: {
			Width:       50,
			NonEditable: true,
			Hidden:      true,
			Numeric:     true,
			OnTheFly:    true,
			Tooltip:     tooltipFundingSourceValue,
		},
		columns.GrandTotal: {
			Width:       50,
			Numeric:     true,
			NonEditable: true,
			Hidden:      true,
			BorderLeft:  true,
			OnTheFly:    true,
			Tooltip:     "This is the total of the four FTEs to the left.",
		},
		columns.ID: {
			Width:       0,
			NonEditable: true,
			BorderLeft:  true,
			Hidden:      true,
		},
		columns.Timestamp: {
			Width:       100,
			NonEditable: true,
			BorderLeft:  true,
			Hidden:      true,
			Tooltip:     columns.Timestamp + " (you may need to refresh to reflect a recent update)",
		},
		columns.Editor: {
			Width:       100,
			NonEditable: true,
			Hidden:      true,
			Tooltip:     columns.Editor + " (you may need to refresh to reflect a recent update)",
		},
	}

	order := []string{
		columns.WBSL2,
		columns.WBSL3,
		columns.USNonUS,
		columns.Institution,
		columns.LaborCat,
		columns.Name,
		columns.Task,
		columns.TaskDescription,
		columns.SourceOfFundsUSOnly,
		columns.FTE,
		columns.TotalCol,
		columns.NSFMOCore,
		columns.NSFBaseGrants,
		columns.USInKind,
		columns.NonUSInKind,
		columns.GrandTotal,
		columns.ID,
		columns.Timestamp,
		columns.Editor,
	}

	r.mu.Lock()
	r.columnConfigs = configs
	r.columnOrder = order
	r.institutions = institutions
	r.builtAt = r.now()
	r.mu.Unlock()

	return nil
}

// UsOrNonUs returns "US" or "Non-US" per institution name, "" if unknown.
func (r *Registry) UsOrNonUs(instName string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inst := range r.institutions {
		if inst.ShortName == instName {
			if inst.IsUS {
				return columns.US
			}
			return columns.NonUS
		}
	}
	return ""
}

// Institutions returns the cached institution directory entries.
func (r *Registry) Institutions() []directory.Institution {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]directory.Institution, len(r.institutions))
	copy(out, r.institutions)
	return out
}

func (r *Registry) GetColumns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.columnOrder))
	copy(out, r.columnOrder)
	return out
}

func (r *Registry) GetLaborCategories() []LaborCategory {
	abbrevs := make([]string, 0, len(laborCategories))
	for abbrev := range laborCategories {
		abbrevs = append(abbrevs, abbrev)
	}
	sort.Strings(abbrevs)

	out := make([]LaborCategory, 0, len(abbrevs))
	for _, abbrev := range abbrevs {
		out = append(out, LaborCategory{Name: laborCategories[abbrev], Abbrev: abbrev})
	}
	return out
}

// GetSimpleDropdownMenus returns the simple-dropdown columns with their
// options, for a WBS root.
func (r *Registry) GetSimpleDropdownMenus(wbsRoot string) map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := map[string][]string{}
	for col, config := range r.columnConfigs {
		if len(config.Options) > 0 {
			ret[col] = config.Options
		}
	}
	ret[columns.WBSL2] = wbs.L2Values(wbsRoot)
	return ret
}

// GetConditionalDropdownMenus returns the conditionally-dropdown columns:
// column name to (parent column, options keyed by parent value).
func (r *Registry) GetConditionalDropdownMenus(wbsRoot string) map[string]ConditionalDropdown {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := map[string]ConditionalDropdown{}
	for col, config := range r.columnConfigs {
		if config.ConditionalParent != "" && config.ConditionalOptions != nil {
			ret[col] = ConditionalDropdown{
				Parent:  config.ConditionalParent,
				Options: config.ConditionalOptions,
			}
		}
	}
	ret[columns.WBSL3] = ConditionalDropdown{
		Parent:  columns.WBSL2,
		Options: wbs.L3ValuesByL2(wbsRoot),
	}
	return ret
}

// ConditionalDropdown describes a column whose options depend on the value
// of a parent column.
type ConditionalDropdown struct {
	Parent  string              `json:"parent"`
	Options map[string][]string `json:"options"`
}

func (r *Registry) GetDropdowns(wbsRoot string) []string {
	out := []string{}
	for col := range r.GetSimpleDropdownMenus(wbsRoot) {
		out = append(out, col)
	}
	for col := range r.GetConditionalDropdownMenus(wbsRoot) {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) GetNumericColumns() []string {
	return r.filterColumns(func(c ColumnConfig) bool { return c.Numeric })
}

func (r *Registry) GetNonEditableColumns() []string {
	return r.filterColumns(func(c ColumnConfig) bool { return c.NonEditable })
}

func (r *Registry) GetHiddenColumns() []string {
	return r.filterColumns(func(c ColumnConfig) bool { return c.Hidden })
}

func (r *Registry) GetMandatoryColumns() []string {
	return r.filterColumns(func(c ColumnConfig) bool { return c.Mandatory })
}

func (r *Registry) GetOnTheFlyColumns() []string {
	return r.filterColumns(func(c ColumnConfig) bool { return c.OnTheFly })
}

func (r *Registry) GetBorderLeftColumns() []string {
	return r.filterColumns(func(c ColumnConfig) bool { return c.BorderLeft })
}

func (r *Registry) filterColumns(pred func(ColumnConfig) bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []string{}
	for _, col := range r.columnOrder {
		if pred(r.columnConfigs[col]) {
			out = append(out, col)
		}
	}
	return out
}

func (r *Registry) GetWidths() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]int{}
	for col, config := range r.columnConfigs {
		out[col] = config.Width
	}
	return out
}

func (r *Registry) GetTooltips() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]string{}
	for col, config := range r.columnConfigs {
		if config.Tooltip != "" {
			out[col] = config.Tooltip
		}
	}
	return out
}

func (r *Registry) GetPageSize() int {
	return 19
}

// sortEmptyLast sorts empty/missing values after everything else.
const sortEmptyLast = "ZZZZ"

// SortKey builds a composite sort key from each column's configured sort
// precedence, highest precedence first. Missing values sort last.
func (r *Registry) SortKey(record domain.Record) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type colOrder struct {
		col   string
		value int
	}
	orders := []colOrder{}
	for _, col := range r.columnOrder {
		if sv := r.columnConfigs[col].SortValue; sv > 0 {
			orders = append(orders, colOrder{col, sv})
		}
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].value > orders[j].value })

	keys := make([]string, 0, len(orders))
	for _, o := range orders {
		val, ok := record[o.col]
		if !ok || val == nil || val == "" {
			keys = append(keys, sortEmptyLast)
			continue
		}
		keys = append(keys, fmt.Sprint(val))
	}
	return keys
}
