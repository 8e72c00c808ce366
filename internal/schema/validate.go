package schema

import (
	"errors"
	"fmt"

	"mou-dashboard/internal/domain"
	"mou-dashboard/internal/transcode"
)

// Schema violations come in two distinct flavors: a column the schema does
// not know at all, and a known column holding a disallowed value.
var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrBadValue      = errors.New("invalid dropdown value")
)

// ValidateRecord checks every dropdown-type value in the record against the
// schema. Keys may arrive in either wire or storage form.
func (r *Registry) ValidateRecord(wbsRoot string, record domain.Record) error {
	simple := r.GetSimpleDropdownMenus(wbsRoot)
	conditional := r.GetConditionalDropdownMenus(wbsRoot)
	known := map[string]bool{}
	for _, col := range r.GetColumns() {
		known[col] = true
	}

	for rawKey, value := range record {
		col := transcode.DecodeKey(rawKey)

		if !known[col] {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, col)
		}

		// Blanks are okay
		valStr := stringValue(value)
		if valStr == "" {
			continue
		}

		// Validate a simple dropdown column
		if options, ok := simple[col]; ok {
			if contains(options, valStr) {
				continue
			}
			return fmt.Errorf("%w: column %q value %q not in %v", ErrBadValue, col, valStr, options)
		}

		// Validate a conditional dropdown column
		if cond, ok := conditional[col]; ok {
			parentVal, parentPresent := lookupEither(record, cond.Parent)

			// Parent column is missing entirely (*NOT* a blank value):
			// validate against any/all parents
			if !parentPresent {
				if containsAny(cond.Options, valStr) {
					continue
				}
				return fmt.Errorf(
					"%w: column %q orphan value %q not in any option set", ErrBadValue, col, valStr,
				)
			}

			// An unset parent forbids setting the dependent
			if parentVal == "" {
				return fmt.Errorf(
					"%w: column %q has value %q but parent %q is blank", ErrBadValue, col, valStr, cond.Parent,
				)
			}

			if contains(cond.Options[parentVal], valStr) {
				continue
			}
			return fmt.Errorf(
				"%w: column %q value %q not allowed for %s=%q", ErrBadValue, col, valStr, cond.Parent, parentVal,
			)
		}
	}

	return nil
}

// lookupEither finds a column's value under its wire or storage key.
func lookupEither(record domain.Record, col string) (string, bool) {
	if v, ok := record[col]; ok {
		return stringValue(v), true
	}
	if v, ok := record[transcode.EncodeKey(col)]; ok {
		return stringValue(v), true
	}
	return "", false
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

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

func containsAny(optionsByParent map[string][]string, value string) bool {
	for _, options := range optionsByParent {
		if contains(options, value) {
			return true
		}
	}
	return false
}
