package schema

import (
	"testing"

	"mou-dashboard/internal/columns"
	"mou-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestAddOnTheFlyFields_US(t *testing.T) {
	registry, _ := newTestRegistry(t)

	record, err := registry.AddOnTheFlyFields(domain.Record{
		columns.Institution:         "LBNL",
		columns.SourceOfFundsUSOnly: columns.NSFMOCore,
		columns.FTE:                 0.5,
	})

	assert.NoError(t, err)
	assert.Equal(t, columns.US, record[columns.USNonUS])
	assert.Equal(t, 0.5, record[columns.NSFMOCore])
	assert.Equal(t, 0.5, record[columns.GrandTotal])
	_, ok := record[columns.NonUSInKind]
	assert.False(t, ok)
}

func TestAddOnTheFlyFields_NonUSForcesFundingSource(t *testing.T) {
	registry, _ := newTestRegistry(t)

	record, err := registry.AddOnTheFlyFields(domain.Record{
		columns.Institution:         "DESY",
		columns.SourceOfFundsUSOnly: columns.NSFMOCore, // stale, gets overridden
		columns.FTE:                 1.0,
	})

	assert.NoError(t, err)
	assert.Equal(t, columns.NonUS, record[columns.USNonUS])
	assert.Equal(t, columns.NonUSInKind, record[columns.SourceOfFundsUSOnly])
	assert.Equal(t, 1.0, record[columns.NonUSInKind])
	assert.Equal(t, 1.0, record[columns.GrandTotal])
}

func TestAddOnTheFlyFields_NoInstitution(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.AddOnTheFlyFields(domain.Record{columns.FTE: 1.0})

	assert.Error(t, err)
}

func TestAddOnTheFlyFields_Idempotent(t *testing.T) {
	registry, _ := newTestRegistry(t)

	first, err := registry.AddOnTheFlyFields(domain.Record{
		columns.Institution:         "LBNL",
		columns.SourceOfFundsUSOnly: columns.USInKind,
		columns.FTE:                 0.25,
	})
	assert.NoError(t, err)

	second, err := registry.AddOnTheFlyFields(first.Clone())
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRemoveOnTheFlyFields(t *testing.T) {
	registry, _ := newTestRegistry(t)

	record := registry.RemoveOnTheFlyFields(domain.Record{
		columns.Institution: "LBNL",
		columns.USNonUS:     columns.US,
		columns.FTE:         0.5,
		columns.NSFMOCore:   0.5,
		columns.GrandTotal:  0.5,
	})

	assert.Equal(t, domain.Record{
		columns.Institution: "LBNL",
		columns.FTE:         0.5,
	}, record)
}

func TestRemoveOnTheFlyFields_GrandTotalCopyback(t *testing.T) {
	registry, _ := newTestRegistry(t)

	// no explicit FTE: the grand total survives as the FTE
	record := registry.RemoveOnTheFlyFields(domain.Record{
		columns.Institution: "LBNL",
		columns.GrandTotal:  0.75,
	})

	assert.Equal(t, 0.75, record[columns.FTE])
	_, ok := record[columns.GrandTotal]
	assert.False(t, ok)
}
