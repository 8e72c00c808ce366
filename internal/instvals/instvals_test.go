package instvals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func int64p(v int64) *int64 {
	return &v
}

func TestHasValidConfirmation(t *testing.T) {
	// the vacuous zero state counts as confirmed
	assert.True(t, AttributeMetadata{}.HasValidConfirmation())

	assert.True(t, AttributeMetadata{
		LastEditTs:     100,
		ConfirmationTs: 100,
	}.HasValidConfirmation())

	// an edit after confirmation invalidates it
	assert.False(t, AttributeMetadata{
		LastEditTs:     200,
		ConfirmationTs: 100,
	}.HasValidConfirmation())

	// a touchstone after confirmation invalidates it without any edit
	assert.False(t, AttributeMetadata{
		LastEditTs:               100,
		ConfirmationTs:           150,
		ConfirmationTouchstoneTs: 200,
	}.HasValidConfirmation())
}

func TestComputeLastEdits_PerGroupDiff(t *testing.T) {
	current := InstitutionValues{
		PhdsAuthors: int64p(3),
		Faculty:     int64p(2),
		Cpus:        int64p(100),
		Gpus:        int64p(4),
	}

	// change one headcount field only
	updated := current.ComputeLastEdits(
		int64p(5), int64p(2), nil, nil,
		int64p(100), int64p(4),
		"", 1000,
	)

	assert.Equal(t, int64(1000), updated.HeadcountsMetadata.LastEditTs)
	assert.Equal(t, int64(0), updated.ComputingMetadata.LastEditTs)
	assert.Equal(t, int64(0), updated.TableMetadata.LastEditTs)
	assert.Equal(t, int64p(5), updated.PhdsAuthors)
}

func TestComputeLastEdits_ComputingOnly(t *testing.T) {
	current := InstitutionValues{Cpus: int64p(100), Gpus: int64p(4)}

	updated := current.ComputeLastEdits(
		nil, nil, nil, nil,
		int64p(100), int64p(8),
		"", 2000,
	)

	assert.Equal(t, int64(0), updated.HeadcountsMetadata.LastEditTs)
	assert.Equal(t, int64(2000), updated.ComputingMetadata.LastEditTs)
}

func TestComputeLastEdits_TextOnlyTouchesNothing(t *testing.T) {
	current := InstitutionValues{PhdsAuthors: int64p(3), Text: "old"}

	updated := current.ComputeLastEdits(
		int64p(3), nil, nil, nil,
		nil, nil,
		"new notes", 3000,
	)

	assert.Equal(t, "new notes", updated.Text)
	assert.Equal(t, int64(0), updated.HeadcountsMetadata.LastEditTs)
	assert.Equal(t, int64(0), updated.ComputingMetadata.LastEditTs)
}

func TestComputeLastEdits_NilVersusZero(t *testing.T) {
	current := InstitutionValues{Faculty: nil}

	// nil -> 0 is a real change
	updated := current.ComputeLastEdits(
		nil, int64p(0), nil, nil,
		nil, nil,
		"", 4000,
	)

	assert.Equal(t, int64(4000), updated.HeadcountsMetadata.LastEditTs)
}

func TestConfirm_ConfirmsRequestedGroups(t *testing.T) {
	current := InstitutionValues{
		HeadcountsMetadata: AttributeMetadata{LastEditTs: 100},
		ComputingMetadata:  AttributeMetadata{LastEditTs: 100},
	}

	confirmed, err := current.Confirm(true, false, true, 500)

	assert.NoError(t, err)
	assert.Equal(t, int64(500), confirmed.HeadcountsMetadata.ConfirmationTs)
	assert.Equal(t, int64(500), confirmed.ComputingMetadata.ConfirmationTs)
	assert.Equal(t, int64(0), confirmed.TableMetadata.ConfirmationTs)
	assert.True(t, confirmed.HeadcountsMetadata.HasValidConfirmation())
}

func TestConfirm_RejectsReconfirmation(t *testing.T) {
	current := InstitutionValues{
		HeadcountsMetadata: AttributeMetadata{LastEditTs: 100, ConfirmationTs: 200},
	}

	_, err := current.Confirm(true, false, false, 500)

	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestConfirm_ValidAgainAfterTouchstone(t *testing.T) {
	current := InstitutionValues{
		HeadcountsMetadata: AttributeMetadata{LastEditTs: 100, ConfirmationTs: 200},
	}

	// a touchstone reset invalidates the confirmation, so confirming again
	// is allowed
	reset := current.WithTouchstone(300)
	assert.False(t, reset.HeadcountsMetadata.HasValidConfirmation())

	confirmed, err := reset.Confirm(true, false, false, 400)
	assert.NoError(t, err)
	assert.True(t, confirmed.HeadcountsMetadata.HasValidConfirmation())
}

func TestTouchTableEdit(t *testing.T) {
	current := InstitutionValues{
		TableMetadata: AttributeMetadata{LastEditTs: 100, ConfirmationTs: 200},
	}

	touched := current.TouchTableEdit(300)

	assert.Equal(t, int64(300), touched.TableMetadata.LastEditTs)
	assert.False(t, touched.TableMetadata.HasValidConfirmation())
	// other groups untouched
	assert.Equal(t, int64(0), touched.HeadcountsMetadata.LastEditTs)
}

func TestWithTouchstone_CoversAllGroups(t *testing.T) {
	out := InstitutionValues{}.WithTouchstone(900)

	assert.Equal(t, int64(900), out.HeadcountsMetadata.ConfirmationTouchstoneTs)
	assert.Equal(t, int64(900), out.TableMetadata.ConfirmationTouchstoneTs)
	assert.Equal(t, int64(900), out.ComputingMetadata.ConfirmationTouchstoneTs)
}
