package instvals

import "errors"

// ErrAlreadyConfirmed means a confirmation was requested for an attribute
// group whose existing confirmation is still valid. Rejected so the
// confirmation timestamp cannot churn.
var ErrAlreadyConfirmed = errors.New("attribute group already has a valid confirmation")

// AttributeMetadata tracks an attribute group's edit/confirmation state.
// Validity is always derived from the three timestamps; there is no stored
// confirmed/unconfirmed flag to drift out of sync.
type AttributeMetadata struct {
	LastEditTs               int64 `json:"last_edit_ts"`
	ConfirmationTs           int64 `json:"confirmation_ts"`
	ConfirmationTouchstoneTs int64 `json:"confirmation_touchstone_ts"`
}

// HasValidConfirmation reports whether the confirmation stands.
// Using `>=` passes the null case where everything is 0.
func (m AttributeMetadata) HasValidConfirmation() bool {
	return m.ConfirmationTs >= m.LastEditTs &&
		m.ConfirmationTs >= m.ConfirmationTouchstoneTs
}

// InstitutionValues are the reported values for an institution. Numeric
// fields are nullable: unset and zero are distinct.
type InstitutionValues struct {
	PhdsAuthors        *int64 `json:"phds_authors"`
	Faculty            *int64 `json:"faculty"`
	ScientistsPostDocs *int64 `json:"scientists_post_docs"`
	GradStudents       *int64 `json:"grad_students"`
	Cpus               *int64 `json:"cpus"`
	Gpus               *int64 `json:"gpus"`
	Text               string `json:"text"`

	HeadcountsMetadata AttributeMetadata `json:"headcounts_metadata"`
	TableMetadata      AttributeMetadata `json:"table_metadata"`
	ComputingMetadata  AttributeMetadata `json:"computing_metadata"`
}

// ComputeLastEdits returns a copy holding the new values, advancing each
// attribute group's last-edit timestamp only if that group actually changed.
// Text-only changes advance no group.
func (v InstitutionValues) ComputeLastEdits(
	phdsAuthors, faculty, scientistsPostDocs, gradStudents, cpus, gpus *int64,
	text string,
	now int64,
) InstitutionValues {
	out := v

	if !eq(v.PhdsAuthors, phdsAuthors) ||
		!eq(v.Faculty, faculty) ||
		!eq(v.ScientistsPostDocs, scientistsPostDocs) ||
		!eq(v.GradStudents, gradStudents) {
		out.HeadcountsMetadata.LastEditTs = now
	}
	if !eq(v.Cpus, cpus) || !eq(v.Gpus, gpus) {
		out.ComputingMetadata.LastEditTs = now
	}

	out.PhdsAuthors = phdsAuthors
	out.Faculty = faculty
	out.ScientistsPostDocs = scientistsPostDocs
	out.GradStudents = gradStudents
	out.Cpus = cpus
	out.Gpus = gpus
	out.Text = text

	return out
}

// Confirm returns a copy with the requested attribute groups confirmed at
// `now`. Confirming a group that is already validly confirmed is a caller
// error (ErrAlreadyConfirmed).
func (v InstitutionValues) Confirm(headcounts, table, computing bool, now int64) (InstitutionValues, error) {
	out := v

	if headcounts {
		if v.HeadcountsMetadata.HasValidConfirmation() {
			return v, ErrAlreadyConfirmed
		}
		out.HeadcountsMetadata.ConfirmationTs = now
	}
	if table {
		if v.TableMetadata.HasValidConfirmation() {
			return v, ErrAlreadyConfirmed
		}
		out.TableMetadata.ConfirmationTs = now
	}
	if computing {
		if v.ComputingMetadata.HasValidConfirmation() {
			return v, ErrAlreadyConfirmed
		}
		out.ComputingMetadata.ConfirmationTs = now
	}

	return out, nil
}

// TouchTableEdit returns a copy with the table group's last-edit timestamp
// advanced to `now`.
func (v InstitutionValues) TouchTableEdit(now int64) InstitutionValues {
	out := v
	out.TableMetadata.LastEditTs = now
	return out
}

// WithTouchstone returns a copy with every attribute group's touchstone
// set to `ts`. The supplemental document's touchstone is the authority.
func (v InstitutionValues) WithTouchstone(ts int64) InstitutionValues {
	out := v
	out.HeadcountsMetadata.ConfirmationTouchstoneTs = ts
	out.TableMetadata.ConfirmationTouchstoneTs = ts
	out.ComputingMetadata.ConfirmationTouchstoneTs = ts
	return out
}

func eq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
