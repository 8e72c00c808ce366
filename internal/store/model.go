package store

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LiveCollection is the single mutable collection per WBS root. Every other
// collection identity is an immutable snapshot timestamp.
const LiveCollection = "LIVE"

// RecordRow is one stored record of one collection. Institution and labor
// category are extracted from the field map into dedicated indexed columns;
// the field map itself stays opaque JSON keyed by storage-safe field names.
type RecordRow struct {
	WBS         string            `gorm:"primaryKey;size:32"`
	Collection  string            `gorm:"primaryKey;size:64"`
	ID          uuid.UUID         `gorm:"primaryKey;type:uuid"`
	Institution string            `gorm:"index"`
	LaborCat    string            `gorm:"index"`
	Deleted     bool              `gorm:"not null;default:false"`
	Fields      datatypes.JSONMap `gorm:"not null"`
}

func (RecordRow) TableName() string {
	return "records"
}

// SupplementalRow is the supplemental document of one collection: snapshot
// metadata, the confirmation touchstone, and the whole per-institution
// values map as one JSON blob, rewritten whole-row on every mutation.
//
// Timestamp repeats the collection identity inside the row. The two must
// always agree; a mismatch means the store is corrupt.
type SupplementalRow struct {
	WBS                      string         `gorm:"primaryKey;size:32"`
	Collection               string         `gorm:"primaryKey;size:64"`
	Timestamp                string         `gorm:"size:64"`
	Name                     string
	Creator                  string
	AdminOnly                bool           `gorm:"not null;default:false"`
	ConfirmationTouchstoneTs int64          `gorm:"not null;default:0"`
	InstValues               datatypes.JSON `gorm:"not null"`
}

func (SupplementalRow) TableName() string {
	return "supplemental_docs"
}
