package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDocumentNotFound means no supplemental document exists for the
// collection. Read paths may degrade to defaults; write paths must not.
var ErrDocumentNotFound = errors.New("no supplemental document for collection")

// ErrCorruptDocument means a supplemental document's stored identity
// disagrees with its collection name. Never auto-corrected.
var ErrCorruptDocument = errors.New("supplemental document identity mismatch")

type Repository interface {
	ListCollections(ctx context.Context, wbs string) ([]string, error)
	FindRows(ctx context.Context, wbs, collection, institution, laborCat string, includeDeleted bool) ([]RecordRow, error)
	GetRow(ctx context.Context, wbs, collection string, id uuid.UUID) (*RecordRow, error)
	SaveRow(ctx context.Context, row *RecordRow) error
	ReplaceCollection(ctx context.Context, wbs, collection string, rows []RecordRow, doc *SupplementalRow) error
	CopyCollection(ctx context.Context, wbs, from, to string, doc *SupplementalRow) error
	GetSupplementalDoc(ctx context.Context, wbs, collection string) (*SupplementalRow, error)
	ListSupplementalDocs(ctx context.Context, wbs string) ([]SupplementalRow, error)
	PutSupplementalDoc(ctx context.Context, doc *SupplementalRow) error
	EnsureIndexes(ctx context.Context) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// ListCollections enumerates a WBS root's collections through their
// supplemental documents, which exist one-per-collection.
func (r *RepositoryImpl) ListCollections(ctx context.Context, wbs string) ([]string, error) {
	var collections []string
	err := r.db.WithContext(ctx).
		Model(&SupplementalRow{}).
		Where("wbs = ?", wbs).
		Order("collection ASC").
		Pluck("collection", &collections).Error
	return collections, err
}

func (r *RepositoryImpl) FindRows(ctx context.Context, wbs, collection, institution, laborCat string, includeDeleted bool) ([]RecordRow, error) {
	var rows []RecordRow

	q := r.db.WithContext(ctx).
		Where("wbs = ? AND collection = ?", wbs, collection)
	if !includeDeleted {
		q = q.Where("deleted = ?", false)
	}
	if institution != "" {
		q = q.Where("institution = ?", institution)
	}
	if laborCat != "" {
		q = q.Where("labor_cat = ?", laborCat)
	}

	err := q.Find(&rows).Error
	return rows, err
}

func (r *RepositoryImpl) GetRow(ctx context.Context, wbs, collection string, id uuid.UUID) (*RecordRow, error) {
	var row RecordRow
	err := r.db.WithContext(ctx).
		Where("wbs = ? AND collection = ? AND id = ?", wbs, collection, id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveRow inserts or replaces one record row in place (same identifier).
func (r *RepositoryImpl) SaveRow(ctx context.Context, row *RecordRow) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}

// ReplaceCollection swaps a collection's entire contents and supplemental
// document in one transaction. This is the ingest protocol's replace step.
func (r *RepositoryImpl) ReplaceCollection(ctx context.Context, wbs, collection string, rows []RecordRow, doc *SupplementalRow) error {
	if err := checkIdentity(doc); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("wbs = ? AND collection = ?", wbs, collection).
			Delete(&RecordRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("wbs = ? AND collection = ?", wbs, collection).
			Delete(&SupplementalRow{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return err
			}
		}
		return tx.Create(doc).Error
	})
}

// CopyCollection duplicates every record row of one collection under a new
// collection identity and writes the new collection's supplemental document.
// Deleted rows are copied too so a snapshot is a faithful image of live.
func (r *RepositoryImpl) CopyCollection(ctx context.Context, wbs, from, to string, doc *SupplementalRow) error {
	if err := checkIdentity(doc); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []RecordRow
		if err := tx.Where("wbs = ? AND collection = ?", wbs, from).
			Find(&rows).Error; err != nil {
			return err
		}
		for i := range rows {
			rows[i].Collection = to
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return err
			}
		}
		return tx.Create(doc).Error
	})
}

func (r *RepositoryImpl) GetSupplementalDoc(ctx context.Context, wbs, collection string) (*SupplementalRow, error) {
	var doc SupplementalRow
	err := r.db.WithContext(ctx).
		Where("wbs = ? AND collection = ?", wbs, collection).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := checkIdentity(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *RepositoryImpl) ListSupplementalDocs(ctx context.Context, wbs string) ([]SupplementalRow, error) {
	var docs []SupplementalRow
	err := r.db.WithContext(ctx).
		Where("wbs = ?", wbs).
		Order("collection DESC").
		Find(&docs).Error
	return docs, err
}

func (r *RepositoryImpl) PutSupplementalDoc(ctx context.Context, doc *SupplementalRow) error {
	if err := checkIdentity(doc); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(doc).Error
}

// EnsureIndexes lazily creates the non-unique institution and labor
// category indexes. Idempotent; runs before table reads.
func (r *RepositoryImpl) EnsureIndexes(ctx context.Context) error {
	m := r.db.WithContext(ctx).Migrator()
	for _, field := range []string{"Institution", "LaborCat"} {
		if m.HasIndex(&RecordRow{}, field) {
			continue
		}
		if err := m.CreateIndex(&RecordRow{}, field); err != nil {
			return err
		}
	}
	return nil
}

func checkIdentity(doc *SupplementalRow) error {
	if doc.Timestamp != doc.Collection {
		return fmt.Errorf("%w: timestamp %q in collection %q",
			ErrCorruptDocument, doc.Timestamp, doc.Collection)
	}
	return nil
}
