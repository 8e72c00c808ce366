package store

import (
	"context"
	"encoding/json"
	defError "errors"
	"fmt"
	"sync"
	"time"

	"mou-dashboard/internal/cache"
	"mou-dashboard/internal/columns"
	"mou-dashboard/internal/domain"
	"mou-dashboard/internal/errors"
	"mou-dashboard/internal/instvals"
	"mou-dashboard/internal/logger"
	"mou-dashboard/internal/schema"
	"mou-dashboard/internal/transcode"
	"mou-dashboard/internal/wbs"
	"mou-dashboard/internal/worker"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service interface {
	GetTable(ctx context.Context, wbsRoot, collection, institution, laborCat string) (domain.Table, error)
	UpsertRecord(ctx context.Context, wbsRoot string, record domain.Record, editor string) (domain.Record, *instvals.InstitutionValues, error)
	DeleteRecord(ctx context.Context, wbsRoot, recordID, editor string) (domain.Record, *instvals.InstitutionValues, error)
	RestoreRecord(ctx context.Context, wbsRoot, recordID, editor string) (domain.Record, *instvals.InstitutionValues, error)
	SnapshotLiveCollection(ctx context.Context, wbsRoot, name, creator string, adminOnly bool) (*domain.SnapshotInfo, error)
	IngestTable(ctx context.Context, wbsRoot string, table domain.Table, creator string) (int, *domain.SnapshotInfo, *domain.SnapshotInfo, error)
	ListSnapshots(ctx context.Context, wbsRoot string, withAdminOnly bool) ([]domain.SnapshotInfo, error)
	GetTouchstone(ctx context.Context, wbsRoot string) (int64, error)
	Retouchstone(ctx context.Context, wbsRoot string) (int64, error)
	GetInstitutionValues(ctx context.Context, wbsRoot, collection, institution string) (instvals.InstitutionValues, error)
	SetInstitutionValues(ctx context.Context, wbsRoot, institution string, values instvals.InstitutionValues) (instvals.InstitutionValues, error)
}

type DefaultService struct {
	repository Repository
	registry   *schema.Registry
	cache      *cache.Cache
	workers    *worker.WorkerPool
	log        *logger.Logger

	// injectable clock, frozen in tests
	now func() time.Time

	// one exclusive lock per WBS root: the ingest protocol's steps must not
	// interleave with a concurrent snapshot on the same root
	rootLocks map[string]*sync.Mutex
}

func NewService(
	repository Repository,
	registry *schema.Registry,
	c *cache.Cache,
	workers *worker.WorkerPool,
	log *logger.Logger,
) *DefaultService {
	locks := make(map[string]*sync.Mutex, len(wbs.Roots()))
	for _, root := range wbs.Roots() {
		locks[root] = &sync.Mutex{}
	}
	return &DefaultService{
		repository: repository,
		registry:   registry,
		cache:      c,
		workers:    workers,
		log:        log,
		now:        time.Now,
		rootLocks:  locks,
	}
}

func (s *DefaultService) GetTable(ctx context.Context, wbsRoot, collection, institution, laborCat string) (domain.Table, error) {
	if err := checkRootAndCollection(wbsRoot, collection); err != nil {
		return nil, err
	}
	if err := s.repository.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := s.requireInitialized(ctx, wbsRoot); err != nil {
		return nil, err
	}

	v := s.cache.GetVersion(ctx, versionKey(wbsRoot))
	cacheKey := tableCacheKey(wbsRoot, collection, v, institution, laborCat)
	var cached domain.Table
	if found, _ := s.cache.Get(ctx, cacheKey, &cached); found {
		return cached, nil
	}

	rows, err := s.repository.FindRows(ctx, wbsRoot, collection, institution, laborCat, false)
	if err != nil {
		return nil, err
	}

	table := make(domain.Table, 0, len(rows))
	for i := range rows {
		record, err := recordFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		table = append(table, record)
	}

	// the caller may decorate the returned records in place, so the cache
	// writer gets its own detached copy
	toCache := table.Clone()
	s.workers.Submit(func(ctx context.Context) error {
		s.cache.Set(ctx, cacheKey, toCache, 24*time.Hour)
		return nil
	})

	return table, nil
}

func (s *DefaultService) UpsertRecord(ctx context.Context, wbsRoot string, record domain.Record, editor string) (domain.Record, *instvals.InstitutionValues, error) {
	if err := checkRootAndCollection(wbsRoot, LiveCollection); err != nil {
		return nil, nil, err
	}
	if err := s.requireInitialized(ctx, wbsRoot); err != nil {
		return nil, nil, err
	}
	if err := s.registry.ValidateRecord(wbsRoot, record); err != nil {
		return nil, nil, errors.NewValidationError(err)
	}

	now := s.now().Unix()
	record = s.registry.RemoveOnTheFlyFields(record.Clone())
	record[columns.Timestamp] = now
	record[columns.Editor] = editor

	row, err := rowFromRecord(wbsRoot, LiveCollection, record)
	if err != nil {
		return nil, nil, errors.BadRequest(err.Error(), err)
	}
	if err := s.repository.SaveRow(ctx, row); err != nil {
		return nil, nil, err
	}
	s.bumpVersion(ctx, wbsRoot)

	stored, err := recordFromRow(row)
	if err != nil {
		return nil, nil, err
	}
	values, err := s.touchTableMetadata(ctx, wbsRoot, row.Institution, now)
	if err != nil {
		return nil, nil, err
	}
	return stored, values, nil
}

func (s *DefaultService) DeleteRecord(ctx context.Context, wbsRoot, recordID, editor string) (domain.Record, *instvals.InstitutionValues, error) {
	return s.setDeleted(ctx, wbsRoot, recordID, editor, true)
}

func (s *DefaultService) RestoreRecord(ctx context.Context, wbsRoot, recordID, editor string) (domain.Record, *instvals.InstitutionValues, error) {
	return s.setDeleted(ctx, wbsRoot, recordID, editor, false)
}

// setDeleted flips the soft-delete flag in place. The record stays in the
// live collection either way.
func (s *DefaultService) setDeleted(ctx context.Context, wbsRoot, recordID, editor string, deleted bool) (domain.Record, *instvals.InstitutionValues, error) {
	if err := checkRootAndCollection(wbsRoot, LiveCollection); err != nil {
		return nil, nil, err
	}
	id, err := uuid.Parse(recordID)
	if err != nil {
		return nil, nil, errors.BadRequest(fmt.Sprintf("invalid record identifier %q", recordID), err)
	}
	if err := s.requireInitialized(ctx, wbsRoot); err != nil {
		return nil, nil, err
	}

	row, err := s.repository.GetRow(ctx, wbsRoot, LiveCollection, id)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, errors.NotFound("record not found", err)
	}
	if err != nil {
		return nil, nil, err
	}

	now := s.now().Unix()
	row.Deleted = deleted
	row.Fields[columns.Timestamp] = now
	if editor != "" {
		row.Fields[columns.Editor] = editor
	}
	if err := s.repository.SaveRow(ctx, row); err != nil {
		return nil, nil, err
	}
	s.bumpVersion(ctx, wbsRoot)

	record, err := recordFromRow(row)
	if err != nil {
		return nil, nil, err
	}
	values, err := s.touchTableMetadata(ctx, wbsRoot, row.Institution, now)
	if err != nil {
		return nil, nil, err
	}
	return record, values, nil
}

func (s *DefaultService) SnapshotLiveCollection(ctx context.Context, wbsRoot, name, creator string, adminOnly bool) (*domain.SnapshotInfo, error) {
	if err := checkRootAndCollection(wbsRoot, LiveCollection); err != nil {
		return nil, err
	}
	lock := s.rootLocks[wbsRoot]
	lock.Lock()
	defer lock.Unlock()

	return s.snapshotLocked(ctx, wbsRoot, name, creator, adminOnly)
}

// snapshotLocked copies the live collection into a new snapshot collection.
// Callers hold the root lock.
func (s *DefaultService) snapshotLocked(ctx context.Context, wbsRoot, name, creator string, adminOnly bool) (*domain.SnapshotInfo, error) {
	doc, err := s.repository.GetSupplementalDoc(ctx, wbsRoot, LiveCollection)
	if defError.Is(err, ErrDocumentNotFound) {
		return nil, errors.UnprocessableEntity(
			fmt.Sprintf("no live collection exists yet for WBS root %q", wbsRoot), err)
	}
	if err != nil {
		return nil, err
	}

	if adminOnly {
		name += " (admin-only)"
	}
	ts := snapshotID(s.now())
	snapDoc := &SupplementalRow{
		WBS:                      wbsRoot,
		Collection:               ts,
		Timestamp:                ts,
		Name:                     name,
		Creator:                  creator,
		AdminOnly:                adminOnly,
		ConfirmationTouchstoneTs: doc.ConfirmationTouchstoneTs,
		InstValues:               doc.InstValues,
	}
	if err := s.repository.CopyCollection(ctx, wbsRoot, LiveCollection, ts, snapDoc); err != nil {
		return nil, err
	}

	s.log.Info("snapshot created", "wbs", wbsRoot, "timestamp", ts, "name", name, "admin_only", adminOnly)
	return &domain.SnapshotInfo{Timestamp: ts, Name: name, Creator: creator, AdminOnly: adminOnly}, nil
}

// IngestTable runs the multi-step ingest protocol: snapshot the current
// live table ("Before Import"), replace the live collection with the new
// table carrying the institution values forward, then snapshot the fresh
// live table ("Initial Import"). A failed schema check aborts before any
// snapshot is taken.
func (s *DefaultService) IngestTable(ctx context.Context, wbsRoot string, table domain.Table, creator string) (int, *domain.SnapshotInfo, *domain.SnapshotInfo, error) {
	if err := checkRootAndCollection(wbsRoot, LiveCollection); err != nil {
		return 0, nil, nil, err
	}
	for _, record := range table {
		if err := s.registry.ValidateRecord(wbsRoot, record); err != nil {
			return 0, nil, nil, errors.NewValidationError(err)
		}
	}

	lock := s.rootLocks[wbsRoot]
	lock.Lock()
	defer lock.Unlock()

	// step 1: back up the current live table; a root with no live table
	// yet is fine, the previous snapshot is simply absent
	previous, err := s.snapshotLocked(ctx, wbsRoot, "Before Import", creator+" (auto)", true)
	if err != nil && !defError.Is(err, ErrDocumentNotFound) {
		return 0, nil, nil, err
	}

	// step 2: read forward the previous live table's institution values
	carried := datatypes.JSON([]byte("{}"))
	if doc, err := s.repository.GetSupplementalDoc(ctx, wbsRoot, LiveCollection); err == nil {
		carried = doc.InstValues
	} else if !defError.Is(err, ErrDocumentNotFound) {
		return 0, nil, nil, err
	}

	// step 3: replace the live collection, re-stamping every record with a
	// blank editor, the current timestamp, and a fresh identifier
	now := s.now().Unix()
	rows := make([]RecordRow, 0, len(table))
	for _, record := range table {
		record = s.registry.RemoveOnTheFlyFields(record.Clone())
		delete(record, columns.ID)
		record[columns.Timestamp] = now
		record[columns.Editor] = ""

		row, err := rowFromRecord(wbsRoot, LiveCollection, record)
		if err != nil {
			return 0, nil, nil, errors.BadRequest(err.Error(), err)
		}
		rows = append(rows, *row)
	}
	liveDoc := &SupplementalRow{
		WBS:        wbsRoot,
		Collection: LiveCollection,
		Timestamp:  LiveCollection,
		Creator:    creator,
		InstValues: carried,
	}
	if err := s.repository.ReplaceCollection(ctx, wbsRoot, LiveCollection, rows, liveDoc); err != nil {
		return 0, nil, nil, err
	}
	// the live table just changed hands: invalidate cached reads now, not
	// after step 4, so a failed final snapshot cannot leave stale entries
	s.bumpVersion(ctx, wbsRoot)

	// step 4: mark the freshly replaced live table
	current, err := s.snapshotLocked(ctx, wbsRoot, "Initial Import", creator, true)
	if err != nil {
		return 0, nil, nil, err
	}

	s.bumpVersion(ctx, wbsRoot)
	s.log.Info("table ingested", "wbs", wbsRoot, "n_records", len(rows), "creator", creator)
	return len(rows), previous, current, nil
}

func (s *DefaultService) ListSnapshots(ctx context.Context, wbsRoot string, withAdminOnly bool) ([]domain.SnapshotInfo, error) {
	if !wbs.IsValidRoot(wbsRoot) {
		return nil, errors.BadRequest(fmt.Sprintf("unknown WBS root %q", wbsRoot), nil)
	}
	docs, err := s.repository.ListSupplementalDocs(ctx, wbsRoot)
	if err != nil {
		return nil, err
	}

	// most recent first; ListSupplementalDocs orders by collection DESC and
	// snapshot identities sort by creation time
	snapshots := make([]domain.SnapshotInfo, 0, len(docs))
	for _, doc := range docs {
		if doc.Collection == LiveCollection {
			continue
		}
		if doc.AdminOnly && !withAdminOnly {
			continue
		}
		snapshots = append(snapshots, domain.SnapshotInfo{
			Timestamp: doc.Timestamp,
			Name:      doc.Name,
			Creator:   doc.Creator,
			AdminOnly: doc.AdminOnly,
		})
	}
	return snapshots, nil
}

func (s *DefaultService) GetTouchstone(ctx context.Context, wbsRoot string) (int64, error) {
	doc, err := s.liveDoc(ctx, wbsRoot)
	if err != nil {
		return 0, err
	}
	return doc.ConfirmationTouchstoneTs, nil
}

// Retouchstone moves the live collection's touchstone to now, invalidating
// every institution's prior confirmations at once.
func (s *DefaultService) Retouchstone(ctx context.Context, wbsRoot string) (int64, error) {
	doc, err := s.liveDoc(ctx, wbsRoot)
	if err != nil {
		return 0, err
	}
	now := s.now().Unix()
	doc.ConfirmationTouchstoneTs = now
	if err := s.repository.PutSupplementalDoc(ctx, doc); err != nil {
		return 0, err
	}
	s.log.Info("touchstone reset", "wbs", wbsRoot, "touchstone_ts", now)
	return now, nil
}

// GetInstitutionValues reads one institution's values from a collection's
// supplemental document. A missing institution yields the zero-value
// default, persisted back only when reading the live collection. The
// document-level touchstone overrides the stored per-group touchstones.
func (s *DefaultService) GetInstitutionValues(ctx context.Context, wbsRoot, collection, institution string) (instvals.InstitutionValues, error) {
	var zero instvals.InstitutionValues
	if err := checkRootAndCollection(wbsRoot, collection); err != nil {
		return zero, err
	}

	doc, err := s.repository.GetSupplementalDoc(ctx, wbsRoot, collection)
	if defError.Is(err, ErrDocumentNotFound) {
		return zero, nil
	}
	if err != nil {
		return zero, err
	}

	values, err := decodeInstValues(doc.InstValues)
	if err != nil {
		return zero, err
	}
	current, ok := values[institution]
	if !ok && collection == LiveCollection {
		values[institution] = current
		if err := s.putInstValues(ctx, doc, values); err != nil {
			return zero, err
		}
	}
	return current.WithTouchstone(doc.ConfirmationTouchstoneTs), nil
}

// SetInstitutionValues rewrites one institution's values inside the live
// collection's supplemental document (whole-document rewrite).
func (s *DefaultService) SetInstitutionValues(ctx context.Context, wbsRoot, institution string, newValues instvals.InstitutionValues) (instvals.InstitutionValues, error) {
	var zero instvals.InstitutionValues
	doc, err := s.liveDoc(ctx, wbsRoot)
	if err != nil {
		return zero, err
	}
	values, err := decodeInstValues(doc.InstValues)
	if err != nil {
		return zero, err
	}
	values[institution] = newValues
	if err := s.putInstValues(ctx, doc, values); err != nil {
		return zero, err
	}
	return newValues.WithTouchstone(doc.ConfirmationTouchstoneTs), nil
}

// touchTableMetadata advances an institution's table-group last-edit
// timestamp after a record mutation. Records without an institution touch
// nothing.
func (s *DefaultService) touchTableMetadata(ctx context.Context, wbsRoot, institution string, now int64) (*instvals.InstitutionValues, error) {
	if institution == "" {
		return nil, nil
	}
	current, err := s.GetInstitutionValues(ctx, wbsRoot, LiveCollection, institution)
	if err != nil {
		return nil, err
	}
	updated, err := s.SetInstitutionValues(ctx, wbsRoot, institution, current.TouchTableEdit(now))
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *DefaultService) liveDoc(ctx context.Context, wbsRoot string) (*SupplementalRow, error) {
	if !wbs.IsValidRoot(wbsRoot) {
		return nil, errors.BadRequest(fmt.Sprintf("unknown WBS root %q", wbsRoot), nil)
	}
	doc, err := s.repository.GetSupplementalDoc(ctx, wbsRoot, LiveCollection)
	if defError.Is(err, ErrDocumentNotFound) {
		return nil, errors.NotFound(
			fmt.Sprintf("no supplemental document for WBS root %q", wbsRoot), err)
	}
	return doc, err
}

func (s *DefaultService) requireInitialized(ctx context.Context, wbsRoot string) error {
	collections, err := s.repository.ListCollections(ctx, wbsRoot)
	if err != nil {
		return err
	}
	if len(collections) == 0 {
		return errors.UnprocessableEntity(
			fmt.Sprintf("no collections exist yet for WBS root %q; ingest a table first", wbsRoot), nil)
	}
	return nil
}

func (s *DefaultService) bumpVersion(ctx context.Context, wbsRoot string) {
	s.cache.IncrementVersion(ctx, versionKey(wbsRoot))
}

func versionKey(wbsRoot string) string {
	return fmt.Sprintf("wbs:%s:table:version", wbsRoot)
}

// tableCacheKey derives the cache key for one filtered table read. The
// version component makes every key from before a mutation unreachable.
func tableCacheKey(wbsRoot, collection string, version int64, institution, laborCat string) string {
	return fmt.Sprintf("table:%s:%s:v:%d:i:%s:l:%s", wbsRoot, collection, version, institution, laborCat)
}

func checkRootAndCollection(wbsRoot, collection string) error {
	if !wbs.IsValidRoot(wbsRoot) {
		return errors.BadRequest(fmt.Sprintf("unknown WBS root %q", wbsRoot), nil)
	}
	if collection == "" {
		return errors.BadRequest("collection name cannot be empty", nil)
	}
	return nil
}

// snapshotID renders a timestamp as a fractional seconds-since-epoch
// string. Sub-second precision keeps the two back-to-back snapshots of one
// ingest distinct, and identities sort by creation time.
func snapshotID(t time.Time) string {
	return fmt.Sprintf("%.7f", float64(t.UnixNano())/1e9)
}

// rowFromRecord turns an already-validated wire record into its stored row.
// The record's keys are encoded, the identifier moves out of the field map
// into its own column (a fresh one is assigned when absent), and the
// institution and labor category are extracted for indexing.
func rowFromRecord(wbsRoot, collection string, record domain.Record) (*RecordRow, error) {
	encoded, err := transcode.EncodeDocument(record)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	if v, ok := encoded[columns.ID].(uuid.UUID); ok {
		id = v
	}
	delete(encoded, columns.ID)

	return &RecordRow{
		WBS:         wbsRoot,
		Collection:  collection,
		ID:          id,
		Institution: stringField(encoded, transcode.EncodeKey(columns.Institution)),
		LaborCat:    stringField(encoded, transcode.EncodeKey(columns.LaborCat)),
		Fields:      datatypes.JSONMap(encoded),
	}, nil
}

func recordFromRow(row *RecordRow) (domain.Record, error) {
	record := domain.Record(map[string]interface{}(row.Fields)).Clone()
	record[columns.ID] = row.ID
	return transcode.DecodeDocument(record)
}

func decodeInstValues(raw datatypes.JSON) (map[string]instvals.InstitutionValues, error) {
	values := map[string]instvals.InstitutionValues{}
	if len(raw) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("corrupt institution values blob: %w", err)
	}
	return values, nil
}

func (s *DefaultService) putInstValues(ctx context.Context, doc *SupplementalRow, values map[string]instvals.InstitutionValues) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	doc.InstValues = datatypes.JSON(raw)
	return s.repository.PutSupplementalDoc(ctx, doc)
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
