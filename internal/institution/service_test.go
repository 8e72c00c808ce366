package institution

import (
	"context"
	"testing"
	"time"

	"mou-dashboard/internal/cache"
	"mou-dashboard/internal/directory"
	"mou-dashboard/internal/domain"
	"mou-dashboard/internal/errors"
	"mou-dashboard/internal/logger"
	"mou-dashboard/internal/schema"
	"mou-dashboard/internal/store"
	"mou-dashboard/internal/wbs"
	"mou-dashboard/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeDirectory struct{}

func (fakeDirectory) TodaysInstitutions(ctx context.Context) ([]directory.Institution, error) {
	return []directory.Institution{
		{ShortName: "LBNL", LongName: "Lawrence Berkeley National Laboratory", IsUS: true, HasMOU: true, InstitutionLeadUID: "mcurie"},
		{ShortName: "DESY", LongName: "Deutsches Elektronen-Synchrotron", IsUS: false, HasMOU: true, InstitutionLeadUID: "lmeitner"},
	}, nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(50 * time.Millisecond)
	return c.t
}

// newTestService wires a real store on an in-memory database so the ledger
// round-trips through the supplemental document like it does in production.
func newTestService(t *testing.T) (*DefaultService, *fakeClock) {
	t.Helper()

	dsn := "file:inst_" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&store.RecordRow{}, &store.SupplementalRow{}))

	registry, err := schema.NewRegistry(context.Background(), fakeDirectory{}, time.Hour)
	require.NoError(t, err)

	log := logger.NewNop()
	clock := &fakeClock{t: time.Unix(1700000000, 0)}

	storeService := store.NewService(store.NewRepository(db), registry, cache.NewWithClient(nil, log), worker.NewWorkerPool(1, log), log)
	_, _, _, err = storeService.IngestTable(context.Background(), wbs.MO, domain.Table{}, "admin")
	require.NoError(t, err)

	service := NewService(storeService, fakeDirectory{})
	service.now = clock.Now
	return service, clock
}

func int64p(v int64) *int64 {
	return &v
}

func TestGetValues_DefaultForUnknownInstitution(t *testing.T) {
	service, _ := newTestService(t)

	values, err := service.GetValues(context.Background(), wbs.MO, store.LiveCollection, "LBNL")

	require.NoError(t, err)
	assert.Nil(t, values.PhdsAuthors)
	assert.Equal(t, "", values.Text)
	assert.True(t, values.HeadcountsMetadata.HasValidConfirmation())
}

func TestUpsertValues_AdvancesOnlyChangedGroups(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	first, err := service.UpsertValues(ctx, wbs.MO, "LBNL", ValuesUpdate{
		PhdsAuthors: int64p(3),
		Cpus:        int64p(100),
	})
	require.NoError(t, err)
	assert.NotZero(t, first.HeadcountsMetadata.LastEditTs)
	assert.NotZero(t, first.ComputingMetadata.LastEditTs)
	assert.Zero(t, first.TableMetadata.LastEditTs)

	// same values again: nothing advances
	second, err := service.UpsertValues(ctx, wbs.MO, "LBNL", ValuesUpdate{
		PhdsAuthors: int64p(3),
		Cpus:        int64p(100),
	})
	require.NoError(t, err)
	assert.Equal(t, first.HeadcountsMetadata.LastEditTs, second.HeadcountsMetadata.LastEditTs)
	assert.Equal(t, first.ComputingMetadata.LastEditTs, second.ComputingMetadata.LastEditTs)

	// a computing-only change leaves headcounts alone
	third, err := service.UpsertValues(ctx, wbs.MO, "LBNL", ValuesUpdate{
		PhdsAuthors: int64p(3),
		Cpus:        int64p(100),
		Gpus:        int64p(8),
	})
	require.NoError(t, err)
	assert.Equal(t, first.HeadcountsMetadata.LastEditTs, third.HeadcountsMetadata.LastEditTs)
	assert.Greater(t, third.ComputingMetadata.LastEditTs, first.ComputingMetadata.LastEditTs)
}

func TestConfirmValues_RejectsReconfirmation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.UpsertValues(ctx, wbs.MO, "LBNL", ValuesUpdate{PhdsAuthors: int64p(3)})
	require.NoError(t, err)

	confirmed, err := service.ConfirmValues(ctx, wbs.MO, "LBNL", true, false, false)
	require.NoError(t, err)
	assert.True(t, confirmed.HeadcountsMetadata.HasValidConfirmation())

	_, err = service.ConfirmValues(ctx, wbs.MO, "LBNL", true, false, false)
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.Status)
}

func TestConfirmValues_EditReopensConfirmation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.UpsertValues(ctx, wbs.MO, "LBNL", ValuesUpdate{PhdsAuthors: int64p(3)})
	require.NoError(t, err)
	_, err = service.ConfirmValues(ctx, wbs.MO, "LBNL", true, false, false)
	require.NoError(t, err)

	// an edit invalidates the confirmation
	updated, err := service.UpsertValues(ctx, wbs.MO, "LBNL", ValuesUpdate{PhdsAuthors: int64p(5)})
	require.NoError(t, err)
	assert.False(t, updated.HeadcountsMetadata.HasValidConfirmation())

	// confirming again is now allowed
	confirmed, err := service.ConfirmValues(ctx, wbs.MO, "LBNL", true, false, false)
	require.NoError(t, err)
	assert.True(t, confirmed.HeadcountsMetadata.HasValidConfirmation())
}

func TestRetouchstone_InvalidatesEveryConfirmation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.UpsertValues(ctx, wbs.MO, "LBNL", ValuesUpdate{PhdsAuthors: int64p(3), Cpus: int64p(100)})
	require.NoError(t, err)
	_, err = service.ConfirmValues(ctx, wbs.MO, "LBNL", true, false, true)
	require.NoError(t, err)

	ts, err := service.Retouchstone(ctx, wbs.MO)
	require.NoError(t, err)
	assert.NotZero(t, ts)

	got, err := service.GetTouchstone(ctx, wbs.MO)
	require.NoError(t, err)
	assert.Equal(t, ts, got)

	values, err := service.GetValues(ctx, wbs.MO, store.LiveCollection, "LBNL")
	require.NoError(t, err)
	assert.False(t, values.HeadcountsMetadata.HasValidConfirmation())
	assert.False(t, values.TableMetadata.HasValidConfirmation())
	assert.False(t, values.ComputingMetadata.HasValidConfirmation())

	// last edits are untouched by a touchstone reset
	assert.NotZero(t, values.HeadcountsMetadata.LastEditTs)
}

func TestTodaysInstitutions_KeyedByShortName(t *testing.T) {
	service, _ := newTestService(t)

	institutions, err := service.TodaysInstitutions(context.Background())

	require.NoError(t, err)
	require.Len(t, institutions, 2)
	assert.Equal(t, "mcurie", institutions["LBNL"].InstitutionLeadUID)
	assert.False(t, institutions["DESY"].IsUS)
}
