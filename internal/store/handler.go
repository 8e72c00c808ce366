package store

import (
	"encoding/base64"
	"net/http"
	"sort"
	"strings"

	"mou-dashboard/internal/columns"
	"mou-dashboard/internal/domain"
	"mou-dashboard/internal/errors"
	"mou-dashboard/internal/schema"
	"mou-dashboard/internal/totals"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service  Service
	registry *schema.Registry
	decoder  TableDecoder
}

func NewHandler(service Service, registry *schema.Registry, decoder TableDecoder) *Handler {
	return &Handler{service: service, registry: registry, decoder: decoder}
}

func (h *Handler) ShowTable(c *gin.Context) {
	wbsRoot := c.Param("wbs")

	collection := c.Query("snapshot")
	if collection == "" {
		collection = LiveCollection
	}
	institution := c.Query("institution")
	labor := c.Query("labor")

	// an edit session may ask for a just-deleted record back before
	// refetching the table
	if restoreID := c.Query("restore_id"); restoreID != "" {
		if _, _, err := h.service.RestoreRecord(c.Request.Context(), wbsRoot, restoreID, c.GetString("username")); err != nil {
			c.Error(err)
			return
		}
	}

	if err := h.registry.Refresh(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}

	table, err := h.service.GetTable(c.Request.Context(), wbsRoot, collection, institution, labor)
	if err != nil {
		c.Error(err)
		return
	}

	for i, record := range table {
		table[i], err = h.registry.AddOnTheFlyFields(record)
		if err != nil {
			c.Error(err)
			return
		}
	}

	if c.Query("total_rows") == "true" {
		// per-institution views drop empty subtotal lines and the
		// region breakdown
		onlyRowsWithData := institution != "" || labor != ""
		withRegionTotals := institution == ""

		totalRows, err := totals.GetTotalRows(h.registry, wbsRoot, table, onlyRowsWithData, withRegionTotals)
		if err != nil {
			c.Error(err)
			return
		}
		table = append(table, totalRows...)
	}

	sortTable(h.registry, table)
	c.JSON(http.StatusOK, table)
}

type IngestRequest struct {
	Base64File string `json:"base64_file" binding:"required"`
	Filename   string `json:"filename" binding:"required"`
	Creator    string `json:"creator" binding:"required"`
}

func (h *Handler) IngestTable(c *gin.Context) {
	wbsRoot := c.Param("wbs")

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	// browser uploads arrive as a data URL: strip the media-type prefix
	encoded := req.Base64File
	if i := strings.IndexByte(encoded, ','); i >= 0 {
		encoded = encoded[i+1:]
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		c.Error(errors.BadRequest("uploaded file is not valid base64", err))
		return
	}

	table, err := h.decoder.Decode(payload, req.Filename)
	if err != nil {
		c.Error(errors.BadRequest(err.Error(), err))
		return
	}

	if err := h.registry.Refresh(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}

	n, previous, current, err := h.service.IngestTable(c.Request.Context(), wbsRoot, table, req.Creator)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"n_records":         n,
		"previous_snapshot": previous,
		"current_snapshot":  current,
	})
}

type UpsertRecordRequest struct {
	Record domain.Record `json:"record" binding:"required"`
	Editor string        `json:"editor"`
}

func (h *Handler) UpsertRecord(c *gin.Context) {
	wbsRoot := c.Param("wbs")

	var req UpsertRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}
	editor := req.Editor
	if editor == "" {
		editor = c.GetString("username")
	}

	if err := h.registry.Refresh(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}

	record, values, err := h.service.UpsertRecord(c.Request.Context(), wbsRoot, req.Record, editor)
	if err != nil {
		c.Error(err)
		return
	}
	if record, err = h.withOnTheFly(record); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": record, "institution_values": values})
}

type DeleteRecordRequest struct {
	RecordID string `json:"record_id" binding:"required"`
	Editor   string `json:"editor"`
}

func (h *Handler) DeleteRecord(c *gin.Context) {
	wbsRoot := c.Param("wbs")

	var req DeleteRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}
	editor := req.Editor
	if editor == "" {
		editor = c.GetString("username")
	}

	record, values, err := h.service.DeleteRecord(c.Request.Context(), wbsRoot, req.RecordID, editor)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": record, "institution_values": values})
}

func (h *Handler) ListSnapshots(c *gin.Context) {
	wbsRoot := c.Param("wbs")
	withAdminOnly := c.Query("is_admin") == "true"

	snapshots, err := h.service.ListSnapshots(c.Request.Context(), wbsRoot, withAdminOnly)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, snapshots)
}

type MakeSnapshotRequest struct {
	Name    string `json:"name" binding:"required"`
	Creator string `json:"creator" binding:"required"`
}

func (h *Handler) MakeSnapshot(c *gin.Context) {
	wbsRoot := c.Param("wbs")

	var req MakeSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	info, err := h.service.SnapshotLiveCollection(c.Request.Context(), wbsRoot, req.Name, req.Creator, false)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

// withOnTheFly adds the derived fields when the record names an
// institution; a record without one has nothing to derive from.
func (h *Handler) withOnTheFly(record domain.Record) (domain.Record, error) {
	if v, _ := record[columns.Institution].(string); v == "" {
		return record, nil
	}
	return h.registry.AddOnTheFlyFields(record)
}

func sortTable(registry *schema.Registry, table domain.Table) {
	type keyedRecord struct {
		key    []string
		record domain.Record
	}
	rows := make([]keyedRecord, len(table))
	for i, record := range table {
		rows[i] = keyedRecord{key: registry.SortKey(record), record: record}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return lessKeys(rows[i].key, rows[j].key)
	})
	for i := range rows {
		table[i] = rows[i].record
	}
}

func lessKeys(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
