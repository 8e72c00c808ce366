package institution

import (
	"net/http"

	"mou-dashboard/internal/errors"
	"mou-dashboard/internal/store"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ShowValues(c *gin.Context) {
	wbsRoot := c.Param("wbs")

	institution := c.Query("institution")
	if institution == "" {
		c.Error(errors.BadRequest("institution is required", nil))
		return
	}
	collection := c.Query("snapshot_timestamp")
	if collection == "" {
		collection = store.LiveCollection
	}

	values, err := h.service.GetValues(c.Request.Context(), wbsRoot, collection, institution)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, values)
}

type UpsertValuesRequest struct {
	Institution        string `json:"institution" binding:"required"`
	PhdsAuthors        *int64 `json:"phds_authors"`
	Faculty            *int64 `json:"faculty"`
	ScientistsPostDocs *int64 `json:"scientists_post_docs"`
	GradStudents       *int64 `json:"grad_students"`
	Cpus               *int64 `json:"cpus"`
	Gpus               *int64 `json:"gpus"`
	Text               string `json:"text"`
}

func (h *Handler) UpsertValues(c *gin.Context) {
	wbsRoot := c.Param("wbs")

	var req UpsertValuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	values, err := h.service.UpsertValues(c.Request.Context(), wbsRoot, req.Institution, ValuesUpdate{
		PhdsAuthors:        req.PhdsAuthors,
		Faculty:            req.Faculty,
		ScientistsPostDocs: req.ScientistsPostDocs,
		GradStudents:       req.GradStudents,
		Cpus:               req.Cpus,
		Gpus:               req.Gpus,
		Text:               req.Text,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, values)
}

type ConfirmRequest struct {
	Institution string `json:"institution" binding:"required"`
	Headcounts  bool   `json:"headcounts"`
	Table       bool   `json:"table"`
	Computing   bool   `json:"computing"`
}

func (h *Handler) ConfirmValues(c *gin.Context) {
	wbsRoot := c.Param("wbs")

	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	values, err := h.service.ConfirmValues(
		c.Request.Context(),
		wbsRoot,
		req.Institution,
		req.Headcounts,
		req.Table,
		req.Computing,
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, values)
}

func (h *Handler) ShowTouchstone(c *gin.Context) {
	wbsRoot := c.Param("wbs")

	ts, err := h.service.GetTouchstone(c.Request.Context(), wbsRoot)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"confirmation_touchstone_ts": ts})
}

func (h *Handler) ResetTouchstone(c *gin.Context) {
	wbsRoot := c.Param("wbs")

	ts, err := h.service.Retouchstone(c.Request.Context(), wbsRoot)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"confirmation_touchstone_ts": ts})
}

func (h *Handler) ShowTodaysInstitutions(c *gin.Context) {
	institutions, err := h.service.TodaysInstitutions(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, institutions)
}
