package schema

import (
	"net/http"

	"mou-dashboard/internal/errors"
	"mou-dashboard/internal/wbs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// ShowTableConfig returns the per-WBS-root column schema snapshot.
func (h *Handler) ShowTableConfig(c *gin.Context) {
	if err := h.registry.Refresh(c.Request.Context()); err != nil {
		c.Error(errors.Internal(err))
		return
	}

	tableConfig := gin.H{}
	for _, root := range wbs.Roots() {
		tableConfig[root] = gin.H{
			"columns":                    h.registry.GetColumns(),
			"simple_dropdown_menus":      h.registry.GetSimpleDropdownMenus(root),
			"labor_categories":           h.registry.GetLaborCategories(),
			"conditional_dropdown_menus": h.registry.GetConditionalDropdownMenus(root),
			"dropdowns":                  h.registry.GetDropdowns(root),
			"numerics":                   h.registry.GetNumericColumns(),
			"non_editables":              h.registry.GetNonEditableColumns(),
			"hiddens":                    h.registry.GetHiddenColumns(),
			"mandatories":                h.registry.GetMandatoryColumns(),
			"tooltips":                   h.registry.GetTooltips(),
			"widths":                     h.registry.GetWidths(),
			"border_left_columns":        h.registry.GetBorderLeftColumns(),
			"page_size":                  h.registry.GetPageSize(),
		}
	}

	c.JSON(http.StatusOK, tableConfig)
}
