package handlers

import (
	"github.com/gin-gonic/gin"

	"padihub/internal/domain"
	"padihub/internal/domain/deduction"
	"padihub/internal/domain/season"
	"padihub/internal/infrastructure/http/v1/dto"
)

// SeasonHandler serves the season catalog and its presets.
type SeasonHandler struct {
	*BaseHandler
	seasons *season.Service
}

// NewSeasonHandler creates a season handler.
func NewSeasonHandler(base *BaseHandler, seasons *season.Service) *SeasonHandler {
	return &SeasonHandler{
		BaseHandler: base,
		seasons:     seasons,
	}
}

// RegisterRoutes mounts the season endpoints.
func (h *SeasonHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/active", h.GetActive)
	rg.GET("/active/presets", h.ActivePresets)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/activate", h.Activate)
}

func (h *SeasonHandler) parsePresets(c *gin.Context, payloads []dto.PresetPayload) (season.PresetList, bool) {
	presets := make(season.PresetList, 0, len(payloads))
	for _, p := range payloads {
		lines, ok := h.ParseDeductionLines(c, p.Deductions)
		if !ok {
			return nil, false
		}
		presets = append(presets, deduction.Preset{Name: p.Name, Deductions: lines})
	}
	return presets, true
}

// Create creates a harvest season.
func (h *SeasonHandler) Create(c *gin.Context) {
	var req dto.CreateSeasonRequest
	if !h.BindJSON(c, &req) {
		return
	}
	presets, ok := h.parsePresets(c, req.Presets)
	if !ok {
		return
	}

	s := season.NewSeason(req.Name)
	s.Presets = presets

	if err := h.seasons.Create(c.Request.Context(), s); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, s.ID.String())
}

// List returns seasons.
func (h *SeasonHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := domain.DefaultListFilter()
	filter.Search = q.Search
	if q.OrderBy != "" {
		filter.OrderBy = q.OrderBy
	} else {
		filter.OrderBy = "-start_date"
	}
	if q.Limit > 0 {
		filter.Limit = q.Limit
	}
	filter.Offset = q.Offset

	result, err := h.seasons.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get returns one season.
func (h *SeasonHandler) Get(c *gin.Context) {
	seasonID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	s, err := h.seasons.GetByID(c.Request.Context(), seasonID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// GetActive returns the active season.
func (h *SeasonHandler) GetActive(c *gin.Context) {
	s, err := h.seasons.GetActive(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// ActivePresets returns the active season's preset catalog.
func (h *SeasonHandler) ActivePresets(c *gin.Context) {
	presets, err := h.seasons.ActivePresets(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, presets)
}

// Update replaces a season's name and preset catalog.
func (h *SeasonHandler) Update(c *gin.Context) {
	seasonID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSeasonRequest
	if !h.BindJSON(c, &req) {
		return
	}
	presets, ok := h.parsePresets(c, req.Presets)
	if !ok {
		return
	}

	s, err := h.seasons.GetByID(c.Request.Context(), seasonID)
	if err != nil {
		h.Error(c, err)
		return
	}

	s.Name = req.Name
	s.Presets = presets
	s.Version = req.Version

	if err := h.seasons.Update(c.Request.Context(), s); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// Activate switches the active season.
func (h *SeasonHandler) Activate(c *gin.Context) {
	seasonID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.seasons.Activate(c.Request.Context(), seasonID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "season activated")
}
