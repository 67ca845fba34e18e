package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/domain/deduction"
	"padihub/internal/domain/transaction"
	"padihub/internal/domain/weighing"
	"padihub/internal/infrastructure/http/v1/dto"
	"padihub/internal/observability/metrics"
)

// WeighingHandler drives weighing sessions over HTTP. The vehicle number in
// the path identifies the session throughout the wizard.
type WeighingHandler struct {
	*BaseHandler
	manager *weighing.Manager
	presets deduction.PresetStore
}

// NewWeighingHandler creates a weighing handler.
func NewWeighingHandler(base *BaseHandler, manager *weighing.Manager, presets deduction.PresetStore) *WeighingHandler {
	return &WeighingHandler{
		BaseHandler: base,
		manager:     manager,
		presets:     presets,
	}
}

// RegisterRoutes mounts the weighing endpoints.
func (h *WeighingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Begin)
	rg.GET("", h.Recall)
	rg.GET("/stale", h.RecallStale)
	rg.GET("/:vehicleNo", h.Get)
	rg.POST("/:vehicleNo/first-weight", h.CaptureFirstWeight)
	rg.POST("/:vehicleNo/second-weight", h.CaptureSecondWeight)
	rg.POST("/:vehicleNo/party", h.SelectParty)
	rg.POST("/:vehicleNo/product", h.SelectProduct)
	rg.POST("/:vehicleNo/deductions", h.SetDeductions)
	rg.POST("/:vehicleNo/receipts", h.SetSelectedReceipts)
	rg.POST("/:vehicleNo/review", h.Review)
	rg.POST("/:vehicleNo/back", h.Back)
	rg.POST("/:vehicleNo/confirm", h.Confirm)
	rg.DELETE("/:vehicleNo", h.Cancel)
}

// Begin opens a new session.
func (h *WeighingHandler) Begin(c *gin.Context) {
	var req dto.BeginSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	machine, err := h.manager.Begin(c.Request.Context(), req.VehicleNo, transaction.Type(req.Type))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, machine.Session())
}

// Recall lists in-flight sessions, optionally filtered by stage.
func (h *WeighingHandler) Recall(c *gin.Context) {
	var stage *weighing.Stage
	if s := c.Query("stage"); s != "" {
		st := weighing.Stage(s)
		stage = &st
	}

	sessions, err := h.manager.Recall(c.Request.Context(), stage)
	if err != nil {
		h.Error(c, err)
		return
	}
	if stage == nil {
		metrics.SetOpenSessions(len(sessions))
	}
	h.OK(c, sessions)
}

// RecallStale lists sessions idle beyond the staleness window.
func (h *WeighingHandler) RecallStale(c *gin.Context) {
	sessions, err := h.manager.RecallStale(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sessions)
}

// Get returns the session for a vehicle.
func (h *WeighingHandler) Get(c *gin.Context) {
	machine, err := h.manager.Resume(c.Request.Context(), c.Param("vehicleNo"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, machine.Session())
}

func (h *WeighingHandler) resume(c *gin.Context) (*weighing.Machine, bool) {
	machine, err := h.manager.Resume(c.Request.Context(), c.Param("vehicleNo"))
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	return machine, true
}

// CaptureFirstWeight records the first scale reading.
func (h *WeighingHandler) CaptureFirstWeight(c *gin.Context) {
	var req dto.CaptureWeightRequest
	if !h.BindJSON(c, &req) {
		return
	}
	weight, ok := h.ParseDecimal(c, "weightKg", req.WeightKg)
	if !ok {
		return
	}

	machine, ok := h.resume(c)
	if !ok {
		return
	}
	if err := machine.CaptureFirstWeight(c.Request.Context(), weight); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, machine.Session())
}

// CaptureSecondWeight records the second scale reading.
func (h *WeighingHandler) CaptureSecondWeight(c *gin.Context) {
	var req dto.CaptureWeightRequest
	if !h.BindJSON(c, &req) {
		return
	}
	weight, ok := h.ParseDecimal(c, "weightKg", req.WeightKg)
	if !ok {
		return
	}

	machine, ok := h.resume(c)
	if !ok {
		return
	}
	if err := machine.CaptureSecondWeight(c.Request.Context(), weight); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, machine.Session())
}

// SelectParty records the farmer or manufacturer.
func (h *WeighingHandler) SelectParty(c *gin.Context) {
	var req dto.SelectPartyRequest
	if !h.BindJSON(c, &req) {
		return
	}
	partyID, err := id.Parse(req.PartyID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid party id"))
		return
	}

	machine, ok := h.resume(c)
	if !ok {
		return
	}
	if err := machine.SelectParty(c.Request.Context(), partyID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, machine.Session())
}

// SelectProduct records the paddy grade and pricing.
func (h *WeighingHandler) SelectProduct(c *gin.Context) {
	var req dto.SelectProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}
	basePrice, ok := h.ParseDecimal(c, "basePricePerKg", req.BasePricePerKg)
	if !ok {
		return
	}
	finalPrice, ok := h.ParseDecimal(c, "finalPricePerKg", req.FinalPricePerKg)
	if !ok {
		return
	}

	machine, ok := h.resume(c)
	if !ok {
		return
	}
	if err := machine.SelectProduct(c.Request.Context(), productID, basePrice, finalPrice); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, machine.Session())
}

// SetDeductions replaces the working deduction list, from a season preset
// or explicit lines.
func (h *WeighingHandler) SetDeductions(c *gin.Context) {
	var req dto.SetDeductionsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var lines deduction.List
	switch {
	case len(req.Lines) > 0:
		var ok bool
		lines, ok = h.ParseDeductionLines(c, req.Lines)
		if !ok {
			return
		}
	case req.PresetName != "":
		preset, err := h.presets.PresetByName(c.Request.Context(), req.PresetName)
		if err != nil {
			h.Error(c, err)
			return
		}
		lines = preset.Deductions
	default:
		h.Error(c, apperror.NewValidation("either presetName or lines is required"))
		return
	}

	machine, ok := h.resume(c)
	if !ok {
		return
	}
	if err := machine.SetDeductions(c.Request.Context(), lines); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, machine.Session())
}

// SetSelectedReceipts records the purchase receipts backing a sale.
func (h *WeighingHandler) SetSelectedReceipts(c *gin.Context) {
	var req dto.SelectReceiptsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	receiptIDs := make([]id.ID, 0, len(req.ReceiptIDs))
	for _, raw := range req.ReceiptIDs {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid receipt id").WithDetail("id", raw))
			return
		}
		receiptIDs = append(receiptIDs, parsed)
	}

	machine, ok := h.resume(c)
	if !ok {
		return
	}
	if err := machine.SetSelectedReceipts(c.Request.Context(), receiptIDs); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, machine.Session())
}

// Review returns the financial preview.
func (h *WeighingHandler) Review(c *gin.Context) {
	machine, ok := h.resume(c)
	if !ok {
		return
	}

	result, err := machine.Review(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	net := machine.Session().NetKg()
	h.OK(c, dto.ReviewResponse{
		NetWeightKg:           net.StringFixed(2),
		TotalDeductionPercent: result.TotalDeductionPercent.StringFixed(2),
		EffectiveWeightKg:     result.EffectiveWeightKg.StringFixed(0),
		DeductedWeightKg:      result.DeductedWeightKg.StringFixed(2),
		TotalAmount:           result.TotalAmount.StringFixed(2),
	})
}

// Back navigates to an earlier stage.
func (h *WeighingHandler) Back(c *gin.Context) {
	var req dto.BackRequest
	if !h.BindJSON(c, &req) {
		return
	}

	machine, ok := h.resume(c)
	if !ok {
		return
	}
	if err := machine.Back(c.Request.Context(), weighing.State(req.To)); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, machine.Session())
}

// Confirm finalizes the session into a receipt.
func (h *WeighingHandler) Confirm(c *gin.Context) {
	machine, ok := h.resume(c)
	if !ok {
		return
	}

	start := time.Now()
	txn, err := machine.Confirm(c.Request.Context())
	if err != nil {
		metrics.ObserveFinalize(metrics.ResultError, time.Since(start))
		h.Error(c, err)
		return
	}
	metrics.ObserveFinalize(metrics.ResultSuccess, time.Since(start))
	h.OK(c, txn)
}

// Cancel abandons the session without writing a receipt.
func (h *WeighingHandler) Cancel(c *gin.Context) {
	machine, ok := h.resume(c)
	if !ok {
		return
	}
	if err := machine.Cancel(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
