package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/domain"
	"padihub/internal/domain/bulk"
	"padihub/internal/domain/deduction"
	"padihub/internal/domain/split"
	"padihub/internal/domain/transaction"
	"padihub/internal/domain/verification"
	"padihub/internal/infrastructure/export"
	"padihub/internal/infrastructure/http/v1/dto"
	"padihub/internal/infrastructure/printing"
	"padihub/internal/observability/metrics"
)

// TransactionHandler serves receipt queries and post-weighing edits.
type TransactionHandler struct {
	*BaseHandler
	receipts   *transaction.Service
	splitter   *split.Engine
	propagator *bulk.Propagator
	gate       *verification.Gate
	presets    deduction.PresetStore
}

// NewTransactionHandler creates a transaction handler.
func NewTransactionHandler(
	base *BaseHandler,
	receipts *transaction.Service,
	splitter *split.Engine,
	propagator *bulk.Propagator,
	gate *verification.Gate,
	presets deduction.PresetStore,
) *TransactionHandler {
	return &TransactionHandler{
		BaseHandler: base,
		receipts:    receipts,
		splitter:    splitter,
		propagator:  propagator,
		gate:        gate,
		presets:     presets,
	}
}

// RegisterRoutes mounts the receipt endpoints.
func (h *TransactionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/export", h.Export)
	rg.GET("/candidates", h.Candidates)
	rg.POST("/bulk-deductions", h.BulkDeductions)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/family", h.Family)
	rg.GET("/:id/print", h.Print)
	rg.POST("/:id/verification", h.NewVerification)
	rg.PUT("/:id/deductions", h.UpdateDeductions)
	rg.POST("/:id/split", h.Split)
	rg.POST("/:id/cancel", h.Cancel)
}

// List returns receipts with filtering and pagination.
func (h *TransactionHandler) List(c *gin.Context) {
	filter, ok := h.parseListFilter(c)
	if !ok {
		return
	}

	result, err := h.receipts.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

func (h *TransactionHandler) parseListFilter(c *gin.Context) (transaction.ListFilter, bool) {
	var q dto.TransactionListQuery
	if !h.BindQuery(c, &q) {
		return transaction.ListFilter{}, false
	}

	filter := transaction.ListFilter{ListFilter: domain.DefaultListFilter()}
	filter.Search = q.Search
	if q.OrderBy != "" {
		filter.OrderBy = q.OrderBy
	}
	if q.Limit > 0 {
		filter.Limit = q.Limit
	}
	filter.Offset = q.Offset
	filter.VehicleNo = q.VehicleNo

	if q.Type != "" {
		t := transaction.Type(q.Type)
		filter.Type = &t
	}
	if q.Status != "" {
		s := transaction.Status(q.Status)
		filter.Status = &s
	}
	if q.PaymentStatus != "" {
		p := transaction.PaymentStatus(q.PaymentStatus)
		filter.PaymentStatus = &p
	}
	if q.FarmerID != "" {
		parsed, err := id.Parse(q.FarmerID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid farmer id"))
			return filter, false
		}
		filter.FarmerID = &parsed
	}
	if q.SaleID != "" {
		parsed, err := id.Parse(q.SaleID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid sale id"))
			return filter, false
		}
		filter.SaleID = &parsed
	}
	if q.DateFrom != "" {
		t, err := time.Parse("2006-01-02", q.DateFrom)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateFrom"))
			return filter, false
		}
		filter.DateFrom = &t
	}
	if q.DateTo != "" {
		t, err := time.Parse("2006-01-02", q.DateTo)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateTo"))
			return filter, false
		}
		filter.DateTo = &t
	}

	return filter, true
}

// Get returns one receipt.
func (h *TransactionHandler) Get(c *gin.Context) {
	txnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	txn, err := h.receipts.GetByID(c.Request.Context(), txnID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, txn)
}

// Family returns the receipt's full split family.
func (h *TransactionHandler) Family(c *gin.Context) {
	txnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	family, err := h.receipts.GetFamily(c.Request.Context(), txnID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, family)
}

// Candidates returns the unsold purchase pool for sale assembly.
func (h *TransactionHandler) Candidates(c *gin.Context) {
	filter := transaction.CandidateFilter{
		Search: c.Query("search"),
		Limit:  h.ParseIntQuery(c, "limit", 50),
	}
	if raw := c.Query("productId"); raw != "" {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id"))
			return
		}
		filter.ProductID = &parsed
	}
	if raw := c.Query("farmerId"); raw != "" {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid farmer id"))
			return
		}
		filter.FarmerID = &parsed
	}

	items, err := h.receipts.Candidates(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}

// NewVerification issues an edit challenge for a locked receipt.
func (h *TransactionHandler) NewVerification(c *gin.Context) {
	txnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	txn, err := h.receipts.GetByID(c.Request.Context(), txnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	challenge, err := h.gate.NewChallenge(c.Request.Context(), txn)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"code": challenge.Code})
}

// UpdateDeductions replaces a receipt's deduction configuration. Locked
// receipts require the verification code issued by NewVerification.
func (h *TransactionHandler) UpdateDeductions(c *gin.Context) {
	txnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateDeductionsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	lines, ok := h.ParseDeductionLines(c, req.Lines)
	if !ok {
		return
	}

	family, err := h.receipts.GetFamily(c.Request.Context(), txnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if verification.IsFamilyLocked(family) {
		if err := h.gate.Submit(c.Request.Context(), txnID, req.VerificationCode); err != nil {
			h.Error(c, err)
			return
		}
	}

	updated, err := h.receipts.UpdateDeductions(c.Request.Context(), txnID, lines)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, updated)
}

// Split divides a receipt into a retained fragment and a remainder.
func (h *TransactionHandler) Split(c *gin.Context) {
	txnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SplitRequest
	if !h.BindJSON(c, &req) {
		return
	}
	retainKg, ok := h.ParseDecimal(c, "retainKg", req.RetainKg)
	if !ok {
		return
	}

	fragments, err := h.splitter.Split(c.Request.Context(), txnID, retainKg)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, fragments)
}

// Cancel transitions a receipt to cancelled.
func (h *TransactionHandler) Cancel(c *gin.Context) {
	txnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.receipts.Cancel(c.Request.Context(), txnID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "receipt cancelled")
}

// BulkDeductions applies a season preset across selected receipts and
// their split families. When any selected family is locked the request
// must carry the verification code issued by NewVerification for one of
// the selected receipts.
func (h *TransactionHandler) BulkDeductions(c *gin.Context) {
	var req dto.BulkDeductionsRequest
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

	locked := false
	for _, receiptID := range receiptIDs {
		family, err := h.receipts.GetFamily(c.Request.Context(), receiptID)
		if err != nil {
			h.Error(c, err)
			return
		}
		if verification.IsFamilyLocked(family) {
			locked = true
			break
		}
	}
	if locked {
		if err := h.gate.SubmitAny(c.Request.Context(), receiptIDs, req.VerificationCode); err != nil {
			h.Error(c, err)
			return
		}
	}

	preset, err := h.presets.PresetByName(c.Request.Context(), req.PresetName)
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.propagator.ApplyPreset(c.Request.Context(), receiptIDs, &preset, nil)
	if err != nil {
		metrics.ObserveBulkRun(metrics.ResultError, 0)
		h.Error(c, err)
		return
	}
	result := metrics.ResultSuccess
	if report.Failed > 0 {
		result = metrics.ResultError
	}
	metrics.ObserveBulkRun(result, report.Processed)

	resp := dto.BulkDeductionsResponse{
		Selected:  report.Selected,
		Processed: report.Processed,
		Updated:   report.Updated,
		Failed:    report.Failed,
	}
	for _, failedID := range report.FailedIDs {
		resp.FailedIDs = append(resp.FailedIDs, failedID.String())
	}
	h.OK(c, resp)
}

// Print renders the receipt as a PDF slip.
func (h *TransactionHandler) Print(c *gin.Context) {
	txnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	txn, err := h.receipts.GetByID(c.Request.Context(), txnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	pdf, err := printing.BuildReceiptPDF(txn)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+txn.Number+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Export renders the filtered receipt listing as an XLSX workbook.
func (h *TransactionHandler) Export(c *gin.Context) {
	filter, ok := h.parseListFilter(c)
	if !ok {
		return
	}
	filter.Limit = 0 // full export

	result, err := h.receipts.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	book, err := export.BuildTransactionsXLSX(result.Items)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", book)
}
