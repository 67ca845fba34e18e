package dto

// UpdateDeductionsRequest replaces a receipt's deduction configuration.
// VerificationCode is required once the receipt is locked.
type UpdateDeductionsRequest struct {
	Lines            []DeductionLine `json:"lines" binding:"required"`
	VerificationCode string          `json:"verificationCode,omitempty"`
}

// SplitRequest divides a receipt into a retained fragment and remainder.
type SplitRequest struct {
	RetainKg string `json:"retainKg" binding:"required"`
}

// BulkDeductionsRequest applies a season preset across selected receipts.
// VerificationCode is required when any selected split family is locked.
type BulkDeductionsRequest struct {
	PresetName       string   `json:"presetName" binding:"required"`
	ReceiptIDs       []string `json:"receiptIds" binding:"required,min=1"`
	VerificationCode string   `json:"verificationCode"`
}

// BulkDeductionsResponse summarizes a bulk run.
type BulkDeductionsResponse struct {
	Selected  int      `json:"selected"`
	Processed int      `json:"processed"`
	Updated   int      `json:"updated"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failedIds,omitempty"`
}

// TransactionListQuery filters receipt listings.
type TransactionListQuery struct {
	ListQuery

	Type          string `form:"type"`
	Status        string `form:"status"`
	PaymentStatus string `form:"paymentStatus"`
	VehicleNo     string `form:"vehicleNo"`
	FarmerID      string `form:"farmerId"`
	SaleID        string `form:"saleId"`
	DateFrom      string `form:"dateFrom"`
	DateTo        string `form:"dateTo"`
}
