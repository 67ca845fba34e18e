package dto

// BeginSessionRequest opens a weighing session for a vehicle.
type BeginSessionRequest struct {
	VehicleNo string `json:"vehicleNo" binding:"required"`
	Type      string `json:"type" binding:"required,oneof=purchase sale"`
}

// CaptureWeightRequest records a scale reading.
type CaptureWeightRequest struct {
	WeightKg string `json:"weightKg" binding:"required"`
}

// SelectPartyRequest records the farmer or manufacturer.
type SelectPartyRequest struct {
	PartyID string `json:"partyId" binding:"required,uuid"`
}

// SelectProductRequest records the paddy grade and pricing.
type SelectProductRequest struct {
	ProductID       string `json:"productId" binding:"required,uuid"`
	BasePricePerKg  string `json:"basePricePerKg" binding:"required"`
	FinalPricePerKg string `json:"finalPricePerKg" binding:"required"`
}

// SetDeductionsRequest replaces the working deduction list.
// Either a preset name or explicit lines; lines win when both are present.
type SetDeductionsRequest struct {
	PresetName string          `json:"presetName,omitempty"`
	Lines      []DeductionLine `json:"lines,omitempty"`
}

// SelectReceiptsRequest records the purchase receipts backing a sale.
type SelectReceiptsRequest struct {
	ReceiptIDs []string `json:"receiptIds" binding:"required,min=1"`
}

// BackRequest navigates to an earlier stage.
type BackRequest struct {
	To string `json:"to" binding:"required"`
}

// ReviewResponse is the financial preview shown before confirmation.
type ReviewResponse struct {
	NetWeightKg           string `json:"netWeightKg"`
	TotalDeductionPercent string `json:"totalDeductionPercent"`
	EffectiveWeightKg     string `json:"effectiveWeightKg"`
	DeductedWeightKg      string `json:"deductedWeightKg"`
	TotalAmount           string `json:"totalAmount"`
}
