// Package transaction provides the weighing receipt record (purchase and sale).
package transaction

import (
	"context"

	"github.com/shopspring/decimal"

	"padihub/internal/core/apperror"
	"padihub/internal/core/entity"
	"padihub/internal/core/id"
	"padihub/internal/core/types"
	"padihub/internal/domain/deduction"
)

// Type distinguishes purchase receipts (paddy bought from farmers) from
// sale receipts (paddy sold to manufacturers).
type Type string

const (
	TypePurchase Type = "purchase"
	TypeSale     Type = "sale"
)

// Status is the receipt lifecycle state. Receipts are never physically
// deleted; cancellation and sale consumption are status transitions.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusSold      Status = "sold"
)

// PaymentStatus tracks settlement with the farmer.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Transaction is a weighing receipt.
//
// Weight invariant: NetWeightKg = GrossWeightKg - TareWeightKg >= 0.
// EffectiveWeightKg and TotalAmount are always derived through
// deduction.ComputeEffective; they are recomputed in full on every edit,
// never patched incrementally.
type Transaction struct {
	entity.Document

	Type          Type          `db:"type" json:"type"`
	Status        Status        `db:"status" json:"status"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"paymentStatus"`

	// VehicleNo is the lorry/container number the paddy arrived on.
	VehicleNo string `db:"vehicle_no" json:"vehicleNo"`

	// Party: farmer for purchases, manufacturer for sales.
	FarmerID       *id.ID `db:"farmer_id" json:"farmerId,omitempty"`
	ManufacturerID *id.ID `db:"manufacturer_id" json:"manufacturerId,omitempty"`

	ProductID id.ID `db:"product_id" json:"productId"`

	// Weights in kilograms.
	GrossWeightKg     types.Weight `db:"gross_weight_kg" json:"grossWeightKg"`
	TareWeightKg      types.Weight `db:"tare_weight_kg" json:"tareWeightKg"`
	NetWeightKg       types.Weight `db:"net_weight_kg" json:"netWeightKg"`
	EffectiveWeightKg types.Weight `db:"effective_weight_kg" json:"effectiveWeightKg"`

	// Pricing per kilogram.
	BasePricePerKg  types.Money `db:"base_price_per_kg" json:"basePricePerKg"`
	FinalPricePerKg types.Money `db:"final_price_per_kg" json:"finalPricePerKg"`
	TotalAmount     types.Money `db:"total_amount" json:"totalAmount"`

	// Deduction configuration (copy of the applied preset, not a reference).
	Deductions            deduction.List `db:"deductions" json:"deductions"`
	TotalDeductionPercent types.Percent  `db:"total_deduction_percent" json:"totalDeductionPercent"`

	// ParentID is set iff this record is a split fragment. The split family
	// is the parent plus all transactions sharing that parent.
	ParentID *id.ID `db:"parent_id" json:"parentId,omitempty"`

	// SaleID links a purchase receipt to the sale that consumed it.
	SaleID *id.ID `db:"sale_id" json:"saleId,omitempty"`
}

// NewPurchase creates a pending purchase receipt.
func NewPurchase(vehicleNo string, farmerID, productID id.ID) *Transaction {
	return &Transaction{
		Document:      entity.NewDocument(),
		Type:          TypePurchase,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		VehicleNo:     vehicleNo,
		FarmerID:      &farmerID,
		ProductID:     productID,
	}
}

// NewSale creates a pending sale receipt.
func NewSale(vehicleNo string, manufacturerID, productID id.ID) *Transaction {
	return &Transaction{
		Document:       entity.NewDocument(),
		Type:           TypeSale,
		Status:         StatusPending,
		PaymentStatus:  PaymentUnpaid,
		VehicleNo:      vehicleNo,
		ManufacturerID: &manufacturerID,
		ProductID:      productID,
	}
}

// NumeratorPrefix returns the receipt number prefix for the type.
func (t Type) NumeratorPrefix() string {
	if t == TypeSale {
		return "SL"
	}
	return "PR"
}

// SetWeights records both scale readings and derives the net weight.
// Returns WeightOrderError when the readings would produce a negative net.
func (t *Transaction) SetWeights(grossKg, tareKg decimal.Decimal) error {
	if grossKg.IsNegative() || tareKg.IsNegative() {
		return apperror.NewInvalidInput("weights must not be negative").
			WithDetail("gross_kg", grossKg.String()).
			WithDetail("tare_kg", tareKg.String())
	}
	net := grossKg.Sub(tareKg)
	if net.IsNegative() {
		return apperror.NewWeightOrder(grossKg.String(), tareKg.String())
	}
	t.GrossWeightKg = grossKg
	t.TareWeightKg = tareKg
	t.NetWeightKg = net
	return nil
}

// ApplyDeductions stores a copy of the deduction list and recomputes
// effective weight and total amount. PaymentStatus flips to paid once a
// non-zero deduction is recorded, back to unpaid otherwise.
func (t *Transaction) ApplyDeductions(lines deduction.List) error {
	result, err := deduction.ComputeEffective(t.NetWeightKg, lines, t.FinalPricePerKg)
	if err != nil {
		return err
	}

	t.Deductions = lines.Clone()
	t.TotalDeductionPercent = result.TotalDeductionPercent
	t.EffectiveWeightKg = result.EffectiveWeightKg
	t.TotalAmount = result.TotalAmount

	if result.TotalDeductionPercent.IsPositive() {
		t.PaymentStatus = PaymentPaid
	} else {
		t.PaymentStatus = PaymentUnpaid
	}
	return nil
}

// IsSplitFragment reports whether this receipt was carved from a parent.
func (t *Transaction) IsSplitFragment() bool {
	return t.ParentID != nil
}

// CanSplit checks whether this receipt may be divided.
// Only purchase receipts carry a farmer and re-enter the candidate pool, so
// sales are never splittable. A receipt already superseded by a split (or
// consumed by a sale) raises AlreadySplitError; anything not completed
// cannot back a sale.
func (t *Transaction) CanSplit() error {
	if t.Type != TypePurchase {
		return apperror.NewInvalidInput("only purchase receipts can be split").
			WithDetail("receipt_id", t.ID.String()).
			WithDetail("type", string(t.Type))
	}
	switch t.Status {
	case StatusSold:
		return apperror.NewAlreadySplit(t.ID.String())
	case StatusCompleted:
		return nil
	default:
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"only completed receipts can back a sale",
		).WithDetail("receipt_id", t.ID.String()).WithDetail("status", string(t.Status))
	}
}

// Cancel marks the receipt cancelled. Sold receipts stay sold: they are the
// audit anchor of their split family.
func (t *Transaction) Cancel() error {
	switch t.Status {
	case StatusPending, StatusCompleted:
		t.Status = StatusCancelled
		return nil
	case StatusCancelled:
		return nil
	default:
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"sold receipts cannot be cancelled",
		).WithDetail("receipt_id", t.ID.String())
	}
}

// Validate implements entity.Validatable.
func (t *Transaction) Validate(ctx context.Context) error {
	if err := t.Document.Validate(ctx); err != nil {
		return err
	}

	switch t.Type {
	case TypePurchase, TypeSale:
	default:
		return apperror.NewValidation("unknown transaction type").
			WithDetail("field", "type")
	}

	if t.VehicleNo == "" {
		return apperror.NewValidation("vehicle number is required").
			WithDetail("field", "vehicleNo")
	}

	if t.Type == TypePurchase && (t.FarmerID == nil || id.IsNil(*t.FarmerID)) {
		return apperror.NewValidation("farmer is required").
			WithDetail("field", "farmerId")
	}
	if t.Type == TypeSale && (t.ManufacturerID == nil || id.IsNil(*t.ManufacturerID)) {
		return apperror.NewValidation("manufacturer is required").
			WithDetail("field", "manufacturerId")
	}

	if id.IsNil(t.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}

	if t.GrossWeightKg.IsNegative() || t.TareWeightKg.IsNegative() {
		return apperror.NewValidation("weights must not be negative").
			WithDetail("field", "weights")
	}

	if !t.NetWeightKg.Equal(t.GrossWeightKg.Sub(t.TareWeightKg)) {
		return apperror.NewValidation("net weight must equal gross minus tare").
			WithDetail("field", "netWeightKg")
	}

	if t.NetWeightKg.IsNegative() {
		return apperror.NewValidation("net weight must not be negative").
			WithDetail("field", "netWeightKg")
	}

	if t.FinalPricePerKg.IsNegative() {
		return apperror.NewValidation("price must not be negative").
			WithDetail("field", "finalPricePerKg")
	}

	return nil
}
