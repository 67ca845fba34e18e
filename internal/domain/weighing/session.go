// Package weighing provides the in-flight weighing session and its
// multi-stage state machine. A session exists per vehicle/container number
// from the first scale reading until the receipt is finalized; it is the
// single source of truth for resuming after a process restart.
package weighing

import (
	"time"

	"github.com/shopspring/decimal"

	"padihub/internal/core/id"
	"padihub/internal/domain/deduction"
	"padihub/internal/domain/transaction"
)

// State is a machine state of the weighing wizard.
type State string

const (
	StateAwaitingInitialWeight State = "awaiting-initial-weight"
	StateAwaitingSecondWeight  State = "awaiting-second-weight"
	StateSelectingParty        State = "selecting-party"
	StateSelectingProduct      State = "selecting-product"
	StateAdjustingDeductions   State = "adjusting-deductions"
	StateReviewing             State = "reviewing"
	StateFinalized             State = "finalized"
)

// stateOrder drives forward/backward navigation checks.
var stateOrder = map[State]int{
	StateAwaitingInitialWeight: 0,
	StateAwaitingSecondWeight:  1,
	StateSelectingParty:        2,
	StateSelectingProduct:      3,
	StateAdjustingDeductions:   4,
	StateReviewing:             5,
	StateFinalized:             6,
}

// Stage is the coarse operator-facing phase used in recall lists.
type Stage string

const (
	StageAwaitingTare  Stage = "awaiting-tare"
	StageAwaitingGross Stage = "awaiting-gross"
	StageWizard        Stage = "in-progress-wizard"
	StageAbandoned     Stage = "abandoned"
)

// Session is one in-flight weighing, keyed by vehicle number.
// It retains every captured input so the operator can navigate backward
// without losing data, and so a restart reconstructs the exact state.
type Session struct {
	// VehicleNo is the external session key, entered by the operator.
	VehicleNo string `db:"vehicle_no" json:"vehicleNo"`

	Type  transaction.Type `db:"type" json:"type"`
	State State            `db:"state" json:"state"`

	// Abandoned sessions are kept for operator cleanup, never auto-evicted.
	Abandoned bool `db:"abandoned" json:"abandoned"`

	// Scale readings in capture order. For purchases the first reading is
	// gross (loaded arrival) and the second tare; for sales the reverse.
	FirstWeightKg  *decimal.Decimal `db:"first_weight_kg" json:"firstWeightKg,omitempty"`
	SecondWeightKg *decimal.Decimal `db:"second_weight_kg" json:"secondWeightKg,omitempty"`

	// Wizard inputs, accumulated per stage.
	FarmerID        *id.ID           `db:"farmer_id" json:"farmerId,omitempty"`
	ManufacturerID  *id.ID           `db:"manufacturer_id" json:"manufacturerId,omitempty"`
	ProductID       *id.ID           `db:"product_id" json:"productId,omitempty"`
	BasePricePerKg  *decimal.Decimal `db:"base_price_per_kg" json:"basePricePerKg,omitempty"`
	FinalPricePerKg *decimal.Decimal `db:"final_price_per_kg" json:"finalPricePerKg,omitempty"`
	Deductions      deduction.List   `db:"deductions" json:"deductions"`

	// SelectedReceiptIDs are the purchase receipts chosen to back a sale.
	SelectedReceiptIDs IDList `db:"selected_receipt_ids" json:"selectedReceiptIds"`

	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	LastTouchedAt time.Time `db:"last_touched_at" json:"lastTouchedAt"`
}

// NewSession starts a session at the first scale reading.
func NewSession(vehicleNo string, t transaction.Type) *Session {
	now := time.Now().UTC()
	return &Session{
		VehicleNo:     vehicleNo,
		Type:          t,
		State:         StateAwaitingInitialWeight,
		CreatedAt:     now,
		LastTouchedAt: now,
	}
}

// Stage derives the coarse phase from the machine state.
func (s *Session) Stage() Stage {
	if s.Abandoned {
		return StageAbandoned
	}
	switch s.State {
	case StateAwaitingInitialWeight:
		if s.Type == transaction.TypePurchase {
			return StageAwaitingGross
		}
		return StageAwaitingTare
	case StateAwaitingSecondWeight:
		if s.Type == transaction.TypePurchase {
			return StageAwaitingTare
		}
		return StageAwaitingGross
	default:
		return StageWizard
	}
}

// GrossKg returns the gross reading, mapping capture order by type.
func (s *Session) GrossKg() *decimal.Decimal {
	if s.Type == transaction.TypePurchase {
		return s.FirstWeightKg
	}
	return s.SecondWeightKg
}

// TareKg returns the tare reading, mapping capture order by type.
func (s *Session) TareKg() *decimal.Decimal {
	if s.Type == transaction.TypePurchase {
		return s.SecondWeightKg
	}
	return s.FirstWeightKg
}

// NetKg returns gross - tare, or nil while a reading is missing.
func (s *Session) NetKg() *decimal.Decimal {
	gross, tare := s.GrossKg(), s.TareKg()
	if gross == nil || tare == nil {
		return nil
	}
	net := gross.Sub(*tare)
	return &net
}

// Touch updates the activity timestamp.
func (s *Session) Touch() {
	s.LastTouchedAt = time.Now().UTC()
}

// IsStale reports whether the session has seen no activity within window.
func (s *Session) IsStale(window time.Duration) bool {
	return time.Since(s.LastTouchedAt) > window
}
