// Package deduction provides the deduction calculator and preset types.
// The calculator is the single place effective weight and receipt amount
// are derived; every caller recomputes through it rather than patching
// stored values incrementally.
package deduction

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Line is a single named deduction in percentage points.
// Valid percentages are non-negative; totals above 100 are allowed and
// floor the effective weight at zero.
type Line struct {
	Name    string          `json:"name"`
	Percent decimal.Decimal `json:"percent"`
}

// List is an ordered deduction configuration, stored as JSONB on receipts.
// Receipts carry a copy of the applied preset, never a reference.
type List []Line

// TotalPercent sums percentage points without capping.
func (l List) TotalPercent() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l {
		total = total.Add(line.Percent)
	}
	return total
}

// IsEmpty reports whether no deduction has been configured.
func (l List) IsEmpty() bool {
	return len(l) == 0
}

// Clone returns an independent copy of the list.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

// Scan implements sql.Scanner for reading from PostgreSQL JSONB.
func (l *List) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}

	var source []byte
	switch v := src.(type) {
	case []byte:
		source = v
	case string:
		source = []byte(v)
	default:
		return fmt.Errorf("unsupported type for deduction.List: %T", src)
	}

	if len(source) == 0 || bytes.Equal(source, []byte("null")) {
		*l = nil
		return nil
	}

	var result List
	if err := json.Unmarshal(source, &result); err != nil {
		return fmt.Errorf("failed to decode deduction.List: %w", err)
	}

	*l = result
	return nil
}

// Value implements driver.Valuer for writing to PostgreSQL JSONB.
func (l List) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Preset is a named, reusable deduction configuration owned by a season.
type Preset struct {
	Name       string `json:"name"`
	Deductions List   `json:"deductions"`
}
