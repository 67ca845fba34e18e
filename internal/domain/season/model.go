// Package season provides the harvest season catalog. A season owns the
// named deduction presets offered in the weighing wizard; exactly one
// season is active at a time.
package season

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"padihub/internal/core/apperror"
	"padihub/internal/core/entity"
	"padihub/internal/domain/deduction"
)

// PresetList is an ordered set of named presets, stored as JSONB.
type PresetList []deduction.Preset

// Scan implements sql.Scanner for reading from PostgreSQL JSONB.
func (l *PresetList) Scan(src any) error {
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
		return fmt.Errorf("unsupported type for PresetList: %T", src)
	}

	if len(source) == 0 || bytes.Equal(source, []byte("null")) {
		*l = nil
		return nil
	}

	var result PresetList
	if err := json.Unmarshal(source, &result); err != nil {
		return fmt.Errorf("failed to decode PresetList: %w", err)
	}

	*l = result
	return nil
}

// Value implements driver.Valuer for writing to PostgreSQL JSONB.
func (l PresetList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Season is a harvest campaign with its deduction preset catalog.
type Season struct {
	entity.BaseCatalog

	Name      string     `db:"name" json:"name"`
	StartDate time.Time  `db:"start_date" json:"startDate"`
	EndDate   *time.Time `db:"end_date" json:"endDate,omitempty"`

	// Active marks the season whose presets the wizard offers.
	Active bool `db:"active" json:"active"`

	Presets PresetList `db:"presets" json:"presets"`
}

// NewSeason creates a season starting now, inactive.
func NewSeason(name string) *Season {
	return &Season{
		BaseCatalog: entity.NewBaseCatalog(),
		Name:        name,
		StartDate:   time.Now().UTC(),
	}
}

// PresetByName returns the named preset, if configured.
func (s *Season) PresetByName(name string) (deduction.Preset, bool) {
	for _, p := range s.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return deduction.Preset{}, false
}

// Validate checks season invariants.
func (s *Season) Validate(_ context.Context) error {
	if s.Name == "" {
		return apperror.NewValidation("season name is required")
	}
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return apperror.NewValidation("season end date must not precede start date")
	}

	seen := make(map[string]struct{}, len(s.Presets))
	for i, p := range s.Presets {
		if p.Name == "" {
			return apperror.NewValidation("preset name is required").WithDetail("preset", i+1)
		}
		if _, dup := seen[p.Name]; dup {
			return apperror.NewValidation("preset names must be unique").WithDetail("name", p.Name)
		}
		seen[p.Name] = struct{}{}
		for _, line := range p.Deductions {
			if line.Percent.IsNegative() {
				return apperror.NewValidation("deduction percent must not be negative").
					WithDetail("preset", p.Name).
					WithDetail("line", line.Name)
			}
		}
	}
	return nil
}
