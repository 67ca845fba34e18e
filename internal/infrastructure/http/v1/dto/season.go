package dto

// PresetPayload is a named deduction configuration.
type PresetPayload struct {
	Name       string          `json:"name" binding:"required"`
	Deductions []DeductionLine `json:"deductions" binding:"required"`
}

// CreateSeasonRequest creates a harvest season.
type CreateSeasonRequest struct {
	Name    string          `json:"name" binding:"required"`
	Presets []PresetPayload `json:"presets,omitempty"`
}

// UpdateSeasonRequest replaces a season's name and preset catalog.
type UpdateSeasonRequest struct {
	Name    string          `json:"name" binding:"required"`
	Presets []PresetPayload `json:"presets,omitempty"`
	Version int             `json:"version" binding:"required"`
}
