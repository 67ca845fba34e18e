// Package dto defines request/response shapes for the HTTP API.
package dto

// IDResponse returns a created entity's ID.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse is a generic success acknowledgement.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListQuery holds common list parameters.
type ListQuery struct {
	Search  string `form:"search"`
	OrderBy string `form:"orderBy"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

// DeductionLine is one named deduction in percentage points.
type DeductionLine struct {
	Name    string `json:"name" binding:"required"`
	Percent string `json:"percent" binding:"required"`
}
