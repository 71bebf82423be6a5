package dto

import (
	"github.com/hellyrj/smart-parking-system/pkg/response"
	"github.com/shopspring/decimal"
)

// ErrorResponse is the envelope shared with the middleware
type ErrorResponse = response.ErrorBody

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ListResponse represents an offset-paginated list
type ListResponse struct {
	Data   interface{} `json:"data"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
	Count  int         `json:"count"`
}

// Money renders an amount with two decimal places
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
