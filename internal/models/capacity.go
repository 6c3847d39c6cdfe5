// internal/models/capacity.go
package models

// CapacityEstimate is the purchasing capacity derived from one income bracket.
// The zero value means the prospect is not eligible for automatic pre-approval.
type CapacityEstimate struct {
	MaxPropertyPrice   int64   `json:"maxPropertyPrice"`
	MonthlyPayment     int64   `json:"monthlyPayment"`
	DownPaymentPercent float64 `json:"downPaymentPercent"`
	DownPaymentAmount  int64   `json:"downPaymentAmount"`
}

// Eligible reports whether the estimate carries a purchasing capacity.
func (c CapacityEstimate) Eligible() bool {
	return c.MaxPropertyPrice > 0
}
