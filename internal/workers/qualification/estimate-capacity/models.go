// internal/workers/qualification/estimate-capacity/models.go
package estimatecapacity

import "qualification-workers/internal/models"

type Input struct {
	MonthlyIncome float64 `json:"monthlyIncome"`
}

// Output carries the estimate plus a flag the process can branch on.
type Output struct {
	Capacity models.CapacityEstimate `json:"capacity"`
	Eligible bool                    `json:"eligible"`
}
