// Package affordability converts a declared monthly household income into a
// purchasing capacity estimate using a banded lookup table.
package affordability

import (
	"errors"
	"fmt"
	"math"

	"qualification-workers/internal/models"
)

// Bracket is a closed income interval [MinIncome, MaxIncome] in whole currency units.
type Bracket struct {
	MinIncome        int64
	MaxIncome        int64
	MaxPropertyPrice int64
	MonthlyPayment   int64
	DownPaymentRate  float64
}

// Estimate derives the capacity for this bracket. The down payment amount is
// computed from the exact price and rate, never tabulated.
func (b Bracket) Estimate() models.CapacityEstimate {
	return models.CapacityEstimate{
		MaxPropertyPrice:   b.MaxPropertyPrice,
		MonthlyPayment:     b.MonthlyPayment,
		DownPaymentPercent: b.DownPaymentRate,
		DownPaymentAmount:  int64(math.Round(float64(b.MaxPropertyPrice) * b.DownPaymentRate)),
	}
}

// Table is an immutable, ascending, non-overlapping set of brackets.
type Table struct {
	brackets []Bracket
}

var ErrInvalidTable = errors.New("invalid bracket table")

// NewTable validates and copies brackets.
func NewTable(brackets []Bracket) (*Table, error) {
	if len(brackets) == 0 {
		return nil, fmt.Errorf("%w: no brackets", ErrInvalidTable)
	}
	for i, b := range brackets {
		switch {
		case b.MinIncome < 0 || b.MaxIncome < b.MinIncome:
			return nil, fmt.Errorf("%w: bracket %d has range [%d,%d]", ErrInvalidTable, i, b.MinIncome, b.MaxIncome)
		case b.MaxPropertyPrice <= 0 || b.MonthlyPayment <= 0:
			return nil, fmt.Errorf("%w: bracket %d has non-positive amounts", ErrInvalidTable, i)
		case b.DownPaymentRate <= 0 || b.DownPaymentRate >= 1:
			return nil, fmt.Errorf("%w: bracket %d has rate %v", ErrInvalidTable, i, b.DownPaymentRate)
		case i > 0 && b.MinIncome <= brackets[i-1].MaxIncome:
			return nil, fmt.Errorf("%w: bracket %d overlaps or is out of order", ErrInvalidTable, i)
		}
	}

	out := make([]Bracket, len(brackets))
	copy(out, brackets)
	return &Table{brackets: out}, nil
}

// MustTable is NewTable that panics; used for the built-in table.
func MustTable(brackets []Bracket) *Table {
	t, err := NewTable(brackets)
	if err != nil {
		panic(err)
	}
	return t
}

// Brackets returns a copy of the table rows.
func (t *Table) Brackets() []Bracket {
	out := make([]Bracket, len(t.brackets))
	copy(out, t.brackets)
	return out
}

// Estimate looks up monthlyIncome. Fractional incomes are floored before the
// lookup. Incomes above the top bracket use the top bracket; incomes below the
// lowest minimum, zero, negative or NaN yield the zero estimate.
func (t *Table) Estimate(monthlyIncome float64) models.CapacityEstimate {
	if math.IsNaN(monthlyIncome) || monthlyIncome <= 0 {
		return models.CapacityEstimate{}
	}

	top := t.brackets[len(t.brackets)-1]
	if monthlyIncome > float64(top.MaxIncome) {
		return top.Estimate()
	}

	income := int64(math.Floor(monthlyIncome))
	for _, b := range t.brackets {
		if income < b.MinIncome {
			// Tables may leave gaps; falling into one is not eligible.
			break
		}
		if income <= b.MaxIncome {
			return b.Estimate()
		}
	}
	return models.CapacityEstimate{}
}

// Default is the built-in bracket table.
var Default = MustTable([]Bracket{
	{MinIncome: 1000, MaxIncome: 1500, MaxPropertyPrice: 80000, MonthlyPayment: 460, DownPaymentRate: 0.20},
	{MinIncome: 1501, MaxIncome: 2000, MaxPropertyPrice: 105000, MonthlyPayment: 600, DownPaymentRate: 0.20},
	{MinIncome: 2001, MaxIncome: 2500, MaxPropertyPrice: 135000, MonthlyPayment: 770, DownPaymentRate: 0.15},
	{MinIncome: 2501, MaxIncome: 2999, MaxPropertyPrice: 160000, MonthlyPayment: 910, DownPaymentRate: 0.15},
	{MinIncome: 3000, MaxIncome: 3300, MaxPropertyPrice: 190000, MonthlyPayment: 1080, DownPaymentRate: 0.10},
	{MinIncome: 3301, MaxIncome: 3700, MaxPropertyPrice: 215000, MonthlyPayment: 1220, DownPaymentRate: 0.10},
	{MinIncome: 3701, MaxIncome: 4200, MaxPropertyPrice: 245000, MonthlyPayment: 1390, DownPaymentRate: 0.10},
	{MinIncome: 4201, MaxIncome: 5000, MaxPropertyPrice: 290000, MonthlyPayment: 1650, DownPaymentRate: 0.10},
	{MinIncome: 5001, MaxIncome: 6000, MaxPropertyPrice: 350000, MonthlyPayment: 1990, DownPaymentRate: 0.10},
	{MinIncome: 6001, MaxIncome: 7500, MaxPropertyPrice: 430000, MonthlyPayment: 2450, DownPaymentRate: 0.10},
	{MinIncome: 7501, MaxIncome: 9500, MaxPropertyPrice: 540000, MonthlyPayment: 3080, DownPaymentRate: 0.10},
	{MinIncome: 9501, MaxIncome: 12000, MaxPropertyPrice: 680000, MonthlyPayment: 3870, DownPaymentRate: 0.10},
	{MinIncome: 12001, MaxIncome: 15000, MaxPropertyPrice: 850000, MonthlyPayment: 4840, DownPaymentRate: 0.10},
})

// Estimate uses the Default table.
func Estimate(monthlyIncome float64) models.CapacityEstimate {
	return Default.Estimate(monthlyIncome)
}
