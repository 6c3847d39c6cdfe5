package affordability

import (
	"math"
	"testing"

	"qualification-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Scenario Tests
// ==========================

func TestEstimate_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		income   float64
		expected models.CapacityEstimate
	}{
		{
			name:   "income inside the 3000-3300 bracket",
			income: 3200,
			expected: models.CapacityEstimate{
				MaxPropertyPrice:   190000,
				MonthlyPayment:     1080,
				DownPaymentPercent: 0.10,
				DownPaymentAmount:  19000,
			},
		},
		{
			name:     "income below the lowest bracket",
			income:   500,
			expected: models.CapacityEstimate{},
		},
		{
			name:   "income above the top bracket",
			income: 20000,
			expected: models.CapacityEstimate{
				MaxPropertyPrice:   850000,
				MonthlyPayment:     4840,
				DownPaymentPercent: 0.10,
				DownPaymentAmount:  85000,
			},
		},
		{
			name:     "zero income",
			income:   0,
			expected: models.CapacityEstimate{},
		},
		{
			name:     "negative income",
			income:   -100,
			expected: models.CapacityEstimate{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Estimate(tt.income))
		})
	}
}

func TestEstimate_NaN(t *testing.T) {
	assert.Equal(t, models.CapacityEstimate{}, Estimate(math.NaN()))
}

// ==========================
// Property Tests
// ==========================

func TestEstimate_EveryBracketBoundary(t *testing.T) {
	for _, b := range Default.Brackets() {
		for _, income := range []float64{float64(b.MinIncome), float64(b.MaxIncome), float64(b.MinIncome+b.MaxIncome) / 2} {
			got := Estimate(income)
			assert.Equal(t, b.MaxPropertyPrice, got.MaxPropertyPrice, "income %v", income)
			assert.Equal(t, b.MonthlyPayment, got.MonthlyPayment, "income %v", income)
			assert.Equal(t, b.DownPaymentRate, got.DownPaymentPercent, "income %v", income)
			assert.Equal(t, int64(math.Round(float64(b.MaxPropertyPrice)*b.DownPaymentRate)), got.DownPaymentAmount)
		}
	}
}

func TestEstimate_FractionalIncomeBetweenBrackets(t *testing.T) {
	// 1500.75 floors to 1500 and stays in the first bracket.
	assert.Equal(t, int64(80000), Estimate(1500.75).MaxPropertyPrice)
	assert.Equal(t, int64(105000), Estimate(1501).MaxPropertyPrice)
	assert.Equal(t, int64(160000), Estimate(2999.99).MaxPropertyPrice)
}

func TestEstimate_AboveTopEqualsTopMax(t *testing.T) {
	brackets := Default.Brackets()
	top := brackets[len(brackets)-1]
	for _, income := range []float64{15000.5, 15001, 99999, 1e9} {
		assert.Equal(t, Estimate(float64(top.MaxIncome)), Estimate(income))
	}
}

func TestEstimate_BelowLowestIsZero(t *testing.T) {
	for _, income := range []float64{0.5, 1, 999, 999.99} {
		assert.False(t, Estimate(income).Eligible(), "income %v", income)
	}
}

func TestEstimate_Idempotent(t *testing.T) {
	for _, income := range []float64{0, 1000, 3200, 4999.5, 20000} {
		assert.Equal(t, Estimate(income), Estimate(income))
	}
}

// ==========================
// Table Validation Tests
// ==========================

func TestNewTable_Validation(t *testing.T) {
	valid := Bracket{MinIncome: 100, MaxIncome: 200, MaxPropertyPrice: 1000, MonthlyPayment: 10, DownPaymentRate: 0.1}

	tests := []struct {
		name     string
		brackets []Bracket
	}{
		{"empty", nil},
		{"inverted range", []Bracket{{MinIncome: 200, MaxIncome: 100, MaxPropertyPrice: 1, MonthlyPayment: 1, DownPaymentRate: 0.1}}},
		{"overlap", []Bracket{valid, {MinIncome: 200, MaxIncome: 300, MaxPropertyPrice: 1, MonthlyPayment: 1, DownPaymentRate: 0.1}}},
		{"out of order", []Bracket{valid, {MinIncome: 10, MaxIncome: 20, MaxPropertyPrice: 1, MonthlyPayment: 1, DownPaymentRate: 0.1}}},
		{"zero price", []Bracket{{MinIncome: 1, MaxIncome: 2, MonthlyPayment: 1, DownPaymentRate: 0.1}}},
		{"rate out of range", []Bracket{{MinIncome: 1, MaxIncome: 2, MaxPropertyPrice: 1, MonthlyPayment: 1, DownPaymentRate: 1.5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.brackets)
			assert.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestTable_GapIsIneligible(t *testing.T) {
	table, err := NewTable([]Bracket{
		{MinIncome: 100, MaxIncome: 200, MaxPropertyPrice: 1000, MonthlyPayment: 10, DownPaymentRate: 0.1},
		{MinIncome: 300, MaxIncome: 400, MaxPropertyPrice: 2000, MonthlyPayment: 20, DownPaymentRate: 0.1},
	})
	require.NoError(t, err)

	assert.Equal(t, models.CapacityEstimate{}, table.Estimate(250))
	assert.Equal(t, int64(2000), table.Estimate(300).MaxPropertyPrice)
}

func TestTable_BracketsIsACopy(t *testing.T) {
	rows := Default.Brackets()
	rows[0].MaxPropertyPrice = 1
	assert.Equal(t, int64(80000), Default.Brackets()[0].MaxPropertyPrice)
}
