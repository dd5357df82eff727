package refresh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ynabd/internal/state"
	"github.com/theirongolddev/ynabd/internal/ynab"
)

func intPtr(n int) *int { return &n }

func sampleBudget() *ynab.BudgetDetail {
	return &ynab.BudgetDetail{
		ID:   "b1",
		Name: "Home",
		Accounts: []ynab.Account{
			{Name: "Checking", OnBudget: true, Balance: 150000},
			{Name: "Savings", OnBudget: true, Balance: 500000},
			{Name: "Mortgage", OnBudget: false, Balance: -20000000},
			{Name: "Old", OnBudget: true, Balance: 99000, Deleted: true},
		},
		Months: []ynab.Month{
			{
				Month:        "2024-06-01",
				ToBeBudgeted: 12340,
				Budgeted:     1,
			},
			{
				Month:      "2024-05-01",
				Budgeted:   400000,
				Activity:   -250500,
				AgeOfMoney: intPtr(42),
				Categories: []ynab.Category{
					{Name: "Groceries", Balance: -2500, Budgeted: 40000},
					{Name: "Rent", Balance: 0, Budgeted: 120000},
					{Name: "Fun", Balance: -100, Budgeted: 0},
					{Name: "Gone", Balance: -100, Deleted: true},
				},
			},
		},
		Transactions: []ynab.Transaction{
			{Amount: -1000, Approved: true, Cleared: ynab.Cleared},
			{Amount: -2000, Approved: false, Cleared: ynab.Uncleared},
			{Amount: -3000, Approved: false, Cleared: ynab.Reconciled},
			{Amount: -4000, Approved: true, Cleared: ynab.Uncleared},
			{Amount: -5000, Approved: false, Cleared: ynab.Uncleared, Deleted: true},
		},
	}
}

func value(t *testing.T, r Readings, key string) float64 {
	t.Helper()
	v, ok := r.Values[key]
	require.Truef(t, ok, "missing key %q", key)
	return v.Float64()
}

func TestCompute(t *testing.T) {
	today := time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)
	r := Compute(sampleBudget(), today, []string{"Checking", "Nope"}, []string{"Groceries"})

	assert.True(t, r.MonthFound)
	assert.Equal(t, 12.34, value(t, r, state.KeyToBeBudgeted))
	assert.Equal(t, 2.0, value(t, r, state.KeyNeedApproval))
	assert.Equal(t, 2.0, value(t, r, state.KeyUnclearedTransactions))
	assert.Equal(t, 650.0, value(t, r, state.KeyTotalBalance))
	assert.Equal(t, 150.0, value(t, r, "Checking"))
	assert.NotContains(t, r.Values, "Savings")
	assert.NotContains(t, r.Values, "Nope")

	assert.Equal(t, 400.0, value(t, r, state.KeyBudgetedThisMonth))
	assert.Equal(t, -250.5, value(t, r, state.KeyActivityThisMonth))
	assert.Equal(t, 42.0, value(t, r, state.KeyAgeOfMoney))
	assert.Equal(t, 2.0, value(t, r, state.KeyOverspentCategories))
	assert.Equal(t, -2.5, value(t, r, "Groceries"))
	assert.Equal(t, 40.0, value(t, r, "Groceries"+state.BudgetedSuffix))
	assert.NotContains(t, r.Values, "Rent")

	assert.Equal(t, state.UnitDays, r.Values[state.KeyAgeOfMoney].Unit)
	assert.Equal(t, state.UnitCount, r.Values[state.KeyNeedApproval].Unit)
	assert.Equal(t, state.UnitCurrency, r.Values[state.KeyTotalBalance].Unit)
}

func TestCompute_NoCurrentMonth(t *testing.T) {
	today := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	r := Compute(sampleBudget(), today, nil, []string{"Groceries"})

	assert.False(t, r.MonthFound)
	assert.NotContains(t, r.Values, state.KeyBudgetedThisMonth)
	assert.NotContains(t, r.Values, state.KeyOverspentCategories)
	assert.NotContains(t, r.Values, "Groceries")
	assert.Contains(t, r.Values, state.KeyToBeBudgeted)
}

func TestCompute_NullAgeOfMoneyRemovesKey(t *testing.T) {
	b := sampleBudget()
	b.Months[1].AgeOfMoney = nil
	r := Compute(b, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), nil, nil)

	assert.NotContains(t, r.Values, state.KeyAgeOfMoney)
	assert.Equal(t, []string{state.KeyAgeOfMoney}, r.Remove)
}

func TestCompute_EmptyBudget(t *testing.T) {
	r := Compute(&ynab.BudgetDetail{}, time.Now(), nil, nil)
	assert.NotContains(t, r.Values, state.KeyToBeBudgeted)
	assert.Equal(t, 0.0, value(t, r, state.KeyNeedApproval))
	assert.Equal(t, 0.0, value(t, r, state.KeyTotalBalance))

	assert.Empty(t, Compute(nil, time.Now(), nil, nil).Values)
}

func TestCurrentMonth(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), "2024-05-01"},
		{time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC), "2024-12-01"},
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "2025-01-01"},
	}
	for _, tt := range tests {
		if got := CurrentMonth(tt.in); got != tt.want {
			t.Errorf("CurrentMonth(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
