package sensor

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ynabd/internal/state"
)

func TestResolveSymbolPassthrough(t *testing.T) {
	tests := []string{"$", "€", "kr", "", "usd", "ABCD"}
	for _, in := range tests {
		if got := ResolveSymbol(in); got != in {
			t.Errorf("ResolveSymbol(%q) = %q, want passthrough", in, got)
		}
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "ynab", slug("YNAB"))
	assert.Equal(t, "my_budget_groceries", slug("My Budget_Groceries "))
	assert.Equal(t, "caf", slug("Café"))
}

func TestPlatformEntities(t *testing.T) {
	at := time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)
	store := state.New()
	readings := map[string]state.Value{
		state.KeyToBeBudgeted: state.Currency(decimal.RequireFromString("12.34")),
		state.KeyNeedApproval: state.Count(2),
		state.KeyAgeOfMoney:   state.Days(42),
		"Checking":            state.Currency(decimal.NewFromInt(150)),
		"Groceries":           state.Currency(decimal.RequireFromString("-2.5")),
	}
	readings["Groceries"+state.BudgetedSuffix] = state.Currency(decimal.NewFromInt(40))
	store.Apply(readings, nil, at)

	p := NewPlatform("YNAB", "$", store, "Checking", "Groceries", "Missing")
	ents := p.Entities()
	require.Len(t, ents, 3)

	primary := ents[0]
	assert.Equal(t, "YNAB", primary.Name)
	assert.Equal(t, "ynab", primary.UniqueID)
	assert.Equal(t, Icon, primary.Icon)
	assert.Equal(t, "$", primary.Unit)
	assert.Equal(t, 12.34, primary.State)
	assert.Equal(t, at, primary.UpdatedAt)
	assert.NotContains(t, primary.Attributes, state.KeyToBeBudgeted)
	assert.Equal(t, 2.0, primary.Attributes[state.KeyNeedApproval])
	assert.Equal(t, 42.0, primary.Attributes[state.KeyAgeOfMoney])

	assert.Equal(t, "YNAB Checking", ents[1].Name)
	assert.Equal(t, "ynab_checking", ents[1].UniqueID)
	assert.Equal(t, 150.0, ents[1].State)
	assert.Nil(t, ents[1].Attributes)

	assert.Equal(t, -2.5, ents[2].State)
	assert.Equal(t, 40.0, ents[2].Attributes["budgeted"])
}

func TestPlatformRefresh(t *testing.T) {
	store := state.New()
	p := NewPlatform("YNAB", "$", store)
	ents := p.Entities()
	require.Len(t, ents, 1)
	assert.Nil(t, ents[0].State)

	store.Set(state.KeyToBeBudgeted, state.Currency(decimal.NewFromInt(5)))
	assert.Nil(t, p.Entities()[0].State, "entities change only on Refresh")

	p.Refresh()
	assert.Equal(t, 5.0, p.Entities()[0].State)
}

func TestPlatformRefreshAttributesMatchSnapshot(t *testing.T) {
	store := state.New()
	store.Set(state.KeyToBeBudgeted, state.Currency(decimal.NewFromInt(5)))
	store.Set(state.KeyAgeOfMoney, state.Days(30))
	store.Set(state.KeyNeedApproval, state.Count(1))
	p := NewPlatform("YNAB", "$", store)

	store.Delete(state.KeyAgeOfMoney)
	p.Refresh()

	attrs := p.Entities()[0].Attributes
	assert.Equal(t, map[string]any{state.KeyNeedApproval: 1.0}, attrs)
}

func TestUnitLabel(t *testing.T) {
	p := NewPlatform("YNAB", "kr", state.New())
	assert.Equal(t, "kr", p.unitLabel(state.UnitCurrency))
	assert.Equal(t, "days", p.unitLabel(state.UnitDays))
	assert.Equal(t, "", p.unitLabel(state.UnitCount))
}
