package refresh

import (
	"time"

	"github.com/theirongolddev/ynabd/internal/state"
	"github.com/theirongolddev/ynabd/internal/ynab"
)

// MonthLayout is the format of ynab.Month.Month.
const MonthLayout = "2006-01-02"

// Readings is the outcome of one computation: values to write and keys to
// clear.
type Readings struct {
	Values map[string]state.Value
	Remove []string
	// MonthFound reports whether a month matching today was present.
	MonthFound bool
}

// CurrentMonth returns the YYYY-MM-01 key of the month containing t.
func CurrentMonth(t time.Time) string {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).Format(MonthLayout)
}

// Compute derives every sensor value from a budget export. accounts and
// categories name the entries exposed individually.
func Compute(b *ynab.BudgetDetail, today time.Time, accounts, categories []string) Readings {
	r := Readings{Values: make(map[string]state.Value)}
	if b == nil {
		return r
	}

	wantAccount := toSet(accounts)
	wantCategory := toSet(categories)

	// months[0] is the newest month of the export
	if m := firstMonth(b.Months); m != nil {
		r.Values[state.KeyToBeBudgeted] = state.Currency(m.ToBeBudgeted.Decimal())
	}

	var unapproved, uncleared int
	for _, tx := range b.Transactions {
		if tx.Deleted {
			continue
		}
		if !tx.Approved {
			unapproved++
		}
		if tx.Cleared == ynab.Uncleared {
			uncleared++
		}
	}
	r.Values[state.KeyNeedApproval] = state.Count(unapproved)
	r.Values[state.KeyUnclearedTransactions] = state.Count(uncleared)

	var total ynab.Milliunits
	for _, a := range b.Accounts {
		if a.Deleted {
			continue
		}
		if a.OnBudget {
			total += a.Balance
		}
		if wantAccount[a.Name] {
			r.Values[a.Name] = state.Currency(a.Balance.Decimal())
		}
	}
	r.Values[state.KeyTotalBalance] = state.Currency(total.Decimal())

	current := CurrentMonth(today)
	for _, m := range b.Months {
		if m.Deleted || m.Month != current {
			continue
		}
		r.MonthFound = true

		r.Values[state.KeyBudgetedThisMonth] = state.Currency(m.Budgeted.Decimal())
		r.Values[state.KeyActivityThisMonth] = state.Currency(m.Activity.Decimal())
		if m.AgeOfMoney != nil {
			r.Values[state.KeyAgeOfMoney] = state.Days(*m.AgeOfMoney)
		} else {
			r.Remove = append(r.Remove, state.KeyAgeOfMoney)
		}

		overspent := 0
		for _, c := range m.Categories {
			if c.Deleted {
				continue
			}
			if c.Balance < 0 {
				overspent++
			}
			if wantCategory[c.Name] {
				r.Values[c.Name] = state.Currency(c.Balance.Decimal())
				r.Values[c.Name+state.BudgetedSuffix] = state.Currency(c.Budgeted.Decimal())
			}
		}
		r.Values[state.KeyOverspentCategories] = state.Count(overspent)
	}

	return r
}

func firstMonth(months []ynab.Month) *ynab.Month {
	for i := range months {
		if !months[i].Deleted {
			return &months[i]
		}
	}
	return nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
