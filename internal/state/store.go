// Package state holds the shared in-process sensor values that the refresh
// loop writes and every outward surface reads.
package state

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Well-known keys written on every refresh.
const (
	KeyToBeBudgeted          = "to_be_budgeted"
	KeyNeedApproval          = "need_approval"
	KeyUnclearedTransactions = "uncleared_transactions"
	KeyTotalBalance          = "total_balance"
	KeyBudgetedThisMonth     = "budgeted_this_month"
	KeyActivityThisMonth     = "activity_this_month"
	KeyAgeOfMoney            = "age_of_money"
	KeyOverspentCategories   = "overspent_categories"

	// BudgetedSuffix is appended to a category name for its budgeted amount.
	BudgetedSuffix = "_budgeted"
)

// FixedKeys lists the well-known keys in display order.
var FixedKeys = []string{
	KeyToBeBudgeted,
	KeyTotalBalance,
	KeyBudgetedThisMonth,
	KeyActivityThisMonth,
	KeyAgeOfMoney,
	KeyNeedApproval,
	KeyUnclearedTransactions,
	KeyOverspentCategories,
}

// DisplayOrder returns keys ordered the way people read a budget: fixed
// keys first, then accounts, then categories each followed by their budgeted
// amount, then anything left over sorted by name. Only keys present in
// values are returned.
func DisplayOrder(values map[string]Value, accounts, categories []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	add := func(k string) {
		if _, ok := values[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}

	for _, k := range FixedKeys {
		add(k)
	}
	for _, k := range accounts {
		add(k)
	}
	for _, k := range categories {
		add(k)
		add(k + BudgetedSuffix)
	}

	rest := make([]string, 0, len(values)-len(out))
	for k := range values {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Unit classifies a value for display and export.
type Unit string

const (
	UnitCurrency Unit = "currency"
	UnitCount    Unit = "count"
	UnitDays     Unit = "days"
)

// Value is one sensor reading.
type Value struct {
	Amount    decimal.Decimal `json:"amount"`
	Unit      Unit            `json:"unit"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Float64 returns the amount as a float.
func (v Value) Float64() float64 {
	f, _ := v.Amount.Float64()
	return f
}

// Currency builds a money reading.
func Currency(d decimal.Decimal) Value {
	return Value{Amount: d, Unit: UnitCurrency}
}

// Count builds a counter reading.
func Count(n int) Value {
	return Value{Amount: decimal.NewFromInt(int64(n)), Unit: UnitCount}
}

// Days builds a duration-in-days reading.
func Days(n int) Value {
	return Value{Amount: decimal.NewFromInt(int64(n)), Unit: UnitDays}
}

// Change describes a key whose value moved during Apply.
type Change struct {
	Key string `json:"key"`
	Old *Value `json:"old,omitempty"`
	New Value  `json:"new"`
}

// Store is a concurrency-safe key/value map of readings.
type Store struct {
	mu     sync.RWMutex
	values map[string]Value
}

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string]Value)}
}

// Set writes a single value.
func (s *Store) Set(key string, v Value) {
	s.mu.Lock()
	s.values[key] = v
	s.mu.Unlock()
}

// Get returns the value for key.
func (s *Store) Get(key string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Delete removes key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Snapshot returns a copy of every value.
func (s *Store) Snapshot() map[string]Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Apply writes every reading, stamping zero UpdatedAt with at, removes the
// keys listed in remove, and returns the changes sorted by key.
// Keys not mentioned keep their previous value.
func (s *Store) Apply(readings map[string]Value, remove []string, at time.Time) []Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changes []Change
	for k, v := range readings {
		if v.UpdatedAt.IsZero() {
			v.UpdatedAt = at
		}
		old, had := s.values[k]
		s.values[k] = v
		if had && old.Unit == v.Unit && old.Amount.Equal(v.Amount) {
			continue
		}
		c := Change{Key: k, New: v}
		if had {
			o := old
			c.Old = &o
		}
		changes = append(changes, c)
	}
	for _, k := range remove {
		if _, had := s.values[k]; had {
			delete(s.values, k)
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}
