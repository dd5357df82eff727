// Package sensor exposes the store as named entities: one primary budget
// entity plus one per configured account or category.
package sensor

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/currency"

	"github.com/theirongolddev/ynabd/internal/state"
)

// Icon is shown next to every entity.
const Icon = "mdi:finance"

// Entity is one exported sensor.
type Entity struct {
	Name       string         `json:"name"`
	UniqueID   string         `json:"unique_id"`
	Icon       string         `json:"icon"`
	Unit       string         `json:"unit_of_measurement"`
	State      any            `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at,omitzero"`
}

// Platform builds entities from a store.
type Platform struct {
	name   string
	symbol string
	store  *state.Store
	extra  []string

	mu       sync.RWMutex
	entities []Entity
}

// NewPlatform returns a platform named name. extra lists account and
// category keys that get their own entity when present in the store.
func NewPlatform(name, cur string, store *state.Store, extra ...string) *Platform {
	p := &Platform{
		name:   name,
		symbol: ResolveSymbol(cur),
		store:  store,
		extra:  extra,
	}
	p.Refresh()
	return p
}

// Symbol returns the display currency.
func (p *Platform) Symbol() string { return p.symbol }

// Entities returns the entities built by the last Refresh.
func (p *Platform) Entities() []Entity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Entity, len(p.entities))
	copy(out, p.entities)
	return out
}

// Refresh rebuilds the entities from the store.
func (p *Platform) Refresh() {
	snap := p.store.Snapshot()

	primary := Entity{
		Name:       p.name,
		UniqueID:   slug(p.name),
		Icon:       Icon,
		Unit:       p.symbol,
		Attributes: make(map[string]any, len(snap)),
	}
	if v, ok := snap[state.KeyToBeBudgeted]; ok {
		primary.State = v.Float64()
		primary.UpdatedAt = v.UpdatedAt
	}
	for k, v := range snap {
		if k == state.KeyToBeBudgeted {
			continue
		}
		primary.Attributes[k] = v.Float64()
	}

	entities := []Entity{primary}
	for _, k := range p.extra {
		v, ok := snap[k]
		if !ok {
			continue
		}
		e := Entity{
			Name:      p.name + " " + k,
			UniqueID:  slug(p.name + "_" + k),
			Icon:      Icon,
			Unit:      p.unitLabel(v.Unit),
			State:     v.Float64(),
			UpdatedAt: v.UpdatedAt,
		}
		if b, ok := snap[k+state.BudgetedSuffix]; ok {
			e.Attributes = map[string]any{"budgeted": b.Float64()}
		}
		entities = append(entities, e)
	}

	p.mu.Lock()
	p.entities = entities
	p.mu.Unlock()
}

func (p *Platform) unitLabel(u state.Unit) string {
	switch u {
	case state.UnitCurrency:
		return p.symbol
	case state.UnitDays:
		return "days"
	default:
		return ""
	}
}

var isoCode = regexp.MustCompile(`^[A-Z]{3}$`)

// ResolveSymbol turns an ISO 4217 code into its display symbol. Anything
// that is not a known code is returned unchanged.
func ResolveSymbol(cur string) string {
	cur = strings.TrimSpace(cur)
	if !isoCode.MatchString(cur) {
		return cur
	}
	unit, err := currency.ParseISO(cur)
	if err != nil {
		return cur
	}
	return fmt.Sprintf("%s", currency.Symbol(unit))
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "_"), "_")
}
