// Package refresh pulls budget data from YNAB and turns it into sensor values.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/theirongolddev/ynabd/internal/events"
	"github.com/theirongolddev/ynabd/internal/state"
	"github.com/theirongolddev/ynabd/internal/ynab"
)

// DefaultMinInterval is the shortest gap between two throttled updates.
const DefaultMinInterval = 300 * time.Second

// throttleSlack absorbs scheduler jitter so a poll landing a few
// milliseconds short of MinInterval still runs.
const throttleSlack = 500 * time.Millisecond

// API is the subset of the YNAB client the refresher needs.
type API interface {
	Budgets(ctx context.Context) ([]ynab.BudgetSummary, error)
	Budget(ctx context.Context, budgetID string) (*ynab.BudgetDetail, error)
	ImportTransactions(ctx context.Context, budgetID string) (*ynab.ImportResult, error)
}

// Options configures a Refresher.
type Options struct {
	BudgetID    string
	Accounts    []string
	Categories  []string
	MinInterval time.Duration
	Now         func() time.Time

	// AfterApply runs after readings were written to the store.
	AfterApply func(at time.Time, values map[string]state.Value)
	// AfterImport runs after an import brought in transactions.
	AfterImport func(at time.Time, budgetID string, count int)
}

// Stats summarizes the refresher's activity.
type Stats struct {
	Updates              int64         `json:"updates"`
	Failures             int64         `json:"failures"`
	Throttled            int64         `json:"throttled"`
	TransactionsImported int64         `json:"transactions_imported"`
	LastAttempt          time.Time     `json:"last_attempt"`
	LastUpdate           time.Time     `json:"last_update"`
	LastDuration         time.Duration `json:"last_duration"`
	LastError            string        `json:"last_error,omitempty"`
	BudgetID             string        `json:"budget_id,omitempty"`
	BudgetName           string        `json:"budget_name,omitempty"`
	BudgetCount          int           `json:"budget_count"`
}

// Refresher owns the refresh routine for one budget.
type Refresher struct {
	api     API
	store   *state.Store
	bus     *events.Bus
	opts    Options
	limiter *rate.Limiter

	// serializes runs
	runMu sync.Mutex

	mu      sync.RWMutex
	stats   Stats
	lastErr error
}

// New returns a Refresher writing into store and announcing on bus.
func New(api API, store *state.Store, bus *events.Bus, opts Options) *Refresher {
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	every := opts.MinInterval
	if every > 2*throttleSlack {
		every -= throttleSlack
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BudgetID == "" {
		opts.BudgetID = "last-used"
	}
	return &Refresher{
		api:     api,
		store:   store,
		bus:     bus,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

// Update refreshes the store unless the previous update started less than
// MinInterval ago. It reports whether a refresh ran.
func (r *Refresher) Update(ctx context.Context) (bool, error) {
	if !r.limiter.AllowN(r.opts.Now(), 1) {
		r.mu.Lock()
		r.stats.Throttled++
		r.mu.Unlock()
		log.Debug().Str("budget", r.opts.BudgetID).Msg("refresh throttled")
		return false, nil
	}
	return true, r.run(ctx)
}

// ForceUpdate refreshes the store regardless of the throttle.
func (r *Refresher) ForceUpdate(ctx context.Context) error {
	return r.run(ctx)
}

// RequestImport forces a transaction import. Errors are logged and
// swallowed; the number of imported transactions is returned.
func (r *Refresher) RequestImport(ctx context.Context) int {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.requestImport(ctx)
}

// Stats returns a copy of the current counters.
func (r *Refresher) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// LastUpdate is when the last successful refresh started.
func (r *Refresher) LastUpdate() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats.LastUpdate
}

// LastError is the error of the most recent refresh, nil after a success.
func (r *Refresher) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// UpdateCount is the number of successful refreshes.
func (r *Refresher) UpdateCount() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats.Updates
}

func (r *Refresher) run(ctx context.Context) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	start := r.opts.Now()
	r.mu.Lock()
	r.stats.LastAttempt = start
	r.mu.Unlock()

	err := r.refresh(ctx, start)
	elapsed := r.opts.Now().Sub(start)

	r.mu.Lock()
	r.stats.LastDuration = elapsed
	r.lastErr = err
	if err != nil {
		r.stats.Failures++
		r.stats.LastError = err.Error()
	} else {
		r.stats.Updates++
		r.stats.LastUpdate = start
		r.stats.LastError = ""
	}
	r.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("budget", r.opts.BudgetID).Msg("refresh failed")
		if r.bus != nil {
			r.bus.Publish(events.TopicRefreshError, map[string]any{"error": err.Error()})
		}
	}
	return err
}

func (r *Refresher) refresh(ctx context.Context, now time.Time) error {
	r.requestImport(ctx)

	budgets, err := r.api.Budgets(ctx)
	if err != nil {
		return fmt.Errorf("fetching budgets: %w", err)
	}
	if len(budgets) > 0 {
		log.Debug().Int("count", len(budgets)).Msg("found budgets")
		for _, b := range budgets {
			log.Debug().Str("name", b.Name).Str("id", b.ID).Msg("budget")
		}
	} else {
		log.Error().Msg("unable to retrieve budgets summary")
	}

	detail, err := r.api.Budget(ctx, r.opts.BudgetID)
	if err != nil {
		return fmt.Errorf("fetching budget %s: %w", r.opts.BudgetID, err)
	}
	log.Debug().Str("budget_id", detail.ID).Msg("retrieving data from budget")

	readings := Compute(detail, now, r.opts.Accounts, r.opts.Categories)
	if !readings.MonthFound {
		log.Warn().Str("month", CurrentMonth(now)).Msg("current month missing from budget")
	}
	for k, v := range readings.Values {
		log.Debug().Str("key", k).Str("value", v.Amount.String()).Msg("received data")
	}

	changes := r.store.Apply(readings.Values, readings.Remove, now)
	if len(changes) > 0 && r.bus != nil {
		r.bus.Publish(events.TopicStateChanged, map[string]any{"changes": changes})
	}

	r.mu.Lock()
	r.stats.BudgetID = detail.ID
	r.stats.BudgetName = detail.Name
	r.stats.BudgetCount = len(budgets)
	r.mu.Unlock()

	if r.opts.AfterApply != nil {
		r.opts.AfterApply(now, readings.Values)
	}
	return nil
}

func (r *Refresher) requestImport(ctx context.Context) int {
	res, err := r.api.ImportTransactions(ctx, r.opts.BudgetID)
	if err != nil {
		log.Debug().Err(err).Msg("error encountered during forced import")
		return 0
	}

	n := len(res.TransactionIDs)
	log.Debug().Int("imported", n).Str("rate_limit", res.RateLimit).Msg("imported transactions")
	if n == 0 {
		return 0
	}

	r.mu.Lock()
	r.stats.TransactionsImported += int64(n)
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(events.TopicImported, map[string]any{events.DataTransactionsImported: n})
	}
	if r.opts.AfterImport != nil {
		r.opts.AfterImport(r.opts.Now(), r.opts.BudgetID, n)
	}
	return n
}
