package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/ynabd/internal/events"
	"github.com/theirongolddev/ynabd/internal/state"
	"github.com/theirongolddev/ynabd/internal/ynab"
)

type fakeAPI struct {
	mu          sync.Mutex
	budget      *ynab.BudgetDetail
	budgets     []ynab.BudgetSummary
	budgetErr   error
	importIDs   []string
	importErr   error
	budgetCalls int
	importCalls int
	lastBudget  string
}

func (f *fakeAPI) Budgets(context.Context) ([]ynab.BudgetSummary, error) {
	return f.budgets, nil
}

func (f *fakeAPI) Budget(_ context.Context, id string) (*ynab.BudgetDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.budgetCalls++
	f.lastBudget = id
	if f.budgetErr != nil {
		return nil, f.budgetErr
	}
	return f.budget, nil
}

func (f *fakeAPI) ImportTransactions(context.Context, string) (*ynab.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.importCalls++
	if f.importErr != nil {
		return nil, f.importErr
	}
	return &ynab.ImportResult{TransactionIDs: f.importIDs, RateLimit: "1/200"}, nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRefresher(api API, clock *fakeClock) (*Refresher, *state.Store, *events.Bus) {
	store := state.New()
	bus := events.NewBus(50)
	r := New(api, store, bus, Options{
		BudgetID:   "b1",
		Accounts:   []string{"Checking"},
		Categories: []string{"Groceries"},
		Now:        clock.Now,
	})
	return r, store, bus
}

func topics(evs []events.Event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Topic)
	}
	return out
}

func TestUpdateWritesStore(t *testing.T) {
	api := &fakeAPI{budget: sampleBudget(), budgets: []ynab.BudgetSummary{{ID: "b1", Name: "Home"}}}
	clock := &fakeClock{t: time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)}
	r, store, bus := newTestRefresher(api, clock)

	ran, err := r.Update(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "b1", api.lastBudget)

	v, ok := store.Get(state.KeyTotalBalance)
	require.True(t, ok)
	assert.Equal(t, 650.0, v.Float64())
	_, ok = store.Get("Groceries" + state.BudgetedSuffix)
	assert.True(t, ok)

	assert.Equal(t, []string{events.TopicStateChanged}, topics(bus.Recent()))

	st := r.Stats()
	assert.Equal(t, int64(1), st.Updates)
	assert.Equal(t, "Home", st.BudgetName)
	assert.Equal(t, 1, st.BudgetCount)
}

func TestUpdateThrottled(t *testing.T) {
	api := &fakeAPI{budget: sampleBudget()}
	clock := &fakeClock{t: time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)}
	r, _, _ := newTestRefresher(api, clock)

	ran, err := r.Update(context.Background())
	require.NoError(t, err)
	require.True(t, ran)

	clock.Advance(299 * time.Second)
	ran, err = r.Update(context.Background())
	require.NoError(t, err)
	assert.False(t, ran, "second update inside 300s should be throttled")

	clock.Advance(2 * time.Second)
	ran, err = r.Update(context.Background())
	require.NoError(t, err)
	assert.True(t, ran, "update after 300s should run")

	assert.Equal(t, 2, api.budgetCalls)
	assert.Equal(t, int64(1), r.Stats().Throttled)
}

func TestUpdateToleratesTickJitter(t *testing.T) {
	api := &fakeAPI{budget: sampleBudget()}
	clock := &fakeClock{t: time.Date(2024, 5, 17, 9, 0, 0, 3_000_000, time.UTC)}
	r, _, _ := newTestRefresher(api, clock)

	ran, err := r.Update(context.Background())
	require.NoError(t, err)
	require.True(t, ran)

	// next 300s tick fires 2ms earlier relative to the previous one
	clock.Advance(299*time.Second + 998*time.Millisecond)
	ran, err = r.Update(context.Background())
	require.NoError(t, err)
	assert.True(t, ran, "a tick landing just short of the interval should run")

	clock.Advance(300 * time.Second)
	ran, err = r.Update(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)

	assert.Equal(t, 3, api.budgetCalls)
	assert.Zero(t, r.Stats().Throttled)
}

func TestForceUpdateBypassesThrottle(t *testing.T) {
	api := &fakeAPI{budget: sampleBudget()}
	clock := &fakeClock{t: time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)}
	r, _, _ := newTestRefresher(api, clock)

	_, err := r.Update(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.ForceUpdate(context.Background()))
	assert.Equal(t, 2, api.budgetCalls)
}

func TestImportFiresEvent(t *testing.T) {
	api := &fakeAPI{budget: sampleBudget(), importIDs: []string{"t1", "t2", "t3"}}
	clock := &fakeClock{t: time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)}
	r, _, bus := newTestRefresher(api, clock)

	var imported int
	r.opts.AfterImport = func(_ time.Time, budgetID string, n int) {
		assert.Equal(t, "b1", budgetID)
		imported = n
	}

	_, err := r.Update(context.Background())
	require.NoError(t, err)

	evs := bus.Recent()
	require.NotEmpty(t, evs)
	assert.Equal(t, events.TopicImported, evs[0].Topic)
	assert.Equal(t, 3, evs[0].Data[events.DataTransactionsImported])
	assert.Equal(t, 3, imported)
	assert.Equal(t, int64(3), r.Stats().TransactionsImported)
}

func TestImportWithoutTransactionsIsSilent(t *testing.T) {
	api := &fakeAPI{budget: sampleBudget()}
	clock := &fakeClock{t: time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)}
	r, _, bus := newTestRefresher(api, clock)

	assert.Equal(t, 0, r.RequestImport(context.Background()))
	assert.Empty(t, bus.Recent())
}

func TestImportErrorIsNotFatal(t *testing.T) {
	api := &fakeAPI{budget: sampleBudget(), importErr: errors.New("boom")}
	clock := &fakeClock{t: time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)}
	r, store, _ := newTestRefresher(api, clock)

	ran, err := r.Update(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, api.importCalls)
	assert.Positive(t, store.Len())
}

func TestBudgetErrorRecorded(t *testing.T) {
	api := &fakeAPI{budgetErr: ynab.ErrUnauthorized}
	clock := &fakeClock{t: time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)}
	r, store, bus := newTestRefresher(api, clock)

	ran, err := r.Update(context.Background())
	assert.True(t, ran)
	require.ErrorIs(t, err, ynab.ErrUnauthorized)
	assert.Zero(t, store.Len())

	st := r.Stats()
	assert.Equal(t, int64(1), st.Failures)
	assert.NotEmpty(t, st.LastError)
	assert.Equal(t, []string{events.TopicRefreshError}, topics(bus.Recent()))
	require.ErrorIs(t, r.LastError(), ynab.ErrUnauthorized)
	assert.Zero(t, r.UpdateCount())
	assert.True(t, r.LastUpdate().IsZero())

	// a failed attempt still counts against the throttle
	clock.Advance(time.Minute)
	ran, err = r.Update(context.Background())
	assert.False(t, ran)
	assert.NoError(t, err)

	api.budgetErr = nil
	api.budget = sampleBudget()
	require.NoError(t, r.ForceUpdate(context.Background()))
	assert.NoError(t, r.LastError())
	assert.Equal(t, int64(1), r.UpdateCount())
	assert.Equal(t, clock.Now(), r.LastUpdate())
}

func TestSecondUpdateOnlyPublishesChanges(t *testing.T) {
	api := &fakeAPI{budget: sampleBudget()}
	clock := &fakeClock{t: time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)}
	r, _, bus := newTestRefresher(api, clock)

	var applied int
	r.opts.AfterApply = func(time.Time, map[string]state.Value) { applied++ }

	require.NoError(t, r.ForceUpdate(context.Background()))
	require.NoError(t, r.ForceUpdate(context.Background()))
	assert.Len(t, bus.Recent(), 1, "identical data should not publish a second change event")
	assert.Equal(t, 2, applied)
}
