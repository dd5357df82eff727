// Package daemon provides the long-running budget poller and its HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/theirongolddev/ynabd/internal/events"
	"github.com/theirongolddev/ynabd/internal/history"
	"github.com/theirongolddev/ynabd/internal/notify"
	"github.com/theirongolddev/ynabd/internal/refresh"
	"github.com/theirongolddev/ynabd/internal/sensor"
	"github.com/theirongolddev/ynabd/internal/state"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Name         string
	Currency     string
	BudgetID     string
	Accounts     []string
	Categories   []string
	Interval     time.Duration
	MinRefresh   time.Duration
	Addr         string
	EventsBuffer int
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time     `json:"started_at"`
	LastPollAt      time.Time     `json:"last_poll_at"`
	PollIntervalSec int           `json:"poll_interval_sec"`
	MinRefreshSec   int           `json:"min_refresh_sec"`
	PollCount       int64         `json:"poll_count"`
	Name            string        `json:"name"`
	Budget          string        `json:"budget"`
	Currency        string        `json:"currency"`
	Refresh         refresh.Stats `json:"refresh"`
	SensorCount     int           `json:"sensor_count"`
	EventCount      int           `json:"event_count"`
	SubscriberCount int           `json:"subscriber_count"`
	History         bool          `json:"history"`
	Notify          bool          `json:"notify"`
}

// Service wires the refresher to its outward surfaces.
type Service struct {
	cfg       Config
	store     *state.Store
	bus       *events.Bus
	refresher *refresh.Refresher
	platform  *sensor.Platform
	history   *history.DB
	notifier  *notify.Notifier
	registry  *prometheus.Registry
	metrics   *httpMetrics

	// keys restored from history, dropped by the first refresh that
	// no longer produces them
	seeded map[string]struct{}

	mu         sync.RWMutex
	startedAt  time.Time
	lastPollAt time.Time
	pollCount  int64
}

// New returns a daemon polling api. hist and notifier may be nil.
func New(cfg Config, api refresh.API, hist *history.DB, notifier *notify.Notifier) *Service {
	if cfg.MinRefresh <= 0 {
		cfg.MinRefresh = refresh.DefaultMinInterval
	}
	if cfg.Interval <= 0 {
		cfg.Interval = cfg.MinRefresh
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}

	s := &Service{
		cfg:       cfg,
		store:     state.New(),
		bus:       events.NewBus(cfg.EventsBuffer),
		history:   hist,
		notifier:  notifier,
		startedAt: time.Now(),
	}
	s.seed()

	s.refresher = refresh.New(api, s.store, s.bus, refresh.Options{
		BudgetID:    cfg.BudgetID,
		Accounts:    cfg.Accounts,
		Categories:  cfg.Categories,
		MinInterval: cfg.MinRefresh,
		AfterApply:  s.afterApply,
		AfterImport: s.afterImport,
	})

	keys := make([]string, 0, len(cfg.Accounts)+len(cfg.Categories))
	keys = append(keys, cfg.Accounts...)
	keys = append(keys, cfg.Categories...)
	s.platform = sensor.NewPlatform(cfg.Name, cfg.Currency, s.store, keys...)

	s.registry = prometheus.NewRegistry()
	s.metrics = newHTTPMetrics()
	s.registry.MustRegister(newCollector(s), s.metrics.requests, s.metrics.duration)

	return s
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info().Str("addr", s.cfg.Addr).Dur("interval", s.cfg.Interval).Msg("daemon listening")

	if s.notifier != nil {
		go s.notifier.Run(ctx, s.bus)
	}

	// First refresh right away so status is useful immediately.
	s.pollOnce(ctx)

	sched := cron.New()
	if _, err := sched.AddFunc("@every "+s.cfg.Interval.String(), func() { s.pollOnce(ctx) }); err != nil {
		_ = server.Close()
		return fmt.Errorf("scheduling refresh: %w", err)
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("daemon http server: %w", err)
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	ran, err := s.refresher.Update(ctx)

	s.mu.Lock()
	s.lastPollAt = time.Now()
	s.pollCount++
	s.mu.Unlock()

	if err != nil || !ran {
		return
	}
	log.Debug().Int("sensors", s.store.Len()).Msg("poll complete")
}

// seed loads the last saved readings so sensors have values before the
// first refresh completes.
func (s *Service) seed() {
	if s.history == nil {
		return
	}
	latest, err := s.history.Latest()
	if err != nil {
		log.Warn().Err(err).Msg("loading saved readings")
		return
	}
	s.seeded = make(map[string]struct{}, len(latest))
	for k, v := range latest {
		s.store.Set(k, v)
		s.seeded[k] = struct{}{}
	}
	if len(latest) > 0 {
		log.Info().Int("sensors", len(latest)).Msg("restored saved readings")
	}
}

// dropStaleSeed removes restored keys the current readings no longer
// contain, such as an account taken out of the config.
func (s *Service) dropStaleSeed(values map[string]state.Value) {
	s.mu.Lock()
	seeded := s.seeded
	s.seeded = nil
	s.mu.Unlock()

	var dropped int
	for k := range seeded {
		if _, ok := values[k]; ok {
			continue
		}
		s.store.Delete(k)
		dropped++
	}
	if dropped > 0 {
		log.Info().Int("sensors", dropped).Msg("dropped stale restored readings")
	}
}

func (s *Service) afterApply(at time.Time, values map[string]state.Value) {
	s.dropStaleSeed(values)
	s.platform.Refresh()
	if s.history == nil {
		return
	}
	if err := s.history.SaveReadings(at, values); err != nil {
		log.Error().Err(err).Msg("saving readings")
	}
}

func (s *Service) afterImport(at time.Time, budgetID string, count int) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordImport(at, budgetID, count); err != nil {
		log.Error().Err(err).Msg("recording import")
	}
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		MinRefreshSec:   int(s.cfg.MinRefresh.Seconds()),
		PollCount:       s.pollCount,
		Name:            s.cfg.Name,
		Budget:          s.cfg.BudgetID,
		Currency:        s.platform.Symbol(),
		Refresh:         s.refresher.Stats(),
		SensorCount:     s.store.Len(),
		EventCount:      len(s.bus.Recent()),
		SubscriberCount: s.bus.SubscriberCount(),
		History:         s.history != nil,
		Notify:          s.notifier != nil,
	}
}
