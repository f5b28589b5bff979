package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/monitors"
	"github.com/upwatch-dev/upwatch/internal/tracker"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Options struct {
	// PollInterval is how often the store is scanned for due checks.
	PollInterval time.Duration
	// Workers bounds the number of concurrent probe executions.
	Workers int
	// Region restricts this instance to one region's status rows; empty
	// means the instance checks every region.
	Region string
}

// Scheduler drives the whole pipeline: it polls the store for due
// (monitor, region) pairs, probes them concurrently, and feeds each result
// through the tracker. Scheduling state lives entirely in next_check_at, so
// a restarted scheduler just resumes picking up overdue monitors.
type Scheduler struct {
	db      *gorm.DB
	logger  *zap.Logger
	tracker *tracker.Tracker
	opts    Options

	sem        chan struct{}
	inflight   map[string]struct{}
	inflightMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(db *gorm.DB, logger *zap.Logger, trk *tracker.Tracker, opts Options) *Scheduler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		db:       db,
		logger:   logger,
		tracker:  trk,
		opts:     opts,
		sem:      make(chan struct{}, opts.Workers),
		inflight: make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the polling loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler",
		zap.Duration("poll_interval", s.opts.PollInterval),
		zap.Int("workers", s.opts.Workers),
		zap.String("region", s.opts.Region))

	s.wg.Add(1)
	go s.run()
}

// Stop cancels the loop and waits for in-flight checks to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	// initial pass so overdue monitors are picked up immediately
	s.tick()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick dispatches every due (monitor, region) pair. A store error drops the
// pass; the next one retries.
func (s *Scheduler) tick() {
	var due []models.MonitorStatus

	query := s.db.
		Joins("JOIN monitors ON monitors.id = monitor_statuses.monitor_id").
		Where("monitors.enabled = ? AND monitor_statuses.next_check_at <= ?", true, time.Now())

	if s.opts.Region != "" {
		query = query.Where("monitor_statuses.region = ?", s.opts.Region)
	}

	if err := query.Find(&due).Error; err != nil {
		s.logger.Error("failed to query due monitors", zap.Error(err))
		return
	}

	for _, status := range due {
		key := fmt.Sprintf("%d/%s", status.MonitorID, status.Region)

		s.inflightMu.Lock()
		if _, running := s.inflight[key]; running {
			s.inflightMu.Unlock()
			continue
		}
		s.inflight[key] = struct{}{}
		s.inflightMu.Unlock()

		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			s.clearInflight(key)
			return
		}

		s.wg.Add(1)
		go s.execute(status.MonitorID, status.Region, key)
	}
}

// execute runs one probe and applies its result. Probes run concurrently
// across monitors; the tracker serializes the downstream pipeline per key.
func (s *Scheduler) execute(monitorID uint, region, key string) {
	defer func() {
		<-s.sem
		s.clearInflight(key)
		s.wg.Done()
	}()

	var monitor models.Monitor

	if err := s.db.First(&monitor, monitorID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("failed to load monitor", zap.Uint("monitor_id", monitorID), zap.Error(err))
		}
		return
	}

	if !monitor.Enabled {
		return
	}

	result, err := monitors.Probe(s.ctx, &monitor)
	if err != nil {
		// Config errors are caught at create/update; one slipping through
		// must not hot-loop, so push the cursor forward anyway.
		s.logger.Error("probe rejected monitor config",
			zap.Uint("monitor_id", monitorID), zap.Error(err))
		s.deferCheck(monitorID, region, monitor.Interval)
		return
	}

	if err := s.tracker.Apply(s.ctx, monitorID, region, result); err != nil {
		// Dropped tick; next_check_at is unchanged so the next pass retries.
		s.logger.Error("failed to apply probe result",
			zap.Uint("monitor_id", monitorID),
			zap.String("region", region),
			zap.Error(err))
	}
}

func (s *Scheduler) deferCheck(monitorID uint, region string, intervalSeconds int) {
	next := time.Now().Add(time.Duration(intervalSeconds) * time.Second)

	err := s.db.Model(&models.MonitorStatus{}).
		Where("monitor_id = ? AND region = ?", monitorID, region).
		Update("next_check_at", next).Error
	if err != nil {
		s.logger.Error("failed to defer check", zap.Uint("monitor_id", monitorID), zap.Error(err))
	}
}

func (s *Scheduler) clearInflight(key string) {
	s.inflightMu.Lock()
	delete(s.inflight, key)
	s.inflightMu.Unlock()
}

// Status reports loop health for the health endpoint.
func (s *Scheduler) Status() map[string]interface{} {
	s.inflightMu.Lock()
	running := len(s.inflight)
	s.inflightMu.Unlock()

	return map[string]interface{}{
		"running":         s.ctx.Err() == nil,
		"inflight_checks": running,
	}
}
