package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pixelplay/alert"
)

// Pinger checks whether the file host is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UpstreamMonitor polls the file host and reports reachability changes
type UpstreamMonitor struct {
	pinger   Pinger
	notifier alert.Notifier
	interval time.Duration
	logger   *slog.Logger
	wg       *sync.WaitGroup

	mu        sync.Mutex
	reachable bool
	downSince time.Time
}

// NewUpstreamMonitor creates a new UpstreamMonitor instance
func NewUpstreamMonitor(pinger Pinger, notifier alert.Notifier, interval time.Duration, wg *sync.WaitGroup) *UpstreamMonitor {
	return &UpstreamMonitor{
		pinger:    pinger,
		notifier:  notifier,
		interval:  interval,
		logger:    slog.With("component", "upstream-monitor"),
		wg:        wg,
		reachable: true,
	}
}

// Start begins polling until ctx is cancelled. A zero interval disables it.
func (m *UpstreamMonitor) Start(ctx context.Context) {
	if m.interval <= 0 {
		m.logger.Info("Upstream monitoring disabled")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.logger.Info("Starting upstream monitoring", slog.Duration("interval", m.interval))

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.Check(ctx)
			case <-ctx.Done():
				m.logger.Info("Upstream monitoring stopped")
				return
			}
		}
	}()
}

// Check pings once and notifies on a state change.
func (m *UpstreamMonitor) Check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, m.interval/2+time.Second)
	defer cancel()

	err := m.pinger.Ping(pingCtx)
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	was := m.reachable
	m.reachable = err == nil
	var downFor time.Duration
	switch {
	case was && err != nil:
		m.downSince = time.Now()
	case !was && err == nil:
		downFor = time.Since(m.downSince)
	}
	m.mu.Unlock()

	switch {
	case was && err != nil:
		m.logger.Warn("Upstream unreachable", slog.Any("error", err))
		m.notifier.UpstreamStatus(false, err)
	case !was && err == nil:
		m.logger.Info("Upstream reachable again", slog.Duration("down_for", downFor))
		m.notifier.UpstreamStatus(true, nil)
	case err != nil:
		m.logger.Debug("Upstream still unreachable", slog.Any("error", err))
	default:
		m.logger.Debug("Upstream reachable")
	}
}

// Reachable reports the result of the last check.
func (m *UpstreamMonitor) Reachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reachable
}
