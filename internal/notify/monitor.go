package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"callmail/internal/common/errors"
	"callmail/internal/common/logging"
)

// DefaultHealthSchedule runs the connectivity check every five minutes.
const DefaultHealthSchedule = "@every 5m"

const checkTimeout = 15 * time.Second

// Monitor periodically verifies SMTP connectivity so a broken mail path
// shows up before the next webhook hits it.
type Monitor struct {
	mailer   *Mailer
	schedule string
	cron     *cron.Cron
	entryID  cron.EntryID
	logger   logging.Logger

	mu        sync.RWMutex
	healthy   bool
	lastErr   error
	lastCheck time.Time
}

// Status is a point-in-time view of the monitor
type Status struct {
	Healthy   bool
	LastCheck time.Time
	LastError error
}

// NewMonitor creates a monitor running on the given cron schedule
func NewMonitor(mailer *Mailer, schedule string, logger logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	if schedule == "" {
		schedule = DefaultHealthSchedule
	}

	return &Monitor{
		mailer:   mailer,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
		healthy:  true,
	}
}

// Start schedules the periodic check and runs one immediately
func (m *Monitor) Start() error {
	id, err := m.cron.AddFunc(m.schedule, m.check)
	if err != nil {
		return errors.ConfigError(fmt.Sprintf("invalid mail health schedule %q: %v", m.schedule, err))
	}
	m.entryID = id

	m.cron.Start()
	go m.check()

	m.logger.Info("SMTP health monitor started",
		logging.String("schedule", m.schedule),
	)

	return nil
}

// Stop halts scheduling and waits for a running check to finish
func (m *Monitor) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()

	m.logger.Info("SMTP health monitor stopped")
}

// Status reports the result of the last connectivity check
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Status{
		Healthy:   m.healthy,
		LastCheck: m.lastCheck,
		LastError: m.lastErr,
	}
}

// NextCheck returns the next scheduled check time
func (m *Monitor) NextCheck() time.Time {
	return m.cron.Entry(m.entryID).Next
}

func (m *Monitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	err := m.mailer.Verify(ctx)

	m.mu.Lock()
	wasHealthy := m.healthy
	m.healthy = err == nil
	m.lastErr = err
	m.lastCheck = time.Now()
	m.mu.Unlock()

	switch {
	case err != nil && wasHealthy:
		m.logger.Warn("SMTP connectivity lost", logging.Err(err))
	case err == nil && !wasHealthy:
		m.logger.Info("SMTP connectivity restored")
	}
}
