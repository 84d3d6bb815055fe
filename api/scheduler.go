/*
scheduler.go - Automated results-lock scheduler

PURPOSE:
  Freezes store-result entry for the previous month once the closing grace
  period has passed, so the network compares stores on settled numbers.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - The target period is the month before now, once now is more than
    GraceDays into its month; before that nothing is due
  - Skips stores already locked for the target period
  - Skips stores a manager explicitly reopened (lock entry present and false)
  - Records an audit event per lock

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - GraceDays: Days into a month before the previous one locks (default: 5)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewResultsLockScheduler(store, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: SetLock endpoint (manual locks) and RunLockScheduler
  - kpi/service.go: LockIfUnset
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/store-performance/kpi"
	"github.com/warp/store-performance/store/sqlite"
)

const schedulerActor = "scheduler"

// ResultsLockScheduler locks last month's results after the grace period.
type ResultsLockScheduler struct {
	Store         *sqlite.Store
	Service       *kpi.Service
	Log           logrus.FieldLogger
	CheckInterval time.Duration
	GraceDays     int
	Enabled       bool

	// Now is the clock; tests replace it.
	Now func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	runMu  sync.Mutex
}

// NewResultsLockScheduler creates a new scheduler.
func NewResultsLockScheduler(store *sqlite.Store, log logrus.FieldLogger) *ResultsLockScheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ResultsLockScheduler{
		Store:         store,
		Service:       kpi.NewService(store),
		Log:           log.WithField("component", "lock-scheduler"),
		CheckInterval: 1 * time.Hour,
		GraceDays:     5,
		Enabled:       true,
		Now:           time.Now,
	}
}

// Start begins the scheduler.
func (rs *ResultsLockScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Log.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run()

	rs.Log.WithField("interval", rs.CheckInterval).Info("started")
}

// Stop stops the scheduler and waits for a running check to finish.
func (rs *ResultsLockScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.Log.Info("stopped")
	}
}

func (rs *ResultsLockScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndLock()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndLock()
		case <-rs.stop:
			return
		}
	}
}

// TargetPeriod returns the period due for locking at now, or "" while the
// previous month is still inside its grace period.
func (rs *ResultsLockScheduler) TargetPeriod(now time.Time) kpi.Period {
	if now.Day() <= rs.GraceDays {
		return ""
	}
	return kpi.PeriodOf(now).Prev()
}

// RunNow triggers an immediate check and returns how many stores it locked.
func (rs *ResultsLockScheduler) RunNow() int {
	return rs.checkAndLock()
}

func (rs *ResultsLockScheduler) checkAndLock() int {
	rs.runMu.Lock()
	defer rs.runMu.Unlock()

	ctx := context.Background()
	target := rs.TargetPeriod(rs.Now())
	if target == "" {
		rs.Log.Debug("no period due for locking")
		return 0
	}

	stores, err := rs.Store.ListStores(ctx)
	if err != nil {
		rs.Log.WithError(err).Error("listing stores")
		return 0
	}

	locked, skipped := 0, 0
	for i := range stores {
		st := &stores[i]
		// Decided on the latest record, not the listing, so a reopen that
		// lands mid-run is kept.
		ok, err := rs.Service.LockIfUnset(ctx, st.ID, target)
		if err != nil {
			rs.Log.WithError(err).WithFields(logrus.Fields{"store": st.Code, "period": target}).Error("locking results")
			continue
		}
		if !ok {
			// Locked already, or reopened by a manager.
			skipped++
			continue
		}
		locked++

		err = rs.Store.AppendAudit(ctx, sqlite.AuditEvent{
			Actor:   schedulerActor,
			Type:    sqlite.AuditPeriodLocked,
			StoreID: st.ID,
			Period:  target,
			Payload: map[string]any{"grace_days": rs.GraceDays},
		})
		if err != nil {
			rs.Log.WithError(err).WithField("store", st.Code).Warn("audit append failed")
		}
	}

	if locked > 0 || skipped > 0 {
		rs.Log.WithFields(logrus.Fields{
			"period":  target,
			"locked":  locked,
			"skipped": skipped,
		}).Info("results lock check completed")
	}
	return locked
}

// GetNextRunTime returns when the next scheduled check will occur.
func (rs *ResultsLockScheduler) GetNextRunTime() time.Time {
	return rs.Now().Add(rs.CheckInterval)
}
