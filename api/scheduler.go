/*
scheduler.go - Background jobs for balance maintenance

PURPOSE:
  Runs the periodic jobs that keep cached tenant balances trustworthy:

  1. Month rollover ("15 0 1 * *"):
     At 00:15 UTC on the 1st of each month every tenant owes a fresh
     rent or service charge. Rebuilds all cached balances so arrears
     feeds reflect the new month without waiting for a payment.

  2. Nightly audit ("45 1 * * *"):
     Recomputes every balance from the ledger and compares against the
     cache. Drift and double-occupancy conflicts are logged. When the
     scheduler is started in repair mode, drifted caches are rewritten
     from the recomputed values.

CONCURRENCY:
  Jobs run on the cron goroutine. Bookkeeper methods take the store
  lock themselves, so no extra synchronization is needed here.

USAGE:
  sched := api.NewScheduler(books, repairDrift)
  sched.Start()
  // ... later
  sched.Stop()

SEE ALSO:
  - billing/bookkeeper.go: RebuildBalances, AuditBalances
  - cmd/server/main.go: Lifecycle wiring
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/logging"
)

const (
	monthRolloverSpec = "15 0 1 * *"
	nightlyAuditSpec  = "45 1 * * *"
)

// Scheduler owns the cron runner for balance maintenance jobs.
type Scheduler struct {
	books  *billing.Bookkeeper
	cron   *cron.Cron
	repair bool
}

// NewScheduler creates a scheduler. With repairDrift set, the nightly
// audit rewrites drifted caches instead of only reporting them.
func NewScheduler(books *billing.Bookkeeper, repairDrift bool) *Scheduler {
	return &Scheduler{
		books:  books,
		cron:   cron.New(cron.WithLocation(time.UTC)),
		repair: repairDrift,
	}
}

// Start registers the jobs and launches the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(monthRolloverSpec, s.RunRollover); err != nil {
		return fmt.Errorf("failed to schedule month rollover: %w", err)
	}
	if _, err := s.cron.AddFunc(nightlyAuditSpec, s.RunAudit); err != nil {
		return fmt.Errorf("failed to schedule nightly audit: %w", err)
	}
	s.cron.Start()
	logging.Logger.WithFields(map[string]interface{}{
		"rollover": monthRolloverSpec,
		"audit":    nightlyAuditSpec,
		"repair":   s.repair,
	}).Info("Balance scheduler started")
	return nil
}

// Stop halts the cron runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logging.Logger.Info("Balance scheduler stopped")
}

// RunRollover rebuilds every cached balance. Called by cron on the 1st
// of the month and available for manual triggering.
func (s *Scheduler) RunRollover() {
	changed, err := s.books.RebuildBalances(context.Background())
	if err != nil {
		logging.Logger.WithError(err).Error("Month rollover rebuild failed")
		return
	}
	logging.Logger.WithField("changed", changed).Info("Month rollover rebuild complete")
}

// RunAudit recomputes balances, logs drift and occupancy conflicts, and
// heals drift when repair mode is on.
func (s *Scheduler) RunAudit() {
	ctx := context.Background()
	report, err := s.books.AuditBalances(ctx)
	if err != nil {
		logging.Logger.WithError(err).Error("Balance audit failed")
		return
	}

	for _, d := range report.Drift {
		logging.Logger.WithFields(map[string]interface{}{
			"tenant":   d.TenantID,
			"cached":   d.Cached.String(),
			"computed": d.Computed.String(),
		}).Warn("Cached balance drifted from ledger")
	}
	for _, c := range report.Conflicts {
		logging.Logger.WithFields(map[string]interface{}{
			"property": c.Key.PropertyID,
			"unit":     c.Key.UnitName,
			"tenants":  c.Tenants,
		}).Warn("Multiple active tenants on one unit")
	}

	if len(report.Drift) > 0 && s.repair {
		changed, err := s.books.RebuildBalances(ctx)
		if err != nil {
			logging.Logger.WithError(err).Error("Drift repair failed")
			return
		}
		logging.Logger.WithField("repaired", changed).Info("Drifted balances rewritten from ledger")
	}

	logging.Logger.WithFields(map[string]interface{}{
		"checked":   report.Checked,
		"drift":     len(report.Drift),
		"conflicts": len(report.Conflicts),
	}).Info("Balance audit complete")
}
