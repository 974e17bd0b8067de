/*
scheduler.go - Automated reconciliation scheduler

PURPOSE:
  Periodically replays the transaction log against the live stock ledger
  and logs any divergence. Divergences are flagged, never auto-patched;
  an operator decides what to do with untracked quantity.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs one check immediately on start
  - Logs each divergent key with its replayed/live balances

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReconcileScheduler(engine.Store())
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Reconcile endpoint (on-demand check)
  - inventory/reconcile.go: CheckReplayIdentity
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sigap/inventory-engine/inventory"
)

// ReconcileScheduler runs the replay-identity check on an interval.
type ReconcileScheduler struct {
	Store         inventory.Store
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReconcileScheduler creates a new scheduler.
func NewReconcileScheduler(store inventory.Store) *ReconcileScheduler {
	return &ReconcileScheduler{
		Store:         store,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *ReconcileScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *ReconcileScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *ReconcileScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.check()

	for {
		select {
		case <-rs.ticker.C:
			rs.check()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReconcileScheduler) check() {
	ctx := context.Background()

	divergences, err := inventory.CheckReplayIdentity(ctx, rs.Store)
	if err != nil {
		log.Printf("[Scheduler] Reconcile check failed: %v", err)
		return
	}

	if len(divergences) == 0 {
		return
	}

	log.Printf("[Scheduler] Reconcile check found %d divergent key(s)", len(divergences))
	for _, d := range divergences {
		log.Printf("[Scheduler]   %s: replayed=%d live=%d delta=%d",
			d.Key, d.Replayed, d.Live, d.Delta())
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *ReconcileScheduler) RunNow() {
	rs.check()
}
