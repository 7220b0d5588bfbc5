package engine

import (
	"fmt"
	"os"
	"time"

	"github.com/driftsync/driftsync/internal/queue"
	"github.com/driftsync/driftsync/internal/txlog"
)

// recoveryLoop periodically re-drives transactions the journal shows as
// started but never finished. Transactions younger than the grace period
// are assumed still active and left alone.
func (e *Engine) recoveryLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.RecoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
		}
		if !e.running.Load() {
			return
		}
		e.runRecovery()
	}
}

// runRecovery scans the journal once. Errors are recorded and swallowed so
// one bad pass cannot kill the worker.
func (e *Engine) runRecovery() {
	defer func() {
		if r := recover(); r != nil {
			e.sink.Record("recovery_error", fmt.Sprint(r))
			e.logger.Error("recovery pass panicked", "panic", r)
		}
	}()

	pending := e.log.Pending()
	if len(pending) == 0 {
		return
	}
	e.sink.Record("recovery_started", fmt.Sprintf("found %d transactions", len(pending)))

	for _, tx := range pending {
		if time.Since(tx.Time()) < e.cfg.RecoveryGrace {
			continue
		}
		e.recoverTransaction(tx)
	}
}

// recoverTransaction re-enqueues one orphaned transaction at High priority,
// or closes it out when the source has vanished.
func (e *Engine) recoverTransaction(tx txlog.Record) {
	e.sink.Record("tx_recovery_attempt", tx.ID)

	if _, err := os.Stat(tx.SourcePath); err != nil {
		if uerr := e.log.UpdateStatus(tx.ID, txlog.StatusFailed, "Source file no longer exists"); uerr != nil {
			e.logger.Warn("failed to close orphaned transaction", "id", tx.ID, "error", uerr)
		}
		e.sink.Record("tx_recovery_failed", tx.ID+": source missing")
		return
	}

	task := queue.NewTask(tx.SourcePath, queue.KindRecovery, queue.High)
	if !e.queue.Enqueue(task, e.cfg.EnqueueTimeout) {
		e.sink.Record("tx_recovery_queue_failed", tx.ID)
		return
	}
	e.sink.Record("tx_recovery_queued", tx.ID)

	// The re-driven attempt gets its own id; close the orphaned record so
	// the next pass does not pick it up again.
	if err := e.log.UpdateStatus(tx.ID, txlog.StatusRolledBack, "superseded by recovery"); err != nil {
		e.logger.Warn("failed to supersede orphaned transaction", "id", tx.ID, "error", err)
	}
}
