package engine

import (
	"fmt"
	"time"

	"github.com/driftsync/driftsync/internal/queue"
	"github.com/driftsync/driftsync/internal/txlog"
)

// worker drains the queue until shutdown. Each processed task is followed by
// a rotation check so the journal never grows unbounded under load.
func (e *Engine) worker(id int) {
	defer e.wg.Done()

	for e.running.Load() {
		task, ok := e.queue.Dequeue(e.cfg.DequeuePoll)
		if !ok {
			continue
		}
		e.safeProcess(task)

		if err := e.log.RotateIfNeeded(e.cfg.RotationSize); err != nil {
			e.logger.Warn("log rotation failed", "worker", id, "error", err)
		}
	}
}

// safeProcess converts an unexpected panic into a metric so one bad task
// cannot kill a worker.
func (e *Engine) safeProcess(task queue.Task) {
	defer func() {
		if r := recover(); r != nil {
			e.sink.Record("sync_error", fmt.Sprintf("%v: %s", r, task.Path))
			e.logger.Error("task processing panicked", "path", task.Path, "panic", r)
		}
	}()
	e.processTask(task)
}

// processTask runs the replication state machine for one task: journal the
// intent, mark it in progress, copy, verify, then record the terminal
// status. A failed attempt with retries left is requeued as a new task
// after a backoff; each attempt gets its own transaction id.
func (e *Engine) processTask(task queue.Task) {
	src := task.Path
	dst := e.mapper.Map(src)

	id, err := e.log.Append(txlog.OpCopy, src, dst, "")
	if err != nil {
		e.sink.Record("tx_log_failed", src)
		e.logger.Error("journal append failed", "path", src, "error", err)
		return
	}
	e.sink.Record("tx_started", id)

	if err := e.log.UpdateStatus(id, txlog.StatusInProgress, ""); err != nil {
		e.sink.Record("tx_log_failed", src)
		return
	}

	var errMsg string
	if copyErr := e.copy(src, dst); copyErr != nil {
		e.sink.Record("sync_error", fmt.Sprintf("%v: %s", copyErr, src))
		errMsg = "Sync operation failed"
	} else {
		res := e.verifier.File(src, dst, e.cfg.VerifyMethod)
		if res.Matches {
			e.sink.Record("sync_verification", "success")
			if err := e.log.UpdateStatus(id, txlog.StatusCompleted, ""); err != nil {
				e.sink.Record("tx_log_failed", src)
				return
			}
			e.sink.Record("tx_completed", id)
			return
		}
		e.sink.Record("sync_verification", "failed: "+res.ErrorMessage)
		errMsg = res.ErrorMessage
	}

	if err := e.log.UpdateStatus(id, txlog.StatusFailed, errMsg); err != nil {
		e.sink.Record("tx_log_failed", src)
	}
	e.sink.Record("tx_failed", id+": "+errMsg)
	e.logger.Warn("sync attempt failed",
		"path", src,
		"attempt", task.RetryCount+1,
		"error", errMsg,
	)

	if task.RetryCount >= e.cfg.MaxRetries {
		return
	}

	retry := task.Retry()
	if !e.sleepRetry() {
		return
	}
	if e.queue.Enqueue(retry, e.cfg.EnqueueTimeout) {
		e.sink.Record("tx_retry", id)
	} else {
		e.sink.Record("tx_recovery_queue_failed", id)
	}
}

// sleepRetry waits out the retry backoff, returning false if the engine
// stopped in the meantime.
func (e *Engine) sleepRetry() bool {
	if e.cfg.RetryBackoff <= 0 {
		return true
	}
	t := time.NewTimer(e.cfg.RetryBackoff)
	defer t.Stop()
	select {
	case <-e.stop:
		return false
	case <-t.C:
		return true
	}
}
