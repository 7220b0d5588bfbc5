// Package engine orchestrates durable one-way replication: it turns change
// events and recovery events into journaled, verified copy operations.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/driftsync/driftsync/internal/config"
	"github.com/driftsync/driftsync/internal/metrics"
	"github.com/driftsync/driftsync/internal/pathmap"
	"github.com/driftsync/driftsync/internal/queue"
	"github.com/driftsync/driftsync/internal/txlog"
	"github.com/driftsync/driftsync/internal/verify"
)

// Options supplies the engine's collaborators. Zero-value fields get
// sensible defaults derived from the configuration.
type Options struct {
	Mapper   pathmap.Mapper
	Sink     metrics.Sink
	Logger   *slog.Logger
	Verifier *verify.Verifier
	Log      *txlog.Log

	// CopyFunc overrides the file copy operation. Tests use it to inject
	// I/O failures.
	CopyFunc func(src, dst string) error
}

// Engine owns the priority queue, transaction log, and verifier for its
// lifetime. Workers share them through the components' own locking.
type Engine struct {
	cfg      config.Config
	mapper   pathmap.Mapper
	sink     metrics.Sink
	logger   *slog.Logger
	verifier *verify.Verifier
	log      *txlog.Log
	copy     func(src, dst string) error

	mu      sync.Mutex
	queue   *queue.PriorityQueue
	wg      sync.WaitGroup
	stop    chan struct{}
	running atomic.Bool

	checkRequested atomic.Bool
	checkCh        chan struct{}
}

// New assembles an engine from cfg. Nothing runs until Start.
func New(cfg config.Config, opts Options) *Engine {
	e := &Engine{
		cfg:      cfg,
		mapper:   opts.Mapper,
		sink:     opts.Sink,
		logger:   opts.Logger,
		verifier: opts.Verifier,
		log:      opts.Log,
		copy:     opts.CopyFunc,
		checkCh:  make(chan struct{}, 1),
	}
	if e.mapper == nil {
		e.mapper = pathmap.PrefixMapper{SourceRoot: cfg.SourceRoot, DestRoot: cfg.DestRoot}
	}
	if e.sink == nil {
		e.sink = metrics.NopSink{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.verifier == nil {
		e.verifier = verify.New()
	}
	if e.log == nil {
		e.log = txlog.New(cfg.LogDir, txlog.Options{
			CompressArchives: cfg.CompressArchives,
			Logger:           e.logger,
		})
	}
	if e.copy == nil {
		e.copy = CopyFile
	}
	return e
}

// Start opens the transaction log and launches the worker pool plus the
// recovery and reconciliation workers. Starting a running engine is a
// no-op. An unopenable log is fatal: the engine refuses to start.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running.Load() {
		return nil
	}

	if err := e.log.Open(); err != nil {
		return fmt.Errorf("open transaction log: %w", err)
	}

	e.queue = queue.New(e.cfg.QueueCapacity)
	e.stop = make(chan struct{})
	e.running.Store(true)

	for i := 0; i < e.cfg.NumThreads; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	e.wg.Add(2)
	go e.recoveryLoop()
	go e.reconcileLoop()

	e.sink.Record("sync_manager", "started")
	e.logger.Info("sync engine started",
		"workers", e.cfg.NumThreads,
		"source", e.cfg.SourceRoot,
		"dest", e.cfg.DestRoot,
	)
	return nil
}

// Stop shuts the engine down gracefully: in-flight tasks finish their
// current state-machine step, queued tasks are dropped (reconciliation will
// re-discover them), and the log is closed. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running.Load() {
		return
	}

	e.running.Store(false)
	close(e.stop)
	e.queue.Shutdown()
	e.wg.Wait()

	if err := e.log.Close(); err != nil {
		e.logger.Warn("close transaction log", "error", err)
	}
	e.sink.Record("sync_manager", "stopped")
	e.logger.Info("sync engine stopped")
}

// SyncFile schedules one path for replication. Reports false when the
// engine is not running or the queue rejected the task.
func (e *Engine) SyncFile(path string, priority queue.Priority) bool {
	if !e.running.Load() {
		return false
	}

	task := queue.NewTask(path, queue.KindSync, priority)
	if !e.queue.Enqueue(task, e.cfg.EnqueueTimeout) {
		e.sink.Record("file_queue_failed", path)
		return false
	}
	e.sink.Record("file_queued", path)
	return true
}

// BatchSync schedules several paths at once. Reports true only if every
// path was queued.
func (e *Engine) BatchSync(paths []string, priority queue.Priority) bool {
	if !e.running.Load() {
		return false
	}

	all := true
	for _, path := range paths {
		task := queue.NewTask(path, queue.KindSync, priority)
		if !e.queue.Enqueue(task, e.cfg.EnqueueTimeout) {
			e.sink.Record("file_queue_failed", path)
			all = false
			continue
		}
		e.sink.Record("file_queued", path)
	}
	return all
}

// RequestConsistencyCheck asks the reconciliation worker to run a full-tree
// verification now rather than at the next interval.
func (e *Engine) RequestConsistencyCheck() {
	e.checkRequested.Store(true)
	select {
	case e.checkCh <- struct{}{}:
	default:
	}
}

// QueueStats summarises the queue for operators.
func (e *Engine) QueueStats() string {
	e.mu.Lock()
	q := e.queue
	e.mu.Unlock()
	if q == nil {
		return "Queue size: 0"
	}
	return fmt.Sprintf("Queue size: %d", q.Len())
}

// TransactionStats summarises the journal for operators.
func (e *Engine) TransactionStats() string {
	return fmt.Sprintf("Pending transactions: %d", len(e.log.Pending()))
}

// Log exposes the transaction log for inspection.
func (e *Engine) Log() *txlog.Log {
	return e.log
}
