package queue

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Priority orders tasks within the queue. Lower values dequeue first.
type Priority int

const (
	// Critical is reserved for operator-initiated operations.
	Critical Priority = iota
	// High is used for recovery of interrupted transactions.
	High
	// Normal is the default for change-driven sync events.
	Normal
	// Low is used for reconciliation repairs.
	Low
	// Background is for periodic cleanup work.
	Background
)

var priorityNames = [...]string{
	Critical:   "critical",
	High:       "high",
	Normal:     "normal",
	Low:        "low",
	Background: "background",
}

func (p Priority) String() string {
	if p >= 0 && int(p) < len(priorityNames) {
		return priorityNames[p]
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Kind records where a task originated. It affects logging only.
type Kind int

const (
	KindSync Kind = iota
	KindRecovery
	KindReconciliation
)

var kindNames = [...]string{
	KindSync:           "sync",
	KindRecovery:       "recovery",
	KindReconciliation: "reconciliation",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Task is a single unit of replication work: one source path to mirror.
type Task struct {
	Path       string
	Kind       Kind
	Priority   Priority
	RetryCount int
	CreatedAt  time.Time
	ID         string
}

var taskCounter atomic.Uint64

// NewTask builds a task with a process-unique id of the form
// "{epoch_millis}-{counter}".
func NewTask(path string, kind Kind, priority Priority) Task {
	return Task{
		Path:      path,
		Kind:      kind,
		Priority:  priority,
		CreatedAt: time.Now(),
		ID:        fmt.Sprintf("%d-%d", time.Now().UnixMilli(), taskCounter.Add(1)),
	}
}

// Retry returns a copy of t with the retry count incremented and a fresh id.
func (t Task) Retry() Task {
	nt := NewTask(t.Path, t.Kind, t.Priority)
	nt.RetryCount = t.RetryCount + 1
	return nt
}
