package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PriorityOrdering(t *testing.T) {
	q := New(16)

	require.True(t, q.Enqueue(NewTask("/low", KindSync, Low), time.Second))
	require.True(t, q.Enqueue(NewTask("/normal", KindSync, Normal), time.Second))
	require.True(t, q.Enqueue(NewTask("/critical", KindSync, Critical), time.Second))
	require.True(t, q.Enqueue(NewTask("/high", KindRecovery, High), time.Second))

	want := []string{"/critical", "/high", "/normal", "/low"}
	for _, path := range want {
		task, ok := q.Dequeue(time.Second)
		require.True(t, ok)
		assert.Equal(t, path, task.Path)
	}
}

func TestQueue_FIFOWithinPriority(t *testing.T) {
	q := New(64)

	paths := []string{"/a", "/b", "/c", "/d", "/e"}
	for _, p := range paths {
		require.True(t, q.Enqueue(NewTask(p, KindSync, Normal), time.Second))
	}

	for _, p := range paths {
		task, ok := q.Dequeue(time.Second)
		require.True(t, ok)
		assert.Equal(t, p, task.Path)
	}
}

func TestQueue_MixedPriorityKeepsFIFOPerLevel(t *testing.T) {
	q := New(64)

	require.True(t, q.Enqueue(NewTask("/n1", KindSync, Normal), time.Second))
	require.True(t, q.Enqueue(NewTask("/l1", KindSync, Low), time.Second))
	require.True(t, q.Enqueue(NewTask("/n2", KindSync, Normal), time.Second))
	require.True(t, q.Enqueue(NewTask("/l2", KindSync, Low), time.Second))
	require.True(t, q.Enqueue(NewTask("/n3", KindSync, Normal), time.Second))

	want := []string{"/n1", "/n2", "/n3", "/l1", "/l2"}
	for _, p := range want {
		task, ok := q.Dequeue(time.Second)
		require.True(t, ok)
		assert.Equal(t, p, task.Path)
	}
}

func TestQueue_BoundedEnqueueTimesOut(t *testing.T) {
	q := New(2)

	require.True(t, q.Enqueue(NewTask("/1", KindSync, Normal), 50*time.Millisecond))
	require.True(t, q.Enqueue(NewTask("/2", KindSync, Normal), 50*time.Millisecond))
	assert.Equal(t, 2, q.Len())

	start := time.Now()
	ok := q.Enqueue(NewTask("/3", KindSync, Normal), 50*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 2, q.Len())
}

func TestQueue_EnqueueUnblocksOnDequeue(t *testing.T) {
	q := New(1)
	require.True(t, q.Enqueue(NewTask("/1", KindSync, Normal), time.Second))

	done := make(chan bool, 1)
	go func() {
		done <- q.Enqueue(NewTask("/2", KindSync, Normal), 2*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	_, ok := q.Dequeue(time.Second)
	require.True(t, ok)

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("enqueue did not unblock after dequeue")
	}
}

func TestQueue_DequeueTimesOutWhenEmpty(t *testing.T) {
	q := New(4)

	start := time.Now()
	_, ok := q.Dequeue(50 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestQueue_ShutdownDrainsThenFails(t *testing.T) {
	q := New(8)
	require.True(t, q.Enqueue(NewTask("/1", KindSync, Normal), time.Second))
	require.True(t, q.Enqueue(NewTask("/2", KindSync, Normal), time.Second))

	q.Shutdown()

	assert.False(t, q.Enqueue(NewTask("/3", KindSync, Normal), time.Second))

	task, ok := q.Dequeue(time.Second)
	require.True(t, ok)
	assert.Equal(t, "/1", task.Path)
	task, ok = q.Dequeue(time.Second)
	require.True(t, ok)
	assert.Equal(t, "/2", task.Path)

	_, ok = q.Dequeue(time.Second)
	assert.False(t, ok)
}

func TestQueue_ShutdownWakesBlockedWaiters(t *testing.T) {
	q := New(1)
	require.True(t, q.Enqueue(NewTask("/1", KindSync, Normal), time.Second))

	var wg sync.WaitGroup
	results := make(chan bool, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results <- q.Enqueue(NewTask("/blocked", KindSync, Normal), 5*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Shutdown()
	wg.Wait()

	assert.False(t, <-results)
}

func TestQueue_ConcurrentProducersConsumers(t *testing.T) {
	q := New(32)
	const producers = 4
	const perProducer = 50

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.True(t, q.Enqueue(NewTask("/p", KindSync, Normal), 5*time.Second))
			}
		}()
	}

	var consumed sync.WaitGroup
	var got int
	var mu sync.Mutex
	consumed.Add(1)
	go func() {
		defer consumed.Done()
		for {
			_, ok := q.Dequeue(500 * time.Millisecond)
			if !ok {
				return
			}
			mu.Lock()
			got++
			mu.Unlock()
		}
	}()

	wg.Wait()
	consumed.Wait()
	assert.Equal(t, producers*perProducer, got)
	assert.True(t, q.Empty())
}

func TestTask_RetryIncrementsAndRenames(t *testing.T) {
	task := NewTask("/a", KindSync, Normal)
	retry := task.Retry()

	assert.Equal(t, task.Path, retry.Path)
	assert.Equal(t, task.Priority, retry.Priority)
	assert.Equal(t, task.RetryCount+1, retry.RetryCount)
	assert.NotEqual(t, task.ID, retry.ID)
}

func TestTask_IDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewTask("/a", KindSync, Normal).ID
		require.False(t, seen[id], "duplicate task id %s", id)
		seen[id] = true
	}
}
