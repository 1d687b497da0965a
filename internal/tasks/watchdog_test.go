package tasks

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type expiryRecorder struct {
	mu    sync.Mutex
	tasks []string
}

func (r *expiryRecorder) record(task string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
}

func (r *expiryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func TestWatchdogFiresForStarvedTask(t *testing.T) {
	rec := &expiryRecorder{}
	w := NewWatchdog(20*time.Millisecond, rec.record)
	w.Start()
	defer w.Stop()

	w.Register("worker")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && rec.count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	require.Greater(t, rec.count(), 0)
}

func TestWatchdogStaysQuietWhenFed(t *testing.T) {
	rec := &expiryRecorder{}
	w := NewWatchdog(50*time.Millisecond, rec.record)
	w.Start()
	defer w.Stop()

	w.Register("worker")
	for i := 0; i < 20; i++ {
		w.Feed("worker")
		time.Sleep(10 * time.Millisecond)
	}

	require.Equal(t, 0, rec.count())
}

func TestWatchdogIgnoresUnregisteredTasks(t *testing.T) {
	rec := &expiryRecorder{}
	w := NewWatchdog(20*time.Millisecond, rec.record)
	w.Start()
	defer w.Stop()

	w.Feed("ghost")
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 0, rec.count())
}

func TestWatchdogUnregisterStopsMonitoring(t *testing.T) {
	rec := &expiryRecorder{}
	w := NewWatchdog(20*time.Millisecond, rec.record)
	w.Start()
	defer w.Stop()

	w.Register("worker")
	w.Unregister("worker")

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 0, rec.count())
}
