package tasks

import (
	"log"
	"sync"
	"time"
)

// Watchdog tracks per-task deadlines. A registered task must call Feed
// at least once per timeout period or the expiry callback fires for it.
type Watchdog struct {
	mu        sync.Mutex
	timeout   time.Duration
	deadlines map[string]time.Time
	onExpire  func(task string)

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatchdog creates a watchdog with the given period. onExpire runs
// from the watchdog's own goroutine; nil falls back to a log line.
func NewWatchdog(timeout time.Duration, onExpire func(task string)) *Watchdog {
	if onExpire == nil {
		onExpire = func(task string) {
			log.Printf("watchdog: task %q missed its deadline", task)
		}
	}
	return &Watchdog{
		timeout:   timeout,
		deadlines: make(map[string]time.Time),
		onExpire:  onExpire,
		done:      make(chan struct{}),
	}
}

// Start spawns the checker goroutine.
func (w *Watchdog) Start() {
	w.wg.Add(1)
	go w.run()
}

// Register begins monitoring a task, with a fresh deadline.
func (w *Watchdog) Register(task string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deadlines[task] = time.Now().Add(w.timeout)
}

// Feed pushes the task's deadline out by one full period. Feeding an
// unregistered task is a no-op.
func (w *Watchdog) Feed(task string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.deadlines[task]; ok {
		w.deadlines[task] = time.Now().Add(w.timeout)
	}
}

// Unregister stops monitoring a task.
func (w *Watchdog) Unregister(task string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.deadlines, task)
}

// Stop terminates the checker.
func (w *Watchdog) Stop() {
	close(w.done)
	w.wg.Wait()
}

func (w *Watchdog) run() {
	defer w.wg.Done()

	period := w.timeout / 4
	if period < time.Millisecond {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.done:
			return
		}
	}
}

func (w *Watchdog) check() {
	now := time.Now()

	w.mu.Lock()
	var expired []string
	for task, deadline := range w.deadlines {
		if now.After(deadline) {
			expired = append(expired, task)
			// One shot per miss; the task earns a new deadline so a
			// stuck task does not fire every tick.
			w.deadlines[task] = now.Add(w.timeout)
		}
	}
	w.mu.Unlock()

	for _, task := range expired {
		w.onExpire(task)
	}
}
