package flashlog

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// maxLineBytes bounds one rendered log line.
	maxLineBytes = 256

	// pushWait bounds how long a producer may wait on a full ring.
	pushWait = 10 * time.Millisecond
)

// Logger buffers log lines in a bounded ring and flushes them to a file
// from a single background task.
type Logger struct {
	mu    sync.Mutex // guards Begin/Stop state
	begun bool

	store FileStore
	path  string

	ring  chan string
	wake  chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
	every time.Duration

	// fileMu serializes every touch of the log file: the flusher's
	// append pass and ClearLogFile.
	fileMu sync.Mutex

	dropped atomic.Uint64
}

// NewLogger creates a logger over the given file store. Call Begin before
// logging; Logf on an un-begun logger is a safe no-op.
func NewLogger(store FileStore) *Logger {
	return &Logger{store: store}
}

// Begin sizes the ring from capacityBytes, records the target file and
// spawns the flush task. A second call is a no-op success.
func (l *Logger) Begin(path string, capacityBytes int, flushEvery time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.begun {
		log.Printf("flashlog: already initialized")
		return nil
	}
	if capacityBytes < maxLineBytes {
		return fmt.Errorf("ring capacity %d below line size %d", capacityBytes, maxLineBytes)
	}
	if flushEvery <= 0 {
		return fmt.Errorf("flush interval must be positive, got %v", flushEvery)
	}

	l.path = path
	l.every = flushEvery
	l.ring = make(chan string, capacityBytes/maxLineBytes)
	l.wake = make(chan struct{}, 1)
	l.done = make(chan struct{})
	l.begun = true

	l.wg.Add(1)
	go l.flushLoop()

	log.Printf("flashlog: initialized, logging to %q, ring %d entries, flush interval %v",
		path, cap(l.ring), flushEvery)
	return nil
}

// Logf renders a bounded line and pushes it into the ring, waiting at
// most a few milliseconds. A full ring drops the line and bumps the drop
// counter; the caller is never stalled.
func (l *Logger) Logf(format string, args ...interface{}) {
	if !l.ready() {
		return
	}

	line := fmt.Sprintf(format, args...)
	if len(line) > maxLineBytes {
		line = line[:maxLineBytes]
	}

	select {
	case l.ring <- line:
		return
	default:
	}

	timer := time.NewTimer(pushWait)
	defer timer.Stop()
	select {
	case l.ring <- line:
	case <-timer.C:
		l.dropped.Add(1)
		log.Printf("flashlog: ring buffer full, log message dropped")
	}
}

// Flush signals the flush task to run a pass soon. It touches no storage
// itself and never blocks.
func (l *Logger) Flush() {
	if !l.ready() {
		return
	}
	select {
	case l.wake <- struct{}{}:
	default:
		// A wake is already pending; one pass drains everything.
	}
}

// Dropped reports how many lines were discarded on a full ring.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// ClearLogFile deletes the log file under the same exclusive lock the
// flusher holds while writing.
func (l *Logger) ClearLogFile() {
	if !l.ready() {
		return
	}

	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	if !l.store.Exists(l.path) {
		return
	}
	if err := l.store.Remove(l.path); err != nil {
		log.Printf("flashlog: failed to clear log file %q: %v", l.path, err)
		return
	}
	log.Printf("flashlog: log file %q cleared", l.path)
}

// Stop terminates the flush task after one final drain pass.
func (l *Logger) Stop() {
	l.mu.Lock()
	if !l.begun {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	close(l.done)
	l.wg.Wait()
}

func (l *Logger) ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.begun
}

// flushLoop blocks on the wake signal with a timeout; either trigger runs
// exactly one pass.
func (l *Logger) flushLoop() {
	defer l.wg.Done()

	timer := time.NewTimer(l.every)
	defer timer.Stop()

	for {
		select {
		case <-l.wake:
		case <-timer.C:
		case <-l.done:
			l.writePass()
			return
		}
		l.writePass()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(l.every)
	}
}

// writePass drains every pending line to the file. The pending check is
// lock-free so an idle system costs nothing.
func (l *Logger) writePass() {
	if len(l.ring) == 0 {
		return
	}

	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	file, err := l.store.OpenAppend(l.path)
	if err != nil {
		log.Printf("flashlog: failed to open log file for appending: %v", err)
		return
	}
	defer func() { _ = file.Close() }()

	for {
		select {
		case line := <-l.ring:
			if _, err := file.Write(append([]byte(line), '\n')); err != nil {
				log.Printf("flashlog: write failed: %v", err)
				return
			}
		default:
			return
		}
	}
}
