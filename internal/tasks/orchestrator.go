package tasks

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/yupaihuai/s3/internal/bluetooth"
	"github.com/yupaihuai/s3/internal/config"
	"github.com/yupaihuai/s3/internal/flashlog"
	"github.com/yupaihuai/s3/internal/mempool"
	"github.com/yupaihuai/s3/internal/rpc"
	"github.com/yupaihuai/s3/internal/settings"
	"github.com/yupaihuai/s3/internal/wifi"
)

const workerTask = "worker"

// Endpoint is the outbound side of the transport. transport.Hub
// satisfies it.
type Endpoint interface {
	BroadcastText(text string)
	SendTo(clientID, text string)
	ClientCount() int
}

// outbound is one state-queue entry: pre-serialized text addressed to
// a single client, or a broadcast when ClientID is empty.
type outbound struct {
	clientID string
	text     string
}

// Deps are the collaborators the orchestrator drives. All except
// Restart are required.
type Deps struct {
	Settings  *settings.Manager
	WiFi      *wifi.Manager
	Bluetooth *bluetooth.Manager
	FlashLog  *flashlog.Logger
	Pools     *mempool.Allocator
	Endpoint  Endpoint

	// Restart is invoked for reboot/factory-reset requests and on a
	// watchdog expiry. May be nil.
	Restart func()
}

// Orchestrator owns the queues, the event group, the watchdog, and the
// three system tasks.
type Orchestrator struct {
	opts config.Options
	deps Deps

	commandQ chan rpc.Request
	stateQ   chan outbound
	logQ     chan string
	events   *EventGroup
	wd       *Watchdog

	mu      sync.Mutex
	begun   bool
	started time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// NewOrchestrator wires the orchestrator; Begin starts it.
func NewOrchestrator(opts config.Options, deps Deps) *Orchestrator {
	return &Orchestrator{opts: opts, deps: deps}
}

// Begin creates the communication primitives and spawns the worker,
// monitor, and publisher tasks. A second call is an error.
func (o *Orchestrator) Begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.begun {
		return fmt.Errorf("orchestrator already started")
	}
	if o.deps.Settings == nil || o.deps.WiFi == nil || o.deps.Bluetooth == nil ||
		o.deps.FlashLog == nil || o.deps.Endpoint == nil {
		return fmt.Errorf("orchestrator: missing collaborator")
	}
	if o.opts.WorkerBlockTime >= o.opts.WatchdogTimeout {
		return fmt.Errorf("orchestrator: worker block time %v must be below watchdog timeout %v",
			o.opts.WorkerBlockTime, o.opts.WatchdogTimeout)
	}

	o.commandQ = make(chan rpc.Request, o.opts.CommandQueueDepth)
	o.stateQ = make(chan outbound, o.opts.StateQueueDepth)
	o.logQ = make(chan string, o.opts.LogQueueDepth)
	o.events = NewEventGroup()
	o.done = make(chan struct{})
	o.started = time.Now()

	o.wd = NewWatchdog(o.opts.WatchdogTimeout, o.onWatchdogExpiry)
	o.wd.Start()
	o.wd.Register(workerTask)

	o.wg.Add(3)
	go o.workerLoop()
	go o.monitorLoop()
	go o.publisherLoop()

	o.begun = true
	log.Printf("tasks: all system tasks started")
	return nil
}

// Stop terminates the tasks and the watchdog.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.begun {
		o.mu.Unlock()
		return
	}
	o.begun = false
	o.mu.Unlock()

	close(o.done)
	o.wg.Wait()
	o.wd.Stop()
}

// Submit places an inbound request on the command queue without
// blocking. False means the queue is full.
func (o *Orchestrator) Submit(req rpc.Request) bool {
	select {
	case o.commandQ <- req:
		return true
	default:
		return false
	}
}

// PushState queues an outbound broadcast on the state queue with a
// short bounded wait, raising the state bit on success.
func (o *Orchestrator) PushState(text string) bool {
	return o.pushOutbound(outbound{text: text})
}

func (o *Orchestrator) pushOutbound(msg outbound) bool {
	timer := time.NewTimer(10 * time.Millisecond)
	defer timer.Stop()
	select {
	case o.stateQ <- msg:
		o.events.Set(BitStateReady)
		return true
	case <-timer.C:
		log.Printf("tasks: state queue full, message dropped")
		return false
	}
}

// pushLog queues one log line without blocking. The log bit is only
// raised when the line actually lands, so a full queue does not keep
// waking the publisher.
func (o *Orchestrator) pushLog(line string) {
	select {
	case o.logQ <- line:
		o.events.Set(BitLogReady)
	default:
	}
}

func (o *Orchestrator) onWatchdogExpiry(task string) {
	log.Printf("tasks: watchdog expired for task %q", task)
	o.deps.FlashLog.Logf("[tasks] watchdog expired for task %q, restarting", task)
	o.deps.FlashLog.Flush()
	if o.deps.Restart != nil {
		o.deps.Restart()
	}
}

// workerLoop blocks on the command queue with a timeout strictly below
// the watchdog period and feeds the watchdog every iteration whether or
// not a command arrived.
func (o *Orchestrator) workerLoop() {
	defer o.wg.Done()

	for {
		timer := time.NewTimer(o.opts.WorkerBlockTime)
		select {
		case req := <-o.commandQ:
			timer.Stop()
			o.dispatch(req)
		case <-timer.C:
			// No command within the block time; fall through to feed.
		case <-o.done:
			timer.Stop()
			return
		}
		o.wd.Feed(workerTask)
	}
}

// monitorLoop runs the fixed-period housekeeping pass: radio updates,
// settings commit, status snapshot.
func (o *Orchestrator) monitorLoop() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.opts.MonitorPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.deps.WiFi.Update()
			o.deps.Bluetooth.Update()
			o.deps.Settings.Commit()
			o.PushState(rpc.Notification("system.stateUpdate", o.statusSnapshot()))
		case <-o.done:
			return
		}
	}
}

func (o *Orchestrator) statusSnapshot() map[string]interface{} {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return map[string]interface{}{
		"uptime":          time.Since(o.started).Milliseconds(),
		"heapInUse":       ms.HeapAlloc,
		"goroutines":      runtime.NumGoroutine(),
		"wifi_state":      o.deps.WiFi.State().String(),
		"bluetooth_state": o.deps.Bluetooth.State().String(),
		"logs_dropped":    o.deps.FlashLog.Dropped(),
	}
}

// publisherLoop waits on the event bits with a bounded timeout. With no
// client connected it drains and discards both queues so nothing backs
// up; otherwise state messages go out individually and log lines are
// coalesced into batches.
func (o *Orchestrator) publisherLoop() {
	defer o.wg.Done()

	for {
		select {
		case <-o.done:
			return
		default:
		}

		bits := o.events.WaitAny(BitStateReady|BitLogReady, o.opts.PublisherWait)

		if o.deps.Endpoint.ClientCount() == 0 {
			o.drainAndDiscard()
			continue
		}

		if bits&BitStateReady != 0 || len(o.stateQ) > 0 {
			o.flushStateQueue()
		}
		if len(o.logQ) > 0 {
			o.flushLogBatch()
		}
	}
}

func (o *Orchestrator) drainAndDiscard() {
	for {
		select {
		case <-o.stateQ:
		default:
			goto logs
		}
	}
logs:
	for {
		select {
		case <-o.logQ:
		default:
			return
		}
	}
}

func (o *Orchestrator) flushStateQueue() {
	for {
		select {
		case msg := <-o.stateQ:
			if msg.clientID == "" {
				o.deps.Endpoint.BroadcastText(msg.text)
			} else {
				o.deps.Endpoint.SendTo(msg.clientID, msg.text)
			}
		default:
			return
		}
	}
}

func (o *Orchestrator) flushLogBatch() {
	type entry struct {
		Msg string `json:"msg"`
	}
	batch := make([]entry, 0, o.opts.LogBatchLimit)
	for len(batch) < o.opts.LogBatchLimit {
		select {
		case line := <-o.logQ:
			batch = append(batch, entry{Msg: line})
		default:
			goto send
		}
	}
send:
	if len(batch) > 0 {
		o.deps.Endpoint.BroadcastText(rpc.Notification("log.batch", batch))
	}
}
