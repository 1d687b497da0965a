package bluetooth

import "sync"

// EventKind identifies an asynchronous driver event.
type EventKind int

const (
	// EventClientConnected fires when a peer connects.
	EventClientConnected EventKind = iota
	// EventClientDisconnected fires when the peer goes away.
	EventClientDisconnected
)

// Event is a single asynchronous notification from the driver.
type Event struct {
	Kind EventKind
}

// Driver abstracts the short-range radio stack. StartAdvertising and
// StopAdvertising are synchronous and report success through their
// return value; connection changes arrive through the registered
// handler from the driver's own goroutine.
type Driver interface {
	// OnEvent registers the event handler. Called once before any other
	// method.
	OnEvent(fn func(Event))

	StartAdvertising() bool
	StopAdvertising() bool
	SetDeviceName(name string)
}

// SimDriver is a software stand-in for the radio stack. Tests and
// hardware-less deployments script peer connections through
// ConnectPeer and DisconnectPeer.
type SimDriver struct {
	mu          sync.Mutex
	handler     func(Event)
	advertising bool
	name        string
	nameSets    int
	startFails  bool
}

// NewSimDriver creates a simulated driver.
func NewSimDriver() *SimDriver {
	return &SimDriver{}
}

// FailStarts scripts StartAdvertising to report failure.
func (d *SimDriver) FailStarts(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startFails = fail
}

// Advertising reports whether the radio is currently advertising.
func (d *SimDriver) Advertising() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.advertising
}

// DeviceName returns the last name set on the radio.
func (d *SimDriver) DeviceName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// NameSets reports how many times SetDeviceName was invoked.
func (d *SimDriver) NameSets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nameSets
}

// ConnectPeer simulates a peer connecting. Advertising stops on
// connect, the way real stacks behave.
func (d *SimDriver) ConnectPeer() {
	d.mu.Lock()
	d.advertising = false
	fn := d.handler
	d.mu.Unlock()
	if fn != nil {
		go fn(Event{Kind: EventClientConnected})
	}
}

// DisconnectPeer simulates the peer going away.
func (d *SimDriver) DisconnectPeer() {
	d.mu.Lock()
	fn := d.handler
	d.mu.Unlock()
	if fn != nil {
		go fn(Event{Kind: EventClientDisconnected})
	}
}

// OnEvent implements Driver.
func (d *SimDriver) OnEvent(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = fn
}

// StartAdvertising implements Driver.
func (d *SimDriver) StartAdvertising() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startFails {
		return false
	}
	d.advertising = true
	return true
}

// StopAdvertising implements Driver.
func (d *SimDriver) StopAdvertising() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.advertising = false
	return true
}

// SetDeviceName implements Driver.
func (d *SimDriver) SetDeviceName(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.name = name
	d.nameSets++
}
