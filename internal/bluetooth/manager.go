package bluetooth

import (
	"log"
	"sync"

	"github.com/yupaihuai/s3/internal/flashlog"
	"github.com/yupaihuai/s3/internal/settings"
)

// State is the observable state of the short-range radio.
type State int

const (
	StateDisabled State = iota
	StateAdvertising
	StateConnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateAdvertising:
		return "advertising"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Manager owns the short-range radio state machine. One mutex
// serializes ApplySettings and the driver event handler.
type Manager struct {
	mu     sync.Mutex
	driver Driver
	store  *settings.Manager
	flog   *flashlog.Logger

	state State
	name  string
}

// NewManager creates a manager over the given driver. flog may be nil;
// connection changes are then only written to the process log.
func NewManager(store *settings.Manager, drv Driver, flog *flashlog.Logger) *Manager {
	m := &Manager{
		driver: drv,
		store:  store,
		flog:   flog,
		state:  StateDisabled,
	}
	drv.OnEvent(m.handleEvent)
	return m
}

// Begin applies the persisted configuration once at start-up.
func (m *Manager) Begin() {
	m.ApplySettings()
}

// ApplySettings compares the desired enabled flag and device name
// against the current state and issues enable/disable/rename only on
// actual change. While a peer is connected a disable request is
// deferred; the disconnect handler settles the machine.
func (m *Manager) ApplySettings() {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.store.Snapshot()
	log.Printf("bluetooth: applying settings, enabled=%t name=%q", snap.BluetoothEnabled, snap.BluetoothName)

	m.setDeviceName(snap.BluetoothName)

	advertising := m.state == StateAdvertising
	if snap.BluetoothEnabled && m.state == StateDisabled {
		m.startAdvertising()
	} else if !snap.BluetoothEnabled && advertising {
		m.stopAdvertising()
	}
}

// Update exists for orchestrator symmetry; the machine is fully
// event-driven.
func (m *Manager) Update() {}

// State returns the current machine state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// handleEvent processes peer connection changes from the driver.
func (m *Manager) handleEvent(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Kind {
	case EventClientConnected:
		log.Printf("bluetooth: client connected")
		if m.flog != nil {
			m.flog.Logf("[bluetooth] client connected")
		}
		m.state = StateConnected

	case EventClientDisconnected:
		log.Printf("bluetooth: client disconnected")
		if m.flog != nil {
			m.flog.Logf("[bluetooth] client disconnected")
		}
		// Re-evaluate the configuration: either come back up as
		// advertising or settle to disabled.
		if m.store.Snapshot().BluetoothEnabled {
			m.state = StateDisabled
			m.startAdvertising()
		} else {
			m.state = StateDisabled
		}
	}
}

// startAdvertising, stopAdvertising, and setDeviceName run with the
// lock held.

func (m *Manager) startAdvertising() bool {
	if m.state == StateAdvertising {
		return true
	}
	log.Printf("bluetooth: starting advertising")
	if !m.driver.StartAdvertising() {
		log.Printf("bluetooth: failed to start advertising")
		return false
	}
	m.state = StateAdvertising
	return true
}

func (m *Manager) stopAdvertising() bool {
	if m.state != StateAdvertising {
		return true
	}
	log.Printf("bluetooth: stopping advertising")
	if !m.driver.StopAdvertising() {
		log.Printf("bluetooth: failed to stop advertising")
		return false
	}
	m.state = StateDisabled
	return true
}

func (m *Manager) setDeviceName(name string) {
	if name == "" || name == m.name {
		return
	}
	log.Printf("bluetooth: setting device name to %q", name)
	m.driver.SetDeviceName(name)

	// A live advertisement carries the old name; cycle it.
	if m.state == StateAdvertising {
		m.driver.StopAdvertising()
		m.driver.StartAdvertising()
	}
	m.name = name
}
