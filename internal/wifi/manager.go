package wifi

import (
	"log"
	"sync"
	"time"

	"github.com/yupaihuai/s3/internal/settings"
)

// State is the observable state of the long-range radio.
type State int

const (
	StateDisabled State = iota
	StateDisconnected
	StateConnecting
	StateConnected
	StateHostingAP
	StateHostingAPSTA
	StateFailedPermanently
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateHostingAP:
		return "hosting_ap"
	case StateHostingAPSTA:
		return "hosting_ap_sta"
	case StateFailedPermanently:
		return "failed_permanently"
	default:
		return "unknown"
	}
}

// Manager owns the station/AP state machine. One mutex serializes
// ApplySettings, Update, and the driver event handler; the enum, the
// retry counter, and the reconnect timestamp are only touched under it.
type Manager struct {
	mu     sync.Mutex
	driver Driver
	store  *settings.Manager

	state         State
	apUp          bool
	stationUp     bool
	retryCount    int
	lastReconnect time.Time

	reconnectEvery time.Duration
	maxRetries     int
}

// NewManager creates a manager over the given driver. The driver's
// event handler is registered here, before any start/stop call can
// produce an event.
func NewManager(store *settings.Manager, drv Driver, reconnectEvery time.Duration, maxRetries int) *Manager {
	m := &Manager{
		driver:         drv,
		store:          store,
		state:          StateDisabled,
		reconnectEvery: reconnectEvery,
		maxRetries:     maxRetries,
	}
	drv.OnEvent(m.handleEvent)
	return m
}

// Begin applies the persisted configuration once at start-up.
func (m *Manager) Begin() {
	m.ApplySettings()
}

// ApplySettings re-derives the desired station/AP roles from the
// current configuration and issues the matching driver calls. It
// clears any prior permanent-failure state and resets the retry
// counter; the resulting state is set by driver events, except for the
// fully-disabled case which has no event to wait for.
func (m *Manager) ApplySettings() {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.store.Snapshot()
	log.Printf("wifi: applying settings, mode=%s", snap.WiFiMode)

	if m.state == StateFailedPermanently {
		m.state = StateDisabled
	}
	m.retryCount = 0

	wantStation := snap.WiFiMode == settings.WiFiModeStation || snap.WiFiMode == settings.WiFiModeAPStation
	wantAP := snap.WiFiMode == settings.WiFiModeAP || snap.WiFiMode == settings.WiFiModeAPStation

	if wantStation {
		m.startStation(snap)
	} else {
		m.stopStation()
	}

	if wantAP {
		if err := m.driver.StartAP(snap.BluetoothName); err != nil {
			log.Printf("wifi: AP start failed: %v", err)
		}
	} else {
		if err := m.driver.StopAP(); err != nil {
			log.Printf("wifi: AP stop failed: %v", err)
		}
	}

	if !wantStation && !wantAP {
		m.state = StateDisabled
		log.Printf("wifi: disabled")
	}
}

// Update re-issues a connect attempt when the machine has been in
// Disconnected for at least the reconnect interval. Everything else is
// event-driven.
func (m *Manager) Update() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateDisconnected {
		return
	}
	if time.Since(m.lastReconnect) < m.reconnectEvery {
		return
	}

	log.Printf("wifi: reconnect interval elapsed, connecting again")
	m.lastReconnect = time.Now()
	snap := m.store.Snapshot()
	if err := m.driver.Connect(snap.WiFiSSID, snap.WiFiPassword); err != nil {
		log.Printf("wifi: reconnect failed: %v", err)
	}
}

// State returns the current machine state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IPAddress returns the address of whichever interface is active, or
// "0.0.0.0" when neither is.
func (m *Manager) IPAddress() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateConnected, StateHostingAPSTA:
		if ip := m.driver.StationIP(); ip != "" {
			return ip
		}
	case StateHostingAP:
		if ip := m.driver.APIP(); ip != "" {
			return ip
		}
	}
	return "0.0.0.0"
}

// Scan surveys visible networks. Blocking; callers wanting an async
// result run it from their own goroutine.
func (m *Manager) Scan() ([]Network, error) {
	return m.driver.Scan()
}

// startStation and stopStation run with the lock held.

func (m *Manager) startStation(snap settings.SystemSettings) {
	if snap.WiFiSSID == "" {
		log.Printf("wifi: station mode enabled but no SSID configured")
		m.stopStation()
		return
	}
	if snap.StaticIPEnabled {
		if err := m.driver.ConfigureStatic(snap.StaticIP, snap.Gateway, snap.Subnet); err != nil {
			log.Printf("wifi: invalid static configuration, falling back to DHCP: %v", err)
		}
	}
	log.Printf("wifi: connecting to %q", snap.WiFiSSID)
	if err := m.driver.Connect(snap.WiFiSSID, snap.WiFiPassword); err != nil {
		log.Printf("wifi: connect failed: %v", err)
	}
}

func (m *Manager) stopStation() {
	if err := m.driver.Disconnect(); err != nil {
		log.Printf("wifi: disconnect failed: %v", err)
	}
}

// handleEvent is the sole event-driven mutation point. The driver
// calls it from its own goroutine; the lock is held for the whole
// handler so ApplySettings never interleaves with a transition.
func (m *Manager) handleEvent(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Kind {
	case EventStationStarted:
		m.state = StateConnecting
		m.lastReconnect = time.Now()

	case EventStationGotIP:
		log.Printf("wifi: station got IP %s", ev.IP)
		m.retryCount = 0
		m.stationUp = true
		if m.apUp {
			m.state = StateHostingAPSTA
		} else {
			m.state = StateConnected
		}

	case EventStationDisconnected:
		log.Printf("wifi: station disconnected, reason=%d", ev.Reason)
		m.stationUp = false
		if permanentLike(ev.Reason) {
			m.retryCount++
			log.Printf("wifi: permanent-like failure, attempt %d/%d", m.retryCount, m.maxRetries)
			if m.retryCount >= m.maxRetries {
				log.Printf("wifi: max retries reached, entering permanent failure")
				m.state = StateFailedPermanently
				return
			}
		}
		m.state = StateDisconnected
		m.lastReconnect = time.Now()

	case EventAPStarted:
		log.Printf("wifi: AP started, IP %s", m.driver.APIP())
		m.apUp = true
		if m.stationUp {
			m.state = StateHostingAPSTA
		} else {
			m.state = StateHostingAP
		}

	case EventAPStopped:
		log.Printf("wifi: AP stopped")
		m.apUp = false
		if m.stationUp {
			m.state = StateConnected
		} else if m.state == StateHostingAP || m.state == StateHostingAPSTA {
			m.state = StateDisabled
		}
	}
}

// permanentLike reports whether a disconnect reason is unlikely to be
// resolved by an immediate retry.
func permanentLike(r DisconnectReason) bool {
	switch r {
	case ReasonNoAPFound, ReasonAuthExpire, ReasonAuthFail:
		return true
	default:
		return false
	}
}
