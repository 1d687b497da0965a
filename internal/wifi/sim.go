package wifi

import (
	"sync"
)

// SimDriver is a software stand-in for the radio hardware. Connect
// outcomes are scripted through SetConnectFailure; events flow through
// an internal queue and reach the handler from a dedicated goroutine,
// the same way a hardware driver would deliver them.
type SimDriver struct {
	mu        sync.Mutex
	handler   func(Event)
	failWith  DisconnectReason
	failing   bool
	networks  []Network
	connects  int
	stationUp bool
	apUp      bool

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewSimDriver creates a simulated driver with the given scan results.
func NewSimDriver(networks []Network) *SimDriver {
	d := &SimDriver{
		networks: networks,
		events:   make(chan Event, 32),
		done:     make(chan struct{}),
	}
	d.wg.Add(1)
	go d.pump()
	return d
}

// Stop terminates event delivery. No events are delivered after Stop
// returns.
func (d *SimDriver) Stop() {
	close(d.done)
	d.wg.Wait()
}

// SetConnectFailure scripts every subsequent Connect to fail with the
// given reason. Passing failing=false restores successful connects.
func (d *SimDriver) SetConnectFailure(failing bool, reason DisconnectReason) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failing = failing
	d.failWith = reason
}

// ConnectCalls reports how many Connect attempts have been issued.
func (d *SimDriver) ConnectCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects
}

// OnEvent implements Driver.
func (d *SimDriver) OnEvent(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = fn
}

// Connect implements Driver. It queues a station-started event followed
// by either got-IP or a disconnect with the scripted reason.
func (d *SimDriver) Connect(ssid, password string) error {
	d.mu.Lock()
	d.connects++
	failing, reason := d.failing, d.failWith
	if !failing {
		d.stationUp = true
	}
	d.mu.Unlock()

	d.push(Event{Kind: EventStationStarted})
	if failing {
		d.push(Event{Kind: EventStationDisconnected, Reason: reason})
	} else {
		d.push(Event{Kind: EventStationGotIP, IP: "192.168.1.50"})
	}
	return nil
}

// Disconnect implements Driver. Teardown is quiet; no event is queued.
func (d *SimDriver) Disconnect() error {
	d.mu.Lock()
	d.stationUp = false
	d.mu.Unlock()
	return nil
}

// ConfigureStatic implements Driver.
func (d *SimDriver) ConfigureStatic(ip, gateway, subnet string) error {
	return nil
}

// StartAP implements Driver.
func (d *SimDriver) StartAP(ssid string) error {
	d.mu.Lock()
	already := d.apUp
	d.apUp = true
	d.mu.Unlock()
	if !already {
		d.push(Event{Kind: EventAPStarted})
	}
	return nil
}

// StopAP implements Driver.
func (d *SimDriver) StopAP() error {
	d.mu.Lock()
	was := d.apUp
	d.apUp = false
	d.mu.Unlock()
	if was {
		d.push(Event{Kind: EventAPStopped})
	}
	return nil
}

// Scan implements Driver.
func (d *SimDriver) Scan() ([]Network, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Network, len(d.networks))
	copy(out, d.networks)
	return out, nil
}

// StationIP implements Driver.
func (d *SimDriver) StationIP() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stationUp {
		return "192.168.1.50"
	}
	return ""
}

// APIP implements Driver.
func (d *SimDriver) APIP() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.apUp {
		return "192.168.4.1"
	}
	return ""
}

func (d *SimDriver) push(ev Event) {
	select {
	case d.events <- ev:
	case <-d.done:
	}
}

func (d *SimDriver) pump() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.events:
			d.mu.Lock()
			fn := d.handler
			d.mu.Unlock()
			if fn != nil {
				fn(ev)
			}
		case <-d.done:
			return
		}
	}
}
