package wifi

// EventKind identifies an asynchronous driver event.
type EventKind int

const (
	// EventStationStarted fires when the station interface comes up and
	// begins associating.
	EventStationStarted EventKind = iota
	// EventStationGotIP fires when the station has an address and is fully
	// connected.
	EventStationGotIP
	// EventStationDisconnected fires when the station loses or fails to
	// establish a connection; Event.Reason carries the cause.
	EventStationDisconnected
	// EventAPStarted fires when the access point interface is up.
	EventAPStarted
	// EventAPStopped fires when the access point interface is down.
	EventAPStopped
)

// DisconnectReason classifies a station disconnect.
type DisconnectReason int

const (
	ReasonUnspecified DisconnectReason = iota
	ReasonNoAPFound
	ReasonAuthExpire
	ReasonAuthFail
	ReasonBeaconTimeout
	ReasonAssocLeave
)

// Event is a single asynchronous notification from the driver.
type Event struct {
	Kind   EventKind
	Reason DisconnectReason
	IP     string
}

// Network describes one visible network from a scan.
type Network struct {
	SSID   string `json:"ssid"`
	RSSI   int    `json:"rssi"`
	Secure bool   `json:"secure"`
}

// Driver abstracts the radio hardware. Start/stop calls are
// non-blocking triggers; outcomes arrive through the handler registered
// with OnEvent. Implementations must deliver events from their own
// goroutine, never from inside a Driver method call.
type Driver interface {
	// OnEvent registers the event handler. Called once before any other
	// method.
	OnEvent(fn func(Event))

	// Connect begins associating with the given network.
	Connect(ssid, password string) error
	// Disconnect tears down the station connection.
	Disconnect() error
	// ConfigureStatic installs a static address configuration for the
	// station interface. An error means the configuration was rejected
	// and the driver stays on DHCP.
	ConfigureStatic(ip, gateway, subnet string) error

	// StartAP brings up the access point interface.
	StartAP(ssid string) error
	// StopAP tears down the access point interface.
	StopAP() error

	// Scan performs a blocking survey of visible networks.
	Scan() ([]Network, error)

	// StationIP and APIP report the current interface addresses, or ""
	// when the interface is down.
	StationIP() string
	APIP() string
}
