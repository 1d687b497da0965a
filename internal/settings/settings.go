package settings

// WiFiMode selects which long-range radio roles are active.
type WiFiMode int

const (
	WiFiModeOff WiFiMode = iota
	WiFiModeStation
	WiFiModeAP
	WiFiModeAPStation
)

// String returns a short name for the mode.
func (m WiFiMode) String() string {
	switch m {
	case WiFiModeOff:
		return "off"
	case WiFiModeStation:
		return "station"
	case WiFiModeAP:
		return "ap"
	case WiFiModeAPStation:
		return "ap+station"
	default:
		return "unknown"
	}
}

// SchemaVersion is the settings layout version the firmware expects.
// Bump it whenever SystemSettings changes incompatibly.
const SchemaVersion = 1

// SystemSettings aggregates every user-configurable item so the whole
// record loads and saves as one blob.
type SystemSettings struct {
	Version int `json:"version"`

	WiFiSSID     string   `json:"wifiSsid"`
	WiFiPassword string   `json:"wifiPassword"`
	WiFiMode     WiFiMode `json:"wifiMode"`

	StaticIPEnabled bool   `json:"staticIpEnabled"`
	StaticIP        string `json:"staticIp"`
	Gateway         string `json:"gateway"`
	Subnet          string `json:"subnet"`

	BluetoothEnabled bool   `json:"bluetoothEnabled"`
	BluetoothName    string `json:"bluetoothName"`

	DebugMode bool `json:"debugMode"`
}

// DefaultSettings returns the compiled factory configuration.
func DefaultSettings() SystemSettings {
	return SystemSettings{
		Version:          SchemaVersion,
		WiFiSSID:         "esp32s3",
		WiFiPassword:     "12345678",
		WiFiMode:         WiFiModeAPStation,
		BluetoothEnabled: true,
		BluetoothName:    "ESP32S3-Device",
		DebugMode:        true,
	}
}
