package settings

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/yupaihuai/s3/internal/nvs"
)

const (
	storeNamespace = "sys_config"
	storeKey       = "settings_v1"
)

// Manager caches SystemSettings in memory and reconciles the cache with
// the key-value store through dirty tracking.
type Manager struct {
	mu       sync.Mutex
	store    nvs.Store
	settings SystemSettings
	dirty    bool
}

// NewManager creates a settings manager over the given store. Call Begin
// before handing the manager to any other component.
func NewManager(store nvs.Store) *Manager {
	return &Manager{store: store}
}

// Begin loads the persisted settings, restoring defaults when the blob is
// absent, unreadable, or carries the wrong schema version. It never fails
// and always leaves the cache initialized. Begin runs before the task
// layer starts, so it takes the lock only for uniformity.
func (m *Manager) Begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.load()
}

// load populates the cache from the store. Caller holds the lock.
func (m *Manager) load() {
	blob, err := m.store.GetBlob(storeNamespace, storeKey)
	if err != nil {
		log.Printf("settings: could not read settings (%v), loading and saving defaults", err)
		m.loadDefaults()
		m.save()
		return
	}

	var loaded SystemSettings
	if err := json.Unmarshal(blob, &loaded); err != nil {
		log.Printf("settings: corrupt settings blob (%v), restoring defaults", err)
		m.loadDefaults()
		m.save()
		return
	}

	if loaded.Version != SchemaVersion {
		log.Printf("settings: version mismatch (found v%d, expected v%d), restoring defaults",
			loaded.Version, SchemaVersion)
		m.loadDefaults()
		m.save()
		return
	}

	log.Printf("settings: settings v%d loaded", loaded.Version)
	m.settings = loaded
	m.dirty = false
}

// save writes the cache to the store. Caller holds the lock.
func (m *Manager) save() bool {
	m.settings.Version = SchemaVersion

	blob, err := json.Marshal(m.settings)
	if err != nil {
		log.Printf("settings: failed to encode settings: %v", err)
		return false
	}

	if err := m.store.SetBlob(storeNamespace, storeKey, blob); err != nil {
		log.Printf("settings: failed to commit settings: %v", err)
		return false
	}

	m.dirty = false
	return true
}

// loadDefaults resets the cache to factory values. Caller holds the lock.
func (m *Manager) loadDefaults() {
	m.settings = DefaultSettings()
	m.markDirty()
}

// markDirty flags the cache as diverged. Caller holds the lock.
func (m *Manager) markDirty() {
	m.dirty = true
}

// Snapshot returns a consistent copy of the full settings record.
func (m *Manager) Snapshot() SystemSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// IsDirty reports whether the cache has uncommitted changes.
func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

// Commit persists the cache only if it is dirty. Returns true when the
// store matches the cache afterwards.
func (m *Manager) Commit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dirty {
		return m.save()
	}
	return true
}

// ForceSave persists the cache unconditionally.
func (m *Manager) ForceSave() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save()
}

// FactoryReset erases the persisted namespace and reinstalls defaults,
// atomically with respect to concurrent readers.
func (m *Manager) FactoryReset() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Printf("settings: performing factory reset")
	if err := m.store.EraseNamespace(storeNamespace); err != nil {
		log.Printf("settings: failed to erase namespace: %v", err)
	}
	m.loadDefaults()
	return m.save()
}

// Narrow getters avoid a full record copy for hot fields.

// DebugMode reports the runtime debug toggle.
func (m *Manager) DebugMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings.DebugMode
}

// Mode reports the configured WiFi mode.
func (m *Manager) Mode() WiFiMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings.WiFiMode
}

// BluetoothName reports the configured short-range radio name.
func (m *Manager) BluetoothName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings.BluetoothName
}

// SetWiFiConfig updates the station credentials and mode. A write that
// changes nothing does not mark the cache dirty.
func (m *Manager) SetWiFiConfig(ssid, password string, mode WiFiMode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings.WiFiSSID == ssid && m.settings.WiFiPassword == password && m.settings.WiFiMode == mode {
		return
	}
	m.settings.WiFiSSID = ssid
	m.settings.WiFiPassword = password
	m.settings.WiFiMode = mode
	m.markDirty()
}

// SetStaticIP updates the static addressing triplet.
func (m *Manager) SetStaticIP(enabled bool, ip, gateway, subnet string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings.StaticIPEnabled == enabled && m.settings.StaticIP == ip &&
		m.settings.Gateway == gateway && m.settings.Subnet == subnet {
		return
	}
	m.settings.StaticIPEnabled = enabled
	m.settings.StaticIP = ip
	m.settings.Gateway = gateway
	m.settings.Subnet = subnet
	m.markDirty()
}

// SetBluetoothConfig updates the short-range radio enable flag and name.
func (m *Manager) SetBluetoothConfig(enabled bool, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings.BluetoothEnabled == enabled && m.settings.BluetoothName == name {
		return
	}
	m.settings.BluetoothEnabled = enabled
	m.settings.BluetoothName = name
	m.markDirty()
}

// SetDebugMode updates the runtime debug toggle.
func (m *Manager) SetDebugMode(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings.DebugMode == enabled {
		return
	}
	m.settings.DebugMode = enabled
	m.markDirty()
}
