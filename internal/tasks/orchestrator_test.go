package tasks

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yupaihuai/s3/internal/bluetooth"
	"github.com/yupaihuai/s3/internal/config"
	"github.com/yupaihuai/s3/internal/flashlog"
	"github.com/yupaihuai/s3/internal/nvs"
	"github.com/yupaihuai/s3/internal/rpc"
	"github.com/yupaihuai/s3/internal/settings"
	"github.com/yupaihuai/s3/internal/wifi"
)

type fakeEndpoint struct {
	mu         sync.Mutex
	clients    int
	broadcasts []string
	sends      []string
	sentTo     []string
}

func (e *fakeEndpoint) BroadcastText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcasts = append(e.broadcasts, text)
}

func (e *fakeEndpoint) SendTo(clientID, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sends = append(e.sends, text)
	e.sentTo = append(e.sentTo, clientID)
}

func (e *fakeEndpoint) ClientCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clients
}

func (e *fakeEndpoint) setClients(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clients = n
}

func (e *fakeEndpoint) takeSends() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.sends))
	copy(out, e.sends)
	return out
}

func (e *fakeEndpoint) takeBroadcasts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.broadcasts))
	copy(out, e.broadcasts)
	return out
}

func (e *fakeEndpoint) totalTraffic() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.broadcasts) + len(e.sends)
}

func testOpts() config.Options {
	opts := *config.Defaults()
	opts.WatchdogTimeout = 500 * time.Millisecond
	opts.WorkerBlockTime = 50 * time.Millisecond
	opts.MonitorPeriod = 20 * time.Millisecond
	opts.PublisherWait = 10 * time.Millisecond
	opts.LogQueueDepth = 64
	return opts
}

type harness struct {
	orch     *Orchestrator
	endpoint *fakeEndpoint
	store    *settings.Manager
	wifiMgr  *wifi.Manager
	restarts chan struct{}
}

func newHarness(t *testing.T, opts config.Options) *harness {
	t.Helper()

	store := settings.NewManager(nvs.NewMemoryStore())
	store.Begin()
	// Keep the boot configuration quiet so tests drive the radios.
	store.SetWiFiConfig("", "", settings.WiFiModeOff)
	store.SetBluetoothConfig(false, "ESP32S3-Device")
	store.Commit()

	wifiDrv := wifi.NewSimDriver([]wifi.Network{{SSID: "office", RSSI: -40, Secure: true}})
	t.Cleanup(wifiDrv.Stop)
	wifiMgr := wifi.NewManager(store, wifiDrv, 5*time.Millisecond, 3)

	btMgr := bluetooth.NewManager(store, bluetooth.NewSimDriver(), nil)

	flog := flashlog.NewLogger(flashlog.OSFileStore{})
	require.NoError(t, flog.Begin(filepath.Join(t.TempDir(), "system.log"), 8*1024, time.Hour))
	t.Cleanup(flog.Stop)

	endpoint := &fakeEndpoint{}
	restarts := make(chan struct{}, 4)

	orch := NewOrchestrator(opts, Deps{
		Settings:  store,
		WiFi:      wifiMgr,
		Bluetooth: btMgr,
		FlashLog:  flog,
		Endpoint:  endpoint,
		Restart:   func() { restarts <- struct{}{} },
	})
	require.NoError(t, orch.Begin())
	t.Cleanup(orch.Stop)

	return &harness{orch: orch, endpoint: endpoint, store: store, wifiMgr: wifiMgr, restarts: restarts}
}

func submit(t *testing.T, o *Orchestrator, method, params string, id int) {
	t.Helper()
	req := rpc.Request{
		Method:   method,
		ID:       json.RawMessage(fmt.Sprintf("%d", id)),
		ClientID: "c1",
	}
	if params != "" {
		req.Params = json.RawMessage(params)
	}
	require.True(t, o.Submit(req), "command queue rejected %s", method)
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestBeginTwiceFails(t *testing.T) {
	h := newHarness(t, testOpts())
	require.Error(t, h.orch.Begin())
}

func TestBeginRejectsWorkerBlockAboveWatchdog(t *testing.T) {
	opts := testOpts()
	opts.WorkerBlockTime = opts.WatchdogTimeout

	store := settings.NewManager(nvs.NewMemoryStore())
	store.Begin()
	o := NewOrchestrator(opts, Deps{})
	require.Error(t, o.Begin())
}

func TestResponsesArriveInSubmissionOrder(t *testing.T) {
	h := newHarness(t, testOpts())
	h.endpoint.setClients(1)

	const k = 5
	for i := 1; i <= k; i++ {
		submit(t, h.orch, "settings.get", "", i)
	}

	waitUntil(t, func() bool { return len(h.endpoint.takeSends()) >= k }, "responses never arrived")

	sends := h.endpoint.takeSends()[:k]
	for i, text := range sends {
		require.Contains(t, text, fmt.Sprintf(`"id":%d`, i+1))
	}
}

func TestUnknownMethodAnswersMethodNotFound(t *testing.T) {
	h := newHarness(t, testOpts())
	h.endpoint.setClients(1)

	submit(t, h.orch, "no.such.method", "", 9)

	waitUntil(t, func() bool { return len(h.endpoint.takeSends()) >= 1 }, "error response never arrived")
	require.Contains(t, h.endpoint.takeSends()[0], `-32601`)
}

func TestSaveWifiRejectsMissingSSID(t *testing.T) {
	h := newHarness(t, testOpts())
	h.endpoint.setClients(1)

	submit(t, h.orch, "settings.saveWifi", `{"password":"x","mode":1}`, 2)

	waitUntil(t, func() bool { return len(h.endpoint.takeSends()) >= 1 }, "error response never arrived")
	require.Contains(t, h.endpoint.takeSends()[0], `-32602`)
}

func TestSaveWifiAppliesToMachine(t *testing.T) {
	h := newHarness(t, testOpts())
	h.endpoint.setClients(1)

	submit(t, h.orch, "settings.saveWifi", `{"ssid":"office","password":"secret","mode":1}`, 3)

	waitUntil(t, func() bool { return h.wifiMgr.State() == wifi.StateConnected }, "machine never connected")

	snap := h.store.Snapshot()
	require.Equal(t, "office", snap.WiFiSSID)
	require.Equal(t, settings.WiFiModeStation, snap.WiFiMode)
}

func TestScanAcksThenBroadcastsResult(t *testing.T) {
	h := newHarness(t, testOpts())
	h.endpoint.setClients(1)

	submit(t, h.orch, "wifi.scan", "", 4)

	waitUntil(t, func() bool { return len(h.endpoint.takeSends()) >= 1 }, "ack never arrived")
	require.Contains(t, h.endpoint.takeSends()[0], `"scanning"`)

	waitUntil(t, func() bool {
		for _, b := range h.endpoint.takeBroadcasts() {
			if strings.Contains(b, "wifi.scanResult") && strings.Contains(b, "office") {
				return true
			}
		}
		return false
	}, "scan result never broadcast")
}

func TestMonitorPublishesStateUpdates(t *testing.T) {
	h := newHarness(t, testOpts())
	h.endpoint.setClients(1)

	waitUntil(t, func() bool {
		for _, b := range h.endpoint.takeBroadcasts() {
			if strings.Contains(b, "system.stateUpdate") {
				return true
			}
		}
		return false
	}, "status snapshot never broadcast")
}

func TestZeroClientsDrainAndDiscard(t *testing.T) {
	opts := testOpts()
	// Idle the monitor so only the queued test traffic is in play.
	opts.MonitorPeriod = time.Hour
	h := newHarness(t, opts)

	for i := 0; i < 5; i++ {
		h.orch.PushState(rpc.Notification("system.stateUpdate", map[string]int{"n": i}))
	}
	for i := 0; i < 50; i++ {
		h.orch.pushLog(fmt.Sprintf("line %d", i))
	}

	waitUntil(t, func() bool {
		return len(h.orch.stateQ) == 0 && len(h.orch.logQ) == 0
	}, "queues never drained")

	require.Equal(t, 0, h.endpoint.totalTraffic())
}

func TestLogLinesBatchIntoOneNotification(t *testing.T) {
	opts := testOpts()
	opts.MonitorPeriod = time.Hour
	h := newHarness(t, opts)
	h.endpoint.setClients(1)

	for i := 0; i < 5; i++ {
		h.orch.pushLog(fmt.Sprintf("line %d", i))
	}

	waitUntil(t, func() bool {
		total := 0
		for _, b := range h.endpoint.takeBroadcasts() {
			if strings.Contains(b, "log.batch") {
				total += strings.Count(b, `"msg"`)
			}
		}
		return total == 5
	}, "log lines never delivered")
}

func TestLogWriterTeesIntoLogQueue(t *testing.T) {
	opts := testOpts()
	opts.MonitorPeriod = time.Hour
	h := newHarness(t, opts)
	h.endpoint.setClients(1)

	w := h.orch.LogWriter(discardWriter{})
	_, err := w.Write([]byte("teed line\n"))
	require.NoError(t, err)

	waitUntil(t, func() bool {
		for _, b := range h.endpoint.takeBroadcasts() {
			if strings.Contains(b, "teed line") {
				return true
			}
		}
		return false
	}, "teed line never delivered")
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRebootAcksAndInvokesRestartHook(t *testing.T) {
	h := newHarness(t, testOpts())
	h.endpoint.setClients(1)

	submit(t, h.orch, "system.reboot", "", 7)

	waitUntil(t, func() bool { return len(h.endpoint.takeSends()) >= 1 }, "ack never arrived")
	require.Contains(t, h.endpoint.takeSends()[0], `"rebooting"`)

	select {
	case <-h.restarts:
	case <-time.After(2 * time.Second):
		t.Fatal("restart hook never invoked")
	}
}

func TestFactoryResetRestoresDefaults(t *testing.T) {
	h := newHarness(t, testOpts())
	h.endpoint.setClients(1)

	submit(t, h.orch, "system.factoryReset", "", 8)

	waitUntil(t, func() bool { return len(h.endpoint.takeSends()) >= 1 }, "ack never arrived")
	require.Contains(t, h.endpoint.takeSends()[0], `"resetting"`)

	snap := h.store.Snapshot()
	require.Equal(t, settings.DefaultSettings().WiFiSSID, snap.WiFiSSID)

	select {
	case <-h.restarts:
	case <-time.After(2 * time.Second):
		t.Fatal("restart hook never invoked")
	}
}
