package tasks

import (
	"encoding/json"
	"log"
	"time"

	"github.com/yupaihuai/s3/internal/diag"
	"github.com/yupaihuai/s3/internal/rpc"
	"github.com/yupaihuai/s3/internal/settings"
)

// dispatch decodes the method and hands the request to the owning
// component. The response envelope travels through the state queue so
// responses leave in submission order.
func (o *Orchestrator) dispatch(req rpc.Request) {
	log.Printf("tasks: worker dispatching %s from client %s", req.Method, req.ClientID)

	var text string
	switch req.Method {
	case "system.reboot":
		text = o.handleReboot(req)
	case "system.factoryReset":
		text = o.handleFactoryReset(req)
	case "settings.get":
		text = o.handleSettingsGet(req)
	case "settings.saveWifi":
		text = o.handleSaveWifi(req)
	case "settings.saveBluetooth":
		text = o.handleSaveBluetooth(req)
	case "wifi.scan":
		text = o.handleScan(req)
	case "debug.runDiagnostics":
		text = o.handleDiagnostics(req)
	default:
		text = rpc.Error(req.ID, rpc.CodeMethodNotFound, "Method not found")
	}

	if text != "" {
		o.pushOutbound(outbound{clientID: req.ClientID, text: text})
	}
}

func (o *Orchestrator) handleReboot(req rpc.Request) string {
	o.deps.FlashLog.Logf("[tasks] reboot requested, restarting")
	o.deps.FlashLog.Flush()
	o.scheduleRestart()
	return rpc.Result(req.ID, map[string]string{"status": "rebooting"})
}

func (o *Orchestrator) handleFactoryReset(req rpc.Request) string {
	o.deps.FlashLog.Logf("[tasks] factory reset requested, restarting")
	if !o.deps.Settings.FactoryReset() {
		return rpc.Error(req.ID, rpc.CodeInternalError, "Factory reset failed")
	}
	o.deps.FlashLog.Flush()
	o.scheduleRestart()
	return rpc.Result(req.ID, map[string]string{"status": "resetting"})
}

// scheduleRestart invokes the restart hook after a short grace period
// so the ack and the final log flush can still go out.
func (o *Orchestrator) scheduleRestart() {
	if o.deps.Restart == nil {
		return
	}
	restart := o.deps.Restart
	go func() {
		time.Sleep(200 * time.Millisecond)
		restart()
	}()
}

func (o *Orchestrator) handleSettingsGet(req rpc.Request) string {
	snap := o.deps.Settings.Snapshot()
	return rpc.Result(req.ID, map[string]interface{}{
		"wifi": map[string]interface{}{
			"ssid":            snap.WiFiSSID,
			"mode":            int(snap.WiFiMode),
			"staticIpEnabled": snap.StaticIPEnabled,
		},
		"bluetooth": map[string]interface{}{
			"deviceName": snap.BluetoothName,
			"enabled":    snap.BluetoothEnabled,
		},
		"debugMode": snap.DebugMode,
	})
}

func (o *Orchestrator) handleSaveWifi(req rpc.Request) string {
	var p struct {
		SSID     *string `json:"ssid"`
		Password string  `json:"password"`
		Mode     int     `json:"mode"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil || p.SSID == nil {
		return rpc.Error(req.ID, rpc.CodeInvalidParams, "Invalid params: missing ssid")
	}
	if p.Mode < int(settings.WiFiModeOff) || p.Mode > int(settings.WiFiModeAPStation) {
		return rpc.Error(req.ID, rpc.CodeInvalidParams, "Invalid params: bad mode")
	}

	o.deps.Settings.SetWiFiConfig(*p.SSID, p.Password, settings.WiFiMode(p.Mode))
	o.deps.WiFi.ApplySettings()
	return rpc.Result(req.ID, map[string]string{"status": "success"})
}

func (o *Orchestrator) handleSaveBluetooth(req rpc.Request) string {
	var p struct {
		DeviceName *string `json:"deviceName"`
		Enabled    bool    `json:"enabled"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil || p.DeviceName == nil {
		return rpc.Error(req.ID, rpc.CodeInvalidParams, "Invalid params: missing deviceName")
	}

	o.deps.Settings.SetBluetoothConfig(p.Enabled, *p.DeviceName)
	o.deps.Bluetooth.ApplySettings()
	return rpc.Result(req.ID, map[string]string{"status": "success"})
}

// handleScan acks immediately; the survey result is delivered
// asynchronously as a broadcast wifi.scanResult notification through
// the state queue.
func (o *Orchestrator) handleScan(req rpc.Request) string {
	ack := rpc.Result(req.ID, map[string]string{"status": "scanning"})
	o.pushOutbound(outbound{clientID: req.ClientID, text: ack})

	nets, err := o.deps.WiFi.Scan()
	if err != nil {
		log.Printf("tasks: wifi scan failed: %v", err)
		o.pushOutbound(outbound{text: rpc.Notification("wifi.scanResult", []interface{}{})})
		return ""
	}
	log.Printf("tasks: scan finished, found %d networks", len(nets))
	o.pushOutbound(outbound{text: rpc.Notification("wifi.scanResult", nets)})
	return ""
}

func (o *Orchestrator) handleDiagnostics(req rpc.Request) string {
	if !o.deps.Settings.DebugMode() {
		return rpc.Error(req.ID, rpc.CodeMethodNotFound, "Method not found")
	}

	report := diag.Report{
		Sink:           o.deps.FlashLog,
		Settings:       o.deps.Settings,
		Pools:          o.deps.Pools,
		WiFiState:      func() string { return o.deps.WiFi.State().String() },
		BluetoothState: func() string { return o.deps.Bluetooth.State().String() },
		Started:        o.started,
	}
	report.Run()
	o.deps.FlashLog.Flush()
	return rpc.Result(req.ID, map[string]string{"status": "completed"})
}
