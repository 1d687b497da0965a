// Package main implements the device control daemon entry point.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/yupaihuai/s3/internal/bluetooth"
	"github.com/yupaihuai/s3/internal/config"
	"github.com/yupaihuai/s3/internal/diag"
	"github.com/yupaihuai/s3/internal/flashlog"
	"github.com/yupaihuai/s3/internal/mempool"
	"github.com/yupaihuai/s3/internal/nvs"
	"github.com/yupaihuai/s3/internal/rpc"
	"github.com/yupaihuai/s3/internal/settings"
	"github.com/yupaihuai/s3/internal/tasks"
	"github.com/yupaihuai/s3/internal/transport"
	"github.com/yupaihuai/s3/internal/wifi"
)

const Version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	started := time.Now()
	log.Printf("--- device control core v%s booting ---", Version)

	// Step 1: bootstrap configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[1/9] configuration failed: %v", err)
	}
	log.Printf("[1/9] configuration loaded")

	// Step 2: persistent key-value store. Everything configurable
	// depends on it, so it comes up first.
	store, err := nvs.OpenSQLite(cfg.StorePath)
	if err != nil {
		log.Fatalf("[2/9] key-value store failed: %v", err)
	}
	log.Printf("[2/9] key-value store open at %s", cfg.StorePath)

	// Step 3: settings cache. Recovers to defaults on any corruption.
	settingsMgr := settings.NewManager(store)
	settingsMgr.Begin()
	log.Printf("[3/9] settings loaded")

	// Step 4: block pool allocator. Partial pool failure is logged,
	// not fatal; overall failure means no pool could be carved.
	poolConfigs := make([]mempool.PoolConfig, 0, len(cfg.Pools))
	for _, p := range cfg.Pools {
		poolConfigs = append(poolConfigs, mempool.PoolConfig{
			Name:       p.Name,
			BlockSize:  p.BlockSize,
			BlockCount: p.BlockCount,
		})
	}
	pools, ok := mempool.NewAllocator(poolConfigs)
	if !ok {
		log.Printf("[4/9] WARNING: no memory pools available")
	} else {
		log.Printf("[4/9] memory pools carved")
	}

	// Step 5: durable logger.
	flog := flashlog.NewLogger(flashlog.OSFileStore{})
	if err := flog.Begin(cfg.LogFilePath, cfg.LogRingBytes, cfg.LogFlushEvery); err != nil {
		log.Fatalf("[5/9] durable logger failed: %v", err)
	}
	log.Printf("[5/9] durable logger writing to %s", cfg.LogFilePath)

	// Step 6: long-range radio.
	wifiMgr := wifi.NewManager(settingsMgr, newWiFiDriver(), cfg.ReconnectInterval, cfg.MaxConnectRetries)
	wifiMgr.Begin()
	log.Printf("[6/9] wifi manager started")

	// Step 7: transport. The hub feeds parsed requests into the
	// orchestrator's command queue; the orchestrator is wired in step 9
	// and the listener only starts once it is up.
	var orch *tasks.Orchestrator
	hub := transport.NewHub(func(req rpc.Request) bool { return orch.Submit(req) }, pools)
	router := mux.NewRouter()
	hub.Routes(router)
	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	log.Printf("[7/9] transport prepared on %s", cfg.ListenAddr)

	// Step 8: short-range radio.
	btMgr := bluetooth.NewManager(settingsMgr, bluetooth.NewSimDriver(), flog)
	btMgr.Begin()
	log.Printf("[8/9] bluetooth manager started")

	// Step 9: system tasks, last, once every base service is up.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	restart := func() { shutdown <- syscall.SIGTERM }

	orch = tasks.NewOrchestrator(*cfg, tasks.Deps{
		Settings:  settingsMgr,
		WiFi:      wifiMgr,
		Bluetooth: btMgr,
		FlashLog:  flog,
		Pools:     pools,
		Endpoint:  hub,
		Restart:   restart,
	})
	if err := orch.Begin(); err != nil {
		log.Fatalf("[9/9] task orchestrator failed: %v", err)
	}
	log.Printf("[9/9] all system tasks created")

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("transport: server stopped: %v", err)
		}
	}()
	log.Printf("transport listening on %s", cfg.ListenAddr)

	// Mirror process logs onto the log queue so connected clients see
	// them.
	log.SetOutput(orch.LogWriter(os.Stderr))

	flog.Logf("[main] system booted successfully, version %s", Version)
	log.Printf("--- system initialization complete ---")

	if settingsMgr.DebugMode() {
		report := diag.Report{
			Sink:           flog,
			Settings:       settingsMgr,
			Pools:          pools,
			WiFiState:      func() string { return wifiMgr.State().String() },
			BluetoothState: func() string { return btMgr.State().String() },
			Started:        started,
		}
		report.Run()
	}

	sig := <-shutdown
	log.SetOutput(os.Stderr)
	log.Printf("received %v, shutting down", sig)

	// Teardown in reverse: tasks, transport, then persistence.
	orch.Stop()
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("transport shutdown: %v", err)
	}

	if !settingsMgr.ForceSave() {
		log.Printf("WARNING: final settings save failed")
	}
	flog.Logf("[main] system shutting down")
	flog.Flush()
	flog.Stop()

	if err := store.Close(); err != nil {
		log.Printf("key-value store close: %v", err)
	}

	log.Printf("shutdown complete")
}

// newWiFiDriver returns the radio backend. Hardware builds swap in a
// real driver here; the default is the software simulation.
func newWiFiDriver() wifi.Driver {
	return wifi.NewSimDriver(nil)
}
