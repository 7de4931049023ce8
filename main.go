package main

import (
	"context"
	"embed"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/ledgrid/api"
	"github.com/banshee-data/ledgrid/internal/config"
	"github.com/banshee-data/ledgrid/internal/db"
	"github.com/banshee-data/ledgrid/internal/serialmux"
	"github.com/banshee-data/ledgrid/internal/version"
)

var (
	//go:embed static/*
	staticFiles embed.FS

	devMode       = flag.Bool("dev", false, "Run in dev mode with a mock serial port")
	disableSerial = flag.Bool("disable-serial", false, "Run without any serial port (UI and API only)")
	listen        = flag.String("listen", "", "Listen address (overrides config)")
	portPath      = flag.String("port", "", "Serial port path (overrides config)")
	baudRate      = flag.Int("baud", 0, "Serial baud rate (overrides config)")
	configPath    = flag.String("config", "", "Path to JSON config file")
)

func main() {
	flag.Parse()
	log.Printf("ledgrid %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	// Flags win over the config file.
	listenAddr := cfg.GetListenAddr()
	if *listen != "" {
		listenAddr = *listen
	}
	serialPath := cfg.GetPortPath()
	if *portPath != "" {
		serialPath = *portPath
	}
	baud := cfg.GetBaudRate()
	if *baudRate != 0 {
		baud = *baudRate
	}

	// Dispatch the migrate subcommand before anything touches the serial
	// port.
	if args := flag.Args(); len(args) > 0 && args[0] == "migrate" {
		db.RunMigrateCommand(args[1:], cfg.GetDBPath())
		return
	}

	var m serialmux.FrameMuxInterface
	switch {
	case *disableSerial:
		m = serialmux.NewDisabledFrameMux()
	case *devMode:
		m = serialmux.NewMockFrameMux([]byte("boot ledgrid mock\n"))
	default:
		var err error
		m, err = serialmux.NewRealFrameMux(serialPath, serialmux.PortOptions{BaudRate: baud})
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", serialPath, err)
		}
	}
	defer m.Close()

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Create a wait group for the HTTP server, serial monitor, and event
	// handler routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// clear the display once the device has finished booting
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Initialize(); err != nil {
			log.Printf("failed to initialize display: %v", err)
		}
	}()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to the firmware debug lines and log them by type
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := m.Subscribe()
		defer m.Unsubscribe(id)
		for {
			select {
			case line, ok := <-c:
				if !ok {
					return
				}
				log.Printf("device [%s]: %s", serialmux.ClassifyDeviceLine(line), line)
			case <-ctx.Done():
				log.Printf("subscribe routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes (accessible only in dev mode or
		// over Tailscale)
		database.AttachAdminRoutes(mux)
		m.AttachAdminRoutes(mux)

		// create a new API server instance using the frame mux and database
		// and mount the API handlers
		status := api.Status{
			SerialEnabled: !*disableSerial,
			PortPath:      serialPath,
			BaudRate:      baud,
			Version:       version.Version,
		}
		apiMux := api.NewServer(m, database, cfg, status).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		// read static files from the embedded filesystem in production or
		// from the local ./static in dev for easier iteration without
		// restarting the server
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			staticHandler = http.FileServer(http.FS(staticFiles))
		}
		mux.Handle("/", staticHandler)

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		server := &http.Server{
			Addr:    listenAddr,
			Handler: h,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
