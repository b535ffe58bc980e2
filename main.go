package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gaitworks/plantar.report/internal/api"
	"github.com/gaitworks/plantar.report/internal/config"
	"github.com/gaitworks/plantar.report/internal/db"
	"github.com/gaitworks/plantar.report/internal/gait"
	"github.com/gaitworks/plantar.report/internal/insole"
	"github.com/gaitworks/plantar.report/internal/monitoring"
	"github.com/gaitworks/plantar.report/internal/serialmux"
	"github.com/gaitworks/plantar.report/internal/telemetry"
	"github.com/gaitworks/plantar.report/internal/timeutil"
)

var (
	//go:embed static/*
	staticFiles embed.FS
	devMode     = flag.Bool("dev", false, "Run in dev mode with a synthetic insole stream")
	listen      = flag.String("listen", ":8080", "Listen address")
	configPath  = flag.String("config", "", "Path to JSON config file")
	dbPath      = flag.String("db", "plantar_data.db", "Path to sqlite database")
)

// devStream builds a synthetic byte stream for dev mode: a walking-ish
// sequence of left and right frames with a deliberately corrupted frame
// mixed in so the checksum error path stays exercised.
func devStream() []byte {
	var stream []byte
	for step := 0; step < 8; step++ {
		var points [insole.PointCount]uint16
		for i := range points {
			// heel strike rolling toward toe-off as step advances
			points[i] = uint16(200 + 50*((i+step)%insole.PointCount))
		}
		side := insole.FootLeft
		if step%2 == 1 {
			side = insole.FootRight
		}
		frame := insole.EncodeFrame(side, points)
		if step == 5 {
			frame[insole.FrameSize-1] ^= 0xFF
		}
		stream = append(stream, frame[:]...)
	}
	return stream
}

// openMux picks the serial source: synthetic replay in dev mode, the
// enabled database config when present, otherwise the config file.
func openMux(cfg *config.Config, database *db.DB) (serialmux.SerialMuxInterface, error) {
	if *devMode {
		interval := time.Duration(cfg.GetSampleIntervalMs()) * time.Millisecond
		return serialmux.NewMockSerialMux(devStream(), insole.FrameSize, interval), nil
	}

	portPath := cfg.GetPortPath()
	opts := serialmux.PortOptions{
		BaudRate: cfg.GetBaudRate(),
		DataBits: cfg.GetDataBits(),
		StopBits: cfg.GetStopBits(),
		Parity:   cfg.GetParity(),
	}

	if sc, err := database.EnabledSerialConfig(); err != nil {
		log.Printf("failed to load serial config from database: %v", err)
	} else if sc != nil {
		log.Printf("using serial config %q (%s)", sc.Name, sc.PortPath)
		portPath = sc.PortPath
		opts = serialmux.PortOptions{
			BaudRate: sc.BaudRate,
			DataBits: sc.DataBits,
			StopBits: sc.StopBits,
			Parity:   sc.Parity,
		}
	}

	m, err := serialmux.NewRealSerialMux(portPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open insole port %s: %w", portPath, err)
	}
	return m, nil
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := &config.Config{}
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	m, err := openMux(cfg, database)
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	decoder := insole.NewDecoder(timeutil.RealClock{})

	// Persist each validated sample alongside its derived CoP.
	decoder.OnFrame(func(sample insole.PressureSample) {
		cop := gait.ComputeCoP(sample)
		if err := database.RecordObservation(sample, cop); err != nil {
			log.Printf("failed to record observation: %v", err)
		}
	})
	decoder.OnChecksumError(func() {
		monitoring.Logf("insole: checksum mismatch, frame dropped")
	})

	// Optional MQTT publishing for external dashboards.
	if broker := cfg.GetMQTTBroker(); broker != "" {
		hostname, _ := os.Hostname()
		publisher, err := telemetry.New(broker, "plantar-"+hostname, cfg.GetMQTTTopicPrefix())
		if err != nil {
			log.Fatalf("failed to connect telemetry publisher: %v", err)
		}
		defer publisher.Close()
		decoder.OnFrame(func(sample insole.PressureSample) {
			if err := publisher.PublishCoP(sample.Side, gait.ComputeCoP(sample)); err != nil {
				monitoring.Logf("telemetry: publish failed: %v", err)
			}
		})
	}

	// Wait group covers the serial monitor, the decode loop, and the
	// HTTP server.
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to raw byte chunks and feed them through the decoder
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := m.Subscribe()
		defer m.Unsubscribe(id)
		for {
			select {
			case chunk := <-c:
				decoder.Feed(chunk)
			case <-ctx.Done():
				log.Printf("decode routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// admin debugging routes (dev mode or Tailscale only)
		m.AttachAdminRoutes(mux)

		apiMux := api.NewServer(m, database, decoder).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		// read static files from the embedded filesystem in production
		// or from ./static in dev for easier iteration
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			staticHandler = http.FileServer(http.FS(staticFiles))
		}
		mux.Handle("/", staticHandler)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
