// Package main is the entry point for the LED sectional server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/bbernstein/ledsectional/internal/api"
	"github.com/bbernstein/ledsectional/internal/config"
	"github.com/bbernstein/ledsectional/internal/database"
	"github.com/bbernstein/ledsectional/internal/database/models"
	"github.com/bbernstein/ledsectional/internal/database/repositories"
	"github.com/bbernstein/ledsectional/internal/led"
	"github.com/bbernstein/ledsectional/internal/mapconfig"
	"github.com/bbernstein/ledsectional/internal/services/metarclient"
	"github.com/bbernstein/ledsectional/internal/services/network"
	"github.com/bbernstein/ledsectional/internal/services/output"
	"github.com/bbernstein/ledsectional/internal/services/pubsub"
	"github.com/bbernstein/ledsectional/internal/services/sectional"
	"github.com/bbernstein/ledsectional/internal/services/wifi"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	mapCfg, err := loadMapConfig(cfg.MapConfigPath, cfg.MapConfigFallback)
	if err != nil {
		log.Fatalf("Failed to load map config: %v", err)
	}

	printBanner(cfg, mapCfg)

	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 2,
		MaxOpenConn: 4,
		Debug:       cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	settingRepo := repositories.NewSettingRepository(db)
	cycleRepo := repositories.NewCycleRepository(db)

	applyStoredBrightness(context.Background(), mapCfg, settingRepo)

	// LED output
	broadcast := resolveArtNetBroadcast(cfg.ArtNetBroadcast)
	driver, err := output.NewDriver(output.DriverConfig{
		Name:            cfg.LEDDriver,
		ArtNetBroadcast: broadcast,
		ArtNetPort:      cfg.ArtNetPort,
		ArtNetUniverse:  cfg.ArtNetUniverse,
		SerialPort:      cfg.SerialPort,
		SerialBaud:      cfg.SerialBaud,
	})
	if err != nil {
		log.Fatalf("Invalid LED driver: %v", err)
	}
	outputService := output.NewService(driver, output.Config{RefreshRateHz: cfg.LEDRefreshRate})
	if err := outputService.Initialize(); err != nil {
		log.Printf("Warning: LED output initialization failed: %v", err)
		// Continue on the null driver so the API and history keep working
		outputService = output.NewService(output.NewNullDriver(), output.Config{RefreshRateHz: cfg.LEDRefreshRate})
		_ = outputService.Initialize()
	}

	metarClient := metarclient.New(metarclient.Config{
		BaseURL:   cfg.MetarBaseURL,
		Timeout:   cfg.MetarTimeout,
		UserAgent: "LED-Sectional-Go/" + Version,
	}, nil)

	ps := pubsub.New()

	runner, err := sectional.NewRunner(sectional.Config{
		Map:               mapCfg,
		RetryAfter:        cfg.MetarRetryAfter,
		LightningInterval: cfg.LightningInterval,
		FlashDuration:     cfg.LightningFlash,
		ErrorOverlay:      cfg.FetchErrorOverlay,
	}, sectional.Deps{
		Fetcher:   metarClient,
		Display:   outputService,
		Cycles:    cycleRepo,
		Publisher: ps,
	})
	if err != nil {
		log.Fatalf("Failed to create sectional runner: %v", err)
	}

	// Wi-Fi
	var wifiService *wifi.Service
	if cfg.NonInteractive {
		log.Println("📶 Non-interactive mode, skipping Wi-Fi management")
	} else {
		wifiService = wifi.NewService(wifi.Config{
			Interface: cfg.WifiInterface,
			APTimeout: cfg.WifiAPTimeout,
		}, settingRepo, mapCfg.Wifi)
		wifiService.SetStatusCallback(func(status *wifi.Status) {
			ps.Publish(pubsub.TopicWiFiStatus, status)
		})

		runner.ShowStatus(led.ColorConnecting)
		mode, err := wifiService.EnsureConnected(context.Background())
		switch {
		case err != nil:
			log.Printf("Warning: Wi-Fi setup failed: %v", err)
		case mode == wifi.ModeClient:
			runner.ShowStatus(led.ColorConnected)
		case mode == wifi.ModeAP:
			log.Printf("📶 Setup network %q is up, browse to http://%s/setup", wifi.DefaultAPSSID, wifi.APIPAddress)
		}
	}

	if err := runner.Start(); err != nil {
		log.Fatalf("Failed to start sectional runner: %v", err)
	}

	deps := api.Deps{
		Display:  runner,
		Map:      mapCfg,
		Settings: settingRepo,
		Cycles:   cycleRepo,
		PubSub:   ps,
		Version:  Version,
	}
	if wifiService != nil {
		deps.WiFi = wifiService
	}
	router := newRouter(cfg, api.New(deps))

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%s\n", cfg.Port)
		log.Printf("Setup page: http://localhost:%s/setup\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Cleanup services in reverse order
	runner.Stop()
	if wifiService != nil {
		wifiService.Close()
	}
	outputService.Stop()

	log.Println("Server stopped")
}

// loadMapConfig reads the map file at path. With fallback set, a missing or
// invalid file yields the built-in map instead of an error.
func loadMapConfig(path string, fallback bool) (*mapconfig.Config, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		var mapCfg *mapconfig.Config
		mapCfg, err = mapconfig.Parse(string(raw))
		if err == nil {
			for _, key := range mapCfg.UnknownKeys() {
				log.Printf("Warning: unknown map config key %q ignored", key)
			}
			log.Printf("🗺️  Loaded %d LEDs from %s", mapCfg.AirportCount(), path)
			return mapCfg, nil
		}
	}

	if !fallback {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("🗺️  %s not found, using the built-in map", path)
	} else {
		log.Printf("Warning: %v, using the built-in map", err)
	}
	return mapconfig.Default(), nil
}

// resolveArtNetBroadcast accepts an IPv4 address or an interface name such
// as "eth0" and returns the address Art-Net packets are sent to.
func resolveArtNetBroadcast(target string) string {
	options, err := network.GetNetworkInterfaces()
	if err != nil {
		log.Printf("Warning: %v", err)
	}
	addr, err := network.ResolveBroadcast(target, options)
	if err != nil {
		log.Printf("Warning: %v, using %s", err, addr)
	}
	if addr == "" {
		addr = network.GlobalBroadcast
	}
	return addr
}

// applyStoredBrightness lets a brightness saved through the API override the
// map file.
func applyStoredBrightness(ctx context.Context, mapCfg *mapconfig.Config, repo *repositories.SettingRepository) {
	value, ok, err := repo.GetInt(ctx, models.SettingBrightness)
	if err != nil {
		log.Printf("Warning: failed to read saved brightness: %v", err)
		return
	}
	if !ok {
		return
	}
	if value < 0 {
		value = 0
	}
	if value > 255 {
		value = 255
	}
	log.Printf("💡 Using saved brightness %d", value)
	mapCfg.Settings.Brightness = uint8(value)
}

// newRouter builds the HTTP router with the standard middleware stack.
func newRouter(cfg *config.Config, handler *api.Handler) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin, "http://localhost:3000", "http://localhost:4000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		Debug:            cfg.IsDevelopment(),
	})
	router.Use(corsMiddleware.Handler)

	handler.Routes(router)

	return router
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config, mapCfg *mapconfig.Config) {
	fmt.Println("============================================")
	fmt.Println("  LED Sectional Server")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  LED driver:  %s\n", cfg.LEDDriver)
	if mapCfg != nil {
		fmt.Printf("  LEDs:        %d\n", mapCfg.AirportCount())
		fmt.Printf("  Interval:    %s\n", mapCfg.Settings.RequestInterval())
	}
	fmt.Println("============================================")
}
