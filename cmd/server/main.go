// Package main is the entry point for the playback engine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/flowshow/playback-engine/internal/config"
	"github.com/flowshow/playback-engine/internal/database"
	"github.com/flowshow/playback-engine/internal/project"
	"github.com/flowshow/playback-engine/internal/services/artnetreceiver"
	"github.com/flowshow/playback-engine/internal/services/blender"
	"github.com/flowshow/playback-engine/internal/services/dmxengine"
	"github.com/flowshow/playback-engine/internal/services/network"
	"github.com/flowshow/playback-engine/internal/services/orchestrator"
	"github.com/flowshow/playback-engine/internal/services/pubsub"
	"github.com/flowshow/playback-engine/internal/services/recording"
	"github.com/flowshow/playback-engine/internal/services/scheduler"
	"github.com/flowshow/playback-engine/internal/transport"
	"github.com/flowshow/playback-engine/internal/video"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	printBanner(cfg)

	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 5,
		MaxOpenConn: 10,
		Debug:       cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	if err := recording.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate recording catalog: %v", err)
	}
	catalog := recording.NewCatalog(db)

	dmxTransport, err := buildTransport(cfg)
	if err != nil {
		log.Fatalf("Failed to build DMX transport: %v", err)
	}
	if err := dmxTransport.Connect(); err != nil {
		log.Printf("Warning: DMX transport connect failed: %v", err)
	}

	engine := dmxengine.New(dmxTransport, cfg.DMXRefreshRateHz)
	if err := engine.Initialize(); err != nil {
		log.Fatalf("Failed to start DMX engine: %v", err)
	}
	defer engine.Shutdown()

	links, err := blender.NewLinkManager(cfg.ConfigDir)
	if err != nil {
		log.Fatalf("Failed to load scene/recording links: %v", err)
	}

	bus := pubsub.New()

	orch := orchestrator.New(
		engine,
		bus,
		func() video.Collaborator { return nil },
		orchestrator.WithRecordingLinks(links, catalog, cfg.RecordingsDir),
		orchestrator.WithAutoplay(cfg.AutoplayEnabled),
	)

	sched := scheduler.New(cfg.ConfigDir, orch.OnSchedulerTrigger)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	if cfg.ArtNetReceiverEnabled {
		receiver := artnetreceiver.New()
		if err := receiver.StartListening(cfg.ArtNetReceiverBindIP, cfg.ArtNetReceiverPort); err != nil {
			log.Printf("Warning: Art-Net receiver failed to start: %v", err)
		} else {
			receiver.SetOnRecordingComplete(func(rec *recording.Recording) {
				path := filepath.Join(cfg.RecordingsDir, rec.Name+recording.Extension)
				if err := recording.Save(rec, path); err != nil {
					log.Printf("recording save: %v", err)
					return
				}
				if _, err := catalog.Upsert(context.Background(), rec, path); err != nil {
					log.Printf("recording catalog upsert: %v", err)
				}
			})
			defer receiver.StopListening()
		}
	}

	if projPath := os.Getenv("PROJECT_FILE"); projPath != "" {
		proj, err := loadProjectFile(projPath)
		if err != nil {
			log.Printf("Warning: failed to load project file %s: %v", projPath, err)
		} else if err := orch.LoadShow(proj, ""); err != nil {
			log.Printf("Warning: failed to load show: %v", err)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")
	orch.Stop()
}

// buildTransport selects a DMX transport implementation from
// cfg.DMXTransportKind.
func buildTransport(cfg *config.Config) (dmxengine.Transport, error) {
	switch cfg.DMXTransportKind {
	case "artnet":
		host := cfg.ArtNetTargetIP
		if host == "auto-broadcast" {
			resolved, err := resolveBroadcastAddress()
			if err != nil {
				return nil, fmt.Errorf("resolve Art-Net broadcast address: %w", err)
			}
			host = resolved
		}
		return transport.NewArtNetTransport(transport.ArtNetConfig{
			Host: host,
			Port: cfg.ArtNetPort,
		}), nil
	case "sacn":
		return transport.NewSacnTransport(transport.SacnConfig{
			Multicast: cfg.SACNMulticastIface == "",
		}), nil
	case "serial-open":
		return transport.NewSerialOpenTransport(transport.SerialOpenConfig{
			Port: cfg.SerialPort,
		}), nil
	case "serial-pro":
		return transport.NewSerialProTransport(transport.SerialProConfig{
			Port: cfg.SerialPort,
			Baud: cfg.SerialBaud,
		}), nil
	default:
		return nil, fmt.Errorf("unknown DMX_TRANSPORT %q", cfg.DMXTransportKind)
	}
}

// resolveBroadcastAddress picks the first non-loopback ethernet or Wi-Fi
// interface's broadcast address, falling back to the global broadcast
// address if none is found.
func resolveBroadcastAddress() (string, error) {
	options, err := network.GetNetworkInterfaces()
	if err != nil {
		return "", err
	}
	for _, opt := range options {
		if opt.InterfaceType == "ethernet" || opt.InterfaceType == "wifi" {
			return opt.Broadcast, nil
		}
	}
	return "255.255.255.255", nil
}

// loadProjectFile reads a project descriptor from a JSON file. Parsing a
// project's original authoring format is an external collaborator's
// responsibility; this is the minimal loader the engine itself needs to
// become runnable against a resolved project.Project value.
func loadProjectFile(path string) (*project.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var proj project.Project
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse project file: %w", err)
	}
	return &proj, nil
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  Playback Engine")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment:   %s\n", cfg.Env)
	fmt.Printf("  DMX transport: %s\n", cfg.DMXTransportKind)
	fmt.Printf("  Database:      %s\n", cfg.DatabaseURL)
	fmt.Printf("  Config dir:    %s\n", cfg.ConfigDir)
	fmt.Println("============================================")
}
