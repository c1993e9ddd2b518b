package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/localvoice/whisperd/internal/capture"
	"github.com/localvoice/whisperd/internal/config"
	"github.com/localvoice/whisperd/internal/events"
	"github.com/localvoice/whisperd/internal/hotkey"
	"github.com/localvoice/whisperd/internal/inject"
	"github.com/localvoice/whisperd/internal/model"
	"github.com/localvoice/whisperd/internal/models"
	"github.com/localvoice/whisperd/internal/recorder"
	"github.com/localvoice/whisperd/internal/server"
	"github.com/localvoice/whisperd/internal/session"
	"github.com/localvoice/whisperd/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/whisperd/config.yaml)")
	download := flag.String("download", "", "download the named model and exit")
	listModels := flag.Bool("models", false, "list catalog models and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}
	if cfg.LogLevel == "debug" {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	bus := events.NewBus()
	holder := model.NewHolder()
	manager := models.NewManager(cfg.Model.Dir, holder, bus)

	if *listModels {
		printModelStatus(manager)
		return
	}
	if *download != "" {
		path, err := manager.DownloadAndLoad(*download)
		if err != nil {
			log.Fatalf("download: %v", err)
		}
		holder.Close()
		log.Printf("Model ready at %s (load verified)", path)
		return
	}

	printBanner(cfg)

	if path := pickModel(cfg, manager); path != "" {
		log.Println("Loading whisper model...")
		loadStart := time.Now()
		if err := holder.Load(path); err != nil {
			log.Fatalf("Failed to load whisper model: %v\n\nCheck that the model file exists at: %s\nRun 'whisperd -download base.en' to fetch one.", err, path)
		}
		log.Printf("Model loaded in %s", time.Since(loadStart).Round(time.Millisecond))
	} else {
		log.Println("No model available; transcription disabled until one is downloaded")
	}

	state := session.New(cfg.Audio.SampleRate)

	srv := server.New(cfg.Addr, holder, transcribe.NewService(), bus)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Fatalf("server: %v", err)
		}
	}()

	controller, err := capture.NewController(state, bus, capture.Config{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
	}, cfg.Audio.Device)
	if err != nil {
		log.Fatalf("Failed to initialize audio capture: %v\n\nEnsure microphone access is granted in your system privacy settings.", err)
	}
	log.Println("Audio capture ready")

	injector := inject.New(cfg.Inject.AutoPaste)
	client := recorder.NewClient(
		"http://"+cfg.Addr+"/transcribe",
		cfg.RecordingsDir,
		cfg.Transcribe.Language,
		cfg.Transcribe.Prompt,
	)
	rec := recorder.New(state, bus, holder, client, injector)

	listener := hotkey.NewListener(cfg.Hotkey.Keys, cfg.Hotkey.Mode, rec)
	go listener.Run()
	log.Printf("Hotkey listener ready (%s, mode: %s)", strings.Join(cfg.Hotkey.Keys, "+"), cfg.Hotkey.Mode)

	log.Println("Ready! Press", strings.Join(cfg.Hotkey.Keys, "+"), "to dictate. Ctrl+C to quit.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received %s, shutting down...", sig)

	// Finish any in-progress recording before tearing down.
	rec.Release()
	rec.Wait()
	listener.Stop()

	if err := controller.Close(); err != nil {
		log.Printf("capture shutdown: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	holder.Close()

	log.Println("Goodbye!")
	// Exit directly to avoid gohook's C cleanup crash. The OS reclaims
	// the event hook on process exit.
	os.Exit(0)
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// pickModel returns the configured model path, or the first downloaded
// catalog model when none is configured.
func pickModel(cfg *config.Config, manager *models.Manager) string {
	if cfg.Model.Path != "" {
		return cfg.Model.Path
	}
	for _, st := range manager.Status() {
		if st.Downloaded {
			log.Printf("No model configured, using downloaded %s", st.Name)
			return st.Path
		}
	}
	return ""
}

// printModelStatus lists the catalog with on-disk state.
func printModelStatus(manager *models.Manager) {
	for _, st := range manager.Status() {
		mark := " "
		if st.Downloaded {
			mark = "*"
		}
		fmt.Printf("  [%s] %-22s %5d MB  %s\n", mark, st.Name, st.SizeMB, st.Path)
	}
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== whisperd ===")
	fmt.Printf("  Server:  http://%s\n", cfg.Addr)
	fmt.Printf("  Model:   %s\n", orUnset(cfg.Model.Path))
	fmt.Printf("  Models:  %s\n", cfg.Model.Dir)
	fmt.Printf("  Hotkey:  %s (%s mode)\n", strings.Join(cfg.Hotkey.Keys, "+"), cfg.Hotkey.Mode)
	fmt.Printf("  Audio:   %dHz, %dch, device=%s\n", cfg.Audio.SampleRate, cfg.Audio.Channels, orUnset(cfg.Audio.Device))
	fmt.Printf("  Paste:   auto=%t\n", cfg.Inject.AutoPaste)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("================")
}

func orUnset(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}
