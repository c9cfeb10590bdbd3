// Package main runs the crafting profit dashboard: it keeps the ranking of
// craftable recipes current and serves it over HTTP and WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ramonehamilton/crafting-profit/internal/app"
	"github.com/ramonehamilton/crafting-profit/internal/config"
	"github.com/ramonehamilton/crafting-profit/internal/storage"
	"github.com/ramonehamilton/crafting-profit/internal/version"
)

var (
	configPath = flag.String("config", "", "Config file path (default: ~/.crafting-profit/config.toml)")
	envFile    = flag.String("env", ".env", "Environment file loaded before the config")
	port       = flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath     = flag.String("db-path", "", "Database path (overrides config)")
	backup     = flag.Bool("backup", false, "Back up the database next to it and exit")
	keep       = flag.Int("keep-backups", 10, "Backups kept by -backup, 0 for all")
)

func main() {
	flag.Parse()

	fmt.Printf("Crafting Profit %s\n", version.GetVersion())
	fmt.Println("====================")
	fmt.Println()

	if err := config.LoadEnv(*envFile); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	path := *configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			log.Fatalf("Failed to locate config: %v", err)
		}
		path = p
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Setup database path
	finalDBPath, err := cfg.DatabasePath()
	if err != nil {
		log.Fatalf("Failed to resolve database path: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(finalDBPath), 0o755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}
	fmt.Printf("Config:   %s\n", path)
	fmt.Printf("Database: %s\n", finalDBPath)

	db, err := storage.Open(storage.DefaultConfig(finalDBPath))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	storageService := storage.NewService(db, cfg.Database.Retention)
	defer func() {
		if err := storageService.Close(); err != nil {
			log.Printf("Error closing storage service: %v", err)
		}
	}()

	if *backup {
		info, err := storageService.Backup(context.Background(), filepath.Join(filepath.Dir(finalDBPath), "backups"), *keep)
		if err != nil {
			log.Fatalf("Backup failed: %v", err)
		}
		fmt.Printf("Backup written to %s (%d bytes, sha256 %s)\n", info.Path, info.Size, info.Checksum)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, storageService)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	watcher := config.NewWatcher(path, func(c *config.Config) {
		if err := application.ApplyConfig(ctx, c); err != nil {
			log.Printf("[Config] Failed to apply reloaded config: %v", err)
		}
	})
	go func() {
		if err := watcher.Run(ctx); err != nil {
			log.Printf("[Config] Watcher stopped: %v", err)
		}
	}()

	fmt.Println()
	fmt.Printf("Dashboard running at http://localhost:%d\n", application.Port())
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	<-ctx.Done()

	fmt.Println()
	fmt.Println("Shutting down...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	fmt.Println("Server stopped.")
}
