// Package main implements the meridian-router binary: the write
// ingestion front end that validates, partitions, and routes line
// writes into the sharded write buffer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/meridiandb/meridian/internal/app"
	"github.com/meridiandb/meridian/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		dataDir     string
		httpAddr    string
		wbShards    int
		autocreate  bool
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address for the write API")
	flag.IntVar(&wbShards, "write-buffer-shards", 0, "Number of write buffer shards")
	flag.BoolVar(&autocreate, "autocreate-namespaces", false, "Create unknown namespaces on first write")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Meridian Router - Write Ingestion For Time Series\n\n")
		fmt.Fprintf(os.Stderr, "Usage: meridian-router [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  meridian-router --data-dir /data/meridian\n")
		fmt.Fprintf(os.Stderr, "  meridian-router --config /etc/meridian/router.yaml\n")
		fmt.Fprintf(os.Stderr, "  meridian-router --autocreate-namespaces --http-addr :8080\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MERIDIAN_DATA_DIR               Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  MERIDIAN_HTTP_ADDR              HTTP listen address\n")
		fmt.Fprintf(os.Stderr, "  MERIDIAN_CATALOG_TOPIC          Topic name writes are published under\n")
		fmt.Fprintf(os.Stderr, "  MERIDIAN_WRITE_BUFFER_SHARDS    Number of write buffer shards\n")
		fmt.Fprintf(os.Stderr, "  MERIDIAN_AUTOCREATE_NAMESPACES  Create unknown namespaces on first write\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("meridian-router version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// A .env file in the working directory seeds the environment before
	// the MERIDIAN_* overrides are read. Absence is not an error.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	cfg, err := loadConfig(configFile, dataDir, httpAddr, wbShards, autocreate)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	printBanner(cfg)

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
}

// loadConfig merges file, environment, and flag configuration, with
// flags taking the highest priority.
func loadConfig(configFile, dataDir, httpAddr string, wbShards int, autocreate bool) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if wbShards > 0 {
		cfg.WriteBuffer.Shards = wbShards
	}
	if autocreate {
		cfg.Router.AutocreateNamespaces = true
	}

	return cfg, nil
}

// printBanner prints the startup configuration summary.
func printBanner(cfg *config.Config) {
	log.Printf("╔═══════════════════════════════════════════════════════════╗")
	log.Printf("║                   MERIDIAN ROUTER                         ║")
	log.Printf("║          Write Ingestion For Time Series                  ║")
	log.Printf("╚═══════════════════════════════════════════════════════════╝")
	log.Printf("")
	log.Printf("Configuration:")
	log.Printf("  Data Dir:    %s", cfg.DataDir)
	log.Printf("  HTTP:        %s", cfg.HTTP.Addr)
	log.Printf("  Topic:       %s", cfg.Catalog.Topic)
	log.Printf("  Query Pool:  %s", cfg.Catalog.QueryPool)
	log.Printf("  Shards:      %d", cfg.WriteBuffer.Shards)
	log.Printf("  Partitioning: %s", cfg.Router.PartitionTemplate)
	log.Printf("  Autocreate:  %v", cfg.Router.AutocreateNamespaces)
	log.Printf("")
}
