// Package app provides the application lifecycle for the Meridian router.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/meridiandb/meridian/internal/api/http"
	"github.com/meridiandb/meridian/internal/catalog"
	"github.com/meridiandb/meridian/internal/config"
	"github.com/meridiandb/meridian/internal/namespace"
	"github.com/meridiandb/meridian/internal/router"
	"github.com/meridiandb/meridian/internal/sequencer"
	"github.com/meridiandb/meridian/internal/server"
	"github.com/meridiandb/meridian/internal/sharder"
	"github.com/meridiandb/meridian/internal/writebuffer"
	"github.com/meridiandb/meridian/pkg/types"
)

// App owns every long-lived resource of the router process and starts
// them in dependency order: catalog, write buffer, sequencers, pipeline,
// HTTP front end. Teardown runs in reverse through the shutdown manager.
type App struct {
	cfg *config.Config

	registry *prometheus.Registry
	catalog  *catalog.SQLiteCatalog
	buffer   *writebuffer.FileBuffer
	pipeline router.Pipeline
	shutdown *server.ShutdownManager

	httpServer *http.Server

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// New creates an App with the given configuration.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	return &App{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
	}, nil
}

// Start initializes all resources and starts serving writes.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	a.shutdown = server.NewShutdownManager(server.DefaultShutdownConfig())

	if err := a.initPipeline(ctx); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	if err := a.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	log.Printf("Meridian router started on %s", a.cfg.HTTP.Addr)
	return nil
}

// initPipeline builds the catalog, write buffer, sequencers, sharder,
// namespace cache, and the assembled handler chain.
func (a *App) initPipeline(ctx context.Context) error {
	cat, err := catalog.NewSQLiteCatalog(a.cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	a.catalog = cat
	a.shutdown.RegisterCloser(cat)
	log.Printf("Catalog opened: %s", a.cfg.Catalog.Path)

	// The topic and query pool are resolved once at startup; their IDs
	// seed namespace autocreation for every subsequent write.
	topic, err := cat.CreateOrGetTopic(ctx, a.cfg.Catalog.Topic)
	if err != nil {
		return fmt.Errorf("failed to resolve topic %q: %w", a.cfg.Catalog.Topic, err)
	}
	pool, err := cat.CreateOrGetQueryPool(ctx, a.cfg.Catalog.QueryPool)
	if err != nil {
		return fmt.Errorf("failed to resolve query pool %q: %w", a.cfg.Catalog.QueryPool, err)
	}
	log.Printf("Catalog bootstrap complete: topic=%s (id=%d), query_pool=%s (id=%d)",
		topic.Name, topic.ID, pool.Name, pool.ID)

	buffer, err := writebuffer.NewFileBuffer(a.cfg.WriteBuffer.Dir, a.cfg.WriteBuffer.Shards)
	if err != nil {
		return fmt.Errorf("failed to open write buffer: %w", err)
	}
	a.buffer = buffer
	a.shutdown.RegisterCloser(buffer)
	log.Printf("Write buffer opened: %s (%d shards)", a.cfg.WriteBuffer.Dir, a.cfg.WriteBuffer.Shards)

	// One sequencer per shard, built from the buffer's canonical
	// ordered inventory so every router process agrees on slot order.
	shardIDs := buffer.ShardIDs()
	sequencers := make([]*sequencer.Sequencer, 0, len(shardIDs))
	for _, id := range shardIDs {
		sequencers = append(sequencers, sequencer.New(id, buffer, a.registry))
	}
	jump, err := sharder.New(sequencers)
	if err != nil {
		return fmt.Errorf("failed to build sharder: %w", err)
	}

	cache := namespace.NewInstrumentedCache(
		namespace.NewShardedCache(a.cfg.Router.CacheShards), a.registry)

	template, err := types.NewPartitionTemplate(a.cfg.Router.PartitionTemplate)
	if err != nil {
		return fmt.Errorf("invalid partition template: %w", err)
	}

	routerCfg := router.Config{
		Catalog:  cat,
		Cache:    cache,
		Sharder:  jump,
		Template: template,
		Metrics:  a.registry,
	}
	if a.cfg.Router.AutocreateNamespaces {
		routerCfg.Autocreate = &router.AutocreateConfig{
			TopicID:   topic.ID,
			PoolID:    pool.ID,
			Retention: a.cfg.Router.AutocreateRetention,
		}
		log.Printf("Namespace autocreation enabled: retention=%s", a.cfg.Router.AutocreateRetention)
	}
	a.pipeline = router.New(routerCfg)

	return nil
}

// startHTTPServer mounts the write endpoint, health check, and metrics
// endpoint, and begins serving.
func (a *App) startHTTPServer() error {
	writeHandler := httpapi.NewWriteHandler(a.pipeline, a.cfg.HTTP.MaxBodyBytes)

	middleware := httpapi.ChainMiddleware(
		server.ShutdownMiddleware(a.shutdown),
		httpapi.RecoveryMiddleware,
		httpapi.RequestIDMiddleware,
		httpapi.ContentTypeMiddleware,
	)

	mux := http.NewServeMux()
	mux.Handle("/api/v2/write/", middleware(writeHandler))
	mux.HandleFunc("/healthz", httpapi.HealthHandler("meridian-router"))
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	a.httpServer = &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}
	a.shutdown.RegisterCloser(server.CloserFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	}))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Run starts the app and blocks until a termination signal arrives,
// then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	err := a.shutdown.ListenForSignals(ctx)
	a.wg.Wait()

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()

	log.Printf("Meridian router stopped")
	return err
}

// Stop shuts the app down without waiting for a signal.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	err := a.shutdown.Shutdown(ctx, "stop requested")
	a.wg.Wait()
	return err
}

// Pipeline exposes the assembled write pipeline. Nil until Start.
func (a *App) Pipeline() router.Pipeline {
	return a.pipeline
}
