package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/lk2023060901/market-research-backend/internal/conf"
	"github.com/lk2023060901/market-research-backend/internal/data"
	"github.com/lk2023060901/market-research-backend/internal/extractor"
	"github.com/lk2023060901/market-research-backend/internal/llm"
	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/pkg/metrics"
	"github.com/lk2023060901/market-research-backend/internal/pkg/sse"
	"github.com/lk2023060901/market-research-backend/internal/pkg/workerpool"
	"github.com/lk2023060901/market-research-backend/internal/research/biz"
	researchdata "github.com/lk2023060901/market-research-backend/internal/research/data"
	"github.com/lk2023060901/market-research-backend/internal/research/service"
	"github.com/lk2023060901/market-research-backend/internal/server"
	"github.com/lk2023060901/market-research-backend/internal/websearch/manager"
	"github.com/lk2023060901/market-research-backend/internal/websearch/provider"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()
	logger.SetGlobal(log)

	log.Info("config loaded successfully", zap.String("path", *configFile))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(registry)

	// Initialize data layer
	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	pool, err := workerpool.New(&config.Pool, log)
	if err != nil {
		log.Fatal("failed to create worker pool", zap.Error(err))
	}
	defer func() { _ = pool.Close() }()

	// Search
	providerFactory := provider.NewFactory()
	log.Info("search adapters available", zap.Any("providers", providerFactory.ListProviders()))
	searchManager, err := manager.NewFromConfigs(
		&config.Search.Config,
		providerFactory,
		config.Search.Providers,
		[]manager.Option{
			manager.WithLogger(log),
			manager.WithMetrics(collector),
			manager.WithPool(pool),
		},
		provider.WithLogger(log),
		provider.WithMetrics(collector),
	)
	if err != nil {
		log.Fatal("failed to create search manager", zap.Error(err))
	}
	defer func() { _ = searchManager.Close() }()

	// Extraction
	extractorOpts := []extractor.Option{
		extractor.WithLogger(log),
		extractor.WithMetrics(collector),
	}
	if d.RedisClient != nil {
		extractorOpts = append(extractorOpts, extractor.WithCache(extractor.NewRedisCache(d.RedisClient)))
	}
	contentExtractor := extractor.New(&config.Extractor, extractorOpts...)

	// Research
	progressHub := sse.NewHub()
	researchOpts := []biz.Option{
		biz.WithLogger(log),
		biz.WithProgress(progressHub),
		biz.WithTokenCounter(llm.NewTokenCounter(config.LLM.Encoding, log)),
	}
	if generator, err := llm.NewOpenAIGenerator(&config.LLM, log); err != nil {
		log.Warn("market analysis disabled", zap.Error(err))
	} else {
		researchOpts = append(researchOpts, biz.WithGenerator(generator))
	}
	checks := make(map[string]server.HealthCheck)
	if d.DB != nil {
		researchOpts = append(researchOpts, biz.WithSessionRepo(researchdata.NewSessionRepo(d.DB)))
		checks["database"] = d.DB.HealthCheck
	}
	if d.MinIOClient != nil {
		researchOpts = append(researchOpts, biz.WithArchive(researchdata.NewArchive(d.MinIOClient)))
		checks["minio"] = d.MinIOClient.Ping
	}
	if d.RedisClient != nil {
		checks["redis"] = d.RedisClient.Ping
	}
	collectorUseCase := biz.NewCollectorUseCase(&config.Research, searchManager, contentExtractor, researchOpts...)

	// Initialize services
	services := server.Services{
		Search:   service.NewSearchService(searchManager, contentExtractor, log),
		Research: service.NewResearchService(collectorUseCase, log),
		Progress: service.NewProgressService(progressHub, config.Server.EventHeartbeat),
	}
	httpServer := server.NewHTTPServer(config, log, services, registry, checks)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
