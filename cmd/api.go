package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/shopfloor/services/report/config"
	"example.com/shopfloor/services/report/internal/api"
	"example.com/shopfloor/services/report/internal/cache"
	"example.com/shopfloor/services/report/internal/database"
	"example.com/shopfloor/services/report/internal/metrics"
	"example.com/shopfloor/services/report/internal/models"
	"example.com/shopfloor/services/report/internal/search"
	"example.com/shopfloor/services/report/internal/services"
	"example.com/shopfloor/services/report/internal/tracing"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server that ingests machine events and serves timeline reports`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	configureLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	conns, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer conns.Close()

	if err := models.SetupModels(conns.Write); err != nil {
		return err
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer, _ = tracing.NewTracer(config.TracingConfig{})
	}
	defer tracer.Close()

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without summary search")
	}

	metricsCollector := metrics.NewMetrics()
	conns.Instrument(metricsCollector)
	metricsCollector.SetHealth("database", true)
	if redisCache.Enabled() {
		metricsCollector.SetHealth("redis", true)
	}
	if elasticClient != nil {
		metricsCollector.SetHealth("elasticsearch", true)
	}

	reportService := services.NewReportService(conns.Write, conns.Read, redisCache, elasticClient, nil, metricsCollector, tracer, cfg.Report)
	ingestService := services.NewIngestService(conns.Write, conns.Read, metricsCollector, tracer, cfg.Report.BatchLimit)

	server := api.NewServer(cfg, reportService, ingestService, metricsCollector, tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("API server stopped")
	return nil
}

// configureLogging applies the configured log level and format on top of
// the defaults main set up
func configureLogging(cfg config.Config) {
	if cfg.Environment == "development" || cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}
}
