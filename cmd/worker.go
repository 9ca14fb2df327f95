package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/shopfloor/services/report/config"
	"example.com/shopfloor/services/report/internal/cache"
	"example.com/shopfloor/services/report/internal/database"
	"example.com/shopfloor/services/report/internal/messaging"
	"example.com/shopfloor/services/report/internal/metrics"
	"example.com/shopfloor/services/report/internal/models"
	"example.com/shopfloor/services/report/internal/search"
	"example.com/shopfloor/services/report/internal/services"
	"example.com/shopfloor/services/report/internal/tracing"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that consumes machine events from Azure Service Bus and precomputes daily report snapshots`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	configureLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

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
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without summary indexing")
	}

	notifier, err := messaging.NewServiceBusClient(cfg.Azure, "report-worker")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize snapshot notifier, continuing without announcements")
	} else {
		defer notifier.Close()
	}

	metricsCollector := metrics.NewMetrics()
	conns.Instrument(metricsCollector)

	reportService := services.NewReportService(conns.Write, conns.Read, redisCache, elasticClient, notifier, metricsCollector, tracer, cfg.Report)
	ingestService := services.NewIngestService(conns.Write, conns.Read, metricsCollector, tracer, cfg.Report.BatchLimit)

	azureBus, err := messaging.NewAzureServiceBus(cfg.Azure, tracer)
	if err != nil {
		return err
	}
	defer azureBus.Close()

	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting Service Bus event processor")
		return azureBus.ProcessMessages(ctx, ingestService.ProcessEventMessage)
	})

	g.Go(func() error {
		log.Info().Dur("every", cfg.Report.SnapshotEvery).Msg("Starting report snapshot scheduler")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Report.SnapshotEvery),
			gocron.NewTask(func() {
				log.Info().Msg("Running report snapshot reconciliation")
				if err := reportService.ReconcileSnapshots(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to reconcile report snapshots")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker stopped")
	return nil
}
