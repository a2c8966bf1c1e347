package main

import (
	"context"
	"fmt"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/config"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/draft"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/events"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/http"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/interaction"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/lifecycle"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/metrics"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/quota"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/s3client"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/sequence"
	"github.com/TicketsBot/common/observability"
	"github.com/getsentry/sentry-go"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"time"
)

func main() {
	conf := config.Parse[config.Config]()

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:   conf.SentryDsn,
		Debug: !conf.ProductionMode,
	}); err != nil {
		if conf.ProductionMode {
			panic(err)
		} else {
			fmt.Printf("Failed to initialise sentry: %v\n", err)
		}
	}

	var logger *zap.Logger
	var err error
	if conf.ProductionMode {
		logger, err = zap.NewProduction(
			zap.AddCaller(),
			zap.AddStacktrace(zap.ErrorLevel),
			zap.WrapCore(observability.ZapSentryAdapter(observability.EnvironmentProduction)),
		)
	} else {
		logger, err = zap.NewDevelopment(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	}

	if err != nil {
		panic(err)
	}

	ctx := context.Background()

	store := connectStore(ctx, logger, conf)
	drafts := connectDrafts(ctx, logger, conf)

	var publisher events.Publisher = events.NoopPublisher{}
	if len(conf.KafkaBrokers) > 0 {
		logger.Info("Publishing ticket events to kafka", zap.Strings("brokers", conf.KafkaBrokers), zap.String("topic", conf.KafkaTopic))
		producer := events.NewKafkaProducer(conf.KafkaBrokers, conf.KafkaTopic)
		defer producer.Close()
		publisher = producer
	}

	archive := connectArchive(logger, conf)

	m := metrics.New()
	ledger := quota.NewLedger(store, conf.QuotaLimits)

	options := lifecycle.Options{
		Logger:    logger,
		Store:     store,
		Drafts:    drafts,
		Ledger:    ledger,
		Sequences: sequence.NewService(store),
		Policy: lifecycle.Policy{
			AdminRoleIds: conf.AdminRoleIds,
			HelperRoles:  conf.HelperRoles,
		},
		Publisher:    publisher,
		Metrics:      m,
		MinMemberAge: conf.MinMemberAge,
	}

	// A nil *S3Client must not end up inside the interface.
	if archive != nil {
		options.Archiver = archive
	}

	coordinator := lifecycle.New(options)

	services := http.Services{
		Coordinator: coordinator,
		Dispatcher:  interaction.NewDispatcher(logger, drafts, coordinator),
		Drafts:      drafts,
		Ledger:      ledger,
		Metrics:     m,
	}

	if archive != nil {
		services.Archive = archive
	}

	logger.Debug("Starting HTTP server...", zap.String("address", conf.Address))

	server := http.NewServer(logger, conf, services)
	server.RegisterRoutes()
	server.Start()
}

func connectStore(ctx context.Context, logger *zap.Logger, conf config.Config) repository.Store {
	if conf.DatabaseUri == "" {
		if conf.ProductionMode {
			logger.Fatal("DATABASE_URI must be set in production")
		}

		logger.Warn("No database configured, keeping tickets in memory")
		return repository.NewMemoryStore()
	}

	logger.Info("Connecting to database...")
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := repository.ConnectPostgres(ctx, conf.DatabaseUri)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	logger.Info("Connected.")
	return store
}

func connectDrafts(ctx context.Context, logger *zap.Logger, conf config.Config) draft.Store {
	opts := []draft.Option{draft.WithSubmissionTTL(conf.SubmissionTTL)}

	if conf.RedisAddr == "" {
		logger.Info("No redis configured, keeping drafts in memory", zap.Duration("ttl", conf.DraftTTL))

		store := draft.NewMemoryStore(logger, conf.DraftTTL, opts...)
		go store.StartReaper(ctx, time.Minute)
		return store
	}

	client := redis.NewClient(&redis.Options{
		Addr:     conf.RedisAddr,
		Password: conf.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}

	logger.Info("Connected to redis", zap.String("address", conf.RedisAddr))
	return draft.NewRedisStore(client, conf.DraftTTL, opts...)
}

func connectArchive(logger *zap.Logger, conf config.Config) *s3client.S3Client {
	if conf.S3Endpoint == "" || conf.S3Bucket == "" {
		logger.Info("No object storage configured, closed tickets will not be archived")
		return nil
	}

	m, err := minio.New(conf.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.S3AccessKey, conf.S3SecretKey, ""),
		Secure: true,
	})
	if err != nil {
		logger.Fatal("Failed to create S3 client", zap.Error(err))
	}

	client, err := s3client.NewS3Client(m, conf.S3Bucket)
	if err != nil {
		logger.Fatal("Failed to create ticket archive", zap.Error(err))
	}

	return client
}
