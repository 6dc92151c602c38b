package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VaishnaviDS/Intern-dashboard-server/internal/config"
	"github.com/VaishnaviDS/Intern-dashboard-server/internal/database"
	"github.com/VaishnaviDS/Intern-dashboard-server/internal/donors"
	"github.com/VaishnaviDS/Intern-dashboard-server/internal/logging"
	"github.com/VaishnaviDS/Intern-dashboard-server/internal/server"
	"github.com/VaishnaviDS/Intern-dashboard-server/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "donor-api",
		Short: "Donation tracking API",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to dotenv file loaded before reading the environment")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("base-path", defaults.GetString("http.base_path"), "Route prefix of the donor API")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Donor store (sqlite, mongo)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("mongo-database", defaults.GetString("database.mongo_database"), "MongoDB database name")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log encoding (json, console)")
	cmd.PersistentFlags().String("otlp-endpoint", "", "OTLP/HTTP trace endpoint, e.g. http://localhost:4318")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.base_path", "base-path")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.mongo_database", "mongo-database")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "tracing.otlp_endpoint", "otlp-endpoint")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

type donorStore struct {
	store donors.Store
	close func(ctx context.Context) error
}

func openStore(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (donorStore, error) {
	switch appConfig.DatabaseDriver {
	case config.DriverMongo:
		client, mongoDatabase, err := database.OpenMongo(ctx, appConfig.MongoURI, appConfig.MongoDatabase, logger)
		if err != nil {
			return donorStore{}, err
		}
		store, err := donors.NewMongoStore(mongoDatabase)
		if err != nil {
			_ = client.Disconnect(ctx)
			return donorStore{}, err
		}
		return donorStore{store: store, close: client.Disconnect}, nil
	default:
		db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
		if err != nil {
			return donorStore{}, err
		}
		store, err := donors.NewSQLStore(db)
		if err != nil {
			_ = database.CloseSQLite(db)
			return donorStore{}, err
		}
		return donorStore{store: store, close: func(context.Context) error {
			return database.CloseSQLite(db)
		}}, nil
	}
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	gin.SetMode(gin.ReleaseMode)

	tracerProvider, shutdownTracing, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Endpoint:    appConfig.OTLPEndpoint,
		ServiceName: appConfig.ServiceName,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("trace shutdown failed", zap.Error(err))
		}
	}()

	store, err := openStore(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.close(closeCtx); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}()

	dispatcher := server.NewRealtimeDispatcher()
	metrics := telemetry.NewMetrics()

	donationService, err := donors.NewService(donors.ServiceConfig{
		Store:            store.store,
		ReferralAttempts: appConfig.ReferralAttempts,
		Clock:            time.Now,
		IDProvider:       donors.NewUUIDProvider(),
		Logger:           logger,
		TracerProvider:   tracerProvider,
		Observers:        []donors.DonationObserver{dispatcher, metrics},
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		DonationService: donationService,
		Realtime:        dispatcher,
		Logger:          logger,
		BasePath:        appConfig.BasePath,
		CORSOrigins:     appConfig.CORSOrigins,
		RateLimit: server.RateLimit{
			PerSecond: appConfig.RateLimitPerSecond,
			Burst:     appConfig.RateLimitBurst,
		},
		Metrics:         metrics.Handler(),
		RequestObserver: metrics,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer.RegisterOnShutdown(dispatcher.Close)

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("base_path", appConfig.BasePath),
			zap.String("database_driver", appConfig.DatabaseDriver))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
