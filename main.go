package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource/all"
	"github.com/ekaya-inc/ekaya-datasource/pkg/config"
	"github.com/ekaya-inc/ekaya-datasource/pkg/crypto"
	"github.com/ekaya-inc/ekaya-datasource/pkg/database"
	"github.com/ekaya-inc/ekaya-datasource/pkg/handlers"
	"github.com/ekaya-inc/ekaya-datasource/pkg/logging"
	"github.com/ekaya-inc/ekaya-datasource/pkg/permission"
	"github.com/ekaya-inc/ekaya-datasource/pkg/repositories"
	"github.com/ekaya-inc/ekaya-datasource/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())),
		zap.Bool("encryption_enabled", cfg.Datasource.EncryptionEnabled),
		zap.String("encryption_codec", cfg.Datasource.EncryptionCodec),
		zap.Bool("kerberos_enabled", cfg.Datasource.KerberosEnabled))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.MigrateURL(cfg.Database.URL(), logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.String("error", logging.SanitizeError(err)))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	codec, err := newSecretCodec(cfg)
	if err != nil {
		logger.Fatal("Failed to create secret codec", zap.Error(err))
	}

	repo := repositories.NewDatasourceRepository(db)
	adapterFactory := datasource.NewDatasourceAdapterFactory(codec, cfg.Datasource.EncryptionEnabled)
	tester := datasource.NewConnectivityTester(adapterFactory, cfg.Datasource.ProbeTimeout(), logger)
	checker := permission.NewChecker(repo, cfg.Datasource.GeneralUserOperations, logger)

	datasourceService := services.NewDatasourceService(repo, checker, tester, adapterFactory,
		services.DatasourceServiceConfig{
			EncryptionEnabled: cfg.Datasource.EncryptionEnabled,
			Codec:             codec,
			KerberosEnabled:   cfg.Datasource.KerberosEnabled,
			MaxNameLength:     cfg.Datasource.MaxNameLength,
			MaxNoteLength:     cfg.Datasource.MaxNoteLength,
		}, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewDatasourceTypesHandler(datasourceService, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting ekaya-datasource",
		zap.String("addr", server.Addr),
		zap.Bool("tls", cfg.TLSCertPath != ""))

	if cfg.TLSCertPath != "" {
		err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// newSecretCodec builds the password codec selected by datasource.encryption_codec.
func newSecretCodec(cfg *config.Config) (crypto.SecretCodec, error) {
	opts := crypto.CodecOptions{
		Salt:         cfg.Datasource.EncryptionSalt,
		Key:          cfg.Datasource.EncryptionKey,
		VaultMount:   cfg.Vault.Mount,
		VaultKey:     cfg.Vault.Key,
		VaultContext: cfg.Vault.Context,
	}

	if cfg.Datasource.EncryptionCodec == crypto.CodecVault {
		vaultCfg := vault.DefaultConfig()
		if cfg.Vault.Address != "" {
			vaultCfg.Address = cfg.Vault.Address
		}
		client, err := vault.NewClient(vaultCfg)
		if err != nil {
			return nil, err
		}
		if cfg.Vault.Token != "" {
			client.SetToken(cfg.Vault.Token)
		}
		opts.Vault = client
	}

	return crypto.NewCodec(cfg.Datasource.EncryptionCodec, opts)
}
