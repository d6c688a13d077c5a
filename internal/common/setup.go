package common

import (
	"context"
	"log"
	"strings"

	"apk-signer-go/internal/api"
	"apk-signer-go/internal/database"
	"apk-signer-go/internal/models"
	"apk-signer-go/internal/payment"
	"apk-signer-go/internal/signer"
	"apk-signer-go/internal/tron"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService     *database.Service
	TronClient    *tron.Client
	SignerService *signer.Service
	Ledger        *api.LedgerService
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	tronCfg := cfg.Tron
	if tronCfg.ProvidersFile != "" {
		zap.L().Info("Loading chain provider configuration",
			zap.String("file", tronCfg.ProvidersFile))
		if err := ApplyProviderConfig(&tronCfg, tronCfg.ProvidersFile); err != nil {
			dbService.Close()
			return nil, err
		}
	}

	tronClient, err := tron.NewClient(tronCfg)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	signerService, err := signer.NewService(cfg.Signer)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	verifier := payment.NewVerifier(tronClient, dbService)
	ledger := api.NewLedgerService(dbService, verifier, signerService, cfg.Payment)

	return &Services{
		DbService:     dbService,
		TronClient:    tronClient,
		SignerService: signerService,
		Ledger:        ledger,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service without the
// chain client. Useful for read-only operations like querying balances.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
