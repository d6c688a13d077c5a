package main

import (
	"context"
	"flag"
	"fmt"

	"apk-signer-go/internal/common"
	"apk-signer-go/internal/config"
	"apk-signer-go/internal/database"

	"go.uber.org/zap"
)

func printConfigSummary(services *common.Services, ctx context.Context) {
	common.PrintHeader("APK SIGNER SETUP", common.DefaultWidth)

	price, err := services.DbService.GetSetting(ctx, database.SettingSignPrice, "unset")
	if err != nil {
		zap.L().Warn("Unable to read sign price", zap.Error(err))
		price = "unknown"
	}
	minDeposit, err := services.DbService.GetSetting(ctx, database.SettingMinDeposit, "unset")
	if err != nil {
		zap.L().Warn("Unable to read minimum deposit", zap.Error(err))
		minDeposit = "unknown"
	}
	accounts, err := services.DbService.TotalAccounts(ctx)
	if err != nil {
		zap.L().Warn("Unable to count accounts", zap.Error(err))
	}

	fmt.Printf("Sign price:        %s TRX\n", price)
	fmt.Printf("Minimum deposit:   %s TRX\n", minDeposit)
	fmt.Printf("Known accounts:    %d\n", accounts)
	common.PrintFooter("Database ready", common.DefaultWidth)
}

func runInit(ctx context.Context, services *common.Services) {
	zap.L().Info("Initializing database")

	// Schema and default settings are created on service startup; this
	// verifies the result and reports it.
	if err := services.Ledger.HealthCheck(ctx); err != nil {
		zap.L().Fatal("Database verification failed", zap.Error(err))
	}

	printConfigSummary(services, ctx)
	zap.L().Info("Initialization complete")
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	initFlag := flag.Bool("init", false, "Initialize the database")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *initFlag {
		runInit(ctx, services)
		return
	}

	printConfigSummary(services, ctx)
}
