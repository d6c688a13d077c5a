/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"

	"apk-signer-go/internal/common"
	"apk-signer-go/internal/config"
	"apk-signer-go/internal/models"
	"apk-signer-go/internal/store"

	"go.uber.org/zap"
)

type depositRequest struct {
	userID   int64
	username string
	txID     string
}

func parseAndValidateFlags() (*depositRequest, error) {
	userID := flag.Int64("user", 0, "User id claiming the deposit")
	username := flag.String("username", "", "Optional username recorded with the account")
	txID := flag.String("tx", "", "TRON transaction id (64 hex characters)")
	flag.Parse()

	if *userID <= 0 {
		return nil, fmt.Errorf("-user is required and must be positive")
	}
	if *txID == "" {
		return nil, fmt.Errorf("-tx is required")
	}

	return &depositRequest{
		userID:   *userID,
		username: *username,
		txID:     *txID,
	}, nil
}

func printDepositResult(req *depositRequest, result *models.DepositResult) {
	if result.Success {
		common.PrintHeader("DEPOSIT CREDITED", common.DefaultWidth)
		fmt.Printf("User:           %d\n", req.userID)
		fmt.Printf("Transaction:    %s\n", req.txID)
		fmt.Printf("Amount:         %s TRX\n", result.Amount.String())
		fmt.Printf("New Balance:    %s TRX\n", result.NewBalance.String())
		common.PrintFooter("✅ Deposit verified and credited", common.DefaultWidth)
		return
	}

	common.PrintHeader("DEPOSIT REJECTED", common.DefaultWidth)
	fmt.Printf("User:           %d\n", req.userID)
	fmt.Printf("Transaction:    %s\n", req.txID)
	fmt.Printf("Reason:         %s\n", result.Error)
	if result.Retryable {
		common.PrintFooter("⏳ Temporary failure - try again shortly", common.DefaultWidth)
	} else {
		common.PrintFooter("❌ Claim rejected", common.DefaultWidth)
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	zap.L().Info("Starting deposit claim",
		zap.Int64("user_id", req.userID),
		zap.String("tx_id", req.txID))

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if err := services.Ledger.RegisterInteraction(ctx, store.UpsertAccountParams{
		UserID:   req.userID,
		Username: req.username,
	}); err != nil {
		zap.L().Fatal("Failed to register account", zap.Error(err))
	}

	result, err := services.Ledger.ProcessDeposit(ctx, req.userID, req.txID)
	if err != nil {
		zap.L().Fatal("Deposit processing failed", zap.Error(err))
	}

	printDepositResult(req, result)
}
