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
	"apk-signer-go/internal/database"
	"apk-signer-go/internal/models"

	"go.uber.org/zap"
)

func formatExternalRef(ref string) string {
	if ref == "" {
		return "none"
	}
	if len(ref) > 8 {
		return ref[:8] + "..."
	}
	return ref
}

func printTransaction(record models.TransactionRecord, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	fmt.Printf("%s %-12s %15s TRX (ref: %s, %s)\n",
		symbol,
		record.Kind,
		record.Amount.String(),
		formatExternalRef(record.ExternalRef),
		record.CreatedAt.Format("2006-01-02 15:04:05"))
	if record.Description != "" {
		fmt.Printf("%s    %s\n", common.BoxDetailPrefix(isLast), record.Description)
	}
}

func printAccountSummary(summary *models.AccountSummary) {
	account := summary.Account

	common.PrintHeader(fmt.Sprintf("ACCOUNT %d", account.UserID), common.DefaultWidth)
	if account.Username != "" {
		fmt.Printf("Username:      @%s\n", account.Username)
	}
	fmt.Printf("Balance:       %s TRX\n", account.Balance.String())
	fmt.Printf("Blocked:       %t\n", account.Blocked)
	fmt.Printf("Joined:        %s\n", account.JoinedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Last activity: %s\n", account.LastActivity.Format("2006-01-02 15:04:05"))

	if len(summary.Transactions) > 0 {
		common.PrintBoxSeparator(common.DefaultWidth)
		fmt.Println("Recent transactions:")
		for i, record := range summary.Transactions {
			printTransaction(record, i == len(summary.Transactions)-1)
		}
	}
	common.PrintSeparator("=", common.DefaultWidth)
}

func printTotals(ctx context.Context, db *database.Service) {
	accounts, err := db.TotalAccounts(ctx)
	if err != nil {
		zap.L().Fatal("Failed to count accounts", zap.Error(err))
	}
	total, err := db.TotalBalance(ctx)
	if err != nil {
		zap.L().Fatal("Failed to sum balances", zap.Error(err))
	}

	common.PrintHeader("LEDGER TOTALS", common.DefaultWidth)
	fmt.Printf("Accounts:       %d\n", accounts)
	fmt.Printf("Total balance:  %s TRX\n", total.String())
	common.PrintSeparator("=", common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userID := flag.Int64("user", 0, "Show one account instead of ledger totals")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	// Read-only command; the chain client is not needed.
	db, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if *userID > 0 {
		account, err := db.GetAccount(ctx, *userID)
		if err != nil {
			zap.L().Fatal("Account lookup failed", zap.Int64("user_id", *userID), zap.Error(err))
		}
		transactions, err := db.RecentTransactions(ctx, *userID, 5)
		if err != nil {
			zap.L().Fatal("Transaction lookup failed", zap.Error(err))
		}
		printAccountSummary(&models.AccountSummary{
			Account:      *account,
			Transactions: transactions,
		})
		return
	}

	printTotals(ctx, db)
}
