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

package api

import (
	"context"
	"fmt"

	"apk-signer-go/internal/models"

	"github.com/shopspring/decimal"
)

const recentTransactionLimit = 5

// GetBalance returns the current balance for a user. Unknown accounts
// report zero rather than an error.
func (s *LedgerService) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	balance, err := s.db.BalanceOf(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance lookup failed: %w", err)
	}
	return balance, nil
}

// GetAccountSummary returns the account together with its most recent
// ledger entries, newest first.
func (s *LedgerService) GetAccountSummary(ctx context.Context, userID int64) (*models.AccountSummary, error) {
	account, err := s.db.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	transactions, err := s.db.RecentTransactions(ctx, userID, recentTransactionLimit)
	if err != nil {
		return nil, fmt.Errorf("transaction history lookup failed: %w", err)
	}

	return &models.AccountSummary{
		Account:      *account,
		Transactions: transactions,
	}, nil
}
