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

package models

import (
	"github.com/shopspring/decimal"
)

// DepositResult represents the outcome of a verify-then-credit flow
type DepositResult struct {
	Success    bool            `json:"success"`
	Retryable  bool            `json:"retryable,omitempty"`
	UserID     int64           `json:"user_id,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	NewBalance decimal.Decimal `json:"new_balance,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// ChargeResult represents the outcome of a fee-debit flow
type ChargeResult struct {
	Success    bool            `json:"success"`
	Fee        decimal.Decimal `json:"fee"`
	NewBalance decimal.Decimal `json:"new_balance,omitempty"`
	Shortfall  decimal.Decimal `json:"shortfall,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// AccountSummary bundles an account with its recent ledger history
type AccountSummary struct {
	Account      Account             `json:"account"`
	Transactions []TransactionRecord `json:"transactions"`
}

// Stats holds the admin-facing aggregate counters
type Stats struct {
	TotalAccounts int64           `json:"total_accounts"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
}
