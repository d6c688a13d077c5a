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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"apk-signer-go/internal/models"
	"apk-signer-go/internal/store"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Apply atomically mutates an account balance and appends the matching
// ledger entry. It is the only write path for balances. The duplicate
// external-reference check runs inside the same transaction as the insert;
// the partial unique index on trx_id closes any remaining race at the
// storage layer. Apply does not enforce a non-negative balance: sufficient
// funds policy belongs to the caller.
func (s *Service) Apply(ctx context.Context, params store.ApplyParams) (decimal.Decimal, error) {
	if params.Kind == "" {
		return decimal.Zero, fmt.Errorf("transaction kind is required")
	}
	status := params.Status
	if status == "" {
		status = models.TxStatusCompleted
	}

	zap.L().Info("Applying ledger mutation",
		zap.Int64("user_id", params.UserID),
		zap.String("kind", params.Kind),
		zap.String("amount", params.Amount.String()),
		zap.String("external_ref", params.ExternalRef))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: unable to begin transaction: %v", store.ErrLedgerFailure, err)
	}
	defer tx.Rollback()

	// Re-check the external reference even when the caller already did: the
	// verifier's check and this commit are separate observable operations.
	if params.ExternalRef != "" {
		var existingID int64
		err := tx.QueryRowContext(ctx, queryFindDuplicateRef, params.ExternalRef).Scan(&existingID)
		if err == nil {
			zap.L().Warn("Duplicate external reference detected",
				zap.String("external_ref", params.ExternalRef),
				zap.Int64("existing_id", existingID))
			return decimal.Zero, fmt.Errorf("%w: external reference %s already used",
				store.ErrDuplicateTransaction, params.ExternalRef)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: unable to check external reference: %v", store.ErrLedgerFailure, err)
		}
	}

	var currentStr string
	err = tx.QueryRowContext(ctx, queryGetBalance, params.UserID).Scan(&currentStr)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, store.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: unable to read balance: %v", store.ErrLedgerFailure, err)
	}

	current, err := decimal.NewFromString(currentStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: unable to parse balance %q: %v", store.ErrLedgerFailure, currentStr, err)
	}

	newBalance := current.Add(params.Amount)

	// The WHERE clause re-matches the balance we read. SQLite serializes
	// writers so this always holds, but a silent lost update would corrupt
	// the ledger; fail loudly instead.
	result, err := tx.ExecContext(ctx, queryUpdateBalance, newBalance.String(), params.UserID, currentStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: unable to update balance: %v", store.ErrLedgerFailure, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: unable to check rows affected: %v", store.ErrLedgerFailure, err)
	}
	if rowsAffected == 0 {
		return decimal.Zero, fmt.Errorf("%w: balance changed underneath apply", store.ErrConcurrentModification)
	}

	var externalRef any
	if params.ExternalRef != "" {
		externalRef = params.ExternalRef
	}
	_, err = tx.ExecContext(ctx, queryInsertTransaction,
		params.UserID, params.Kind, params.Amount.String(), externalRef,
		status, params.Description, time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return decimal.Zero, fmt.Errorf("%w: external reference %s already used",
				store.ErrDuplicateTransaction, params.ExternalRef)
		}
		return decimal.Zero, fmt.Errorf("%w: unable to insert ledger entry: %v", store.ErrLedgerFailure, err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return decimal.Zero, fmt.Errorf("%w: external reference %s already used",
				store.ErrDuplicateTransaction, params.ExternalRef)
		}
		return decimal.Zero, fmt.Errorf("%w: unable to commit: %v", store.ErrLedgerFailure, err)
	}

	zap.L().Info("Ledger mutation applied",
		zap.Int64("user_id", params.UserID),
		zap.String("kind", params.Kind),
		zap.String("old_balance", current.String()),
		zap.String("new_balance", newBalance.String()))
	return newBalance, nil
}

// TotalAccounts counts all accounts, blocked ones included.
func (s *Service) TotalAccounts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, queryCountAccounts).Scan(&count); err != nil {
		return 0, fmt.Errorf("unable to count accounts: %w", err)
	}
	return count, nil
}

// TotalBalance sums all account balances in one statement snapshot. The sum
// is computed in decimal, not SQL REAL, to keep it exact.
func (s *Service) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, queryAllBalances)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to query balances: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	total := decimal.Zero
	for rows.Next() {
		var balanceStr string
		if err := rows.Scan(&balanceStr); err != nil {
			return decimal.Zero, fmt.Errorf("unable to scan balance: %w", err)
		}
		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("unable to parse balance %q: %w", balanceStr, err)
		}
		total = total.Add(balance)
	}

	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating balance rows: %w", err)
	}
	return total, nil
}

// Reconcile verifies the balance invariant for one account: the stored
// balance must equal the sum of its completed ledger entries.
func (s *Service) Reconcile(ctx context.Context, userID int64) error {
	current, err := s.BalanceOf(ctx, userID)
	if err != nil {
		return fmt.Errorf("unable to get current balance: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryCompletedAmounts, userID)
	if err != nil {
		return fmt.Errorf("unable to query ledger amounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	calculated := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return fmt.Errorf("unable to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("unable to parse amount %q: %w", amountStr, err)
		}
		calculated = calculated.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating amount rows: %w", err)
	}

	if !current.Equal(calculated) {
		zap.L().Error("Balance reconciliation failed",
			zap.Int64("user_id", userID),
			zap.String("current_balance", current.String()),
			zap.String("calculated_balance", calculated.String()),
			zap.String("difference", current.Sub(calculated).String()))
		return fmt.Errorf("balance mismatch for user %d: current=%s, calculated=%s",
			userID, current.String(), calculated.String())
	}

	zap.L().Debug("Balance reconciliation successful",
		zap.Int64("user_id", userID),
		zap.String("balance", current.String()))
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
