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
	"strings"
	"time"

	"apk-signer-go/internal/models"
	"apk-signer-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UpsertAccount creates the account on first contact or refreshes its
// display fields. Balance, blocked flag and join date are preserved on
// conflict; only the names and last activity change.
func (s *Service) UpsertAccount(ctx context.Context, params store.UpsertAccountParams) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, queryUpsertAccount,
		params.UserID, params.Username, params.FirstName, params.LastName, now, now)
	if err != nil {
		zap.L().Error("Failed to upsert account", zap.Int64("user_id", params.UserID), zap.Error(err))
		return fmt.Errorf("unable to upsert account: %w", err)
	}
	return nil
}

func (s *Service) GetAccount(ctx context.Context, userID int64) (*models.Account, error) {
	zap.L().Debug("Querying account", zap.Int64("user_id", userID))

	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccount, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		zap.L().Error("Failed to query account", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("unable to query account: %w", err)
	}
	return account, nil
}

// FindByUsername looks an account up by its public username. A leading "@"
// is accepted and stripped.
func (s *Service) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	username = strings.TrimPrefix(username, "@")

	account, err := scanAccount(s.db.QueryRowContext(ctx, queryFindByUsername, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		zap.L().Error("Failed to query account by username", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("unable to query account by username: %w", err)
	}
	return account, nil
}

// TouchActivity bumps last_activity. Missing accounts are a no-op, not an
// error: the caller may not have upserted yet.
func (s *Service) TouchActivity(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, queryTouchActivity, time.Now(), userID); err != nil {
		zap.L().Error("Failed to touch activity", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("unable to touch activity: %w", err)
	}
	return nil
}

// SetBlocked toggles the block flag and reports whether a matching account
// existed.
func (s *Service) SetBlocked(ctx context.Context, userID int64, blocked bool) (bool, error) {
	result, err := s.db.ExecContext(ctx, querySetBlocked, boolToInt(blocked), userID)
	if err != nil {
		zap.L().Error("Failed to set blocked flag", zap.Int64("user_id", userID), zap.Error(err))
		return false, fmt.Errorf("unable to set blocked flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to get rows affected: %w", err)
	}

	zap.L().Info("Account block status changed",
		zap.Int64("user_id", userID),
		zap.Bool("blocked", blocked),
		zap.Bool("applied", rowsAffected > 0))
	return rowsAffected > 0, nil
}

// IsBlocked returns false for absent accounts.
func (s *Service) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	var blocked int
	err := s.db.QueryRowContext(ctx, queryIsBlocked, userID).Scan(&blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("unable to query blocked flag: %w", err)
	}
	return blocked != 0, nil
}

// BalanceOf returns zero for absent accounts, never an error for them.
func (s *Service) BalanceOf(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balanceStr string
	err := s.db.QueryRowContext(ctx, queryGetBalance, userID).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.Int64("user_id", userID), zap.Error(err))
		return decimal.Zero, fmt.Errorf("unable to get balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse balance %q: %w", balanceStr, err)
	}
	return balance, nil
}

// ActiveUserIDs returns the ids of all non-blocked accounts, for broadcast
// style operations.
func (s *Service) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, queryActiveUserIDs)
	if err != nil {
		return nil, fmt.Errorf("unable to query active users: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("unable to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var username, firstName, lastName sql.NullString
	var balanceStr string
	var blocked int

	err := row.Scan(&account.UserID, &username, &firstName, &lastName,
		&balanceStr, &blocked, &account.JoinedAt, &account.LastActivity)
	if err != nil {
		return nil, err
	}

	account.Username = username.String
	account.FirstName = firstName.String
	account.LastName = lastName.String
	account.Blocked = blocked != 0

	account.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse balance %q: %w", balanceStr, err)
	}
	return &account, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
