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
	"errors"
	"fmt"

	"apk-signer-go/internal/database"
	"apk-signer-go/internal/models"
	"apk-signer-go/internal/payment"
	"apk-signer-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessDeposit handles a user-submitted payment claim: verify the
// transaction on chain, then credit the account exactly once.
func (s *LedgerService) ProcessDeposit(ctx context.Context, userID int64, txID string) (*models.DepositResult, error) {
	zap.L().Info("Processing deposit claim",
		zap.Int64("user_id", userID),
		zap.String("tx_id", txID))

	blocked, err := s.db.IsBlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("blocked check failed: %w", err)
	}
	if blocked {
		zap.L().Warn("Deposit claim from blocked account", zap.Int64("user_id", userID))
		return &models.DepositResult{
			Success: false,
			UserID:  userID,
			Error:   "account is blocked",
		}, nil
	}

	minDeposit, err := s.minDeposit(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.verifier.Verify(ctx, txID, s.payment.ReceivingAddress, minDeposit)
	if err != nil {
		return nil, fmt.Errorf("deposit verification failed: %w", err)
	}

	switch result.Status {
	case payment.StatusLookupFailed:
		return &models.DepositResult{
			Success:   false,
			Retryable: true,
			UserID:    userID,
			Error:     "could not reach the payment network, please try again shortly",
		}, nil
	case payment.StatusInvalid:
		return &models.DepositResult{
			Success: false,
			UserID:  userID,
			Amount:  result.Amount,
			Error:   result.Reason,
		}, nil
	}

	newBalance, err := s.db.Apply(ctx, store.ApplyParams{
		UserID:      userID,
		Amount:      result.Amount,
		Kind:        models.TxKindDeposit,
		Description: "TRX deposit",
		ExternalRef: result.Tx.TxID,
	})
	if err != nil {
		// A concurrent claim of the same id can land between the verifier's
		// duplicate check and the credit. The unique index catches it here.
		if errors.Is(err, store.ErrDuplicateTransaction) {
			return &models.DepositResult{
				Success: false,
				UserID:  userID,
				Error:   payment.ReasonAlreadyUsed,
			}, nil
		}
		if errors.Is(err, store.ErrAccountNotFound) {
			return &models.DepositResult{
				Success: false,
				UserID:  userID,
				Error:   "account not found",
			}, nil
		}
		zap.L().Error("Deposit credit failed after verification",
			zap.Int64("user_id", userID),
			zap.String("tx_id", txID),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("Deposit credited",
		zap.Int64("user_id", userID),
		zap.String("tx_id", txID),
		zap.String("amount", result.Amount.String()),
		zap.String("new_balance", newBalance.String()))

	s.notify(ctx, userID, fmt.Sprintf("Deposit of %s TRX confirmed. New balance: %s TRX.",
		result.Amount.String(), newBalance.String()))

	return &models.DepositResult{
		Success:    true,
		UserID:     userID,
		Amount:     result.Amount,
		NewBalance: newBalance,
	}, nil
}

// minDeposit reads the deposit floor from settings, falling back to the
// configured default.
func (s *LedgerService) minDeposit(ctx context.Context) (decimal.Decimal, error) {
	raw, err := s.db.GetSetting(ctx, database.SettingMinDeposit, s.payment.MinDepositTRX)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to read minimum deposit: %w", err)
	}
	min, err := decimal.NewFromString(raw)
	if err != nil {
		zap.L().Error("Invalid minimum deposit setting, using default",
			zap.String("value", raw))
		return decimal.NewFromString(s.payment.MinDepositTRX)
	}
	return min, nil
}
