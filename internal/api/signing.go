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
	"os"
	"path/filepath"

	"apk-signer-go/internal/database"
	"apk-signer-go/internal/models"
	"apk-signer-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const chargeRetryLimit = 3

// SignResult is the outcome of a paid signing job.
type SignResult struct {
	Success    bool
	SignedPath string
	Charge     *models.ChargeResult
	Error      string
}

// SignPrice returns the current fee for one signing job. The price lives in
// settings so admins can change it without a restart.
func (s *LedgerService) SignPrice(ctx context.Context) (decimal.Decimal, error) {
	raw, err := s.db.GetSetting(ctx, database.SettingSignPrice, s.payment.DefaultSignPrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to read sign price: %w", err)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		zap.L().Error("Invalid sign price setting, using default",
			zap.String("value", raw))
		return decimal.NewFromString(s.payment.DefaultSignPrice)
	}
	return price, nil
}

// ChargeSignFee debits the signing fee from a user's balance. The debit is
// refused, never partially taken, when funds are insufficient. Concurrent
// balance changes are retried a bounded number of times.
func (s *LedgerService) ChargeSignFee(ctx context.Context, userID int64) (*models.ChargeResult, error) {
	fee, err := s.SignPrice(ctx)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= chargeRetryLimit; attempt++ {
		balance, err := s.db.BalanceOf(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("balance lookup failed: %w", err)
		}
		if balance.LessThan(fee) {
			return &models.ChargeResult{
				Success:   false,
				Fee:       fee,
				Shortfall: fee.Sub(balance),
				Error:     "insufficient balance",
			}, nil
		}

		newBalance, err := s.db.Apply(ctx, store.ApplyParams{
			UserID:      userID,
			Amount:      fee.Neg(),
			Kind:        models.TxKindSignFee,
			Description: "APK signing fee",
		})
		if errors.Is(err, store.ErrConcurrentModification) {
			zap.L().Warn("Retrying sign fee charge after concurrent update",
				zap.Int64("user_id", userID),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("sign fee charge failed: %w", err)
		}

		return &models.ChargeResult{
			Success:    true,
			Fee:        fee,
			NewBalance: newBalance,
		}, nil
	}

	return nil, fmt.Errorf("sign fee charge failed: %w", store.ErrConcurrentModification)
}

// refundSignFee compensates a charge whose signing job failed afterwards.
func (s *LedgerService) refundSignFee(ctx context.Context, userID int64, fee decimal.Decimal) {
	_, err := s.db.Apply(ctx, store.ApplyParams{
		UserID:      userID,
		Amount:      fee,
		Kind:        models.TxKindRefund,
		Description: "refund: signing failed",
	})
	if err != nil {
		// The user was charged for nothing. Loud log so an operator can
		// credit manually.
		zap.L().Error("Sign fee refund failed",
			zap.Int64("user_id", userID),
			zap.String("fee", fee.String()),
			zap.Error(err))
	}
}

// SignUpload runs the full paid signing flow for a file already staged on
// disk: validate, charge, sign, record. A signing failure after the charge
// is refunded. The staged upload is always cleaned up.
func (s *LedgerService) SignUpload(ctx context.Context, userID int64, uploadPath string) (*SignResult, error) {
	defer s.signer.Cleanup(uploadPath)

	blocked, err := s.db.IsBlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("blocked check failed: %w", err)
	}
	if blocked {
		return &SignResult{Success: false, Error: "account is blocked"}, nil
	}

	// Validate before charging: a malformed upload must never cost the user.
	if err := s.signer.Validate(uploadPath); err != nil {
		return &SignResult{Success: false, Error: err.Error()}, nil
	}

	charge, err := s.ChargeSignFee(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !charge.Success {
		return &SignResult{Success: false, Charge: charge, Error: charge.Error}, nil
	}

	artifactID := uuid.New().String()
	signedPath, err := s.signer.Sign(uploadPath, artifactID)
	if err != nil {
		zap.L().Error("Signing failed after charge, refunding",
			zap.Int64("user_id", userID),
			zap.String("artifact_id", artifactID),
			zap.Error(err))
		s.refundSignFee(ctx, userID, charge.Fee)
		return &SignResult{Success: false, Charge: charge, Error: "signing failed, fee refunded"}, nil
	}

	if _, err := s.db.RecordSignedArtifact(ctx, store.ArtifactParams{
		ID:           artifactID,
		UserID:       userID,
		FileName:     filepath.Base(uploadPath),
		OriginalSize: fileSize(uploadPath),
		SignedSize:   fileSize(signedPath),
	}); err != nil {
		// Audit record only; the job itself succeeded and the fee stands.
		zap.L().Error("Unable to record signing job",
			zap.Int64("user_id", userID),
			zap.String("artifact_id", artifactID),
			zap.Error(err))
	}

	zap.L().Info("Signing job completed",
		zap.Int64("user_id", userID),
		zap.String("artifact_id", artifactID),
		zap.String("signed_path", signedPath))

	return &SignResult{
		Success:    true,
		SignedPath: signedPath,
		Charge:     charge,
	}, nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
