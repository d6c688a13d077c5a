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
	"apk-signer-go/internal/payment"
	"apk-signer-go/internal/signer"
	"apk-signer-go/internal/store"

	"go.uber.org/zap"
)

// Notifier delivers a message to a user out of band. Delivery failures are
// logged and swallowed; the ledger never depends on notification success.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string) error
}

// LedgerService is the application facade: every user- and admin-facing
// operation goes through here.
type LedgerService struct {
	db       store.LedgerStore
	verifier *payment.Verifier
	signer   *signer.Service
	payment  models.PaymentConfig
	notifier Notifier
}

func NewLedgerService(db store.LedgerStore, verifier *payment.Verifier, sign *signer.Service, cfg models.PaymentConfig) *LedgerService {
	return &LedgerService{
		db:       db,
		verifier: verifier,
		signer:   sign,
		payment:  cfg,
	}
}

// SetNotifier attaches an optional out-of-band notifier.
func (s *LedgerService) SetNotifier(n Notifier) {
	s.notifier = n
}

// RegisterInteraction records that a user touched the system, creating the
// account on first contact.
func (s *LedgerService) RegisterInteraction(ctx context.Context, params store.UpsertAccountParams) error {
	if err := s.db.UpsertAccount(ctx, params); err != nil {
		return fmt.Errorf("account registration failed: %w", err)
	}
	return nil
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if _, err := s.db.TotalAccounts(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// notify sends best-effort; a failed delivery never fails the operation.
func (s *LedgerService) notify(ctx context.Context, userID int64, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		zap.L().Warn("Notification delivery failed",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}
