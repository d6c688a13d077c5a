package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"apk-signer-go/internal/database"
	"apk-signer-go/internal/models"
	"apk-signer-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IsAdmin reports whether a user id is on the configured admin list.
func (s *LedgerService) IsAdmin(userID int64) bool {
	for _, id := range s.payment.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// GetStats returns the admin dashboard aggregates.
func (s *LedgerService) GetStats(ctx context.Context) (*models.Stats, error) {
	accounts, err := s.db.TotalAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats query failed: %w", err)
	}
	balance, err := s.db.TotalBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats query failed: %w", err)
	}
	return &models.Stats{
		TotalAccounts: accounts,
		TotalBalance:  balance,
	}, nil
}

// FindAccount resolves an admin search term: a numeric user id or a
// username with optional @ prefix.
func (s *LedgerService) FindAccount(ctx context.Context, query string) (*models.AccountSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}

	if userID, err := strconv.ParseInt(query, 10, 64); err == nil {
		return s.GetAccountSummary(ctx, userID)
	}

	account, err := s.db.FindByUsername(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.GetAccountSummary(ctx, account.UserID)
}

// AdjustBalance applies an admin credit or debit with an audit description.
// The amount's sign selects the transaction kind.
func (s *LedgerService) AdjustBalance(ctx context.Context, adminID, userID int64, amount decimal.Decimal, reason string) (decimal.Decimal, error) {
	if !s.IsAdmin(adminID) {
		return decimal.Zero, fmt.Errorf("user %d is not an admin", adminID)
	}
	if amount.IsZero() {
		return decimal.Zero, fmt.Errorf("adjustment amount must be non-zero")
	}

	kind := models.TxKindAdminCredit
	if amount.IsNegative() {
		kind = models.TxKindAdminDebit
	}

	description := fmt.Sprintf("admin adjustment by %d", adminID)
	if reason != "" {
		description = fmt.Sprintf("%s: %s", description, reason)
	}

	newBalance, err := s.db.Apply(ctx, store.ApplyParams{
		UserID:      userID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance adjustment failed: %w", err)
	}

	zap.L().Info("Admin balance adjustment applied",
		zap.Int64("admin_id", adminID),
		zap.Int64("user_id", userID),
		zap.String("amount", amount.String()),
		zap.String("new_balance", newBalance.String()))
	return newBalance, nil
}

// SetBlocked flips an account's blocked flag. Returns false when the
// account does not exist.
func (s *LedgerService) SetBlocked(ctx context.Context, adminID, userID int64, blocked bool) (bool, error) {
	if !s.IsAdmin(adminID) {
		return false, fmt.Errorf("user %d is not an admin", adminID)
	}

	changed, err := s.db.SetBlocked(ctx, userID, blocked)
	if err != nil {
		return false, fmt.Errorf("unable to update blocked flag: %w", err)
	}
	if changed {
		zap.L().Info("Account blocked flag updated",
			zap.Int64("admin_id", adminID),
			zap.Int64("user_id", userID),
			zap.Bool("blocked", blocked))
	}
	return changed, nil
}

// SetSignPrice updates the signing fee. Takes effect on the next charge.
func (s *LedgerService) SetSignPrice(ctx context.Context, adminID int64, price decimal.Decimal) error {
	if !s.IsAdmin(adminID) {
		return fmt.Errorf("user %d is not an admin", adminID)
	}
	if price.IsNegative() {
		return fmt.Errorf("sign price cannot be negative")
	}

	if err := s.db.SetSetting(ctx, database.SettingSignPrice, price.String()); err != nil {
		return fmt.Errorf("unable to update sign price: %w", err)
	}
	zap.L().Info("Sign price updated",
		zap.Int64("admin_id", adminID),
		zap.String("price", price.String()))
	return nil
}

// ReconcileAll checks the ledger invariant for every active account and
// returns the ids that failed.
func (s *LedgerService) ReconcileAll(ctx context.Context) ([]int64, error) {
	ids, err := s.db.ActiveUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to list accounts: %w", err)
	}

	var failed []int64
	for _, id := range ids {
		if err := s.db.Reconcile(ctx, id); err != nil {
			failed = append(failed, id)
		}
	}
	return failed, nil
}
