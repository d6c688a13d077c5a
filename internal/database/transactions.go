package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"apk-signer-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecentTransactions returns up to limit ledger entries for an account,
// newest first, ties broken by insertion order.
func (s *Service) RecentTransactions(ctx context.Context, userID int64, limit int) ([]models.TransactionRecord, error) {
	zap.L().Debug("Getting recent transactions",
		zap.Int64("user_id", userID),
		zap.Int("limit", limit))

	rows, err := s.db.QueryContext(ctx, queryRecentTransactions, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query recent transactions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var records []models.TransactionRecord
	for rows.Next() {
		record, err := scanTransactionRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return records, nil
}

// FindByExternalRef returns the ledger entry carrying the given on-chain
// transaction id, or nil when none exists.
func (s *Service) FindByExternalRef(ctx context.Context, ref string) (*models.TransactionRecord, error) {
	record, err := scanTransactionRecord(s.db.QueryRowContext(ctx, queryFindByExternalRef, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("Failed to query by external reference", zap.String("ref", ref), zap.Error(err))
		return nil, fmt.Errorf("unable to query by external reference: %w", err)
	}
	return record, nil
}

func scanTransactionRecord(row rowScanner) (*models.TransactionRecord, error) {
	var record models.TransactionRecord
	var amountStr string
	var externalRef, description sql.NullString

	err := row.Scan(&record.ID, &record.UserID, &record.Kind, &amountStr,
		&externalRef, &record.Status, &description, &record.CreatedAt)
	if err != nil {
		return nil, err
	}

	record.ExternalRef = externalRef.String
	record.Description = description.String

	record.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse amount %q: %w", amountStr, err)
	}
	return &record, nil
}
