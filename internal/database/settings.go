package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// GetSetting returns the stored value for key, or defaultValue when the key
// is absent.
func (s *Service) GetSetting(ctx context.Context, key, defaultValue string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, queryGetSetting, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultValue, nil
	}
	if err != nil {
		zap.L().Error("Failed to get setting", zap.String("key", key), zap.Error(err))
		return defaultValue, fmt.Errorf("unable to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a setting and stamps updated_at.
func (s *Service) SetSetting(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, querySetSetting, key, value, time.Now()); err != nil {
		zap.L().Error("Failed to set setting", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("unable to set setting %s: %w", key, err)
	}

	zap.L().Info("Setting updated", zap.String("key", key), zap.String("value", value))
	return nil
}
