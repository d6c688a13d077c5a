package database

import (
	"context"
	"fmt"
	"time"

	"apk-signer-go/internal/models"
	"apk-signer-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordSignedArtifact stores the audit record for one completed signing
// job. It is written after the fee debit committed; the ledger stays
// authoritative if this insert fails.
func (s *Service) RecordSignedArtifact(ctx context.Context, params store.ArtifactParams) (*models.SignedArtifact, error) {
	id := params.ID
	if id == "" {
		id = uuid.New().String()
	}
	artifact := &models.SignedArtifact{
		ID:           id,
		UserID:       params.UserID,
		FileName:     params.FileName,
		OriginalSize: params.OriginalSize,
		SignedSize:   params.SignedSize,
		CreatedAt:    time.Now(),
	}

	_, err := s.db.ExecContext(ctx, queryInsertSignedArtifact,
		artifact.ID, artifact.UserID, artifact.FileName,
		artifact.OriginalSize, artifact.SignedSize, artifact.CreatedAt)
	if err != nil {
		zap.L().Error("Failed to record signed artifact",
			zap.Int64("user_id", params.UserID),
			zap.String("file_name", params.FileName),
			zap.Error(err))
		return nil, fmt.Errorf("unable to record signed artifact: %w", err)
	}

	zap.L().Info("Signed artifact recorded",
		zap.String("id", artifact.ID),
		zap.Int64("user_id", artifact.UserID),
		zap.String("file_name", artifact.FileName))
	return artifact, nil
}
