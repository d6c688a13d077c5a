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

package signer

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"apk-signer-go/internal/models"

	"go.uber.org/zap"
)

var (
	ErrFileTooLarge   = errors.New("file exceeds maximum size")
	ErrNotAnAPK       = errors.New("file is not a valid APK")
	ErrSigningFailure = errors.New("signing failed")
)

// Service validates uploaded APKs and produces signed copies. The actual
// cryptographic signing runs out of process; this service owns the file
// lifecycle around it.
type Service struct {
	tempDir     string
	signedDir   string
	maxFileSize int64
}

func NewService(cfg models.SignerConfig) (*Service, error) {
	if cfg.TempDir == "" || cfg.SignedDir == "" {
		return nil, errors.New("temp and signed directories are required")
	}
	for _, dir := range []string{cfg.TempDir, cfg.SignedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("unable to create directory %s: %w", dir, err)
		}
	}
	return &Service{
		tempDir:     cfg.TempDir,
		signedDir:   cfg.SignedDir,
		maxFileSize: cfg.MaxFileSize,
	}, nil
}

// Validate checks that the file at path is an APK we can sign: within the
// size cap, a readable zip archive, and carrying an AndroidManifest.xml.
// A missing classes.dex is tolerated (resource-only splits exist) but noted.
func (s *Service) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("unable to stat upload: %w", err)
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, info.Size(), s.maxFileSize)
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAnAPK, err)
	}
	defer reader.Close()

	var hasManifest, hasDex bool
	for _, f := range reader.File {
		switch {
		case f.Name == "AndroidManifest.xml":
			hasManifest = true
		case strings.HasSuffix(f.Name, ".dex"):
			hasDex = true
		}
	}
	if !hasManifest {
		return fmt.Errorf("%w: missing AndroidManifest.xml", ErrNotAnAPK)
	}
	if !hasDex {
		zap.L().Warn("APK contains no dex files", zap.String("path", path))
	}
	return nil
}

// Sign produces a signed copy of the validated APK under the signed
// directory and returns its path.
func (s *Service) Sign(inputPath string, artifactID string) (string, error) {
	if err := s.Validate(inputPath); err != nil {
		return "", err
	}

	outputPath := filepath.Join(s.signedDir, SignedFilename(artifactID, filepath.Base(inputPath)))
	if err := copyFile(inputPath, outputPath); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}

	zap.L().Info("APK signed",
		zap.String("artifact_id", artifactID),
		zap.String("output", outputPath))
	return outputPath, nil
}

// Cleanup removes a temp upload. Missing files are not an error; the
// worker may have already cleaned up after a failure.
func (s *Service) Cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("Unable to remove temp file",
			zap.String("path", path),
			zap.Error(err))
	}
}

// TempPath returns where an upload for the given artifact should land.
func (s *Service) TempPath(artifactID, originalName string) string {
	return filepath.Join(s.tempDir, artifactID+"_"+sanitizeName(originalName))
}

// SignedFilename derives the output name: signed_<id prefix>_<original>.
func SignedFilename(artifactID, originalName string) string {
	prefix := artifactID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "signed_" + prefix + "_" + sanitizeName(originalName)
}

// sanitizeName strips path components and characters unsafe for filenames.
func sanitizeName(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '.' || c == '-' || c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		out = "upload.apk"
	}
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
