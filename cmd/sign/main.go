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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"apk-signer-go/internal/api"
	"apk-signer-go/internal/common"
	"apk-signer-go/internal/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type signRequest struct {
	userID int64
	file   string
}

func parseAndValidateFlags() (*signRequest, error) {
	userID := flag.Int64("user", 0, "User id paying for the signing job")
	file := flag.String("file", "", "Path to the APK to sign")
	flag.Parse()

	if *userID <= 0 {
		return nil, fmt.Errorf("-user is required and must be positive")
	}
	if *file == "" {
		return nil, fmt.Errorf("-file is required")
	}
	if _, err := os.Stat(*file); err != nil {
		return nil, fmt.Errorf("unable to access %s: %w", *file, err)
	}

	return &signRequest{userID: *userID, file: *file}, nil
}

// stageUpload copies the input into the signer's temp directory; the signing
// flow owns and removes the staged copy.
func stageUpload(services *common.Services, req *signRequest) (string, error) {
	staged := services.SignerService.TempPath(uuid.New().String(), filepath.Base(req.file))

	in, err := os.Open(req.file)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(staged)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(staged)
		return "", err
	}
	return staged, out.Close()
}

func printSignResult(req *signRequest, result *api.SignResult) {
	if result.Success {
		common.PrintHeader("APK SIGNED", common.DefaultWidth)
		fmt.Printf("User:           %d\n", req.userID)
		fmt.Printf("Input:          %s\n", req.file)
		fmt.Printf("Signed file:    %s\n", result.SignedPath)
		fmt.Printf("Fee charged:    %s TRX\n", result.Charge.Fee.String())
		fmt.Printf("New Balance:    %s TRX\n", result.Charge.NewBalance.String())
		common.PrintFooter("✅ Signing complete", common.DefaultWidth)
		return
	}

	common.PrintHeader("SIGNING FAILED", common.DefaultWidth)
	fmt.Printf("User:           %d\n", req.userID)
	fmt.Printf("Input:          %s\n", req.file)
	fmt.Printf("Reason:         %s\n", result.Error)
	if result.Charge != nil && !result.Charge.Success {
		fmt.Printf("Fee:            %s TRX\n", result.Charge.Fee.String())
		fmt.Printf("Shortfall:      %s TRX\n", result.Charge.Shortfall.String())
	}
	common.PrintFooter("❌ No fee charged unless stated otherwise", common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	zap.L().Info("Starting signing job",
		zap.Int64("user_id", req.userID),
		zap.String("file", req.file))

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	staged, err := stageUpload(services, req)
	if err != nil {
		zap.L().Fatal("Failed to stage upload", zap.Error(err))
	}

	result, err := services.Ledger.SignUpload(ctx, req.userID, staged)
	if err != nil {
		zap.L().Fatal("Signing job failed", zap.Error(err))
	}

	printSignResult(req, result)
}
