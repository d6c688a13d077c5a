package database

import (
	"context"
	"testing"

	"apk-signer-go/internal/store"
)

func TestSettingsSeededDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	price, err := svc.GetSetting(ctx, SettingSignPrice, "")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if price != defaultSignPrice {
		t.Errorf("expected seeded sign price %q, got %q", defaultSignPrice, price)
	}

	min, err := svc.GetSetting(ctx, SettingMinDeposit, "")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if min != defaultMinDeposit {
		t.Errorf("expected seeded minimum %q, got %q", defaultMinDeposit, min)
	}
}

func TestGetSettingDefaultFallback(t *testing.T) {
	svc := newTestService(t)

	value, err := svc.GetSetting(context.Background(), "no_such_key", "fallback")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if value != "fallback" {
		t.Errorf("expected fallback value, got %q", value)
	}
}

func TestSetSettingUpserts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.SetSetting(ctx, SettingSignPrice, "4.5"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	value, err := svc.GetSetting(ctx, SettingSignPrice, "")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if value != "4.5" {
		t.Errorf("expected updated value 4.5, got %q", value)
	}

	// Second write to the same key overwrites.
	if err := svc.SetSetting(ctx, SettingSignPrice, "6"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	value, err = svc.GetSetting(ctx, SettingSignPrice, "")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if value != "6" {
		t.Errorf("expected overwritten value 6, got %q", value)
	}
}

func TestRecordSignedArtifact(t *testing.T) {
	svc := newTestService(t)

	artifact, err := svc.RecordSignedArtifact(context.Background(), store.ArtifactParams{
		UserID:       1,
		FileName:     "app.apk",
		OriginalSize: 1024,
		SignedSize:   1040,
	})
	if err != nil {
		t.Fatalf("RecordSignedArtifact: %v", err)
	}
	if artifact.ID == "" {
		t.Error("expected generated artifact id")
	}
	if artifact.FileName != "app.apk" {
		t.Errorf("unexpected file name %q", artifact.FileName)
	}
}
