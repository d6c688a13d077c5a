package common

import (
	"fmt"
	"os"
	"path/filepath"

	"apk-signer-go/internal/models"

	"gopkg.in/yaml.v2"
)

type ProviderConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	Role    string `yaml:"role"`
}

type ProvidersConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
}

const (
	roleGridPrimary  = "primary"
	roleScanFallback = "fallback"
)

// LoadProviderConfig reads the chain provider endpoints from a yaml file,
// resolved relative to the working directory when not absolute.
func LoadProviderConfig(providersFile string) ([]ProviderConfig, error) {
	var providersPath string
	if filepath.IsAbs(providersFile) {
		providersPath = providersFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		providersPath = filepath.Join(wd, providersFile)
	}

	data, err := os.ReadFile(providersPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", providersFile, err)
	}

	var config ProvidersConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", providersFile, err)
	}

	for i, provider := range config.Providers {
		if provider.BaseURL == "" {
			return nil, fmt.Errorf("provider at index %d missing base_url", i)
		}
		if provider.Role != roleGridPrimary && provider.Role != roleScanFallback {
			return nil, fmt.Errorf("provider at index %d has unknown role %q", i, provider.Role)
		}
	}

	return config.Providers, nil
}

// ApplyProviderConfig overrides the configured endpoints with the ones from
// the providers file. The last entry per role wins.
func ApplyProviderConfig(cfg *models.TronConfig, providersFile string) error {
	providers, err := LoadProviderConfig(providersFile)
	if err != nil {
		return err
	}

	for _, provider := range providers {
		switch provider.Role {
		case roleGridPrimary:
			cfg.PrimaryBaseURL = provider.BaseURL
		case roleScanFallback:
			cfg.FallbackBaseURL = provider.BaseURL
		}
	}
	return nil
}
