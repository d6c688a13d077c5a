package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Tron     TronConfig
	Payment  PaymentConfig
	Signer   SignerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// TronConfig holds chain lookup client settings
type TronConfig struct {
	PrimaryBaseURL  string
	FallbackBaseURL string
	RequestTimeout  time.Duration
	ProvidersFile   string
}

// PaymentConfig holds the payment business configuration. AdminIDs is the
// injected list of privileged user ids; there is no process-wide admin list.
type PaymentConfig struct {
	ReceivingAddress string
	MinDepositTRX    string
	DefaultSignPrice string
	AdminIDs         []int64
}

// SignerConfig holds artifact processing settings
type SignerConfig struct {
	TempDir     string
	SignedDir   string
	MaxFileSize int64
}
