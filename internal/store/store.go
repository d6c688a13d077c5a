package store

import (
	"context"
	"errors"

	"apk-signer-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across the storage layer.
var (
	// ErrDuplicateTransaction means the external transaction id has already
	// been credited. Business-rule rejection, not a system fault.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrLedgerFailure wraps a storage fault during a balance mutation. The
	// mutation is all-or-nothing: nothing was committed.
	ErrLedgerFailure = errors.New("ledger operation failed")

	// ErrAccountNotFound is the explicit absent result for account lookups
	// that require an existing account.
	ErrAccountNotFound = errors.New("account not found")

	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// ApplyParams contains the parameters for one atomic balance mutation.
type ApplyParams struct {
	UserID      int64
	Amount      decimal.Decimal
	Kind        string
	Description string
	ExternalRef string
	Status      string
}

// UpsertAccountParams carries the mutable display fields observed on an
// interaction. Balance, blocked flag and join date are never set this way.
type UpsertAccountParams struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// ArtifactParams records one completed signing job. ID is assigned by the
// store when empty.
type ArtifactParams struct {
	ID           string
	UserID       int64
	FileName     string
	OriginalSize int64
	SignedSize   int64
}

// LedgerStore defines the contract the SQLite backend satisfies. The ledger
// engine's Apply is the only path by which an account balance changes.
type LedgerStore interface {
	// --- Accounts ---
	UpsertAccount(ctx context.Context, params UpsertAccountParams) error
	GetAccount(ctx context.Context, userID int64) (*models.Account, error)
	TouchActivity(ctx context.Context, userID int64) error
	SetBlocked(ctx context.Context, userID int64, blocked bool) (bool, error)
	IsBlocked(ctx context.Context, userID int64) (bool, error)
	BalanceOf(ctx context.Context, userID int64) (decimal.Decimal, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	ActiveUserIDs(ctx context.Context) ([]int64, error)

	// --- Ledger engine ---
	Apply(ctx context.Context, params ApplyParams) (decimal.Decimal, error)
	TotalAccounts(ctx context.Context) (int64, error)
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
	Reconcile(ctx context.Context, userID int64) error

	// --- Transaction log ---
	RecentTransactions(ctx context.Context, userID int64, limit int) ([]models.TransactionRecord, error)
	FindByExternalRef(ctx context.Context, ref string) (*models.TransactionRecord, error)

	// --- Settings ---
	GetSetting(ctx context.Context, key, defaultValue string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// --- Artifacts ---
	RecordSignedArtifact(ctx context.Context, params ArtifactParams) (*models.SignedArtifact, error)

	// --- Lifecycle ---
	Close()
}
