package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a bot user and their TRX balance
type Account struct {
	UserID       int64           `db:"user_id"`
	Username     string          `db:"username"`
	FirstName    string          `db:"first_name"`
	LastName     string          `db:"last_name"`
	Balance      decimal.Decimal `db:"balance"`
	Blocked      bool            `db:"is_blocked"`
	JoinedAt     time.Time       `db:"join_date"`
	LastActivity time.Time       `db:"last_activity"`
}

// Ledger entry kinds. The set is open: new kinds may be added without
// changing the semantics of existing ones.
const (
	TxKindDeposit     = "deposit"
	TxKindSignFee     = "sign_fee"
	TxKindAdminCredit = "admin_credit"
	TxKindAdminDebit  = "admin_debit"
	TxKindRefund      = "refund"
)

// Ledger entry statuses.
const (
	TxStatusCompleted = "completed"
	TxStatusPending   = "pending"
)

// TransactionRecord represents one immutable ledger entry. Positive amounts
// are credits, negative amounts are debits. ExternalRef is set only on
// deposit entries and carries the on-chain transaction id.
type TransactionRecord struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	Kind        string          `db:"tx_type"`
	Amount      decimal.Decimal `db:"amount"`
	ExternalRef string          `db:"trx_id"`
	Status      string          `db:"status"`
	Description string          `db:"description"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Setting is a durable key/value configuration entry
type Setting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SignedArtifact records one completed APK signing job
type SignedArtifact struct {
	ID           string    `db:"id"`
	UserID       int64     `db:"user_id"`
	FileName     string    `db:"file_name"`
	OriginalSize int64     `db:"original_size"`
	SignedSize   int64     `db:"signed_size"`
	CreatedAt    time.Time `db:"created_at"`
}
