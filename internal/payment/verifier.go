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

package payment

import (
	"context"
	"fmt"
	"strings"

	"apk-signer-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Status is the terminal state of one verification.
type Status int

const (
	// StatusValid: the payment passed every check and may be credited.
	StatusValid Status = iota
	// StatusInvalid: the payment failed a business rule. Permanent for this
	// transaction id; resubmitting the same id will not help.
	StatusInvalid
	// StatusLookupFailed: the chain could not be consulted. Transient; the
	// caller should prompt a retry rather than reject.
	StatusLookupFailed
)

// Rejection reasons carried on Invalid results.
const (
	ReasonMalformedID      = "malformed transaction id"
	ReasonAlreadyUsed      = "transaction id already used"
	ReasonNotFound         = "transaction not found"
	ReasonNotConfirmed     = "transaction not yet confirmed"
	ReasonWrongDestination = "transaction sent to wrong address"
	ReasonAmountTooLow     = "amount too low"
)

// Result carries the terminal state plus whatever the chain reported. After
// a successful lookup the observed Amount is always populated, even on
// Invalid results, so callers can show the user the real figure.
type Result struct {
	Status    Status
	Reason    string
	Amount    decimal.Decimal
	Confirmed bool
	Tx        *models.ChainTransaction
}

func (r Result) Valid() bool { return r.Status == StatusValid }

// ChainClient fetches a transaction from the external ledger. A nil
// transaction with nil error means the id does not exist on chain.
type ChainClient interface {
	GetTransaction(ctx context.Context, txID string) (*models.ChainTransaction, error)
}

// RefFinder checks whether an external reference was already credited.
type RefFinder interface {
	FindByExternalRef(ctx context.Context, ref string) (*models.TransactionRecord, error)
}

// Verifier decides whether a claimed payment is creditable. It holds no
// per-call state and is safe for concurrent use.
type Verifier struct {
	chain ChainClient
	refs  RefFinder
}

func NewVerifier(chain ChainClient, refs RefFinder) *Verifier {
	return &Verifier{chain: chain, refs: refs}
}

// Verify runs the checks in a fixed order, short-circuiting at the first
// failure. Local checks (format, duplicate) run before any network call.
func (v *Verifier) Verify(ctx context.Context, txID, expectedAddress string, minAmount decimal.Decimal) (Result, error) {
	txID = strings.TrimSpace(txID)

	if !validTxIDFormat(txID) {
		return Result{Status: StatusInvalid, Reason: ReasonMalformedID}, nil
	}

	// Credited ledger entries carry the chain-reported lowercase id; match
	// that casing here so a resubmitted id is caught without a network call.
	txID = strings.ToLower(txID)

	existing, err := v.refs.FindByExternalRef(ctx, txID)
	if err != nil {
		return Result{}, fmt.Errorf("unable to check for prior use: %w", err)
	}
	if existing != nil {
		zap.L().Info("Rejected reused transaction id",
			zap.String("tx_id", txID),
			zap.Int64("credited_user", existing.UserID))
		return Result{Status: StatusInvalid, Reason: ReasonAlreadyUsed}, nil
	}

	tx, err := v.chain.GetTransaction(ctx, txID)
	if err != nil {
		zap.L().Warn("Chain lookup failed during verification",
			zap.String("tx_id", txID),
			zap.Error(err))
		return Result{Status: StatusLookupFailed, Reason: err.Error()}, nil
	}
	if tx == nil {
		return Result{Status: StatusInvalid, Reason: ReasonNotFound}, nil
	}

	if !tx.Confirmed {
		return Result{Status: StatusInvalid, Reason: ReasonNotConfirmed, Amount: tx.Amount, Tx: tx}, nil
	}

	if !strings.EqualFold(tx.ToAddress, expectedAddress) {
		zap.L().Info("Rejected payment to wrong destination",
			zap.String("tx_id", txID),
			zap.String("destination", tx.ToAddress))
		return Result{Status: StatusInvalid, Reason: ReasonWrongDestination, Amount: tx.Amount, Confirmed: true, Tx: tx}, nil
	}

	if tx.Amount.LessThan(minAmount) {
		return Result{
			Status:    StatusInvalid,
			Reason:    fmt.Sprintf("%s: minimum is %s TRX", ReasonAmountTooLow, minAmount.String()),
			Amount:    tx.Amount,
			Confirmed: true,
			Tx:        tx,
		}, nil
	}

	zap.L().Info("Payment verified",
		zap.String("tx_id", txID),
		zap.String("amount", tx.Amount.String()))
	return Result{Status: StatusValid, Amount: tx.Amount, Confirmed: true, Tx: tx}, nil
}

// validTxIDFormat requires exactly 64 hex characters, case-insensitive.
func validTxIDFormat(txID string) bool {
	if len(txID) != 64 {
		return false
	}
	for _, c := range txID {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
