package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"apk-signer-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	testTxID    = "6dd94d067e27f802480a636c46810a8aa9ee0d4f6dd94d067e27f802480a636c"
	testAddress = "TKz2yJFyWMuNKJAJikm9EbEv9Hspyr3niH"
)

type fakeChain struct {
	tx    *models.ChainTransaction
	err   error
	calls int
}

func (f *fakeChain) GetTransaction(ctx context.Context, txID string) (*models.ChainTransaction, error) {
	f.calls++
	return f.tx, f.err
}

type fakeRefs struct {
	record  *models.TransactionRecord
	err     error
	calls   int
	lastRef string
}

func (f *fakeRefs) FindByExternalRef(ctx context.Context, ref string) (*models.TransactionRecord, error) {
	f.calls++
	f.lastRef = ref
	return f.record, f.err
}

func confirmedTx(amount string) *models.ChainTransaction {
	return &models.ChainTransaction{
		TxID:      testTxID,
		ToAddress: testAddress,
		Amount:    decimal.RequireFromString(amount),
		Confirmed: true,
	}
}

func TestVerifyValid(t *testing.T) {
	chain := &fakeChain{tx: confirmedTx("5.5")}
	v := NewVerifier(chain, &fakeRefs{})

	res, err := v.Verify(context.Background(), testTxID, testAddress, decimal.RequireFromString("1.0"))
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !res.Valid() {
		t.Fatalf("expected valid result, got status %d reason %q", res.Status, res.Reason)
	}
	if !res.Amount.Equal(decimal.RequireFromString("5.5")) {
		t.Errorf("expected amount 5.5, got %s", res.Amount)
	}
	if !res.Confirmed {
		t.Error("expected confirmed result")
	}
}

func TestVerifyMalformedIDSkipsNetwork(t *testing.T) {
	for _, txID := range []string{
		"",
		"abc123",
		strings.Repeat("g", 64),
		strings.Repeat("a", 63),
		strings.Repeat("a", 65),
	} {
		chain := &fakeChain{}
		refs := &fakeRefs{}
		v := NewVerifier(chain, refs)

		res, err := v.Verify(context.Background(), txID, testAddress, decimal.Zero)
		if err != nil {
			t.Fatalf("Verify(%q) returned error: %v", txID, err)
		}
		if res.Status != StatusInvalid || res.Reason != ReasonMalformedID {
			t.Errorf("Verify(%q): expected malformed rejection, got status %d reason %q", txID, res.Status, res.Reason)
		}
		if chain.calls != 0 || refs.calls != 0 {
			t.Errorf("Verify(%q): expected no lookups for malformed id, got chain=%d refs=%d", txID, chain.calls, refs.calls)
		}
	}
}

func TestVerifyUppercaseIDAccepted(t *testing.T) {
	chain := &fakeChain{tx: confirmedTx("2.0")}
	v := NewVerifier(chain, &fakeRefs{})

	res, err := v.Verify(context.Background(), strings.ToUpper(testTxID), testAddress, decimal.Zero)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !res.Valid() {
		t.Fatalf("expected uppercase hex id to be accepted, got reason %q", res.Reason)
	}
}

func TestVerifyDuplicateBeforeChain(t *testing.T) {
	chain := &fakeChain{tx: confirmedTx("5.0")}
	refs := &fakeRefs{record: &models.TransactionRecord{ID: 7, UserID: 42}}
	v := NewVerifier(chain, refs)

	res, err := v.Verify(context.Background(), testTxID, testAddress, decimal.Zero)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if res.Status != StatusInvalid || res.Reason != ReasonAlreadyUsed {
		t.Fatalf("expected duplicate rejection, got status %d reason %q", res.Status, res.Reason)
	}
	if chain.calls != 0 {
		t.Errorf("expected no chain call for duplicate id, got %d", chain.calls)
	}
}

func TestVerifyDuplicateCaseInsensitive(t *testing.T) {
	chain := &fakeChain{tx: confirmedTx("5.0")}
	refs := &fakeRefs{record: &models.TransactionRecord{ID: 7, UserID: 42, ExternalRef: testTxID}}
	v := NewVerifier(chain, refs)

	// The credited entry stores the lowercase id; an uppercase resubmission
	// must still be caught before any network call.
	res, err := v.Verify(context.Background(), strings.ToUpper(testTxID), testAddress, decimal.Zero)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if res.Status != StatusInvalid || res.Reason != ReasonAlreadyUsed {
		t.Fatalf("expected duplicate rejection, got status %d reason %q", res.Status, res.Reason)
	}
	if refs.lastRef != testTxID {
		t.Errorf("expected lowercase lookup %q, got %q", testTxID, refs.lastRef)
	}
	if chain.calls != 0 {
		t.Errorf("expected no chain call for case-variant duplicate, got %d", chain.calls)
	}
}

func TestVerifyDuplicateCheckError(t *testing.T) {
	refs := &fakeRefs{err: errors.New("db closed")}
	v := NewVerifier(&fakeChain{}, refs)

	_, err := v.Verify(context.Background(), testTxID, testAddress, decimal.Zero)
	if err == nil {
		t.Fatal("expected error when duplicate check fails")
	}
}

func TestVerifyLookupFailure(t *testing.T) {
	chain := &fakeChain{err: errors.New("all providers unreachable")}
	v := NewVerifier(chain, &fakeRefs{})

	res, err := v.Verify(context.Background(), testTxID, testAddress, decimal.Zero)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if res.Status != StatusLookupFailed {
		t.Fatalf("expected lookup failure status, got %d", res.Status)
	}
}

func TestVerifyNotFound(t *testing.T) {
	v := NewVerifier(&fakeChain{}, &fakeRefs{})

	res, err := v.Verify(context.Background(), testTxID, testAddress, decimal.Zero)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if res.Status != StatusInvalid || res.Reason != ReasonNotFound {
		t.Fatalf("expected not-found rejection, got status %d reason %q", res.Status, res.Reason)
	}
}

func TestVerifyUnconfirmed(t *testing.T) {
	tx := confirmedTx("5.0")
	tx.Confirmed = false
	v := NewVerifier(&fakeChain{tx: tx}, &fakeRefs{})

	res, err := v.Verify(context.Background(), testTxID, testAddress, decimal.Zero)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if res.Status != StatusInvalid || res.Reason != ReasonNotConfirmed {
		t.Fatalf("expected unconfirmed rejection, got status %d reason %q", res.Status, res.Reason)
	}
	if !res.Amount.Equal(decimal.RequireFromString("5.0")) {
		t.Errorf("expected observed amount on rejection, got %s", res.Amount)
	}
}

func TestVerifyWrongDestination(t *testing.T) {
	tx := confirmedTx("5.0")
	tx.ToAddress = "TN3W4H6rK2ce4vX9YnFQHwKENnHjoxb3m9"
	v := NewVerifier(&fakeChain{tx: tx}, &fakeRefs{})

	res, err := v.Verify(context.Background(), testTxID, testAddress, decimal.Zero)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if res.Status != StatusInvalid || res.Reason != ReasonWrongDestination {
		t.Fatalf("expected wrong-destination rejection, got status %d reason %q", res.Status, res.Reason)
	}
}

func TestVerifyDestinationCaseInsensitive(t *testing.T) {
	tx := confirmedTx("5.0")
	tx.ToAddress = strings.ToLower(testAddress)
	v := NewVerifier(&fakeChain{tx: tx}, &fakeRefs{})

	res, err := v.Verify(context.Background(), testTxID, testAddress, decimal.Zero)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !res.Valid() {
		t.Fatalf("expected case-insensitive destination match, got reason %q", res.Reason)
	}
}

func TestVerifyAmountTooLow(t *testing.T) {
	v := NewVerifier(&fakeChain{tx: confirmedTx("0.5")}, &fakeRefs{})

	res, err := v.Verify(context.Background(), testTxID, testAddress, decimal.RequireFromString("1.0"))
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if res.Status != StatusInvalid {
		t.Fatalf("expected rejection, got status %d", res.Status)
	}
	if !strings.HasPrefix(res.Reason, ReasonAmountTooLow) {
		t.Errorf("expected amount-too-low reason, got %q", res.Reason)
	}
	if !res.Amount.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("expected observed amount 0.5, got %s", res.Amount)
	}
}

func TestVerifyExactMinimumAccepted(t *testing.T) {
	v := NewVerifier(&fakeChain{tx: confirmedTx("1.0")}, &fakeRefs{})

	res, err := v.Verify(context.Background(), testTxID, testAddress, decimal.RequireFromString("1.0"))
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !res.Valid() {
		t.Fatalf("expected exact-minimum payment to pass, got reason %q", res.Reason)
	}
}
