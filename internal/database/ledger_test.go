package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"apk-signer-go/internal/models"
	"apk-signer-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const testRef = "6dd94d067e27f802480a636c46810a8aa9ee0d4f6dd94d067e27f802480a636c"

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	// Every pool connection gets its own :memory: database; pin to one.
	db.SetMaxOpenConns(1)
	svc, err := NewServiceFromDB(db)
	if err != nil {
		t.Fatalf("initializing service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func seedAccount(t *testing.T, svc *Service, userID int64) {
	t.Helper()
	err := svc.UpsertAccount(context.Background(), store.UpsertAccountParams{
		UserID:   userID,
		Username: fmt.Sprintf("user%d", userID),
	})
	if err != nil {
		t.Fatalf("seeding account %d: %v", userID, err)
	}
}

func TestApplyCredit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedAccount(t, svc, 1)

	newBalance, err := svc.Apply(ctx, store.ApplyParams{
		UserID:      1,
		Amount:      decimal.RequireFromString("5.5"),
		Kind:        models.TxKindDeposit,
		ExternalRef: testRef,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !newBalance.Equal(decimal.RequireFromString("5.5")) {
		t.Errorf("expected balance 5.5, got %s", newBalance)
	}

	balance, err := svc.BalanceOf(ctx, 1)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !balance.Equal(newBalance) {
		t.Errorf("stored balance %s does not match returned %s", balance, newBalance)
	}
}

func TestApplyDebitAllowsCallerPolicy(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedAccount(t, svc, 1)

	if _, err := svc.Apply(ctx, store.ApplyParams{
		UserID: 1,
		Amount: decimal.RequireFromString("10"),
		Kind:   models.TxKindDeposit,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	newBalance, err := svc.Apply(ctx, store.ApplyParams{
		UserID: 1,
		Amount: decimal.RequireFromString("-3"),
		Kind:   models.TxKindSignFee,
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !newBalance.Equal(decimal.RequireFromString("7")) {
		t.Errorf("expected balance 7, got %s", newBalance)
	}
}

func TestApplyDuplicateExternalRef(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedAccount(t, svc, 1)
	seedAccount(t, svc, 2)

	params := store.ApplyParams{
		UserID:      1,
		Amount:      decimal.RequireFromString("5"),
		Kind:        models.TxKindDeposit,
		ExternalRef: testRef,
	}
	if _, err := svc.Apply(ctx, params); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	// Same ref again, even from another account, is refused.
	params.UserID = 2
	_, err := svc.Apply(ctx, params)
	if !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Fatalf("expected ErrDuplicateTransaction, got %v", err)
	}

	balance, err := svc.BalanceOf(ctx, 2)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("refused apply must not change balance, got %s", balance)
	}
}

func TestApplyEmptyRefNotDeduplicated(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedAccount(t, svc, 1)

	for i := 0; i < 3; i++ {
		if _, err := svc.Apply(ctx, store.ApplyParams{
			UserID: 1,
			Amount: decimal.RequireFromString("1"),
			Kind:   models.TxKindAdminCredit,
		}); err != nil {
			t.Fatalf("apply %d without ref: %v", i, err)
		}
	}

	balance, err := svc.BalanceOf(ctx, 1)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("3")) {
		t.Errorf("expected 3 unreferenced credits to stack, got %s", balance)
	}
}

func TestApplyUnknownAccount(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Apply(context.Background(), store.ApplyParams{
		UserID: 404,
		Amount: decimal.RequireFromString("5"),
		Kind:   models.TxKindDeposit,
	})
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestApplyRequiresKind(t *testing.T) {
	svc := newTestService(t)
	seedAccount(t, svc, 1)

	if _, err := svc.Apply(context.Background(), store.ApplyParams{
		UserID: 1,
		Amount: decimal.RequireFromString("5"),
	}); err == nil {
		t.Fatal("expected apply without kind to fail")
	}
}

func TestApplyConcurrentCredits(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedAccount(t, svc, 1)

	const workers = 10
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Apply(ctx, store.ApplyParams{
				UserID:      1,
				Amount:      decimal.RequireFromString("1"),
				Kind:        models.TxKindDeposit,
				ExternalRef: fmt.Sprintf("%058dabcdef", n),
			})
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent apply: %v", err)
		}
	}

	balance, err := svc.BalanceOf(ctx, 1)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(workers)) {
		t.Errorf("expected balance %d after %d credits, got %s", workers, workers, balance)
	}
	if err := svc.Reconcile(ctx, 1); err != nil {
		t.Errorf("Reconcile: %v", err)
	}
}

func TestApplyConcurrentSameRefCreditsOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedAccount(t, svc, 1)

	const workers = 8
	var wg sync.WaitGroup
	var successes, duplicates int
	var mu sync.Mutex
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Apply(ctx, store.ApplyParams{
				UserID:      1,
				Amount:      decimal.RequireFromString("5"),
				Kind:        models.TxKindDeposit,
				ExternalRef: testRef,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, store.ErrDuplicateTransaction):
				duplicates++
			default:
				t.Errorf("unexpected apply error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly one successful credit, got %d", successes)
	}
	if duplicates != workers-1 {
		t.Errorf("expected %d duplicate rejections, got %d", workers-1, duplicates)
	}

	balance, err := svc.BalanceOf(ctx, 1)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("5")) {
		t.Errorf("expected balance 5 after racing claims, got %s", balance)
	}
}

func TestTotalsAndReconcile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedAccount(t, svc, 1)
	seedAccount(t, svc, 2)

	for userID, amount := range map[int64]string{1: "3.25", 2: "1.75"} {
		if _, err := svc.Apply(ctx, store.ApplyParams{
			UserID: userID,
			Amount: decimal.RequireFromString(amount),
			Kind:   models.TxKindDeposit,
		}); err != nil {
			t.Fatalf("credit user %d: %v", userID, err)
		}
	}

	count, err := svc.TotalAccounts(ctx)
	if err != nil {
		t.Fatalf("TotalAccounts: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 accounts, got %d", count)
	}

	total, err := svc.TotalBalance(ctx)
	if err != nil {
		t.Fatalf("TotalBalance: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("5")) {
		t.Errorf("expected total 5, got %s", total)
	}

	for _, userID := range []int64{1, 2} {
		if err := svc.Reconcile(ctx, userID); err != nil {
			t.Errorf("Reconcile user %d: %v", userID, err)
		}
	}
}

func TestReconcileDetectsDrift(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedAccount(t, svc, 1)

	if _, err := svc.Apply(ctx, store.ApplyParams{
		UserID: 1,
		Amount: decimal.RequireFromString("5"),
		Kind:   models.TxKindDeposit,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	// Corrupt the balance behind the ledger's back.
	if _, err := svc.db.ExecContext(ctx, "UPDATE users SET balance = '9' WHERE user_id = 1"); err != nil {
		t.Fatalf("corrupting balance: %v", err)
	}

	if err := svc.Reconcile(ctx, 1); err == nil {
		t.Fatal("expected reconciliation to detect the mismatch")
	}
}
