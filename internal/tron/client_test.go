package tron

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"apk-signer-go/internal/models"

	"github.com/shopspring/decimal"
)

const testTxID = "6dd94d067e27f802480a636c46810a8aa9ee0d4f6dd94d067e27f802480a636c"

func tronGridBody(amount int64, contractRet string) string {
	return fmt.Sprintf(`{
		"data": [{
			"txID": "%s",
			"blockNumber": 65000000,
			"ret": [{"contractRet": "%s"}],
			"raw_data": {
				"timestamp": 1724800000000,
				"contract": [{
					"type": "TransferContract",
					"parameter": {
						"value": {
							"amount": %d,
							"owner_address": "41a614f803b6fd780986a42c78ec9c7f77e6ded13c",
							"to_address": "416dd94d067e27f802480a636c46810a8aa9ee0d4f"
						}
					}
				}]
			}
		}]
	}`, testTxID, contractRet, amount)
}

func tronScanBody(amount int64, confirmed bool) string {
	return fmt.Sprintf(`{
		"hash": "%s",
		"block": 65000000,
		"timestamp": 1724800000000,
		"confirmed": %t,
		"contractRet": "SUCCESS",
		"contractType": 1,
		"ownerAddress": "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		"toAddress": "%s",
		"amount": %d
	}`, testTxID, confirmed, goldenBase58, amount)
}

func newTestClient(t *testing.T, primary, fallback http.Handler) *Client {
	t.Helper()

	primarySrv := httptest.NewServer(primary)
	t.Cleanup(primarySrv.Close)
	fallbackSrv := httptest.NewServer(fallback)
	t.Cleanup(fallbackSrv.Close)

	client, err := NewClient(models.TronConfig{
		PrimaryBaseURL:  primarySrv.URL,
		FallbackBaseURL: fallbackSrv.URL,
		RequestTimeout:  2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": []}`)
	})
}

func TestGetTransactionPrimary(t *testing.T) {
	var fallbackCalls int
	client := newTestClient(t,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/transactions/"+testTxID {
				t.Errorf("unexpected primary path %s", r.URL.Path)
			}
			fmt.Fprint(w, tronGridBody(5_500_000, "SUCCESS"))
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fallbackCalls++
		}),
	)

	tx, err := client.GetTransaction(context.Background(), testTxID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx == nil {
		t.Fatal("expected transaction")
	}
	if !tx.Amount.Equal(decimal.RequireFromString("5.5")) {
		t.Errorf("expected 5.5 TRX, got %s", tx.Amount)
	}
	if !tx.Confirmed {
		t.Error("expected confirmed transaction")
	}
	if tx.ToAddress != goldenBase58 {
		t.Errorf("expected normalized destination %s, got %s", goldenBase58, tx.ToAddress)
	}
	if fallbackCalls != 0 {
		t.Errorf("fallback must not be called when primary answers, got %d calls", fallbackCalls)
	}
}

func TestGetTransactionUnconfirmed(t *testing.T) {
	client := newTestClient(t,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, tronGridBody(5_500_000, "REVERT"))
		}),
		notFoundHandler(),
	)

	tx, err := client.GetTransaction(context.Background(), testTxID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx == nil {
		t.Fatal("expected transaction")
	}
	if tx.Confirmed {
		t.Error("REVERT result must read as unconfirmed")
	}
}

func TestGetTransactionFallsBack(t *testing.T) {
	client := newTestClient(t,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("hash") != testTxID {
				t.Errorf("unexpected hash query %q", r.URL.Query().Get("hash"))
			}
			fmt.Fprint(w, tronScanBody(2_000_000, true))
		}),
	)

	tx, err := client.GetTransaction(context.Background(), testTxID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx == nil {
		t.Fatal("expected transaction from fallback")
	}
	if !tx.Amount.Equal(decimal.RequireFromString("2")) {
		t.Errorf("expected 2 TRX, got %s", tx.Amount)
	}
	if tx.ToAddress != goldenBase58 {
		t.Errorf("unexpected destination %s", tx.ToAddress)
	}
}

func TestGetTransactionNotFoundOnBoth(t *testing.T) {
	client := newTestClient(t,
		notFoundHandler(),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// TronScan reports unknown hashes with an empty object.
			fmt.Fprint(w, `{}`)
		}),
	)

	tx, err := client.GetTransaction(context.Background(), testTxID)
	if err != nil {
		t.Fatalf("expected clean not-found, got %v", err)
	}
	if tx != nil {
		t.Fatalf("expected nil transaction, got %+v", tx)
	}
}

func TestGetTransactionBothProvidersDown(t *testing.T) {
	down := httptest.NewServer(nil)
	down.Close() // connection refused from here on

	client, err := NewClient(models.TronConfig{
		PrimaryBaseURL:  down.URL,
		FallbackBaseURL: down.URL,
		RequestTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.GetTransaction(context.Background(), testTxID)
	if !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("expected ErrLookupFailed, got %v", err)
	}
}

func TestGetTransactionPrimaryDownFallbackNotFound(t *testing.T) {
	down := httptest.NewServer(nil)
	down.Close()

	fallbackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(fallbackSrv.Close)

	client, err := NewClient(models.TronConfig{
		PrimaryBaseURL:  down.URL,
		FallbackBaseURL: fallbackSrv.URL,
		RequestTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	// Absence is only trusted when both providers answered; a one-sided
	// not-found must stay retryable.
	_, err = client.GetTransaction(context.Background(), testTxID)
	if !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("expected ErrLookupFailed, got %v", err)
	}
}

func TestGetTransactionNonTransferIgnored(t *testing.T) {
	body := fmt.Sprintf(`{
		"data": [{
			"txID": "%s",
			"ret": [{"contractRet": "SUCCESS"}],
			"raw_data": {
				"contract": [{
					"type": "TriggerSmartContract",
					"parameter": {"value": {"amount": 1000000}}
				}]
			}
		}]
	}`, testTxID)

	client := newTestClient(t,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}),
	)

	tx, err := client.GetTransaction(context.Background(), testTxID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx != nil {
		t.Fatalf("non-transfer contract must read as not found, got %+v", tx)
	}
}

func TestGetTransactionTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	client := newTestClient(t, slow, slow)
	client.timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := client.GetTransaction(context.Background(), testTxID)
	if !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("expected ErrLookupFailed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("lookup took %s, per-call timeout not applied", elapsed)
	}
}

func TestNormalizeTronScanTRC20Preferred(t *testing.T) {
	tx := &tronScanTransaction{
		Hash:        testTxID,
		Confirmed:   true,
		ContractRet: "SUCCESS",
		TRC20Xfers: []struct {
			FromAddress string `json:"from_address"`
			ToAddress   string `json:"to_address"`
			Quant       string `json:"quant"`
		}{
			{FromAddress: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", ToAddress: goldenBase58, Quant: "3000000"},
		},
	}

	got := normalizeTronScan(tx)
	if got == nil {
		t.Fatal("expected transaction")
	}
	if !got.Amount.Equal(decimal.RequireFromString("3")) {
		t.Errorf("expected 3 TRX, got %s", got.Amount)
	}
}
