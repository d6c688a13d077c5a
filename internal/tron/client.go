package tron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"apk-signer-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// ErrLookupFailed means neither provider could be reached (or answered in
// time). Callers should treat it as "retry later", never as "invalid".
var ErrLookupFailed = errors.New("chain lookup failed")

// sunPerTRX converts on-chain SUN amounts to TRX.
const sunPerTRX = 1_000_000

var sunDivisor = decimal.NewFromInt(sunPerTRX)

type Client struct {
	httpClient      *http.Client
	primaryBaseURL  string
	fallbackBaseURL string
	timeout         time.Duration
}

func NewClient(cfg models.TronConfig) (*Client, error) {
	httpClient, err := createCustomHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient:      httpClient,
		primaryBaseURL:  cfg.PrimaryBaseURL,
		fallbackBaseURL: cfg.FallbackBaseURL,
		timeout:         timeout,
	}, nil
}

func createCustomHTTPClient() (*http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	return &http.Client{Transport: tr}, nil
}

// GetTransaction fetches and normalizes an on-chain transaction. TronGrid
// is queried first; on transport failure or a not-found answer the call
// falls back to TronScan once. A nil, nil return means both providers
// confirmed the id does not exist (or is not a plain transfer); only
// transport-level trouble produces ErrLookupFailed.
func (c *Client) GetTransaction(ctx context.Context, txID string) (*models.ChainTransaction, error) {
	tx, primaryErr := c.fetchFromTronGrid(ctx, txID)
	if primaryErr == nil && tx != nil {
		return tx, nil
	}
	if primaryErr != nil {
		zap.L().Warn("Primary provider lookup failed, falling back",
			zap.String("tx_id", txID),
			zap.Error(primaryErr))
	}

	tx, fallbackErr := c.fetchFromTronScan(ctx, txID)
	if fallbackErr == nil && tx != nil {
		return tx, nil
	}

	if fallbackErr != nil {
		zap.L().Error("Fallback provider lookup failed",
			zap.String("tx_id", txID),
			zap.Error(fallbackErr))
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, fallbackErr)
	}
	if primaryErr != nil {
		// Fallback says not found but the primary never answered; absence
		// is only trusted when both providers confirmed it.
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, primaryErr)
	}

	zap.L().Info("Transaction not found on chain", zap.String("tx_id", txID))
	return nil, nil
}

func (c *Client) fetchFromTronGrid(ctx context.Context, txID string) (*models.ChainTransaction, error) {
	body, status, err := c.get(ctx, fmt.Sprintf("%s/v1/transactions/%s", c.primaryBaseURL, txID))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		zap.L().Debug("TronGrid returned non-OK status",
			zap.String("tx_id", txID),
			zap.Int("status", status))
		return nil, nil
	}

	var response tronGridResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("unable to decode trongrid response: %w", err)
	}
	if len(response.Data) == 0 {
		return nil, nil
	}
	return normalizeTronGrid(&response.Data[0]), nil
}

func (c *Client) fetchFromTronScan(ctx context.Context, txID string) (*models.ChainTransaction, error) {
	endpoint := fmt.Sprintf("%s/transaction-info?hash=%s", c.fallbackBaseURL, url.QueryEscape(txID))
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		zap.L().Debug("TronScan returned non-OK status",
			zap.String("tx_id", txID),
			zap.Int("status", status))
		return nil, nil
	}

	var response tronScanTransaction
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("unable to decode tronscan response: %w", err)
	}
	return normalizeTronScan(&response), nil
}

// get performs one bounded request. Every call gets its own timeout so a
// hung provider cannot stall the verification flow.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	body, err := readAllBounded(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("unable to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// Responses larger than this are truncated; a transaction payload is a few
// kilobytes at most.
const maxResponseBytes = 1 << 20

func readAllBounded(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxResponseBytes))
}

// normalizeTronGrid maps the TronGrid shape. Only plain TRX transfers are
// accepted; anything else reads as not found.
func normalizeTronGrid(tx *tronGridTransaction) *models.ChainTransaction {
	if len(tx.RawData.Contract) == 0 {
		return nil
	}

	contract := tx.RawData.Contract[0]
	if contract.Type != transferContractType {
		return nil
	}

	confirmed := len(tx.Ret) > 0 && tx.Ret[0].ContractRet == "SUCCESS"
	value := contract.Parameter.Value

	return &models.ChainTransaction{
		TxID:        tx.TxID,
		FromAddress: normalizeAddress(value.OwnerAddress),
		ToAddress:   normalizeAddress(value.ToAddress),
		Amount:      decimal.NewFromInt(value.Amount).Div(sunDivisor),
		Confirmed:   confirmed,
		Timestamp:   tx.RawData.Timestamp,
		BlockNumber: tx.BlockNumber,
	}
}

// normalizeTronScan maps the TronScan shape: TRC20 transfer entries first,
// then the plain transfer contract.
func normalizeTronScan(tx *tronScanTransaction) *models.ChainTransaction {
	if tx.ContractRet == "" {
		return nil
	}

	if len(tx.TRC20Xfers) > 0 {
		transfer := tx.TRC20Xfers[0]
		quant, err := decimal.NewFromString(transfer.Quant)
		if err != nil {
			zap.L().Warn("Unparseable TRC20 amount",
				zap.String("tx_id", tx.Hash),
				zap.String("quant", transfer.Quant))
			return nil
		}
		return &models.ChainTransaction{
			TxID:        tx.Hash,
			FromAddress: normalizeAddress(transfer.FromAddress),
			ToAddress:   normalizeAddress(transfer.ToAddress),
			Amount:      quant.Div(sunDivisor),
			Confirmed:   tx.Confirmed,
			Timestamp:   tx.Timestamp,
			BlockNumber: tx.Block,
		}
	}

	if tx.ContractType == tronScanTransferTypeID {
		return &models.ChainTransaction{
			TxID:        tx.Hash,
			FromAddress: normalizeAddress(tx.OwnerAddress),
			ToAddress:   normalizeAddress(tx.ToAddress),
			Amount:      decimal.NewFromInt(tx.Amount).Div(sunDivisor),
			Confirmed:   tx.Confirmed,
			Timestamp:   tx.Timestamp,
			BlockNumber: tx.Block,
		}
	}

	return nil
}
