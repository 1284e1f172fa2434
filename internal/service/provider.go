package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"bookpay/internal/config"
	"bookpay/internal/domain"
)

// ProviderGateway is the interface for confirming a payment reference
// against the provider's transaction status API.
type ProviderGateway interface {
	Confirm(ctx context.Context, reference string) (*ProviderConfirmation, error)
}

// ProviderConfirmation is the provider's authoritative view of a transaction.
type ProviderConfirmation struct {
	Reference string
	Status    domain.ProviderStatus
	Amount    decimal.Decimal
	Currency  domain.Currency
}

// ProviderClient calls the provider's transaction verification API with
// server-held credentials. A signature-valid webhook still goes through
// Confirm: the signature proves origin, not that the referenced transaction
// is genuinely in the claimed state.
type ProviderClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client

	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
}

// NewProviderClient creates a new ProviderClient from provider configuration.
func NewProviderClient(cfg config.ProviderConfig) *ProviderClient {
	return &ProviderClient{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		retryAttempts:  cfg.RetryAttempts,
		retryBaseDelay: cfg.RetryBaseDelay,
		retryMaxDelay:  cfg.RetryMaxDelay,
	}
}

// verifyResponse mirrors the provider's transaction verification envelope.
type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

// Confirm fetches the authoritative transaction state for a reference.
// Transient failures (network errors, 5xx) are retried with exponential
// backoff; an unknown reference or provider rejection is terminal.
func (c *ProviderClient) Confirm(ctx context.Context, reference string) (*ProviderConfirmation, error) {
	if reference == "" {
		return nil, ErrInvalidPaymentReference
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))

	attempts := c.retryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := c.retryBaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
			}
			delay *= 2
			if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
				delay = c.retryMaxDelay
			}
		}

		confirmation, retryable, err := c.doConfirm(ctx, endpoint)
		if err == nil {
			return confirmation, nil
		}
		if !retryable {
			return nil, err
		}

		lastErr = err
		log.Printf("provider verify attempt %d/%d failed: %v", attempt, attempts, err)
	}

	return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, lastErr)
}

// doConfirm performs one verification request. The second return value
// reports whether the failure is transient.
func (c *ProviderClient) doConfirm(ctx context.Context, endpoint string) (*ProviderConfirmation, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("provider returned status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, ErrInvalidReference
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("%w: status %d", ErrProviderRejected, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, err
	}

	var payload verifyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}

	if !payload.Status {
		return nil, false, ErrInvalidReference
	}

	status := domain.ProviderStatus(payload.Data.Status)
	if _, ok := status.TargetStatus(); !ok {
		return nil, false, fmt.Errorf("%w: unknown transaction status %q", ErrProviderRejected, payload.Data.Status)
	}

	currency, err := domain.ParseCurrency(payload.Data.Currency)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}

	return &ProviderConfirmation{
		Reference: payload.Data.Reference,
		Status:    status,
		// The provider reports amounts in minor units.
		Amount:   decimal.New(payload.Data.Amount, -2),
		Currency: currency,
	}, false, nil
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
