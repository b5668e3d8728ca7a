// Package billing talks to the external billing-account provisioner.
//
// The remote call is blocking with a bounded per-attempt timeout and bounded
// retries with exponential backoff. Repeating the call for the same patient
// id is safe: the provisioner de-duplicates by patient id, and the attempt
// store records dispatches locally so a lost response never turns into a
// second account.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"patientflow/internal/platform/config"
	id "patientflow/pkg/domain"
	"patientflow/pkg/platform/sentinel"
)

// Account is the provisioned billing-account handle. Status is opaque to this
// service; the provisioner owns its meaning.
type Account struct {
	AccountID id.AccountID `json:"accountId"`
	Status    string       `json:"status"`
}

type provisionRequest struct {
	PatientID string `json:"patientId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// AttemptStore durably marks provisioning dispatches per patient id, so
// retries after a lost response are observable and bounded.
type AttemptStore interface {
	// Incr records one dispatch and returns the total attempts so far.
	Incr(ctx context.Context, patientID id.PatientID) (int, error)
	// Get returns the attempts recorded so far without incrementing.
	Get(ctx context.Context, patientID id.PatientID) (int, error)
	// Reset clears the counter after a confirmed provision.
	Reset(ctx context.Context, patientID id.PatientID) error
}

// Client calls the billing provisioner over its request/response RPC surface.
type Client struct {
	http     *retryablehttp.Client
	baseURL  string
	attempts AttemptStore
	logger   *slog.Logger
}

// NewClient builds a provisioner client with bounded retry and timeout.
func NewClient(cfg config.BillingConfig, attempts AttemptStore, logger *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.RetryWait
	rc.RetryWaitMax = cfg.RetryMax
	rc.HTTPClient.Timeout = cfg.CallTimeout
	rc.Logger = nil

	return &Client{
		http:     rc,
		baseURL:  cfg.BaseURL,
		attempts: attempts,
		logger:   logger,
	}
}

// Provision converts a patient identity into a billing-account handle.
// Exhausted retries return an error wrapping sentinel.ErrUnavailable; the
// failure is never swallowed.
func (c *Client) Provision(ctx context.Context, patientID id.PatientID, name, email string) (*Account, error) {
	attempt, err := c.attempts.Incr(ctx, patientID)
	if err != nil {
		// The marker is bookkeeping; a marker failure must not block
		// provisioning itself.
		c.logger.WarnContext(ctx, "billing attempt marker failed",
			"patient_id", patientID.String(),
			"error", err.Error(),
		)
	}

	body, err := json.Marshal(provisionRequest{
		PatientID: patientID.String(),
		Name:      name,
		Email:     email,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal provision request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/billing-accounts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build provision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The provisioner de-duplicates on this key, so a retried call whose
	// first attempt succeeded cannot create a second account.
	req.Header.Set("Idempotency-Key", patientID.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("billing provision for %s (attempt %d): %w: %w",
			patientID, attempt, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("billing provision for %s: status %d: %w",
			patientID, resp.StatusCode, sentinel.ErrUnavailable)
	}

	var account Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("decode provision response: %w", err)
	}
	if account.AccountID == "" {
		return nil, fmt.Errorf("billing provision for %s: empty account id: %w",
			patientID, sentinel.ErrUnavailable)
	}

	if err := c.attempts.Reset(ctx, patientID); err != nil {
		c.logger.WarnContext(ctx, "billing attempt reset failed",
			"patient_id", patientID.String(),
			"error", err.Error(),
		)
	}

	c.logger.InfoContext(ctx, "billing account provisioned",
		"patient_id", patientID.String(),
		"account_id", string(account.AccountID),
		"status", account.Status,
	)
	return &account, nil
}
