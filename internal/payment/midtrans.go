// Package payment wraps the Midtrans Snap transaction API.
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Midtrans field length limits. Longer values are truncated, not rejected.
const (
	MaxOrderIDLen  = 50
	MaxItemIDLen   = 50
	MaxItemNameLen = 50
)

const snapTransactionsPath = "/snap/v1/transactions"

type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type CustomerDetails struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
}

type ItemDetail struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int32  `json:"quantity"`
	Name     string `json:"name"`
}

type Callbacks struct {
	Finish string `json:"finish,omitempty"`
}

type creditCard struct {
	Secure bool `json:"secure"`
}

type SnapRequest struct {
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CustomerDetails    CustomerDetails    `json:"customer_details"`
	ItemDetails        []ItemDetail       `json:"item_details,omitempty"`
	Callbacks          *Callbacks         `json:"callbacks,omitempty"`
	CreditCard         creditCard         `json:"credit_card"`
}

type SnapResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// APIError is a non-2xx gateway response, carrying the body as diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("midtrans api error: %d - %s", e.StatusCode, e.Body)
}

// Client issues Snap transaction requests. Single attempt, no retry.
type Client struct {
	baseURL    string
	serverKey  string
	httpClient *http.Client
}

func NewClient(baseURL, serverKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		serverKey: serverKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateTransaction creates one Snap transaction and returns its token and
// redirect URL. Any non-2xx response is a hard failure.
func (c *Client) CreateTransaction(ctx context.Context, snapReq SnapRequest) (*SnapResponse, error) {
	snapReq.CreditCard = creditCard{Secure: true}

	body, err := json.Marshal(snapReq)
	if err != nil {
		return nil, fmt.Errorf("marshal snap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+snapTransactionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build snap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.serverKey+":")))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call snap api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snap response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var snapResp SnapResponse
	if err := json.Unmarshal(respBody, &snapResp); err != nil {
		return nil, fmt.Errorf("decode snap response: %w", err)
	}
	return &snapResp, nil
}

// Truncate bounds s to max bytes for Midtrans field limits.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}

// BatchOrderID builds a gateway order id unique per batch attempt.
func BatchOrderID() string {
	id := fmt.Sprintf("BATCH_%d_%s", time.Now().UnixMilli(), randomSuffix(6))
	return Truncate(id, MaxOrderIDLen)
}

// OrderTransactionID builds a gateway order id unique per single-order
// payment attempt.
func OrderTransactionID(orderID uuid.UUID) string {
	id := fmt.Sprintf("ORDER-%s-%d", orderID, time.Now().UnixMilli())
	return Truncate(id, MaxOrderIDLen)
}
