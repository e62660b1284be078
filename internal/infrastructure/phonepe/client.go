// Package phonepe wraps the PhonePe payment gateway: OAuth2 token
// exchange with a shared cache, checkout order creation, order status
// polling and callback verification.
package phonepe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/config"
)

// refresh this long before expires_at to avoid using a token that dies mid-flight
const tokenExpiryMargin = 60 * time.Second

type Client struct {
	cfg config.PSPConfig
	env Environment

	tokenClient  *http.Client
	orderClient  *http.Client
	statusClient *http.Client

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
	sf          singleflight.Group

	txnMu     sync.Mutex
	lastTxnMs int64

	now func() time.Time
}

// New builds a client for the configured environment. Order and status
// calls use independent bounded timeouts.
func New(cfg config.PSPConfig) (*Client, error) {
	env, err := EnvironmentFor(cfg.Environment)
	if err != nil {
		return nil, err
	}

	orderTimeout := cfg.OrderTimeout
	if orderTimeout == 0 {
		orderTimeout = 10 * time.Second
	}
	statusTimeout := cfg.StatusTimeout
	if statusTimeout == 0 {
		statusTimeout = 5 * time.Second
	}
	if cfg.OrderExpiry == 0 {
		cfg.OrderExpiry = 20 * time.Minute
	}

	return &Client{
		cfg:          cfg,
		env:          env,
		tokenClient:  &http.Client{Timeout: orderTimeout},
		orderClient:  &http.Client{Timeout: orderTimeout},
		statusClient: &http.Client{Timeout: statusTimeout},
		now:          time.Now,
	}, nil
}

// MerchantTransactionID returns TXN_<userId>_<appointmentId>_<epochMillis>,
// unique per attempt even for back-to-back calls in the same millisecond.
func (c *Client) MerchantTransactionID(userID, appointmentID int64) string {
	c.txnMu.Lock()
	ms := c.now().UnixMilli()
	if ms <= c.lastTxnMs {
		ms = c.lastTxnMs + 1
	}
	c.lastTxnMs = ms
	c.txnMu.Unlock()

	return fmt.Sprintf("TXN_%d_%d_%d", userID, appointmentID, ms)
}

// Paise converts a rupee amount to integer minor units. This is the only
// place decimal money crosses into integers.
func Paise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
	IssuedAt    int64  `json:"issued_at"`
}

// Token returns a cached access token, refreshing it through the
// client_credentials grant when absent or close to expiry. Concurrent
// callers collapse onto one upstream request.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	token, expiresAt := c.accessToken, c.expiresAt
	c.mu.RUnlock()

	if token != "" && c.now().Before(expiresAt.Add(-tokenExpiryMargin)) {
		return token, nil
	}

	v, err, _ := c.sf.Do("token", func() (interface{}, error) {
		// another caller may have refreshed while we queued
		c.mu.RLock()
		token, expiresAt := c.accessToken, c.expiresAt
		c.mu.RUnlock()
		if token != "" && c.now().Before(expiresAt.Add(-tokenExpiryMargin)) {
			return token, nil
		}
		return c.refreshToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_version", c.cfg.ClientVersion)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.env.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.tokenClient.Do(req)
	if err != nil {
		return "", &AuthError{Code: "TOKEN_REQUEST_FAILED", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(body, &errResp)
		if errResp.Code == "" {
			errResp.Code = "TOKEN_EXCHANGE_FAILED"
		}
		return "", &AuthError{Code: errResp.Code, Message: errResp.Message, StatusCode: resp.StatusCode}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", &AuthError{Code: "TOKEN_DECODE_FAILED", Message: err.Error(), StatusCode: resp.StatusCode}
	}
	if tok.AccessToken == "" {
		return "", &AuthError{Code: "TOKEN_EMPTY", Message: "token endpoint returned no access_token", StatusCode: resp.StatusCode}
	}

	c.mu.Lock()
	c.accessToken = tok.AccessToken
	// expires_at is absolute epoch seconds
	c.expiresAt = time.Unix(tok.ExpiresAt, 0)
	c.mu.Unlock()

	return tok.AccessToken, nil
}

// OrderRequest describes one checkout order.
type OrderRequest struct {
	MerchantOrderID string
	AmountPaise     int64
	ExpireAfter     time.Duration
	Message         string
	UDF1            string
	UDF2            string
	UDF3            string
}

// OrderResponse is the PSP's answer to order creation.
type OrderResponse struct {
	OrderID     string `json:"orderId"`
	State       string `json:"state"`
	ExpireAt    int64  `json:"expireAt"`
	RedirectURL string `json:"redirectUrl"`
}

type orderRequestBody struct {
	MerchantOrderID string      `json:"merchantOrderId"`
	Amount          int64       `json:"amount"`
	ExpireAfter     int64       `json:"expireAfter,omitempty"`
	MetaInfo        metaInfo    `json:"metaInfo"`
	PaymentFlow     paymentFlow `json:"paymentFlow"`
}

type metaInfo struct {
	UDF1 string `json:"udf1,omitempty"`
	UDF2 string `json:"udf2,omitempty"`
	UDF3 string `json:"udf3,omitempty"`
}

type paymentFlow struct {
	Type         string       `json:"type"`
	Message      string       `json:"message,omitempty"`
	MerchantUrls merchantUrls `json:"merchantUrls"`
}

type merchantUrls struct {
	RedirectURL string `json:"redirectUrl"`
}

// CreateOrder creates a PG_CHECKOUT order and returns the payer redirect URL.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	expireAfter := req.ExpireAfter
	if expireAfter == 0 {
		expireAfter = c.cfg.OrderExpiry
	}

	body := orderRequestBody{
		MerchantOrderID: req.MerchantOrderID,
		Amount:          req.AmountPaise,
		ExpireAfter:     int64(expireAfter.Seconds()),
		MetaInfo:        metaInfo{UDF1: req.UDF1, UDF2: req.UDF2, UDF3: req.UDF3},
		PaymentFlow: paymentFlow{
			Type:         "PG_CHECKOUT",
			Message:      req.Message,
			MerchantUrls: merchantUrls{RedirectURL: c.cfg.RedirectURL},
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshalling order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.env.OrderURL, strings.NewReader(string(jsonData)))
	if err != nil {
		return nil, fmt.Errorf("error creating order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "O-Bearer "+token)

	resp, err := c.orderClient.Do(httpReq)
	if err != nil {
		return nil, &OrderError{Code: "ORDER_REQUEST_FAILED", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(respBody, &errResp)
		if errResp.Code == "" {
			errResp.Code = "ORDER_CREATION_FAILED"
		}
		return nil, &OrderError{Code: errResp.Code, Message: errResp.Message, StatusCode: resp.StatusCode}
	}

	var orderResp OrderResponse
	if err := json.Unmarshal(respBody, &orderResp); err != nil {
		return nil, &OrderError{Code: "ORDER_DECODE_FAILED", Message: err.Error(), StatusCode: resp.StatusCode}
	}

	return &orderResp, nil
}

// StatusResponse is the canonical view of an order status poll.
type StatusResponse struct {
	State         string
	Code          string
	Message       string
	AmountPaise   int64
	OrderID       string
	TransactionID string
	PaymentMethod string
	Raw           json.RawMessage
}

type statusResponseBody struct {
	OrderID        string `json:"orderId"`
	State          string `json:"state"`
	Amount         int64  `json:"amount"`
	ExpireAt       int64  `json:"expireAt"`
	ErrorCode      string `json:"errorCode"`
	Message        string `json:"message"`
	PaymentDetails []struct {
		TransactionID string `json:"transactionId"`
		PaymentMode   string `json:"paymentMode"`
		State         string `json:"state"`
		ErrorCode     string `json:"errorCode"`
	} `json:"paymentDetails"`
}

// OrderStatus polls the order status endpoint. A 404 means the payer has
// not reached the PSP yet and surfaces as ErrPendingUnseen.
func (c *Client) OrderStatus(ctx context.Context, merchantOrderID string) (*StatusResponse, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	statusURL := fmt.Sprintf("%s/%s/status", c.env.StatusBaseURL, merchantOrderID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "O-Bearer "+token)

	resp, err := c.statusClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error requesting order status: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPendingUnseen
	}
	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(respBody, &errResp)
		if errResp.Code == "" {
			errResp.Code = "STATUS_CHECK_FAILED"
		}
		return nil, &OrderError{Code: errResp.Code, Message: errResp.Message, StatusCode: resp.StatusCode}
	}

	var statusBody statusResponseBody
	if err := json.Unmarshal(respBody, &statusBody); err != nil {
		return nil, fmt.Errorf("error decoding status response: %w", err)
	}

	out := &StatusResponse{
		State:       statusBody.State,
		Code:        statusBody.ErrorCode,
		Message:     statusBody.Message,
		AmountPaise: statusBody.Amount,
		OrderID:     statusBody.OrderID,
		Raw:         json.RawMessage(respBody),
	}
	if len(statusBody.PaymentDetails) > 0 {
		latest := statusBody.PaymentDetails[len(statusBody.PaymentDetails)-1]
		out.TransactionID = latest.TransactionID
		out.PaymentMethod = latest.PaymentMode
		if out.Code == "" {
			out.Code = latest.ErrorCode
		}
	}

	return out, nil
}
