package phonepe

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// CallbackEvent is the canonical form of an inbound PSP notification,
// whichever wire shape it arrived in.
type CallbackEvent struct {
	MerchantOrderID string
	OrderID         string
	State           string
	Code            string
	AmountPaise     int64
	TransactionID   string
	PaymentMethod   string
	Raw             json.RawMessage
}

// legacyCallback is the checksum-authenticated shape:
// {response: base64(json), checksum: "sha256hex###saltIndex"}.
type legacyCallback struct {
	Response string `json:"response"`
	Checksum string `json:"checksum"`
}

type legacyPayload struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantID            string `json:"merchantId"`
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		Amount                int64  `json:"amount"`
		State                 string `json:"state"`
		ResponseCode          string `json:"responseCode"`
		PaymentInstrument     struct {
			Type string `json:"type"`
		} `json:"paymentInstrument"`
	} `json:"data"`
}

// webhookCallback is the OAuth2 notification shape, authenticated by the
// Authorization header rather than a body checksum.
type webhookCallback struct {
	Event   string `json:"event"`
	Payload struct {
		MerchantOrderID string `json:"merchantOrderId"`
		OrderID         string `json:"orderId"`
		State           string `json:"state"`
		ErrorCode       string `json:"errorCode"`
		Amount          int64  `json:"amount"`
		PaymentDetails  []struct {
			TransactionID string `json:"transactionId"`
			PaymentMode   string `json:"paymentMode"`
		} `json:"paymentDetails"`
	} `json:"payload"`
}

// VerifyCallback authenticates an inbound callback body and returns the
// canonical event. Legacy bodies verify sha256(response+saltKey) and the
// ###saltIndex suffix byte-exactly; webhook bodies verify the
// Authorization header against sha256(clientID:clientSecret).
func (c *Client) VerifyCallback(body []byte, authorization string) (*CallbackEvent, error) {
	var legacy legacyCallback
	if err := json.Unmarshal(body, &legacy); err == nil && legacy.Response != "" {
		return c.verifyLegacy(legacy)
	}

	var hook webhookCallback
	if err := json.Unmarshal(body, &hook); err != nil || hook.Payload.MerchantOrderID == "" {
		return nil, ErrInvalidSignature
	}
	if !c.verifyWebhookAuth(authorization) {
		return nil, ErrInvalidSignature
	}

	ev := &CallbackEvent{
		MerchantOrderID: hook.Payload.MerchantOrderID,
		OrderID:         hook.Payload.OrderID,
		State:           hook.Payload.State,
		Code:            hook.Payload.ErrorCode,
		AmountPaise:     hook.Payload.Amount,
		Raw:             json.RawMessage(body),
	}
	if len(hook.Payload.PaymentDetails) > 0 {
		latest := hook.Payload.PaymentDetails[len(hook.Payload.PaymentDetails)-1]
		ev.TransactionID = latest.TransactionID
		ev.PaymentMethod = latest.PaymentMode
	}
	return ev, nil
}

func (c *Client) verifyLegacy(cb legacyCallback) (*CallbackEvent, error) {
	if cb.Checksum == "" {
		return nil, ErrInvalidSignature
	}

	parts := strings.Split(cb.Checksum, "###")
	if len(parts) != 2 || parts[1] != c.cfg.SaltIndex {
		return nil, ErrInvalidSignature
	}

	sum := sha256.Sum256([]byte(cb.Response + c.cfg.SaltKey))
	expected := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(expected), []byte(parts[0])) != 1 {
		return nil, ErrInvalidSignature
	}

	decoded, err := base64.StdEncoding.DecodeString(cb.Response)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	var payload legacyPayload
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, ErrInvalidSignature
	}
	if payload.Data.MerchantTransactionID == "" {
		return nil, ErrInvalidSignature
	}

	state := payload.Data.State
	if state == "" {
		state = payload.Code
	}

	return &CallbackEvent{
		MerchantOrderID: payload.Data.MerchantTransactionID,
		OrderID:         payload.Data.TransactionID,
		State:           state,
		Code:            payload.Data.ResponseCode,
		AmountPaise:     payload.Data.Amount,
		TransactionID:   payload.Data.TransactionID,
		PaymentMethod:   payload.Data.PaymentInstrument.Type,
		Raw:             json.RawMessage(decoded),
	}, nil
}

// verifyWebhookAuth checks the out-of-band credential PhonePe sends on
// OAuth2 webhooks: SHA256 of the configured "clientID:clientSecret" pair,
// optionally Bearer-prefixed.
func (c *Client) verifyWebhookAuth(authorization string) bool {
	authorization = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(authorization), "Bearer"))
	if authorization == "" {
		return false
	}
	sum := sha256.Sum256([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(authorization)) == 1
}
