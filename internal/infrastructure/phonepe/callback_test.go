package phonepe

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callbackClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(testConfig())
	require.NoError(t, err)
	return c
}

func legacyBody(t *testing.T, saltKey, saltIndex string, payload map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	response := base64.StdEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(response + saltKey))
	body, err := json.Marshal(map[string]string{
		"response": response,
		"checksum": hex.EncodeToString(sum[:]) + "###" + saltIndex,
	})
	require.NoError(t, err)
	return body
}

func legacyPaymentPayload(state string) map[string]any {
	return map[string]any{
		"success": true,
		"code":    "PAYMENT_SUCCESS",
		"data": map[string]any{
			"merchantId":            "TESTMERCHANT",
			"merchantTransactionId": "TXN_7_123_1700000000000",
			"transactionId":         "T2409181234",
			"amount":                40000,
			"state":                 state,
			"responseCode":          "SUCCESS",
			"paymentInstrument":     map[string]any{"type": "UPI"},
		},
	}
}

func TestVerifyCallback_LegacyChecksum(t *testing.T) {
	c := callbackClient(t)
	body := legacyBody(t, "salt-key-1", "1", legacyPaymentPayload("COMPLETED"))

	ev, err := c.VerifyCallback(body, "")
	require.NoError(t, err)

	assert.Equal(t, "TXN_7_123_1700000000000", ev.MerchantOrderID)
	assert.Equal(t, "COMPLETED", ev.State)
	assert.Equal(t, "T2409181234", ev.TransactionID)
	assert.EqualValues(t, 40000, ev.AmountPaise)
	assert.Equal(t, "UPI", ev.PaymentMethod)
}

func TestVerifyCallback_LegacyWrongSaltKey(t *testing.T) {
	c := callbackClient(t)
	body := legacyBody(t, "some-other-salt", "1", legacyPaymentPayload("COMPLETED"))

	_, err := c.VerifyCallback(body, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyCallback_LegacyWrongSaltIndex(t *testing.T) {
	c := callbackClient(t)
	body := legacyBody(t, "salt-key-1", "2", legacyPaymentPayload("COMPLETED"))

	_, err := c.VerifyCallback(body, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyCallback_LegacyStateFallsBackToCode(t *testing.T) {
	c := callbackClient(t)
	payload := legacyPaymentPayload("")
	body := legacyBody(t, "salt-key-1", "1", payload)

	ev, err := c.VerifyCallback(body, "")
	require.NoError(t, err)
	assert.Equal(t, "PAYMENT_SUCCESS", ev.State)
}

func webhookAuth(clientID, clientSecret string) string {
	sum := sha256.Sum256([]byte(clientID + ":" + clientSecret))
	return hex.EncodeToString(sum[:])
}

func webhookBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": "checkout.order.completed",
		"payload": map[string]any{
			"merchantOrderId": "TXN_7_123_1700000000000",
			"orderId":         "OMO2409181234",
			"state":           "COMPLETED",
			"amount":          40000,
			"paymentDetails": []map[string]any{
				{"transactionId": "T2409181234", "paymentMode": "UPI_QR"},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func TestVerifyCallback_Webhook(t *testing.T) {
	c := callbackClient(t)

	ev, err := c.VerifyCallback(webhookBody(t), webhookAuth("TEST_CLIENT", "test-secret"))
	require.NoError(t, err)

	assert.Equal(t, "TXN_7_123_1700000000000", ev.MerchantOrderID)
	assert.Equal(t, "OMO2409181234", ev.OrderID)
	assert.Equal(t, "COMPLETED", ev.State)
	assert.Equal(t, "T2409181234", ev.TransactionID)
	assert.Equal(t, "UPI_QR", ev.PaymentMethod)
}

func TestVerifyCallback_WebhookBearerPrefixAccepted(t *testing.T) {
	c := callbackClient(t)

	_, err := c.VerifyCallback(webhookBody(t), "Bearer "+webhookAuth("TEST_CLIENT", "test-secret"))
	require.NoError(t, err)
}

func TestVerifyCallback_WebhookWrongCredential(t *testing.T) {
	c := callbackClient(t)

	_, err := c.VerifyCallback(webhookBody(t), webhookAuth("TEST_CLIENT", "wrong-secret"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = c.VerifyCallback(webhookBody(t), "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyCallback_GarbageBody(t *testing.T) {
	c := callbackClient(t)

	_, err := c.VerifyCallback([]byte("not json"), "")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = c.VerifyCallback([]byte(`{"unexpected":"shape"}`), "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
