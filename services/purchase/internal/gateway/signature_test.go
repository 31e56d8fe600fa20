package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coursehub/purchase-service/common/errors"
)

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHMACVerifier_Verify(t *testing.T) {
	verifier := NewHMACVerifier("test-secret")
	payload := []byte(`{"orderId":"order_1","paymentState":"captured"}`)

	assert.NoError(t, verifier.Verify(payload, sign("test-secret", payload)))
}

func TestHMACVerifier_Verify_Mismatch(t *testing.T) {
	verifier := NewHMACVerifier("test-secret")
	payload := []byte(`{"orderId":"order_1","paymentState":"captured"}`)

	tests := []struct {
		name      string
		payload   []byte
		signature string
	}{
		{"wrong secret", payload, sign("other-secret", payload)},
		{"tampered payload", []byte(`{"orderId":"order_1","paymentState":"refunded"}`), sign("test-secret", payload)},
		{"garbage signature", payload, "deadbeef"},
		{"missing signature", payload, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.Verify(tt.payload, tt.signature)
			assert.Equal(t, errors.ErrCodeSignatureMismatch, errors.Code(err))
		})
	}
}
