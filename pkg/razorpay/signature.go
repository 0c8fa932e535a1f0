package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the lowercase hex HMAC-SHA256 of message under secret.
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks the checkout callback signature, computed over
// "<gatewayOrderID>|<gatewayPaymentID>" with the key secret.
func VerifyPaymentSignature(keySecret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	if keySecret == "" || gatewayOrderID == "" || gatewayPaymentID == "" {
		return false
	}
	return equalHex(Sign(keySecret, []byte(gatewayOrderID+"|"+gatewayPaymentID)), signature)
}

// VerifyWebhookSignature checks X-Razorpay-Signature against the raw request body.
func VerifyWebhookSignature(webhookSecret string, rawBody []byte, signature string) bool {
	if webhookSecret == "" || len(rawBody) == 0 {
		return false
	}
	return equalHex(Sign(webhookSecret, rawBody), signature)
}

func equalHex(expected, provided string) bool {
	provided = strings.ToLower(strings.TrimSpace(provided))
	if provided == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(provided))
}
