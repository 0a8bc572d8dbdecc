// Package signature authenticates payment gateway callbacks with HMAC-SHA256.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Message is the canonical checkout callback payload: order id and payment id
// joined by a literal pipe.
func Message(orderID, paymentID string) string {
	return orderID + "|" + paymentID
}

// Sign returns the hex-encoded HMAC-SHA256 of the checkout callback message.
func Sign(secret, orderID, paymentID string) string {
	return SignBody(secret, []byte(Message(orderID, paymentID)))
}

func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig authenticates the checkout callback. The
// comparison time does not depend on where the digests differ.
func Verify(secret, orderID, paymentID, sig string) bool {
	return VerifyBody(secret, []byte(Message(orderID, paymentID)), sig)
}

// VerifyBody checks a webhook signature computed over the raw request body.
func VerifyBody(secret string, body []byte, sig string) bool {
	if secret == "" || sig == "" {
		return false
	}
	expected := SignBody(secret, body)
	return hmac.Equal([]byte(expected), []byte(sig))
}
