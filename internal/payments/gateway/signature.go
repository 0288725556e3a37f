package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verifier checks the checkout signature returned to the client after a
// payment: hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
type Verifier struct {
	secret  string
	enforce bool
}

// NewVerifier returns a verifier. When enforce is false every signature is
// accepted, which lets non-production environments pay without a gateway.
func NewVerifier(secret string, enforce bool) *Verifier {
	return &Verifier{secret: secret, enforce: enforce}
}

func (v *Verifier) Enforced() bool {
	return v.enforce
}

func (v *Verifier) Verify(orderID, paymentID, signature string) bool {
	if !v.enforce {
		return true
	}
	if signature == "" || v.secret == "" {
		return false
	}
	expected := Sign(v.secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
