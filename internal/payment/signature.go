package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verifier checks checkout signatures: hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Sign(orderID, paymentID string) string {
	return hex.EncodeToString(v.mac(orderID, paymentID))
}

func (v *Verifier) Verify(orderID, paymentID, signature string) bool {
	if len(v.secret) == 0 || orderID == "" || paymentID == "" {
		return false
	}
	// compared as transmitted: only the lowercase hex form is accepted
	if len(signature) != hex.EncodedLen(sha256.Size) {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(v.Sign(orderID, paymentID)))
}

func (v *Verifier) mac(orderID, paymentID string) []byte {
	m := hmac.New(sha256.New, v.secret)
	m.Write([]byte(orderID + "|" + paymentID))
	return m.Sum(nil)
}
