package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature checks that the raw request body was signed by the
// platform. The header must have the exact form "sha256=<hex>"; anything else
// is a non-match, never an error. The HMAC is computed over the raw bytes as
// the sender signed them, and compared in constant time.
func VerifySignature(signatureHeader string, rawBody []byte, sharedSecret string) bool {
	received, ok := strings.CutPrefix(signatureHeader, "sha256=")
	if !ok || received == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(sharedSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(received))
}
