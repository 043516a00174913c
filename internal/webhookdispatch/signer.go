package webhookdispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex HMAC-SHA256 of body under secret. It returns
// false when no secret is configured; the caller omits the signature
// header entirely in that case rather than sending an empty value.
func Sign(body []byte, secret string) (string, bool) {
	if secret == "" {
		return "", false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), true
}
