package pipeline

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"

	apperrors "notedigest/pkg/errors"
)

// Routes name the logical handler a message is addressed to, mirroring the
// worker-side dispatch table.
const (
	RouteSummarizeNote = "notes/summarize"
	RouteSummarizeDiff = "notes/diffs/summarize"
	RouteSummarizeURL  = "urls/summarize"
	RouteDigest        = "digest/daily"
)

// Envelope wraps every queue message with its route and an HMAC-SHA256
// signature over route and payload. Consumers verify the signature before
// any processing; a mismatch rejects the message outright.
type Envelope struct {
	Route     string          `json:"route"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// Seal serialises the payload and signs it for the given route.
func Seal(route string, payload any, secret string) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshaling payload for %s: %w", route, err)
	}
	return Envelope{
		Route:     route,
		Payload:   raw,
		Signature: sign(route, raw, secret),
	}, nil
}

// Verify recomputes the signature and compares it in constant time.
func (e Envelope) Verify(secret string) error {
	expected := sign(e.Route, e.Payload, secret)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(e.Signature)) != 1 {
		return apperrors.New(apperrors.ErrInvalidSignature, 401, e.Route)
	}
	return nil
}

func sign(route string, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(route))
	mac.Write([]byte{'\n'})
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
