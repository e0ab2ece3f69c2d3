package retell

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nutrition-call-assistant/internal/ports/signature"
)

var (
	ErrNotConfigured    = errors.New("retell api key not configured")
	ErrSignatureMissing = errors.New("signature is empty")
	ErrSignatureInvalid = errors.New("signature mismatch")
	ErrSignatureExpired = errors.New("signature timestamp outside tolerance")
)

const DefaultTolerance = 5 * time.Minute

// Verifier implementa signature.Verifier para los callbacks de Retell.
//
// Acepta el formato "v=<unix_ms>,d=<hex>" con HMAC-SHA256(apiKey, body+timestamp)
// y, para integraciones viejas, un hex plano con HMAC-SHA256(apiKey, body).
type Verifier struct {
	apiKey    string
	tolerance time.Duration
	now       func() time.Time
}

var _ signature.Verifier = (*Verifier)(nil)

func NewVerifier(apiKey string) *Verifier {
	return &Verifier{
		apiKey:    strings.TrimSpace(apiKey),
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
}

func (v *Verifier) IsConfigured() bool {
	return v != nil && v.apiKey != ""
}

func (v *Verifier) Verify(_ context.Context, body []byte, sig string) error {
	if !v.IsConfigured() {
		return ErrNotConfigured
	}
	sig = strings.TrimSpace(sig)
	if sig == "" {
		return ErrSignatureMissing
	}

	ts, digest, versioned := parseHeader(sig)
	if !versioned {
		return v.compare(body, nil, sig)
	}

	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrSignatureInvalid)
	}
	if d := v.now().Sub(time.UnixMilli(ms)); d > v.tolerance || d < -v.tolerance {
		return ErrSignatureExpired
	}
	return v.compare(body, []byte(ts), digest)
}

func (v *Verifier) compare(body, suffix []byte, gotHex string) error {
	got, err := hex.DecodeString(strings.ToLower(gotHex))
	if err != nil {
		return fmt.Errorf("%w: not hex", ErrSignatureInvalid)
	}
	if !hmac.Equal(got, v.sum(body, suffix)) {
		return ErrSignatureInvalid
	}
	return nil
}

func (v *Verifier) sum(body, suffix []byte) []byte {
	mac := hmac.New(sha256.New, []byte(v.apiKey))
	mac.Write(body)
	mac.Write(suffix)
	return mac.Sum(nil)
}

// Sign genera una cabecera versionada válida; lo usan tests y herramientas locales.
func (v *Verifier) Sign(body []byte, at time.Time) string {
	ts := strconv.FormatInt(at.UnixMilli(), 10)
	return "v=" + ts + ",d=" + hex.EncodeToString(v.sum(body, []byte(ts)))
}

func parseHeader(sig string) (ts, digest string, ok bool) {
	for _, part := range strings.Split(sig, ",") {
		k, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "v":
			ts = val
		case "d":
			digest = val
		}
	}
	return ts, digest, ts != "" && digest != ""
}
