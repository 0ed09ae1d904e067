package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aq2208/settlement-api/configs"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleEvent       = errors.New("webhook timestamp outside tolerance")
)

// Verifier authenticates inbound processor webhooks. The signature header is
// "t=<unix>,v1=<hex>", where v1 is HMAC-SHA256 over "<t>.<raw body>" — the
// timestamp is bound into the MAC so it cannot be replayed onto an old body.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
}

func NewVerifier(cfg configs.Config) (*Verifier, error) {
	if cfg.Webhook.Secret == "" {
		return nil, errors.New("webhook secret required")
	}
	tol := cfg.Webhook.Tolerance
	if tol <= 0 {
		tol = 5 * time.Minute
	}
	return &Verifier{secret: []byte(cfg.Webhook.Secret), tolerance: tol}, nil
}

// Verify checks the signature header against the raw body. It must run before
// any state mutation; handlers may only act on bodies this has accepted.
func (v *Verifier) Verify(rawBody []byte, sigHeader string, now time.Time) error {
	ts, mac, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return err
	}

	expected := computeMAC(v.secret, ts, rawBody)
	if !hmac.Equal(mac, expected) {
		return ErrInvalidSignature
	}

	// Authenticity first, freshness second: a stale verdict on a forged
	// signature would leak which timestamps we accept.
	age := now.Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if age > v.tolerance {
		return fmt.Errorf("%w: %s old", ErrStaleEvent, age)
	}
	return nil
}

// Sign produces a signature header for rawBody at t. Used by tests and by the
// simulated processor in local runs.
func Sign(secret []byte, rawBody []byte, t time.Time) string {
	ts := t.Unix()
	mac := computeMAC(secret, ts, rawBody)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac))
}

func parseSignatureHeader(h string) (ts int64, mac []byte, err error) {
	var tsPart, macPart string
	for _, kv := range strings.Split(h, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			tsPart = v
		case "v1":
			macPart = v
		}
	}
	if tsPart == "" || macPart == "" {
		return 0, nil, ErrInvalidSignature
	}
	ts, err = strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0, nil, ErrInvalidSignature
	}
	mac, err = hex.DecodeString(macPart)
	if err != nil {
		return 0, nil, ErrInvalidSignature
	}
	return ts, mac, nil
}

func computeMAC(secret []byte, ts int64, body []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(strconv.FormatInt(ts, 10)))
	h.Write([]byte("."))
	h.Write(body)
	return h.Sum(nil)
}
