// Package captcha verifies Cloudflare Turnstile tokens.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const SiteVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

var (
	// ErrRejected means the provider answered and refused the token.
	ErrRejected = errors.New("captcha rejected")
	// ErrUnavailable means no verdict could be obtained.
	ErrUnavailable = errors.New("captcha verification unavailable")
)

type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

type Turnstile struct {
	Secret   string
	Endpoint string
	Client   *http.Client
}

func NewTurnstile(secret string) *Turnstile {
	return &Turnstile{
		Secret:   secret,
		Endpoint: SiteVerifyURL,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) error {
	if t.Secret == "" {
		return fmt.Errorf("%w: secret is not configured", ErrUnavailable)
	}
	form := url.Values{"secret": {t.Secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !out.Success {
		return fmt.Errorf("%w: %s", ErrRejected, strings.Join(out.ErrorCodes, ","))
	}
	return nil
}
