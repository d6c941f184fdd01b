package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrCaptchaFailed means the verification endpoint rejected the token
	ErrCaptchaFailed = errors.New("captcha verification failed")

	// ErrCaptchaNotConfigured means the secret is missing; the request must
	// fail rather than skip the human check
	ErrCaptchaNotConfigured = errors.New("captcha secret not configured")
)

// CaptchaClient verifies human-check tokens against the CAPTCHA provider
type CaptchaClient struct {
	verifyURL  string
	secret     string
	httpClient *http.Client
}

type captchaVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// NewCaptchaClient creates a new CAPTCHA verification client
func NewCaptchaClient(verifyURL, secret string, timeout time.Duration) *CaptchaClient {
	return &CaptchaClient{
		verifyURL: verifyURL,
		secret:    secret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Verify checks a client-supplied CAPTCHA token. A missing secret is a
// configuration error, never a silent pass.
func (c *CaptchaClient) Verify(ctx context.Context, token, remoteIP string) error {
	if c.secret == "" {
		return ErrCaptchaNotConfigured
	}
	if token == "" {
		return fmt.Errorf("%w: missing token", ErrCaptchaFailed)
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("captcha verification request failed: %w",
			&UpstreamStatusError{Service: "captcha", StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("captcha verification request failed: %w", err)
	}

	var verifyResp captchaVerifyResponse
	if err := json.Unmarshal(body, &verifyResp); err != nil {
		return fmt.Errorf("captcha verification request failed: %w", err)
	}

	if !verifyResp.Success {
		logrus.WithFields(logrus.Fields{
			"error_codes": verifyResp.ErrorCodes,
		}).Warn("🚫 CAPTCHA token rejected")
		return ErrCaptchaFailed
	}

	return nil
}
