package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"affirmation-pipeline/types"
)

// DefaultGraphURL is the Facebook Graph API root both platforms talk to
const DefaultGraphURL = "https://graph.facebook.com/v18.0"

// errAuth marks a platform authentication failure: fatal for that
// platform, never retried, but other platforms still run
var errAuth = errors.New("authentication failed")

// graphClient is a minimal Graph API HTTP client with bounded retry on
// transient failures (timeouts, 429, 5xx)
type graphClient struct {
	baseURL  string
	token    string
	http     *http.Client
	attempts int
}

func newGraphClient(baseURL, token string) *graphClient {
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	return &graphClient{
		baseURL:  baseURL,
		token:    token,
		http:     &http.Client{Timeout: 120 * time.Second},
		attempts: 3,
	}
}

type graphErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *graphClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("access_token", c.token)
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, "GET", c.baseURL+path+"?"+params.Encode(), nil)
	}, out)
}

func (c *graphClient) postForm(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("access_token", c.token)
	body := params.Encode()
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, out)
}

// postFile uploads a local file as a multipart form, for the Facebook
// page video endpoint. The body is rebuilt for every retry attempt.
func (c *graphClient) postFile(ctx context.Context, path, fileField, filePath string, params url.Values, out any) error {
	params.Set("access_token", c.token)
	return c.do(ctx, func() (*http.Request, error) {
		f, err := os.Open(filePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile(fileField, filepath.Base(filePath))
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, err
		}
		for key := range params {
			if err := writer.WriteField(key, params.Get(key)); err != nil {
				return nil, err
			}
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, nil
	}, out)
}

func (c *graphClient) do(ctx context.Context, build func() (*http.Request, error), out any) error {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		req, err := build()
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if !c.sleep(ctx, attempt, err) {
				break
			}
			continue
		}

		respBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			if !c.sleep(ctx, attempt, err) {
				break
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(respBytes, out); err != nil {
				return fmt.Errorf("parse graph response: %w", err)
			}
			return nil
		}

		var envelope graphErrorBody
		_ = json.Unmarshal(respBytes, &envelope)
		graphErr := fmt.Errorf("graph API %d (code %d): %s",
			resp.StatusCode, envelope.Error.Code, envelope.Error.Message)

		if isAuthStatus(resp.StatusCode, envelope.Error.Code) {
			return fmt.Errorf("%w: %v", errAuth, graphErr)
		}
		if !isTransientStatus(resp.StatusCode) {
			return fmt.Errorf("%w: %v", types.ErrPublishTransport, graphErr)
		}
		lastErr = graphErr
		if !c.sleep(ctx, attempt, graphErr) {
			break
		}
	}
	return fmt.Errorf("%w: after %d attempts: %v", types.ErrPublishTransport, c.attempts, lastErr)
}

func (c *graphClient) sleep(ctx context.Context, attempt int, cause error) bool {
	if attempt >= c.attempts {
		return false
	}
	wait := time.Duration(attempt) * 2 * time.Second
	log.Printf("[publish] Transient graph failure (attempt %d): %v — retrying in %s", attempt, cause, wait)
	select {
	case <-time.After(wait):
		return true
	case <-ctx.Done():
		return false
	}
}

func isAuthStatus(status, code int) bool {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return true
	}
	// OAuth errors the Graph API returns with status 400
	return code == 102 || code == 190
}

func isTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
