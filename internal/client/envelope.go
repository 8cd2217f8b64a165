package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/model"
)

// envelopeClient speaks the {code, msg, data} protocol shared by the
// upstream API and the proxy routes
type envelopeClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	logger     *log.Logger
}

// post sends body as JSON and decodes the envelope data into out
func (c *envelopeClient) post(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// get sends a GET request and decodes the envelope data into out
func (c *envelopeClient) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *envelopeClient) do(req *http.Request, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return apierr.Network(apierr.CodeNoResponse, fmt.Errorf("rate limiter: %w", err))
		}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("request", "method", req.Method, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", req.Method, "url", req.URL.String(), "err", err)
		return apierr.Network(apierr.CodeNoResponse, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierr.Network(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Debug("response", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode, "bytes", len(respBody))

	var env model.Envelope[json.RawMessage]
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return apierr.Network(resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(respBody)))
		}
		return apierr.Network(resp.StatusCode, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if env.Code != model.CodeSuccess {
		code := env.Code
		if code == 0 {
			code = resp.StatusCode
		}
		c.logger.Warn("remote error", "url", req.URL.String(), "code", code, "msg", env.Msg)
		return apierr.Remote(code, env.Msg)
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apierr.Network(resp.StatusCode, fmt.Errorf("failed to unmarshal data: %w", err))
	}
	return nil
}

func truncate(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
