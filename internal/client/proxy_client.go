package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/model"
)

// ProxyClient calls this service's own /api/suno routes. It lets remote
// callers drive adapters without holding the upstream API key
type ProxyClient struct {
	envelopeClient
}

// NewProxyClient creates a client for the service at baseURL. token, when
// set, is sent as a bearer token
func NewProxyClient(baseURL, token string, logger *log.Logger) *ProxyClient {
	if logger == nil {
		logger = log.Default()
	}
	return &ProxyClient{
		envelopeClient: envelopeClient{
			httpClient: &http.Client{Timeout: 60 * time.Second},
			baseURL:    strings.TrimRight(baseURL, "/"),
			token:      token,
			logger:     logger.WithPrefix("proxy"),
		},
	}
}

// CreateTask implements feature.Backend
func (c *ProxyClient) CreateTask(ctx context.Context, f model.Feature, body interface{}) (string, error) {
	var created model.TaskCreated
	if err := c.post(ctx, fmt.Sprintf("/api/suno/%s", f.Slug()), body, &created); err != nil {
		return "", err
	}
	if created.TaskID == "" {
		return "", apierr.Extraction("taskId")
	}
	return created.TaskID, nil
}

// TaskStatus implements feature.Backend
func (c *ProxyClient) TaskStatus(ctx context.Context, f model.Feature, taskID string) (*model.TaskStatus, error) {
	var st model.TaskStatus
	endpoint := fmt.Sprintf("/api/suno/%s/status?taskId=%s", f.Slug(), url.QueryEscape(taskID))
	if err := c.get(ctx, endpoint, &st); err != nil {
		return nil, err
	}
	if st.TaskID == "" {
		st.TaskID = taskID
	}
	return &st, nil
}
