package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/config"
	"github.com/makeasinger/musicgen/internal/extract"
	"github.com/makeasinger/musicgen/internal/model"
)

// sunoEndpoint is the pair of upstream paths serving one feature
type sunoEndpoint struct {
	create string
	status string
}

var sunoEndpoints = map[model.Feature]sunoEndpoint{
	model.FeatureGenerate:        {"/api/v1/generate", "/api/v1/generate/record-info"},
	model.FeatureExtend:          {"/api/v1/generate/extend", "/api/v1/generate/record-info"},
	model.FeatureLyrics:          {"/api/v1/lyrics", "/api/v1/lyrics/record-info"},
	model.FeatureVocalSeparation: {"/api/v1/vocal-removal/generate", "/api/v1/vocal-removal/record-info"},
	model.FeatureWav:             {"/api/v1/wav/generate", "/api/v1/wav/record-info"},
	model.FeatureMp4:             {"/api/v1/mp4/generate", "/api/v1/mp4/record-info"},
}

// Keys under which record-info nests the task payload
var (
	responseAliases = []string{"response"}
	resultAliases   = []string{"sunoData", "suno_data", "data"}
	errorAliases    = []string{"errorMessage", "error_message", "errorMsg"}
	taskIDAliases   = []string{"taskId", "task_id"}
)

// SunoClient talks to the upstream generation API
type SunoClient struct {
	envelopeClient
	callbackURL  string
	defaultModel model.ModelVersion
}

// NewSunoClient creates a new Suno API client
func NewSunoClient(cfg *config.SunoConfig, logger *log.Logger) *SunoClient {
	if logger == nil {
		logger = log.Default()
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	defaultModel := model.ModelVersion(cfg.DefaultModel)
	if defaultModel == "" {
		defaultModel = model.DefaultModel
	}

	return &SunoClient{
		envelopeClient: envelopeClient{
			httpClient: &http.Client{Timeout: timeout},
			baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
			token:      cfg.APIKey,
			limiter:    limiter,
			logger:     logger.WithPrefix("suno"),
		},
		callbackURL:  cfg.CallbackURL,
		defaultModel: defaultModel,
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *SunoClient) IsConfigured() bool {
	return c.token != ""
}

// CreateTask creates an upstream task for feature f and returns its id
func (c *SunoClient) CreateTask(ctx context.Context, f model.Feature, body interface{}) (string, error) {
	ep, ok := sunoEndpoints[f]
	if !ok {
		return "", fmt.Errorf("unsupported feature %q", f)
	}
	payload, err := c.completeBody(f, body)
	if err != nil {
		return "", err
	}

	var created model.TaskCreated
	if err := c.post(ctx, ep.create, payload, &created); err != nil {
		return "", err
	}
	if created.TaskID == "" {
		return "", apierr.Extraction("taskId")
	}
	c.logger.Info("task created", "feature", f.Slug(), "task", created.TaskID)
	return created.TaskID, nil
}

// TaskStatus reads the upstream record of taskID and normalizes it
func (c *SunoClient) TaskStatus(ctx context.Context, f model.Feature, taskID string) (*model.TaskStatus, error) {
	ep, ok := sunoEndpoints[f]
	if !ok {
		return nil, fmt.Errorf("unsupported feature %q", f)
	}

	var raw json.RawMessage
	if err := c.get(ctx, ep.status+"?taskId="+url.QueryEscape(taskID), &raw); err != nil {
		return nil, err
	}
	st, err := NormalizeRecord(raw)
	if err != nil {
		return nil, err
	}
	if st.TaskID == "" {
		st.TaskID = taskID
	}
	return st, nil
}

// completeBody fills the fields the upstream requires but callers may
// leave out: the callback URL and, for song creation, the model
func (c *SunoClient) completeBody(f model.Feature, body interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}

	if s, _ := fields["callBackUrl"].(string); s == "" && c.callbackURL != "" {
		fields["callBackUrl"] = c.callbackURL
	}
	if f == model.FeatureGenerate || f == model.FeatureExtend {
		if s, _ := fields["model"].(string); s == "" {
			fields["model"] = string(c.defaultModel)
		}
	}
	return fields, nil
}

// NormalizeRecord turns an upstream record-info payload into a TaskStatus.
// The status comes from status or successFlag; the result from
// response.sunoData, response.data or response itself
func NormalizeRecord(raw json.RawMessage) (*model.TaskStatus, error) {
	v, err := extract.Decode(raw)
	if err != nil {
		return nil, apierr.Network(http.StatusOK, err)
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, apierr.Extraction("data")
	}
	rec := extract.Object(obj)

	st := &model.TaskStatus{}
	st.TaskID, _ = rec.String(taskIDAliases...)
	st.Status, _ = rec.String(extract.StatusAliases...)
	st.Error, _ = rec.String(errorAliases...)

	response, ok := rec.Value(responseAliases...)
	if !ok {
		return st, nil
	}
	if respObj, isObj := response.(map[string]interface{}); isObj {
		if nested, found := extract.Object(respObj).Value(resultAliases...); found {
			response = nested
		}
	}
	if st.Result, err = json.Marshal(response); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return st, nil
}
