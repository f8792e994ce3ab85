// Package kling is the typed client for the managed image-to-video provider.
package kling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"server/internal/domain"
	"server/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("kling: api key is required")

// Options configures the provider client.
type Options struct {
	APIKey        string
	BaseURL       string
	HTTPClient    *http.Client
	Logger        *infra.Logger
	CreateTimeout time.Duration
	StatusTimeout time.Duration
}

// Client performs HTTP calls against the video generation API. Task creation
// is slow (the provider renders synchronously up to a point), so it gets a
// generous bound; status queries repeat every few seconds and are bounded
// tightly.
type Client struct {
	apiKey        string
	baseURL       string
	httpClient    *http.Client
	logger        *infra.Logger
	createTimeout time.Duration
	statusTimeout time.Duration
}

// CreateTaskRequest carries the fields of the task creation endpoint.
type CreateTaskRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	CfgScale       float64 `json:"cfg_scale,omitempty"`
	Duration       int     `json:"duration,omitempty"`
	ImageURL       string  `json:"image_url"`
	ImageTailURL   string  `json:"image_tail_url,omitempty"`
	Mode           string  `json:"mode,omitempty"`
	Version        string  `json:"version,omitempty"`
}

// TaskInfo is the normalized view of one in-flight or finished task.
type TaskInfo struct {
	TaskID       string
	Status       string
	VideoURL     string
	ErrorMessage string
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.klingai.com"
	}
	createTimeout := opts.CreateTimeout
	if createTimeout <= 0 {
		createTimeout = 55 * time.Second
	}
	statusTimeout := opts.StatusTimeout
	if statusTimeout <= 0 {
		statusTimeout = 10 * time.Second
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:        strings.TrimSpace(opts.APIKey),
		baseURL:       baseURL,
		httpClient:    httpClient,
		logger:        logger,
		createTimeout: createTimeout,
		statusTimeout: statusTimeout,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// CreateTask submits one image-to-video job and returns the created task.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*TaskInfo, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, errors.New("kling: image_url is required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("kling: encode request: %w", err)
	}
	endpoint := c.baseURL + "/v1/videos/image2video"
	raw, err := c.do(ctx, http.MethodPost, endpoint, body, c.createTimeout)
	if err != nil {
		return nil, err
	}
	info, err := decodeTask(raw)
	if err != nil {
		return nil, err
	}
	c.logger.Info().
		Str("task_id", info.TaskID).
		Str("status", info.Status).
		Msg("kling: task created")
	return info, nil
}

// TaskStatus queries the current status of a task by id. A not-found reply
// is surfaced as domain.ErrTaskNotFound so the poller can apply its
// first-observation tolerance policy.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskInfo, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(taskID) == "" {
		return nil, errors.New("kling: task id is required")
	}
	endpoint := c.baseURL + "/v1/videos/image2video/" + url.PathEscape(taskID)
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, c.statusTimeout)
	if err != nil {
		return nil, err
	}
	return decodeTask(raw)
}

// do performs one bounded round trip. An exceeded bound while the caller's
// context is still live becomes an UpstreamTimeoutError; caller cancellation
// propagates unchanged.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("kling: build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &domain.UpstreamTimeoutError{Endpoint: endpoint, Timeout: timeout}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("kling: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kling: read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("kling: %s: %w", endpoint, domain.ErrTaskNotFound)
	}
	if resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(raw, "message").String(); msg != "" {
			return nil, &domain.ProviderError{Code: resp.StatusCode, Message: msg}
		}
		return nil, fmt.Errorf("kling: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

// decodeTask unwraps a task reply. The provider answers either with a
// {code, data, message} envelope or, through some automation routes, with
// the bare data object itself; both shapes are handled here so no caller
// special-cases them.
func decodeTask(raw []byte) (*TaskInfo, error) {
	root := gjson.ParseBytes(raw)
	data := root
	if d := root.Get("data"); d.IsObject() {
		if code := root.Get("code"); code.Exists() {
			if c := int(code.Int()); c != 0 && c != 200 {
				return nil, &domain.ProviderError{Code: c, Message: root.Get("message").String()}
			}
		}
		data = d
	}
	info := &TaskInfo{
		TaskID:       data.Get("task_id").String(),
		Status:       data.Get("task_status").String(),
		VideoURL:     firstVideoURL(data),
		ErrorMessage: data.Get("error.message").String(),
	}
	if info.Status == "" {
		info.Status = data.Get("status").String()
	}
	if info.ErrorMessage == "" {
		info.ErrorMessage = data.Get("task_status_msg").String()
	}
	if info.TaskID == "" {
		return nil, fmt.Errorf("kling: reply carries no task id: %w", domain.ErrUnexpectedResponseShape)
	}
	return info, nil
}

func firstVideoURL(data gjson.Result) string {
	if v := data.Get("output.video_url"); v.Type == gjson.String {
		return v.String()
	}
	// Some API versions nest results under task_result.videos.
	if v := data.Get("task_result.videos.0.url"); v.Type == gjson.String {
		return v.String()
	}
	return ""
}

// Terminal status families. The provider has shipped several spellings;
// anything unrecognized is treated as still in progress.
func IsTerminalSuccess(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "succeed", "succeeded", "success", "completed", "done":
		return true
	}
	return false
}

func IsTerminalFailure(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "failed", "error":
		return true
	}
	return false
}
