package gemini

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
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-2.5-flash"
	defaultHTTPTimeout = 120 * time.Second
	maxErrorBody       = 4096
)

// ErrMissingAPIKey is returned before any request when no key is available.
var ErrMissingAPIKey = errors.New("gemini: api key required")

// Config captures the runtime settings required to talk to Gemini.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the generateContent endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a Gemini client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

// Model returns the default model name.
func (c *Client) Model() string { return c.cfg.Model }

// InlineData is base64 content tagged with its MIME type.
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part is one content part; exactly one field should be set.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// Schema is the subset of the OpenAPI schema Gemini accepts for structured output.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Request describes one generateContent call.
type Request struct {
	// APIKey overrides the client key for this call.
	APIKey           string
	Model            string
	Parts            []Part
	Temperature      *float64
	ResponseMIMEType string
	ResponseSchema   *Schema
}

// Response is the text the model produced.
type Response struct {
	Text         string
	FinishReason string
	BlockReason  string
}

// Temperature is a convenience for building Request.Temperature.
func Temperature(v float64) *float64 { return &v }

// APIError reports a non-2xx response.
type APIError struct {
	StatusCode int
	Code       int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Status != "" {
		return fmt.Sprintf("gemini request: http %d %s: %s", e.StatusCode, e.Status, msg)
	}
	return fmt.Sprintf("gemini request: http %d: %s", e.StatusCode, msg)
}

// IsRateLimit reports whether err signals quota exhaustion: HTTP or error code
// 429, RESOURCE_EXHAUSTED status, or a message mentioning 429.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Code == http.StatusTooManyRequests {
			return true
		}
		if strings.EqualFold(apiErr.Status, "RESOURCE_EXHAUSTED") {
			return true
		}
	}
	return strings.Contains(err.Error(), "429")
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type generationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema  `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text    string `json:"text"`
				Thought bool   `json:"thought"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type errorEnvelope struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateContent issues a single generateContent request.
func (c *Client) GenerateContent(ctx context.Context, req Request) (Response, error) {
	var empty Response
	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = c.cfg.APIKey
	}
	if apiKey == "" {
		return empty, ErrMissingAPIKey
	}
	if len(req.Parts) == 0 {
		return empty, errors.New("gemini request: at least one part required")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.Model
	}

	payload := generateRequest{Contents: []content{{Role: "user", Parts: req.Parts}}}
	if req.Temperature != nil || req.ResponseMIMEType != "" || req.ResponseSchema != nil {
		payload.GenerationConfig = &generationConfig{
			Temperature:      req.Temperature,
			ResponseMIMEType: req.ResponseMIMEType,
			ResponseSchema:   req.ResponseSchema,
		}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return empty, fmt.Errorf("gemini request: encode body: %w", err)
	}

	endpoint := c.cfg.BaseURL + "/models/" + url.PathEscape(model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("gemini request: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return empty, fmt.Errorf("gemini request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("gemini request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, newAPIError(resp, body)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, fmt.Errorf("gemini request: decode response: %w", err)
	}
	return extractResponse(decoded), nil
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Status = envelope.Error.Status
		apiErr.Message = envelope.Error.Message
	} else {
		trimmed := strings.TrimSpace(string(body))
		if len(trimmed) > maxErrorBody {
			trimmed = trimmed[:maxErrorBody]
		}
		apiErr.Message = trimmed
	}
	return apiErr
}

func extractResponse(decoded generateResponse) Response {
	var out Response
	if decoded.PromptFeedback != nil {
		out.BlockReason = decoded.PromptFeedback.BlockReason
	}
	for _, candidate := range decoded.Candidates {
		if out.FinishReason == "" {
			out.FinishReason = candidate.FinishReason
		}
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			if part.Thought {
				continue
			}
			b.WriteString(part.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			out.Text = text
			out.FinishReason = candidate.FinishReason
			return out
		}
	}
	return out
}

// HealthCheck fetches the model resource to confirm the endpoint is reachable
// and apiKey (or the client key) is accepted.
func (c *Client) HealthCheck(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		apiKey = c.cfg.APIKey
	}
	if apiKey == "" {
		return ErrMissingAPIKey
	}
	endpoint := c.cfg.BaseURL + "/models/" + url.PathEscape(c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("gemini health check: new request: %w", err)
	}
	req.Header.Set("x-goog-api-key", apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini health check: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("gemini health check: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(resp, body)
	}
	return nil
}
