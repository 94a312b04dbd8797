// Package responses implements the create-response wire protocol: request
// construction, a single-POST transport with provider-variant auth, and the
// loosely-typed response shapes the protocol family is known to emit.
package responses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	defaultBaseURL     = "https://api.openai.com"
	responsesPath      = "/v1/responses"
	defaultAPIVersion  = "preview"
	defaultHTTPTimeout = 60 // seconds
	userAgent          = "diagramchat-go/responses"
)

// AuthScheme selects how the credential travels on the request.
type AuthScheme int

const (
	// AuthBearer sends "Authorization: Bearer <key>".
	AuthBearer AuthScheme = iota
	// AuthAPIKey sends the credential in an "api-key" header, the scheme the
	// deployment-routed provider variant expects.
	AuthAPIKey
)

// Config captures the construction-time settings of a Client. When
// Deployment is set the client targets the endpoint+deployment+api-version
// variant instead of the plain {base}/v1/responses route.
type Config struct {
	BaseURL    string
	APIKey     string
	Auth       AuthScheme
	Deployment string
	APIVersion string
	HTTPClient *http.Client
}

// Client issues create-response calls. It is safe for concurrent use; all
// fields are fixed at construction.
type Client struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	auth       AuthScheme
	deployment string
	apiVersion string
}

// NewClient validates cfg and builds a Client. A nil HTTP client gets a
// default with a sane timeout.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("responses: api key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(defaultHTTPTimeout) * time.Second}
	}

	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	return &Client{
		client:     httpClient,
		baseURL:    sanitizeBaseURL(cfg.BaseURL),
		apiKey:     apiKey,
		auth:       cfg.Auth,
		deployment: strings.TrimSpace(cfg.Deployment),
		apiVersion: apiVersion,
	}, nil
}

// CreateResponse performs one POST against the create-response endpoint. A
// non-2xx status surfaces as *APIError carrying the verbatim body; the call
// is never retried here. On success the decoded body is returned with Raw
// preserving the unparsed payload.
func (c *Client) CreateResponse(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("responses: request is nil")
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return nil, fmt.Errorf("encode responses request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), &buf)
	if err != nil {
		return nil, fmt.Errorf("create responses request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	switch c.auth {
	case AuthAPIKey:
		httpReq.Header.Set("api-key", c.apiKey)
	default:
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read responses body: %w", err)
	}

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	resp := &Response{}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, fmt.Errorf("decode responses body: %w", err)
	}
	resp.Raw = json.RawMessage(body)
	return resp, nil
}

func (c *Client) endpoint() string {
	if c.deployment != "" {
		return fmt.Sprintf("%s/openai/deployments/%s/responses?api-version=%s",
			c.baseURL, url.PathEscape(c.deployment), url.QueryEscape(c.apiVersion))
	}
	return c.baseURL + responsesPath
}

func sanitizeBaseURL(base string) string {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		return defaultBaseURL
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if trimmed == "" {
		return defaultBaseURL
	}
	return trimmed
}
