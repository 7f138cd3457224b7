package remote

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:3000"

// RESTClient wraps http.Client with base URL and credential handling.
type RESTClient struct {
	baseURL string
	token   string
	cookie  string
	client  *http.Client
}

// Credentials are attached to every request.
type Credentials struct {
	Token  string
	Cookie string
}

func NewRESTClient(baseURL string, timeout time.Duration, creds Credentials, client *http.Client) *RESTClient {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if client == nil {
		client = &http.Client{Timeout: timeoutOrDefault(timeout)}
	} else if timeout > 0 {
		// The caller may share its client; never mutate it.
		cp := *client
		cp.Timeout = timeout
		client = &cp
	}
	return &RESTClient{
		baseURL: trimmed,
		token:   strings.TrimSpace(creds.Token),
		cookie:  strings.TrimSpace(creds.Cookie),
		client:  client,
	}
}

// BaseURL returns the normalized base URL.
func (c *RESTClient) BaseURL() string {
	return c.baseURL
}

func (c *RESTClient) NewRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	url := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	return req, nil
}

func (c *RESTClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

func timeoutOrDefault(value time.Duration) time.Duration {
	if value <= 0 {
		return 10 * time.Second
	}
	return value
}
