package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://localhost:8080"

const maxBodyBytes = 4 << 20

// Client issues requests against the lending API.
type Client struct {
	server    string
	http      *http.Client
	userAgent string
}

// Option customises a [Client].
type Option func(*Client)

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New returns a [Client] for baseURL. A nil hc gets a plain client with a
// 10 second timeout.
func New(baseURL string, hc *http.Client, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{server: baseURL, http: hc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address requests are sent to.
func (c *Client) BaseURL() string { return c.server }

// Auth returns the authentication endpoints.
func (c *Client) Auth() AuthService { return AuthService{c: c} }

// Clients returns the client (borrower) endpoints.
func (c *Client) Clients() ClientService { return ClientService{c: c} }

// Credits returns the credit endpoints.
func (c *Client) Credits() CreditService { return CreditService{c: c} }

// Repayments returns the repayment endpoints.
func (c *Client) Repayments() RepaymentService { return RepaymentService{c: c} }

// Reporting returns the reporting endpoints.
func (c *Client) Reporting() ReportingService { return ReportingService{c: c} }

// do sends the request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := c.server + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	resBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(resp.StatusCode, method, path, resBody)
	}
	return resBody, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resBody, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resBody, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrDecode, method, path, err)
	}
	return nil
}

func idPath(base string, id int64, rest ...string) string {
	p := base + "/" + strconv.FormatInt(id, 10)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func amountQuery(lo, hi *float64) url.Values {
	q := url.Values{}
	if lo != nil {
		q.Set("minAmount", strconv.FormatFloat(*lo, 'f', -1, 64))
	}
	if hi != nil {
		q.Set("maxAmount", strconv.FormatFloat(*hi, 'f', -1, 64))
	}
	return q
}

func dateRangeQuery(start, end Date) url.Values {
	q := url.Values{}
	if !start.IsZero() {
		q.Set("startDate", start.String())
	}
	if !end.IsZero() {
		q.Set("endDate", end.String())
	}
	return q
}
