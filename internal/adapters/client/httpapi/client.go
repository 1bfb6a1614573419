// Package httpapi provides the REST HTTP adapter for persisting task moves.
package httpapi

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/white6md/taskboard/internal/app"
	"github.com/white6md/taskboard/internal/domain"
)

// maxResponseBodyBytes limits how much of an error response is read.
const maxResponseBodyBytes int64 = 1 << 20

// DefaultCSRFHeader is the request header carrying the anti-forgery token.
const DefaultCSRFHeader = "X-CSRFToken"

// ErrInvalidBaseURL reports a missing or malformed server base URL.
var ErrInvalidBaseURL = errors.New("invalid base url")

// Options holds configuration for one move client.
type Options struct {
	BaseURL    string
	CSRFToken  string
	CSRFHeader string
	Timeout    time.Duration
	// Trace wraps the transport with OpenTelemetry HTTP instrumentation.
	Trace bool
	// HTTPClient overrides the underlying client. Timeout and Trace are ignored when set.
	HTTPClient *http.Client
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// moveRequest is the JSON body of one move call.
type moveRequest struct {
	Status domain.Status `json:"status"`
}

// Client persists status changes through the project-management server.
type Client struct {
	base       *url.URL
	csrfToken  string
	csrfHeader string
	http       *http.Client
}

// New constructs one move client.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, ErrInvalidBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	header := strings.TrimSpace(opts.CSRFHeader)
	if header == "" {
		header = DefaultCSRFHeader
	}
	client := opts.HTTPClient
	if client == nil {
		transport := http.DefaultTransport
		if opts.Trace {
			transport = otelhttp.NewTransport(transport)
		}
		client = &http.Client{Transport: transport, Timeout: opts.Timeout}
	}
	return &Client{
		base:       base,
		csrfToken:  strings.TrimSpace(opts.CSRFToken),
		csrfHeader: header,
		http:       client,
	}, nil
}

// MoveURL returns the endpoint for one task move.
func (c *Client) MoveURL(projectID, taskID string) string {
	u := *c.base
	prefix := strings.TrimRight(c.base.EscapedPath(), "/")
	u.Path = strings.TrimRight(c.base.Path, "/") + "/projects/" + projectID + "/tasks/" + taskID + "/move"
	u.RawPath = prefix + "/projects/" + url.PathEscape(projectID) + "/tasks/" + url.PathEscape(taskID) + "/move"
	return u.String()
}

// MoveTask posts one status change. A 2xx response must carry a JSON body.
func (c *Client) MoveTask(ctx context.Context, projectID, taskID string, status domain.Status) error {
	body, err := json.Marshal(moveRequest{Status: status})
	if err != nil {
		return fmt.Errorf("encode move request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.MoveURL(projectID, taskID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", app.ErrTransportFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// The header goes out even when no token is configured.
	req.Header.Set(c.csrfHeader, c.csrfToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", app.ErrTransportFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
		if err != nil {
			return fmt.Errorf("%w: read response: %v", app.ErrTransportFailure, err)
		}
		return fmt.Errorf("%w: status %d%s", app.ErrServerRejection, resp.StatusCode, describeErrorBody(payload))
	}
	if err := scanJSON(resp.Body); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: decode response: %v", app.ErrServerRejection, err)
		}
		return fmt.Errorf("%w: read response: %v", app.ErrTransportFailure, err)
	}
	return nil
}

// scanJSON reads r to the end and checks it holds one complete JSON document.
// Tokens are streamed, so success bodies of any size are accepted.
func scanJSON(r io.Reader) error {
	dec := json.NewDecoder(r)
	depth, tokens := 0, 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if tokens == 0 || depth != 0 {
				return io.ErrUnexpectedEOF
			}
			return nil
		}
		if err != nil {
			return err
		}
		tokens++
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}

// describeErrorBody renders a server error body for logs.
func describeErrorBody(payload []byte) string {
	var envelope ErrorEnvelope
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error.Message != "" {
		if envelope.Error.Code != "" {
			return fmt.Sprintf(" (%s: %s)", envelope.Error.Code, envelope.Error.Message)
		}
		return fmt.Sprintf(" (%s)", envelope.Error.Message)
	}
	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &flat); err == nil && flat.Error != "" {
		return fmt.Sprintf(" (%s)", flat.Error)
	}
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return ""
	}
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return fmt.Sprintf(" (%s)", text)
}
