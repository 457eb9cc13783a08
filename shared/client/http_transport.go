package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/draftea/saga-coordinator/shared/discovery"
	"github.com/pkg/errors"
)

// RemoteError is a non-transient error returned by the remote service itself,
// e.g. a rejected business operation. It is never retried.
type RemoteError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote operation %s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// HTTPTransport invokes operations as POST http://{endpoint}/{operation}
// with a JSON payload body.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates an HTTP transport. A nil client falls back to
// http.DefaultClient; per-attempt deadlines come from the caller's context.
func NewHTTPTransport(httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPTransport{client: httpClient}
}

// Invoke implements the Transport interface
func (t *HTTPTransport) Invoke(ctx context.Context, endpoint discovery.Endpoint, operation string, payload []byte) ([]byte, error) {
	url := fmt.Sprintf("http://%s/%s", endpoint.HostPort(), operation)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// Connection-level failures are worth retrying against a fresh
		// endpoint.
		return nil, MarkTransient(errors.Wrapf(err, "operation %s against %s", operation, endpoint.HostPort()))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, MarkTransient(errors.Wrap(err, "failed to read response body"))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	remoteErr := &RemoteError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return nil, MarkTransient(remoteErr)
	default:
		return nil, remoteErr
	}
}
