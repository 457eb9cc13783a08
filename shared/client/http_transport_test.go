package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/draftea/saga-coordinator/shared/discovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func endpointFor(t *testing.T, server *httptest.Server) discovery.Endpoint {
	t.Helper()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return discovery.Endpoint{
		ServiceName: "payments-service",
		Address:     u.Hostname(),
		Port:        port,
	}
}

func TestHTTPTransport_Invoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments/charge", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"order_id":"order-123"}`, string(body))

		w.Write([]byte(`{"payment_id":"pay-456"}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.Client())

	body, err := transport.Invoke(context.Background(), endpointFor(t, server), "payments/charge", []byte(`{"order_id":"order-123"}`))

	require.NoError(t, err)
	assert.Equal(t, []byte(`{"payment_id":"pay-456"}`), body)
}

func TestHTTPTransport_RemoteErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		transient  bool
	}{
		{name: "client error is permanent", status: http.StatusUnprocessableEntity, transient: false},
		{name: "not found is permanent", status: http.StatusNotFound, transient: false},
		{name: "bad gateway is transient", status: http.StatusBadGateway, transient: true},
		{name: "service unavailable is transient", status: http.StatusServiceUnavailable, transient: true},
		{name: "gateway timeout is transient", status: http.StatusGatewayTimeout, transient: true},
		{name: "too many requests is transient", status: http.StatusTooManyRequests, transient: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			transport := NewHTTPTransport(server.Client())

			_, err := transport.Invoke(context.Background(), endpointFor(t, server), "payments/charge", nil)

			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))

			var remoteErr *RemoteError
			require.ErrorAs(t, err, &remoteErr)
			assert.Equal(t, tt.status, remoteErr.StatusCode)
		})
	}
}

func TestHTTPTransport_ConnectionFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore

	transport := NewHTTPTransport(nil)

	_, err := transport.Invoke(context.Background(), endpointFor(t, server), "payments/charge", nil)

	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
