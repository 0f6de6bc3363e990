package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/orderproxy/internal/config"
)

func TestClient_FetchOrders(t *testing.T) {
	tests := []struct {
		name           string
		mockStatusCode int
		mockResponse   string
		maxBody        int64
		wantStatusErr  string
		wantTooLarge   bool
		wantBody       string
	}{
		{
			name:           "success",
			mockStatusCode: http.StatusOK,
			mockResponse:   `{"orders": []}`,
			wantBody:       `{"orders": []}`,
		},
		{
			name:           "server error",
			mockStatusCode: http.StatusServiceUnavailable,
			mockResponse:   `maintenance`,
			wantStatusErr:  "503 Server Error: Service Unavailable for url: ",
		},
		{
			name:           "client error",
			mockStatusCode: http.StatusNotFound,
			wantStatusErr:  "404 Client Error: Not Found for url: ",
		},
		{
			name:           "status past 5xx is not an error",
			mockStatusCode: 600,
			mockResponse:   `{"orders": []}`,
			wantBody:       `{"orders": []}`,
		},
		{
			name:           "body over limit",
			mockStatusCode: http.StatusOK,
			mockResponse:   `{"orders": [1, 2, 3]}`,
			maxBody:        8,
			wantTooLarge:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodGet, r.Method)
				require.Equal(t, "/shopify/orders", r.URL.Path)
				require.Equal(t, "application/json", r.Header.Get("Accept"))

				w.WriteHeader(tt.mockStatusCode)
				_, _ = w.Write([]byte(tt.mockResponse))
			}))
			defer server.Close()

			url := server.URL + "/shopify/orders"
			client := NewClient(config.Upstream{URL: url, MaxBodyBytes: tt.maxBody}, http.DefaultClient, nil)
			resp, err := client.FetchOrders(context.Background())

			if tt.wantStatusErr != "" {
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, tt.mockStatusCode, statusErr.StatusCode)
				assert.Equal(t, tt.wantStatusErr+url, statusErr.Error())
				return
			}
			if tt.wantTooLarge {
				require.ErrorIs(t, err, ErrBodyTooLarge)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.mockStatusCode, resp.StatusCode)
			assert.JSONEq(t, tt.wantBody, string(resp.Body))
		})
	}
}

func TestIsErrorStatus(t *testing.T) {
	tests := map[int]bool{
		http.StatusOK:                  false,
		http.StatusPermanentRedirect:   false,
		http.StatusBadRequest:          true,
		http.StatusUnauthorized:        true,
		http.StatusInternalServerError: true,
		599:                            true,
		600:                            false,
		999:                            false,
	}
	for code, want := range tests {
		assert.Equal(t, want, isErrorStatus(code), "status %d", code)
	}
}

func TestClient_FetchOrders_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL + "/shopify/orders"
	server.Close()

	client := NewClient(config.Upstream{URL: url}, http.DefaultClient, nil)
	_, err := client.FetchOrders(context.Background())

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Contains(t, err.Error(), url)
}

func TestClient_FetchOrders_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(config.Upstream{URL: server.URL}, &http.Client{Timeout: 50 * time.Millisecond}, nil)
	_, err := client.FetchOrders(context.Background())

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestClient_FetchOrders_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(config.Upstream{URL: server.URL}, http.DefaultClient, nil)
	_, err := client.FetchOrders(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
