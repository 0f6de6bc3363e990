package order

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderproxy/internal/config"
	httpserver "github.com/Additional-Code/orderproxy/internal/server/http"
	service "github.com/Additional-Code/orderproxy/internal/service/order"
	"github.com/Additional-Code/orderproxy/internal/upstream"
)

const upstreamBody = `{"orders":[{"order_number":1001,"current_total_price":"25.00","tags":"vip","note_attributes":[{"name":"Full Name","value":"Ali Khan"},{"name":"Phone number","value":"0300-1234567"}],"billing_address":{"country":"Pakistan","country_code":"PK"},"customer":{"email":"ali@example.com","default_address":{"first_name":"Ali","last_name":"Khan"}}}]}`

func newTestEcho(t *testing.T, mode string, status int, body string) *echo.Echo {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	cfg := config.Config{Upstream: config.Upstream{URL: server.URL + "/shopify/orders", Mode: mode}}
	svc := service.NewService(service.Params{
		Upstream: upstream.NewClient(cfg.Upstream, server.Client(), nil),
		Config:   cfg,
		Logger:   zap.NewNop(),
	})

	e := echo.New()
	e.HTTPErrorHandler = httpserver.ErrorHandler(zap.NewNop())
	Register(e, NewHandler(svc))
	return e
}

func serve(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_List(t *testing.T) {
	e := newTestEcho(t, config.ModeProjection, http.StatusOK, upstreamBody)

	rec := serve(e, http.MethodGet, "/orders")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{
		"order_number": 1001,
		"price": "25.00",
		"address": {
			"full_name": "Ali Khan",
			"street_address": null,
			"sector": null,
			"nearest_place": null,
			"city": null,
			"province": null,
			"country": "Pakistan",
			"country_code": "PK"
		},
		"phone_number": "0300-1234567",
		"customer_details": {"first_name": "Ali", "last_name": "Khan", "email": "ali@example.com"},
		"tags": "vip"
	}]`, rec.Body.String())
}

func TestHandler_List_Empty(t *testing.T) {
	e := newTestEcho(t, config.ModeProjection, http.StatusOK, `{"orders": []}`)

	rec := serve(e, http.MethodGet, "/orders")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandler_List_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantDetail string
	}{
		{
			name:       "upstream 503",
			status:     http.StatusServiceUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: "503 Server Error: Service Unavailable for url: ",
		},
		{
			name:       "upstream 401",
			status:     http.StatusUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantDetail: "401 Client Error: Unauthorized for url: ",
		},
		{
			name:       "orders not a list",
			status:     http.StatusOK,
			body:       `{"orders": "not-a-list"}`,
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Unexpected response format: 'orders' is not a list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(t, config.ModeProjection, tt.status, tt.body)

			rec := serve(e, http.MethodGet, "/orders")
			require.Equal(t, tt.wantStatus, rec.Code)

			var payload struct {
				Detail string `json:"detail"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Contains(t, payload.Detail, tt.wantDetail)
		})
	}
}

func TestHandler_Passthrough(t *testing.T) {
	e := newTestEcho(t, config.ModePassthrough, http.StatusOK, upstreamBody)

	rec := serve(e, http.MethodGet, "/orders")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, upstreamBody, rec.Body.String())
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	e := newTestEcho(t, config.ModeProjection, http.StatusOK, upstreamBody)

	rec := serve(e, http.MethodPost, "/orders")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"detail": "Method Not Allowed"}`, rec.Body.String())
}
