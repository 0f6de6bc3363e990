package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/orderproxy/internal/entity"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func upstreamServer(t *testing.T, status int, body string) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("UPSTREAM_URL", srv.URL+"/admin/api/2024-01/orders.json")
	t.Setenv("UPSTREAM_MODE", "projection")
	t.Setenv("MESSAGING_ENABLED", "false")
}

func TestFetchCommand_Projection(t *testing.T) {
	upstreamServer(t, http.StatusOK, `{"orders":[{"order_number":1001,"current_total_price":"2500.00","note_attributes":[{"name":"Full Name","value":"Ali"}]}]}`)

	out, err := runCLI(t, "fetch")
	require.NoError(t, err)

	assert.JSONEq(t, `[{
		"order_number": 1001,
		"price": "2500.00",
		"address": {
			"full_name": "Ali",
			"street_address": null,
			"sector": null,
			"nearest_place": null,
			"city": null,
			"province": null,
			"country": null,
			"country_code": null
		},
		"phone_number": null,
		"customer_details": {"first_name": null, "last_name": null, "email": null},
		"tags": null
	}]`, out)
}

func TestFetchCommand_Raw(t *testing.T) {
	upstreamServer(t, http.StatusOK, `{"orders":[{"id":7}],"extra":true}`)

	out, err := runCLI(t, "fetch", "--raw")
	require.NoError(t, err)
	assert.JSONEq(t, `{"orders":[{"id":7}],"extra":true}`, out)
}

func TestFetchCommand_UpstreamError(t *testing.T) {
	upstreamServer(t, http.StatusUnauthorized, `{"errors":"nope"}`)

	out, err := runCLI(t, "fetch")
	require.Error(t, err)
	assert.Contains(t, out, `"detail": "401 Client Error: Unauthorized for url: `)
}

func TestMigrateAndAuditTail(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_WRITER_DSN", "file:"+filepath.Join(t.TempDir(), "cli.db"))

	out, err := runCLI(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")

	out, err = runCLI(t, "audit", "tail", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "FETCHED AT")

	out, err = runCLI(t, "migrate", "down", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations rolled back")
}

func TestWriteAudits(t *testing.T) {
	var buf bytes.Buffer
	err := writeAudits(&buf, []entity.FetchAudit{{
		ID:             3,
		Mode:           "projection",
		UpstreamStatus: 502,
		DurationMillis: 15,
		Error:          "502 Server Error: Bad Gateway",
		FetchedAt:      time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[1]), "2026-03-01T08:00:00Z")
	assert.Contains(t, string(lines[1]), "15ms")
	assert.Contains(t, string(lines[1]), "502 Server Error: Bad Gateway")
}
