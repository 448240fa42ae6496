package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMigrateArgs(t *testing.T) {
	cases := []struct {
		args    []string
		action  string
		steps   int
		wantErr bool
	}{
		{nil, "up", 0, false},
		{[]string{"UP", "2"}, "up", 2, false},
		{[]string{"down", "1"}, "down", 1, false},
		{[]string{"down"}, "", 0, true},
		{[]string{"sideways"}, "", 0, true},
		{[]string{"up", "x"}, "", 0, true},
	}
	for _, tc := range cases {
		action, steps, err := parseMigrateArgs(tc.args)
		if tc.wantErr {
			assert.Error(t, err, "%v", tc.args)
			continue
		}
		require.NoError(t, err, "%v", tc.args)
		assert.Equal(t, tc.action, action)
		assert.Equal(t, tc.steps, steps)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVippsCmd_CallsAdminAPI(t *testing.T) {
	var gotMethod, gotPath, gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotKey = r.Method, r.URL.Path, r.Header.Get("X-Admin-API-Key")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, `{"session_id":"ps_1","status":"captured"}`)
	}))
	defer srv.Close()

	out, err := runCLI(t, "vipps", "capture", "ps_1", "--admin-api-url", srv.URL, "--admin-api-key", "k")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/admin/payments/vipps/sessions/ps_1/capture", gotPath)
	assert.Equal(t, "k", gotKey)
	assert.Contains(t, out, "captured")

	_, err = runCLI(t, "vipps", "refund", "ps_1", "--amount", "500", "--admin-api-url", srv.URL, "--admin-api-key", "k")
	require.NoError(t, err)
	assert.Equal(t, "/admin/payments/vipps/sessions/ps_1/refund", gotPath)
	assert.JSONEq(t, `{"amount":500}`, gotBody)

	_, err = runCLI(t, "vipps", "status", "ps_1", "--admin-api-url", srv.URL, "--admin-api-key", "k")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, gotMethod)
}

func TestVippsCmd_Errors(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "")
	_, err := runCLI(t, "vipps", "status", "ps_1")
	assert.ErrorContains(t, err, "missing API key")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":"not_found"}`)
	}))
	defer srv.Close()

	_, err = runCLI(t, "vipps", "cancel", "ps_9", "--admin-api-url", srv.URL, "--admin-api-key", "k")
	assert.ErrorContains(t, err, "status=404")
}
