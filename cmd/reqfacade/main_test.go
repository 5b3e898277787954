package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/milan604/reqfacade/pkg/version"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/users/1", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": 404})
	})
	r.Any("/echo", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		c.JSON(http.StatusOK, gin.H{
			"method": c.Request.Method,
			"query":  c.Request.URL.RawQuery,
			"tenant": c.GetHeader("X-Tenant"),
			"auth":   c.GetHeader("Authorization"),
			"body":   string(b),
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	code, stdout, _ := runCLIWithLogs(t, args...)
	return code, stdout
}

func runCLIWithLogs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunSendsRequest(t *testing.T) {
	srv := newServer(t)

	code, out := runCLI(t,
		"--base-url", srv.URL,
		"--log-level", "error",
		"--token", "s3cret",
		"-q", "page=1", "-q", "pageSize=10",
		"-H", "X-Tenant=acme",
		"-d", `{"name":"ada"}`,
		"post", "/echo",
	)
	require.Equal(t, exitOK, code)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, http.MethodPost, got["method"])
	require.Equal(t, "acme", got["tenant"])
	require.Equal(t, "Bearer s3cret", got["auth"])
	require.JSONEq(t, `{"name":"ada"}`, got["body"])

	q, err := url.ParseQuery(got["query"])
	require.NoError(t, err)
	require.Equal(t, url.Values{"page": {"1"}, "pageSize": {"10"}}, q)
}

func TestRunFailureExitCodes(t *testing.T) {
	srv := newServer(t)

	code, out := runCLI(t, "--base-url", srv.URL, "--log-level", "fatal", "GET", "/users/1")
	require.Equal(t, exitFailure, code)
	require.Empty(t, out)

	code, out, logs := runCLIWithLogs(t, "--base-url", srv.URL, "--log-level", "error", "--log-encoding", "json", "--unsafe", "GET", "/users/1")
	require.Equal(t, exitOK, code)
	require.Equal(t, 1, strings.Count(logs, "unhandled request error"))

	var recovered struct {
		Code   string `json:"code"`
		Status int    `json:"status"`
		Method string `json:"method"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &recovered))
	require.Equal(t, http.StatusNotFound, recovered.Status)
	require.Equal(t, "not_found", recovered.Code)
	require.Equal(t, http.MethodGet, recovered.Method)
}

func TestRunUsage(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
		want int
	}{
		{name: "version", args: []string{"--version"}, want: exitOK},
		{name: "help", args: []string{"--help"}, want: exitOK},
		{name: "missing path", args: []string{"GET"}, want: exitUsage},
		{name: "unknown flag", args: []string{"--nope", "GET", "/"}, want: exitUsage},
		{name: "bad method", args: []string{"TRACE", "/"}, want: exitUsage},
		{name: "missing base url", args: []string{"--log-level", "fatal", "GET", "/"}, want: exitFailure},
	} {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := runCLI(t, tc.args...)
			require.Equal(t, tc.want, code)
		})
	}

	_, out := runCLI(t, "--version")
	require.Contains(t, out, version.Product)
}

func TestRunMetrics(t *testing.T) {
	srv := newServer(t)
	code, _, stderr := runCLIWithLogs(t, "--base-url", srv.URL, "--log-level", "fatal", "--metrics", "GET", "/echo")
	require.Equal(t, exitOK, code)
	require.Contains(t, stderr, "reqfacade_client_requests_total")
}

func TestParseInvocation(t *testing.T) {
	inv, err := parseInvocation("delete", "/users/1", "", []string{"force=true", "reason="}, []string{" X-A = 1 "})
	require.NoError(t, err)
	require.Equal(t, http.MethodDelete, inv.method)
	require.Equal(t, url.Values{"force": {"true"}, "reason": {""}}, inv.query)
	require.Equal(t, "1", inv.header.Get("X-A"))
	require.Nil(t, inv.body)

	inv, err = parseInvocation("PUT", "/users/1", `[1,2]`, nil, nil)
	require.NoError(t, err)
	require.Equal(t, json.RawMessage(`[1,2]`), inv.body)

	for _, tc := range []struct {
		method, data string
		query        []string
		headers      []string
	}{
		{method: "GET", data: `{}`},
		{method: "POST", data: `{nope`},
		{method: "GET", query: []string{"novalue"}},
		{method: "GET", query: []string{"=v"}},
		{method: "GET", headers: []string{"=v"}},
		{method: "OPTIONS"},
	} {
		_, err := parseInvocation(tc.method, "/", tc.data, tc.query, tc.headers)
		require.Error(t, err, "%+v", tc)
	}
}
