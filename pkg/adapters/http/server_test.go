package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/bindery"
	"github.com/aretw0/bindery/pkg/adapters/memory"
	"github.com/aretw0/bindery/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGetHealth(t *testing.T) {
	handler := NewHandler(bindery.New())
	rr := do(t, handler, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestGetInfo(t *testing.T) {
	handler := NewHandler(bindery.New())
	rr := do(t, handler, http.MethodGet, "/info", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "bindery-http", resp["app"])
	assert.NotEmpty(t, resp["version"])
	assert.Equal(t, APIVersion, resp["api_version"])
}

func TestContextLifecycle(t *testing.T) {
	eng := bindery.New()
	handler := NewHandler(eng)

	rr := do(t, handler, http.MethodPost, "/contexts", `{"user":{"name":"ada"},"tags":["a"]}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	owner := created["owner"]
	require.NotEmpty(t, owner)
	assert.Equal(t, "/contexts/"+owner, rr.Header().Get("Location"))

	rr = do(t, handler, http.MethodGet, "/contexts", "")
	assert.JSONEq(t, `{"owners":["`+owner+`"]}`, rr.Body.String())

	rr = do(t, handler, http.MethodGet, "/contexts/"+owner+"?path=user.name", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `"ada"`, rr.Body.String())

	var calls []any
	eng.ObserveFunc(owner, "user.name", "test", func(v, _ any) { calls = append(calls, v) })

	rr = do(t, handler, http.MethodPut, "/contexts/"+owner+"?path=user.name", `"grace"`)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []any{"grace"}, calls)

	rr = do(t, handler, http.MethodGet, "/contexts/"+owner, "")
	assert.Equal(t, `{"user":{"name":"grace"},"tags":["a"]}`, rr.Body.String())

	rr = do(t, handler, http.MethodGet, "/contexts/"+owner+"/stats", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, "active", stats["state"])

	rr = do(t, handler, http.MethodDelete, "/contexts/"+owner, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, eng.Owners())

	rr = do(t, handler, http.MethodGet, "/contexts/"+owner, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = do(t, handler, http.MethodDelete, "/contexts/"+owner, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSetContext_Errors(t *testing.T) {
	handler := NewHandler(bindery.New())

	rr := do(t, handler, http.MethodPut, "/contexts/page", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, handler, http.MethodPut, "/contexts/page?path=a..b", `1`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, handler, http.MethodPut, "/contexts/page?path=a", `{bad`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, handler, http.MethodPost, "/contexts", `"scalar"`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, handler, http.MethodGet, "/contexts/page/stats", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSaveLoad(t *testing.T) {
	handler := NewHandler(bindery.New(bindery.WithStore(memory.NewStore())))

	rr := do(t, handler, http.MethodPut, "/contexts/page", `{"count":1}`)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, handler, http.MethodPost, "/contexts/page/save", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	do(t, handler, http.MethodPut, "/contexts/page?path=count", `2`)
	rr = do(t, handler, http.MethodPost, "/contexts/page/load", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, handler, http.MethodGet, "/contexts/page?path=count", "")
	assert.JSONEq(t, `1`, rr.Body.String())

	rr = do(t, handler, http.MethodGet, "/snapshots", "")
	assert.JSONEq(t, `{"owners":["page"]}`, rr.Body.String())

	rr = do(t, handler, http.MethodPost, "/contexts/ghost/load", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSaveWithoutStore(t *testing.T) {
	handler := NewHandler(bindery.New())
	do(t, handler, http.MethodPut, "/contexts/page", `{}`)
	rr := do(t, handler, http.MethodPost, "/contexts/page/save", "")
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestMetrics(t *testing.T) {
	collector := observability.NewCollector()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(collector))

	eng := bindery.New(bindery.WithLifecycleHooks(collector.Hooks()))
	handler := NewHandler(eng, WithMetrics(reg))

	do(t, handler, http.MethodPut, "/contexts/page", `{"a":1}`)
	eng.ObserveFunc("page", "a", "ui", func(_, _ any) {})
	do(t, handler, http.MethodPut, "/contexts/page?path=a", `2`)

	rr := do(t, handler, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `bindery_notifications_total{root="page"} 1`)

	rr = do(t, NewHandler(eng), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSubscribeEvents(t *testing.T) {
	eng := bindery.New()
	server := NewServer(eng)
	srv := httptest.NewServer(server.Routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	put := func(path, body string) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, srv.URL+"/contexts/page"+path, strings.NewReader(body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
	put("", `{"a":{"b":1}}`)

	streamCtx, stop := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, srv.URL+"/contexts/page/events?path=a.b", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewReader(resp.Body)
	readLine := func() string {
		line, err := lines.ReadString('\n')
		require.NoError(t, err)
		return strings.TrimRight(line, "\n")
	}
	assert.Equal(t, "event: ping", readLine())
	assert.Equal(t, "data: connected", readLine())
	assert.Equal(t, "", readLine())

	put("?path=a", `{"b":2}`)
	assert.Equal(t, "event: change", readLine())
	assert.JSONEq(t, `{"path":"a.b","new":2,"old":1}`, strings.TrimPrefix(readLine(), "data: "))

	stop()
	assert.Eventually(t, func() bool {
		server.mu.Lock()
		defer server.mu.Unlock()
		stats, err := eng.Inspect("page")
		return err == nil && stats.Listeners == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribeEvents_UnknownContext(t *testing.T) {
	handler := NewHandler(bindery.New())
	rr := do(t, handler, http.MethodGet, "/contexts/ghost/events?path=a", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, handler, http.MethodGet, "/contexts/ghost/events", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSetContext_ThroughPrimitive(t *testing.T) {
	handler := NewHandler(bindery.New())
	do(t, handler, http.MethodPut, "/contexts/page", `{"a":1}`)
	rr := do(t, handler, http.MethodPut, "/contexts/page?path=a.b", `2`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}
