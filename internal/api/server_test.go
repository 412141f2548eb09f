package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	_ "github.com/mattn/go-sqlite3"

	"querysync/internal/cache"
	"querysync/internal/errors"
	"querysync/internal/metrics"
	"querysync/internal/preview"
	qsql "querysync/internal/sql"
)

func newTestServer(t *testing.T, runner *preview.Runner) (*Server, *metrics.Metrics) {
	t.Helper()
	pc := cache.New(cache.DefaultConfig())
	t.Cleanup(pc.Close)
	m := metrics.New()
	s := NewServer(Options{
		Addr:    "127.0.0.1:0",
		Version: "test",
		Cache:   pc,
		Preview: runner,
		Metrics: m,
	})
	return s, m
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestParseEndpoint(t *testing.T) {
	s, m := newTestServer(t, nil)

	rec := do(t, s, "POST", "/v1/parse", `{"sql": "SELECT a FROM t WHERE b = 'x' LIMIT 5 junk"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a request ID header")
	}

	var result qsql.ParseResult
	decodeBody(t, rec, &result)
	if result.Query.From != "t" || result.Query.Limit != 5 {
		t.Errorf("Unexpected model: %+v", result.Query)
	}
	if len(result.Diagnostics) != 1 {
		t.Errorf("Expected 1 diagnostic, got %v", result.Diagnostics)
	}

	do(t, s, "POST", "/v1/parse", `{"sql": "SELECT a  FROM t WHERE b = 'x' LIMIT 5 junk"}`)
	if m.CacheHits() != 1 || m.Total(metrics.OpParse) != 2 {
		t.Errorf("Expected 2 parses with 1 cache hit, got %d/%d", m.Total(metrics.OpParse), m.CacheHits())
	}
}

func TestParseEndpointErrors(t *testing.T) {
	s, m := newTestServer(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
		code   errors.ErrorCode
	}{
		{"unsupported", `{"sql": "DELETE FROM t"}`, http.StatusUnprocessableEntity, errors.ErrCodeUnsupportedStatement},
		{"malformed", `{"sql": `, http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"empty body", ``, http.StatusBadRequest, errors.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, "POST", "/v1/parse", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			var resp errorResponse
			decodeBody(t, rec, &resp)
			if resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("Expected error code %d, got %+v", tt.code, resp.Error)
			}
			if resp.RequestID == "" {
				t.Error("Expected request_id in error response")
			}
		})
	}

	if m.UnsupportedStatements() != 1 {
		t.Errorf("Expected 1 unsupported statement, got %d", m.UnsupportedStatements())
	}
}

func TestGenerateEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)

	body := `{"query": {
		"select": [{"name": "a"}, {"name": "*", "aggregate": "COUNT", "alias": "n"}],
		"from": "t",
		"where": [
			{"column": "b", "operator": "=", "value": "O'Brien"},
			{"column": "c", "operator": "BETWEEN", "value": [1, 10], "conjunction": "OR"}
		],
		"groupBy": ["a"],
		"limit": 5
	}}`

	rec := do(t, s, "POST", "/v1/generate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp generateResponse
	decodeBody(t, rec, &resp)
	want := "SELECT a, COUNT(*) AS n FROM t WHERE b = 'O''Brien' OR c BETWEEN 1 AND 10 GROUP BY a LIMIT 5"
	if resp.SQL != want {
		t.Errorf("Expected %s, got %s", want, resp.SQL)
	}
	if !strings.Contains(resp.Formatted, "\nFROM t\nWHERE b = 'O''Brien'\n  OR c BETWEEN 1 AND 10") {
		t.Errorf("Unexpected formatted SQL:\n%s", resp.Formatted)
	}

	rec = do(t, s, "POST", "/v1/generate", `{"sql": "select  a from t"}`)
	decodeBody(t, rec, &resp)
	if resp.SQL != "SELECT a FROM t" {
		t.Errorf("Expected canonical SQL from text input, got %s", resp.SQL)
	}

	rec = do(t, s, "POST", "/v1/generate", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a request without query or sql, got %d", rec.Code)
	}
}

func TestFormatEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, "POST", "/v1/format", `{"sql": "SELECT a FROM t WHERE a = 1 AND b = 2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp formatResponse
	decodeBody(t, rec, &resp)
	if resp.Formatted != "SELECT a\nFROM t\nWHERE a = 1\n  AND b = 2" {
		t.Errorf("Unexpected formatted SQL:\n%s", resp.Formatted)
	}
}

func TestValidateEndpoint(t *testing.T) {
	s, m := newTestServer(t, nil)

	rec := do(t, s, "POST", "/v1/validate", `{"query": {"from": "", "where": [{"column": "a", "operator": "="}]}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var result qsql.ValidationResult
	decodeBody(t, rec, &result)
	if result.Valid {
		t.Error("Expected invalid result")
	}
	if len(result.Errors) != 2 || result.Errors[0] != "No table selected" {
		t.Errorf("Unexpected errors: %v", result.Errors)
	}
	if m.ValidationFailures() != 1 {
		t.Errorf("Expected 1 validation failure, got %d", m.ValidationFailures())
	}
}

func TestCheckEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, "POST", "/v1/check", `{"sql": "SELECT a, b FROM t WHERE a > 1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report struct {
		Compatible bool     `json:"compatible"`
		Problems   []string `json:"problems"`
	}
	decodeBody(t, rec, &report)
	if !report.Compatible {
		t.Errorf("Expected compatible report, got %v", report.Problems)
	}

	rec = do(t, s, "POST", "/v1/check", `{"query": {"select": [{"name": "a"}], "from": "t"}, "sql": "SELECT a FROM other"}`)
	decodeBody(t, rec, &report)
	if report.Compatible {
		t.Error("Expected table mismatch to be reported")
	}
}

func TestPreviewEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, "POST", "/v1/preview", `{"sql": "SELECT * FROM t"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 with preview disabled, got %d", rec.Code)
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()
	if _, err := db.Exec("CREATE TABLE t (a INTEGER); INSERT INTO t VALUES (1), (2), (3)"); err != nil {
		t.Fatalf("Failed to seed database: %v", err)
	}

	s, m := newTestServer(t, preview.NewRunner(db, preview.Options{RowLimit: 2, Timeout: time.Second}))

	rec = do(t, s, "POST", "/v1/preview", `{"sql": "SELECT a FROM t ORDER BY a DESC"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result preview.Result
	decodeBody(t, rec, &result)
	if len(result.Rows) != 2 || !result.Truncated {
		t.Errorf("Expected 2 truncated rows, got %+v", result)
	}

	rec = do(t, s, "POST", "/v1/preview", `{"sql": "SELECT a FROM missing"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 for a failing query, got %d", rec.Code)
	}
	if m.Failed(metrics.OpPreview) != 1 {
		t.Errorf("Expected 1 failed preview, got %d", m.Failed(metrics.OpPreview))
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /health, got %d: %s", rec.Code, rec.Body.String())
	}
	var health struct {
		Status string `json:"status"`
	}
	decodeBody(t, rec, &health)
	if health.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", health.Status)
	}

	do(t, s, "POST", "/v1/format", `{"sql": "SELECT 1"}`)
	rec = do(t, s, "GET", "/metrics", "")
	if !strings.Contains(rec.Body.String(), `querysync_operations_total{op="format"} 1`) {
		t.Errorf("Expected format counter in metrics output:\n%s", rec.Body.String())
	}
}

func TestMiddleware(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, "OPTIONS", "/v1/parse", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header on preflight")
	}

	req := httptest.NewRequest("POST", "/v1/format", strings.NewReader(`{"sql": ""}`))
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("Expected request ID to be echoed, got %q", got)
	}

	rec = do(t, s, "GET", "/v1/parse", "")
	if rec.Code == http.StatusOK {
		t.Error("Expected GET /v1/parse to be rejected")
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health/live")
	if err != nil {
		t.Fatalf("GET /health/live failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shut down")
	}
}

func TestCompressedResponses(t *testing.T) {
	s := NewServer(Options{Version: "test", Metrics: metrics.New(), GzipMinSize: 64})

	cols := make([]string, 100)
	for i := range cols {
		cols[i] = fmt.Sprintf("column_%d", i)
	}
	body := fmt.Sprintf(`{"sql": "SELECT %s FROM t"}`, strings.Join(cols, ", "))

	req := httptest.NewRequest("POST", "/v1/format", strings.NewReader(body))
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Expected gzip encoding, got headers %v", rec.Header())
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	var resp formatResponse
	if err := json.NewDecoder(zr).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode gzipped response: %v", err)
	}
	if !strings.HasPrefix(resp.Formatted, "SELECT column_0, column_1") {
		t.Errorf("Unexpected formatted SQL: %.40s", resp.Formatted)
	}

	// Small responses and clients without gzip get plain bodies.
	rec = do(t, s, "POST", "/v1/format", `{"sql": "SELECT a FROM t"}`)
	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("Expected no compression without Accept-Encoding")
	}
}
