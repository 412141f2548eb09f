package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func TestRunChecksAggregatesStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{
			name:   "no checks",
			checks: nil,
			want:   StatusHealthy,
		},
		{
			name: "degraded",
			checks: map[string]Check{
				"translator": TranslatorCheck(),
				"preview":    PreviewCheck(func() error { return fmt.Errorf("database is locked") }),
			},
			want: StatusDegraded,
		},
		{
			name: "unhealthy wins",
			checks: map[string]Check{
				"a": func() CheckResult { return CheckResult{Status: StatusDegraded} },
				"b": func() CheckResult { return CheckResult{Status: StatusUnhealthy} },
			},
			want: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("test")
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}
			if got := c.RunChecks().Status; got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRunChecksOrder(t *testing.T) {
	c := NewChecker("test")
	c.RegisterCheck("zeta", PreviewCheck(nil))
	c.RegisterCheck("alpha", TranslatorCheck())

	resp := c.RunChecks()
	if len(resp.Checks) != 2 || resp.Checks[0].Name != "alpha" || resp.Checks[1].Name != "zeta" {
		t.Errorf("Expected checks in name order, got %+v", resp.Checks)
	}
	if resp.Checks[1].Message != "preview disabled" {
		t.Errorf("Expected disabled preview message, got %q", resp.Checks[1].Message)
	}
	if !c.IsHealthy() {
		t.Error("Expected healthy")
	}
}

func TestEndpoints(t *testing.T) {
	c := NewChecker("1.2.3")
	c.RegisterCheck("preview", PreviewCheck(func() error { return fmt.Errorf("gone") }))
	r := mux.NewRouter()
	c.Register(r)

	tests := []struct {
		path   string
		status int
		want   Status
	}{
		{"/health", http.StatusServiceUnavailable, StatusDegraded},
		{"/health/live", http.StatusOK, StatusHealthy},
		{"/health/ready", http.StatusOK, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}

			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.want || resp.Version != "1.2.3" {
				t.Errorf("Unexpected response %+v", resp)
			}
		})
	}
}
