package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/d-led/iiwsit/pkg/decision"
)

func testContext() context.Context {
	return context.Background()
}

func TestNew(t *testing.T) {
	s := New()
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.logger == nil {
		t.Error("Server logger not initialized")
	}
	if s.metrics == nil {
		t.Error("Server metrics not initialized")
	}
	if s.ipLimiters == nil {
		t.Error("Server ipLimiters not initialized")
	}
	if s.batchConcurrency != DefaultBatchConcurrency {
		t.Errorf("batchConcurrency = %d, want %d", s.batchConcurrency, DefaultBatchConcurrency)
	}
}

func TestSetCommit(t *testing.T) {
	s := New()
	commit := "abc123def"
	s.SetCommit(commit)
	if s.serverCommit != commit {
		t.Errorf("SetCommit() failed: got %s, want %s", s.serverCommit, commit)
	}
}

func TestSetCORSConfig(t *testing.T) {
	tests := []struct {
		name         string
		origins      string
		allowAll     bool
		wantAllowAll bool
		wantOrigins  int
	}{
		{
			name:         "allow all",
			origins:      "",
			allowAll:     true,
			wantAllowAll: true,
			wantOrigins:  0,
		},
		{
			name:         "specific origins",
			origins:      "https://example.com, https://test.com",
			allowAll:     false,
			wantAllowAll: false,
			wantOrigins:  2,
		},
		{
			name:         "wildcard origin",
			origins:      "https://*.example.com",
			allowAll:     false,
			wantAllowAll: false,
			wantOrigins:  1,
		},
		{
			name:         "invalid wildcards dropped",
			origins:      "https://a*.example.com,*.*.example.com,https://ok.com",
			allowAll:     false,
			wantAllowAll: false,
			wantOrigins:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.SetCORSConfig(tt.origins, tt.allowAll)
			if s.allowAllCors != tt.wantAllowAll {
				t.Errorf("allowAllCors = %v, want %v", s.allowAllCors, tt.wantAllowAll)
			}
			if len(s.allowedOrigins) != tt.wantOrigins {
				t.Errorf("len(allowedOrigins) = %d, want %d (%v)", len(s.allowedOrigins), tt.wantOrigins, s.allowedOrigins)
			}
		})
	}
}

func TestSetRateLimit(t *testing.T) {
	s := New()
	s.SetRateLimit(50, 75)
	if s.rateLimit != 50 {
		t.Errorf("rateLimit = %d, want 50", s.rateLimit)
	}
	if s.rateBurst != 75 {
		t.Errorf("rateBurst = %d, want 75", s.rateBurst)
	}
}

func TestSetBatchConcurrency(t *testing.T) {
	s := New()
	s.SetBatchConcurrency(0)
	if s.batchConcurrency != 1 {
		t.Errorf("batchConcurrency = %d, want 1 for non-positive input", s.batchConcurrency)
	}
	s.SetBatchConcurrency(8)
	if s.batchConcurrency != 8 {
		t.Errorf("batchConcurrency = %d, want 8", s.batchConcurrency)
	}
}

func TestIsOriginAllowed(t *testing.T) {
	s := New()
	s.SetCORSConfig("https://example.com,https://*.test.com,*.dev.com", false)

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"exact match", "https://example.com", true},
		{"wildcard subdomain match", "https://sub.test.com", true},
		{"wildcard deep subdomain match", "https://deep.sub.test.com", true},
		{"wildcard matches base domain", "https://test.com", true},
		{"wildcard ignores port", "https://sub.test.com:8443", true},
		{"wildcard without protocol", "http://sub.dev.com", true},
		{"no match", "https://evil.com", false},
		{"partial match not allowed", "https://notexample.com", false},
		{"suffix trick not allowed", "https://eviltest.com", false},
		{"protocol mismatch", "http://sub.test.com", false},
		{"empty origin", "", false},
		{"case sensitive exact match", "https://Example.com", false},
		{"unsupported scheme", "ftp://sub.test.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.isOriginAllowed(tt.origin); got != tt.want {
				t.Errorf("isOriginAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	s := New()
	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("handleHealth() status = %d, want %d", w.Code, http.StatusOK)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["status"] != "healthy" {
		t.Errorf("handleHealth() status = %s, want healthy", response["status"])
	}
}

func TestServeHTTPSecurityHeaders(t *testing.T) {
	s := New()
	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	w := httptest.NewRecorder()

	s.ServeHTTP(w, req)

	headers := map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"X-Frame-Options":              "DENY",
		"X-XSS-Protection":             "1; mode=block",
		"Referrer-Policy":              "no-referrer",
		"Cross-Origin-Resource-Policy": "cross-origin",
	}

	for name, want := range headers {
		if got := w.Header().Get(name); got != want {
			t.Errorf("Security header %s = %s, want %s", name, got, want)
		}
	}
}

func TestServeHTTPRequestID(t *testing.T) {
	s := New()

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		if _, err := uuid.Parse(w.Header().Get(requestIDHeader)); err != nil {
			t.Errorf("Expected a UUID request ID, got %q", w.Header().Get(requestIDHeader))
		}
	})

	t.Run("propagated", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
		req.Header.Set(requestIDHeader, id)
		w := httptest.NewRecorder()
		s.ServeHTTP(w, req)
		if got := w.Header().Get(requestIDHeader); got != id {
			t.Errorf("request ID = %q, want %q", got, id)
		}
	})

	t.Run("malformed replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
		req.Header.Set(requestIDHeader, "not-a-uuid\r\ninjected")
		w := httptest.NewRecorder()
		s.ServeHTTP(w, req)
		if _, err := uuid.Parse(w.Header().Get(requestIDHeader)); err != nil {
			t.Errorf("Expected a fresh UUID, got %q", w.Header().Get(requestIDHeader))
		}
	})
}

func TestServeHTTPCORS(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		allowAllCors   bool
		configOrigins  string
		wantCORSHeader bool
	}{
		{"allow all - valid origin", "https://example.com", true, "", true},
		{"specific origin - allowed", "https://example.com", false, "https://example.com", true},
		{"specific origin - not allowed", "https://evil.com", false, "https://example.com", false},
		{"no origin header", "", false, "https://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.SetCORSConfig(tt.configOrigins, tt.allowAllCors)

			req := httptest.NewRequest(http.MethodOptions, "/v1/calculate", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()

			s.ServeHTTP(w, req)

			corsHeader := w.Header().Get("Access-Control-Allow-Origin")
			if hasCORS := corsHeader != ""; hasCORS != tt.wantCORSHeader {
				t.Errorf("CORS header present = %v, want %v (header value: %s)", hasCORS, tt.wantCORSHeader, corsHeader)
			}
			if w.Code != http.StatusNoContent {
				t.Errorf("OPTIONS request status = %d, want %d", w.Code, http.StatusNoContent)
			}
		})
	}
}

func TestServeHTTPRouting(t *testing.T) {
	s := New()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"health endpoint", http.MethodGet, "/health", http.StatusOK},
		{"calculate GET", http.MethodGet, "/v1/calculate", http.StatusOK},
		{"defaults", http.MethodGet, "/v1/defaults", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"calculate - wrong method", http.MethodDelete, "/v1/calculate", http.StatusMethodNotAllowed},
		{"batch - wrong method", http.MethodGet, "/v1/calculate/batch", http.StatusMethodNotAllowed},
		{"defaults - wrong method", http.MethodPost, "/v1/defaults", http.StatusMethodNotAllowed},
		{"not found", http.MethodGet, "/nonexistent", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			w := httptest.NewRecorder()

			s.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleCalculateGET(t *testing.T) {
	s := New()
	s.SetCommit("deadbeef")

	req := httptest.NewRequest(http.MethodGet,
		"/v1/calculate?rate=1000&speedGain=30&computeCostPerHour=0.75&developerHourlyRate=100&optimizationPreference=10", http.NoBody)
	w := httptest.NewRecorder()

	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp CalculateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Result.Decision != decision.Yes {
		t.Errorf("decision = %s, want YES", resp.Result.Decision)
	}
	if resp.Mode != decision.ModeCost {
		t.Errorf("mode = %s, want %s", resp.Mode, decision.ModeCost)
	}
	if !strings.HasPrefix(resp.Result.Reasoning[0], "Scoring (Cost-optimized mode)") {
		t.Errorf("reasoning[0] = %q", resp.Result.Reasoning[0])
	}
	if resp.Result.Metrics.RatePerHour != "3600000.00" {
		t.Errorf("ratePerHour = %q, want 3600000.00", resp.Result.Metrics.RatePerHour)
	}
	if resp.Commit != "deadbeef" {
		t.Errorf("commit = %q", resp.Commit)
	}
	if resp.RequestID == "" || resp.RequestID != w.Header().Get(requestIDHeader) {
		t.Errorf("request_id = %q, header = %q", resp.RequestID, w.Header().Get(requestIDHeader))
	}
	if !strings.Contains(resp.Message, "cost optimization perspective") {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.Factors) != 7 {
		t.Errorf("Expected 7 factors without failure rates, got %d", len(resp.Factors))
	}
}

func TestHandleCalculatePOSTMergesOverDefaults(t *testing.T) {
	s := New()

	body := `{"speedGain": 0, "currentFailure": 5, "bugFailure": 1}`
	req := httptest.NewRequest(http.MethodPost, "/v1/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp CalculateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Result.Metrics.BreakEvenYears != decision.Infinity {
		t.Errorf("breakEvenYears = %q, want %q", resp.Result.Metrics.BreakEvenYears, decision.Infinity)
	}
	// Rate still comes from the defaults: 100/s
	if resp.Result.Metrics.RatePerHour != "360000.00" {
		t.Errorf("ratePerHour = %q, want 360000.00", resp.Result.Metrics.RatePerHour)
	}
	if resp.Result.Metrics.FailureRateChange != "4.00" {
		t.Errorf("failureRateChange = %q, want 4.00", resp.Result.Metrics.FailureRateChange)
	}
	if len(resp.Factors) != 8 {
		t.Errorf("Expected 8 factors with failure rates, got %d", len(resp.Factors))
	}
	if !strings.Contains(resp.FactorsText, "Failure Rate Impact (15%)") {
		t.Errorf("factors_summary = %q", resp.FactorsText)
	}
}

func TestHandleCalculateValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantFields []string
	}{
		{
			name:       "unknown unit",
			method:     http.MethodGet,
			target:     "/v1/calculate?rateUnit=fortnight",
			wantFields: []string{"rateUnit"},
		},
		{
			name:       "unparseable numbers",
			method:     http.MethodGet,
			target:     "/v1/calculate?rate=fast&duration=slow",
			wantFields: []string{"duration", "rate"},
		},
		{
			name:       "NaN",
			method:     http.MethodGet,
			target:     "/v1/calculate?speedGain=NaN",
			wantFields: []string{"speedGain"},
		},
		{
			name:       "out of range in body",
			method:     http.MethodPost,
			target:     "/v1/calculate",
			body:       `{"optimizationPreference": 150, "timeHorizon": 0}`,
			wantFields: []string{"timeHorizon", "optimizationPreference"},
		},
		{
			name:   "invalid JSON",
			method: http.MethodPost,
			target: "/v1/calculate",
			body:   `{"rate": `,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			s.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
			}

			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Error == "" {
				t.Error("Expected an error message")
			}
			if len(resp.Fields) != len(tt.wantFields) {
				t.Fatalf("fields = %v, want %v", resp.Fields, tt.wantFields)
			}
			for i, want := range tt.wantFields {
				if resp.Fields[i].Field != want {
					t.Errorf("fields[%d] = %q, want %q", i, resp.Fields[i].Field, want)
				}
			}
		})
	}
}

func TestHandleCalculateBodyTooLarge(t *testing.T) {
	s := New()
	body := `{"rate": 1, "pad": "` + strings.Repeat("x", maxRequestSize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/calculate", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleDefaults(t *testing.T) {
	s := New()
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/defaults", http.NoBody))

	var got decision.Params
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got != decision.DefaultParams() {
		t.Errorf("defaults = %+v, want %+v", got, decision.DefaultParams())
	}
}

func TestHandleBatch(t *testing.T) {
	s := New()

	body, err := json.Marshal(map[string]any{
		"scenarios": []map[string]any{
			{"name": "defaults"},
			{"name": "broken", "params": map[string]any{"rate": -1}},
			{"params": map[string]any{"rate": 0.1, "rateUnit": "hour", "implementationTime": 1000}},
		},
	})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/calculate/batch", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp BatchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Evaluated != 2 || resp.Skipped != 1 {
		t.Errorf("evaluated/skipped = %d/%d, want 2/1", resp.Evaluated, resp.Skipped)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(resp.Results))
	}

	wantNames := []string{"defaults", "broken", "scenario-3"}
	for i, item := range resp.Results {
		if item.Name != wantNames[i] || item.Index != i {
			t.Errorf("results[%d] = %s/%d, want %s/%d", i, item.Name, item.Index, wantNames[i], i)
		}
	}

	if resp.Results[0].Result == nil || resp.Results[0].Result.Decision != decision.Yes {
		t.Errorf("Expected YES for defaults, got %+v", resp.Results[0])
	}
	if resp.Results[1].Result != nil || len(resp.Results[1].Fields) != 1 || resp.Results[1].Fields[0].Field != "rate" {
		t.Errorf("Expected a rate validation error, got %+v", resp.Results[1])
	}
	if resp.Results[2].Result == nil || resp.Results[2].Result.Decision != decision.No {
		t.Errorf("Expected NO for low-traffic scenario, got %+v", resp.Results[2])
	}
}

func TestHandleBatchRejects(t *testing.T) {
	tooMany := make([]BatchScenario, MaxBatchScenarios+1)

	tests := []struct {
		name string
		body any
	}{
		{"empty", BatchRequest{}},
		{"too many", BatchRequest{Scenarios: tooMany}},
		{"bad params", map[string]any{"scenarios": []map[string]any{{"params": map[string]any{"rate": "fast"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.body)
			if err != nil {
				t.Fatalf("Failed to marshal request: %v", err)
			}
			s := New()
			w := httptest.NewRecorder()
			s.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/calculate/batch", bytes.NewReader(body)))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRateLimiting(t *testing.T) {
	s := New()
	s.SetRateLimit(1, 1)

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/v1/calculate", http.NoBody)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		s.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(); code != http.StatusOK {
		t.Errorf("First request status = %d, want 200", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Errorf("Second request status = %d, want 429", code)
	}

	// Another client is unaffected
	req := httptest.NewRequest(http.MethodGet, "/v1/calculate", http.NoBody)
	req.Header.Set("X-Forwarded-For", "10.0.0.7, 192.168.1.1")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Other client status = %d, want 200", w.Code)
	}
}

func TestLimiterConcurrency(t *testing.T) {
	s := New()
	s.SetRateLimit(10, 10)
	ctx := testContext()

	limiter1 := s.limiter(ctx, "192.168.1.1")
	limiter2 := s.limiter(ctx, "192.168.1.1")
	if limiter1 != limiter2 {
		t.Error("Same IP should return same limiter instance")
	}

	limiter3 := s.limiter(ctx, "192.168.1.2")
	if limiter1 == limiter3 {
		t.Error("Different IPs should return different limiters")
	}
}

func TestRateLimiterBehavior(t *testing.T) {
	s := New()
	s.SetRateLimit(1, 2) // 1 per second, burst of 2

	limiter := s.limiter(testContext(), "192.168.1.100")

	if !limiter.Allow() {
		t.Error("First request should be allowed (within burst)")
	}
	if !limiter.Allow() {
		t.Error("Second request should be allowed (within burst)")
	}
	if limiter.Allow() {
		t.Error("Third request should be rate limited (burst exhausted)")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"remote addr", "192.168.1.1:1234", "", "192.168.1.1"},
		{"forwarded single", "10.0.0.1:1234", "203.0.113.5", "203.0.113.5"},
		{"forwarded chain", "10.0.0.1:1234", "203.0.113.5, 10.0.0.2", "203.0.113.5"},
		{"no port", "192.168.1.1", "", "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRequestError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad request", NewRequestError(http.StatusBadRequest, "bad"), true},
		{"rate limit", NewRequestError(http.StatusTooManyRequests, "slow down"), true},
		{"server error", NewRequestError(http.StatusInternalServerError, "boom"), false},
		{"sentinel", ErrBatchTooLarge, true},
		{"validation", decision.Validate(decision.Params{}), true},
		{"other", errors.New("disk full"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRequestError(tt.err); got != tt.want {
				t.Errorf("IsRequestError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAsRequestErrorHidesInternalErrors(t *testing.T) {
	reqErr := asRequestError(errors.New("secret path /etc/shadow"))
	if reqErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", reqErr.StatusCode)
	}
	if strings.Contains(reqErr.Message, "shadow") {
		t.Errorf("Internal error leaked: %q", reqErr.Message)
	}
}
