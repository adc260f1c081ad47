package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestRecoveryMiddleware_PanicReturns500 はpanicが統一フォーマットの500に変換されることを検証する。
func TestRecoveryMiddleware_PanicReturns500(t *testing.T) {
	handler := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ja/listings", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "INTERNAL_ERROR") {
		t.Errorf("body = %s, want INTERNAL_ERROR", w.Body.String())
	}
}

// TestRecoveryMiddleware_AbortHandlerRepanics はhttp.ErrAbortHandlerが再送出されることを検証する。
func TestRecoveryMiddleware_AbortHandlerRepanics(t *testing.T) {
	handler := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered = %v, want http.ErrAbortHandler", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

// TestMetricsMiddleware_RecordsStatus はレスポンスステータスが記録されることを検証する。
func TestMetricsMiddleware_RecordsStatus(t *testing.T) {
	collector := &recordingCollector{}
	handler := NewMetricsMiddleware(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ja", http.StatusTemporaryRedirect)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(collector.statuses) != 1 || collector.statuses[0] != http.StatusTemporaryRedirect {
		t.Errorf("statuses = %v, want [307]", collector.statuses)
	}
}

// TestSecurityHeadersMiddleware_SetsHeaders はセキュリティヘッダーとCSPが付与されることを検証する。
func TestSecurityHeadersMiddleware_SetsHeaders(t *testing.T) {
	tests := []struct {
		name       string
		origin     string
		wantImgSrc string
	}{
		{"CDN未設定", "", "img-src 'self' data:;"},
		{"CDN設定あり", "https://cdn.carmart.example/", "img-src 'self' data: https://cdn.carmart.example;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSecurityHeadersMiddleware(tt.origin)(okHandler())
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			h := w.Header()
			if h.Get("X-Content-Type-Options") != "nosniff" {
				t.Error("X-Content-Type-Options should be nosniff")
			}
			if h.Get("X-Frame-Options") != "DENY" {
				t.Error("X-Frame-Options should be DENY")
			}
			csp := h.Get("Content-Security-Policy")
			if !strings.Contains(csp, tt.wantImgSrc) {
				t.Errorf("CSP = %q, want to contain %q", csp, tt.wantImgSrc)
			}
			if !strings.Contains(csp, "frame-ancestors 'none'") {
				t.Errorf("CSP = %q, want frame-ancestors 'none'", csp)
			}
		})
	}
}
