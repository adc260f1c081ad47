package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"
)

// findFamily は指定名のメトリクスファミリーを返す。見つからなければテストを失敗させる。
func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// labelValue は指定ラベル値を持つメトリクスのカウンタ値を返す。
func labelValue(mf *dto.MetricFamily, label, value string) (float64, bool) {
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				return m.GetCounter().GetValue(), true
			}
		}
	}
	return 0, false
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestNewCollector_DoubleRegisterPanics は同一レジストリへの二重登録がpanicすることを検証する。
func TestNewCollector_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	_ = NewCollector(reg)
}

// TestRecordHTTPStatus_LabelsByCode はステータスコード別にカウントされることを検証する。
func TestRecordHTTPStatus_LabelsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(307)

	mf := findFamily(t, reg, "carmart_http_status_total")
	if v, ok := labelValue(mf, "status_code", "200"); !ok || v != 2 {
		t.Errorf("status 200 = %v (found=%v), want 2", v, ok)
	}
	if v, ok := labelValue(mf, "status_code", "307"); !ok || v != 1 {
		t.Errorf("status 307 = %v (found=%v), want 1", v, ok)
	}
}

// TestRecordRequestLatency_ObservesHistogram はレイテンシがヒストグラムに記録されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(150 * time.Millisecond)

	mf := findFamily(t, reg, "carmart_request_latency_seconds")
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() < 0.149 || h.GetSampleSum() > 0.151 {
		t.Errorf("sample sum = %v, want ~0.15", h.GetSampleSum())
	}
}

// TestRecordSessionRefresh_LabelsByOutcome はセッション検証結果別にカウントされることを検証する。
func TestRecordSessionRefresh_LabelsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionRefresh("valid")
	c.RecordSessionRefresh("refreshed")
	c.RecordSessionRefresh("valid")

	mf := findFamily(t, reg, "carmart_session_refresh_total")
	if v, _ := labelValue(mf, "outcome", "valid"); v != 2 {
		t.Errorf("valid = %v, want 2", v)
	}
	if v, _ := labelValue(mf, "outcome", "refreshed"); v != 1 {
		t.Errorf("refreshed = %v, want 1", v)
	}
}

// TestRecordLocaleRedirect_LabelsByLocale はロケール別にリダイレクトがカウントされることを検証する。
func TestRecordLocaleRedirect_LabelsByLocale(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLocaleRedirect("ja")

	mf := findFamily(t, reg, "carmart_locale_redirect_total")
	if v, ok := labelValue(mf, "locale", "ja"); !ok || v != 1 {
		t.Errorf("locale ja = %v (found=%v), want 1", v, ok)
	}
}

// TestDomainCounters_Increment は会話・メッセージ・出品のカウンタが増加することを検証する。
func TestDomainCounters_Increment(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordConversationCreated()
	c.RecordMessageSent()
	c.RecordMessageSent()
	c.RecordListingCreated()

	tests := []struct {
		name string
		want float64
	}{
		{"carmart_conversations_created_total", 1},
		{"carmart_messages_sent_total", 2},
		{"carmart_listings_created_total", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mf := findFamily(t, reg, tt.name)
			if got := mf.GetMetric()[0].GetCounter().GetValue(); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

// TestHandler_ServesMetrics はHandlerがPrometheus形式でメトリクスを返すことを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordMessageSent()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(w.Result().Body)
	if !strings.Contains(string(body), "carmart_messages_sent_total 1") {
		t.Errorf("body should contain carmart_messages_sent_total 1, got:\n%s", body)
	}
}
