package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHandler_ExposesRecordedMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordBooking(BookingCreated)
	c.RecordBooking(BookingConflict)
	c.RecordAvailabilityQuery(12 * time.Millisecond)
	c.RecordHTTPStatus(http.StatusCreated)
	c.RecordSessionsCleaned(3)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	for _, want := range []string{
		`rentacar_bookings_total{result="created"} 1`,
		`rentacar_bookings_total{result="conflict"} 1`,
		`rentacar_availability_queries_total 1`,
		`rentacar_availability_query_seconds_count 1`,
		`rentacar_http_status_total{status_code="201"} 1`,
		`rentacar_sessions_cleaned_total 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output should contain %q", want)
		}
	}
}

func TestHandler_OnlyServesGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("empty registry should not expose default Go collector metrics")
	}
}
