package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/VaishnaviDS/Intern-dashboard-server/internal/donors"
	"github.com/stretchr/testify/require"
)

func counterValue(testContext *testing.T, metrics *Metrics, name string, labels map[string]string) float64 {
	testContext.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(testContext, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := true
			for _, pair := range metric.GetLabel() {
				if expected, ok := labels[pair.GetName()]; ok && expected != pair.GetValue() {
					matched = false
				}
			}
			if matched {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestDonationRecordedCountsOutcomes(testContext *testing.T) {
	metrics := NewMetrics()

	metrics.DonationRecorded(donors.DonationEvent{Outcome: donors.OutcomeCreated, Amount: 600})
	metrics.DonationRecorded(donors.DonationEvent{Outcome: donors.OutcomeUpdated, Amount: 700})
	metrics.DonationRecorded(donors.DonationEvent{Outcome: donors.OutcomeUpdated, Amount: 50})

	require.Equal(testContext, 1.0, counterValue(testContext, metrics, "donor_api_donations_total", map[string]string{"outcome": "created"}))
	require.Equal(testContext, 2.0, counterValue(testContext, metrics, "donor_api_donations_total", map[string]string{"outcome": "updated"}))
	require.Equal(testContext, 1350.0, counterValue(testContext, metrics, "donor_api_donated_amount_total", nil))
}

func TestObserveRequestExposedOnHandler(testContext *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveRequest(http.MethodPost, "/api/user/new", http.StatusCreated, 15*time.Millisecond)
	metrics.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	require.Equal(testContext, 1.0, counterValue(testContext, metrics, "donor_api_http_requests_total",
		map[string]string{"route": "unmatched", "status": "404"}))

	recorder := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(testContext, http.StatusOK, recorder.Code)

	body, err := io.ReadAll(recorder.Body)
	require.NoError(testContext, err)
	require.True(testContext, strings.Contains(string(body), `donor_api_http_requests_total{method="POST",route="/api/user/new",status="201"} 1`))
	require.True(testContext, strings.Contains(string(body), "donor_api_http_request_duration_seconds_bucket"))
}
