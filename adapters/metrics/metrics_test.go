package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Go-routine-4595/iba-monitor/model"
)

func family(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func TestMetricsCounters(t *testing.T) {
	m := New()
	m.ObserveTick(3*time.Millisecond, 4)
	m.ObserveTick(2*time.Millisecond, 4)
	m.AlarmRaised(model.Critical)
	m.AlarmRaised(model.Critical)
	m.AlarmRaised(model.Warning)
	m.ExpressionError("sig_2")
	m.SourceError("sig_1")
	m.NotificationDropped()
	m.GatewayFailed("kafka")

	assert.Equal(t, 8.0, family(t, m, "iba_samples_total").GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, uint64(2), family(t, m, "iba_tick_latency_seconds").GetMetric()[0].GetHistogram().GetSampleCount())

	bySeverity := map[string]float64{}
	for _, metric := range family(t, m, "iba_alarm_events_total").GetMetric() {
		bySeverity[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"CRITICAL": 2, "WARNING": 1}, bySeverity)

	assert.Equal(t, 1.0, family(t, m, "iba_notifications_dropped_total").GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, "kafka", family(t, m, "iba_gateway_failures_total").GetMetric()[0].GetLabel()[0].GetValue())
}

func TestMetricsHandler(t *testing.T) {
	m := New()
	m.SourceError("sig_3")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `iba_source_errors_total{signal="sig_3"} 1`)
}
