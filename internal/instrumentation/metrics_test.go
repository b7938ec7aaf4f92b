package instrumentation

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordAnalysis(OutcomeOK, 12)
	m.RecordAnalysis(OutcomeOK, 30)
	m.RecordAnalysis(OutcomeInsufficientData, 3)
	m.RecordFallback()
	m.RecordJob("completed")
	m.RecordError("consumer", "decode_failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(OutcomeInsufficientData)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AllocationFallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("consumer", "decode_failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.AnalysesTotal))
}

func TestTrackInFlight(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	done := m.TrackInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesInFlight))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.AnalysesInFlight))
}
