package metrics

import "time"

// Intake-side observations, recorded by the HTTP adapter around the
// orchestrator calls.

func (m *GatewayMetrics) RecordUpload(service, outcome string, batchSize int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.uploadsTotal.WithLabelValues(service, outcome).Inc()
	m.uploadDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
	if batchSize > 0 {
		m.uploadBatchSize.WithLabelValues(service).Observe(float64(batchSize))
	}
}

func (m *GatewayMetrics) RecordBusyRejection(service string) {
	m.busyRejectionsTotal.WithLabelValues(service).Inc()
}

func (m *GatewayMetrics) RecordValidationRejection(service string) {
	m.validationRejections.WithLabelValues(service).Inc()
}

func (m *GatewayMetrics) RecordDelete(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.deletesTotal.WithLabelValues(service, outcome).Inc()
}

func (m *GatewayMetrics) RecordUndo(service string, restored bool) {
	effect := "noop"
	if restored {
		effect = "restored"
	}
	m.undoTotal.WithLabelValues(service, effect).Inc()
}

func (m *GatewayMetrics) SetLiveSessions(count int) {
	m.sessionsLive.Set(float64(count))
}
