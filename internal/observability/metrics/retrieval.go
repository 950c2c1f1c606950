package metrics

import "time"

func (m *HTTPServerMetrics) RecordSearch(service, endpoint string, resultCount int) {
	m.searchesTotal.WithLabelValues(service, endpoint).Inc()
	m.searchResults.WithLabelValues(service, endpoint).Observe(float64(resultCount))
	if resultCount == 0 {
		m.searchNoMatchTotal.WithLabelValues(service, endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) RecordAnswer(service, source string, generation time.Duration) {
	if source == "" {
		source = "unknown"
	}
	m.answerSourceTotal.WithLabelValues(service, source).Inc()
	m.generationDuration.WithLabelValues(service, source).Observe(generation.Seconds())
}

func (m *HTTPServerMetrics) RecordRerankOutcome(service string, applied bool) {
	outcome := "skipped"
	if applied {
		outcome = "applied"
	}
	m.rerankOutcomeTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) SetCorpusControls(count int) {
	m.corpusControls.Set(float64(count))
}
