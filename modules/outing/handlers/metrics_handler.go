package handlers

import (
	"github.com/iota-uz/outing-approval/modules/outing/services"
	"github.com/iota-uz/outing-approval/pkg/application"
	"github.com/iota-uz/outing-approval/pkg/metrics"
)

type MetricsEventsHandler struct{}

func RegisterMetricsEventHandlers(app application.Application) {
	handler := &MetricsEventsHandler{}
	app.EventPublisher().Subscribe(handler.onRequestSubmitted)
	app.EventPublisher().Subscribe(handler.onDecisionRecorded)
}

func (h *MetricsEventsHandler) onRequestSubmitted(_ *services.RequestSubmittedEvent) {
	metrics.RecordSubmission()
}

func (h *MetricsEventsHandler) onDecisionRecorded(event *services.DecisionRecordedEvent) {
	metrics.RecordDecision(string(event.Status), event.Found)
}
