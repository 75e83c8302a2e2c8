package services

import "github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"

// RequestSubmittedEvent is published after a submission has been stored.
type RequestSubmittedEvent struct {
	Record outingrequest.Record
}

// DecisionRecordedEvent is published after a decision has been applied.
// Found is false when no stored record carried the id.
type DecisionRecordedEvent struct {
	ID      string
	Status  outingrequest.Status
	Comment string
	Found   bool
}
