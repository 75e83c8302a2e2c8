package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
	"github.com/iota-uz/outing-approval/pkg/clock"
	"github.com/iota-uz/outing-approval/pkg/composables"
	"github.com/iota-uz/outing-approval/pkg/credential"
	"github.com/iota-uz/outing-approval/pkg/eventbus"
	"github.com/iota-uz/outing-approval/pkg/idgen"
)

// UnknownClient fills client metadata that the inbound request did not carry.
const UnknownClient = "unknown"

// Notifier delivers approver facing messages. Failures are reported to the
// caller, which decides whether they matter.
type Notifier interface {
	SendApprovalRequest(ctx context.Context, rec *outingrequest.Record) error
	SendOutcome(ctx context.Context, id string, status outingrequest.Status, comment string) error
}

type SubmitDTO struct {
	outingrequest.Submission
	ClientIP  string
	UserAgent string
}

type OutingService struct {
	repo      outingrequest.Repository
	notifier  Notifier
	publisher eventbus.EventBus
}

func NewOutingService(repo outingrequest.Repository, notifier Notifier, publisher eventbus.EventBus) *OutingService {
	return &OutingService{
		repo:      repo,
		notifier:  notifier,
		publisher: publisher,
	}
}

// credentialFailure reports whether err comes from unusable signing material.
// Those abort the operation; other store failures are logged and absorbed.
func credentialFailure(err error) bool {
	return errors.Is(err, credential.ErrMissingKey) || errors.Is(err, credential.ErrMalformedKey)
}

// Submit stores a new pending request and asks the approver for a decision.
// Store and notification failures are logged and do not change the result.
func (s *OutingService) Submit(ctx context.Context, dto SubmitDTO) (*outingrequest.Record, error) {
	ip, ua := dto.ClientIP, dto.UserAgent
	if ip == "" {
		ip = UnknownClient
	}
	if ua == "" {
		ua = UnknownClient
	}

	rec := outingrequest.New(idgen.New(), dto.Submission, ip, ua, clock.Now())
	logger := composables.UseLogger(ctx).WithField("outing-id", rec.ID)

	if err := s.repo.Append(ctx, rec); err != nil {
		if credentialFailure(err) {
			return nil, fmt.Errorf("failed to store outing request: %w", err)
		}
		logger.WithError(err).Warn("failed to store outing request")
	}
	if err := s.notifier.SendApprovalRequest(ctx, rec); err != nil {
		logger.WithError(err).Warn("failed to send approval request")
	}
	logger.Info("outing request submitted")

	s.publisher.Publish(&RequestSubmittedEvent{Record: *rec})
	return rec, nil
}

// Decide applies an approver decision carried in postback data. It reports
// false without side effects when the data is not a decision.
func (s *OutingService) Decide(ctx context.Context, data, comment string) (bool, error) {
	pb, ok := ParsePostback(data)
	if !ok {
		composables.UseLogger(ctx).WithField("postback", data).Debug("ignoring non-actionable postback")
		return false, nil
	}
	if err := s.ApplyDecision(ctx, pb.ID, pb.Action, comment); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyDecision records the decision for id and relays the outcome. An id
// that no stored record carries leaves the store untouched.
func (s *OutingService) ApplyDecision(ctx context.Context, id string, action outingrequest.Action, comment string) error {
	status, ok := action.Status()
	if !ok {
		return fmt.Errorf("unsupported action %q", action)
	}
	logger := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"outing-id": id,
		"status":    status,
	})

	found := true
	if err := s.repo.UpdateStatus(ctx, id, status, comment); err != nil {
		switch {
		case errors.Is(err, outingrequest.ErrRecordNotFound):
			found = false
			logger.Warn("decision references unknown outing request")
		case credentialFailure(err):
			return fmt.Errorf("failed to update outing request: %w", err)
		default:
			logger.WithError(err).Warn("failed to update outing request")
		}
	}
	if err := s.notifier.SendOutcome(ctx, id, status, comment); err != nil {
		logger.WithError(err).Warn("failed to send outcome")
	}
	logger.Info("outing decision recorded")

	s.publisher.Publish(&DecisionRecordedEvent{
		ID:      id,
		Status:  status,
		Comment: comment,
		Found:   found,
	})
	return nil
}

// GetByID returns the stored record for id.
func (s *OutingService) GetByID(ctx context.Context, id string) (*outingrequest.Record, error) {
	return s.repo.FindByID(ctx, id)
}
