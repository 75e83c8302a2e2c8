package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
	"github.com/iota-uz/outing-approval/modules/outing/infrastructure/persistence"
	"github.com/iota-uz/outing-approval/modules/outing/services"
	"github.com/iota-uz/outing-approval/pkg/clock"
	"github.com/iota-uz/outing-approval/pkg/credential"
	"github.com/iota-uz/outing-approval/pkg/eventbus"
	"github.com/iota-uz/outing-approval/pkg/idgen"
)

type outcome struct {
	ID      string
	Status  outingrequest.Status
	Comment string
}

type fakeNotifier struct {
	mu         sync.Mutex
	approvals  []string
	outcomes   []outcome
	approveErr error
	outcomeErr error
}

func (n *fakeNotifier) SendApprovalRequest(_ context.Context, rec *outingrequest.Record) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approvals = append(n.approvals, rec.ID)
	return n.approveErr
}

func (n *fakeNotifier) SendOutcome(_ context.Context, id string, status outingrequest.Status, comment string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome{ID: id, Status: status, Comment: comment})
	return n.outcomeErr
}

type failingRepo struct {
	outingrequest.Repository
	err error
}

func (r failingRepo) Append(context.Context, *outingrequest.Record) error { return r.err }

func (r failingRepo) UpdateStatus(context.Context, string, outingrequest.Status, string) error {
	return r.err
}

func quietBus() eventbus.EventBus {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return eventbus.NewEventPublisher(log)
}

func setup(t *testing.T) (*services.OutingService, *persistence.InmemOutingRepository, *fakeNotifier, eventbus.EventBus) {
	t.Helper()
	repo := persistence.NewInmemOutingRepository()
	notifier := &fakeNotifier{}
	bus := quietBus()
	return services.NewOutingService(repo, notifier, bus), repo, notifier, bus
}

func TestSubmit_StoresPendingAndNotifies(t *testing.T) {
	prevID, prevNow := idgen.NewFunc, clock.NowFunc
	t.Cleanup(func() {
		idgen.NewFunc = prevID
		clock.NowFunc = prevNow
	})
	fixed := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)
	idgen.NewFunc = func() string { return "3f1c-fixed" }
	clock.NowFunc = func() time.Time { return fixed }

	svc, repo, notifier, bus := setup(t)
	var events []*services.RequestSubmittedEvent
	bus.Subscribe(func(e *services.RequestSubmittedEvent) { events = append(events, e) })

	rec, err := svc.Submit(context.Background(), services.SubmitDTO{
		Submission: outingrequest.Submission{Name: "A", Title: "Errand", Place: "Station", Date: "2024-05-01", Time: "10:00"},
		ClientIP:   "203.0.113.7",
	})
	require.NoError(t, err)
	assert.Equal(t, "3f1c-fixed", rec.ID)

	stored := repo.Records()
	require.Len(t, stored, 1)
	assert.Equal(t, outingrequest.StatusPending, stored[0].Status)
	assert.Empty(t, stored[0].Comment)
	assert.Equal(t, "203.0.113.7", stored[0].ClientIP)
	assert.Equal(t, services.UnknownClient, stored[0].UserAgent)
	assert.Equal(t, fixed, stored[0].SubmittedAt)

	assert.Equal(t, []string{"3f1c-fixed"}, notifier.approvals)
	require.Len(t, events, 1)
	assert.Equal(t, "3f1c-fixed", events[0].Record.ID)
}

func TestSubmit_UniqueIDs(t *testing.T) {
	svc, repo, _, _ := setup(t)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		rec, err := svc.Submit(context.Background(), services.SubmitDTO{})
		require.NoError(t, err)
		require.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
	assert.Len(t, repo.Records(), 20)
}

func TestSubmit_NotificationFailureIsSwallowed(t *testing.T) {
	repo := persistence.NewInmemOutingRepository()
	svc := services.NewOutingService(repo, &fakeNotifier{approveErr: errors.New("push down")}, quietBus())

	rec, err := svc.Submit(context.Background(), services.SubmitDTO{})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, repo.Records(), 1)
}

func TestSubmit_StoreFailureIsSwallowed(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := services.NewOutingService(failingRepo{err: errors.New("quota")}, notifier, quietBus())

	rec, err := svc.Submit(context.Background(), services.SubmitDTO{})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []string{rec.ID}, notifier.approvals)
}

func TestSubmit_CredentialFailurePropagates(t *testing.T) {
	notifier := &fakeNotifier{}
	err := fmt.Errorf("sheets append: %w", credential.ErrMissingKey)
	svc := services.NewOutingService(failingRepo{err: err}, notifier, quietBus())

	_, err = svc.Submit(context.Background(), services.SubmitDTO{})
	require.ErrorIs(t, err, credential.ErrMissingKey)
	assert.Empty(t, notifier.approvals)
}

func TestDecide_ApproveScenario(t *testing.T) {
	svc, repo, notifier, bus := setup(t)
	var decided []*services.DecisionRecordedEvent
	bus.Subscribe(func(e *services.DecisionRecordedEvent) { decided = append(decided, e) })

	rec, err := svc.Submit(context.Background(), services.SubmitDTO{
		Submission: outingrequest.Submission{Name: "A", Title: "Errand", Place: "Station", Date: "2024-05-01", Time: "10:00"},
	})
	require.NoError(t, err)

	processed, err := svc.Decide(context.Background(), "action=approve&id="+rec.ID, "OK")
	require.NoError(t, err)
	assert.True(t, processed)

	got, err := svc.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, outingrequest.StatusApproved, got.Status)
	assert.Equal(t, "OK", got.Comment)
	assert.Len(t, repo.Records(), 1)

	require.Len(t, notifier.outcomes, 1)
	assert.Equal(t, outcome{ID: rec.ID, Status: outingrequest.StatusApproved, Comment: "OK"}, notifier.outcomes[0])
	require.Len(t, decided, 1)
	assert.True(t, decided[0].Found)
}

func TestDecide_RejectWithoutComment(t *testing.T) {
	svc, _, _, _ := setup(t)
	rec, err := svc.Submit(context.Background(), services.SubmitDTO{})
	require.NoError(t, err)

	processed, err := svc.Decide(context.Background(), "action=reject&id="+rec.ID, "")
	require.NoError(t, err)
	assert.True(t, processed)

	got, err := svc.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, outingrequest.StatusRejected, got.Status)
	assert.Empty(t, got.Comment)
}

func TestDecide_UnknownIDLeavesStoreUntouched(t *testing.T) {
	svc, repo, notifier, bus := setup(t)
	var decided []*services.DecisionRecordedEvent
	bus.Subscribe(func(e *services.DecisionRecordedEvent) { decided = append(decided, e) })

	rec, err := svc.Submit(context.Background(), services.SubmitDTO{})
	require.NoError(t, err)
	before := repo.Records()

	processed, err := svc.Decide(context.Background(), "action=approve&id=missing", "OK")
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, before, repo.Records())
	assert.Equal(t, outingrequest.StatusPending, repo.Records()[0].Status)
	assert.Equal(t, rec.ID, repo.Records()[0].ID)

	require.Len(t, notifier.outcomes, 1)
	require.Len(t, decided, 1)
	assert.False(t, decided[0].Found)
}

func TestDecide_DuplicateDecisionOverwrites(t *testing.T) {
	svc, _, notifier, _ := setup(t)
	rec, err := svc.Submit(context.Background(), services.SubmitDTO{})
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), "action=approve&id="+rec.ID, "first")
	require.NoError(t, err)
	_, err = svc.Decide(context.Background(), "action=reject&id="+rec.ID, "second")
	require.NoError(t, err)

	got, err := svc.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, outingrequest.StatusRejected, got.Status)
	assert.Equal(t, "second", got.Comment)
	assert.Len(t, notifier.outcomes, 2)
}

func TestDecide_NonActionableIsNoop(t *testing.T) {
	for _, data := range []string{"", "richmenu=1", "action=maybe&id=x", "action=approve", "%zz"} {
		t.Run(data, func(t *testing.T) {
			svc, repo, notifier, _ := setup(t)
			processed, err := svc.Decide(context.Background(), data, "c")
			require.NoError(t, err)
			assert.False(t, processed)
			assert.Empty(t, repo.Records())
			assert.Empty(t, notifier.outcomes)
		})
	}
}

func TestDecide_StoreFailureIsSwallowed(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := services.NewOutingService(failingRepo{err: errors.New("sheets 503")}, notifier, quietBus())

	processed, err := svc.Decide(context.Background(), "action=approve&id=x", "")
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []outcome{{ID: "x", Status: outingrequest.StatusApproved}}, notifier.outcomes)
}

func TestDecide_CredentialFailurePropagates(t *testing.T) {
	notifier := &fakeNotifier{}
	err := fmt.Errorf("sheets update: %w", credential.ErrMalformedKey)
	svc := services.NewOutingService(failingRepo{err: err}, notifier, quietBus())

	_, err = svc.Decide(context.Background(), "action=reject&id=x", "")
	require.ErrorIs(t, err, credential.ErrMalformedKey)
	assert.Empty(t, notifier.outcomes)
}

func TestDecide_OutcomeFailureIsSwallowed(t *testing.T) {
	repo := persistence.NewInmemOutingRepository()
	svc := services.NewOutingService(repo, &fakeNotifier{outcomeErr: errors.New("push down")}, quietBus())
	rec, err := svc.Submit(context.Background(), services.SubmitDTO{})
	require.NoError(t, err)

	processed, err := svc.Decide(context.Background(), "action=approve&id="+rec.ID, "")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestApplyDecision_RejectsUnknownAction(t *testing.T) {
	svc, _, _, _ := setup(t)
	require.Error(t, svc.ApplyDecision(context.Background(), "x", outingrequest.Action("hold"), ""))
}
