package outingrequest

import (
	"context"
	"errors"
	"time"
)

var ErrRecordNotFound = errors.New("outing request not found")

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal reports whether s is a decided state.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Action is the approver's choice as carried in a decision payload.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Status maps an action to the terminal status it produces.
func (a Action) Status() (Status, bool) {
	switch a {
	case ActionApprove:
		return StatusApproved, true
	case ActionReject:
		return StatusRejected, true
	default:
		return "", false
	}
}

// Submission holds the requester supplied fields. They never change after the
// record is created.
type Submission struct {
	Name     string
	Title    string
	Reason   string
	Place    string
	Date     string
	Activity string
	Detail   string
	Time     string
	LineID   string
}

// Record is one persisted outing request. Only Status and Comment are mutable.
type Record struct {
	ID          string
	Submission  Submission
	Status      Status
	Comment     string
	ClientIP    string
	UserAgent   string
	SubmittedAt time.Time
}

func New(id string, submission Submission, clientIP, userAgent string, submittedAt time.Time) *Record {
	return &Record{
		ID:          id,
		Submission:  submission,
		Status:      StatusPending,
		ClientIP:    clientIP,
		UserAgent:   userAgent,
		SubmittedAt: submittedAt,
	}
}

// Repository is the row store. Records are addressed only by ID.
type Repository interface {
	// Append adds record as a new row after the last one.
	Append(ctx context.Context, record *Record) error
	// FindByID returns the first row whose id matches, or ErrRecordNotFound.
	FindByID(ctx context.Context, id string) (*Record, error)
	// UpdateStatus rewrites the status and comment of the first row whose id
	// matches. A missing id yields ErrRecordNotFound and writes nothing.
	UpdateStatus(ctx context.Context, id string, status Status, comment string) error
}
