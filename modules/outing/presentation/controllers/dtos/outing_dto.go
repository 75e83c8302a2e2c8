package dtos

import "github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"

// ApplyRequest is the /apply body. Every field is optional.
type ApplyRequest struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Reason   string `json:"reason"`
	Place    string `json:"place"`
	Date     string `json:"date"`
	Activity string `json:"activity"`
	Detail   string `json:"detail"`
	Time     string `json:"time"`
	LineID   string `json:"lineid"`
	// UA overrides the User-Agent header when present.
	UA string `json:"ua"`
}

func (r *ApplyRequest) ToSubmission() outingrequest.Submission {
	return outingrequest.Submission{
		Name:     r.Name,
		Title:    r.Title,
		Reason:   r.Reason,
		Place:    r.Place,
		Date:     r.Date,
		Activity: r.Activity,
		Detail:   r.Detail,
		Time:     r.Time,
		LineID:   r.LineID,
	}
}

type ApplyResponse struct {
	ID string `json:"id"`
}

// WebhookRequest is the messaging platform event envelope.
type WebhookRequest struct {
	Events []WebhookEvent `json:"events"`
}

type WebhookEvent struct {
	Type     string    `json:"type,omitempty"`
	Postback *Postback `json:"postback,omitempty"`
}

type Postback struct {
	Data   string         `json:"data"`
	Params PostbackParams `json:"params"`
}

type PostbackParams struct {
	Comment string `json:"comment"`
}

type WebhookAck struct {
	OK bool `json:"ok"`
}
