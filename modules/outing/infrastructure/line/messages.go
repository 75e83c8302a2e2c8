package line

import (
	"fmt"
	"net/url"

	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
)

// Message is any push message object: a flex card or plain text.
type Message interface {
	messageType() string
}

type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (TextMessage) messageType() string { return "text" }

type FlexMessage struct {
	Type     string     `json:"type"`
	AltText  string     `json:"altText"`
	Contents FlexBubble `json:"contents"`
}

func (FlexMessage) messageType() string { return "flex" }

type FlexBubble struct {
	Type   string  `json:"type"`
	Body   FlexBox `json:"body"`
	Footer FlexBox `json:"footer"`
}

type FlexBox struct {
	Type     string        `json:"type"`
	Layout   string        `json:"layout"`
	Spacing  string        `json:"spacing,omitempty"`
	Contents []interface{} `json:"contents"`
}

type FlexText struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Weight string `json:"weight,omitempty"`
	Size   string `json:"size,omitempty"`
	Wrap   bool   `json:"wrap,omitempty"`
}

type FlexButton struct {
	Type   string         `json:"type"`
	Style  string         `json:"style"`
	Action PostbackAction `json:"action"`
}

// PostbackAction is echoed back verbatim by the platform in a postback event.
// InputOption opens the keyboard so the approver can type a comment.
type PostbackAction struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Data        string `json:"data"`
	DisplayText string `json:"displayText,omitempty"`
	InputOption string `json:"inputOption,omitempty"`
	FillInText  string `json:"fillInText,omitempty"`
}

// PostbackData encodes a decision payload as a query string.
func PostbackData(action outingrequest.Action, id string) string {
	return url.Values{"action": {string(action)}, "id": {id}}.Encode()
}

func textOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func field(label, value string) FlexText {
	return FlexText{Type: "text", Text: fmt.Sprintf("%s: %s", label, textOrDash(value)), Wrap: true, Size: "sm"}
}

func decisionButton(label, style string, action outingrequest.Action, id string) FlexButton {
	return FlexButton{
		Type:  "button",
		Style: style,
		Action: PostbackAction{
			Type:        "postback",
			Label:       label,
			Data:        PostbackData(action, id),
			DisplayText: label,
			InputOption: "openKeyboard",
			FillInText:  "Comment: ",
		},
	}
}

// ApprovalCard renders the submission alert with approve and reject controls.
func ApprovalCard(rec *outingrequest.Record) FlexMessage {
	s := rec.Submission
	return FlexMessage{
		Type:    "flex",
		AltText: fmt.Sprintf("Outing request from %s", textOrDash(s.Name)),
		Contents: FlexBubble{
			Type: "bubble",
			Body: FlexBox{
				Type:   "box",
				Layout: "vertical",
				Contents: []interface{}{
					FlexText{Type: "text", Text: "Outing request", Weight: "bold", Size: "lg"},
					field("Name", s.Name),
					field("Title", s.Title),
					field("Date", s.Date),
					field("Time", s.Time),
					field("Place", s.Place),
				},
			},
			Footer: FlexBox{
				Type:    "box",
				Layout:  "horizontal",
				Spacing: "sm",
				Contents: []interface{}{
					decisionButton("Approve", "primary", outingrequest.ActionApprove, rec.ID),
					decisionButton("Reject", "secondary", outingrequest.ActionReject, rec.ID),
				},
			},
		},
	}
}

// OutcomeText summarizes a recorded decision.
func OutcomeText(id string, status outingrequest.Status, comment string) TextMessage {
	return TextMessage{
		Type: "text",
		Text: fmt.Sprintf("Request %s\nStatus: %s\nComment: %s", id, status, comment),
	}
}
