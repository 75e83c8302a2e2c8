package services

import (
	"net/url"
	"strings"

	"github.com/go-playground/form"

	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
)

var postbackDecoder = form.NewDecoder()

// Postback is the payload echoed back by the approval card buttons.
type Postback struct {
	Action outingrequest.Action `form:"action"`
	ID     string               `form:"id"`
}

// ParsePostback decodes "action=<approve|reject>&id=<id>". The second return
// value is false when the payload does not describe a decision.
func ParsePostback(data string) (Postback, bool) {
	var p Postback
	if strings.TrimSpace(data) == "" {
		return p, false
	}
	values, err := url.ParseQuery(data)
	if err != nil {
		return p, false
	}
	if err := postbackDecoder.Decode(&p, values); err != nil {
		return p, false
	}
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return p, false
	}
	if _, ok := p.Action.Status(); !ok {
		return p, false
	}
	return p, true
}
