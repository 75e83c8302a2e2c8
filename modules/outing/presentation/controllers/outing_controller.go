package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/outing-approval/modules/outing/presentation/controllers/dtos"
	"github.com/iota-uz/outing-approval/modules/outing/services"
	"github.com/iota-uz/outing-approval/pkg/application"
	"github.com/iota-uz/outing-approval/pkg/composables"
	"github.com/iota-uz/outing-approval/pkg/httpapi"
	"github.com/iota-uz/outing-approval/pkg/webhooks"
)

const maxApplyBodyBytes = 64 * 1024

type OutingControllerOptions struct {
	// Verifier checks webhook signatures; nil disables the check.
	Verifier webhooks.SignatureVerifier
}

// OutingController exposes submission intake and the approver webhook.
type OutingController struct {
	service  *services.OutingService
	verifier webhooks.SignatureVerifier
}

func NewOutingController(app application.Application, opts OutingControllerOptions) application.Controller {
	return &OutingController{
		service:  app.Service(services.OutingService{}).(*services.OutingService),
		verifier: opts.Verifier,
	}
}

func (c *OutingController) Key() string {
	return "/apply"
}

func (c *OutingController) Register(r *mux.Router) {
	r.HandleFunc("/apply", c.Apply).Methods(http.MethodPost)

	webhook := r.Path("/webhook").Subrouter()
	webhook.Use(webhooks.Middleware(c.verifier))
	webhook.Methods(http.MethodPost).HandlerFunc(c.Webhook)
}

func (c *OutingController) Apply(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	var req dtos.ApplyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxApplyBodyBytes)).Decode(&req); err != nil {
		logger.WithError(err).Info("rejecting malformed submission")
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body must be a JSON object", nil)
		return
	}

	dto := services.SubmitDTO{Submission: req.ToSubmission()}
	if ip, ok := composables.UseIP(r.Context()); ok {
		dto.ClientIP = ip
	}
	if ua, ok := composables.UseUserAgent(r.Context()); ok {
		dto.UserAgent = ua
	}
	if req.UA != "" {
		dto.UserAgent = req.UA
	}

	rec, err := c.service.Submit(r.Context(), dto)
	if err != nil {
		logger.WithError(err).Error("failed to submit outing request")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "SUBMIT_FAILED", "failed to submit request", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &dtos.ApplyResponse{ID: rec.ID})
}

// Webhook handles every postback in the envelope in order. Anything that is
// not a decision is acknowledged without side effects.
func (c *OutingController) Webhook(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	var req dtos.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WithError(err).Info("ignoring undecodable webhook payload")
		_ = httpapi.WriteJSON(w, http.StatusOK, &dtos.WebhookAck{OK: true})
		return
	}

	processed := false
	for _, event := range req.Events {
		if event.Postback == nil {
			continue
		}
		ok, err := c.service.Decide(r.Context(), event.Postback.Data, event.Postback.Params.Comment)
		if err != nil {
			logger.WithError(err).Error("failed to apply decision")
			_ = httpapi.WriteError(w, http.StatusInternalServerError, "DECISION_FAILED", "failed to apply decision", nil)
			return
		}
		processed = processed || ok
	}

	if !processed {
		_ = httpapi.WriteJSON(w, http.StatusOK, &dtos.WebhookAck{OK: true})
		return
	}
	_ = httpapi.WriteText(w, http.StatusOK, "OK")
}
