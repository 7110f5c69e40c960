package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"lead_router_backend/internal/email"
	"lead_router_backend/internal/followupboss"
	"lead_router_backend/internal/lead"
	"lead_router_backend/internal/routing"
	"lead_router_backend/internal/scheduler"
	"lead_router_backend/platform/logger"
)

// DatabaseHandler persists the lead record. Insertion is idempotent
// per submission, so two routes enabling this action store one row.
type DatabaseHandler struct {
	leads *lead.Repository
}

func NewDatabaseHandler(leads *lead.Repository) *DatabaseHandler {
	return &DatabaseHandler{leads: leads}
}

func (h *DatabaseHandler) Execute(ctx context.Context, rec lead.Record, route routing.Route) Outcome {
	id, err := h.leads.Insert(ctx, rec)
	if err != nil {
		return Outcome{Success: false, Message: fmt.Sprintf("lead insert failed: %v", err)}
	}
	return Outcome{Success: true, Message: fmt.Sprintf("lead stored as %s", id)}
}

// EmailHandler sends the admin notification and, when configured, an
// auto-responder back to the lead.
type EmailHandler struct {
	sender   email.Sender
	fromName string
}

func NewEmailHandler(sender email.Sender, fromName string) *EmailHandler {
	return &EmailHandler{sender: sender, fromName: fromName}
}

func (h *EmailHandler) Execute(ctx context.Context, rec lead.Record, route routing.Route) Outcome {
	cfg := route.Actions.Email
	if cfg.AdminEmail == "" {
		return Outcome{Success: false, Message: "admin email not configured"}
	}

	err := h.sender.SendLeadNotification(ctx, cfg.AdminEmail, email.LeadNotificationData{
		LeadName:   rec.FullName(),
		Email:      rec.Email,
		Phone:      rec.Phone,
		Message:    rec.Message,
		FormType:   string(rec.FormType),
		Source:     rec.Source,
		SourceURL:  rec.SourceURL,
		ListingID:  derefOrEmpty(rec.ListingID),
		Interests:  rec.Interests,
		ReceivedAt: rec.ReceivedAt.Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		return Outcome{Success: false, Message: fmt.Sprintf("notification failed: %v", err)}
	}

	message := "notification sent"
	if cfg.AutoResponder && rec.Email != "" {
		if err := h.sender.SendAutoResponder(ctx, rec.Email, email.AutoResponderData{
			FirstName: rec.FirstName,
			FromName:  h.fromName,
		}); err != nil {
			// The admin was notified; a lost auto-responder does not
			// fail the action.
			message = fmt.Sprintf("notification sent, auto-responder failed: %v", err)
		} else {
			message = "notification and auto-responder sent"
		}
	}
	return Outcome{Success: true, Message: message}
}

// CalendlyHandler builds a prefilled scheduling link that the caller
// receives as a redirect.
type CalendlyHandler struct {
	baseURL string
}

func NewCalendlyHandler(baseURL string) *CalendlyHandler {
	return &CalendlyHandler{baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *CalendlyHandler) Execute(ctx context.Context, rec lead.Record, route routing.Route) Outcome {
	cfg := route.Actions.Calendly
	if cfg.CalendarType == "" {
		return Outcome{Success: false, Message: "calendar type not configured"}
	}

	params := url.Values{}
	if name := rec.FullName(); name != "" {
		params.Set("name", name)
	}
	if rec.Email != "" {
		params.Set("email", rec.Email)
	}

	link := h.baseURL + "/" + url.PathEscape(cfg.CalendarType)
	if encoded := params.Encode(); encoded != "" {
		link += "?" + encoded
	}
	return Outcome{Success: true, Message: "scheduling link built", Redirect: link}
}

// FollowUpBossHandler pushes the lead to the CRM. On a retryable
// failure it hands the push to the retry queue, still reporting the
// action as failed for this dispatch.
type FollowUpBossHandler struct {
	crm     *followupboss.Client
	leads   *lead.Repository
	retries scheduler.CRMRetryScheduler
	enabled bool
	log     *logger.Logger
}

func NewFollowUpBossHandler(crm *followupboss.Client, leads *lead.Repository, retries scheduler.CRMRetryScheduler, enabled bool, log *logger.Logger) *FollowUpBossHandler {
	return &FollowUpBossHandler{crm: crm, leads: leads, retries: retries, enabled: enabled, log: log}
}

func (h *FollowUpBossHandler) Execute(ctx context.Context, rec lead.Record, route routing.Route) Outcome {
	if !h.enabled {
		return Outcome{Success: false, Message: "crm integration disabled"}
	}

	cfg := route.Actions.FollowUpBoss
	err := h.crm.Push(ctx, rec, cfg.Source, cfg.Tags)
	if err == nil {
		return Outcome{Success: true, Message: "lead pushed to crm"}
	}

	if h.retries != nil && followupboss.IsRetryable(err) {
		if msg, queued := h.enqueueRetry(ctx, rec, cfg); queued {
			return Outcome{Success: false, Message: msg}
		}
	}
	return Outcome{Success: false, Message: fmt.Sprintf("crm push failed: %v", err)}
}

// enqueueRetry schedules a re-push for the persisted lead. A lead the
// database action never stored cannot be re-read later, so it is not
// queued.
func (h *FollowUpBossHandler) enqueueRetry(ctx context.Context, rec lead.Record, cfg routing.FollowUpBossAction) (string, bool) {
	leadID, err := h.leads.IDBySubmission(ctx, rec.SubmissionID)
	if err != nil {
		h.log.Warn("crm retry skipped, lead not persisted", "submission_id", rec.SubmissionID)
		return "", false
	}

	err = h.retries.ScheduleCRMPushRetry(ctx, scheduler.CRMPushRetryPayload{
		LeadID:         leadID.String(),
		OrganizationID: rec.OrganizationID.String(),
		Source:         cfg.Source,
		Tags:           cfg.Tags,
		Attempt:        0,
	})
	if err != nil {
		h.log.Error("crm retry enqueue failed", "error", err, "submission_id", rec.SubmissionID)
		return "", false
	}
	return "crm push failed, retry queued", true
}


func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
