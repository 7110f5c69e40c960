// Package events defines the domain events exchanged between modules.
package events

import (
	"github.com/google/uuid"
)

// ---- Intake events ----

// LeadReceived fires when a form submission has been normalized into a
// lead record, before any routing takes place.
type LeadReceived struct {
	BaseEvent
	SubmissionID   uuid.UUID
	OrganizationID uuid.UUID
	FormType       string
	Source         string
	IsIncomplete   bool
}

func (e LeadReceived) EventName() string { return "intake.lead.received" }

// ---- Routing events ----

// LeadRouted fires after route matching, carrying the set of matched
// route IDs in dispatch order.
type LeadRouted struct {
	BaseEvent
	SubmissionID   uuid.UUID
	OrganizationID uuid.UUID
	RouteIDs       []uuid.UUID
}

func (e LeadRouted) EventName() string { return "routing.lead.routed" }

// RouteConfigChanged fires whenever the route definition store is
// modified through the admin surface (create, update, delete, import).
type RouteConfigChanged struct {
	BaseEvent
	OrganizationID uuid.UUID
	ChangedBy      uuid.UUID
}

func (e RouteConfigChanged) EventName() string { return "routing.config.changed" }

// MappingConfigChanged fires when an organization's field mapping
// table is replaced through the admin surface.
type MappingConfigChanged struct {
	BaseEvent
	OrganizationID uuid.UUID
	ChangedBy      uuid.UUID
}

func (e MappingConfigChanged) EventName() string { return "mapping.config.changed" }

// ---- Dispatch events ----

// DispatchCompleted fires once all actions for a submission have run,
// successfully or not.
type DispatchCompleted struct {
	BaseEvent
	SubmissionID   uuid.UUID
	OrganizationID uuid.UUID
	RoutesMatched  int
	ActionsFailed  int
}

func (e DispatchCompleted) EventName() string { return "dispatch.completed" }

// CRMPushFailed fires when a FollowUp Boss push fails and has been
// handed to the retry queue.
type CRMPushFailed struct {
	BaseEvent
	SubmissionID   uuid.UUID
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	Reason         string
}

func (e CRMPushFailed) EventName() string { return "dispatch.crm_push.failed" }
