// Package lead defines the canonical lead record produced by the
// normalizer and consumed by routing and dispatch.
package lead

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FormType classifies the submitting form.
type FormType string

const (
	FormTypeContact         FormType = "contact"
	FormTypePropertyInquiry FormType = "property_inquiry"
	FormTypeShowingRequest  FormType = "showing_request"
	FormTypeNewsletter      FormType = "newsletter"
	FormTypeOther           FormType = "other"
)

// ParseFormType maps a raw form type string onto the known enum,
// defaulting to FormTypeOther for anything unrecognized.
func ParseFormType(raw string) FormType {
	switch FormType(strings.ToLower(strings.TrimSpace(raw))) {
	case FormTypeContact:
		return FormTypeContact
	case FormTypePropertyInquiry:
		return FormTypePropertyInquiry
	case FormTypeShowingRequest:
		return FormTypeShowingRequest
	case FormTypeNewsletter:
		return FormTypeNewsletter
	default:
		return FormTypeOther
	}
}

// Record is the canonical, normalized representation of one form
// submission. It is created once by the normalizer and never mutated
// afterwards; persistence and CRM pushes read from it only.
type Record struct {
	ID             uuid.UUID
	SubmissionID   uuid.UUID
	OrganizationID uuid.UUID
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Message        string
	Source         string
	SourceURL      string
	FormType       FormType
	ListingID      *string
	AgentID        *string
	Interests      []string
	RawPayload     map[string]string
	ReceivedAt     time.Time
}

// HasContactChannel reports whether at least one contact channel
// (email or phone) is present. Records without one are still routed
// but flagged incomplete; losing a lead costs more than an incomplete
// record.
func (r Record) HasContactChannel() bool {
	return r.Email != "" || r.Phone != ""
}

// FullName joins the name fields for display and CRM payloads.
func (r Record) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
}
