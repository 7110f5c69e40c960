package mapping

import (
	"net/mail"
	"strings"
	"time"

	"lead_router_backend/internal/lead"
	"lead_router_backend/platform/phone"

	"github.com/google/uuid"
)

// FieldErrors collects per-field validation failures produced during
// normalization. Failures never abort normalization: incomplete leads
// are still routed, and the errors travel back to the caller.
type FieldErrors map[string]string

// Submission carries everything the normalizer needs about one
// incoming form payload.
type Submission struct {
	SubmissionID   uuid.UUID
	OrganizationID uuid.UUID
	Payload        map[string][]string
	FormType       string
	Source         string
	SourceURL      string
	ReceivedAt     time.Time
}

// Normalize applies the mapping table to an arbitrary key/value payload
// and produces a canonical lead record. It is a pure function over its
// inputs: the same submission and table always yield the same record.
func Normalize(sub Submission, table Table) (lead.Record, FieldErrors) {
	rec := lead.Record{
		SubmissionID:   sub.SubmissionID,
		OrganizationID: sub.OrganizationID,
		FormType:       lead.ParseFormType(sub.FormType),
		Source:         strings.TrimSpace(sub.Source),
		SourceURL:      strings.TrimSpace(sub.SourceURL),
		RawPayload:     flattenPayload(sub.Payload),
		ReceivedAt:     sub.ReceivedAt,
	}

	fieldErrs := make(FieldErrors)
	fullNameSources := table.fullNameSources()

	for _, m := range table.Mappings() {
		raw, source, found := firstPresentSource(sub.Payload, m.Sources)
		if !found {
			if m.Required || m.Validation == ValidationRequired {
				fieldErrs[m.Key] = "required field is missing"
			}
			continue
		}

		value := applyTransform(m, raw, source, fullNameSources)
		if msg := validate(m, value); msg != "" {
			// Invalid values are flagged but retained; dropping lead
			// data silently costs more than routing a malformed field.
			fieldErrs[m.Key] = msg
		}

		assign(&rec, m.Key, value, sub.Payload)
	}

	return rec, fieldErrs
}

// fullNameSources returns the source keys listed by both the
// first_name and last_name mappings. A source both mappings claim
// necessarily carries the whole name, so split_name applies to it;
// a dedicated first/last source passes through unsplit.
func (t Table) fullNameSources() map[string]struct{} {
	var first, last []string
	for _, m := range t.mappings {
		switch m.Key {
		case KeyFirstName:
			first = m.Sources
		case KeyLastName:
			last = m.Sources
		}
	}

	shared := make(map[string]struct{})
	for _, f := range first {
		for _, l := range last {
			if f == l {
				shared[f] = struct{}{}
			}
		}
	}
	return shared
}

// firstPresentSource scans the candidate source keys in order and
// returns the first value that is present and non-empty after trimming,
// along with the source key that supplied it.
func firstPresentSource(payload map[string][]string, sources []string) (string, string, bool) {
	for _, source := range sources {
		for _, value := range payload[source] {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed, source, true
			}
		}
	}
	return "", "", false
}

func applyTransform(m FieldMapping, value, source string, fullNameSources map[string]struct{}) string {
	switch m.Transform {
	case TransformSplitName:
		if _, isFullName := fullNameSources[source]; !isFullName {
			return strings.TrimSpace(value)
		}
		first, last := splitName(value)
		if m.Key == KeyLastName {
			return last
		}
		return first
	case TransformFormatPhone:
		return phone.FormatDisplay(value)
	case TransformNormalizeEmail:
		return strings.ToLower(strings.TrimSpace(value))
	default:
		return strings.TrimSpace(value)
	}
}

// splitName splits a full-name string on the first whitespace run.
func splitName(value string) (first, last string) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

func validate(m FieldMapping, value string) string {
	if value == "" {
		if m.Required || m.Validation == ValidationRequired {
			return "required field is empty"
		}
		return ""
	}

	switch m.Validation {
	case ValidationEmail:
		if _, err := mail.ParseAddress(value); err != nil {
			return "invalid email address"
		}
	case ValidationPhone:
		if !phone.IsValid(value) {
			return "invalid phone number"
		}
	}
	return ""
}

func assign(rec *lead.Record, key, value string, payload map[string][]string) {
	switch key {
	case KeyFirstName:
		rec.FirstName = value
	case KeyLastName:
		rec.LastName = value
	case KeyEmail:
		rec.Email = value
	case KeyPhone:
		rec.Phone = value
	case KeyMessage:
		rec.Message = value
	case KeyListingID:
		if value != "" {
			rec.ListingID = &value
		}
	case KeyAgentID:
		if value != "" {
			rec.AgentID = &value
		}
	case KeyInterests:
		rec.Interests = collectInterests(payload, value)
	}
	// Unknown canonical keys are configuration noise; the original
	// payload is retained verbatim in RawPayload regardless.
}

// collectInterests gathers every non-empty value of the interest source
// keys into a de-duplicated set, preserving first-seen order. Interest
// checkboxes commonly submit repeated keys.
func collectInterests(payload map[string][]string, firstValue string) []string {
	seen := map[string]struct{}{}
	var interests []string

	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		interests = append(interests, v)
	}

	add(firstValue)
	for _, key := range []string{"interests", "interest", "interests[]"} {
		for _, v := range payload[key] {
			add(v)
		}
	}
	return interests
}

func flattenPayload(payload map[string][]string) map[string]string {
	flat := make(map[string]string, len(payload))
	for key, values := range payload {
		if len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			flat[key] = values[0]
			continue
		}
		flat[key] = strings.Join(values, ", ")
	}
	return flat
}
