package mapping

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func testSubmission(payload map[string][]string) Submission {
	return Submission{
		SubmissionID:   uuid.New(),
		OrganizationID: uuid.New(),
		Payload:        payload,
		FormType:       "contact",
		Source:         "acme-homes.example",
		ReceivedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func defaultTable(t *testing.T) Table {
	t.Helper()
	table, err := NewTable(DefaultMappings())
	if err != nil {
		t.Fatalf("default mappings must build: %v", err)
	}
	return table
}

func TestNormalizeSourcePrecedenceTakesFirstNonEmpty(t *testing.T) {
	table, err := NewTable([]FieldMapping{
		{Key: KeyEmail, Sources: []string{"email", "contact_email", "mail"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec, fieldErrs := Normalize(testSubmission(map[string][]string{
		"email":         {"   "},
		"contact_email": {"first@example.com"},
		"mail":          {"second@example.com"},
	}), table)

	if len(fieldErrs) != 0 {
		t.Fatalf("unexpected field errors: %v", fieldErrs)
	}
	if rec.Email != "first@example.com" {
		t.Fatalf("expected first non-empty source to win, got %q", rec.Email)
	}
}

func TestNormalizeSplitsFullNameFromSharedSource(t *testing.T) {
	rec, _ := Normalize(testSubmission(map[string][]string{
		"full_name": {"Jane Doe"},
		"email":     {"JANE@Example.COM "},
		"phone":     {"123-456-7890"},
	}), defaultTable(t))

	if rec.FirstName != "Jane" || rec.LastName != "Doe" {
		t.Fatalf("expected Jane/Doe, got %q/%q", rec.FirstName, rec.LastName)
	}
	if rec.Email != "jane@example.com" {
		t.Fatalf("expected lowercased trimmed email, got %q", rec.Email)
	}
	if rec.Phone != "(123) 456-7890" {
		t.Fatalf("expected display-formatted phone, got %q", rec.Phone)
	}
}

func TestNormalizeMultiWordLastName(t *testing.T) {
	rec, _ := Normalize(testSubmission(map[string][]string{
		"name":  {"Anna van der Berg"},
		"email": {"anna@example.com"},
	}), defaultTable(t))

	if rec.FirstName != "Anna" {
		t.Fatalf("expected first token as first name, got %q", rec.FirstName)
	}
	if rec.LastName != "van der Berg" {
		t.Fatalf("expected remainder as last name, got %q", rec.LastName)
	}
}

func TestNormalizeDirectLastNameIsNotSplit(t *testing.T) {
	rec, _ := Normalize(testSubmission(map[string][]string{
		"first_name": {"Jane"},
		"last_name":  {"Doe"},
		"email":      {"jane@example.com"},
	}), defaultTable(t))

	if rec.FirstName != "Jane" || rec.LastName != "Doe" {
		t.Fatalf("dedicated name fields must pass through, got %q/%q", rec.FirstName, rec.LastName)
	}
}

func TestNormalizeDirectFieldsWinOverFullName(t *testing.T) {
	rec, _ := Normalize(testSubmission(map[string][]string{
		"first_name": {"Janet"},
		"full_name":  {"Jane Doe"},
		"email":      {"jane@example.com"},
	}), defaultTable(t))

	if rec.FirstName != "Janet" {
		t.Fatalf("dedicated field listed first must win, got %q", rec.FirstName)
	}
	if rec.LastName != "Doe" {
		t.Fatalf("full name still supplies the unmapped last name, got %q", rec.LastName)
	}
}

func TestNormalizePhoneFormatting(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1234567890", "(123) 456-7890"},
		{"(123) 456-7890", "(123) 456-7890"},
		{"123.456.7890", "(123) 456-7890"},
		{"+31 20 123 4567", "31201234567"},
	}
	table := defaultTable(t)

	for _, tc := range cases {
		rec, _ := Normalize(testSubmission(map[string][]string{
			"email": {"a@example.com"},
			"phone": {tc.in},
		}), table)
		if rec.Phone != tc.want {
			t.Fatalf("phone %q: expected %q, got %q", tc.in, tc.want, rec.Phone)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	table := defaultTable(t)
	sub := testSubmission(map[string][]string{
		"full_name": {"  Jane   Doe "},
		"email":     {"Jane@Example.com"},
		"phone":     {"123-456-7890"},
	})

	first, _ := Normalize(sub, table)

	again, _ := Normalize(Submission{
		SubmissionID:   sub.SubmissionID,
		OrganizationID: sub.OrganizationID,
		Payload: map[string][]string{
			"first_name": {first.FirstName},
			"last_name":  {first.LastName},
			"email":      {first.Email},
			"phone":      {first.Phone},
		},
		FormType:   sub.FormType,
		Source:     sub.Source,
		ReceivedAt: sub.ReceivedAt,
	}, table)

	if again.FirstName != first.FirstName || again.LastName != first.LastName {
		t.Fatalf("names changed on second pass: %q %q", again.FirstName, again.LastName)
	}
	if again.Email != first.Email {
		t.Fatalf("email changed on second pass: %q", again.Email)
	}
	if again.Phone != first.Phone {
		t.Fatalf("phone changed on second pass: %q", again.Phone)
	}
}

func TestNormalizeInvalidValuesAreFlaggedButRetained(t *testing.T) {
	rec, fieldErrs := Normalize(testSubmission(map[string][]string{
		"email": {"not-an-email"},
		"phone": {"12345"},
	}), defaultTable(t))

	if rec.Email != "not-an-email" {
		t.Fatalf("invalid email must be retained, got %q", rec.Email)
	}
	if rec.Phone != "12345" {
		t.Fatalf("invalid phone must be retained, got %q", rec.Phone)
	}
	if fieldErrs[KeyEmail] == "" {
		t.Fatal("expected email field error")
	}
	if fieldErrs[KeyPhone] == "" {
		t.Fatal("expected phone field error")
	}
}

func TestNormalizeRequiredFieldMissing(t *testing.T) {
	_, fieldErrs := Normalize(testSubmission(map[string][]string{
		"phone": {"123-456-7890"},
	}), defaultTable(t))

	if fieldErrs[KeyEmail] == "" {
		t.Fatal("expected missing required email to be reported")
	}
}

func TestNormalizeCollectsInterests(t *testing.T) {
	rec, _ := Normalize(testSubmission(map[string][]string{
		"email":       {"a@example.com"},
		"interests[]": {"buying", "selling", "buying"},
	}), defaultTable(t))

	if len(rec.Interests) != 2 {
		t.Fatalf("expected de-duplicated interests, got %v", rec.Interests)
	}
	if rec.Interests[0] != "buying" || rec.Interests[1] != "selling" {
		t.Fatalf("expected first-seen order, got %v", rec.Interests)
	}
}

func TestNormalizeRetainsRawPayload(t *testing.T) {
	rec, _ := Normalize(testSubmission(map[string][]string{
		"email":        {"a@example.com"},
		"custom_thing": {"custom value"},
		"multi":        {"one", "two"},
	}), defaultTable(t))

	if rec.RawPayload["custom_thing"] != "custom value" {
		t.Fatalf("unmapped keys must survive in raw payload: %v", rec.RawPayload)
	}
	if rec.RawPayload["multi"] != "one, two" {
		t.Fatalf("multi-values must be joined: %v", rec.RawPayload)
	}
}

func TestNormalizeListingAndAgentIDsBecomePointers(t *testing.T) {
	rec, _ := Normalize(testSubmission(map[string][]string{
		"email":      {"a@example.com"},
		"listing_id": {"MLS-4711"},
		"agent_id":   {"agent-9"},
	}), defaultTable(t))

	if rec.ListingID == nil || *rec.ListingID != "MLS-4711" {
		t.Fatalf("expected listing ID pointer, got %v", rec.ListingID)
	}
	if rec.AgentID == nil || *rec.AgentID != "agent-9" {
		t.Fatalf("expected agent ID pointer, got %v", rec.AgentID)
	}
}
