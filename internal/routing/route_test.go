package routing

import "testing"

func TestDecodeActionSetRejectsUnknownKeys(t *testing.T) {
	_, err := DecodeActionSet([]byte(`{
		"database": {"enabled": true, "tabel": "leads"}
	}`))
	if err == nil {
		t.Fatal("misspelled setting must be rejected")
	}
}

func TestDecodeActionSetDefaults(t *testing.T) {
	set, err := DecodeActionSet([]byte(`{
		"database": {"enabled": true},
		"email": {"enabled": true, "admin_email": "agent@acme-homes.example"}
	}`))
	if err != nil {
		t.Fatal(err)
	}

	if !set.Database.IsCritical() {
		t.Fatal("database action must default to critical")
	}
	if set.Email.Critical {
		t.Fatal("email action must default to non-critical")
	}
	if set.FollowUpBoss.Enabled || set.Calendly.Enabled {
		t.Fatal("absent actions must stay disabled")
	}
}

func TestDecodeActionSetExplicitNonCriticalDatabase(t *testing.T) {
	set, err := DecodeActionSet([]byte(`{
		"database": {"enabled": true, "critical": false}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if set.Database.IsCritical() {
		t.Fatal("explicit critical=false must be honored")
	}
}

func TestDecodeConditionsRequiresCustomFieldKey(t *testing.T) {
	_, err := DecodeConditions([]byte(`[
		[{"field": "custom_field", "operator": "equals", "value": "downtown"}]
	]`))
	if err == nil {
		t.Fatal("custom_field condition without a key must be rejected")
	}

	groups, err := DecodeConditions([]byte(`[
		[{"field": "custom_field", "operator": "equals", "value": "downtown", "custom_field_key": "area"}]
	]`))
	if err != nil {
		t.Fatal(err)
	}
	if groups[0][0].CustomFieldKey != "area" {
		t.Fatalf("expected key to survive decoding, got %q", groups[0][0].CustomFieldKey)
	}
}

func TestDecodeConditionsRejectsStrayCustomFieldKey(t *testing.T) {
	_, err := DecodeConditions([]byte(`[
		[{"field": "form_type", "operator": "equals", "value": "contact", "custom_field_key": "area"}]
	]`))
	if err == nil {
		t.Fatal("custom_field_key on a non-custom_field condition must be rejected")
	}
}

func TestValidateConditionsRejectsUnknownEnums(t *testing.T) {
	if err := ValidateConditions([][]Condition{
		{{Field: "listing_price", Operator: OperatorEquals, Value: "1"}},
	}); err == nil {
		t.Fatal("unknown field must be rejected")
	}

	if err := ValidateConditions([][]Condition{
		{{Field: FieldFormType, Operator: "matches", Value: "1"}},
	}); err == nil {
		t.Fatal("unknown operator must be rejected")
	}
}

func TestHasEnabledAction(t *testing.T) {
	if (ActionSet{}).HasEnabledAction() {
		t.Fatal("empty set has no enabled action")
	}
	set := ActionSet{Calendly: CalendlyAction{Enabled: true}}
	if !set.HasEnabledAction() {
		t.Fatal("expected calendly to count as enabled")
	}
}
