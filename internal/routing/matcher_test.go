package routing

import (
	"testing"

	"github.com/google/uuid"
)

func contactMeta() SubmissionMeta {
	return SubmissionMeta{
		FormType:  "contact",
		FormID:    "contact-main",
		SourceURL: "https://acme-homes.example/contact",
		CustomFields: map[string]string{
			"budget": "500000",
			"area":   "downtown",
		},
	}
}

func enabledRoute(name string, priority int, conditions [][]Condition) Route {
	return Route{
		ID:         uuid.New(),
		Name:       name,
		Priority:   priority,
		Enabled:    true,
		Conditions: conditions,
	}
}

func TestMatchOrAcrossGroupsAndWithinGroup(t *testing.T) {
	route := enabledRoute("sellers", 10, [][]Condition{
		{
			{Field: FieldFormType, Operator: OperatorEquals, Value: "contact"},
			{Field: FieldSourceURL, Operator: OperatorContains, Value: "/nowhere"},
		},
		{
			{Field: FieldSourceURL, Operator: OperatorContains, Value: "/contact"},
		},
	})

	matched := Match(contactMeta(), []Route{route})
	if len(matched) != 1 {
		t.Fatalf("second group alone should match, got %d routes", len(matched))
	}

	route.Conditions = [][]Condition{
		{
			{Field: FieldFormType, Operator: OperatorEquals, Value: "contact"},
			{Field: FieldSourceURL, Operator: OperatorContains, Value: "/nowhere"},
		},
	}
	matched = Match(contactMeta(), []Route{route})
	if len(matched) != 0 {
		t.Fatalf("all conditions within a group must hold, got %d routes", len(matched))
	}
}

func TestMatchEmptyConditionsMatchesEverything(t *testing.T) {
	route := enabledRoute("catch-all", 0, nil)

	matched := Match(contactMeta(), []Route{route})
	if len(matched) != 1 {
		t.Fatal("route without conditions must match every submission")
	}
}

func TestMatchSkipsDisabledRoutes(t *testing.T) {
	route := enabledRoute("catch-all", 0, nil)
	route.Enabled = false

	matched := Match(contactMeta(), []Route{route})
	if len(matched) != 0 {
		t.Fatal("disabled route must never match")
	}
}

func TestMatchOrdersByPriorityDescendingStable(t *testing.T) {
	low := enabledRoute("low", 10, nil)
	highA := enabledRoute("high-a", 20, nil)
	highB := enabledRoute("high-b", 20, nil)

	matched := Match(contactMeta(), []Route{low, highA, highB})
	if len(matched) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matched))
	}
	if matched[0].Name != "high-a" || matched[1].Name != "high-b" {
		t.Fatalf("equal priorities must keep definition order, got %s then %s", matched[0].Name, matched[1].Name)
	}
	if matched[2].Name != "low" {
		t.Fatalf("lower priority must dispatch last, got %s", matched[2].Name)
	}
}

func TestMatchOperators(t *testing.T) {
	meta := contactMeta()
	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals exact", Condition{Field: FieldFormType, Operator: OperatorEquals, Value: "contact"}, true},
		{"equals is case sensitive", Condition{Field: FieldFormType, Operator: OperatorEquals, Value: "Contact"}, false},
		{"contains", Condition{Field: FieldSourceURL, Operator: OperatorContains, Value: "acme-homes"}, true},
		{"contains miss", Condition{Field: FieldSourceURL, Operator: OperatorContains, Value: "/sell"}, false},
		{"starts_with", Condition{Field: FieldSourceURL, Operator: OperatorStartsWith, Value: "https://"}, true},
		{"starts_with miss", Condition{Field: FieldSourceURL, Operator: OperatorStartsWith, Value: "/contact"}, false},
		{"regex", Condition{Field: FieldSourceURL, Operator: OperatorRegex, Value: `/contact$`}, true},
		{"regex miss", Condition{Field: FieldFormID, Operator: OperatorRegex, Value: `^newsletter-`}, false},
	}

	for _, tc := range cases {
		route := enabledRoute(tc.name, 0, [][]Condition{{tc.cond}})
		matched := Match(meta, []Route{route})
		if got := len(matched) == 1; got != tc.want {
			t.Fatalf("%s: expected match=%v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestMatchInvalidRegexEvaluatesFalse(t *testing.T) {
	broken := enabledRoute("broken", 50, [][]Condition{
		{{Field: FieldSourceURL, Operator: OperatorRegex, Value: `([unclosed`}},
	})
	healthy := enabledRoute("healthy", 10, nil)

	matched := Match(contactMeta(), []Route{broken, healthy})
	if len(matched) != 1 || matched[0].Name != "healthy" {
		t.Fatalf("invalid pattern must only disable its own route, got %v", matched)
	}
}

func TestMatchCustomFieldConditions(t *testing.T) {
	budget := enabledRoute("budget", 0, [][]Condition{
		{{Field: FieldCustomField, Operator: OperatorStartsWith, Value: "5", CustomFieldKey: "budget"}},
	})
	missing := enabledRoute("missing-key", 0, [][]Condition{
		{{Field: FieldCustomField, Operator: OperatorEquals, Value: "x", CustomFieldKey: "no_such_field"}},
	})

	matched := Match(contactMeta(), []Route{budget, missing})
	if len(matched) != 1 || matched[0].Name != "budget" {
		t.Fatalf("expected only the budget route, got %v", matched)
	}
}

func TestMatchCustomFieldWithoutKeyNeverMatches(t *testing.T) {
	route := enabledRoute("keyless", 0, [][]Condition{
		{{Field: FieldCustomField, Operator: OperatorEquals, Value: "500000"}},
	})

	matched := Match(contactMeta(), []Route{route})
	if len(matched) != 0 {
		t.Fatal("custom_field condition without a key must evaluate false")
	}
}
