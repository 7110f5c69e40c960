// Package routing provides the route definition store and the matcher
// that selects routes for normalized submissions.
package routing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConditionField names the submission attribute a condition tests.
type ConditionField string

const (
	FieldFormType    ConditionField = "form_type"
	FieldFormID      ConditionField = "form_id"
	FieldSourceURL   ConditionField = "source_url"
	FieldCustomField ConditionField = "custom_field"
)

// Operator names the comparison a condition applies.
type Operator string

const (
	OperatorEquals     Operator = "equals"
	OperatorContains   Operator = "contains"
	OperatorStartsWith Operator = "starts_with"
	OperatorRegex      Operator = "regex"
)

// Condition is a single comparison within a rule group. A custom_field
// condition must carry the payload key it resolves against.
type Condition struct {
	Field          ConditionField `json:"field"`
	Operator       Operator       `json:"operator"`
	Value          string         `json:"value"`
	CustomFieldKey string         `json:"custom_field_key,omitempty"`
}

// DatabaseAction persists the lead record. It is the only action that
// defaults to critical: losing the stored lead fails the submission.
type DatabaseAction struct {
	Enabled  bool   `json:"enabled"`
	Critical *bool  `json:"critical,omitempty"`
	Table    string `json:"table,omitempty"`
}

// IsCritical reports whether this action's failure fails the submission.
func (a DatabaseAction) IsCritical() bool {
	if a.Critical == nil {
		return true
	}
	return *a.Critical
}

// EmailAction sends the admin notification and, optionally, an
// auto-responder to the lead.
type EmailAction struct {
	Enabled       bool   `json:"enabled"`
	Critical      bool   `json:"critical,omitempty"`
	AdminEmail    string `json:"admin_email,omitempty"`
	AutoResponder bool   `json:"auto_responder,omitempty"`
}

// CalendlyAction builds a prefilled scheduling link for the caller.
type CalendlyAction struct {
	Enabled      bool   `json:"enabled"`
	Critical     bool   `json:"critical,omitempty"`
	CalendarType string `json:"calendar_type,omitempty"`
}

// FollowUpBossAction pushes the lead to the FollowUp Boss CRM.
type FollowUpBossAction struct {
	Enabled  bool     `json:"enabled"`
	Critical bool     `json:"critical,omitempty"`
	Source   string   `json:"source,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// ActionSet holds the per-route configuration of every action.
type ActionSet struct {
	Database     DatabaseAction     `json:"database"`
	Email        EmailAction        `json:"email"`
	Calendly     CalendlyAction     `json:"calendly"`
	FollowUpBoss FollowUpBossAction `json:"followup_boss"`
}

// HasEnabledAction reports whether any action in the set would run.
func (s ActionSet) HasEnabledAction() bool {
	return s.Database.Enabled || s.Email.Enabled || s.Calendly.Enabled || s.FollowUpBoss.Enabled
}

// Route is one rule set in the route definition store.
type Route struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"-"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Priority       int           `json:"priority"`
	Enabled        bool          `json:"enabled"`
	Conditions     [][]Condition `json:"conditions"`
	Actions        ActionSet     `json:"actions"`
	CreatedAt      time.Time     `json:"created_at,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at,omitempty"`
}

// DecodeActionSet parses an action configuration, rejecting unknown
// keys so misspelled settings surface at save time instead of being
// silently ignored at dispatch time.
func DecodeActionSet(data []byte) (ActionSet, error) {
	var set ActionSet
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&set); err != nil {
		return ActionSet{}, fmt.Errorf("invalid action configuration: %w", err)
	}
	return set, nil
}

// DecodeConditions parses a condition tree, rejecting unknown keys and
// enforcing the condition invariants.
func DecodeConditions(data []byte) ([][]Condition, error) {
	var groups [][]Condition
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&groups); err != nil {
		return nil, fmt.Errorf("invalid condition configuration: %w", err)
	}
	if err := ValidateConditions(groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ValidateConditions checks every condition in the tree for known
// enums and the explicit custom_field key requirement.
func ValidateConditions(groups [][]Condition) error {
	for gi, group := range groups {
		for ci, cond := range group {
			if !validField(cond.Field) {
				return fmt.Errorf("condition %d.%d: unknown field %q", gi, ci, cond.Field)
			}
			if !validOperator(cond.Operator) {
				return fmt.Errorf("condition %d.%d: unknown operator %q", gi, ci, cond.Operator)
			}
			if cond.Field == FieldCustomField && cond.CustomFieldKey == "" {
				return fmt.Errorf("condition %d.%d: custom_field conditions require custom_field_key", gi, ci)
			}
			if cond.Field != FieldCustomField && cond.CustomFieldKey != "" {
				return fmt.Errorf("condition %d.%d: custom_field_key is only valid on custom_field conditions", gi, ci)
			}
		}
	}
	return nil
}

func validField(f ConditionField) bool {
	switch f {
	case FieldFormType, FieldFormID, FieldSourceURL, FieldCustomField:
		return true
	}
	return false
}

func validOperator(op Operator) bool {
	switch op {
	case OperatorEquals, OperatorContains, OperatorStartsWith, OperatorRegex:
		return true
	}
	return false
}
