// Package mapping provides the field mapping table and the normalizer
// that turns arbitrary form payloads into canonical lead records.
package mapping

import (
	"fmt"
	"strings"
)

// Transform names a value transformation applied after source selection.
type Transform string

const (
	TransformNone           Transform = "none"
	TransformSplitName      Transform = "split_name"
	TransformFormatPhone    Transform = "format_phone"
	TransformNormalizeEmail Transform = "normalize_email"
)

// Validation names a value check applied after transformation.
type Validation string

const (
	ValidationNone     Validation = "none"
	ValidationRequired Validation = "required"
	ValidationEmail    Validation = "email"
	ValidationPhone    Validation = "phone"
)

// Canonical field keys the normalizer knows how to assign.
const (
	KeyFirstName = "first_name"
	KeyLastName  = "last_name"
	KeyEmail     = "email"
	KeyPhone     = "phone"
	KeyMessage   = "message"
	KeyListingID = "listing_id"
	KeyAgentID   = "agent_id"
	KeyInterests = "interests"
)

// FieldMapping describes how to populate one canonical lead field from
// an arbitrary incoming payload: candidate source keys in priority
// order, an optional transform, and an optional validation rule.
type FieldMapping struct {
	Key        string     `json:"key" validate:"required,max=64"`
	Sources    []string   `json:"sources" validate:"required,min=1,dive,required,max=128"`
	Transform  Transform  `json:"transform"`
	Validation Validation `json:"validation"`
	Required   bool       `json:"required"`
}

// Table is a read-only snapshot of the field mapping table. Services
// hand out copies so in-flight normalizations never observe concurrent
// admin edits.
type Table struct {
	mappings []FieldMapping
}

// NewTable builds a table snapshot, validating the mapping invariants:
// keys unique, sources non-empty, enums known.
func NewTable(mappings []FieldMapping) (Table, error) {
	seen := make(map[string]struct{}, len(mappings))
	copied := make([]FieldMapping, 0, len(mappings))

	for _, m := range mappings {
		key := strings.TrimSpace(m.Key)
		if key == "" {
			return Table{}, fmt.Errorf("mapping with empty key")
		}
		if _, dup := seen[key]; dup {
			return Table{}, fmt.Errorf("duplicate mapping key %q", key)
		}
		seen[key] = struct{}{}

		if len(m.Sources) == 0 {
			return Table{}, fmt.Errorf("mapping %q has no sources", key)
		}
		if !validTransform(m.Transform) {
			return Table{}, fmt.Errorf("mapping %q has unknown transform %q", key, m.Transform)
		}
		if !validValidation(m.Validation) {
			return Table{}, fmt.Errorf("mapping %q has unknown validation %q", key, m.Validation)
		}

		m.Key = key
		m.Sources = append([]string(nil), m.Sources...)
		copied = append(copied, m)
	}

	return Table{mappings: copied}, nil
}

// Mappings returns a copy of the table's mappings in definition order.
// Source slices are copied too, so callers cannot mutate the snapshot.
func (t Table) Mappings() []FieldMapping {
	out := append([]FieldMapping(nil), t.mappings...)
	for i := range out {
		out[i].Sources = append([]string(nil), out[i].Sources...)
	}
	return out
}

// Len returns the number of mappings in the table.
func (t Table) Len() int {
	return len(t.mappings)
}

func validTransform(tr Transform) bool {
	switch tr {
	case "", TransformNone, TransformSplitName, TransformFormatPhone, TransformNormalizeEmail:
		return true
	}
	return false
}

func validValidation(v Validation) bool {
	switch v {
	case "", ValidationNone, ValidationRequired, ValidationEmail, ValidationPhone:
		return true
	}
	return false
}
