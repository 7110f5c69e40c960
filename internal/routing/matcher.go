package routing

import (
	"regexp"
	"sort"
	"strings"
)

// SubmissionMeta is the slice of a normalized submission the matcher
// evaluates conditions against.
type SubmissionMeta struct {
	FormType     string
	FormID       string
	SourceURL    string
	CustomFields map[string]string
}

// Match returns the enabled routes whose condition trees accept the
// submission, ordered by priority descending with definition order as
// the tiebreak. It is a pure function over its inputs; a malformed
// condition evaluates false and never aborts matching.
func Match(meta SubmissionMeta, routes []Route) []Route {
	var matched []Route
	for _, route := range routes {
		if !route.Enabled {
			continue
		}
		if routeMatches(meta, route) {
			matched = append(matched, route)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})
	return matched
}

// routeMatches evaluates the condition tree: OR across groups, AND
// within a group. An empty tree matches unconditionally.
func routeMatches(meta SubmissionMeta, route Route) bool {
	if len(route.Conditions) == 0 {
		return true
	}

	for _, group := range route.Conditions {
		if groupMatches(meta, group) {
			return true
		}
	}
	return false
}

func groupMatches(meta SubmissionMeta, group []Condition) bool {
	for _, cond := range group {
		if !evaluate(meta, cond) {
			return false
		}
	}
	return true
}

func evaluate(meta SubmissionMeta, cond Condition) bool {
	value, ok := resolveField(meta, cond)
	if !ok {
		return false
	}

	switch cond.Operator {
	case OperatorEquals:
		return value == cond.Value
	case OperatorContains:
		return strings.Contains(value, cond.Value)
	case OperatorStartsWith:
		return strings.HasPrefix(value, cond.Value)
	case OperatorRegex:
		re, err := regexp.Compile(cond.Value)
		if err != nil {
			// One bad pattern must not block routing.
			return false
		}
		return re.MatchString(value)
	}
	return false
}

func resolveField(meta SubmissionMeta, cond Condition) (string, bool) {
	switch cond.Field {
	case FieldFormType:
		return meta.FormType, true
	case FieldFormID:
		return meta.FormID, true
	case FieldSourceURL:
		return meta.SourceURL, true
	case FieldCustomField:
		if cond.CustomFieldKey == "" {
			return "", false
		}
		value, ok := meta.CustomFields[cond.CustomFieldKey]
		return value, ok
	}
	return "", false
}
