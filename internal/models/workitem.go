package models

import (
	"fmt"
	"strings"
)

// WorkItemKind distinguishes the two work item variants.
type WorkItemKind string

const (
	KindReview WorkItemKind = "review"
	KindBug    WorkItemKind = "bug"
)

// ParseWorkItemKind accepts singular and plural spellings.
func ParseWorkItemKind(value string) (WorkItemKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "review", "reviews":
		return KindReview, nil
	case "bug", "bugs", "feedback":
		return KindBug, nil
	default:
		return "", fmt.Errorf("unknown work item kind %q", value)
	}
}

// Priority values.
const (
	PriorityLow     = "low"
	PriorityMedium  = "medium"
	PriorityHigh    = "high"
	PriorityHighest = "highest"
)

// IsHighPriority reports whether priority is high or highest.
func IsHighPriority(priority string) bool {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case PriorityHigh, PriorityHighest:
		return true
	default:
		return false
	}
}

// NormalizePriority lower-cases priority and defaults it to medium.
func NormalizePriority(priority string) string {
	p := strings.ToLower(strings.TrimSpace(priority))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityHighest:
		return p
	default:
		return PriorityMedium
	}
}
