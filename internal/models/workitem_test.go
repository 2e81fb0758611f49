package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWorkItemKind(t *testing.T) {
	cases := map[string]WorkItemKind{
		"review":   KindReview,
		" Reviews": KindReview,
		"bugs":     KindBug,
		"feedback": KindBug,
	}
	for input, want := range cases {
		got, err := ParseWorkItemKind(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got)
	}

	_, err := ParseWorkItemKind("invoices")
	require.Error(t, err)
}

func TestAssignmentAssignee(t *testing.T) {
	var a Assignment
	require.False(t, a.IsAssigned())
	require.Empty(t, a.Assignee())

	empty := ""
	a.AssignedTo = &empty
	require.False(t, a.IsAssigned())

	id := "admin-1"
	a.AssignedTo = &id
	require.True(t, a.IsAssigned())
	require.Equal(t, "admin-1", a.Assignee())
}
