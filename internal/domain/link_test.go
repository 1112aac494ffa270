package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileStatusTransitions(t *testing.T) {
	tests := []struct {
		from    FileStatus
		to      FileStatus
		allowed bool
	}{
		{FileStatusPending, FileStatusAttached, true},
		{FileStatusPending, FileStatusOrphaned, true},
		{FileStatusPending, FileStatusConfirmed, false},
		{FileStatusAttached, FileStatusConfirmed, true},
		{FileStatusAttached, FileStatusPending, true},
		{FileStatusAttached, FileStatusOrphaned, true},
		{FileStatusConfirmed, FileStatusOrphaned, true},
		{FileStatusConfirmed, FileStatusAttached, false},
		{FileStatusConfirmed, FileStatusPending, false},
		{FileStatusOrphaned, FileStatusPending, false},
		{FileStatusOrphaned, FileStatusAttached, false},
		{FileStatusOrphaned, FileStatusConfirmed, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestFileStatusSelfTransitionRejected(t *testing.T) {
	for _, status := range []FileStatus{FileStatusPending, FileStatusAttached, FileStatusConfirmed, FileStatusOrphaned} {
		assert.False(t, status.CanTransitionTo(status), "%s -> %s", status, status)
	}
}

func TestFileStatusIsValid(t *testing.T) {
	assert.True(t, FileStatusPending.IsValid())
	assert.True(t, FileStatusOrphaned.IsValid())
	assert.False(t, FileStatus("DELETED").IsValid())
	assert.False(t, FileStatus("").IsValid())
}
