package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    EnrollmentStatus
		to      EnrollmentStatus
		allowed bool
	}{
		{StatusCandidature, StatusEnCours, true},
		{StatusCandidature, StatusActif, true},
		{StatusCandidature, StatusRejetee, true},
		{StatusEnCours, StatusActif, true},
		{StatusEnCours, StatusRejetee, true},
		{StatusEnCours, StatusCandidature, false},
		{StatusActif, StatusRejetee, false},
		{StatusActif, StatusEnCours, false},
		{StatusRejetee, StatusActif, false},
		{StatusRejetee, StatusCandidature, false},
		{StatusCandidature, StatusCandidature, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestEnrollmentStatusTerminal(t *testing.T) {
	assert.False(t, StatusCandidature.Terminal())
	assert.False(t, StatusEnCours.Terminal())
	assert.True(t, StatusActif.Terminal())
	assert.True(t, StatusRejetee.Terminal())
}

func TestEnrollmentStatusValid(t *testing.T) {
	assert.True(t, StatusCandidature.Valid())
	assert.True(t, StatusRejetee.Valid())
	assert.False(t, EnrollmentStatus("ARCHIVE").Valid())
	assert.False(t, EnrollmentStatus("").Valid())
}
