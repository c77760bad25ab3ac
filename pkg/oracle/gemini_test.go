package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func TestBuildClassifyPromptCarriesEvidence(t *testing.T) {
	candidate := &models.CandidateEvent{
		Summary:                 "Team standup",
		UserConfirmedAttendance: true,
		Attendees:               []models.Attendee{{Email: "ana@example.com"}},
		ReferenceMessages:       []string{"standup moved to 3pm, same room"},
	}
	counterparts := []models.CalendarEntry{
		{
			ID:           "evt-1",
			Summary:      "Team standup",
			CalendarName: "Work",
			Attendees:    []models.Attendee{{Email: "ana@example.com", ResponseStatus: "accepted"}},
		},
	}

	prompt, err := buildClassifyPrompt(candidate, counterparts)
	require.NoError(t, err)

	assert.Contains(t, prompt, "standup moved to 3pm, same room")
	assert.Contains(t, prompt, "user_confirmed_attendance")
	assert.Contains(t, prompt, "ana@example.com")
	assert.Contains(t, prompt, `"calendarName": "Work"`)
	assert.Contains(t, prompt, `"responseStatus": "accepted"`)
}
