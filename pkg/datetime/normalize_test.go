package datetime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func TestNormalizePeriod(t *testing.T) {
	tests := []struct {
		name      string
		start     *models.EventDateTime
		end       *models.EventDateTime
		wantStart *models.EventDateTime
		wantEnd   *models.EventDateTime
	}{
		{
			name:      "instant pair passes through",
			start:     &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"},
			end:       &models.EventDateTime{DateTime: "2025-06-14T16:30:00Z"},
			wantStart: &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"},
			wantEnd:   &models.EventDateTime{DateTime: "2025-06-14T16:30:00Z"},
		},
		{
			name:      "missing end synthesized one hour after instant start",
			start:     &models.EventDateTime{DateTime: "2025-06-14T20:00:00-07:00"},
			end:       nil,
			wantStart: &models.EventDateTime{DateTime: "2025-06-14T20:00:00-07:00"},
			wantEnd:   &models.EventDateTime{DateTime: "2025-06-14T21:00:00-07:00"},
		},
		{
			name:      "missing end for whole-day start is the same day",
			start:     &models.EventDateTime{Date: "2025-06-14"},
			end:       nil,
			wantStart: &models.EventDateTime{Date: "2025-06-14"},
			wantEnd:   &models.EventDateTime{Date: "2025-06-14"},
		},
		{
			name:      "human-readable date rewritten",
			start:     &models.EventDateTime{Date: "June 14, 2025"},
			end:       &models.EventDateTime{Date: "June 15, 2025"},
			wantStart: &models.EventDateTime{Date: "2025-06-14"},
			wantEnd:   &models.EventDateTime{Date: "2025-06-15"},
		},
		{
			name:      "unparsable date passes through",
			start:     &models.EventDateTime{Date: "next Tuesday-ish"},
			end:       nil,
			wantStart: &models.EventDateTime{Date: "next Tuesday-ish"},
			wantEnd:   &models.EventDateTime{Date: "next Tuesday-ish"},
		},
		{
			name:      "time zone copied from start to end",
			start:     &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z", TimeZone: "America/Denver"},
			end:       &models.EventDateTime{DateTime: "2025-06-14T16:00:00Z"},
			wantStart: &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z", TimeZone: "America/Denver"},
			wantEnd:   &models.EventDateTime{DateTime: "2025-06-14T16:00:00Z", TimeZone: "America/Denver"},
		},
		{
			name:      "whole-day end under instant start is synthesized",
			start:     &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"},
			end:       &models.EventDateTime{Date: "2025-06-14"},
			wantStart: &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"},
			wantEnd:   &models.EventDateTime{DateTime: "2025-06-14T16:00:00Z"},
		},
		{
			name:      "instant end under whole-day start is truncated to its day",
			start:     &models.EventDateTime{Date: "2025-06-14"},
			end:       &models.EventDateTime{DateTime: "2025-06-14T18:00:00Z"},
			wantStart: &models.EventDateTime{Date: "2025-06-14"},
			wantEnd:   &models.EventDateTime{Date: "2025-06-14"},
		},
		{
			name:      "instant wins when both date and dateTime are present",
			start:     &models.EventDateTime{Date: "2025-06-14", DateTime: "2025-06-14T09:00:00Z"},
			end:       nil,
			wantStart: &models.EventDateTime{DateTime: "2025-06-14T09:00:00Z"},
			wantEnd:   &models.EventDateTime{DateTime: "2025-06-14T10:00:00Z"},
		},
		{
			name:      "offset-less instant canonicalized to RFC 3339",
			start:     &models.EventDateTime{DateTime: "2025-06-14 15:00:00"},
			end:       nil,
			wantStart: &models.EventDateTime{DateTime: "2025-06-14T15:00:00Z"},
			wantEnd:   &models.EventDateTime{DateTime: "2025-06-14T16:00:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStart, gotEnd, err := NormalizePeriod(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, gotStart)
			assert.Equal(t, tt.wantEnd, gotEnd)
		})
	}
}

func TestNormalizePeriodNoStart(t *testing.T) {
	_, _, err := NormalizePeriod(nil, &models.EventDateTime{Date: "2025-06-14"})
	assert.ErrorIs(t, err, ErrNoStart)

	_, _, err = NormalizePeriod(&models.EventDateTime{}, nil)
	assert.ErrorIs(t, err, ErrNoStart)
}

func TestNormalizePeriodIdempotent(t *testing.T) {
	start := &models.EventDateTime{Date: "June 14, 2025", TimeZone: "America/Denver"}

	s1, e1, err := NormalizePeriod(start, nil)
	require.NoError(t, err)

	s2, e2, err := NormalizePeriod(s1, e1)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.Equal(t, e1, e2)
}

func TestNormalizePeriodDoesNotMutateInputs(t *testing.T) {
	start := &models.EventDateTime{Date: "June 14, 2025"}
	end := &models.EventDateTime{Date: "June 15, 2025"}

	_, _, err := NormalizePeriod(start, end)
	require.NoError(t, err)

	assert.Equal(t, "June 14, 2025", start.Date)
	assert.Equal(t, "June 15, 2025", end.Date)
}
