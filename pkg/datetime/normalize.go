// Package datetime canonicalizes event time windows into the calendar wire
// shape: either a whole-day pair (date) or an instant pair (dateTime), never
// a mix. The start value decides which representation the pair uses.
package datetime

import (
	"errors"
	"time"

	"github.com/Ramsey-B/sage/pkg/models"
)

// ErrNoStart is returned when a candidate carries no start value at all.
// Such candidates cannot be placed on a calendar.
var ErrNoStart = errors.New("event has no start date or time")

// dateLayouts are accepted spellings for day-precision values. Parsed values
// are rewritten as YYYY-MM-DD; anything unparsable passes through untouched.
var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"01/02/2006",
	"2006/01/02",
}

// instantLayouts are accepted spellings for instants.
var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NormalizePeriod canonicalizes a start/end pair:
//   - start decides the representation (instant vs whole-day); end is
//     converted or synthesized to match
//   - a missing end becomes start+1h for instants, same day for whole-day
//   - the start time zone is copied to an end that lacks one
//   - human-readable dates are rewritten as YYYY-MM-DD
//   - unparsable values pass through unchanged
//
// Inputs are never mutated. The function is idempotent: normalizing its own
// output returns equal values.
func NormalizePeriod(start, end *models.EventDateTime) (*models.EventDateTime, *models.EventDateTime, error) {
	if start.IsZero() {
		return nil, nil, ErrNoStart
	}

	ns := normalizeValue(start)

	var ne *models.EventDateTime
	if end.IsZero() {
		ne = synthesizeEnd(ns)
	} else {
		ne = alignEnd(ns, normalizeValue(end))
	}

	if ns.TimeZone != "" && ne.TimeZone == "" {
		ne.TimeZone = ns.TimeZone
	}

	return ns, ne, nil
}

// normalizeValue canonicalizes a single value. An instant wins over a date
// when both are present.
func normalizeValue(v *models.EventDateTime) *models.EventDateTime {
	out := &models.EventDateTime{TimeZone: v.TimeZone}

	if v.DateTime != "" {
		out.DateTime = canonicalInstant(v.DateTime)
		return out
	}

	out.Date = canonicalDate(v.Date)
	return out
}

// canonicalInstant rewrites a parsable instant as RFC 3339. Unparsable
// strings pass through so the oracle's raw output is never silently dropped.
func canonicalInstant(s string) string {
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	return s
}

// canonicalDate rewrites a parsable day value as YYYY-MM-DD.
func canonicalDate(s string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// synthesizeEnd builds an end for a candidate that has none: one hour after
// an instant start, the same day for a whole-day start.
func synthesizeEnd(start *models.EventDateTime) *models.EventDateTime {
	end := &models.EventDateTime{TimeZone: start.TimeZone}

	if start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, start.DateTime); err == nil {
			end.DateTime = t.Add(time.Hour).Format(time.RFC3339)
		} else {
			end.DateTime = start.DateTime
		}
		return end
	}

	end.Date = start.Date
	return end
}

// alignEnd forces the end onto the start's representation. A whole-day end
// under an instant start carries no usable time, so the end is synthesized;
// an instant end under a whole-day start is truncated to its day.
func alignEnd(start, end *models.EventDateTime) *models.EventDateTime {
	switch {
	case start.DateTime != "" && end.DateTime == "":
		return synthesizeEnd(start)
	case start.DateTime == "" && end.DateTime != "":
		out := &models.EventDateTime{TimeZone: end.TimeZone}
		if t, err := time.Parse(time.RFC3339, end.DateTime); err == nil {
			out.Date = t.Format("2006-01-02")
		} else {
			out.Date = start.Date
		}
		return out
	default:
		return end
	}
}
