// Package diff computes the field-level changes a candidate event proposes
// against its matched calendar entry.
package diff

import (
	"time"

	"github.com/Ramsey-B/sage/pkg/datetime"
	"github.com/Ramsey-B/sage/pkg/models"
)

// nullPlaceholder is the literal string some oracles emit for absent fields.
// It is never treated as a real value.
const nullPlaceholder = "null"

// Compute returns the changes the candidate proposes against the entry.
// An empty diff means the entry already carries everything the candidate
// knows; callers downgrade an update verdict with an empty diff to duplicate.
//
// Comparing an entry against itself always yields an empty diff.
func Compute(entry *models.CalendarEntry, candidate *models.CandidateEvent) models.FieldDiff {
	d := models.FieldDiff{}

	compareString(d, "summary", entry.Summary, candidate.Summary)
	compareString(d, "description", entry.Description, candidate.Description)
	compareString(d, "location", entry.Location, candidate.Location)

	compareTemporal(d, entry, candidate)

	return d
}

// compareString records a change only when the proposed value is non-empty,
// not the "null" placeholder, and different from the existing value.
func compareString(d models.FieldDiff, field, existing, proposed string) {
	if proposed == "" || proposed == nullPlaceholder {
		return
	}
	if proposed == existing {
		return
	}
	d[field] = models.FieldChange{Old: existing, New: proposed}
}

// compareTemporal diffs the start/end window. Both sides are canonicalized
// first; a candidate with no start proposes no temporal change at all.
func compareTemporal(d models.FieldDiff, entry *models.CalendarEntry, candidate *models.CandidateEvent) {
	candStart, candEnd, err := datetime.NormalizePeriod(candidate.Start, candidate.End)
	if err != nil {
		return
	}

	entryStart, entryEnd := entry.Start, entry.End
	if !entryStart.IsZero() {
		entryStart, entryEnd, _ = datetime.NormalizePeriod(entryStart, entryEnd)
	}

	compareValue(d, "start", entryStart, candStart)
	compareValue(d, "end", entryEnd, candEnd)
}

// compareValue diffs one temporal value. A whole-day proposal on the same
// day as an existing instant is not a change: day precision never overwrites
// time precision.
func compareValue(d models.FieldDiff, field string, existing, proposed *models.EventDateTime) {
	if proposed.IsZero() {
		return
	}

	if existing.IsZero() {
		d[field] = models.FieldChange{Old: nil, New: proposed}
		return
	}

	switch {
	case existing.DateTime != "" && proposed.DateTime != "":
		if !instantsEqual(existing.DateTime, proposed.DateTime) {
			d[field] = models.FieldChange{Old: existing, New: proposed}
		}

	case existing.DateTime != "" && proposed.IsDateOnly():
		et, err := time.Parse(time.RFC3339, existing.DateTime)
		if err != nil {
			// Existing instant is malformed; leave the field alone.
			return
		}
		if et.Format("2006-01-02") != proposed.Date {
			d[field] = models.FieldChange{Old: existing, New: proposed}
		}

	case existing.IsDateOnly() && proposed.DateTime != "":
		// Gaining time precision is always a change, even on the same day.
		d[field] = models.FieldChange{Old: existing, New: proposed}

	default:
		if existing.Date != proposed.Date {
			d[field] = models.FieldChange{Old: existing, New: proposed}
		}
	}
}

// instantsEqual compares two instants by the moment they denote, so the same
// time written with different offsets is not a change. Unparsable values fall
// back to string comparison.
func instantsEqual(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)
	if errA != nil || errB != nil {
		return a == b
	}
	return ta.Equal(tb)
}
