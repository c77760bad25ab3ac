package models

// EventDateTime is the calendar wire shape for a point or day. Exactly one of
// Date (whole-day, YYYY-MM-DD) or DateTime (RFC 3339 instant) is set.
type EventDateTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// IsZero reports whether no temporal value is present at all.
func (e *EventDateTime) IsZero() bool {
	return e == nil || (e.Date == "" && e.DateTime == "")
}

// IsDateOnly reports whether the value carries day precision only.
func (e *EventDateTime) IsDateOnly() bool {
	return e != nil && e.DateTime == "" && e.Date != ""
}

// Candidate event classifications, as produced by the upstream extractor.
const (
	EventTypeFullDetails       = "full_potential_event_details"
	EventTypeIncompleteDetails = "incomplete_event_details"
	EventTypeNotDesired        = "not_a_desired_event"
	EventTypeNotAnEvent        = "not_an_event"
)

// Attendee is a meeting participant. ResponseStatus only appears on
// calendar entries.
type Attendee struct {
	Email          string `json:"email,omitempty"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

// CandidateEvent is an extracted event proposal to reconcile against the
// user's calendar window. ReferenceMessages carries the source excerpts the
// event was extracted from; the oracle reads them when deciding whether a
// message moves or reschedules an existing event.
type CandidateEvent struct {
	EventType               string         `json:"event_type,omitempty"`
	Summary                 string         `json:"summary"`
	Description             string         `json:"description,omitempty"`
	Location                string         `json:"location,omitempty"`
	Start                   *EventDateTime `json:"start,omitempty"`
	End                     *EventDateTime `json:"end,omitempty"`
	Attendees               []Attendee     `json:"attendees,omitempty"`
	HTMLLink                string         `json:"htmlLink,omitempty"`
	UserConfirmedAttendance bool           `json:"user_confirmed_attendance,omitempty"`
	ReferenceMessages       []string       `json:"reference_messages,omitempty"`
}

// HasText reports whether the candidate has any text to compare on.
func (c *CandidateEvent) HasText() bool {
	return c.Summary != "" || c.Description != ""
}

// CalendarEntry is an existing event fetched from the user's calendar.
type CalendarEntry struct {
	ID           string         `json:"id"`
	Summary      string         `json:"summary"`
	Description  string         `json:"description,omitempty"`
	Location     string         `json:"location,omitempty"`
	Start        *EventDateTime `json:"start,omitempty"`
	End          *EventDateTime `json:"end,omitempty"`
	Attendees    []Attendee     `json:"attendees,omitempty"`
	HTMLLink     string         `json:"htmlLink,omitempty"`
	CalendarName string         `json:"calendarName,omitempty"`
}

// HasText reports whether the entry has any text to compare. Summary and
// description are embedded as separate subjects.
func (c *CalendarEntry) HasText() bool {
	return c.Summary != "" || c.Description != ""
}
