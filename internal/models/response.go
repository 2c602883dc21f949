package models

import (
	"time"
)

// TimestampField is the server-assigned key added to every ResponseEntry.
const TimestampField = "timestamp"

// TimestampLayout renders UTC instants with millisecond precision and a "Z" suffix.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ResponseEntry is one user's answer for one video: the caller's payload plus TimestampField.
type ResponseEntry map[string]any

// UserResponses maps video ID to that video's ResponseEntry for a single user.
type UserResponses map[string]ResponseEntry

// NewResponseEntry returns a shallow copy of payload with TimestampField set to now in UTC.
// Any timestamp already present in payload is overwritten. payload itself is not modified.
func NewResponseEntry(payload map[string]any, now time.Time) ResponseEntry {
	entry := make(ResponseEntry, len(payload)+1)
	for k, v := range payload {
		entry[k] = v
	}
	entry[TimestampField] = now.UTC().Format(TimestampLayout)
	return entry
}

// Timestamp parses TimestampField. ok is false when it is missing or malformed.
func (e ResponseEntry) Timestamp() (t time.Time, ok bool) {
	s, isString := e[TimestampField].(string)
	if !isString {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
