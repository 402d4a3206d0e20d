package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionIDLayout is the time layout of a session id: local time to the second.
const SessionIDLayout = "20060102_150405"

const (
	sessionFilePrefix = "session_"
	sessionFileSuffix = ".json"
)

// ErrInvalidSessionID is returned when a session id does not start with a
// SessionIDLayout timestamp.
var ErrInvalidSessionID = errors.New("invalid session id")

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NewSessionID returns the session id for a session ending at t.
func NewSessionID(t time.Time) string {
	return t.Format(SessionIDLayout)
}

// SessionFileName returns the file name of the record with the given id.
func SessionFileName(id string) string {
	return sessionFilePrefix + id + sessionFileSuffix
}

// IsSessionFile reports whether name looks like a session record file.
func IsSessionFile(name string) bool {
	return strings.HasPrefix(name, sessionFilePrefix) && strings.HasSuffix(name, sessionFileSuffix) &&
		len(name) > len(sessionFilePrefix)+len(sessionFileSuffix)
}

// SessionIDFromFile strips the prefix and extension from a session file name.
func SessionIDFromFile(name string) string {
	return strings.TrimSuffix(strings.TrimPrefix(name, sessionFilePrefix), sessionFileSuffix)
}

// ParseSessionID returns the creation time encoded in a session id,
// interpreted in loc. A collision suffix ("_" followed by anything) after the
// timestamp is allowed.
func ParseSessionID(id string, loc *time.Location) (time.Time, error) {
	n := len(SessionIDLayout)
	if len(id) < n || (len(id) > n && id[n] != '_') {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	t, err := time.ParseInLocation(SessionIDLayout, id[:n], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return t, nil
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without an offset are
// interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
