// SPDX-License-Identifier: MIT

// Package meeting parses meeting references into a meeting number and
// optional password.
package meeting

import (
	"errors"
	"regexp"
)

// ErrInvalidReference is returned for inputs that match no accepted shape.
var ErrInvalidReference = errors.New("invalid meeting URL or meeting number")

// Reference is a parsed meeting target. Password is empty when the reference
// carried none.
type Reference struct {
	MeetingNumber string
	Password      string
}

// Accepted URL shapes, tried in order. Each pattern captures the meeting
// number first and the optional password second, so extraction is uniform
// across patterns.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`zoom\.us/j/(\d+)(?:\?pwd=([^&\s]+))?`),
	regexp.MustCompile(`zoom\.us/meeting/(\d+)(?:\?pwd=([^&\s]+))?`),
	regexp.MustCompile(`\d+\.zoom\.us/j/(\d+)(?:\?pwd=([^&\s]+))?`),
}

var allDigits = regexp.MustCompile(`^\d+$`)

// Parse extracts a meeting number and optional password from a join URL or a
// bare meeting number. It returns ErrInvalidReference for anything else.
func Parse(raw string) (Reference, error) {
	for _, pattern := range referencePatterns {
		m := pattern.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		return Reference{MeetingNumber: m[1], Password: m[2]}, nil
	}

	if allDigits.MatchString(raw) {
		return Reference{MeetingNumber: raw}, nil
	}

	return Reference{}, ErrInvalidReference
}
