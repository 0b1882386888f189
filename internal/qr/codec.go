package qr

import (
	"encoding/json"
	"fmt"
	"time"
)

// Claim is the decoded content of a scanned code: a course, the classroom
// coordinates declared by the issuer, and an expiry window. It is untrusted
// input; Decode validates structure, the caller validates everything else.
type Claim struct {
	CourseID  string
	Latitude  float64
	Longitude float64
	ExpiresAt time.Time
}

// ParseError reports a structurally invalid payload. A scan that fails with
// ParseError cannot succeed on retry with the same code.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "qr: invalid payload: " + e.Reason
}

// payload mirrors the wire format. Pointers distinguish absent fields from
// zero values; unknown extra fields are ignored.
type payload struct {
	CourseID  *string  `json:"courseId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	ExpiresAt *string  `json:"expiresAt"`
}

// Decode parses a raw scanned payload into a Claim. Malformed JSON, missing
// required fields, wrong types, and unparseable timestamps all come back as
// *ParseError, never a panic and never a claim with a zero expiry.
func Decode(raw string) (Claim, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Claim{}, &ParseError{Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if p.CourseID == nil || *p.CourseID == "" {
		return Claim{}, &ParseError{Reason: "courseId missing"}
	}
	if p.Latitude == nil {
		return Claim{}, &ParseError{Reason: "latitude missing"}
	}
	if p.Longitude == nil {
		return Claim{}, &ParseError{Reason: "longitude missing"}
	}
	if p.ExpiresAt == nil {
		return Claim{}, &ParseError{Reason: "expiresAt missing"}
	}
	expires, err := time.Parse(time.RFC3339, *p.ExpiresAt)
	if err != nil {
		return Claim{}, &ParseError{Reason: fmt.Sprintf("expiresAt not ISO-8601: %v", err)}
	}
	return Claim{
		CourseID:  *p.CourseID,
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
		ExpiresAt: expires,
	}, nil
}

// Expired reports whether the claim's window has closed at the given instant.
// Strictly after expiresAt is expired; exactly at expiresAt is still live.
func (c Claim) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
