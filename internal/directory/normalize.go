package directory

import (
	"strconv"
	"time"
)

// The remote document store grew inconsistent field casing over time
// (Status vs status, StudentID vs studentId). Everything crossing this
// boundary is folded into the canonical shapes below; nothing downstream
// ever sees a raw document.

// Document is a raw record as returned by the store.
type Document map[string]any

// User is the canonical account shape from the session service.
type User struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// Student is the canonical student directory record.
type Student struct {
	ID              string
	UserID          string
	Name            string
	Email           string
	Programme       string
	Semester        string
	Year            string
	DeviceBindingID string
}

// Course is the canonical course catalog record.
type Course struct {
	ID      string
	Name    string
	Code    string
	Credits int
}

// AttendanceDoc is the canonical remote attendance record.
type AttendanceDoc struct {
	ID        string
	StudentID string
	CourseID  string
	Date      string
	Status    string
	SessionID string
	Latitude  *float64
	Longitude *float64
	MarkedBy  string
	MarkedAt  time.Time
}

// DeviceBinding is the canonical device-registration record.
type DeviceBinding struct {
	ID         string
	DeviceUUID string
	Email      string
}

func (d Document) str(keys ...string) string {
	for _, k := range keys {
		if v, ok := d[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func (d Document) num(keys ...string) *float64 {
	for _, k := range keys {
		v, ok := d[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return &n
		case string:
			if parsed, err := strconv.ParseFloat(n, 64); err == nil {
				return &parsed
			}
		}
	}
	return nil
}

func (d Document) intval(keys ...string) int {
	if n := d.num(keys...); n != nil {
		return int(*n)
	}
	return 0
}

func (d Document) when(keys ...string) time.Time {
	if s := d.str(keys...); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// NormalizeStudent folds a raw student document into the canonical shape.
func NormalizeStudent(d Document) Student {
	return Student{
		ID:              d.str("$id", "id"),
		UserID:          d.str("userId", "UserID", "userID"),
		Name:            d.str("Name", "name"),
		Email:           d.str("Email", "email"),
		Programme:       d.str("Programme", "programme"),
		Semester:        d.str("Semester", "semester"),
		Year:            d.str("Year", "year"),
		DeviceBindingID: d.str("uUID", "UUID", "uuid", "deviceBindingId"),
	}
}

// NormalizeCourse folds a raw course document.
func NormalizeCourse(d Document) Course {
	return Course{
		ID:      d.str("$id", "id"),
		Name:    d.str("Name", "name"),
		Code:    d.str("Code", "code"),
		Credits: d.intval("Credits", "credits"),
	}
}

// NormalizeAttendance folds a raw attendance document.
func NormalizeAttendance(d Document) AttendanceDoc {
	return AttendanceDoc{
		ID:        d.str("$id", "id"),
		StudentID: d.str("StudentID", "studentId", "studentID"),
		CourseID:  d.str("CourseID", "courseId", "courseID"),
		Date:      d.str("Date", "date"),
		Status:    d.str("Status", "status"),
		SessionID: d.str("SessionID", "sessionId", "sessionID"),
		Latitude:  d.num("Latitude", "latitude"),
		Longitude: d.num("Longitude", "longitude"),
		MarkedBy:  d.str("MarkedBy", "markedBy"),
		MarkedAt:  d.when("MarkedAt", "markedAt"),
	}
}

// NormalizeBinding folds a raw device-binding document.
func NormalizeBinding(d Document) DeviceBinding {
	return DeviceBinding{
		ID:         d.str("$id", "id"),
		DeviceUUID: d.str("DeviceUUID", "deviceUUID", "deviceUuid"),
		Email:      d.str("email", "Email"),
	}
}
