package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAttendanceCapitalizedFields(t *testing.T) {
	doc := Document{
		"$id":       "rec-1",
		"StudentID": "student-1",
		"CourseID":  "CS101",
		"Date":      "2026-03-02",
		"Status":    "Present",
		"SessionID": "s1",
		"Latitude":  40.7128,
		"Longitude": -74.0060,
		"MarkedBy":  "QR",
		"MarkedAt":  "2026-03-02T09:00:00Z",
	}
	rec := NormalizeAttendance(doc)
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, "student-1", rec.StudentID)
	assert.Equal(t, "Present", rec.Status)
	assert.Equal(t, 40.7128, *rec.Latitude)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), rec.MarkedAt)
}

func TestNormalizeAttendanceLowercaseFields(t *testing.T) {
	doc := Document{
		"id":        "rec-2",
		"studentId": "student-2",
		"courseId":  "CS102",
		"date":      "2026-03-03",
		"status":    "Absent",
		"markedBy":  "Manual",
	}
	rec := NormalizeAttendance(doc)
	assert.Equal(t, "rec-2", rec.ID)
	assert.Equal(t, "student-2", rec.StudentID)
	assert.Equal(t, "Absent", rec.Status)
	assert.Nil(t, rec.Latitude)
}

func TestNormalizeCoordinatesStoredAsStrings(t *testing.T) {
	// Some documents hold coordinates as strings; the boundary converts.
	doc := Document{"Latitude": "40.7128", "Longitude": "-74.0060"}
	rec := NormalizeAttendance(doc)
	assert.Equal(t, 40.7128, *rec.Latitude)
	assert.Equal(t, -74.0060, *rec.Longitude)
}

func TestNormalizeStudentBindingVariants(t *testing.T) {
	for _, key := range []string{"uUID", "UUID", "uuid", "deviceBindingId"} {
		doc := Document{"$id": "stu-1", "userId": "user-1", key: "bind-1"}
		student := NormalizeStudent(doc)
		assert.Equal(t, "bind-1", student.DeviceBindingID, "key %s", key)
	}
}

func TestNormalizeMissingAndWrongTypes(t *testing.T) {
	doc := Document{"Status": 42, "studentId": true}
	rec := NormalizeAttendance(doc)
	assert.Empty(t, rec.Status)
	assert.Empty(t, rec.StudentID)
}
