package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geoattend/internal/location"
	"geoattend/internal/verify"
)

// Status of a daily attendance record.
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

// MarkedBy records which path produced a record.
const (
	MarkedByManual = "Manual"
	MarkedByQR     = "QR"
)

// Record is one attendance mark for a (student, course, date, session) key.
type Record struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Status    string    `json:"status"`
	SessionID string    `json:"session_id"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	MarkedBy  string    `json:"marked_by"`
	MarkedAt  time.Time `json:"marked_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Service coordinates attendance commits and the target-location registry.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// CommitQR writes an admitted QR claim as a Present record. The store key
// (student, course, date, session) makes the commit idempotent: a repeated
// commit for the same key succeeds without a second row.
func (s *Service) CommitQR(ctx context.Context, studentID, courseID, date, sessionID string, fix location.Fix) error {
	if studentID == "" || courseID == "" {
		return errors.New("student and course required")
	}
	if err := validDate(date); err != nil {
		return err
	}
	rec := Record{
		StudentID: studentID,
		CourseID:  courseID,
		Date:      date,
		Status:    StatusPresent,
		SessionID: sessionID,
		Latitude:  &fix.Latitude,
		Longitude: &fix.Longitude,
		MarkedBy:  MarkedByQR,
		MarkedAt:  time.Now().UTC(),
	}
	_, _, err := s.repo.InsertRecord(ctx, rec)
	return err
}

// CommitManual writes staff-marked Present records for a batch of students.
// Already-marked students are skipped by the same idempotent key.
func (s *Service) CommitManual(ctx context.Context, studentIDs []string, courseID, date, sessionID string, lat, lon *float64) (int, error) {
	if len(studentIDs) == 0 {
		return 0, errors.New("no students to mark")
	}
	if courseID == "" {
		return 0, errors.New("course required")
	}
	if err := validDate(date); err != nil {
		return 0, err
	}
	marked := 0
	for _, studentID := range studentIDs {
		if studentID == "" {
			continue
		}
		rec := Record{
			StudentID: studentID,
			CourseID:  courseID,
			Date:      date,
			Status:    StatusPresent,
			SessionID: sessionID,
			Latitude:  lat,
			Longitude: lon,
			MarkedBy:  MarkedByManual,
			MarkedAt:  time.Now().UTC(),
		}
		_, inserted, err := s.repo.InsertRecord(ctx, rec)
		if err != nil {
			return marked, err
		}
		if inserted {
			marked++
		}
	}
	return marked, nil
}

// List returns records filtered by student and date range.
func (s *Service) List(ctx context.Context, studentID, from, to string, limit, offset int) ([]Record, error) {
	for _, d := range []string{from, to} {
		if d != "" {
			if err := validDate(d); err != nil {
				return nil, err
			}
		}
	}
	return s.repo.ListRecords(ctx, studentID, from, to, limit, offset)
}

// SaveTarget upserts a named attendance zone. Radius must be positive.
func (s *Service) SaveTarget(ctx context.Context, target verify.Target) error {
	if target.Name == "" {
		return errors.New("location name required")
	}
	if target.RadiusMeters <= 0 {
		return errors.New("radius must be positive")
	}
	return s.repo.UpsertTargetLocation(ctx, target)
}

// Targets lists all registered attendance zones.
func (s *Service) Targets(ctx context.Context) ([]verify.Target, error) {
	return s.repo.ListTargetLocations(ctx)
}

func validDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %v", err)
	}
	return nil
}
