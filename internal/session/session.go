package session

import (
	"context"
	"log"
	"sync"

	"geoattend/internal/directory"
)

// Resource names a cached remote collection in a session.
type Resource string

const (
	ResourceStudent    Resource = "student"
	ResourceCourses    Resource = "courses"
	ResourceAttendance Resource = "attendance"
)

// DataDirectory is the slice of the document directory a session reads.
type DataDirectory interface {
	StudentByUserID(ctx context.Context, userID string) (*directory.Student, error)
	Courses(ctx context.Context) ([]directory.Course, error)
	AttendanceByStudent(ctx context.Context, studentID string) ([]directory.AttendanceDoc, error)
}

// Session carries the authenticated user and the per-session document cache.
// It is passed explicitly to whatever needs it; there is no ambient state.
// Each resource has an in-flight marker so concurrent refresh calls collapse
// into one fetch instead of duplicating requests.
type Session struct {
	User directory.User

	mu         sync.Mutex
	inflight   map[Resource]bool
	student    *directory.Student
	courses    []directory.Course
	attendance []directory.AttendanceDoc
}

// New opens a session for an authenticated user.
func New(user directory.User) *Session {
	return &Session{
		User:     user,
		inflight: make(map[Resource]bool),
	}
}

// tryBegin marks a resource fetch in flight. False means another fetch for
// the same resource is already running.
func (s *Session) tryBegin(r Resource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[r] {
		return false
	}
	s.inflight[r] = true
	return true
}

func (s *Session) end(r Resource) {
	s.mu.Lock()
	s.inflight[r] = false
	s.mu.Unlock()
}

// Fetching reports whether a fetch for the resource is in flight.
func (s *Session) Fetching(r Resource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[r]
}

// Student returns the cached student record, refreshing it from the
// directory unless a refresh is already running.
func (s *Session) Student(ctx context.Context, dir DataDirectory) (*directory.Student, error) {
	if !s.tryBegin(ResourceStudent) {
		return s.CachedStudent(), nil
	}
	defer s.end(ResourceStudent)

	student, err := dir.StudentByUserID(ctx, s.User.ID)
	if err != nil {
		log.Printf("session: student fetch failed for %s: %v", s.User.ID, err)
		return nil, err
	}
	s.mu.Lock()
	s.student = student
	s.mu.Unlock()
	return student, nil
}

// Courses returns the course catalog, refreshing unless already in flight.
func (s *Session) Courses(ctx context.Context, dir DataDirectory) ([]directory.Course, error) {
	if !s.tryBegin(ResourceCourses) {
		return s.CachedCourses(), nil
	}
	defer s.end(ResourceCourses)

	courses, err := dir.Courses(ctx)
	if err != nil {
		log.Printf("session: course fetch failed: %v", err)
		return nil, err
	}
	s.mu.Lock()
	s.courses = courses
	s.mu.Unlock()
	return courses, nil
}

// Attendance returns the student's remote attendance documents, refreshing
// unless already in flight. It requires a resolved student record.
func (s *Session) Attendance(ctx context.Context, dir DataDirectory) ([]directory.AttendanceDoc, error) {
	student := s.CachedStudent()
	if student == nil {
		var err error
		student, err = s.Student(ctx, dir)
		if err != nil {
			return nil, err
		}
		if student == nil {
			return nil, ErrNoStudentRecord
		}
	}
	if !s.tryBegin(ResourceAttendance) {
		return s.CachedAttendance(), nil
	}
	defer s.end(ResourceAttendance)

	records, err := dir.AttendanceByStudent(ctx, student.ID)
	if err != nil {
		log.Printf("session: attendance fetch failed for %s: %v", student.ID, err)
		return nil, err
	}
	s.mu.Lock()
	s.attendance = records
	s.mu.Unlock()
	return records, nil
}

// CachedStudent returns the cached student record without fetching.
func (s *Session) CachedStudent() *directory.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.student
}

// CachedCourses returns the cached catalog without fetching.
func (s *Session) CachedCourses() []directory.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.courses
}

// CachedAttendance returns the cached records without fetching.
func (s *Session) CachedAttendance() []directory.AttendanceDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attendance
}
