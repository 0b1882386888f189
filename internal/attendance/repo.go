package attendance

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"geoattend/internal/verify"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertRecord writes an attendance record. The unique key
// (student_id, course_id, date, session_id) absorbs duplicate commits;
// inserted reports whether a new row landed.
func (r *Repository) InsertRecord(ctx context.Context, rec Record) (Record, bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.MarkedAt.IsZero() {
		rec.MarkedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, student_id, course_id, date, status, session_id, latitude, longitude, marked_by, marked_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (student_id, course_id, date, session_id) DO NOTHING
	`, rec.ID, rec.StudentID, rec.CourseID, rec.Date, rec.Status, rec.SessionID, rec.Latitude, rec.Longitude, rec.MarkedBy, rec.MarkedAt)
	if err != nil {
		return Record{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Record{}, false, err
	}
	return rec, n > 0, nil
}

// ListRecords returns records filtered by student and inclusive date range.
func (r *Repository) ListRecords(ctx context.Context, studentID, from, to string, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, student_id, course_id, date, status, session_id, latitude, longitude, marked_by, marked_at, created_at FROM attendance_records`
	args := []any{}
	clauses := []string{}
	if studentID != "" {
		args = append(args, studentID)
		clauses = append(clauses, "student_id = $"+strconv.Itoa(len(args)))
	}
	if from != "" {
		args = append(args, from)
		clauses = append(clauses, "date >= $"+strconv.Itoa(len(args)))
	}
	if to != "" {
		args = append(args, to)
		clauses = append(clauses, "date <= $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date DESC, marked_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.CourseID, &rec.Date, &rec.Status, &rec.SessionID, &rec.Latitude, &rec.Longitude, &rec.MarkedBy, &rec.MarkedAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// UpsertTargetLocation creates or updates a named attendance zone.
func (r *Repository) UpsertTargetLocation(ctx context.Context, target verify.Target) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO target_locations (name, latitude, longitude, radius_meters)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			radius_meters = EXCLUDED.radius_meters,
			updated_at = NOW()
	`, target.Name, target.Latitude, target.Longitude, target.RadiusMeters)
	return err
}

// GetTargetLocation returns a zone by name, or nil when absent.
func (r *Repository) GetTargetLocation(ctx context.Context, name string) (*verify.Target, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, latitude, longitude, radius_meters
		FROM target_locations WHERE name = $1
	`, name)
	var t verify.Target
	if err := row.Scan(&t.Name, &t.Latitude, &t.Longitude, &t.RadiusMeters); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// ListTargetLocations returns all zones ordered by name.
func (r *Repository) ListTargetLocations(ctx context.Context) ([]verify.Target, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, latitude, longitude, radius_meters
		FROM target_locations ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []verify.Target
	for rows.Next() {
		var t verify.Target
		if err := rows.Scan(&t.Name, &t.Latitude, &t.Longitude, &t.RadiusMeters); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// AuditEntry is one terminal scan outcome kept for diagnostics.
type AuditEntry struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	CourseID       string    `json:"course_id"`
	Outcome        string    `json:"outcome"`
	DistanceMeters *int      `json:"distance_meters,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// InsertScanAudit appends a scan outcome to the audit trail.
func (r *Repository) InsertScanAudit(ctx context.Context, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_audit (id, student_id, course_id, outcome, distance_meters, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, entry.ID, entry.StudentID, entry.CourseID, entry.Outcome, entry.DistanceMeters, entry.OccurredAt)
	return err
}
