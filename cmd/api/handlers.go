package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"geoattend/internal/attendance"
	"geoattend/internal/auth"
	"geoattend/internal/config"
	"geoattend/internal/directory"
	"geoattend/internal/location"
	"geoattend/internal/queue"
	"geoattend/internal/scan"
	"geoattend/internal/session"
	"geoattend/internal/verify"
)

type server struct {
	cfg config.App
	att *attendance.Service
	dir *directory.Client
	q   queue.Queue

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// sessionFor returns the per-user session arena, creating it on first use.
func (s *server) sessionFor(user directory.User) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions == nil {
		s.sessions = make(map[string]*session.Session)
	}
	if sess, ok := s.sessions[user.ID]; ok {
		return sess
	}
	sess := session.New(user)
	s.sessions[user.ID] = sess
	return sess
}

func (s *server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		DeviceID string `json:"device_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.dir.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if user.Role != "student" && user.Role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not authorized to use this app"})
		return
	}

	bindingOutcome := ""
	if user.Role == "student" {
		if req.DeviceID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "device_id required for student login"})
			return
		}
		student, err := s.dir.StudentByUserID(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "directory unavailable"})
			return
		}
		outcome, err := session.ReconcileDeviceBinding(c.Request.Context(), s.dir, student, user.Email, req.DeviceID)
		if err != nil {
			if errors.Is(err, session.ErrNoStudentRecord) {
				c.JSON(http.StatusForbidden, gin.H{"error": "no student record for this account"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "device binding check failed"})
			return
		}
		if outcome.Rejects() {
			msg := "this device is linked to a different student account"
			if outcome == session.AccountBoundElsewhere {
				msg = "this account is already linked to a different device"
			}
			c.JSON(http.StatusForbidden, gin.H{"error": msg, "binding": outcome.String()})
			return
		}
		bindingOutcome = outcome.String()
	}

	s.sessionFor(user)

	tokens, err := auth.Issue(user.ID, user.Role, user.Email, s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.AccessTTL, s.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
		"binding":       bindingOutcome,
	})
}

type fixBody struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`
}

func (s *server) handleScan(c *gin.Context) {
	var req struct {
		Payload   string   `json:"payload" binding:"required"`
		SessionID string   `json:"session_id"`
		Fix       *fixBody `json:"fix"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, _ := auth.FromContext(c)
	studentID := claims.Subject
	sess := s.sessionFor(directory.User{ID: claims.Subject, Email: claims.Email, Role: claims.Role})
	if student, err := sess.Student(c.Request.Context(), s.dir); err == nil && student != nil {
		studentID = student.ID
	}

	// The device reports its fix; the flow sees it through a provider so
	// a missing fix takes the same no-location path a sensor failure would.
	provider := location.NewStatic(location.Fix{})
	if req.Fix != nil {
		provider.SetFix(location.Fix{
			Latitude:  req.Fix.Latitude,
			Longitude: req.Fix.Longitude,
			Accuracy:  req.Fix.Accuracy,
			Timestamp: req.Fix.Timestamp,
		})
	} else {
		provider.SetPermission(location.PermissionDenied, false)
	}

	flow := scan.New(provider, s.att, scan.WithAcquireOptions(location.Options{
		Accuracy: location.AccuracyHigh,
		Timeout:  s.cfg.FixTimeout,
	}))
	res := flow.Scan(c.Request.Context(), studentID, req.SessionID, req.Payload)

	s.publishAudit(c, studentID, res)
	writeScanResult(c, res)
}

func (s *server) publishAudit(c *gin.Context, studentID string, res scan.Result) {
	entry := attendance.AuditEntry{
		StudentID: studentID,
		Outcome:   res.State.String(),
	}
	if res.Claim != nil {
		entry.CourseID = res.Claim.CourseID
	}
	if res.Verdict != nil {
		d := res.Verdict.DistanceMeters
		entry.DistanceMeters = &d
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := s.q.Publish(c.Request.Context(), queue.Message{Type: "scan", Body: body}); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}

func writeScanResult(c *gin.Context, res scan.Result) {
	switch res.State {
	case scan.StateAdmitted:
		if res.Err != nil {
			// Admitted but the store write failed; never report success.
			c.JSON(http.StatusBadGateway, gin.H{
				"status":  "commit_failed",
				"error":   "attendance could not be saved, please try again",
				"verdict": res.Verdict,
			})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "admitted", "verdict": res.Verdict})
	case scan.StateRejectedParse:
		c.JSON(http.StatusBadRequest, gin.H{"status": "rejected_parse", "error": "this QR code is not valid, scan a valid attendance code"})
	case scan.StateRejectedExpired:
		c.JSON(http.StatusGone, gin.H{"status": "rejected_expired", "error": "this QR code has expired, ask your teacher for a new one"})
	case scan.StateRejectedNoLocation:
		msg := "unable to get your location, ensure location services are enabled"
		if errors.Is(res.Err, location.ErrPermissionDenied) {
			msg = "location permission is required to verify attendance"
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "rejected_no_location", "error": msg})
	case scan.StateRejectedOutOfRange:
		c.JSON(http.StatusForbidden, gin.H{
			"status":  "rejected_out_of_range",
			"error":   "you are too far from the class location",
			"verdict": res.Verdict,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": res.State.String()})
	}
}

func (s *server) handleListAttendance(c *gin.Context) {
	studentID := c.Query("student_id")
	claims, _ := auth.FromContext(c)
	if claims.Role == "student" {
		// Students only see their own calendar.
		sess := s.sessionFor(directory.User{ID: claims.Subject, Email: claims.Email, Role: claims.Role})
		student, err := sess.Student(c.Request.Context(), s.dir)
		if err != nil || student == nil {
			studentID = claims.Subject
		} else {
			studentID = student.ID
		}
	}
	limit, offset := intQuery(c, "limit", 100), intQuery(c, "offset", 0)
	records, err := s.att.List(c.Request.Context(), studentID, c.Query("from"), c.Query("to"), limit, offset)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *server) handleManualMark(c *gin.Context) {
	var req struct {
		StudentIDs []string `json:"student_ids" binding:"required"`
		CourseID   string   `json:"course_id" binding:"required"`
		Date       string   `json:"date" binding:"required"`
		SessionID  string   `json:"session_id"`
		Latitude   *float64 `json:"latitude"`
		Longitude  *float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	marked, err := s.att.CommitManual(c.Request.Context(), req.StudentIDs, req.CourseID, req.Date, req.SessionID, req.Latitude, req.Longitude)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "marked": marked})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"marked": marked})
}

func (s *server) handleListLocations(c *gin.Context) {
	targets, err := s.att.Targets(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": targets})
}

func (s *server) handleSaveLocation(c *gin.Context) {
	var target verify.Target
	if err := c.ShouldBindJSON(&target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.att.SaveTarget(c.Request.Context(), target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": target.Name})
}

func (s *server) handleProfile(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	sess := s.sessionFor(directory.User{ID: claims.Subject, Email: claims.Email, Role: claims.Role})
	student, err := sess.Student(c.Request.Context(), s.dir)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "directory unavailable"})
		return
	}
	if student == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no student record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}

func (s *server) handleCourses(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	sess := s.sessionFor(directory.User{ID: claims.Subject, Email: claims.Email, Role: claims.Role})
	courses, err := sess.Courses(c.Request.Context(), s.dir)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "directory unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
