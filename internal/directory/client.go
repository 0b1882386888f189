package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Collection names in the remote document store.
const (
	colStudents   = "students"
	colCourses    = "courses"
	colAttendance = "attendance"
	colBindings   = "device_bindings"
)

// Client talks to the remote user-directory and document store over HTTP.
// All responses pass through the normalization boundary before use.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// New creates a directory client with a bounded request timeout.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

// APIError is a non-2xx response from the directory service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory: status %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Message}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type listResponse struct {
	Total     int        `json:"total"`
	Documents []Document `json:"documents"`
}

func (c *Client) listDocuments(ctx context.Context, collection string, filters map[string]string) ([]Document, error) {
	path := "/v1/collections/" + collection + "/documents"
	if len(filters) > 0 {
		q := url.Values{}
		for k, v := range filters {
			q.Set(k, v)
		}
		path += "?" + q.Encode()
	}
	var res listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Documents, nil
}

func (c *Client) createDocument(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	var doc Document
	err := c.do(ctx, http.MethodPost, "/v1/collections/"+collection+"/documents", fields, &doc)
	return doc, err
}

func (c *Client) updateDocument(ctx context.Context, collection, id string, fields map[string]any) error {
	return c.do(ctx, http.MethodPatch, "/v1/collections/"+collection+"/documents/"+id, fields, nil)
}

// Login authenticates email/password against the session service and returns
// the canonical user.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var doc Document
	err := c.do(ctx, http.MethodPost, "/v1/sessions", map[string]string{
		"email":    email,
		"password": password,
	}, &doc)
	if err != nil {
		return User{}, err
	}
	return User{
		ID:    doc.str("$id", "id", "userId"),
		Email: doc.str("email", "Email"),
		Name:  doc.str("name", "Name"),
		Role:  doc.str("role", "Role"),
	}, nil
}

// StudentByUserID returns the student record linked to an account, or nil.
func (c *Client) StudentByUserID(ctx context.Context, userID string) (*Student, error) {
	docs, err := c.listDocuments(ctx, colStudents, map[string]string{"userId": userID})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	student := NormalizeStudent(docs[0])
	return &student, nil
}

// Courses lists the course catalog.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	docs, err := c.listDocuments(ctx, colCourses, nil)
	if err != nil {
		return nil, err
	}
	courses := make([]Course, 0, len(docs))
	for _, d := range docs {
		courses = append(courses, NormalizeCourse(d))
	}
	return courses, nil
}

// AttendanceByStudent lists remote attendance documents for one student.
func (c *Client) AttendanceByStudent(ctx context.Context, studentID string) ([]AttendanceDoc, error) {
	docs, err := c.listDocuments(ctx, colAttendance, map[string]string{"studentId": studentID})
	if err != nil {
		return nil, err
	}
	records := make([]AttendanceDoc, 0, len(docs))
	for _, d := range docs {
		records = append(records, NormalizeAttendance(d))
	}
	return records, nil
}

// BindingByDeviceUUID returns the binding row for a device, or nil.
func (c *Client) BindingByDeviceUUID(ctx context.Context, deviceUUID string) (*DeviceBinding, error) {
	docs, err := c.listDocuments(ctx, colBindings, map[string]string{"deviceUUID": deviceUUID})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	binding := NormalizeBinding(docs[0])
	return &binding, nil
}

// CreateBinding registers a device for an account's email.
func (c *Client) CreateBinding(ctx context.Context, deviceUUID, email string) (DeviceBinding, error) {
	doc, err := c.createDocument(ctx, colBindings, map[string]any{
		"deviceUUID": deviceUUID,
		"email":      email,
	})
	if err != nil {
		return DeviceBinding{}, err
	}
	return NormalizeBinding(doc), nil
}

// LinkBinding points a student record at a device binding.
func (c *Client) LinkBinding(ctx context.Context, studentDocID, bindingID string) error {
	return c.updateDocument(ctx, colStudents, studentDocID, map[string]any{
		"deviceBindingId": bindingID,
	})
}
