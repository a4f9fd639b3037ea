package dockwisesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Dockwise HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// User represents an account.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// Dock represents a loading dock.
type Dock struct {
	ID        string   `json:"id"`
	Number    int      `json:"number"`
	TypeID    int      `json:"type_id"`
	StateCode string   `json:"state_code"`
	Capacity  *float64 `json:"capacity,omitempty"`
	Location  string   `json:"location,omitempty"`
	Active    bool     `json:"active"`
}

// Reservation represents a time-boxed dock booking.
type Reservation struct {
	ID           string  `json:"id"`
	DockID       string  `json:"dock_id"`
	UserID       string  `json:"user_id"`
	WindowStart  string  `json:"window_start"`
	WindowEnd    string  `json:"window_end"`
	Status       string  `json:"status"`
	VehiclePlate *string `json:"vehicle_plate,omitempty"`
	DriverName   *string `json:"driver_name,omitempty"`
	CancelReason *string `json:"cancel_reason,omitempty"`
}

// Maintenance represents a scheduled maintenance window.
type Maintenance struct {
	ID             string `json:"id"`
	DockID         string `json:"dock_id"`
	Kind           string `json:"kind"`
	Description    string `json:"description"`
	ScheduledStart string `json:"scheduled_start"`
	ScheduledEnd   string `json:"scheduled_end"`
	Status         string `json:"status"`
}

// Incident represents a reported incident.
type Incident struct {
	ID          string  `json:"id"`
	DockID      *string `json:"dock_id,omitempty"`
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Severity    string  `json:"severity"`
	Status      string  `json:"status"`
}

// Availability reports whether a dock can take a window.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Event represents an audit log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// Login authenticates and stores the bearer token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return User{}, err
	}
	c.BearerToken = resp.AccessToken
	return resp.User, nil
}

// Me returns the authenticated account.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodGet, "auth/me", nil, &resp)
	return resp, err
}

// CreateDock registers a dock.
func (c *Client) CreateDock(ctx context.Context, number, typeID int, location string) (Dock, error) {
	body := map[string]any{
		"number":   number,
		"type_id":  typeID,
		"location": location,
	}
	var resp Dock
	err := c.do(ctx, http.MethodPost, "docks", body, &resp)
	return resp, err
}

// Docks lists docks, optionally filtered by state code.
func (c *Client) Docks(ctx context.Context, state string) ([]Dock, error) {
	endpoint := "docks"
	if state != "" {
		endpoint = fmt.Sprintf("docks?state=%s", url.QueryEscape(state))
	}
	var resp []Dock
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Availability checks whether a dock is free for a window.
func (c *Client) Availability(ctx context.Context, dockID string, start, end time.Time) (Availability, error) {
	endpoint := fmt.Sprintf("docks/%s/availability?start=%s&end=%s",
		url.PathEscape(dockID),
		url.QueryEscape(start.UTC().Format(time.RFC3339)),
		url.QueryEscape(end.UTC().Format(time.RFC3339)))
	var resp Availability
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CreateReservation books a dock for a window.
func (c *Client) CreateReservation(ctx context.Context, dockID string, start, end time.Time) (Reservation, error) {
	body := map[string]any{
		"dock_id":      dockID,
		"window_start": start.UTC().Format(time.RFC3339),
		"window_end":   end.UTC().Format(time.RFC3339),
	}
	var resp Reservation
	err := c.do(ctx, http.MethodPost, "reservations", body, &resp)
	return resp, err
}

// Reservations lists reservations visible to the caller.
func (c *Client) Reservations(ctx context.Context, status string) ([]Reservation, error) {
	endpoint := "reservations"
	if status != "" {
		endpoint = fmt.Sprintf("reservations?status=%s", url.QueryEscape(status))
	}
	var resp []Reservation
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CancelReservation cancels a reservation before its window starts.
// A reason is required by the server.
func (c *Client) CancelReservation(ctx context.Context, id, reason string) (Reservation, error) {
	body := map[string]any{"reason": reason}
	var resp Reservation
	endpoint := fmt.Sprintf("reservations/%s/cancel", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// CompleteReservation marks a reservation done and frees the dock.
func (c *Client) CompleteReservation(ctx context.Context, id string) (Reservation, error) {
	var resp Reservation
	endpoint := fmt.Sprintf("reservations/%s/complete", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{}, &resp)
	return resp, err
}

// CreateMaintenance schedules maintenance on a dock.
func (c *Client) CreateMaintenance(ctx context.Context, dockID, kind, description string, start, end time.Time) (Maintenance, error) {
	body := map[string]any{
		"dock_id":         dockID,
		"kind":            kind,
		"description":     description,
		"scheduled_start": start.UTC().Format(time.RFC3339),
		"scheduled_end":   end.UTC().Format(time.RFC3339),
	}
	var resp Maintenance
	err := c.do(ctx, http.MethodPost, "maintenances", body, &resp)
	return resp, err
}

// ReportIncident files an incident.
func (c *Client) ReportIncident(ctx context.Context, dockID, kind, description, severity string) (Incident, error) {
	body := map[string]any{
		"kind":        kind,
		"description": description,
		"severity":    severity,
	}
	if dockID != "" {
		body["dock_id"] = dockID
	}
	var resp Incident
	err := c.do(ctx, http.MethodPost, "incidents", body, &resp)
	return resp, err
}

// Events returns recent audit events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("events?limit=%d", limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// base returns the configured base URL including the API version prefix.
func (c *Client) base() string {
	b := strings.TrimRight(c.BaseURL, "/")
	if !strings.HasSuffix(b, "/v1") {
		b += "/v1"
	}
	return b
}
