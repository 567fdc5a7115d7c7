// Package client is a typed HTTP client for the adventcal service. Requests are authenticated
// with the token of the signed-in identity of an auth.Session.
package client

import (
	"adventcal/auth"
	"adventcal/models"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotSignedIn is returned by every call made while the session is signed out.
var ErrNotSignedIn = errors.New("not signed in")

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("adventcal: %d %s", e.StatusCode, e.Message)
}

// ListOptions filters GET /calendars. Zero values use the server defaults.
type ListOptions struct {
	Scope        string
	ContentQuery []string
	SortBy       string
	Order        string
	Page         int
	Limit        int
}

// Client calls the HTTP service on behalf of a session.
type Client struct {
	http    *resty.Client
	session *auth.Session
}

// New creates a client for the service at baseURL.
func New(baseURL string, session *auth.Session) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	return &Client{http: c, session: session}
}

// request starts an authenticated request.
func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	id := c.session.CurrentUser()
	if id == nil {
		return nil, ErrNotSignedIn
	}
	return c.http.R().
		SetContext(ctx).
		SetAuthToken(id.Token).
		SetError(&APIError{}), nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("adventcal request: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr.Message == "" {
		apiErr = &APIError{Message: http.StatusText(resp.StatusCode())}
	}
	apiErr.StatusCode = resp.StatusCode()
	return apiErr
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// --- Users ---

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var user models.User
	req, err := c.request(ctx)
	if err != nil {
		return user, err
	}
	resp, err := req.SetResult(&user).Get("/users/me")
	return user, check(resp, err)
}

// SetDisplayName sets the display name; nil clears it.
func (c *Client) SetDisplayName(ctx context.Context, name *string) (models.User, error) {
	var user models.User
	req, err := c.request(ctx)
	if err != nil {
		return user, err
	}
	resp, err := req.SetBody(models.UpdateUserRequest{DisplayName: name}).SetResult(&user).Put("/users/me")
	return user, check(resp, err)
}

// --- Calendars ---

// CreateCalendar creates a calendar with 24 empty doors.
func (c *Client) CreateCalendar(ctx context.Context, recipientName, recipientInterest string) (models.Calendar, error) {
	var cal models.Calendar
	req, err := c.request(ctx)
	if err != nil {
		return cal, err
	}
	resp, err := req.
		SetBody(models.CreateCalendarRequest{RecipientName: recipientName, RecipientInterest: recipientInterest}).
		SetResult(&cal).
		Post("/calendars")
	return cal, check(resp, err)
}

// GetCalendar returns a calendar; received calendars come back redacted.
func (c *Client) GetCalendar(ctx context.Context, id string) (models.Calendar, error) {
	var cal models.Calendar
	req, err := c.request(ctx)
	if err != nil {
		return cal, err
	}
	resp, err := req.SetResult(&cal).SetPathParam("id", id).Get("/calendars/{id}")
	return cal, check(resp, err)
}

// ListCalendars returns one page of calendars.
func (c *Client) ListCalendars(ctx context.Context, opts ListOptions) (models.CalendarListResponse, error) {
	var out models.CalendarListResponse
	req, err := c.request(ctx)
	if err != nil {
		return out, err
	}

	q := url.Values{}
	if opts.Scope != "" {
		q.Set("scope", opts.Scope)
	}
	for _, part := range opts.ContentQuery {
		q.Add("content_query", part)
	}
	if opts.SortBy != "" {
		q.Set("sort_by", opts.SortBy)
	}
	if opts.Order != "" {
		q.Set("order", opts.Order)
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	resp, err := req.SetQueryParamsFromValues(q).SetResult(&out).Get("/calendars")
	return out, check(resp, err)
}

// ShareCalendar adds the calendar to recipientUID's received list.
func (c *Client) ShareCalendar(ctx context.Context, id, recipientUID string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	return check(req.
		SetPathParams(map[string]string{"id": id, "uid": recipientUID}).
		Put("/calendars/{id}/recipients/{uid}"))
}

// DeleteCalendar deletes a calendar the caller created.
func (c *Client) DeleteCalendar(ctx context.Context, id string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	return check(req.SetPathParam("id", id).Delete("/calendars/{id}"))
}

// --- Doors ---

// GetDoor returns one door.
func (c *Client) GetDoor(ctx context.Context, id string, day int) (models.Door, error) {
	var door models.Door
	req, err := c.request(ctx)
	if err != nil {
		return door, err
	}
	resp, err := req.
		SetPathParams(map[string]string{"id": id, "day": strconv.Itoa(day)}).
		SetResult(&door).
		Get("/calendars/{id}/doors/{day}")
	return door, check(resp, err)
}

// SetDoor replaces the content of a door.
func (c *Client) SetDoor(ctx context.Context, id string, day int, content models.UpdateDoorRequest) (models.Door, error) {
	var door models.Door
	req, err := c.request(ctx)
	if err != nil {
		return door, err
	}
	resp, err := req.
		SetPathParams(map[string]string{"id": id, "day": strconv.Itoa(day)}).
		SetBody(content).
		SetResult(&door).
		Put("/calendars/{id}/doors/{day}")
	return door, check(resp, err)
}

// UnlockDoor opens a door of a received calendar.
func (c *Client) UnlockDoor(ctx context.Context, id string, day int) (models.Door, error) {
	var door models.Door
	req, err := c.request(ctx)
	if err != nil {
		return door, err
	}
	resp, err := req.
		SetPathParams(map[string]string{"id": id, "day": strconv.Itoa(day)}).
		SetResult(&door).
		Post("/calendars/{id}/doors/{day}/unlock")
	return door, check(resp, err)
}
