package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"tutorfinder/internal/models"
)

// ErrBackend marks network failures and 5xx answers.
var ErrBackend = errors.New("backend unavailable")

// APIError is a non-2xx answer carrying the server's {error} message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap makes server-side failures match ErrBackend.
func (e *APIError) Unwrap() error {
	if e.Status >= fiber.StatusInternalServerError {
		return ErrBackend
	}
	return nil
}

// ProviderDraft is the create/update payload of a provider listing.
type ProviderDraft struct {
	ID            string   `json:"id,omitempty"`
	OwnerID       *string  `json:"ownerId,omitempty"`
	Name          string   `json:"name"`
	Qualification string   `json:"qualification"`
	Experience    string   `json:"experience"`
	Service       string   `json:"service"`
	Fees          string   `json:"fees"`
	Timing        string   `json:"timing"`
	Phone         string   `json:"phone"`
	Address       string   `json:"address"`
	Description   string   `json:"description"`
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
	Image         string   `json:"image"`
}

// ReviewRequest is the payload of a review submission.
type ReviewRequest struct {
	ProviderID string `json:"providerId"`
	User       string `json:"user"`
	Rating     int    `json:"rating"`
	Text       string `json:"text"`
}

// Counts is the admin dashboard summary.
type Counts struct {
	TotalUsers     int64 `json:"totalUsers"`
	TotalProviders int64 `json:"totalProviders"`
}

// RecordSummary is one row of an admin list. Users carry Username and Role,
// providers Name and Service.
type RecordSummary struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	Name     string `json:"name,omitempty"`
	Service  string `json:"service,omitempty"`
}

// Client talks to the directory API with fiber's HTTP agent.
type Client struct {
	baseURL string
	timeout time.Duration
}

// NewClient creates a Client for the server at baseURL (for example http://localhost:8080).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

// FetchProviders implements Source.
func (c *Client) FetchProviders(ctx context.Context) ([]RawProvider, error) {
	var providers []RawProvider
	if err := c.do(ctx, fiber.MethodGet, "/api/providers", nil, nil, &providers); err != nil {
		return nil, err
	}
	return providers, nil
}

type authRequest struct {
	Action   string      `json:"action"`
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     models.Role `json:"role,omitempty"`
}

// Login checks credentials and returns the session to remember.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var session Session
	err := c.do(ctx, fiber.MethodPost, "/api/auth", nil,
		authRequest{Action: "login", Username: username, Password: password}, &session)
	return session, err
}

// Register creates an account and returns its session.
func (c *Client) Register(ctx context.Context, username, password string, role models.Role) (Session, error) {
	var session Session
	err := c.do(ctx, fiber.MethodPost, "/api/auth", nil,
		authRequest{Action: "register", Username: username, Password: password, Role: role}, &session)
	return session, err
}

// ResetPassword replaces the password of username.
func (c *Client) ResetPassword(ctx context.Context, username, newPassword string) error {
	return c.do(ctx, fiber.MethodPost, "/api/auth", nil,
		authRequest{Action: "reset-password", Username: username, Password: newPassword}, nil)
}

// SubmitReview posts a review and returns the provider's new rating.
func (c *Client) SubmitReview(ctx context.Context, review ReviewRequest) (float64, error) {
	var res struct {
		NewRating Number `json:"newRating"`
	}
	if err := c.do(ctx, fiber.MethodPost, "/api/reviews", nil, review, &res); err != nil {
		return 0, err
	}
	return res.NewRating.Or(0), nil
}

// CreateProvider creates a listing and returns its id.
func (c *Client) CreateProvider(ctx context.Context, draft ProviderDraft) (string, error) {
	var created RawProvider
	if err := c.do(ctx, fiber.MethodPost, "/api/providers", nil, draft, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// UpdateProvider replaces a listing. An empty image keeps the stored one.
func (c *Client) UpdateProvider(ctx context.Context, draft ProviderDraft) error {
	return c.do(ctx, fiber.MethodPut, "/api/providers", nil, draft, nil)
}

// DeleteProvider removes a listing and its reviews.
func (c *Client) DeleteProvider(ctx context.Context, id string) error {
	return c.do(ctx, fiber.MethodDelete, "/api/providers", nil, map[string]string{"id": id}, nil)
}

// Counts returns the number of users and providers.
func (c *Client) Counts(ctx context.Context) (Counts, error) {
	var counts Counts
	err := c.do(ctx, fiber.MethodGet, "/api/stats", nil, nil, &counts)
	return counts, err
}

// ListRecords returns the admin list of recordType ("users" or "providers").
func (c *Client) ListRecords(ctx context.Context, recordType string) ([]RecordSummary, error) {
	var records []RecordSummary
	query := url.Values{"type": []string{recordType}}
	if err := c.do(ctx, fiber.MethodGet, "/api/stats", query, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteRecord deletes a user or provider through the admin endpoint.
func (c *Client) DeleteRecord(ctx context.Context, recordType, id string) error {
	return c.do(ctx, fiber.MethodDelete, "/api/stats", nil, map[string]string{"type": recordType, "id": id}, nil)
}

// do sends one request. The context deadline, when sooner, replaces the
// client timeout since the agent cannot be cancelled mid-flight.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			if left <= 0 {
				return context.DeadlineExceeded
			}
			timeout = left
		}
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if len(query) > 0 {
		agent.QueryString(query.Encode())
	}
	if body != nil {
		agent.JSON(body)
	}
	agent.Timeout(timeout)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("%w: %s %s: %w", ErrBackend, method, path, err)
	}

	code, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s %s: %w", ErrBackend, method, path, errors.Join(errs...))
	}

	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		apiErr := &APIError{Status: code, Message: fiber.ErrInternalServerError.Message}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		} else if len(respBody) > 0 {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", ErrBackend, method, path, err)
	}
	return nil
}
