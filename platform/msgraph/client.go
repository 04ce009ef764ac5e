// Package msgraph wraps the Microsoft Graph API for the Azure
// integration: Outlook mail and calendar for one authenticated session.
package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teamlenshq/teamlens/internal"
)

// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// DefaultLimit is the page size used when none is given.
const DefaultLimit = 10

// Client calls Microsoft Graph with a session's bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) ClientOption {
	return func(client *Client) {
		client.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = l
	}
}

// NewClient creates a Graph client for the given token.
func NewClient(token string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL: DefaultBaseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.httpClient = internal.BearerClient(client.httpClient, token)
	return client
}

// get issues one GET against a Graph path and decodes the response.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %d %s", operation, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", operation, err)
	}
	return nil
}

// EmailAddress is a named address in a message.
type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Recipient wraps an email address as Graph nests it.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// Message is one Outlook message.
type Message struct {
	ID               string      `json:"id"`
	Subject          string      `json:"subject"`
	From             Recipient   `json:"from"`
	ToRecipients     []Recipient `json:"toRecipients"`
	ReceivedDateTime string      `json:"receivedDateTime"`
	Importance       string      `json:"importance"`
	IsRead           bool        `json:"isRead"`
	BodyPreview      string      `json:"bodyPreview"`
}

// messageList is Graph's collection envelope for messages.
type messageList struct {
	Value []Message `json:"value"`
}

const messageSelect = "id,subject,from,toRecipients,receivedDateTime,importance,isRead,bodyPreview"

// SearchEmail searches the user's mail. An empty query returns the
// latest messages ordered by receive time; Graph's $search covers
// subject, body, and sender together.
func (c *Client) SearchEmail(ctx context.Context, query string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("$top", strconv.Itoa(limit))
	params.Set("$select", messageSelect)
	if query != "" {
		params.Set("$search", strconv.Quote(query))
	} else {
		params.Set("$orderby", "receivedDateTime desc")
	}

	var list messageList
	if err := c.get(ctx, "searching email", "/me/messages", params, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// LatestEmail returns messages received within the lookback window,
// newest first.
func (c *Client) LatestEmail(ctx context.Context, since time.Time, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("$top", strconv.Itoa(limit))
	params.Set("$select", messageSelect)
	params.Set("$filter", "receivedDateTime ge "+since.UTC().Format(time.RFC3339))
	params.Set("$orderby", "receivedDateTime desc")

	var list messageList
	if err := c.get(ctx, "fetching latest email", "/me/messages", params, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// DateTimeZone is a Graph date-time with its time zone.
type DateTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Attendee is one event attendee.
type Attendee struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// Event is one calendar event.
type Event struct {
	ID       string       `json:"id"`
	Subject  string       `json:"subject"`
	Start    DateTimeZone `json:"start"`
	End      DateTimeZone `json:"end"`
	Location struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	Attendees   []Attendee `json:"attendees"`
	Organizer   Recipient  `json:"organizer"`
	Importance  string     `json:"importance"`
	BodyPreview string     `json:"bodyPreview"`
}

type eventList struct {
	Value []Event `json:"value"`
}

// CalendarOptions are the parameters of a calendar view fetch. A zero
// Start/End falls back to a window from now to now plus seven days.
type CalendarOptions struct {
	Start time.Time
	End   time.Time
	Limit int
}

// CalendarEvents returns events within the window, ordered by start.
func (c *Client) CalendarEvents(ctx context.Context, opts CalendarOptions) ([]Event, error) {
	start, end := opts.Start, opts.End
	if start.IsZero() {
		start = time.Now()
	}
	if end.IsZero() {
		end = start.Add(7 * 24 * time.Hour)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("startDateTime", start.UTC().Format(time.RFC3339))
	params.Set("endDateTime", end.UTC().Format(time.RFC3339))
	params.Set("$top", strconv.Itoa(limit))
	params.Set("$orderby", "start/dateTime")

	var list eventList
	if err := c.get(ctx, "fetching calendar events", "/me/calendarView", params, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}
