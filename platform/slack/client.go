// Package slack wraps the Slack Web API for one authenticated session.
package slack

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

// DefaultBaseURL is the Slack Web API endpoint.
const DefaultBaseURL = "https://slack.com/api"

// Client calls the Slack Web API with a session's bearer token. It is
// constructed per session and not shared across users.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client, typically one with
// retry and timeout policy attached.
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

// NewClient creates a Slack client for the given token.
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

// apiEnvelope is the portion of every Slack response used for error
// detection: Slack reports failures as HTTP 200 with ok=false.
type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// get issues one GET to a Slack Web API method and decodes the response
// into out. Failures of any kind come back as an error prefixed with the
// method name; the client never panics on a bad response.
func (c *Client) get(ctx context.Context, method string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+method+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %d %s", method, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%s: decoding response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("%s: %s", method, envelope.Error)
	}

	return json.Unmarshal(body, out)
}

// SearchOptions are the parameters of a message search. Count falls back
// to DefaultSearchCount when zero. User, InChannel, and AfterDate are
// folded into the query as Slack search modifiers, so one free-text term
// searches message text and metadata together.
type SearchOptions struct {
	Query     string
	Count     int
	User      string
	InChannel string
	AfterDate string
	Sort      string
	SortDir   string
}

// DefaultSearchCount is the result count used when none is given.
const DefaultSearchCount = 25

// SearchMatch is one matched message.
type SearchMatch struct {
	User     string `json:"user"`
	Username string `json:"username"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	Channel  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"channel"`
	Permalink string `json:"permalink"`
}

// SearchResults holds one page of message search results.
type SearchResults struct {
	Messages struct {
		Total   int           `json:"total"`
		Matches []SearchMatch `json:"matches"`
	} `json:"messages"`
}

// SearchMessages searches messages across the workspace.
func (c *Client) SearchMessages(ctx context.Context, opts SearchOptions) (*SearchResults, error) {
	query := opts.Query
	if opts.User != "" {
		query += " from:" + opts.User
	}
	if opts.InChannel != "" {
		query += " in:" + opts.InChannel
	}
	if opts.AfterDate != "" {
		query += " after:" + opts.AfterDate
	}

	count := opts.Count
	if count <= 0 {
		count = DefaultSearchCount
	}

	params := url.Values{}
	params.Set("query", strings.TrimSpace(query))
	params.Set("count", strconv.Itoa(count))
	if opts.Sort != "" {
		params.Set("sort", opts.Sort)
	}
	if opts.SortDir != "" {
		params.Set("sort_dir", opts.SortDir)
	}

	var results SearchResults
	if err := c.get(ctx, "search.messages", params, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// Conversation is one channel visible to the session's user.
type Conversation struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsMember    bool   `json:"is_member"`
	IsArchived  bool   `json:"is_archived"`
	UnreadCount int    `json:"unread_count"`
}

// ConversationList is one page of the channel listing. NextCursor is an
// opaque continuation token, forwarded verbatim on the next call.
type ConversationList struct {
	Channels         []Conversation `json:"channels"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// ListConversations lists non-archived channels the user can see. The
// cursor, when non-empty, is passed through unchanged.
func (c *Client) ListConversations(ctx context.Context, cursor string, limit int) (*ConversationList, error) {
	params := url.Values{}
	params.Set("types", "public_channel,private_channel")
	params.Set("exclude_archived", "true")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var list ConversationList
	if err := c.get(ctx, "conversations.list", params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Message is one message in a conversation history.
type Message struct {
	User string `json:"user"`
	Text string `json:"text"`
	TS   string `json:"ts"`
}

// History is one page of a conversation's messages.
type History struct {
	Messages         []Message `json:"messages"`
	HasMore          bool      `json:"has_more"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// HistoryOptions are the parameters of a conversation history fetch.
type HistoryOptions struct {
	Channel string
	Oldest  string
	Cursor  string
	Limit   int
}

// ConversationHistory fetches messages from one channel, newest first.
func (c *Client) ConversationHistory(ctx context.Context, opts HistoryOptions) (*History, error) {
	params := url.Values{}
	params.Set("channel", opts.Channel)
	if opts.Oldest != "" {
		params.Set("oldest", opts.Oldest)
	}
	if opts.Cursor != "" {
		params.Set("cursor", opts.Cursor)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var history History
	if err := c.get(ctx, "conversations.history", params, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// FormatTS renders a Slack message timestamp ("1712345678.000100") as
// RFC 3339 UTC. Unparseable values are returned unchanged.
func FormatTS(ts string) string {
	secs, _, _ := strings.Cut(ts, ".")
	n, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return ts
	}
	return time.Unix(n, 0).UTC().Format(time.RFC3339)
}
