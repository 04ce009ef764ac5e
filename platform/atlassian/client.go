// Package atlassian wraps the Atlassian cloud APIs (Jira and Confluence)
// for one authenticated session.
package atlassian

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
	"sync"

	"github.com/teamlenshq/teamlens/internal"
)

// DefaultBaseURL is the Atlassian cloud API gateway.
const DefaultBaseURL = "https://api.atlassian.com"

// DefaultMaxResults is the page size used when none is given.
const DefaultMaxResults = 25

// Client calls the Atlassian cloud APIs with a session's bearer token.
//
// The cloud id identifying the account's site is resolved from the
// accessible-resources endpoint on first use and cached for the client's
// lifetime. The first accessible site wins; multi-site accounts only
// ever use that site, and the cache is never invalidated.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.Mutex
	cloudID string
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

// NewClient creates an Atlassian client for the given token.
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

func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")

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

// accessibleResource is one site the token can reach.
type accessibleResource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CloudID returns the cached cloud id, resolving it on first call. The
// write is guarded so concurrent first calls agree on one site; a failed
// resolution leaves the cache empty and is retried on the next call.
func (c *Client) CloudID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cloudID != "" {
		return c.cloudID, nil
	}

	var resources []accessibleResource
	if err := c.get(ctx, "resolving cloud id", "/oauth/token/accessible-resources", nil, &resources); err != nil {
		return "", err
	}
	if len(resources) == 0 {
		return "", fmt.Errorf("resolving cloud id: no accessible Atlassian sites")
	}

	c.cloudID = resources[0].ID
	c.logger.Debug("resolved Atlassian cloud id", "cloudID", c.cloudID, "site", resources[0].URL)
	return c.cloudID, nil
}

// Issue is one Jira issue as returned by the search API.
type Issue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		Assignee struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Reporter struct {
			DisplayName string `json:"displayName"`
		} `json:"reporter"`
		Priority struct {
			Name string `json:"name"`
		} `json:"priority"`
		Created string `json:"created"`
		Updated string `json:"updated"`
	} `json:"fields"`
}

// IssueSearchResults is one page of a JQL search.
type IssueSearchResults struct {
	Issues []Issue `json:"issues"`
	Total  int     `json:"total"`
}

// SearchIssues runs a JQL search against the account's Jira site.
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int) (*IssueSearchResults, error) {
	cloudID, err := c.CloudID(ctx)
	if err != nil {
		return nil, err
	}

	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	params := url.Values{}
	params.Set("jql", jql)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("fields", "summary,status,assignee,reporter,priority,created,updated")

	var results IssueSearchResults
	path := "/ex/jira/" + cloudID + "/rest/api/3/search"
	if err := c.get(ctx, "searching Jira issues", path, params, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// Content is one Confluence content item.
type Content struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Space  struct {
		Key string `json:"key"`
	} `json:"space"`
	Version struct {
		When string `json:"when"`
	} `json:"version"`
}

// ContentSearchResults is one page of a CQL search.
type ContentSearchResults struct {
	Results []Content `json:"results"`
	Size    int       `json:"size"`
}

// ContentSearchOptions describe a Confluence search. CQL, when set, is
// used verbatim; otherwise the structured filters are AND-combined. With
// neither, the search falls back to content of type "page".
type ContentSearchOptions struct {
	CQL        string
	Text       string
	SpaceKey   string
	Type       string
	MaxResults int
}

// BuildCQL lowers the options into one CQL expression.
func (o ContentSearchOptions) BuildCQL() string {
	if o.CQL != "" {
		return o.CQL
	}

	var clauses []string
	if o.Text != "" {
		clauses = append(clauses, fmt.Sprintf("text ~ %q", o.Text))
	}
	if o.SpaceKey != "" {
		clauses = append(clauses, fmt.Sprintf("space = %q", o.SpaceKey))
	}
	if o.Type != "" {
		clauses = append(clauses, "type = "+o.Type)
	}
	if len(clauses) == 0 {
		return "type = page"
	}
	return strings.Join(clauses, " AND ")
}

// SearchContent runs a CQL search against the account's Confluence site.
func (c *Client) SearchContent(ctx context.Context, opts ContentSearchOptions) (*ContentSearchResults, error) {
	cloudID, err := c.CloudID(ctx)
	if err != nil {
		return nil, err
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	params := url.Values{}
	params.Set("cql", opts.BuildCQL())
	params.Set("limit", strconv.Itoa(maxResults))
	params.Set("expand", "space,version")

	var results ContentSearchResults
	path := "/ex/confluence/" + cloudID + "/wiki/rest/api/content/search"
	if err := c.get(ctx, "searching Confluence content", path, params, &results); err != nil {
		return nil, err
	}
	return &results, nil
}
