// Package github wraps the GitHub REST API for one authenticated
// session.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/teamlenshq/teamlens/internal"
)

// DefaultBaseURL is the GitHub REST API endpoint.
const DefaultBaseURL = "https://api.github.com"

const (
	// DefaultSearchResults is the page size used when none is given.
	DefaultSearchResults = 10
	// MaxSearchResults is GitHub's own per-page ceiling; larger requests
	// are clamped, not rejected.
	MaxSearchResults = 100
)

// Client calls the GitHub REST API with a session's bearer token.
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

// NewClient creates a GitHub client for the given token.
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
	req.Header.Set("Accept", "application/vnd.github+json")

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

// clampPerPage applies the default and GitHub's hard maximum.
func clampPerPage(n int) int {
	if n <= 0 {
		return DefaultSearchResults
	}
	if n > MaxSearchResults {
		return MaxSearchResults
	}
	return n
}

// CodeMatch is one code search hit.
type CodeMatch struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	HTMLURL    string `json:"html_url"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// CodeSearchResults is one page of code search hits.
type CodeSearchResults struct {
	TotalCount int         `json:"total_count"`
	Items      []CodeMatch `json:"items"`
}

// SearchCode searches code across repositories the token can see.
func (c *Client) SearchCode(ctx context.Context, query string, perPage int) (*CodeSearchResults, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("per_page", strconv.Itoa(clampPerPage(perPage)))

	var results CodeSearchResults
	if err := c.get(ctx, "searching code", "/search/code", params, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// IssueMatch is one issue or pull request search hit. PullRequest is
// non-nil when the item is a pull request.
type IssueMatch struct {
	Number        int    `json:"number"`
	Title         string `json:"title"`
	State         string `json:"state"`
	HTMLURL       string `json:"html_url"`
	RepositoryURL string `json:"repository_url"`
	UpdatedAt     string `json:"updated_at"`
	User          struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest *struct{} `json:"pull_request"`
}

// IssueSearchResults is one page of issue search hits.
type IssueSearchResults struct {
	TotalCount int          `json:"total_count"`
	Items      []IssueMatch `json:"items"`
}

// SearchIssues searches issues and pull requests. The query uses
// GitHub's own search syntax; title, body, and comments are covered by
// one free-text term.
func (c *Client) SearchIssues(ctx context.Context, query string, perPage int) (*IssueSearchResults, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("per_page", strconv.Itoa(clampPerPage(perPage)))
	params.Set("sort", "updated")

	var results IssueSearchResults
	if err := c.get(ctx, "searching issues", "/search/issues", params, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// File is one file's metadata and content.
type File struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// FileContent fetches a file and decodes its base64 content. An empty
// ref means the repository's default branch.
func (c *Client) FileContent(ctx context.Context, owner, repo, path, ref string) (*File, string, error) {
	params := url.Values{}
	if ref != "" {
		params.Set("ref", ref)
	}

	var file File
	apiPath := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, escapePath(path))
	if err := c.get(ctx, "fetching file content", apiPath, params, &file); err != nil {
		return nil, "", err
	}

	if file.Encoding != "base64" {
		return &file, file.Content, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return nil, "", fmt.Errorf("fetching file content: decoding %s: %w", path, err)
	}
	return &file, string(decoded), nil
}

// escapePath escapes each segment of a repository file path, keeping
// the slashes that separate them.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// TreeEntry is one entry of a git tree. Type is "tree" for directories
// and "blob" for files.
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int    `json:"size"`
}

// Tree is a git tree listing. Truncated is passed through from the API
// untouched so callers can warn on incomplete results.
type Tree struct {
	SHA       string      `json:"sha"`
	Truncated bool        `json:"truncated"`
	Entries   []TreeEntry `json:"tree"`
}

// RepositoryTree fetches the git tree at ref (default HEAD).
func (c *Client) RepositoryTree(ctx context.Context, owner, repo, ref string, recursive bool) (*Tree, error) {
	if ref == "" {
		ref = "HEAD"
	}
	params := url.Values{}
	if recursive {
		params.Set("recursive", "1")
	}

	var tree Tree
	apiPath := fmt.Sprintf("/repos/%s/%s/git/trees/%s", owner, repo, url.PathEscape(ref))
	if err := c.get(ctx, "fetching repository tree", apiPath, params, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}
