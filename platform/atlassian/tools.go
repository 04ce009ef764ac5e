package atlassian

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/teamlenshq/teamlens/tool"
)

// DefaultActivityDays is the lookback window used when none is given.
const DefaultActivityDays = 7

var (
	issueHeader = []string{"key", "summary", "status", "assignee", "reporter", "priority", "created", "updated"}
	pageHeader  = []string{"id", "title", "type", "space", "status", "lastModified"}
)

// NewToolSet exposes the Atlassian integration as tools.
func NewToolSet(client *Client) *tool.Set {
	searchIssues := tool.Definition{
		Name:        "atlassian__search_jira_issues",
		Description: "Search Jira issues with a JQL query.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"jql":        {Type: "string", Description: "JQL query, e.g. 'assignee = currentUser() AND status = \"In Progress\"'"},
				"maxResults": {Type: "integer", Description: "Maximum number of issues (default 25)"},
			},
			Required: []string{"jql"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			results, err := client.SearchIssues(ctx,
				tool.String(args, "jql"),
				tool.Int(args, "maxResults", DefaultMaxResults))
			if err != nil {
				return "", fmt.Errorf("Error searching Jira issues: %w", err)
			}

			rows := make([][]string, 0, len(results.Issues))
			for _, issue := range results.Issues {
				rows = append(rows, []string{
					issue.Key,
					issue.Fields.Summary,
					issue.Fields.Status.Name,
					issue.Fields.Assignee.DisplayName,
					issue.Fields.Reporter.DisplayName,
					issue.Fields.Priority.Name,
					issue.Fields.Created,
					issue.Fields.Updated,
				})
			}
			return tool.CSV(issueHeader, rows), nil
		},
	}

	searchContent := tool.Definition{
		Name:        "atlassian__search_confluence",
		Description: "Search Confluence content with raw CQL or structured filters (text, space, type). Without filters, searches content of type page.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"cql":        {Type: "string", Description: "Raw CQL query; overrides the structured filters"},
				"text":       {Type: "string", Description: "Free-text filter"},
				"space":      {Type: "string", Description: "Space key filter"},
				"type":       {Type: "string", Description: "Content type filter, e.g. page or blogpost"},
				"maxResults": {Type: "integer", Description: "Maximum number of results (default 25)"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			results, err := client.SearchContent(ctx, ContentSearchOptions{
				CQL:        tool.String(args, "cql"),
				Text:       tool.String(args, "text"),
				SpaceKey:   tool.String(args, "space"),
				Type:       tool.String(args, "type"),
				MaxResults: tool.Int(args, "maxResults", DefaultMaxResults),
			})
			if err != nil {
				return "", fmt.Errorf("Error searching Confluence: %w", err)
			}
			return contentCSV(results.Results), nil
		},
	}

	latestPages := tool.Definition{
		Name:        "atlassian__confluence_get_latest_pages",
		Description: "Get Confluence pages modified within a lookback window, newest first.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"days":                {Type: "integer", Description: "Lookback window in days (default 7)"},
				"maxResults":          {Type: "integer", Description: "Maximum number of pages (default 25)"},
				"includeUserMentions": {Type: "boolean", Description: "Only pages mentioning the current user"},
				"includeArchived":     {Type: "boolean", Description: "Include archived pages (default false)"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			days := tool.Int(args, "days", DefaultActivityDays)
			if days < 1 {
				days = DefaultActivityDays
			}

			cql := latestPagesCQL(days,
				tool.Bool(args, "includeUserMentions", false),
				tool.Bool(args, "includeArchived", false))

			results, err := client.SearchContent(ctx, ContentSearchOptions{
				CQL:        cql,
				MaxResults: tool.Int(args, "maxResults", DefaultMaxResults),
			})
			if err != nil {
				return "", fmt.Errorf("Error fetching latest Confluence pages: %w", err)
			}
			return contentCSV(results.Results), nil
		},
	}

	set := tool.NewSet("atlassian", searchIssues, searchContent, latestPages)
	return set.SetActivity("atlassian__confluence_get_latest_pages")
}

// latestPagesCQL builds the lookback query for recently modified pages.
func latestPagesCQL(days int, userMentions, includeArchived bool) string {
	clauses := []string{
		"type = page",
		fmt.Sprintf("lastmodified >= now(%q)", fmt.Sprintf("-%dd", days)),
	}
	if userMentions {
		clauses = append(clauses, "mention = currentUser()")
	}
	if !includeArchived {
		clauses = append(clauses, "status = current")
	}
	return strings.Join(clauses, " AND ") + " order by lastmodified desc"
}

func contentCSV(items []Content) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.Title,
			item.Type,
			item.Space.Key,
			item.Status,
			item.Version.When,
		})
	}
	return tool.CSV(pageHeader, rows)
}
