package github

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/teamlenshq/teamlens/tool"
)

// NoResults is the sentinel emitted for an empty search section.
// Callers match this string, keep it stable.
const NoResults = "No results found"

// DefaultActivityDays is the lookback window used when none is given.
const DefaultActivityDays = 7

var activityHeader = []string{"number", "title", "state", "repository", "updated"}

// NewToolSet exposes the GitHub integration as tools.
func NewToolSet(client *Client) *tool.Set {
	search := tool.Definition{
		Name:        "github__search",
		Description: "Search GitHub code and issues/pull requests in one query. One free-text term covers file contents, titles, and bodies.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":      {Type: "string", Description: "Search terms, GitHub search syntax"},
				"maxResults": {Type: "integer", Description: "Maximum results per section (default 10, capped at 100)"},
			},
			Required: []string{"query"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return searchReport(ctx, client,
				tool.String(args, "query"),
				tool.ClampedInt(args, "maxResults", DefaultSearchResults, MaxSearchResults))
		},
	}

	fileContent := tool.Definition{
		Name:        "github__get_file_content",
		Description: "Get the decoded content of a file in a repository.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"owner": {Type: "string", Description: "Repository owner"},
				"repo":  {Type: "string", Description: "Repository name"},
				"path":  {Type: "string", Description: "File path within the repository"},
				"ref":   {Type: "string", Description: "Branch, tag, or commit (default: default branch)"},
			},
			Required: []string{"owner", "repo", "path"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			owner := tool.String(args, "owner")
			repo := tool.String(args, "repo")
			path := tool.String(args, "path")
			ref := tool.String(args, "ref")

			file, content, err := client.FileContent(ctx, owner, repo, path, ref)
			if err != nil {
				return "", fmt.Errorf("Error fetching file content: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# %s/%s/%s\n", owner, repo, file.Path)
			if ref != "" {
				fmt.Fprintf(&b, "ref: %s\n", ref)
			}
			fmt.Fprintf(&b, "size: %d\n\n", file.Size)
			b.WriteString(content)
			return b.String(), nil
		},
	}

	repositoryTree := tool.Definition{
		Name:        "github__get_repository_tree",
		Description: "List a repository tree, directories before files.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"owner":     {Type: "string", Description: "Repository owner"},
				"repo":      {Type: "string", Description: "Repository name"},
				"ref":       {Type: "string", Description: "Branch, tag, or commit (default HEAD)"},
				"recursive": {Type: "boolean", Description: "Recurse into subdirectories"},
			},
			Required: []string{"owner", "repo"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			owner := tool.String(args, "owner")
			repo := tool.String(args, "repo")
			ref := tool.String(args, "ref")

			treeData, err := client.RepositoryTree(ctx, owner, repo, ref,
				tool.Bool(args, "recursive", false))
			if err != nil {
				return "", fmt.Errorf("Error fetching repository tree: %w", err)
			}

			if ref == "" {
				ref = "HEAD"
			}
			var b strings.Builder
			fmt.Fprintf(&b, "# %s/%s@%s\n\n", owner, repo, ref)
			b.WriteString(FormatTree(treeData.Entries))
			if treeData.Truncated {
				b.WriteString("\n\nWarning: listing truncated by the API; not all entries are shown.")
			}
			return b.String(), nil
		},
	}

	latest := tool.Definition{
		Name:        "github__get_latest_activity",
		Description: "Get issues and pull requests involving the user, updated within a lookback window.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"days": {Type: "integer", Description: "Lookback window in days (default 7)"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			days := tool.Int(args, "days", DefaultActivityDays)
			if days < 1 {
				days = DefaultActivityDays
			}
			since := time.Now().Add(-time.Duration(days) * 24 * time.Hour).Format("2006-01-02")

			results, err := client.SearchIssues(ctx,
				fmt.Sprintf("involves:@me updated:>=%s", since), 25)
			if err != nil {
				return "", fmt.Errorf("Error fetching GitHub activity: %w", err)
			}

			rows := make([][]string, 0, len(results.Items))
			for _, item := range results.Items {
				rows = append(rows, []string{
					fmt.Sprintf("%d", item.Number),
					item.Title,
					item.State,
					repositoryName(item.RepositoryURL),
					item.UpdatedAt,
				})
			}
			return tool.CSV(activityHeader, rows), nil
		},
	}

	set := tool.NewSet("github", search, fileContent, repositoryTree, latest)
	return set.SetActivity("github__get_latest_activity")
}

// searchReport runs the code and issue searches concurrently and renders
// them as a two-section report. Either search failing fails the tool.
func searchReport(ctx context.Context, client *Client, query string, maxResults int) (string, error) {
	var code *CodeSearchResults
	var issues *IssueSearchResults

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		code, err = client.SearchCode(ctx, query, maxResults)
		return err
	})
	g.Go(func() error {
		var err error
		issues, err = client.SearchIssues(ctx, query, maxResults)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("Error searching GitHub: %w", err)
	}

	var b strings.Builder
	b.WriteString("## Code results\n\n")
	if len(code.Items) == 0 {
		b.WriteString(NoResults)
	} else {
		for i, item := range code.Items {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "- %s/%s (%s)", item.Repository.FullName, item.Path, item.HTMLURL)
		}
	}

	b.WriteString("\n\n## Issues and pull requests\n\n")
	if len(issues.Items) == 0 {
		b.WriteString(NoResults)
	} else {
		for i, item := range issues.Items {
			if i > 0 {
				b.WriteByte('\n')
			}
			kind := "issue"
			if item.PullRequest != nil {
				kind = "pull"
			}
			fmt.Fprintf(&b, "- [%s %s] %s#%d %s (updated %s)",
				kind, item.State, repositoryName(item.RepositoryURL), item.Number, item.Title, item.UpdatedAt)
		}
	}
	return b.String(), nil
}

// FormatTree renders tree entries as an indented listing. Directories
// sort strictly before files regardless of name; within the same type,
// paths sort lexicographically.
func FormatTree(entries []TreeEntry) string {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Type != sorted[j].Type {
			return sorted[i].Type == "tree"
		}
		return sorted[i].Path < sorted[j].Path
	})

	lines := make([]string, 0, len(sorted))
	for _, entry := range sorted {
		tag := "FILE"
		if entry.Type == "tree" {
			tag = "DIR "
		}
		indent := strings.Repeat("  ", strings.Count(entry.Path, "/"))
		lines = append(lines, fmt.Sprintf("%s%s %s", indent, tag, entry.Path))
	}
	return strings.Join(lines, "\n")
}

// repositoryName extracts "owner/repo" from a repository API URL.
func repositoryName(apiURL string) string {
	const marker = "/repos/"
	if i := strings.Index(apiURL, marker); i >= 0 {
		return apiURL[i+len(marker):]
	}
	return apiURL
}
