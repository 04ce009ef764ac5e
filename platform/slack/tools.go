package slack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/teamlenshq/teamlens/tool"
)

// NoRecentMessages is returned when the lookback window contains no
// messages at all. Callers match this string, keep it stable.
const NoRecentMessages = "No recent messages found."

// DefaultActivityDays is the lookback window used when none is given.
const DefaultActivityDays = 7

var searchHeader = []string{"userName", "text", "time", "channel"}

// NewToolSet exposes the Slack integration as tools.
func NewToolSet(client *Client) *tool.Set {
	search := tool.Definition{
		Name:        "slack__search_messages",
		Description: "Search Slack messages across the workspace. Searches message text, sender, and channel together for one free-text term.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":      {Type: "string", Description: "Search terms"},
				"count":      {Type: "integer", Description: "Maximum number of results (default 25)"},
				"user":       {Type: "string", Description: "Only messages from this user, e.g. @jane"},
				"in_channel": {Type: "string", Description: "Only messages in this channel, e.g. #general"},
				"after_date": {Type: "string", Description: "Only messages after this date (YYYY-MM-DD)"},
				"sort":       {Type: "string", Description: "Sort field: score or timestamp"},
				"sort_dir":   {Type: "string", Description: "Sort direction: asc or desc"},
			},
			Required: []string{"query"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			results, err := client.SearchMessages(ctx, SearchOptions{
				Query:     tool.String(args, "query"),
				Count:     tool.Int(args, "count", DefaultSearchCount),
				User:      tool.String(args, "user"),
				InChannel: tool.String(args, "in_channel"),
				AfterDate: tool.String(args, "after_date"),
				Sort:      tool.String(args, "sort"),
				SortDir:   tool.String(args, "sort_dir"),
			})
			if err != nil {
				return "", fmt.Errorf("Error searching Slack messages: %w", err)
			}

			rows := make([][]string, 0, len(results.Messages.Matches))
			for _, m := range results.Messages.Matches {
				name := m.Username
				if name == "" {
					name = m.User
				}
				rows = append(rows, []string{name, m.Text, FormatTS(m.TS), m.Channel.Name})
			}
			return tool.CSV(searchHeader, rows), nil
		},
	}

	latest := tool.Definition{
		Name:        "slack__get_latest_messages",
		Description: "Get recent messages from channels the user is a member of, grouped by channel with unread markers.",
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
			return latestMessages(ctx, client, days)
		},
	}

	set := tool.NewSet("slack", search, latest)
	return set.SetActivity("slack__get_latest_messages")
}

// latestMessages renders the lookback window as per-channel sections.
// Channel order follows the listing order returned by the API.
func latestMessages(ctx context.Context, client *Client, days int) (string, error) {
	list, err := client.ListConversations(ctx, "", 100)
	if err != nil {
		return "", fmt.Errorf("Error fetching Slack channels: %w", err)
	}

	oldest := fmt.Sprintf("%d.000000", time.Now().Add(-time.Duration(days)*24*time.Hour).Unix())

	var sections []string
	for _, channel := range list.Channels {
		if !channel.IsMember {
			continue
		}

		history, err := client.ConversationHistory(ctx, HistoryOptions{
			Channel: channel.ID,
			Oldest:  oldest,
			Limit:   50,
		})
		if err != nil {
			// One unreadable channel must not lose the rest.
			sections = append(sections, fmt.Sprintf("# %s\nError fetching history: %s", channel.Name, err))
			continue
		}
		if len(history.Messages) == 0 {
			continue
		}

		header := "# " + channel.Name
		if channel.UnreadCount > 0 {
			header += " (unread)"
		}
		lines := []string{header}
		for _, m := range history.Messages {
			text := strings.ReplaceAll(m.Text, "\n", " ")
			lines = append(lines, fmt.Sprintf("[%s] %s: %s", FormatTS(m.TS), m.User, text))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(sections) == 0 {
		return NoRecentMessages, nil
	}
	return strings.Join(sections, "\n\n"), nil
}
