package msgraph

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/teamlenshq/teamlens/tool"
)

// DefaultActivityDays is the lookback window used when none is given.
const DefaultActivityDays = 7

var (
	emailHeader = []string{"id", "subject", "from", "toRecipients", "receivedDateTime", "importance", "isRead", "body"}
	eventHeader = []string{"id", "subject", "start", "end", "location", "attendees", "organizer", "importance", "body"}
)

// NewToolSet exposes the Azure (Microsoft Graph) integration as tools.
func NewToolSet(client *Client) *tool.Set {
	searchEmail := tool.Definition{
		Name:        "azure__search_email",
		Description: "Search Outlook email. Searches subject, body, and sender together; without a query, returns the latest messages.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {Type: "string", Description: "Search terms; empty for latest messages"},
				"limit": {Type: "integer", Description: "Maximum number of results (default 10)"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			messages, err := client.SearchEmail(ctx,
				tool.String(args, "query"),
				tool.Int(args, "limit", DefaultLimit))
			if err != nil {
				return "", fmt.Errorf("Error searching email: %w", err)
			}
			return emailCSV(messages), nil
		},
	}

	calendar := tool.Definition{
		Name:        "azure__get_calendar_events",
		Description: "Get Outlook calendar events in a time window (default: the next 7 days).",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"limit":      {Type: "integer", Description: "Maximum number of events (default 10)"},
				"start_time": {Type: "string", Description: "Window start, RFC 3339 (default now)"},
				"end_time":   {Type: "string", Description: "Window end, RFC 3339 (default start plus 7 days)"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			opts := CalendarOptions{Limit: tool.Int(args, "limit", DefaultLimit)}
			if s := tool.String(args, "start_time"); s != "" {
				ts, err := time.Parse(time.RFC3339, s)
				if err != nil {
					return "", fmt.Errorf("Error fetching calendar events: invalid start_time %q", s)
				}
				opts.Start = ts
			}
			if s := tool.String(args, "end_time"); s != "" {
				ts, err := time.Parse(time.RFC3339, s)
				if err != nil {
					return "", fmt.Errorf("Error fetching calendar events: invalid end_time %q", s)
				}
				opts.End = ts
			}

			events, err := client.CalendarEvents(ctx, opts)
			if err != nil {
				return "", fmt.Errorf("Error fetching calendar events: %w", err)
			}
			return eventCSV(events), nil
		},
	}

	latest := tool.Definition{
		Name:        "azure__get_latest_emails",
		Description: "Get email received within a lookback window, newest first.",
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
			messages, err := client.LatestEmail(ctx,
				time.Now().Add(-time.Duration(days)*24*time.Hour), 25)
			if err != nil {
				return "", fmt.Errorf("Error fetching latest email: %w", err)
			}
			return emailCSV(messages), nil
		},
	}

	set := tool.NewSet("azure", searchEmail, calendar, latest)
	return set.SetActivity("azure__get_latest_emails")
}

func emailCSV(messages []Message) string {
	rows := make([][]string, 0, len(messages))
	for _, m := range messages {
		recipients := make([]string, 0, len(m.ToRecipients))
		for _, r := range m.ToRecipients {
			recipients = append(recipients, r.EmailAddress.Address)
		}
		rows = append(rows, []string{
			m.ID,
			m.Subject,
			m.From.EmailAddress.Address,
			strings.Join(recipients, "; "),
			m.ReceivedDateTime,
			m.Importance,
			strconv.FormatBool(m.IsRead),
			m.BodyPreview,
		})
	}
	return tool.CSV(emailHeader, rows)
}

func eventCSV(events []Event) string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		attendees := make([]string, 0, len(e.Attendees))
		for _, a := range e.Attendees {
			attendees = append(attendees, a.EmailAddress.Address)
		}
		rows = append(rows, []string{
			e.ID,
			e.Subject,
			e.Start.DateTime,
			e.End.DateTime,
			e.Location.DisplayName,
			strings.Join(attendees, "; "),
			e.Organizer.EmailAddress.Address,
			e.Importance,
			e.BodyPreview,
		})
	}
	return tool.CSV(eventHeader, rows)
}
