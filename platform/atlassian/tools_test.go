package atlassian

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamlenshq/teamlens/tool"
)

func newTestToolSet(t *testing.T, content http.HandlerFunc) *tool.Set {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token/accessible-resources" {
			accessibleResourcesResponse(w)
			return
		}
		content(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewToolSet(NewClient("atl-test", WithBaseURL(srv.URL)))
}

func TestSearchIssuesToolCSV(t *testing.T) {
	set := newTestToolSet(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"issues": []map[string]any{
				{
					"key": "PROJ-1",
					"fields": map[string]any{
						"summary":  "Fix login, urgently",
						"status":   map[string]any{"name": "To Do"},
						"assignee": map[string]any{"displayName": "Jane Doe"},
						"reporter": map[string]any{"displayName": "John Roe"},
						"priority": map[string]any{"name": "High"},
						"created":  "2026-08-01T09:00:00.000+0000",
						"updated":  "2026-08-28T17:30:00.000+0000",
					},
				},
			},
		})
	})

	def, ok := set.Find("atlassian__search_jira_issues")
	require.True(t, ok)

	out, err := def.Handler(context.Background(), map[string]any{"jql": "project = PROJ"})
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "key,summary,status,assignee,reporter,priority,created,updated", lines[0])
	assert.Equal(t, `PROJ-1,"Fix login, urgently",To Do,Jane Doe,John Roe,High,2026-08-01T09:00:00.000+0000,2026-08-28T17:30:00.000+0000`, lines[1])
}

func TestSearchIssuesToolZeroResults(t *testing.T) {
	set := newTestToolSet(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"issues": []any{}})
	})

	def, _ := set.Find("atlassian__search_jira_issues")
	out, err := def.Handler(context.Background(), map[string]any{"jql": "project = NONE"})
	require.NoError(t, err)
	assert.Equal(t, "key,summary,status,assignee,reporter,priority,created,updated", out)
}

func TestLatestPagesToolCQL(t *testing.T) {
	var gotCQL string
	set := newTestToolSet(t, func(w http.ResponseWriter, r *http.Request) {
		gotCQL = r.URL.Query().Get("cql")
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	})

	def, ok := set.Find("atlassian__confluence_get_latest_pages")
	require.True(t, ok)

	out, err := def.Handler(context.Background(), map[string]any{
		"days":                float64(3),
		"includeUserMentions": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "id,title,type,space,status,lastModified", out)
	assert.Equal(t, `type = page AND lastmodified >= now("-3d") AND mention = currentUser() AND status = current order by lastmodified desc`, gotCQL)
}

func TestLatestPagesToolIncludeArchived(t *testing.T) {
	var gotCQL string
	set := newTestToolSet(t, func(w http.ResponseWriter, r *http.Request) {
		gotCQL = r.URL.Query().Get("cql")
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	})

	def, _ := set.Find("atlassian__confluence_get_latest_pages")
	_, err := def.Handler(context.Background(), map[string]any{"includeArchived": true})
	require.NoError(t, err)
	assert.NotContains(t, gotCQL, "status = current")
	assert.Contains(t, gotCQL, `now("-7d")`)
}

func TestSearchConfluenceToolErrorFormat(t *testing.T) {
	set := newTestToolSet(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cql parse failure", http.StatusBadRequest)
	})

	def, _ := set.Find("atlassian__search_confluence")
	_, err := def.Handler(context.Background(), map[string]any{"cql": "bad ~~"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Error searching Confluence:"), err.Error())
}

func TestActivityDesignation(t *testing.T) {
	set := newTestToolSet(t, func(w http.ResponseWriter, r *http.Request) {})
	def, ok := set.Activity()
	require.True(t, ok)
	assert.Equal(t, "atlassian__confluence_get_latest_pages", def.Name)
}
