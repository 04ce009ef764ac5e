package atlassian

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accessibleResourcesResponse(w http.ResponseWriter) {
	json.NewEncoder(w).Encode([]map[string]any{
		{"id": "cloud-1", "name": "first-site", "url": "https://first.atlassian.net"},
		{"id": "cloud-2", "name": "second-site", "url": "https://second.atlassian.net"},
	})
}

func TestCloudIDResolvedOnceFirstSiteWins(t *testing.T) {
	var resolutions atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token/accessible-resources":
			resolutions.Add(1)
			accessibleResourcesResponse(w)
		default:
			json.NewEncoder(w).Encode(map[string]any{"issues": []any{}})
		}
	}))
	defer srv.Close()

	client := NewClient("atl-test", WithBaseURL(srv.URL))

	id, err := client.CloudID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cloud-1", id)

	// Subsequent calls, including via API methods, reuse the cache.
	_, err = client.SearchIssues(context.Background(), "order by updated", 10)
	require.NoError(t, err)
	id, err = client.CloudID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cloud-1", id)
	assert.Equal(t, int32(1), resolutions.Load())
}

func TestCloudIDConcurrentFirstCalls(t *testing.T) {
	var resolutions atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolutions.Add(1)
		accessibleResourcesResponse(w)
	}))
	defer srv.Close()

	client := NewClient("atl-test", WithBaseURL(srv.URL))

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := client.CloudID(context.Background())
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, "cloud-1", id)
	}
	assert.Equal(t, int32(1), resolutions.Load())
}

func TestCloudIDNoSites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]any{})
	}))
	defer srv.Close()

	client := NewClient("atl-test", WithBaseURL(srv.URL))
	_, err := client.CloudID(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no accessible Atlassian sites")
}

func TestCloudIDFailureIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		accessibleResourcesResponse(w)
	}))
	defer srv.Close()

	client := NewClient("atl-test", WithBaseURL(srv.URL))

	_, err := client.CloudID(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	id, err := client.CloudID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cloud-1", id)
}

func TestSearchIssues(t *testing.T) {
	var gotPath, gotJQL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token/accessible-resources":
			accessibleResourcesResponse(w)
		default:
			gotPath = r.URL.Path
			gotJQL = r.URL.Query().Get("jql")
			assert.Equal(t, "25", r.URL.Query().Get("maxResults"))
			json.NewEncoder(w).Encode(map[string]any{
				"total": 1,
				"issues": []map[string]any{
					{
						"key": "PROJ-7",
						"fields": map[string]any{
							"summary": "Fix login",
							"status":  map[string]any{"name": "In Progress"},
						},
					},
				},
			})
		}
	}))
	defer srv.Close()

	client := NewClient("atl-test", WithBaseURL(srv.URL))
	results, err := client.SearchIssues(context.Background(), "assignee = currentUser()", 0)
	require.NoError(t, err)

	assert.Equal(t, "/ex/jira/cloud-1/rest/api/3/search", gotPath)
	assert.Equal(t, "assignee = currentUser()", gotJQL)
	require.Len(t, results.Issues, 1)
	assert.Equal(t, "PROJ-7", results.Issues[0].Key)
	assert.Equal(t, "In Progress", results.Issues[0].Fields.Status.Name)
}

func TestSearchIssuesNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token/accessible-resources":
			accessibleResourcesResponse(w)
		default:
			http.Error(w, `{"errorMessages":["bad jql"]}`, http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	client := NewClient("atl-test", WithBaseURL(srv.URL))
	_, err := client.SearchIssues(context.Background(), "nonsense ~~", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "searching Jira issues")
	assert.Contains(t, err.Error(), "400")
}

func TestBuildCQL(t *testing.T) {
	tests := []struct {
		name string
		opts ContentSearchOptions
		want string
	}{
		{"raw CQL wins", ContentSearchOptions{CQL: "label = docs", Text: "ignored"}, "label = docs"},
		{"structured filters AND-combined", ContentSearchOptions{Text: "rollout plan", SpaceKey: "ENG", Type: "page"}, `text ~ "rollout plan" AND space = "ENG" AND type = page`},
		{"single filter", ContentSearchOptions{Text: "retro"}, `text ~ "retro"`},
		{"no filters default to pages", ContentSearchOptions{}, "type = page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.BuildCQL())
		})
	}
}

func TestSearchContent(t *testing.T) {
	var gotCQL, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token/accessible-resources":
			accessibleResourcesResponse(w)
		default:
			gotPath = r.URL.Path
			gotCQL = r.URL.Query().Get("cql")
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{
						"id": "98301", "title": "Release notes", "type": "page", "status": "current",
						"space":   map[string]any{"key": "ENG"},
						"version": map[string]any{"when": "2026-08-29T10:00:00Z"},
					},
				},
			})
		}
	}))
	defer srv.Close()

	client := NewClient("atl-test", WithBaseURL(srv.URL))
	results, err := client.SearchContent(context.Background(), ContentSearchOptions{SpaceKey: "ENG"})
	require.NoError(t, err)

	assert.Equal(t, "/ex/confluence/cloud-1/wiki/rest/api/content/search", gotPath)
	assert.Equal(t, `space = "ENG"`, gotCQL)
	require.Len(t, results.Results, 1)
	assert.Equal(t, "Release notes", results.Results[0].Title)
}
