package combined

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamlenshq/teamlens/tool"
)

func activitySet(name string, handler tool.Handler) *tool.Set {
	def := tool.Definition{
		Name:    name + "__get_latest_activity",
		Handler: handler,
	}
	return tool.NewSet(name, def).SetActivity(def.Name)
}

func callLatest(t *testing.T, set *tool.Set, args map[string]any) string {
	t.Helper()
	def, ok := set.Find("all_platforms__get_latest_activity")
	require.True(t, ok)
	out, err := def.Handler(context.Background(), args)
	require.NoError(t, err)
	return out
}

func TestZeroPlatformsFixedMessage(t *testing.T) {
	var calls atomic.Int32
	// A set without a designated activity tool does not count as
	// available, and nothing is ever invoked.
	bare := tool.NewSet("bare", tool.Definition{
		Name: "bare__noop",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			calls.Add(1)
			return "", nil
		},
	})

	out := callLatest(t, NewToolSet(bare), map[string]any{})
	assert.Equal(t, NoPlatformsMessage, out)
	assert.Equal(t, int32(0), calls.Load())

	out = callLatest(t, NewToolSet(), map[string]any{})
	assert.Equal(t, NoPlatformsMessage, out)
}

func TestFailingPlatformIsIsolated(t *testing.T) {
	good := activitySet("slack", func(ctx context.Context, args map[string]any) (string, error) {
		return "# general\nall quiet", nil
	})
	bad := activitySet("github", func(ctx context.Context, args map[string]any) (string, error) {
		return "", errors.New("Error fetching GitHub activity: 401 bad credentials")
	})

	out := callLatest(t, NewToolSet(good, bad), map[string]any{})

	assert.Contains(t, out, "## SLACK\n\n# general\nall quiet")
	assert.Contains(t, out, "## GITHUB\n\nError fetching GitHub activity: 401 bad credentials")
}

func TestSectionOrderMatchesRegistrationOrder(t *testing.T) {
	// The first platform finishes last; section order must not change.
	slow := activitySet("slack", func(ctx context.Context, args map[string]any) (string, error) {
		time.Sleep(30 * time.Millisecond)
		return "slow result", nil
	})
	fast := activitySet("azure", func(ctx context.Context, args map[string]any) (string, error) {
		return "fast result", nil
	})

	out := callLatest(t, NewToolSet(slow, fast), map[string]any{})

	slackAt := strings.Index(out, "## SLACK")
	azureAt := strings.Index(out, "## AZURE")
	require.NotEqual(t, -1, slackAt)
	require.NotEqual(t, -1, azureAt)
	assert.Less(t, slackAt, azureAt)
}

func TestSharedLookbackWindowForwarded(t *testing.T) {
	var gotDays atomic.Int64
	set := activitySet("slack", func(ctx context.Context, args map[string]any) (string, error) {
		gotDays.Store(int64(tool.Int(args, "days", 0)))
		return "ok", nil
	})

	callLatest(t, NewToolSet(set), map[string]any{"days": float64(3)})
	assert.Equal(t, int64(3), gotDays.Load())

	callLatest(t, NewToolSet(set), map[string]any{})
	assert.Equal(t, int64(DefaultDays), gotDays.Load())
}
