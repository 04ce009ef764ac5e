// Package combined provides the cross-platform activity tool: one
// logical operation fanned out to every connected platform's
// latest-activity tool.
package combined

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/teamlenshq/teamlens/tool"
)

// NoPlatformsMessage is returned when no platform is connected. Callers
// match this string, keep it stable.
const NoPlatformsMessage = "No platforms are currently available. Please connect at least one platform."

// DefaultDays is the shared lookback window used when none is given.
const DefaultDays = 7

// NewToolSet builds the all-platforms tool set over the given platform
// tool sets. Sets without a designated latest-activity tool are skipped.
// Section order in the output always matches registration order, never
// call-completion order.
func NewToolSet(platforms ...*tool.Set) *tool.Set {
	latest := tool.Definition{
		Name:        "all_platforms__get_latest_activity",
		Description: "Get latest activity from every connected platform, one section per platform.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"days": {Type: "integer", Description: "Lookback window in days (default 7)"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return latestActivity(ctx, platforms, tool.Int(args, "days", DefaultDays))
		},
	}
	return tool.NewSet("all_platforms", latest)
}

// section is one platform's slot in the fan-out.
type section struct {
	platform string
	def      tool.Definition
	text     string
	err      error
}

// latestActivity runs every platform's activity tool concurrently and
// waits for all of them to settle. A slow or failing platform never
// blocks or fails the others; its section simply carries the failure
// reason.
func latestActivity(ctx context.Context, platforms []*tool.Set, days int) (string, error) {
	if days < 1 {
		days = DefaultDays
	}

	var sections []*section
	for _, set := range platforms {
		if def, ok := set.Activity(); ok {
			sections = append(sections, &section{platform: set.Name(), def: def})
		}
	}
	if len(sections) == 0 {
		return NoPlatformsMessage, nil
	}

	g := new(errgroup.Group)
	for _, s := range sections {
		g.Go(func() error {
			s.text, s.err = s.def.Handler(ctx, map[string]any{"days": float64(days)})
			// Failures stay inside the section; never short-circuit the
			// other platforms.
			return nil
		})
	}
	_ = g.Wait()

	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		body := s.text
		if s.err != nil {
			body = s.err.Error()
		}
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", strings.ToUpper(s.platform), body))
	}
	return strings.Join(parts, "\n\n"), nil
}
