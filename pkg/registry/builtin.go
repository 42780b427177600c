package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/furrow/pkg/domain"
)

// CurrentTimeToolName identifies the builtin clock tool.
const CurrentTimeToolName = "current_time"

// Builtins returns a registry preloaded with the builtin tools.
func Builtins() *Registry {
	r := NewRegistry()
	r.Register(domain.Tool{
		Name:        CurrentTimeToolName,
		Description: "Returns the current date and time in RFC 3339 format, optionally for an IANA timezone.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{
					"type":        "string",
					"description": "IANA timezone name such as Asia/Tokyo. Defaults to UTC.",
				},
			},
		},
	}, currentTime)
	return r
}

type currentTimeArgs struct {
	Timezone string `mapstructure:"timezone"`
}

func currentTime(ctx context.Context, args map[string]any) (string, error) {
	var params currentTimeArgs
	if err := mapstructure.Decode(args, &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	loc := time.UTC
	if params.Timezone != "" {
		parsed, err := time.LoadLocation(params.Timezone)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q: %w", params.Timezone, err)
		}
		loc = parsed
	}
	return time.Now().In(loc).Format(time.RFC3339), nil
}
