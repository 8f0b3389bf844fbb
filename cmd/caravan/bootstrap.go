package main

import (
	"github.com/dustin/go-humanize"

	"github.com/modfoundry/caravan/pkg/caravan/config"
	"github.com/modfoundry/caravan/pkg/caravan/logging"
)

// parseRotationConfig converts the file rotation settings, turning the
// human-readable size string into bytes. An empty or malformed size
// leaves MaxSize zero so the logging default applies.
func parseRotationConfig(in config.RotationConfig) logging.RotationConfig {
	out := logging.RotationConfig{
		MaxAge:     in.MaxAge,
		MaxBackups: in.MaxBackups,
		Daily:      in.Daily,
	}
	if in.MaxSize != "" {
		if size, err := humanize.ParseBytes(in.MaxSize); err == nil {
			out.MaxSize = int64(size)
		}
	}
	return out
}
