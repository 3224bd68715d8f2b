package output

import (
	"context"

	"github.com/danmuck/deskctl/internal/layout"
)

const (
	KindHeaderMeta   = "HeaderMeta"
	KindNotification = "Notification"
)

// PluginConfig is the per-module configuration handed to a plugin run.
type PluginConfig struct {
	Module  string
	Enabled bool
	Params  map[string]string
}

// Param returns a parameter or fallback when it is unset or blank.
func (c PluginConfig) Param(key, fallback string) string {
	if v, ok := c.Params[key]; ok && v != "" {
		return v
	}
	return fallback
}

// HeaderMeta plugins add blocks (meta links) to the page header.
type HeaderMeta interface {
	Run(ctx context.Context, l *layout.Layout, cfg PluginConfig) error
}

// Notification plugins return a rendered notification, or "" for none.
type Notification interface {
	Run(ctx context.Context, l *layout.Layout, cfg PluginConfig) (string, error)
}
