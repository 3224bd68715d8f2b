// Package notification holds the Notification::* output plugins.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/deskctl/internal/config"
	"github.com/danmuck/deskctl/internal/layout"
	"github.com/danmuck/deskctl/internal/output"
	"github.com/danmuck/deskctl/internal/session"
)

const ModuleAgentSessionLimit = "Notification::AgentSessionLimit"

const (
	priorWarningMessage = "Please note that the session limit is almost reached (%d of %d agent sessions in use)."
	limitReachedMessage = "Session limit reached! Please log out when you no longer need this session (%d of %d agent sessions in use)."
)

var ErrNoSessionStore = errors.New("agent session limit: no session store")

// AgentSessionLimit warns agents when concurrent agent sessions approach the
// licensed limit. It returns "" unless enabled. Both thresholds render an
// Error notification carrying the active count and the limit.
type AgentSessionLimit struct {
	Limits      config.AgentSessionLimitConfig
	IdleTimeout time.Duration
	Sessions    session.Store
}

func NewAgentSessionLimit(cfg config.Config, store session.Store) *AgentSessionLimit {
	return &AgentSessionLimit{
		Limits:      cfg.Notification.AgentSessionLimit,
		IdleTimeout: cfg.Session.MaxIdleTime.Duration,
		Sessions:    store,
	}
}

var _ output.Notification = (*AgentSessionLimit)(nil)

func (p *AgentSessionLimit) Run(ctx context.Context, l *layout.Layout, cfg output.PluginConfig) (string, error) {
	if !p.Limits.Enabled {
		return "", nil
	}
	if p.Sessions == nil {
		return "", ErrNoSessionStore
	}

	active, err := p.Sessions.Active(ctx, session.UserTypeAgent, p.IdleTimeout)
	if err != nil {
		return "", fmt.Errorf("count agent sessions: %w", err)
	}

	var n layout.Notify
	switch {
	case p.Limits.Limit > 0 && active >= p.Limits.Limit:
		n = layout.Notify{
			Priority: layout.PriorityError,
			Data:     l.Translate(limitReachedMessage, active, p.Limits.Limit),
		}
	case p.Limits.PriorWarning > 0 && active >= p.Limits.PriorWarning:
		n = layout.Notify{
			Priority: layout.PriorityError,
			Data:     l.Translate(priorWarningMessage, active, p.Limits.Limit),
		}
	default:
		return "", nil
	}

	if msg := cfg.Param("Message", p.Limits.Message); msg != "" {
		n.Data = l.TranslateText(msg)
	}
	return l.Notify(n), nil
}
