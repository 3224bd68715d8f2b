package output

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/deskctl/internal/layout"
	"github.com/danmuck/deskctl/internal/observability"
	"github.com/rs/zerolog/log"
)

var (
	ErrPluginExists  = errors.New("plugin already registered")
	ErrPluginNil     = errors.New("plugin is nil")
	ErrInvalidModule = errors.New("invalid plugin module name")
)

type headerEntry struct {
	cfg    PluginConfig
	plugin HeaderMeta
}

type notificationEntry struct {
	cfg    PluginConfig
	plugin Notification
}

// Registry stores output plugins by module name.
type Registry struct {
	mu            sync.RWMutex
	headers       map[string]headerEntry
	notifications map[string]notificationEntry
}

func NewRegistry() *Registry {
	return &Registry{
		headers:       make(map[string]headerEntry),
		notifications: make(map[string]notificationEntry),
	}
}

// ValidateModule checks a "<Kind>::<Name>" module identifier.
func ValidateModule(kind, module string) error {
	name, ok := strings.CutPrefix(module, kind+"::")
	if !ok || name == "" {
		return fmt.Errorf("%w: %q must be %s::<Name>", ErrInvalidModule, module, kind)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if !(isAlpha || isDigit) {
			return fmt.Errorf("%w: %q", ErrInvalidModule, module)
		}
	}
	return nil
}

func (r *Registry) RegisterHeaderMeta(cfg PluginConfig, p HeaderMeta) error {
	if p == nil {
		return ErrPluginNil
	}
	if err := ValidateModule(KindHeaderMeta, cfg.Module); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.headers[cfg.Module]; ok {
		return fmt.Errorf("%w: %s", ErrPluginExists, cfg.Module)
	}
	r.headers[cfg.Module] = headerEntry{cfg: cfg, plugin: p}
	return nil
}

func (r *Registry) RegisterNotification(cfg PluginConfig, p Notification) error {
	if p == nil {
		return ErrPluginNil
	}
	if err := ValidateModule(KindNotification, cfg.Module); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notifications[cfg.Module]; ok {
		return fmt.Errorf("%w: %s", ErrPluginExists, cfg.Module)
	}
	r.notifications[cfg.Module] = notificationEntry{cfg: cfg, plugin: p}
	return nil
}

// Config returns the registered configuration of a module.
func (r *Registry) Config(module string) (PluginConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.headers[module]; ok {
		return e.cfg, true
	}
	if e, ok := r.notifications[module]; ok {
		return e.cfg, true
	}
	return PluginConfig{}, false
}

// Modules lists every registered module name in order.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.headers)+len(r.notifications))
	for name := range r.headers {
		out = append(out, name)
	}
	for name := range r.notifications {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RunHeaderMeta runs every enabled header plugin in module order. A failing
// plugin is logged and skipped; the joined failures are returned.
func (r *Registry) RunHeaderMeta(ctx context.Context, l *layout.Layout) error {
	r.mu.RLock()
	entries := make([]headerEntry, 0, len(r.headers))
	for _, e := range r.headers {
		entries = append(entries, e)
	}
	r.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].cfg.Module < entries[j].cfg.Module })

	var errs []error
	for _, e := range entries {
		if !e.cfg.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.plugin.Run(ctx, l, e.cfg); err != nil {
			observability.RecordPluginRun(e.cfg.Module, "error")
			log.Error().Str("module", e.cfg.Module).Err(err).Msg("header meta plugin failed")
			errs = append(errs, fmt.Errorf("%s: %w", e.cfg.Module, err))
			continue
		}
		observability.RecordPluginRun(e.cfg.Module, "ok")
	}
	return errors.Join(errs...)
}

// RunNotifications runs every enabled notification plugin in module order and
// collects the non-empty results.
func (r *Registry) RunNotifications(ctx context.Context, l *layout.Layout) ([]string, error) {
	r.mu.RLock()
	entries := make([]notificationEntry, 0, len(r.notifications))
	for _, e := range r.notifications {
		entries = append(entries, e)
	}
	r.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].cfg.Module < entries[j].cfg.Module })

	var out []string
	var errs []error
	for _, e := range entries {
		if !e.cfg.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		html, err := e.plugin.Run(ctx, l, e.cfg)
		if err != nil {
			observability.RecordPluginRun(e.cfg.Module, "error")
			log.Error().Str("module", e.cfg.Module).Err(err).Msg("notification plugin failed")
			errs = append(errs, fmt.Errorf("%s: %w", e.cfg.Module, err))
			continue
		}
		if html == "" {
			observability.RecordPluginRun(e.cfg.Module, "empty")
			continue
		}
		observability.RecordPluginRun(e.cfg.Module, "ok")
		out = append(out, html)
	}
	return out, errors.Join(errs...)
}
