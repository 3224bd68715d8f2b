// Package app wires the system objects into the object manager.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/deskctl/internal/config"
	"github.com/danmuck/deskctl/internal/db"
	"github.com/danmuck/deskctl/internal/environment"
	"github.com/danmuck/deskctl/internal/i18n"
	"github.com/danmuck/deskctl/internal/objectmanager"
	"github.com/danmuck/deskctl/internal/output"
	"github.com/danmuck/deskctl/internal/output/headermeta"
	"github.com/danmuck/deskctl/internal/output/notification"
	"github.com/danmuck/deskctl/internal/sanity"
	"github.com/danmuck/deskctl/internal/session"
)

const (
	ObjectConfig      = "config"
	ObjectDB          = "db"
	ObjectI18n        = "i18n"
	ObjectSessions    = "session.store"
	ObjectEnvironment = "environment"
	ObjectOutputs     = "output.registry"
)

const dbOpenTimeout = 5 * time.Second

// App owns the object manager for one process.
type App struct {
	Config  config.Config
	Objects *objectmanager.Manager
}

// New registers every object and verifies the dependency declarations.
// Nothing is built until first use.
func New(cfg config.Config) (*App, error) {
	om := objectmanager.New()
	if err := om.Set(ObjectConfig, cfg); err != nil {
		return nil, err
	}

	specs := map[string]objectmanager.Spec{
		ObjectDB: {
			Dependencies: []string{ObjectConfig},
			New: func(r objectmanager.Resolver) (any, error) {
				cfg, err := objectmanager.Typed[config.Config](r, ObjectConfig)
				if err != nil {
					return nil, err
				}
				ctx, cancel := context.WithTimeout(context.Background(), dbOpenTimeout)
				defer cancel()
				return db.Open(ctx, cfg.Database)
			},
		},
		ObjectI18n: {
			New: func(objectmanager.Resolver) (any, error) {
				return i18n.LoadEmbedded()
			},
		},
		ObjectSessions: sessionSpec(cfg),
		ObjectEnvironment: {
			Dependencies: []string{ObjectConfig},
			// The database is resolved per probe so an unreachable
			// server shows up in the report instead of failing it.
			Lazy: []string{ObjectDB},
			New: func(r objectmanager.Resolver) (any, error) {
				cfg, err := objectmanager.Typed[config.Config](r, ObjectConfig)
				if err != nil {
					return nil, err
				}
				return environment.New(cfg, &lazyDatabase{r: r, cfg: cfg.Database}), nil
			},
		},
		ObjectOutputs: {
			Dependencies: []string{ObjectConfig, ObjectSessions},
			New: func(r objectmanager.Resolver) (any, error) {
				cfg, err := objectmanager.Typed[config.Config](r, ObjectConfig)
				if err != nil {
					return nil, err
				}
				store, err := objectmanager.Typed[session.Store](r, ObjectSessions)
				if err != nil {
					return nil, err
				}
				return newOutputRegistry(cfg, store)
			},
		},
	}
	for name, spec := range specs {
		if err := om.Register(name, spec); err != nil {
			return nil, err
		}
	}
	if err := sanity.CheckObjectDependencies(om); err != nil {
		return nil, err
	}
	return &App{Config: cfg, Objects: om}, nil
}

func sessionSpec(cfg config.Config) objectmanager.Spec {
	if cfg.Session.Store == config.SessionStoreDatabase {
		return objectmanager.Spec{
			Dependencies: []string{ObjectDB},
			New: func(r objectmanager.Resolver) (any, error) {
				handle, err := objectmanager.Typed[*db.DB](r, ObjectDB)
				if err != nil {
					return nil, err
				}
				return session.Store(session.NewSQLStore(handle)), nil
			},
		}
	}
	return objectmanager.Spec{
		New: func(objectmanager.Resolver) (any, error) {
			return session.Store(session.NewMemoryStore()), nil
		},
	}
}

func newOutputRegistry(cfg config.Config, store session.Store) (*output.Registry, error) {
	reg := output.NewRegistry()
	search := cfg.HeaderMeta.AgentTicketSearch
	err := reg.RegisterHeaderMeta(output.PluginConfig{
		Module:  headermeta.ModuleAgentTicketSearch,
		Enabled: search.Enabled,
		Params:  map[string]string{"Action": search.Action},
	}, headermeta.NewAgentTicketSearch(cfg))
	if err != nil {
		return nil, err
	}
	// Always registered; the plugin itself returns nothing unless enabled.
	err = reg.RegisterNotification(output.PluginConfig{
		Module:  notification.ModuleAgentSessionLimit,
		Enabled: true,
		Params:  map[string]string{"Message": cfg.Notification.AgentSessionLimit.Message},
	}, notification.NewAgentSessionLimit(cfg, store))
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (a *App) Environment() (*environment.Probe, error) {
	return objectmanager.Typed[*environment.Probe](a.Objects, ObjectEnvironment)
}

func (a *App) Outputs() (*output.Registry, error) {
	return objectmanager.Typed[*output.Registry](a.Objects, ObjectOutputs)
}

func (a *App) Translator() (*i18n.Translator, error) {
	return objectmanager.Typed[*i18n.Translator](a.Objects, ObjectI18n)
}

func (a *App) Sessions() (session.Store, error) {
	return objectmanager.Typed[session.Store](a.Objects, ObjectSessions)
}

// Close releases every built object, including the database handle.
func (a *App) Close() error {
	return a.Objects.Close()
}

// lazyDatabase opens the system database on first version probe.
type lazyDatabase struct {
	r   objectmanager.Resolver
	cfg config.DatabaseConfig
}

func (l *lazyDatabase) Dialect() string {
	return db.DialectOf(l.cfg.Driver)
}

func (l *lazyDatabase) Info() db.DSNInfo {
	info, _ := db.ParseDSN(l.cfg.Driver, l.cfg.DSN)
	return info
}

func (l *lazyDatabase) Version(ctx context.Context) (string, error) {
	handle, err := objectmanager.Typed[*db.DB](l.r, ObjectDB)
	if err != nil {
		return "", fmt.Errorf("open database: %w", err)
	}
	return handle.Version(ctx)
}
