package environment

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/deskctl/internal/observability"
	"github.com/rs/zerolog/log"
)

// DBInfo describes the system database. Credentials are never included.
type DBInfo struct {
	Type     string `json:"type" yaml:"type"`
	Version  string `json:"version" yaml:"version"`
	Host     string `json:"host" yaml:"host"`
	Database string `json:"database" yaml:"database"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
}

func (p *Probe) DBInfo(ctx context.Context) (DBInfo, error) {
	if p.DB == nil {
		return DBInfo{}, ErrNoDatabase
	}
	start := time.Now()
	version, err := p.DB.Version(ctx)
	if err != nil {
		observability.RecordProbe("database", time.Since(start), false)
		log.Warn().Err(err).Msg("database probe failed")
		return DBInfo{}, fmt.Errorf("database version: %w", err)
	}
	observability.RecordProbe("database", time.Since(start), true)

	dsn := p.DB.Info()
	return DBInfo{
		Type:     p.DB.Dialect(),
		Version:  version,
		Host:     dsn.Host,
		Database: dsn.Database,
		User:     dsn.User,
	}, nil
}
