package observability

import (
	"sync"

	"github.com/danmuck/deskctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var tagOnce sync.Once

// InitLogger configures the runtime logging profile and tags it with app.
// Only the first call tags the logger.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	tagOnce.Do(func() {
		log.Logger = log.Logger.With().Str("app", app).Logger()
	})
	return log.Logger
}
