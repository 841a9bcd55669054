package deps

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/subwatch/subwatch/internal/domain"
	"github.com/subwatch/subwatch/internal/logger"
	"github.com/subwatch/subwatch/internal/monitor"
)

// Records is the read surface the API needs from the hostname store.
type Records interface {
	AllForDomain(ctx context.Context, domainName string) ([]domain.Record, error)
	CountForDomain(ctx context.Context, domainName string) (int, error)
}

// Liveness reports whether a domain currently resolves and answers HTTP.
type Liveness interface {
	IsActive(ctx context.Context, domainName string) bool
}

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	Scheduler *monitor.Scheduler
	Records   Records
	Liveness  Liveness // nil when liveness checking is disabled

	DB          *sql.DB       // for readiness pings
	RedisClient *redis.Client // nil when the liveness cache is disabled
}
