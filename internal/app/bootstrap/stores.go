package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/toothdoctor-api/internal/audit"
	"github.com/wolfman30/toothdoctor-api/internal/catalog"
	appconfig "github.com/wolfman30/toothdoctor-api/internal/config"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
	"github.com/wolfman30/toothdoctor-api/internal/memstore"
	"github.com/wolfman30/toothdoctor-api/internal/scheduling"
	"github.com/wolfman30/toothdoctor-api/internal/seed"
	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

// Stores groups the persistence backends the API server needs.
type Stores struct {
	Appointments scheduling.Store
	Catalog      catalog.Store
	Directory    identity.Directory
	Audit        audit.Lister

	// HealthCheck is nil for the in-memory backend.
	HealthCheck func(ctx context.Context) error
	Close       func()
}

// BuildStores selects the in-memory backend (seeded with the demo clinic) when
// USE_MEMORY_STORE is set, otherwise Postgres at DATABASE_URL.
func BuildStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	if cfg.UseMemoryStore {
		mem := memstore.New()
		if _, err := seed.Run(ctx, seed.NewMemoryTarget(mem), time.Now().UTC(), logger); err != nil {
			return nil, fmt.Errorf("bootstrap: seed memory store: %w", err)
		}
		logger.Warn("using in-memory store; data is lost on restart")
		return &Stores{
			Appointments: mem,
			Catalog:      mem,
			Directory:    mem,
			Audit:        mem.Audit(),
			Close:        func() {},
		}, nil
	}

	pool, err := ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to postgres")
	return &Stores{
		Appointments: scheduling.NewPostgresStore(pool),
		Catalog:      catalog.NewPostgresStore(pool),
		Directory:    identity.NewPostgresDirectory(pool),
		Audit:        audit.NewRecorder(pool),
		HealthCheck:  pool.Ping,
		Close:        pool.Close,
	}, nil
}
