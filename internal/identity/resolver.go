package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

// ErrUserNotFound is returned when no user matches the authenticated email.
var ErrUserNotFound = errors.New("user not found")

// Directory loads a user together with its patient/doctor profile ids.
type Directory interface {
	PrincipalByEmail(ctx context.Context, email string) (*Principal, error)
}

// Cache keeps resolved principals between requests.
type Cache interface {
	Get(ctx context.Context, email string) (*Principal, bool, error)
	Set(ctx context.Context, p *Principal) error
	Invalidate(ctx context.Context, email string) error
}

// Resolver maps the session provider's email onto a Principal.
type Resolver struct {
	dir    Directory
	cache  Cache
	logger *logging.Logger
}

// NewResolver builds a resolver. cache may be nil.
func NewResolver(dir Directory, cache Cache, logger *logging.Logger) *Resolver {
	if dir == nil {
		panic("identity: directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{dir: dir, cache: cache, logger: logger}
}

// Resolve returns the principal for email or ErrUserNotFound.
func (r *Resolver) Resolve(ctx context.Context, email string) (*Principal, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrUserNotFound
	}

	if r.cache != nil {
		p, ok, err := r.cache.Get(ctx, email)
		if err != nil {
			// cache is best effort; fall through to the directory
			r.logger.Warn("identity cache read failed", "error", err)
		} else if ok {
			return p, nil
		}
	}

	p, err := r.dir.PrincipalByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("identity: resolve: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, p); err != nil {
			r.logger.Warn("identity cache write failed", "error", err, "user_id", p.UserID)
		}
	}
	return p, nil
}

// Forget drops a cached principal, e.g. after a patient profile was created for it.
func (r *Resolver) Forget(ctx context.Context, email string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, normalizeEmail(email)); err != nil {
		r.logger.Warn("identity cache invalidate failed", "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
