package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryRower is the slice of pgx the directory needs.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDirectory reads users and their role profiles.
type PostgresDirectory struct {
	db queryRower
}

// NewPostgresDirectory creates a directory backed by pgx pool.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	if pool == nil {
		panic("identity: pgx pool required")
	}
	return &PostgresDirectory{db: pool}
}

// NewPostgresDirectoryWithDB allows injecting a mock database for testing.
func NewPostgresDirectoryWithDB(db queryRower) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

const principalByEmailQuery = `
	SELECT u.id::text, u.email, u.name, u.role,
	       COALESCE(p.id::text, ''), COALESCE(d.id::text, '')
	FROM users u
	LEFT JOIN patients p ON p.user_id = u.id
	LEFT JOIN doctors d ON d.user_id = u.id
	WHERE lower(u.email) = $1
`

func (d *PostgresDirectory) PrincipalByEmail(ctx context.Context, email string) (*Principal, error) {
	var (
		p    Principal
		role string
	)
	err := d.db.QueryRow(ctx, principalByEmailQuery, email).Scan(
		&p.UserID, &p.Email, &p.Name, &role, &p.PatientID, &p.DoctorID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("identity: select principal: %w", err)
	}
	if p.Role, err = ParseRole(role); err != nil {
		return nil, err
	}
	return &p, nil
}
