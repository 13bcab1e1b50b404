package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

type stubDirectory struct {
	principals map[string]*Principal
	calls      int
	err        error
}

func (s *stubDirectory) PrincipalByEmail(ctx context.Context, email string) (*Principal, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.principals[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" staff_admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleStaffAdmin, role)

	_, err = ParseRole("RECEPTIONIST")
	assert.Error(t, err)
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	ctx := WithPrincipal(context.Background(), &Principal{UserID: "u-1", Role: RolePatient})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u-1", p.UserID)

	_, ok = PrincipalFromContext(context.Background())
	assert.False(t, ok)

	_, ok = PrincipalFromContext(WithPrincipal(context.Background(), &Principal{}))
	assert.False(t, ok, "principal without user id must not count as authenticated")
}

func TestResolverNormalizesEmailAndCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, time.Minute)

	dir := &stubDirectory{principals: map[string]*Principal{
		"john.doe@example.com": {UserID: "u-1", Email: "john.doe@example.com", Role: RolePatient, PatientID: "p-1"},
	}}
	resolver := NewResolver(dir, cache, logging.New("error"))

	p, err := resolver.Resolve(context.Background(), "  John.Doe@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.PatientID)

	p, err = resolver.Resolve(context.Background(), "john.doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.UserID)
	assert.Equal(t, 1, dir.calls, "second lookup should be served from cache")
	assert.True(t, mr.Exists("identity:principal:john.doe@example.com"))
	assert.Equal(t, time.Minute, mr.TTL("identity:principal:john.doe@example.com"))

	resolver.Forget(context.Background(), "JOHN.DOE@example.com")
	assert.False(t, mr.Exists("identity:principal:john.doe@example.com"))

	_, err = resolver.Resolve(context.Background(), "john.doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, dir.calls)
}

func TestResolverUnknownUser(t *testing.T) {
	resolver := NewResolver(&stubDirectory{}, nil, logging.New("error"))

	_, err := resolver.Resolve(context.Background(), "nobody@nowhere.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = resolver.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestResolverWrapsDirectoryFailure(t *testing.T) {
	resolver := NewResolver(&stubDirectory{err: errors.New("connection reset")}, nil, nil)

	_, err := resolver.Resolve(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	assert.Contains(t, err.Error(), "identity: resolve")
}

func TestResolverSurvivesCacheOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, time.Minute)
	mr.Close()

	dir := &stubDirectory{principals: map[string]*Principal{
		"admin@toothdoctor.com": {UserID: "u-9", Email: "admin@toothdoctor.com", Role: RoleStaffAdmin},
	}}
	resolver := NewResolver(dir, cache, logging.New("error"))

	p, err := resolver.Resolve(context.Background(), "admin@toothdoctor.com")
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
}

func TestPostgresDirectoryPrincipalByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := NewPostgresDirectoryWithDB(mock)

	mock.ExpectQuery(`SELECT u.id::text, u.email, u.name, u.role`).
		WithArgs("sarah.johnson@toothdoctor.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "name", "role", "patient_id", "doctor_id"}).
			AddRow("u-2", "sarah.johnson@toothdoctor.com", "Sarah Johnson", "DOCTOR", "", "d-1"))

	p, err := dir.PrincipalByEmail(context.Background(), "sarah.johnson@toothdoctor.com")
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, p.Role)
	assert.True(t, p.HasDoctorProfile())
	assert.False(t, p.HasPatientProfile())

	mock.ExpectQuery(`SELECT u.id`).
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)
	_, err = dir.PrincipalByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRoundTrip(t *testing.T) {
	raw, err := IssueToken("secret", "jane.smith@example.com", time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(raw, "secret")
	require.NoError(t, err)
	assert.Equal(t, "jane.smith@example.com", claims.Email)

	_, err = ParseToken(raw, "other-secret")
	assert.Error(t, err)

	expired, err := IssueToken("secret", "jane.smith@example.com", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, "secret")
	assert.Error(t, err)

	noEmail, err := IssueToken("secret", "", time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(noEmail, "secret")
	assert.ErrorIs(t, err, ErrBadToken)
}
