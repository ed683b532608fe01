package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
	"lendingdesk/internal/store/memory"
)

func newTestService(t *testing.T, perMinute int) Service {
	t.Helper()
	log, _ := test.NewNullLogger()
	return NewService(memory.New(), log, perMinute)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, salt, err := hashPassword("s3cret")
	require.NoError(t, err)

	ok, err := verifyPassword("s3cret", salt, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword("S3cret", salt, hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	svc := newTestService(t, 100)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, NewUser{Username: "Adm", Password: "adm1", Confirm: "adm1", IsAdmin: true})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	user, err := svc.Authenticate(ctx, "adm", "adm1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.True(t, user.IsAdmin)

	_, err = svc.Authenticate(ctx, "adm", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "adm1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateUserValidation(t *testing.T) {
	svc := newTestService(t, 100)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, NewUser{Username: "u", Password: "abcd", Confirm: "abce"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.CreateUser(ctx, NewUser{Username: "u", Password: "abc", Confirm: "abc"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.CreateUser(ctx, NewUser{Password: "abcd", Confirm: "abcd"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.CreateUser(ctx, NewUser{Username: "user", Password: "abcd", Confirm: "abcd"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, NewUser{Username: "USER", Password: "abcd", Confirm: "abcd"})
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestInactiveUserCannotLogIn(t *testing.T) {
	svc := newTestService(t, 100)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, NewUser{Username: "user", Password: "user", Confirm: "user"})
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(ctx, "user", false))

	_, err = svc.Authenticate(ctx, "user", "user")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.ErrorIs(t, svc.SetActive(ctx, "ghost", false), errs.ErrNotFound)
}

func TestChangePasswordAndSetAdmin(t *testing.T) {
	svc := newTestService(t, 100)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, NewUser{Username: "user", Password: "user", Confirm: "user"})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, "user", "fresh", "fresh"))
	require.NoError(t, svc.SetAdmin(ctx, "user", true))

	user, err := svc.Authenticate(ctx, "user", "fresh")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
}

func TestLookupSeesCurrentState(t *testing.T) {
	svc := newTestService(t, 100)
	ctx := context.Background()

	_, err := svc.Lookup(ctx, "clerk")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	created, err := svc.CreateUser(ctx, NewUser{Username: "clerk", Password: "desk-pass", Confirm: "desk-pass", IsAdmin: true})
	require.NoError(t, err)
	require.NoError(t, svc.SetAdmin(ctx, "clerk", false))
	require.NoError(t, svc.SetActive(ctx, "clerk", false))

	user, err := svc.Lookup(ctx, " clerk ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.False(t, user.IsAdmin)
	assert.False(t, user.IsActive)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	svc := newTestService(t, 100)
	ctx := context.Background()

	created, err := svc.EnsureUser(ctx, "adm", "adm", true)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureUser(ctx, "adm", "other", true)
	require.NoError(t, err)
	assert.False(t, created)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAuthenticateIsRateLimited(t *testing.T) {
	svc := newTestService(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Authenticate(ctx, "nobody", "x")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := svc.Authenticate(ctx, "nobody", "x")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens([]byte("test-secret"), time.Hour)
	user := &model.User{ID: uuid.New(), Username: "adm", IsAdmin: true}

	raw, err := tokens.Issue(user)
	require.NoError(t, err)

	claims, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.True(t, claims.Admin)

	_, err = NewTokens([]byte("other"), time.Hour).Verify(raw)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tokens := NewTokens([]byte("test-secret"), time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }

	raw, err := tokens.Issue(&model.User{ID: uuid.New(), Username: "u"})
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	assert.Error(t, err)
}
