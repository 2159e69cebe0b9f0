package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"authd/internal/domain/models"
	"authd/internal/lib/jwt"
	"authd/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory stand-in for the credential store with the same
// atomicity rules: rotation only applies when the stored fingerprint still
// matches.
type fakeStore struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*models.User)}
}

func (f *fakeStore) SaveUser(
	_ context.Context,
	firstName, middleName, lastName, username, email string,
	passHash []byte,
) (int64, error) {
	for _, u := range f.users {
		if u.Username == username || u.Email == email {
			return 0, storage.ErrUserAlreadyExists
		}
	}
	f.nextID++
	f.users[f.nextID] = &models.User{
		ID:         f.nextID,
		FirstName:  firstName,
		MiddleName: middleName,
		LastName:   lastName,
		Username:   username,
		Email:      email,
		PassHash:   passHash,
	}
	return f.nextID, nil
}

func (f *fakeStore) UserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeStore) UserByRefreshFingerprint(_ context.Context, fingerprint string) (*models.User, error) {
	for _, u := range f.users {
		if u.RefreshFingerprint != nil && *u.RefreshFingerprint == fingerprint {
			clone := *u
			return &clone, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeStore) SetRefreshFingerprint(_ context.Context, userID int64, fingerprint *string) error {
	u, ok := f.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.RefreshFingerprint = fingerprint
	return nil
}

func (f *fakeStore) RotateRefreshFingerprint(_ context.Context, userID int64, oldFingerprint, newFingerprint string) error {
	u, ok := f.users[userID]
	if !ok || u.RefreshFingerprint == nil || *u.RefreshFingerprint != oldFingerprint {
		return storage.ErrSessionRotated
	}
	u.RefreshFingerprint = &newFingerprint
	return nil
}

func (f *fakeStore) ClearRefreshFingerprint(_ context.Context, fingerprint string) (bool, error) {
	for _, u := range f.users {
		if u.RefreshFingerprint != nil && *u.RefreshFingerprint == fingerprint {
			u.RefreshFingerprint = nil
			return true, nil
		}
	}
	return false, nil
}

func newTestAuth(t *testing.T, store *fakeStore) *Auth {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec := jwt.NewCodec("test-secret")
	return New(logger, store, store, store, codec, 15*time.Minute, 7*24*time.Hour)
}

func registerUser(t *testing.T, a *Auth, username, password string) int64 {
	t.Helper()
	id, err := a.Register(context.Background(),
		gofakeit.FirstName(), "", gofakeit.LastName(), username, gofakeit.Email(), password)
	require.NoError(t, err)
	return id
}

func TestRegister_Duplicate(t *testing.T) {
	store := newFakeStore()
	a := newTestAuth(t, store)

	registerUser(t, a, "alice", "Abcd1234!")
	_, err := a.Register(context.Background(),
		"Alice", "", "Smith", "alice", gofakeit.Email(), "Abcd1234!")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLogin_SetsSingleFingerprint(t *testing.T) {
	store := newFakeStore()
	a := newTestAuth(t, store)
	id := registerUser(t, a, "alice", "Abcd1234!")

	pair, user, err := a.Login(context.Background(), "alice", "Abcd1234!")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "alice", user.Username)

	stored := store.users[id].RefreshFingerprint
	require.NotNil(t, stored)
	assert.Equal(t, Fingerprint(pair.RefreshToken), *stored)
}

func TestLogin_UnknownUser(t *testing.T) {
	a := newTestAuth(t, newFakeStore())

	_, _, err := a.Login(context.Background(), "nobody", "Abcd1234!")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newFakeStore()
	a := newTestAuth(t, store)
	id := registerUser(t, a, "alice", "Abcd1234!")

	_, _, err := a.Login(context.Background(), "alice", "Wrong1234!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, store.users[id].RefreshFingerprint)
}

func TestLogin_SupersedesPriorSession(t *testing.T) {
	store := newFakeStore()
	a := newTestAuth(t, store)
	registerUser(t, a, "alice", "Abcd1234!")

	first, _, err := a.Login(context.Background(), "alice", "Abcd1234!")
	require.NoError(t, err)
	_, _, err = a.Login(context.Background(), "alice", "Abcd1234!")
	require.NoError(t, err)

	// the first session's refresh token no longer matches any fingerprint
	_, err = a.Refresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_RotatesAndInvalidatesOldToken(t *testing.T) {
	store := newFakeStore()
	a := newTestAuth(t, store)
	id := registerUser(t, a, "alice", "Abcd1234!")

	t1, _, err := a.Login(context.Background(), "alice", "Abcd1234!")
	require.NoError(t, err)

	t2, err := a.Refresh(context.Background(), t1.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, t2.AccessToken)
	require.NotEmpty(t, t2.RefreshToken)
	assert.NotEqual(t, t1.RefreshToken, t2.RefreshToken)

	stored := store.users[id].RefreshFingerprint
	require.NotNil(t, stored)
	assert.Equal(t, Fingerprint(t2.RefreshToken), *stored)

	// replaying the superseded token is rejected without touching state
	_, err = a.Refresh(context.Background(), t1.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.Equal(t, Fingerprint(t2.RefreshToken), *store.users[id].RefreshFingerprint)
}

func TestRefresh_NeverIssuedToken(t *testing.T) {
	store := newFakeStore()
	a := newTestAuth(t, store)
	id := registerUser(t, a, "alice", "Abcd1234!")

	pair, _, err := a.Login(context.Background(), "alice", "Abcd1234!")
	require.NoError(t, err)

	_, err = a.Refresh(context.Background(), "never-issued-token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.Equal(t, Fingerprint(pair.RefreshToken), *store.users[id].RefreshFingerprint)
}

func TestRefresh_MatchedButUnverifiableTokenClearsSession(t *testing.T) {
	store := newFakeStore()
	a := newTestAuth(t, store)
	id := registerUser(t, a, "alice", "Abcd1234!")

	// plant a fingerprint of a token signed with a different secret: lookup
	// matches, codec verification fails
	foreign, err := jwt.NewCodec("other-secret").Generate(&models.User{ID: id, Username: "alice"}, time.Hour)
	require.NoError(t, err)
	fp := Fingerprint(foreign)
	store.users[id].RefreshFingerprint = &fp

	_, err = a.Refresh(context.Background(), foreign)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalidated)
	assert.Nil(t, store.users[id].RefreshFingerprint)
}

func TestRefresh_ExpiredTokenClearsSession(t *testing.T) {
	store := newFakeStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec := jwt.NewCodec("test-secret")
	// refresh tokens that are already expired when minted
	a := New(logger, store, store, store, codec, 15*time.Minute, -time.Minute)

	registerUser(t, a, "alice", "Abcd1234!")
	pair, user, err := a.Login(context.Background(), "alice", "Abcd1234!")
	require.NoError(t, err)

	_, err = a.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalidated)
	assert.Nil(t, store.users[user.ID].RefreshFingerprint)
}

func TestLogout(t *testing.T) {
	store := newFakeStore()
	a := newTestAuth(t, store)
	id := registerUser(t, a, "alice", "Abcd1234!")

	pair, _, err := a.Login(context.Background(), "alice", "Abcd1234!")
	require.NoError(t, err)

	require.NoError(t, a.Logout(context.Background(), pair.RefreshToken))
	assert.Nil(t, store.users[id].RefreshFingerprint)

	// the same token is now stale for both logout and refresh
	assert.ErrorIs(t, a.Logout(context.Background(), pair.RefreshToken), ErrInvalidRefreshToken)
	_, err = a.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAccessToken_SurvivesLogout(t *testing.T) {
	store := newFakeStore()
	a := newTestAuth(t, store)
	registerUser(t, a, "alice", "Abcd1234!")

	pair, _, err := a.Login(context.Background(), "alice", "Abcd1234!")
	require.NoError(t, err)
	require.NoError(t, a.Logout(context.Background(), pair.RefreshToken))

	// access tokens are stateless: still valid until expiry
	claims, err := jwt.NewCodec("test-secret").Parse(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestSessionLifecycleScenario(t *testing.T) {
	store := newFakeStore()
	a := newTestAuth(t, store)
	ctx := context.Background()

	registerUser(t, a, "alice", "Abcd1234!")

	t1, _, err := a.Login(ctx, "alice", "Abcd1234!")
	require.NoError(t, err)

	t2, err := a.Refresh(ctx, t1.RefreshToken)
	require.NoError(t, err)

	_, err = a.Refresh(ctx, t1.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	require.NoError(t, a.Logout(ctx, t2.RefreshToken))

	_, err = a.Refresh(ctx, t2.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestFingerprint_Deterministic(t *testing.T) {
	assert.Equal(t, Fingerprint("token"), Fingerprint("token"))
	assert.NotEqual(t, Fingerprint("token"), Fingerprint("token2"))
	assert.Len(t, Fingerprint("token"), 64)
}
