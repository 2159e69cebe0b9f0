package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"authd/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	path := filepath.Join(t.TempDir(), "authd_test.db")
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	schema, err := os.ReadFile("../../../migrations/000001_init.up.sql")
	require.NoError(t, err)
	_, err = s.db.Exec(string(schema))
	require.NoError(t, err)

	return s
}

func saveTestUser(t *testing.T, s *Storage, username, email string) int64 {
	t.Helper()
	id, err := s.SaveUser(context.Background(), "Alice", "", "Smith", username, email, []byte("hash"))
	require.NoError(t, err)
	return id
}

func TestSaveUser_UniqueConstraints(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	saveTestUser(t, s, "alice", "alice@example.com")

	_, err := s.SaveUser(ctx, "Bob", "", "Jones", "alice", "bob@example.com", []byte("hash"))
	assert.ErrorIs(t, err, storage.ErrUserAlreadyExists)

	_, err = s.SaveUser(ctx, "Bob", "", "Jones", "bob", "alice@example.com", []byte("hash"))
	assert.ErrorIs(t, err, storage.ErrUserAlreadyExists)
}

func TestUserLookups(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	id := saveTestUser(t, s, "alice", "alice@example.com")

	byName, err := s.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)
	assert.Nil(t, byName.RefreshFingerprint)

	byID, err := s.UserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = s.UserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestRefreshFingerprintLifecycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	id := saveTestUser(t, s, "alice", "alice@example.com")

	fp := "fingerprint-one"
	require.NoError(t, s.SetRefreshFingerprint(ctx, id, &fp))

	found, err := s.UserByRefreshFingerprint(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)

	// rotation succeeds only against the current value
	require.NoError(t, s.RotateRefreshFingerprint(ctx, id, "fingerprint-one", "fingerprint-two"))
	err = s.RotateRefreshFingerprint(ctx, id, "fingerprint-one", "fingerprint-three")
	assert.ErrorIs(t, err, storage.ErrSessionRotated)

	_, err = s.UserByRefreshFingerprint(ctx, "fingerprint-one")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	cleared, err := s.ClearRefreshFingerprint(ctx, "fingerprint-two")
	require.NoError(t, err)
	assert.True(t, cleared)

	cleared, err = s.ClearRefreshFingerprint(ctx, "fingerprint-two")
	require.NoError(t, err)
	assert.False(t, cleared)

	user, err := s.UserByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, user.RefreshFingerprint)
}

func TestUpdatePassword_ClearsSession(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	id := saveTestUser(t, s, "alice", "alice@example.com")
	fp := "fingerprint"
	require.NoError(t, s.SetRefreshFingerprint(ctx, id, &fp))

	require.NoError(t, s.UpdatePassword(ctx, id, []byte("new-hash")))

	user, err := s.UserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("new-hash"), user.PassHash)
	assert.Nil(t, user.RefreshFingerprint)
}

func TestDeleteUser_Atomic(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	id := saveTestUser(t, s, "alice", "alice@example.com")
	fp := "fingerprint"
	require.NoError(t, s.SetRefreshFingerprint(ctx, id, &fp))
	_, err := s.SaveTodo(ctx, id, "buy milk")
	require.NoError(t, err)
	_, err = s.SaveTodo(ctx, id, "walk dog")
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, id))

	_, err = s.UserByID(ctx, id)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	// no dangling session reference survives the delete
	_, err = s.UserByRefreshFingerprint(ctx, fp)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM todos WHERE user_id = ?", id).Scan(&count))
	assert.Zero(t, count)

	assert.ErrorIs(t, s.DeleteUser(ctx, id), storage.ErrUserNotFound)
}

func TestTodos(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	id := saveTestUser(t, s, "alice", "alice@example.com")
	other := saveTestUser(t, s, "bob", "bob@example.com")

	todoID, err := s.SaveTodo(ctx, id, "buy milk")
	require.NoError(t, err)

	todos, err := s.Todos(ctx, id)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "buy milk", todos[0].Task)
	assert.False(t, todos[0].Completed)

	toggled, err := s.ToggleTodo(ctx, id, todoID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	// ownership enforced: another user cannot touch it
	_, err = s.ToggleTodo(ctx, other, todoID)
	assert.ErrorIs(t, err, storage.ErrTodoNotFound)
	assert.ErrorIs(t, s.DeleteTodo(ctx, other, todoID), storage.ErrTodoNotFound)

	require.NoError(t, s.DeleteTodo(ctx, id, todoID))
	todos, err = s.Todos(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, todos)
}
