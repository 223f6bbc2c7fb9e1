// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrScottSevenoaks/autism-tools/internal/auth"
	"github.com/MrScottSevenoaks/autism-tools/pkg/errutil"
)

var userColumns = []string{"id", "email", "password_hash", "first_name", "last_name", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock, NewUserRepository(mock)
}

func testUser(t *testing.T) *auth.User {
	t.Helper()
	user, err := auth.NewUser("Ada@Example.com", "Ada", "Lovelace", "$argon2id$hash")
	require.NoError(t, err)
	return user
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface, user *auth.User)
		wantCode  string
		wantIs    error
	}{
		{
			name: "inserts user",
			setupMock: func(mock pgxmock.PgxPoolIface, user *auth.User) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(user.ID.String(), "ada@example.com", "$argon2id$hash", "Ada", "Lovelace", user.CreatedAt, user.UpdatedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "unique violation is duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface, _ *auth.User) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})
			},
			wantCode: "USER_DUPLICATE_EMAIL",
			wantIs:   auth.ErrDuplicateEmail,
		},
		{
			name: "other database error",
			setupMock: func(mock pgxmock.PgxPoolIface, _ *auth.User) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "USER_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMockRepo(t)
			user := testUser(t)
			tt.setupMock(mock, user)

			err := repo.Create(ctx, user)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
			if tt.wantIs != nil {
				assert.True(t, errors.Is(err, tt.wantIs))
			} else {
				assert.False(t, errors.Is(err, auth.ErrDuplicateEmail))
			}
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("normalizes lookup key", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`FROM users WHERE email =`).
			WithArgs("user@example.com").
			WillReturnRows(pgxmock.NewRows(userColumns).
				AddRow(id.String(), "user@example.com", "hash", "Ada", "Lovelace", created, created))

		user, err := repo.GetByEmail(ctx, "  User@Example.com ")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "user@example.com", user.Email)
		assert.Equal(t, "hash", user.PasswordHash)
		assert.Equal(t, "Ada", user.FirstName)
		assert.Equal(t, "Lovelace", user.LastName)
		assert.Equal(t, created, user.CreatedAt)
	})

	t.Run("absent email is not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`FROM users WHERE email =`).
			WithArgs("nobody@example.com").
			WillReturnRows(pgxmock.NewRows(userColumns))

		user, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.Nil(t, user)
		assert.True(t, errors.Is(err, auth.ErrNotFound))
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})

	t.Run("query failure", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`FROM users WHERE email =`).
			WithArgs("user@example.com").
			WillReturnError(errors.New("connection refused"))

		_, err := repo.GetByEmail(ctx, "user@example.com")
		require.Error(t, err)
		assert.False(t, errors.Is(err, auth.ErrNotFound))
		errutil.AssertErrorCode(t, err, "USER_GET_BY_EMAIL_FAILED")
	})

	t.Run("corrupt id", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`FROM users WHERE email =`).
			WithArgs("user@example.com").
			WillReturnRows(pgxmock.NewRows(userColumns).
				AddRow("not-a-ulid", "user@example.com", "hash", "Ada", "Lovelace", created, created))

		_, err := repo.GetByEmail(ctx, "user@example.com")
		require.Error(t, err)
		assert.False(t, errors.Is(err, auth.ErrNotFound))
		// oops reports the innermost code
		errutil.AssertErrorCode(t, err, "USER_INVALID_ID")
	})
}

func TestUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`FROM users WHERE id =`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows(userColumns).
				AddRow(id.String(), "user@example.com", "hash", "Ada", "Lovelace", created, created))

		user, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`FROM users WHERE id =`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows(userColumns))

		_, err := repo.GetByID(ctx, id)
		assert.True(t, errors.Is(err, auth.ErrNotFound))
		errutil.AssertErrorContext(t, err, "id", id.String())
	})
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("updates hash", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec(`UPDATE users SET password_hash`).
			WithArgs(id.String(), "new-hash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdatePassword(ctx, id, "new-hash"))
	})

	t.Run("missing user", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec(`UPDATE users SET password_hash`).
			WithArgs(id.String(), "new-hash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdatePassword(ctx, id, "new-hash")
		assert.True(t, errors.Is(err, auth.ErrNotFound))
	})

	t.Run("database error", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec(`UPDATE users SET password_hash`).
			WithArgs(id.String(), "new-hash", pgxmock.AnyArg()).
			WillReturnError(errors.New("deadlock detected"))

		err := repo.UpdatePassword(ctx, id, "new-hash")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_UPDATE_PASSWORD_FAILED")
	})
}
