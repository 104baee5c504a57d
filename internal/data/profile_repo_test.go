package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
	apperrors "github.com/purumi/purumi/internal/errors"
	"github.com/purumi/purumi/internal/testutil"
)

func TestProfileRepo_UpsertValidation(t *testing.T) {
	repo := NewProfileRepo(nil)
	ctx := context.Background()

	err := repo.UpsertProfile(ctx, domainauth.Profile{Email: "a@b.co"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	err = repo.UpsertProfile(ctx, domainauth.Profile{UserID: "u1", BirthDate: "1990/01/01"})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "birth_date", appErr.Field)

	exists, err := repo.EmailExists(ctx, "  ")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProfileRepo_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewProfileRepoWithClock(db, testutil.FixedTimeFunc(testutil.TestTime()))
	ctx := context.Background()

	exists, err := repo.EmailExists(ctx, "new@b.co")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.UpsertProfile(ctx, domainauth.Profile{
		UserID:    "u1",
		Email:     "New@B.co",
		Name:      "홍길동",
		Phone:     "010-1234-5678",
		BirthDate: "1990-05-01",
		Gender:    "female",
		Marketing: true,
	}))

	exists, err = repo.EmailExists(ctx, "NEW@b.co")
	require.NoError(t, err)
	assert.True(t, exists, "email lookup ignores case")

	// empty fields keep what is stored
	require.NoError(t, repo.UpsertProfile(ctx, domainauth.Profile{UserID: "u1", Phone: "010-0000-0000"}))
	p, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new@b.co", p.Email)
	assert.Equal(t, "홍길동", p.Name)
	assert.Equal(t, "010-0000-0000", p.Phone)
	assert.Equal(t, "1990-05-01", p.BirthDate)
	assert.Equal(t, "female", p.Gender)
	assert.False(t, p.Marketing)

	err = repo.UpsertProfile(ctx, domainauth.Profile{UserID: "u2", Email: "new@b.co"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	err = repo.UpsertProfile(ctx, domainauth.Profile{UserID: "u3", Email: "c@b.co", Gender: "unknown"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = repo.GetProfile(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}
