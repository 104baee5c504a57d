package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/purumi/purumi/internal/data/pgxutil"
	domainauth "github.com/purumi/purumi/internal/domain/auth"
	apperrors "github.com/purumi/purumi/internal/errors"
	"github.com/purumi/purumi/internal/ports"
)

var _ ports.ProfileStore = (*ProfileRepo)(nil)

// ProfileRepo stores account profiles in the profiles table.
type ProfileRepo struct {
	DB  *sql.DB
	now func() time.Time
}

// NewProfileRepo creates a ProfileRepo.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, now: time.Now}
}

// NewProfileRepoWithClock creates a ProfileRepo with a custom clock (useful for tests).
func NewProfileRepoWithClock(db *sql.DB, now func() time.Time) *ProfileRepo {
	return &ProfileRepo{DB: db, now: now}
}

const upsertProfileQuery = `
	INSERT INTO profiles (id, email, name, phone, birth_date, gender, marketing_agreed, created_at, updated_at)
	VALUES ($1, lower($2), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, '')::date, NULLIF($6, ''), $7, $8, $8)
	ON CONFLICT (id) DO UPDATE SET
		email            = COALESCE(NULLIF(EXCLUDED.email, ''), profiles.email),
		name             = COALESCE(EXCLUDED.name, profiles.name),
		phone            = COALESCE(EXCLUDED.phone, profiles.phone),
		birth_date       = COALESCE(EXCLUDED.birth_date, profiles.birth_date),
		gender           = COALESCE(EXCLUDED.gender, profiles.gender),
		marketing_agreed = EXCLUDED.marketing_agreed,
		updated_at       = EXCLUDED.updated_at`

// UpsertProfile inserts the profile or merges its non-empty fields into the
// existing row.
func (r *ProfileRepo) UpsertProfile(ctx context.Context, p domainauth.Profile) error {
	if strings.TrimSpace(p.UserID) == "" {
		return apperrors.ValidationField("id", "profile user id is required")
	}
	if p.BirthDate != "" {
		if _, err := time.Parse(time.DateOnly, p.BirthDate); err != nil {
			return apperrors.ValidationField("birth_date", "birth date must be YYYY-MM-DD")
		}
	}

	err := pgxutil.WithConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, upsertProfileQuery,
			p.UserID,
			strings.TrimSpace(p.Email),
			strings.TrimSpace(p.Name),
			strings.TrimSpace(p.Phone),
			p.BirthDate,
			p.Gender,
			p.Marketing,
			r.now().UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert profile: %w", apperrors.MapDBError(err))
	}
	return nil
}

// EmailExists reports whether a profile already uses email, ignoring case.
func (r *ProfileRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE email = lower($1))`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", apperrors.MapDBError(err))
	}
	return exists, nil
}

// GetProfile returns the profile of userID.
func (r *ProfileRepo) GetProfile(ctx context.Context, userID string) (*domainauth.Profile, error) {
	var (
		p                              domainauth.Profile
		name, phone, birthDate, gender sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, email, name, phone, to_char(birth_date, 'YYYY-MM-DD'), gender, marketing_agreed
		FROM profiles WHERE id = $1`, userID,
	).Scan(&p.UserID, &p.Email, &name, &phone, &birthDate, &gender, &p.Marketing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("profile not found")
		}
		return nil, fmt.Errorf("get profile: %w", apperrors.MapDBError(err))
	}
	p.Name, p.Phone, p.BirthDate, p.Gender = name.String, phone.String, birthDate.String, gender.String
	return &p, nil
}
