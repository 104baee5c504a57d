package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/purumi/purumi/internal/data/pgxutil"
	domainauth "github.com/purumi/purumi/internal/domain/auth"
	apperrors "github.com/purumi/purumi/internal/errors"
	"github.com/purumi/purumi/internal/ports"
)

var _ ports.ReservationStore = (*ReservationRepo)(nil)

// ReservationRepo stores clinic services and reservations.
type ReservationRepo struct {
	DB    *sql.DB
	now   func() time.Time
	newID func() string
}

// NewReservationRepo creates a ReservationRepo.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
	return &ReservationRepo{DB: db, now: time.Now, newID: uuid.NewString}
}

// NewReservationRepoWithClock creates a ReservationRepo with a custom clock (useful for tests).
func NewReservationRepoWithClock(db *sql.DB, now func() time.Time) *ReservationRepo {
	return &ReservationRepo{DB: db, now: now, newID: uuid.NewString}
}

const (
	serviceColumns     = `id, name, description, duration_min, created_at`
	reservationColumns = `id::text AS id, user_id, service_id, scheduled_for, COALESCE(note, '') AS note, status, created_at`
)

// CreateServiceRequest describes a bookable service.
type CreateServiceRequest struct {
	ID          string
	Name        string
	Description string
	DurationMin int
}

// CreateService inserts a clinic service.
func (r *ReservationRepo) CreateService(ctx context.Context, req CreateServiceRequest) (*domainauth.ClinicService, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, apperrors.ValidationField("service_id", "service id is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.ValidationField("name", "service name is required")
	}
	var out domainauth.ClinicService
	err := pgxutil.WithConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO clinic_services (id, name, description, duration_min, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+serviceColumns,
			req.ID, req.Name, req.Description, req.DurationMin, r.now().UTC(),
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.ClinicService])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create service: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// ListServices returns every service ordered by name.
func (r *ReservationRepo) ListServices(ctx context.Context) ([]domainauth.ClinicService, error) {
	var out []domainauth.ClinicService
	err := pgxutil.WithConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+serviceColumns+` FROM clinic_services ORDER BY name, id`)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[domainauth.ClinicService])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list services: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// CreateReservation inserts a pending reservation. An unknown service id
// maps to a not-found error.
func (r *ReservationRepo) CreateReservation(ctx context.Context, res domainauth.Reservation) (*domainauth.Reservation, error) {
	if strings.TrimSpace(res.UserID) == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}
	if strings.TrimSpace(res.ServiceID) == "" {
		return nil, apperrors.ValidationField("service_id", "service id is required")
	}
	if res.ScheduledFor.IsZero() {
		return nil, apperrors.ValidationField("scheduled_for", "scheduled time is required")
	}

	var out domainauth.Reservation
	err := pgxutil.WithConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO reservations (id, user_id, service_id, scheduled_for, note, status, created_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
			RETURNING `+reservationColumns,
			r.newID(), res.UserID, res.ServiceID, res.ScheduledFor.UTC(),
			strings.TrimSpace(res.Note), string(domainauth.ReservationPending), r.now().UTC(),
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.Reservation])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create reservation: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// ListReservations returns the reservations of userID, soonest first.
func (r *ReservationRepo) ListReservations(ctx context.Context, userID string) ([]domainauth.Reservation, error) {
	var out []domainauth.Reservation
	err := pgxutil.WithConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+reservationColumns+`
			FROM reservations WHERE user_id = $1
			ORDER BY scheduled_for, created_at`, userID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[domainauth.Reservation])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", apperrors.MapDBError(err))
	}
	return out, nil
}
