package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
	apperrors "github.com/purumi/purumi/internal/errors"
	"github.com/purumi/purumi/internal/ports"
)

// MsgReservationLoginRequired is shown when a guest or anonymous user tries to book.
const MsgReservationLoginRequired = "예약을 하려면 로그인이 필요합니다."

// ReservationServiceOptions groups dependencies for ReservationService.
type ReservationServiceOptions struct {
	Store    ports.ReservationStore // Required
	Drafts   ports.DraftStore       // Required
	Identity IdentitySource         // Required
	// Navigator, when set, is sent to HomePath after a booking.
	Navigator ports.Navigator // Optional
	HomePath  string          // Optional, defaults to DefaultRouteTable.HomePath
	Logger    *slog.Logger    // Optional
}

// ReservationService books clinic services for the signed-in user.
type ReservationService struct {
	store    ports.ReservationStore
	drafts   ports.DraftStore
	identity IdentitySource
	nav      ports.Navigator
	home     string
	logger   *slog.Logger
}

// NewReservationService constructs a ReservationService.
func NewReservationService(opts ReservationServiceOptions) *ReservationService {
	if opts.Store == nil || opts.Drafts == nil || opts.Identity == nil {
		panic("service: ReservationService requires Store, Drafts and Identity")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	home := opts.HomePath
	if home == "" {
		home = domainauth.DefaultRouteTable.HomePath
	}
	return &ReservationService{
		store:    opts.Store,
		drafts:   opts.Drafts,
		identity: opts.Identity,
		nav:      opts.Navigator,
		home:     home,
		logger:   logger.With("component", "reservation"),
	}
}

// Services lists the bookable services.
func (s *ReservationService) Services(ctx context.Context) ([]domainauth.ClinicService, error) {
	services, err := s.store.ListServices(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list services failed", "error", err)
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// Create books req for the signed-in user. On success the stored draft is
// cleared and the navigator, if any, goes home; failures of those two steps
// are logged because the booking itself is already stored.
func (s *ReservationService) Create(ctx context.Context, req domainauth.ReservationDraft) (*domainauth.Reservation, error) {
	user := s.identity.State().User()
	if user == nil {
		return nil, apperrors.Unauthorized(MsgReservationLoginRequired)
	}

	serviceID := strings.TrimSpace(req.ServiceID)
	if serviceID == "" {
		return nil, apperrors.ValidationField("service_id", "service id is required")
	}
	if strings.TrimSpace(req.ScheduledFor) == "" {
		return nil, apperrors.ValidationField("scheduled_for", "scheduled_for is required")
	}
	at, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ScheduledFor))
	if err != nil {
		return nil, apperrors.ValidationField("scheduled_for", "scheduled_for must be an RFC 3339 timestamp")
	}

	res, err := s.store.CreateReservation(ctx, domainauth.Reservation{
		UserID:       user.ID,
		ServiceID:    serviceID,
		ScheduledFor: at,
		Note:         strings.TrimSpace(req.Note),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "create reservation failed", "user_id", user.ID, "service_id", serviceID, "error", err)
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	s.logger.InfoContext(ctx, "reservation created", "reservation_id", res.ID, "user_id", user.ID)

	if err := s.drafts.ClearDraft(ctx); err != nil {
		s.logger.WarnContext(ctx, "clear draft after booking failed", "error", err)
	}
	if s.nav != nil {
		if err := s.nav.Replace(domainauth.Redirect{Path: s.home}); err != nil {
			s.logger.WarnContext(ctx, "navigate home after booking failed", "error", err)
		}
	}
	return res, nil
}

// CreateFromDraft books the stored draft.
func (s *ReservationService) CreateFromDraft(ctx context.Context) (*domainauth.Reservation, error) {
	draft, err := s.drafts.GetDraft(ctx)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		return nil, apperrors.ValidationField("draft", "저장된 예약 정보가 없습니다.")
	}
	return s.Create(ctx, *draft)
}

// Mine lists the signed-in user's reservations.
func (s *ReservationService) Mine(ctx context.Context) ([]domainauth.Reservation, error) {
	user := s.identity.State().User()
	if user == nil {
		return nil, apperrors.Unauthorized(MsgReservationLoginRequired)
	}
	list, err := s.store.ListReservations(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return list, nil
}
