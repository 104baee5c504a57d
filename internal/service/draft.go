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

// DraftServiceOptions groups dependencies for DraftService.
type DraftServiceOptions struct {
	Store  ports.DraftStore // Required
	Logger *slog.Logger     // Optional
}

// DraftService keeps the unfinished reservation on the device so a guest
// who is sent to sign-in can resume it afterwards.
type DraftService struct {
	store  ports.DraftStore
	logger *slog.Logger
}

// NewDraftService constructs a DraftService.
func NewDraftService(opts DraftServiceOptions) *DraftService {
	if opts.Store == nil {
		panic("service: DraftService requires Store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DraftService{store: opts.Store, logger: logger.With("component", "reservation_draft")}
}

// Save validates and stores draft, replacing any previous one.
func (s *DraftService) Save(ctx context.Context, draft domainauth.ReservationDraft) error {
	draft.ServiceID = strings.TrimSpace(draft.ServiceID)
	if draft.ServiceID == "" {
		return apperrors.ValidationField("service_id", "service id is required")
	}
	if draft.ScheduledFor != "" {
		if _, err := time.Parse(time.RFC3339, draft.ScheduledFor); err != nil {
			return apperrors.ValidationField("scheduled_for", "scheduled_for must be an RFC 3339 timestamp")
		}
	}
	if err := s.store.SaveDraft(ctx, draft); err != nil {
		s.logger.ErrorContext(ctx, "save draft failed", "error", err)
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Get returns the stored draft or nil. Read failures are logged and reported as no draft.
func (s *DraftService) Get(ctx context.Context) *domainauth.ReservationDraft {
	d, err := s.store.GetDraft(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "get draft failed", "error", err)
		return nil
	}
	return d
}

// Clear removes the stored draft.
func (s *DraftService) Clear(ctx context.Context) error {
	if err := s.store.ClearDraft(ctx); err != nil {
		s.logger.ErrorContext(ctx, "clear draft failed", "error", err)
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}

// Has reports whether a draft is stored. Read failures count as no draft.
func (s *DraftService) Has(ctx context.Context) bool {
	ok, err := s.store.HasDraft(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "check draft failed", "error", err)
		return false
	}
	return ok
}
