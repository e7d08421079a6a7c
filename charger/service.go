package charger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jrsteele09/go-charger-client/internal/errors"
	"github.com/jrsteele09/go-charger-client/users"
	"github.com/rs/zerolog"
)

// IdentitySource yields the user of the current session
type IdentitySource interface {
	Identity() users.User
}

// Service lists, books and cancels reservations on behalf of the session's user
type Service struct {
	api      API
	identity IdentitySource
	logger   zerolog.Logger
}

type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(api API, identity IdentitySource, options ...ServiceOption) *Service {
	s := &Service{
		api:      api,
		identity: identity,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Reservations returns the reservations of a charger ordered by start time
func (s *Service) Reservations(ctx context.Context, chargerID int) ([]Reservation, error) {
	reservations, err := s.api.ListReservations(ctx, chargerID)
	if err != nil {
		return nil, fmt.Errorf("[charger Reservations] charger %d: %w", chargerID, err)
	}
	sort.SliceStable(reservations, func(i, j int) bool {
		return reservations[i].TimeFrom.Before(reservations[j].TimeFrom)
	})
	return reservations, nil
}

// Reserve books [from, until) on a charger. Any failure of the request is reported
// as errors.ErrSlotUnavailable, with the cause still reachable through errors.Is.
func (s *Service) Reserve(ctx context.Context, chargerID int, from, until time.Time) error {
	if !from.Before(until) {
		return errors.ErrInvalidTimeRange
	}

	req := NewReservation{
		ChargerID: chargerID,
		TimeFrom:  from.UTC().Truncate(time.Millisecond),
		TimeUntil: until.UTC().Truncate(time.Millisecond),
	}
	if err := s.api.CreateReservation(ctx, req); err != nil {
		s.logger.Debug().Err(err).Int("charger_id", chargerID).Msg("reservation refused")
		return fmt.Errorf("%w: %w", errors.ErrSlotUnavailable, err)
	}
	s.logger.Info().Int("charger_id", chargerID).Time("from", req.TimeFrom).Time("until", req.TimeUntil).Msg("reservation created")
	return nil
}

// CanCancel reports whether the current user owns r
func (s *Service) CanCancel(r Reservation) bool {
	return s.identity.Identity().Owns(r.UserID)
}

func (s *Service) Cancel(ctx context.Context, r Reservation) error {
	if !s.CanCancel(r) {
		return errors.Wrapf(errors.ErrNotOwner, "reservation %d", r.ID)
	}
	if err := s.api.DeleteReservation(ctx, r.ID); err != nil {
		return fmt.Errorf("[charger Cancel] reservation %d: %w", r.ID, err)
	}
	s.logger.Info().Int("reservation_id", r.ID).Msg("reservation cancelled")
	return nil
}

// CancelByID looks the reservation up on its charger first so ownership can be checked
func (s *Service) CancelByID(ctx context.Context, chargerID, reservationID int) error {
	reservations, err := s.Reservations(ctx, chargerID)
	if err != nil {
		return err
	}
	for _, r := range reservations {
		if r.ID == reservationID {
			return s.Cancel(ctx, r)
		}
	}
	return errors.Wrapf(errors.ErrNotFound, "reservation %d on charger %d", reservationID, chargerID)
}
