package charger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-charger-client/charger"
	apperrors "github.com/jrsteele09/go-charger-client/internal/errors"
	"github.com/jrsteele09/go-charger-client/users"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu           sync.Mutex
	chargers     []charger.Charger
	pageSize     int
	offsets      []int
	listErr      error
	reservations map[int][]charger.Reservation
	created      []charger.NewReservation
	createErr    error
	deleted      []int
}

func (f *fakeAPI) ListChargers(_ context.Context, offset int) ([]charger.Charger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)
	if f.listErr != nil {
		return nil, f.listErr
	}
	if offset >= len(f.chargers) {
		return []charger.Charger{}, nil
	}
	end := offset + f.pageSize
	if end > len(f.chargers) {
		end = len(f.chargers)
	}
	return append([]charger.Charger(nil), f.chargers[offset:end]...), nil
}

func (f *fakeAPI) ListReservations(_ context.Context, chargerID int) ([]charger.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]charger.Reservation(nil), f.reservations[chargerID]...), nil
}

func (f *fakeAPI) CreateReservation(_ context.Context, r charger.NewReservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, r)
	return nil
}

func (f *fakeAPI) DeleteReservation(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type staticIdentity users.User

func (s staticIdentity) Identity() users.User { return users.User(s) }

func makeChargers(n int) []charger.Charger {
	out := make([]charger.Charger, n)
	for i := range out {
		out[i] = charger.Charger{ID: i + 1, Name: "Charger", Address: "Main street"}
	}
	return out
}

func TestPager(t *testing.T) {
	t.Run("appends pages in order until a short page", func(t *testing.T) {
		api := &fakeAPI{chargers: makeChargers(7), pageSize: 3}
		p := charger.NewPager(api, 3)
		require.True(t, p.HasMore())

		page, err := p.LoadMore(context.Background())
		require.NoError(t, err)
		require.Len(t, page, 3)
		require.True(t, p.HasMore())

		_, err = p.LoadMore(context.Background())
		require.NoError(t, err)
		require.True(t, p.HasMore())

		page, err = p.LoadMore(context.Background())
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.False(t, p.HasMore())

		require.Equal(t, []int{0, 3, 6}, api.offsets)
		require.Equal(t, makeChargers(7), p.Chargers())
	})

	t.Run("exact multiple needs one empty page", func(t *testing.T) {
		api := &fakeAPI{chargers: makeChargers(6), pageSize: 3}
		all, err := charger.NewPager(api, 3).LoadAll(context.Background())
		require.NoError(t, err)
		require.Len(t, all, 6)
		require.Equal(t, []int{0, 3, 6}, api.offsets)
	})

	t.Run("larger pages than the threshold", func(t *testing.T) {
		api := &fakeAPI{chargers: makeChargers(25), pageSize: 10}
		all, err := charger.NewPager(api, 3).LoadAll(context.Background())
		require.NoError(t, err)
		require.Len(t, all, 25)
		require.Equal(t, []int{0, 10, 20}, api.offsets)
	})

	t.Run("errors leave the list untouched", func(t *testing.T) {
		api := &fakeAPI{chargers: makeChargers(5), pageSize: 3}
		p := charger.NewPager(api, 3)
		_, err := p.LoadMore(context.Background())
		require.NoError(t, err)

		api.listErr = apperrors.ErrTransient
		_, err = p.LoadMore(context.Background())
		require.True(t, apperrors.Is(err, apperrors.ErrTransient))
		require.Len(t, p.Chargers(), 3)
		require.True(t, p.HasMore())

		api.listErr = nil
		_, err = p.LoadMore(context.Background())
		require.NoError(t, err)
		require.Equal(t, makeChargers(5), p.Chargers())
	})

	t.Run("reset starts over", func(t *testing.T) {
		api := &fakeAPI{chargers: makeChargers(2), pageSize: 3}
		p := charger.NewPager(api, 0)
		_, err := p.LoadAll(context.Background())
		require.NoError(t, err)
		require.False(t, p.HasMore())

		p.Reset()
		require.True(t, p.HasMore())
		require.Empty(t, p.Chargers())
	})
}

func TestService(t *testing.T) {
	owner := users.User{UID: "owner-uid"}
	from := time.Date(2026, 7, 1, 10, 0, 0, 123456789, time.FixedZone("CEST", 2*3600))
	until := from.Add(time.Hour)

	t.Run("reserve sends utc times", func(t *testing.T) {
		api := &fakeAPI{}
		s := charger.NewService(api, staticIdentity(owner))
		require.NoError(t, s.Reserve(context.Background(), 4, from, until))
		require.Len(t, api.created, 1)
		require.Equal(t, 4, api.created[0].ChargerID)
		require.Equal(t, time.UTC, api.created[0].TimeFrom.Location())
		require.Equal(t, "2026-07-01T08:00:00.123Z", api.created[0].TimeFrom.Format("2006-01-02T15:04:05.000Z07:00"))
	})

	t.Run("reserve rejects empty or inverted ranges", func(t *testing.T) {
		api := &fakeAPI{}
		s := charger.NewService(api, staticIdentity(owner))
		require.ErrorIs(t, s.Reserve(context.Background(), 4, from, from), apperrors.ErrInvalidTimeRange)
		require.ErrorIs(t, s.Reserve(context.Background(), 4, until, from), apperrors.ErrInvalidTimeRange)
		require.Empty(t, api.created)
	})

	t.Run("reserve failures mean the slot is unavailable", func(t *testing.T) {
		api := &fakeAPI{createErr: apperrors.ErrRequestFailed}
		s := charger.NewService(api, staticIdentity(owner))
		err := s.Reserve(context.Background(), 4, from, until)
		require.ErrorIs(t, err, apperrors.ErrSlotUnavailable)
		require.ErrorIs(t, err, apperrors.ErrRequestFailed)
	})

	t.Run("reservations are ordered by start", func(t *testing.T) {
		api := &fakeAPI{reservations: map[int][]charger.Reservation{
			1: {{ID: 2, TimeFrom: until}, {ID: 1, TimeFrom: from}},
		}}
		s := charger.NewService(api, staticIdentity(owner))
		got, err := s.Reservations(context.Background(), 1)
		require.NoError(t, err)
		require.Equal(t, 1, got[0].ID)
		require.Equal(t, 2, got[1].ID)
	})

	t.Run("only the owner can cancel", func(t *testing.T) {
		mine := charger.Reservation{ID: 10, ChargerID: 1, UserID: "owner-uid"}
		theirs := charger.Reservation{ID: 11, ChargerID: 1, UserID: "other-uid"}
		api := &fakeAPI{reservations: map[int][]charger.Reservation{1: {mine, theirs}}}
		s := charger.NewService(api, staticIdentity(owner))

		require.True(t, s.CanCancel(mine))
		require.False(t, s.CanCancel(theirs))

		require.ErrorIs(t, s.Cancel(context.Background(), theirs), apperrors.ErrNotOwner)
		require.NoError(t, s.Cancel(context.Background(), mine))
		require.Equal(t, []int{10}, api.deleted)

		require.ErrorIs(t, s.CancelByID(context.Background(), 1, 11), apperrors.ErrNotOwner)
		require.ErrorIs(t, s.CancelByID(context.Background(), 1, 99), apperrors.ErrNotFound)
		require.NoError(t, s.CancelByID(context.Background(), 1, 10))
		require.Equal(t, []int{10, 10}, api.deleted)
	})

	t.Run("anonymous users cancel nothing", func(t *testing.T) {
		s := charger.NewService(&fakeAPI{}, staticIdentity(users.Anonymous()))
		require.False(t, s.CanCancel(charger.Reservation{UserID: ""}))
		require.True(t, errors.Is(s.Cancel(context.Background(), charger.Reservation{}), apperrors.ErrNotOwner))
	})
}
