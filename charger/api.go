package charger

import "context"

// API is the part of the REST client the charger domain needs
type API interface {
	ListChargers(ctx context.Context, offset int) ([]Charger, error)
	ListReservations(ctx context.Context, chargerID int) ([]Reservation, error)
	CreateReservation(ctx context.Context, r NewReservation) error
	DeleteReservation(ctx context.Context, reservationID int) error
}
