package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-charger-client/charger"
)

var _ charger.API = (*Client)(nil)

const (
	pathChargers     = "char/chargers"
	pathReservations = "char/reservations"
)

func (c *Client) ListChargers(ctx context.Context, offset int) ([]charger.Charger, error) {
	var chargers []charger.Charger
	err := c.do(ctx, request{
		private: true,
		method:  http.MethodGet,
		path:    pathChargers,
		query:   url.Values{"offset": {strconv.Itoa(offset)}},
	}, &chargers)
	if err != nil {
		return nil, err
	}
	return chargers, nil
}

// ListReservations returns every reservation of a charger, limited by the client's reservations limit
func (c *Client) ListReservations(ctx context.Context, chargerID int) ([]charger.Reservation, error) {
	var reservations []charger.Reservation
	err := c.do(ctx, request{
		private: true,
		method:  http.MethodGet,
		path:    fmt.Sprintf("%s/%d/reservations", pathChargers, chargerID),
		query:   url.Values{"limit": {strconv.Itoa(c.reservationsLimit)}},
	}, &reservations)
	if err != nil {
		return nil, err
	}
	if reservations == nil {
		reservations = []charger.Reservation{}
	}
	return reservations, nil
}

func (c *Client) CreateReservation(ctx context.Context, r charger.NewReservation) error {
	return c.do(ctx, request{
		private: true,
		method:  http.MethodPost,
		path:    pathReservations,
		body:    r,
	}, nil)
}

func (c *Client) DeleteReservation(ctx context.Context, reservationID int) error {
	return c.do(ctx, request{
		private: true,
		method:  http.MethodDelete,
		path:    fmt.Sprintf("%s/%d", pathReservations, reservationID),
	}, nil)
}
