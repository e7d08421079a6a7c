package charger

import (
	"encoding/json"
	"time"
)

// wireTimeLayout is RFC 3339 in UTC with exactly three fractional digits
const wireTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Charger is a charging station that can be reserved
type Charger struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Reservation is a booked time slot on a charger
type Reservation struct {
	ID        int       `json:"id"`
	ChargerID int       `json:"charger_id"`
	UserID    string    `json:"user_id"` // uid of the user who made it
	TimeFrom  time.Time `json:"time_from"`
	TimeUntil time.Time `json:"time_until"`
}

// NewReservation is the body of a reservation request
type NewReservation struct {
	ChargerID int       `json:"charger_id"`
	TimeFrom  time.Time `json:"time_from"`
	TimeUntil time.Time `json:"time_until"`
}

func (r NewReservation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ChargerID int    `json:"charger_id"`
		TimeFrom  string `json:"time_from"`
		TimeUntil string `json:"time_until"`
	}{
		ChargerID: r.ChargerID,
		TimeFrom:  r.TimeFrom.UTC().Format(wireTimeLayout),
		TimeUntil: r.TimeUntil.UTC().Format(wireTimeLayout),
	})
}
