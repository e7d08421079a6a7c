package session_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-charger-client/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDispatcher(t *testing.T) {
	d := session.NewDispatcher(zerolog.Nop())

	var order []string
	first := d.Subscribe(func(session.PhaseChange) { order = append(order, "first") })
	d.Subscribe(func(session.PhaseChange) { order = append(order, "second") })

	change := session.PhaseChange{From: session.PhaseLoggedOut, To: session.PhaseLoggedIn}
	d.Publish(context.Background(), change)
	require.Equal(t, []string{"first", "second"}, order)

	first()
	d.Publish(context.Background(), change)
	require.Equal(t, []string{"first", "second", "second"}, order)
}

func TestStrings(t *testing.T) {
	require.Equal(t, "logged_in", session.PhaseLoggedIn.String())
	require.Equal(t, "loading", session.PhaseLoading.String())
	require.Equal(t, "logged_out", session.PhaseLoggedOut.String())
	require.Equal(t, "deferred", session.OutcomeDeferred.String())
	require.Equal(t, "discarded", session.OutcomeDiscarded.String())
}
