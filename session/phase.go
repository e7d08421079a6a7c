package session

// Phase is the coarse authentication state of the client
type Phase int

const (
	PhaseLoggedOut Phase = iota
	PhaseLoading
	PhaseLoggedIn
)

func (p Phase) String() string {
	switch p {
	case PhaseLoggedOut:
		return "logged_out"
	case PhaseLoading:
		return "loading"
	case PhaseLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// Outcome is what a single RefreshIfNeeded check did
type Outcome int

const (
	OutcomeIdle       Outcome = iota // logged out, nothing to do
	OutcomeValid                     // credentials fine for now
	OutcomeRenewed                   // a new access credential was stored
	OutcomeLoggedOut                 // the session was cleared
	OutcomeDiscarded                 // the renewal finished after the session changed, result dropped
	OutcomeDeferred                  // renewal failed transiently, session kept
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeValid:
		return "valid"
	case OutcomeRenewed:
		return "renewed"
	case OutcomeLoggedOut:
		return "logged_out"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}
