package api

// Authorization grant types accepted by auth/authorize
const (
	GrantPassword = "password"
	GrantToken    = "token"
)

// AuthorizeRequest is the body sent to auth/authorize for both grants.
type AuthorizeRequest struct {
	// Type selects the grant.
	// Values: "password" (sign-in) or "token" (renewal)
	Type string `json:"type"`

	// Email and Password are the user's credentials.
	// Required: Only for the password grant
	// Security: Never log the password
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`

	// Refresh is the refresh credential being exchanged.
	// Required: Only for the token grant
	Refresh string `json:"refresh,omitempty"`
}

// SignInResponse is returned by the password grant.
type SignInResponse struct {
	// AccessToken is the short-lived JWT sent as "Authorization: Bearer <access_token>".
	AccessToken string `json:"access_token"`

	// RefreshToken is the long-lived JWT exchanged for new access tokens.
	// Lifespan: Its exp claim bounds the whole session
	RefreshToken string `json:"refresh_token"`

	// UserUID identifies the signed in user.
	// Usage: Compared with Reservation.UserID to decide ownership
	UserUID string `json:"user_uid"`
}

// RenewResponse is returned by the token grant.
// Only a new access token is issued, the refresh token is kept.
type RenewResponse struct {
	Access string `json:"access"`
}

// errorBody is the error document the API returns with non 2xx statuses
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}
