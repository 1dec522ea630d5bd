package ui

// Authenticator reports whether a session is present.
type Authenticator interface {
	IsAuthenticated() bool
}

// guard returns the view that may actually be shown. Without a session every
// view resolves to the login view; with one, the login view resolves to the
// patient list.
func guard(auth Authenticator, requested View) View {
	if auth == nil || !auth.IsAuthenticated() {
		return ViewLogin
	}
	if requested == ViewLogin {
		return ViewPatients
	}
	return requested
}
