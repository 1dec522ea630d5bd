// Package clinic is the HTTP client for the clinic-management backend.
//
// Every call goes through Client.Do, which attaches the stored access token
// as a bearer credential. When the backend answers 401 the client performs a
// single token refresh on behalf of all concurrent callers, then replays each
// failed request once with the new token. If the refresh cannot succeed the
// stored session is cleared and OnSessionExpired listeners are notified so
// the caller can send the user back to sign-in.
//
// The login and token endpoints under the auth base path never trigger a
// refresh; a 401 there is returned to the caller as is.
//
// Resource helpers (patients, visits, vitals, prescriptions, appointments,
// patient files) are thin wrappers around Do.
package clinic
