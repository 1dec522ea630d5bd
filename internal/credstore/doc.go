// Package credstore persists the session token pair.
//
// A session is two opaque strings, the access token and the refresh token,
// stored under the fixed names access_token and refresh_token and scoped to
// the backend origin (scheme://host:port). Storage survives restarts, which
// is what keeps a user signed in between runs.
//
// Backends:
//
//   - FileStore: TOML file, one table per origin, atomic replace, mode 0600
//   - MemoryStore: process lifetime only
//   - RedisStore: shared key/value store for multi-seat workstations
//
// Writers are login (Save), a successful refresh (SaveAccess), and logout or
// a failed refresh (Clear). Every request reads.
package credstore
