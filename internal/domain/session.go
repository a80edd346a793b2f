package domain

import "time"

// Session is an authenticated browser or API session.
// Corresponds to the sessions table in PostgreSQL.
type Session struct {
	Token     string    // opaque session id, also the JWT "sid" claim
	UserID    string    // FK to users
	IPAddress string    // client address at creation
	UserAgent string    // client user agent at creation
	ExpiresAt time.Time // hard expiry
	CreatedAt time.Time
	UpdatedAt time.Time // last refresh
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
