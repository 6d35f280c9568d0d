package domain

import "time"

// Session is the server-side authority backing a bearer credential. A
// syntactically valid token with no matching active session is rejected.
type Session struct {
	ID           string
	UserID       string
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
	IP           string
	UserAgent    string
	Ativo        bool
	DataCriacao  time.Time
}

// Expired reports whether the session passed its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ClientMeta carries request-level client metadata for sessions and
// activity records.
type ClientMeta struct {
	IP        string
	UserAgent string
}
