package session

import "time"

// Session is the server-side record behind an opaque cookie value. The
// raw identifier never lands here; rows are keyed by its HMAC.
type Session struct {
	IDHash    string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Options carries the cookie/TTL settings for the whole process. There is
// exactly one of these, built from config at startup, so the cookie layer
// and the store cannot disagree about lifetimes.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}
