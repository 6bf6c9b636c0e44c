package credentials

import "time"

// Record is the single set of OAuth credentials for the managed upstream.
// At most one record exists: it is created by the authorization-code
// exchange and replaced wholesale on every refresh.
type Record struct {
	RefreshToken     string    `json:"refreshToken"`
	AccessToken      string    `json:"accessToken"`
	ExpiresAtEpochMs int64     `json:"expiresAtEpochMs"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Expired reports whether the access token is unusable at the given
// instant. A record without an access token counts as expired.
func (r *Record) Expired(now time.Time) bool {
	return r.AccessToken == "" || r.ExpiresAtEpochMs <= now.UnixMilli()
}

// ExpiresAt returns the access token expiry as a time.Time.
func (r *Record) ExpiresAt() time.Time {
	return time.UnixMilli(r.ExpiresAtEpochMs)
}
